// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package election

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

func TestCompleteDiscoveryBecomesMasterWhenNoBetterCandidate(t *testing.T) {
	e := New(Candidate{GUID: ibtype.GUID(1), Priority: 5}, DefaultOptions(), nil)
	e.CompleteDiscovery(nil)
	require.Equal(t, subnet.SMStateMaster, e.State())
}

func TestCompleteDiscoveryBecomesStandbyWhenOutranked(t *testing.T) {
	e := New(Candidate{GUID: ibtype.GUID(2), Priority: 5}, DefaultOptions(), nil)
	e.CompleteDiscovery(&Candidate{GUID: ibtype.GUID(1), Priority: 9})
	require.Equal(t, subnet.SMStateStandby, e.State())
}

func TestEqualPriorityTieBrokenByLowerGUID(t *testing.T) {
	e := New(Candidate{GUID: ibtype.GUID(5), Priority: 5}, DefaultOptions(), nil)
	e.CompleteDiscovery(&Candidate{GUID: ibtype.GUID(1), Priority: 5})
	require.Equal(t, subnet.SMStateStandby, e.State(), "lower GUID peer should win on priority tie")
}

func TestMasterYieldsToHigherPriorityPeer(t *testing.T) {
	e := New(Candidate{GUID: ibtype.GUID(1), Priority: 5}, DefaultOptions(), nil)
	e.CompleteDiscovery(nil)
	require.Equal(t, subnet.SMStateMaster, e.State())

	shouldYield := e.HandlePolledSMInfo(Candidate{GUID: ibtype.GUID(2), Priority: 9})
	require.True(t, shouldYield)
}

func TestStandbyPromotesAfterPollRetriesExhausted(t *testing.T) {
	e := New(Candidate{GUID: ibtype.GUID(2), Priority: 5}, Options{PollRetryNumber: 3}, nil)
	e.CompleteDiscovery(&Candidate{GUID: ibtype.GUID(1), Priority: 9})
	require.Equal(t, subnet.SMStateStandby, e.State())

	master := ibtype.GUID(1)
	e.PollMissed(master)
	e.PollMissed(master)
	require.Equal(t, subnet.SMStateStandby, e.State())
	e.PollMissed(master)
	require.Equal(t, subnet.SMStateMaster, e.State())
}

func TestValidateSMKeyDemotesToNotActiveOnMismatch(t *testing.T) {
	e := New(Candidate{GUID: ibtype.GUID(1), Priority: 5}, Options{SMKey: 0xdead}, nil)
	e.CompleteDiscovery(nil)
	require.True(t, e.ValidateSMKey(0xdead))
	require.False(t, e.ValidateSMKey(0xbeef))
	require.Equal(t, subnet.SMStateNotActive, e.State())
}
