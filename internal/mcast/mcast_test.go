// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mcast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
	"github.com/ibfabric/osmd/internal/ucast"
)

// buildLineFabric wires three switches in a line SwA-SwB-SwC; SwA and SwC
// each have one attached CA (H1 and H3), SwB has none.
func buildLineFabric(t *testing.T) (*subnet.Subnet, map[string]*subnet.Switch, map[string]ibtype.GUID) {
	t.Helper()
	sn := subnet.New(0xfe80000000000000)
	switches := map[string]*subnet.Switch{}
	mkSwitch := func(guid ibtype.GUID) *subnet.Node {
		n, _, err := sn.GetOrCreateNode(guid)
		require.NoError(t, err)
		n.Type = ibtype.NodeTypeSwitch
		sn.GetOrCreateSwitch(n)
		return n
	}
	nA := mkSwitch(ibtype.GUID(0xA))
	nB := mkSwitch(ibtype.GUID(0xB))
	nC := mkSwitch(ibtype.GUID(0xC))
	swA, _ := sn.Switch(nA.SwitchID)
	swB, _ := sn.Switch(nB.SwitchID)
	swC, _ := sn.Switch(nC.SwitchID)
	switches["A"], switches["B"], switches["C"] = swA, swB, swC

	pA2, _, _ := sn.GetOrCreatePhysp(nA, 2, ibtype.GUID(0xA2))
	pB1, _, _ := sn.GetOrCreatePhysp(nB, 1, ibtype.GUID(0xB1))
	pB2, _, _ := sn.GetOrCreatePhysp(nB, 2, ibtype.GUID(0xB2))
	pC1, _, _ := sn.GetOrCreatePhysp(nC, 1, ibtype.GUID(0xC1))
	sn.LinkPhysps(pA2, pB1)
	sn.LinkPhysps(pB2, pC1)

	hosts := map[string]ibtype.GUID{}
	mkHost := func(guid ibtype.GUID, sw *subnet.Node, portNum uint8, swPhysp *subnet.Physp) ibtype.GUID {
		nH, _, err := sn.GetOrCreateNode(guid)
		require.NoError(t, err)
		nH.Type = ibtype.NodeTypeChannelAdapter
		pH, _, err := sn.GetOrCreatePhysp(nH, 1, ibtype.GUID(uint64(guid)+0x1000))
		require.NoError(t, err)
		sn.LinkPhysps(swPhysp, pH)
		sn.GetOrCreateLogicalPort(pH.PortGUID, pH.ID)
		return pH.PortGUID
	}
	pA1, _, _ := sn.GetOrCreatePhysp(nA, 1, ibtype.GUID(0xA1))
	pC2, _, _ := sn.GetOrCreatePhysp(nC, 2, ibtype.GUID(0xC2))
	hosts["H1"] = mkHost(ibtype.GUID(0x1), nA, 1, pA1)
	hosts["H3"] = mkHost(ibtype.GUID(0x3), nC, 2, pC2)

	return sn, switches, hosts
}

func TestComputeGroupMiddleSwitchForwardsTowardBothMembers(t *testing.T) {
	sn, switches, hosts := buildLineFabric(t)
	g := &subnet.MCGroup{
		MLID: ibtype.LID(0xC000),
		Members: map[ibtype.GUID]subnet.MemberState{
			hosts["H1"]: {JoinState: subnet.JoinStateFull},
			hosts["H3"]: {JoinState: subnet.JoinStateFull},
		},
	}
	adj := ucast.BuildAdjacency(sn)
	require.NoError(t, Engine{}.ComputeGroup(sn, adj, g))

	// SwB (the middle hop) must forward toward both SwA and SwC.
	nB, _ := sn.Node(switches["B"].NodeID)
	row := switches["B"].MFT[g.MLID]
	require.NotNil(t, row)
	onCount := 0
	for _, on := range row {
		if on {
			onCount++
		}
	}
	require.Equal(t, 2, onCount)
	_ = nB
}

func TestComputeGroupSkipsWhenNoAttachableMembers(t *testing.T) {
	sn, _, _ := buildLineFabric(t)
	g := &subnet.MCGroup{MLID: ibtype.LID(0xC000), Members: map[ibtype.GUID]subnet.MemberState{}}
	adj := ucast.BuildAdjacency(sn)
	require.NoError(t, Engine{}.ComputeGroup(sn, adj, g))
}
