// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package subnet

import (
	"testing"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/osmerr"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateNodeIsIdempotent(t *testing.T) {
	s := New(0xfe80000000000000)
	n1, created, err := s.GetOrCreateNode(ibtype.GUID(0x1))
	require.NoError(t, err)
	require.True(t, created)

	n2, created, err := s.GetOrCreateNode(ibtype.GUID(0x1))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, n1.ID, n2.ID)
	require.Equal(t, 2, n2.DiscoveryCount)
}

func TestGetOrCreateNodeRejectsZeroGUID(t *testing.T) {
	s := New(0)
	_, _, err := s.GetOrCreateNode(0)
	require.Error(t, err)
	require.Equal(t, osmerr.KindValidation, osmerr.KindOf(err))
}

func TestDuplicatePortGUIDIsDetected(t *testing.T) {
	s := New(0)
	nA, _, _ := s.GetOrCreateNode(ibtype.GUID(0x10))
	nB, _, _ := s.GetOrCreateNode(ibtype.GUID(0x20))
	_, _, err := s.GetOrCreatePhysp(nA, 1, ibtype.GUID(0x42))
	require.NoError(t, err)
	_, _, err = s.GetOrCreatePhysp(nB, 1, ibtype.GUID(0x42))
	require.Error(t, err)
	require.Equal(t, osmerr.KindDuplicateGUID, osmerr.KindOf(err))
}

func TestLinkPhyspsIsSymmetric(t *testing.T) {
	s := New(0)
	nA, _, _ := s.GetOrCreateNode(ibtype.GUID(0x1))
	nB, _, _ := s.GetOrCreateNode(ibtype.GUID(0x2))
	pA, _, _ := s.GetOrCreatePhysp(nA, 3, 0)
	pB, _, _ := s.GetOrCreatePhysp(nB, 3, 0)

	already := s.LinkPhysps(pA, pB)
	require.False(t, already)
	require.Equal(t, pB.ID, pA.Remote)
	require.Equal(t, pA.ID, pB.Remote)

	again := s.LinkPhysps(pA, pB)
	require.True(t, again)
}

func TestSharesPKey(t *testing.T) {
	s := New(0)
	s.UpsertPartition(&Partition{
		Name: "default", PKey: ibtype.PKey(0x8001),
		Members: map[ibtype.GUID]bool{ibtype.GUID(0x10): true, ibtype.GUID(0x20): true},
	})
	require.True(t, s.SharesPKey(ibtype.GUID(0x10), ibtype.GUID(0x20)))
	require.False(t, s.SharesPKey(ibtype.GUID(0x10), ibtype.GUID(0x99)))
}
