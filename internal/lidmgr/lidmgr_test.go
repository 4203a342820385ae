// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package lidmgr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "guid2lid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAssignPreservesValidCurrentLID(t *testing.T) {
	m := NewManager(newTestStore(t), false)
	m.BeginSweep()
	a := m.Assign(ibtype.GUID(0x10), ibtype.LID(5), 0)
	require.Equal(t, ibtype.LID(5), a.Range.Base)
	require.False(t, a.NeedsWrite)
}

func TestAssignAllocatesLowestFreeWhenNoCurrentLID(t *testing.T) {
	m := NewManager(newTestStore(t), false)
	m.BeginSweep()
	a1 := m.Assign(ibtype.GUID(0x10), 0, 0)
	a2 := m.Assign(ibtype.GUID(0x20), 0, 0)
	require.Equal(t, ibtype.LID(1), a1.Range.Base)
	require.Equal(t, ibtype.LID(2), a2.Range.Base)
	require.True(t, a1.NeedsWrite)
}

func TestAssignResolvesConflictInFavorOfLowerGUID(t *testing.T) {
	m := NewManager(newTestStore(t), false)
	m.BeginSweep()
	low := ibtype.GUID(0x10)
	high := ibtype.GUID(0x99)

	aHigh := m.Assign(high, 0, 0)
	require.Equal(t, ibtype.LID(1), aHigh.Range.Base)

	// low claims the same LID that high currently holds; low wins.
	aLow := m.Assign(low, 1, 0)
	require.Equal(t, ibtype.LID(1), aLow.Range.Base)
	require.False(t, aLow.NeedsWrite)

	// high must now be reassigned to a fresh range and re-written.
	aHigh2 := m.Assign(high, 1, 0)
	require.NotEqual(t, ibtype.LID(1), aHigh2.Range.Base)
	require.True(t, aHigh2.NeedsWrite)
}

func TestAssignHonorsLMCAlignment(t *testing.T) {
	m := NewManager(newTestStore(t), false)
	m.BeginSweep()
	a1 := m.Assign(ibtype.GUID(0x1), 0, 2) // lmc=2 -> size 4
	require.Equal(t, ibtype.LID(4), a1.Range.Base)
	require.True(t, a1.Range.Aligned())
	a2 := m.Assign(ibtype.GUID(0x2), 0, 2)
	require.Equal(t, ibtype.LID(8), a2.Range.Base)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g2l.db")
	s1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ibtype.GUID(0x42), ibtype.LIDRange{Base: 7, LMC: 0}))
	require.NoError(t, s1.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	rng, ok := s2.Get(ibtype.GUID(0x42))
	require.True(t, ok)
	require.Equal(t, ibtype.LID(7), rng.Base)
}
