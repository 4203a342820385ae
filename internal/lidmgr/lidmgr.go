// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package lidmgr

import (
	"github.com/ibfabric/osmd/internal/ibtype"
)

// Manager assigns LID ranges to ports following this priority order:
//  1. If a persisted GUID→LID map exists and honor_guid2lid_file=true,
//     use it as a starting point.
//  2. Otherwise preserve the port's current LID if valid, aligned, and free.
//  3. Otherwise allocate the lowest free aligned range >= 1.
//
// reassign_lids=true discards history (handled by the caller clearing the
// Store before the sweep). Conflicts are resolved in favor of the lower
// GUID; the loser is assigned a fresh range and must have its PortInfo
// re-set on the wire.
type Manager struct {
	store              *Store
	honorGUID2LIDFile  bool

	// in-sweep state, reset by BeginSweep
	assigned map[ibtype.GUID]ibtype.LIDRange
	byLID    map[ibtype.LID]ibtype.GUID // base LID -> owner, for conflict + free-range search
}

// NewManager wraps store with the manager's policy flags.
func NewManager(store *Store, honorGUID2LIDFile bool) *Manager {
	return &Manager{store: store, honorGUID2LIDFile: honorGUID2LIDFile}
}

// BeginSweep resets per-sweep assignment bookkeeping. Call once at the
// start of the Configuring-LIDs state.
func (m *Manager) BeginSweep() {
	m.assigned = make(map[ibtype.GUID]ibtype.LIDRange)
	m.byLID = make(map[ibtype.LID]ibtype.GUID)
}

// Assignment is the LID manager's decision for one port.
type Assignment struct {
	Range      ibtype.LIDRange
	NeedsWrite bool // PortInfo Set is required (new range or conflict loser)
}

// Assign decides the LID range for portGUID given its current on-wire
// LID (0 if unassigned) and configured LMC.
func (m *Manager) Assign(portGUID ibtype.GUID, currentLID ibtype.LID, lmc uint8) Assignment {
	if m.honorGUID2LIDFile {
		if rng, ok := m.store.Get(portGUID); ok {
			if a, ok := m.tryClaim(portGUID, rng); ok {
				a.NeedsWrite = rng.Base != currentLID
				return a
			}
		}
	}

	if currentLID.IsUnicast() {
		candidate := ibtype.LIDRange{Base: currentLID, LMC: lmc}
		if candidate.Aligned() {
			if a, ok := m.tryClaim(portGUID, candidate); ok {
				return a
			}
		}
	}

	base := m.lowestFreeAligned(lmc)
	rng := ibtype.LIDRange{Base: base, LMC: lmc}
	m.commit(portGUID, rng)
	needsWrite := rng.Base != currentLID
	_ = m.store.Put(portGUID, rng)
	return Assignment{Range: rng, NeedsWrite: needsWrite}
}

// tryClaim attempts to bind portGUID to rng if it is free (or already
// owned by portGUID). On a conflict with a *different*, still-assigned
// GUID, resolution favors the lower GUID: if portGUID is
// lower, it takes the range and the other loses it (the caller will
// re-Assign the loser on its next call, since byLID now points at the
// winner); if portGUID is higher, tryClaim fails so the caller falls
// through to fresh allocation.
func (m *Manager) tryClaim(portGUID ibtype.GUID, rng ibtype.LIDRange) (Assignment, bool) {
	for lid := rng.Base; lid <= rng.Top(); lid++ {
		if owner, ok := m.byLID[lid]; ok && owner != portGUID {
			if portGUID < owner {
				m.evict(owner)
				continue
			}
			return Assignment{}, false
		}
	}
	m.commit(portGUID, rng)
	return Assignment{Range: rng, NeedsWrite: false}, true
}

func (m *Manager) commit(guid ibtype.GUID, rng ibtype.LIDRange) {
	if old, ok := m.assigned[guid]; ok {
		m.evict(guid)
		_ = old
	}
	m.assigned[guid] = rng
	for lid := rng.Base; lid <= rng.Top(); lid++ {
		m.byLID[lid] = guid
	}
}

func (m *Manager) evict(guid ibtype.GUID) {
	rng, ok := m.assigned[guid]
	if !ok {
		return
	}
	delete(m.assigned, guid)
	for lid := rng.Base; lid <= rng.Top(); lid++ {
		if m.byLID[lid] == guid {
			delete(m.byLID, lid)
		}
	}
}

// lowestFreeAligned finds the lowest LID >= 1 such that a 2^lmc-aligned
// range starting there is entirely free.
func (m *Manager) lowestFreeAligned(lmc uint8) ibtype.LID {
	size := uint32(1) << lmc
	for base := size; base <= uint32(ibtype.LIDUnicastMax); base += size {
		free := true
		for lid := base; lid < base+size; lid++ {
			if _, ok := m.byLID[ibtype.LID(lid)]; ok {
				free = false
				break
			}
		}
		if free {
			return ibtype.LID(base)
		}
	}
	return 0
}

// Assignments returns every assignment made so far this sweep.
func (m *Manager) Assignments() map[ibtype.GUID]ibtype.LIDRange {
	out := make(map[ibtype.GUID]ibtype.LIDRange, len(m.assigned))
	for k, v := range m.assigned {
		out[k] = v
	}
	return out
}
