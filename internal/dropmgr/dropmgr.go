// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dropmgr removes subnet entities that disappeared between
// sweeps, preserving referential integrity, grounded on
// original_source/opensm/osm_drop_mgr.c's removal ordering.
package dropmgr

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Manager drops entities whose DiscoveryCount is still zero once a
// sweep's discovery phase has quiesced.
type Manager struct {
	Subnet *subnet.Subnet
	Log    *logging.Logger
}

func New(sn *subnet.Subnet, log *logging.Logger) *Manager {
	return &Manager{Subnet: sn, Log: log}
}

// ResetCounts zeroes every node/physp/switch discovery counter ahead of
// a new discovery pass, so entities not rediscovered this sweep can be
// told apart from ones that were.
func (m *Manager) ResetCounts() {
	for _, n := range m.Subnet.Nodes() {
		n.DiscoveryCount = 0
	}
	for _, p := range m.Subnet.Physps() {
		p.DiscoveryCount = 0
	}
	for _, sw := range m.Subnet.Switches() {
		sw.DiscoveryCount = 0
	}
}

// Sweep removes every node (and its physps/switch) whose DiscoveryCount
// is still zero, in osm_drop_mgr.c's dependency order: multicast
// membership first, then multicast groups left with no full member
// (unless well-known), then logical ports, then physps, nodes, and
// switches. heavy is threaded through for callers that want to log a
// heavy-sweep drop differently; it does not change the removal logic.
func (m *Manager) Sweep(heavy bool) {
	stale := m.staleNodes()
	if len(stale) == 0 {
		return
	}

	stalePortGUIDs := make(map[ibtype.GUID]bool)
	for _, n := range stale {
		for _, pid := range n.Physps {
			p, ok := m.Subnet.Physp(pid)
			if !ok {
				continue
			}
			if !p.PortGUID.IsZero() {
				stalePortGUIDs[p.PortGUID] = true
			}
		}
	}

	for _, g := range m.Subnet.MCGroups() {
		for guid := range g.Members {
			if stalePortGUIDs[guid] {
				delete(g.Members, guid)
			}
		}
	}
	for _, g := range m.Subnet.MCGroups() {
		if !g.WellKnown && !hasFullMember(g) {
			m.Subnet.DeleteMCGroup(g)
		}
	}

	for guid := range stalePortGUIDs {
		if lp, ok := m.Subnet.LogicalPortByGUID(guid); ok {
			m.Subnet.DeleteLogicalPort(lp.ID)
		}
	}

	for _, n := range stale {
		if m.Log != nil {
			m.Log.Info("dropping stale node", "guid", n.GUID, "heavy", heavy)
		}
		m.Subnet.DeleteNode(n.ID)
	}
}

// staleNodes returns nodes with DiscoveryCount == 0; a switch node is
// only reported stale once its Switch record also shows zero discovery
// (both are refreshed on every GetOrCreateNode/GetOrCreateSwitch call
// during a live sweep).
func (m *Manager) staleNodes() []*subnet.Node {
	var out []*subnet.Node
	for _, n := range m.Subnet.Nodes() {
		if n.DiscoveryCount > 0 {
			continue
		}
		if n.SwitchID != 0 {
			if sw, ok := m.Subnet.Switch(n.SwitchID); ok && sw.DiscoveryCount > 0 {
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func hasFullMember(g *subnet.MCGroup) bool {
	for _, ms := range g.Members {
		if ms.JoinState&subnet.JoinStateFull != 0 {
			return true
		}
	}
	return false
}
