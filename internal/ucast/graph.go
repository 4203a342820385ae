// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ucast implements unicast routing: the min-hop matrix, the
// pluggable engine contract, and LFT emission. minhop.go and updn.go
// provide the two concrete engines; emit.go and cache.go implement the
// shared LFT-block push and the use_ucast_cache unchanged-block
// skip.
package ucast

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Edge is one switch-to-switch adjacency, named by the local physp used
// to reach the neighbor.
type Edge struct {
	ViaPhysp subnet.PhyspID
	Neighbor subnet.SwitchID
}

// Adjacency is the undirected switch graph.
type Adjacency map[subnet.SwitchID][]Edge

// BuildAdjacency walks every physp link and records the switch-to-switch
// edges it forms (CA/router endpoints are excluded; they are resolved
// separately per-destination by Destinations).
func BuildAdjacency(sn *subnet.Subnet) Adjacency {
	adj := make(Adjacency)
	for _, sw := range sn.Switches() {
		n, ok := sn.Node(sw.NodeID)
		if !ok {
			continue
		}
		for _, pid := range n.Physps {
			p, ok := sn.Physp(pid)
			if !ok || !p.HasRemote {
				continue
			}
			rp, ok := sn.Physp(p.Remote)
			if !ok {
				continue
			}
			rn, ok := sn.Node(rp.NodeID)
			if !ok || rn.Type != ibtype.NodeTypeSwitch {
				continue
			}
			adj[sw.ID] = append(adj[sw.ID], Edge{ViaPhysp: pid, Neighbor: rn.SwitchID})
		}
	}
	return adj
}

// Destination is one routable unicast LID, resolved to the switch it is
// (directly or transitively, via a CA/router) attached to.
type Destination struct {
	LID            ibtype.LID
	AttachedSwitch subnet.SwitchID
	// FinalPhysp is the physp on AttachedSwitch that leads directly to
	// the destination (the switch's own port0 when IsSwitchPort).
	FinalPhysp   subnet.PhyspID
	IsSwitchPort bool
}

// Destinations enumerates every unicast LID currently assigned, up to
// maxLID, resolving each to its attached switch.
func Destinations(sn *subnet.Subnet, maxLID ibtype.LID) []Destination {
	var out []Destination
	for _, p := range sn.Physps() {
		if p.LID == 0 || !p.LID.IsUnicast() {
			continue
		}
		rng := ibtype.LIDRange{Base: p.LID, LMC: p.LMC}
		n, ok := sn.Node(p.NodeID)
		if !ok {
			continue
		}
		var d Destination
		if n.Type == ibtype.NodeTypeSwitch {
			d = Destination{AttachedSwitch: n.SwitchID, FinalPhysp: p.ID, IsSwitchPort: true}
		} else {
			if !p.HasRemote {
				continue
			}
			rp, ok := sn.Physp(p.Remote)
			if !ok {
				continue
			}
			rn, ok := sn.Node(rp.NodeID)
			if !ok || rn.Type != ibtype.NodeTypeSwitch {
				continue
			}
			d = Destination{AttachedSwitch: rn.SwitchID, FinalPhysp: rp.ID, IsSwitchPort: false}
		}
		top := rng.Top()
		if top > maxLID {
			top = maxLID
		}
		for lid := rng.Base; lid <= top; lid++ {
			dd := d
			dd.LID = lid
			out = append(out, dd)
		}
	}
	return out
}

const unreachable = -1
