// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ucast

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// switchDistances runs a plain BFS over adj from src, returning the
// shortest switch-hop count to every reachable switch.
func switchDistances(adj Adjacency, src subnet.SwitchID) map[subnet.SwitchID]int {
	dist := map[subnet.SwitchID]int{src: 0}
	queue := []subnet.SwitchID{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			if _, seen := dist[e.Neighbor]; seen {
				continue
			}
			dist[e.Neighbor] = dist[cur] + 1
			queue = append(queue, e.Neighbor)
		}
	}
	return dist
}

// MinHopEngine implements the baseline min-hop routing engine:
// shortest path over the switch graph, with equal-cost ports
// spread across destination LIDs rather than always taking the first
// port scanned.
type MinHopEngine struct{}

func (MinHopEngine) Name() string { return "minhop" }

func (e MinHopEngine) Compute(ctx *EngineContext) error {
	adj := BuildAdjacency(ctx.Subnet)
	dests := Destinations(ctx.Subnet, ctx.MaxUcastLID)

	distCache := make(map[subnet.SwitchID]map[subnet.SwitchID]int)
	distTo := func(root subnet.SwitchID) map[subnet.SwitchID]int {
		if d, ok := distCache[root]; ok {
			return d
		}
		d := switchDistances(adj, root)
		distCache[root] = d
		return d
	}

	for _, sw := range ctx.Subnet.Switches() {
		n, ok := ctx.Subnet.Node(sw.NodeID)
		if !ok {
			continue
		}
		ensureTables(sw, n, ctx.MaxUcastLID)

		for _, d := range dests {
			dist := distTo(d.AttachedSwitch)
			hops, best, bestIdx, haveBest := hopsForDestination(ctx.Subnet, n, sw, d, dist)
			sw.MinHop[d.LID] = hops
			if haveBest {
				applyBestTieBroken(sw, n, d, hops, best, bestIdx)
			}
		}
	}
	return nil
}

// ensureTables grows sw's min-hop and LFT tables to cover maxLID.
func ensureTables(sw *subnet.Switch, n *subnet.Node, maxLID ibtype.LID) {
	if sw.MinHop == nil {
		sw.MinHop = make(map[ibtype.LID][]int)
	}
	need := int(maxLID) + 1
	if sw.LFT == nil {
		sw.LFT = make([]subnet.PhyspID, need)
	} else if len(sw.LFT) < need {
		grown := make([]subnet.PhyspID, need)
		copy(grown, sw.LFT)
		sw.LFT = grown
	}
	_ = n
}

// hopsForDestination computes the per-port hop count on sw toward d,
// given dist (switch-hop distances rooted at d.AttachedSwitch).
func hopsForDestination(sn *subnet.Subnet, n *subnet.Node, sw *subnet.Switch, d Destination, dist map[subnet.SwitchID]int) (hops []int, bestHop int, bestIdx int, haveBest bool) {
	hops = make([]int, len(n.Physps))
	bestHop = -1
	for i, pid := range n.Physps {
		hops[i] = unreachable
		p, ok := sn.Physp(pid)
		if !ok {
			continue
		}
		switch {
		case sw.ID == d.AttachedSwitch && pid == d.FinalPhysp:
			if d.IsSwitchPort {
				hops[i] = 0
			} else {
				hops[i] = 1
			}
		case p.HasRemote:
			rp, ok := sn.Physp(p.Remote)
			if !ok {
				continue
			}
			rn, ok := sn.Node(rp.NodeID)
			if !ok || rn.Type != ibtype.NodeTypeSwitch {
				continue
			}
			base, ok := dist[rn.SwitchID]
			if !ok {
				continue
			}
			if !d.IsSwitchPort {
				base++
			}
			hops[i] = base + 1
		default:
			continue
		}
		if hops[i] < 0 {
			continue
		}
		if !haveBest || hops[i] < bestHop {
			bestHop, bestIdx, haveBest = hops[i], i, true
		} else if hops[i] == bestHop && tieBreak(int(d.LID), i) < tieBreak(int(d.LID), bestIdx) {
			bestIdx = i
		}
	}
	return hops, bestHop, bestIdx, haveBest
}

func applyBestTieBroken(sw *subnet.Switch, n *subnet.Node, d Destination, hops []int, bestHop, bestIdx int) {
	// Re-scan to find the tie-broken winner among all ports sharing
	// bestHop, matching hopsForDestination's own tie-break rule.
	winner := bestIdx
	for i, h := range hops {
		if h == bestHop && tieBreak(int(d.LID), i) < tieBreak(int(d.LID), winner) {
			winner = i
		}
	}
	if int(d.LID) < len(sw.LFT) {
		sw.LFT[d.LID] = n.Physps[winner]
	}
}

// tieBreak spreads equal-cost choices across ports deterministically by
// destination LID rather than always preferring the first port scanned.
func tieBreak(lid, portIndex int) int {
	d := lid - portIndex
	if d < 0 {
		d = -d
	}
	return d
}
