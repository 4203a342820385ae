// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ucast

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// udPhase tracks whether a constrained walk is still free to go either
// direction or has already committed to a DOWN run.
type udPhase int

const (
	phaseFree udPhase = iota
	phaseDown
)

type udState struct {
	sw    subnet.SwitchID
	phase udPhase
}

// direction classifies a traversal from cur to nb using rank, breaking
// ties by GUID (moving from a lower GUID to a higher one counts as DOWN,
// from a higher GUID to a lower one as up),
// the rule the Up/Down engine uses throughout.
func direction(sn *subnet.Subnet, cur, nb subnet.SwitchID) udPhase {
	curSw, _ := sn.Switch(cur)
	nbSw, _ := sn.Switch(nb)
	if curSw.Rank != nbSw.Rank {
		if curSw.Rank < nbSw.Rank {
			return phaseDown
		}
		return phaseFree // traveling toward a lower rank is "up"
	}
	curNode, _ := sn.Node(curSw.NodeID)
	nbNode, _ := sn.Node(nbSw.NodeID)
	if curNode.GUID < nbNode.GUID {
		return phaseDown
	}
	return phaseFree
}

// updnDistances computes, for every switch reachable under the
// never-UP-after-DOWN constraint, the shortest legal path length to
// root (here "root" is the destination's attached switch; BFS runs
// outward from it, which is symmetric to running it from the source —
// reversing and flipping a legal up*-then-down* path yields another
// legal up*-then-down* path, see updn_test.go).
func updnDistances(sn *subnet.Subnet, adj Adjacency, dest subnet.SwitchID) map[subnet.SwitchID]int {
	best := map[udState]int{{dest, phaseFree}: 0}
	queue := []udState{{dest, phaseFree}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := best[cur]
		for _, e := range adj[cur.sw] {
			lbl := direction(sn, cur.sw, e.Neighbor)
			var next udPhase
			switch cur.phase {
			case phaseFree:
				next = lbl
			case phaseDown:
				if lbl != phaseDown {
					continue
				}
				next = phaseDown
			}
			ns := udState{e.Neighbor, next}
			if v, ok := best[ns]; ok && v <= d+1 {
				continue
			}
			best[ns] = d + 1
			queue = append(queue, ns)
		}
	}
	dist := make(map[subnet.SwitchID]int)
	for s, d := range best {
		if v, ok := dist[s.sw]; !ok || d < v {
			dist[s.sw] = d
		}
	}
	return dist
}

// RankSwitches assigns sw.Rank to every switch via multi-source BFS
// from roots (distance 0), the ranking step feeding the Up/Down engine.
func RankSwitches(sn *subnet.Subnet, adj Adjacency, roots []subnet.SwitchID) {
	rank := make(map[subnet.SwitchID]int)
	var queue []subnet.SwitchID
	for _, r := range roots {
		rank[r] = 0
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			if _, ok := rank[e.Neighbor]; ok {
				continue
			}
			rank[e.Neighbor] = rank[cur] + 1
			queue = append(queue, e.Neighbor)
		}
	}
	for _, sw := range sn.Switches() {
		if r, ok := rank[sw.ID]; ok {
			sw.Rank = r
		}
	}
}

// DetectRoots auto-detects root switches by a histogram heuristic:
// build, for each switch, the distribution of plain min-hop counts to
// every CA/router destination, and call it a root when
// exactly one hop-count bucket covers more than 90% of destinations and
// exactly one bucket (possibly the same one counted again from a
// different threshold) covers more than 5%.
func DetectRoots(sn *subnet.Subnet, adj Adjacency, maxUcastLID ibtype.LID) []subnet.SwitchID {
	dests := Destinations(sn, maxUcastLID)
	caDests := make([]Destination, 0, len(dests))
	seen := make(map[ibtype.LID]bool)
	for _, d := range dests {
		if d.IsSwitchPort || seen[d.LID] {
			continue
		}
		seen[d.LID] = true
		caDests = append(caDests, d)
	}
	if len(caDests) == 0 {
		return nil
	}

	distCache := make(map[subnet.SwitchID]map[subnet.SwitchID]int)
	distTo := func(root subnet.SwitchID) map[subnet.SwitchID]int {
		if d, ok := distCache[root]; ok {
			return d
		}
		d := switchDistances(adj, root)
		distCache[root] = d
		return d
	}

	var roots []subnet.SwitchID
	for _, sw := range sn.Switches() {
		hist := make(map[int]int)
		for _, d := range caDests {
			dist := distTo(d.AttachedSwitch)
			v, ok := dist[sw.ID]
			if !ok {
				continue
			}
			hist[v+1]++
		}
		total := len(caDests)
		over90, over5 := 0, 0
		for _, count := range hist {
			pct := float64(count) * 100 / float64(total)
			if pct > 90 {
				over90++
			}
			if pct > 5 {
				over5++
			}
		}
		if over90 == 1 && over5 == 1 {
			roots = append(roots, sw.ID)
		}
	}
	return roots
}

// UpDnEngine implements the Up/Down routing engine: ranks switches from
// a root set (given or auto-detected), then restricts the min-hop BFS
// so no path transitions from a DOWN step back to an UP step, avoiding
// credit-loop deadlock in non-tree topologies.
type UpDnEngine struct {
	// Roots, when non-empty, overrides auto-detection.
	Roots []subnet.SwitchID
}

func (UpDnEngine) Name() string { return "updn" }

func (e UpDnEngine) Compute(ctx *EngineContext) error {
	adj := BuildAdjacency(ctx.Subnet)

	roots := e.Roots
	if len(roots) == 0 {
		roots = DetectRoots(ctx.Subnet, adj, ctx.MaxUcastLID)
	}
	if len(roots) == 0 {
		// No detectable root set: fall back to plain min-hop so the
		// fabric still routes rather than going dark.
		return MinHopEngine{}.Compute(ctx)
	}
	RankSwitches(ctx.Subnet, adj, roots)

	dests := Destinations(ctx.Subnet, ctx.MaxUcastLID)
	distCache := make(map[subnet.SwitchID]map[subnet.SwitchID]int)
	distTo := func(root subnet.SwitchID) map[subnet.SwitchID]int {
		if d, ok := distCache[root]; ok {
			return d
		}
		d := updnDistances(ctx.Subnet, adj, root)
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
