// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package mcast implements multicast routing: a spanning tree per group
// rooted at the switch with the most directly attached members (ties
// broken by lowest node GUID), and MFT emission.
//
// The tree is the shortest-path tree over the full switch graph rather
// than a minimal Steiner tree restricted to member-bearing branches;
// opensm itself takes the same shortcut (building on its existing
// unicast distance computation) rather than solving Steiner-tree
// optimally, so this keeps the same grounding.
package mcast

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
	"github.com/ibfabric/osmd/internal/ucast"
)

// ChooseRoot picks the switch with the most directly attached group
// members, breaking ties by the lowest node GUID.
func ChooseRoot(sn *subnet.Subnet, g *subnet.MCGroup) (subnet.SwitchID, bool) {
	counts := make(map[subnet.SwitchID]int)
	for guid := range g.Members {
		sw, ok := attachedSwitch(sn, guid)
		if !ok {
			continue
		}
		counts[sw]++
	}
	if len(counts) == 0 {
		return 0, false
	}
	var best subnet.SwitchID
	bestCount := -1
	var bestGUID ibtype.GUID
	first := true
	for sw, n := range counts {
		node, _ := sn.Node(mustSwitch(sn, sw).NodeID)
		if n > bestCount || (n == bestCount && (first || node.GUID < bestGUID)) {
			best, bestCount, bestGUID, first = sw, n, node.GUID, false
		}
	}
	return best, true
}

func mustSwitch(sn *subnet.Subnet, id subnet.SwitchID) *subnet.Switch {
	sw, _ := sn.Switch(id)
	return sw
}

// attachedSwitch resolves the switch a member port GUID hangs off of.
func attachedSwitch(sn *subnet.Subnet, guid ibtype.GUID) (subnet.SwitchID, bool) {
	lp, ok := sn.LogicalPortByGUID(guid)
	if !ok {
		return 0, false
	}
	p, ok := sn.Physp(lp.DefaultPhysp)
	if !ok || !p.HasRemote {
		return 0, false
	}
	rp, ok := sn.Physp(p.Remote)
	if !ok {
		return 0, false
	}
	rn, ok := sn.Node(rp.NodeID)
	if !ok || rn.Type != ibtype.NodeTypeSwitch {
		return 0, false
	}
	return rn.SwitchID, true
}

type treeNode struct {
	parent   subnet.SwitchID
	hasParent bool
	children []subnet.SwitchID
}

func buildTree(adj ucast.Adjacency, root subnet.SwitchID) map[subnet.SwitchID]*treeNode {
	tree := map[subnet.SwitchID]*treeNode{root: {}}
	queue := []subnet.SwitchID{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			if _, seen := tree[e.Neighbor]; seen {
				continue
			}
			tree[e.Neighbor] = &treeNode{parent: cur, hasParent: true}
			tree[cur].children = append(tree[cur].children, e.Neighbor)
			queue = append(queue, e.Neighbor)
		}
	}
	return tree
}

// markUsed walks from every member switch back to root via parent
// pointers, marking every switch on such a path as used.
func markUsed(tree map[subnet.SwitchID]*treeNode, root subnet.SwitchID, memberSwitches map[subnet.SwitchID]bool) map[subnet.SwitchID]bool {
	used := make(map[subnet.SwitchID]bool)
	for sw := range memberSwitches {
		cur := sw
		for {
			if used[cur] {
				break
			}
			used[cur] = true
			if cur == root {
				break
			}
			n, ok := tree[cur]
			if !ok || !n.hasParent {
				break
			}
			cur = n.parent
		}
	}
	return used
}

// Engine computes the MFT for a single multicast group.
type Engine struct{}

// ComputeGroup builds g's spanning tree and writes the corresponding
// MFT row into every switch on it.
func (Engine) ComputeGroup(sn *subnet.Subnet, adj ucast.Adjacency, g *subnet.MCGroup) error {
	root, ok := ChooseRoot(sn, g)
	if !ok {
		return nil // no attachable members yet; nothing to route
	}
	tree := buildTree(adj, root)

	memberSwitches := make(map[subnet.SwitchID]bool)
	for guid := range g.Members {
		if sw, ok := attachedSwitch(sn, guid); ok {
			memberSwitches[sw] = true
		}
	}
	used := markUsed(tree, root, memberSwitches)

	for sw := range used {
		swObj, ok := sn.Switch(sw)
		if !ok {
			continue
		}
		n, ok := sn.Node(swObj.NodeID)
		if !ok {
			continue
		}
		row := make([]bool, len(n.Physps))

		for _, child := range tree[sw].children {
			if !used[child] {
				continue
			}
			for _, e := range adj[sw] {
				if e.Neighbor == child {
					setPortBit(row, n, e.ViaPhysp)
				}
			}
		}
		if tn := tree[sw]; tn != nil && tn.hasParent {
			for _, e := range adj[sw] {
				if e.Neighbor == tn.parent {
					setPortBit(row, n, e.ViaPhysp)
				}
			}
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
			if _, isMember := g.Members[rp.PortGUID]; isMember {
				setPortBit(row, n, pid)
			}
		}

		if swObj.MFT == nil {
			swObj.MFT = make(map[ibtype.LID][]bool)
		}
		swObj.MFT[g.MLID] = row
	}
	return nil
}

func setPortBit(row []bool, n *subnet.Node, pid subnet.PhyspID) {
	for i, p := range n.Physps {
		if p == pid && i < len(row) {
			row[i] = true
			return
		}
	}
}
