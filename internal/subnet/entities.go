// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package subnet

import (
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/osmerr"
)

// GetOrCreateNode looks up a node by GUID, creating it if absent. The
// caller must hold the writer lock. A guid already in the table returns
// the existing node (created=false) with its DiscoveryCount incremented;
// no duplicate-GUID error is reported here (GetOrCreatePhysp reports
// duplicate port GUIDs).
func (s *Subnet) GetOrCreateNode(guid ibtype.GUID) (*Node, bool, error) {
	if guid.IsZero() {
		return nil, false, osmerr.New(osmerr.KindValidation, "zero node GUID")
	}
	if id, ok := s.guidToNode[guid]; ok {
		n := s.nodes[id]
		n.DiscoveryCount++
		return n, false, nil
	}
	s.nextNodeID++
	n := &Node{ID: s.nextNodeID, GUID: guid, DiscoveryCount: 1}
	s.nodes[n.ID] = n
	s.guidToNode[guid] = n.ID
	return n, true, nil
}

func (s *Subnet) Node(id NodeID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

func (s *Subnet) NodeByGUID(guid ibtype.GUID) (*Node, bool) {
	id, ok := s.guidToNode[guid]
	if !ok {
		return nil, false
	}
	return s.nodes[id], true
}

func (s *Subnet) Nodes() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// GetOrCreatePhysp creates a physical port under node n if it does not
// already exist for that port number, binding its port GUID. A port GUID
// seen bound to a different physp already is a duplicate-GUID fault.
func (s *Subnet) GetOrCreatePhysp(n *Node, portNum uint8, portGUID ibtype.GUID) (*Physp, bool, error) {
	for _, pid := range n.Physps {
		if p := s.physps[pid]; p.PortNum == portNum {
			if !portGUID.IsZero() {
				if existing, ok := s.guidToPhysp[portGUID]; ok && existing != pid {
					return nil, false, osmerr.New(osmerr.KindDuplicateGUID,
						fmt.Sprintf("port GUID %s already bound to a different physp", portGUID)).
						With("guid", portGUID)
				}
				s.guidToPhysp[portGUID] = pid
				p.PortGUID = portGUID
			}
			p.DiscoveryCount++
			return p, false, nil
		}
	}
	s.nextPhyspID++
	p := &Physp{ID: s.nextPhyspID, NodeID: n.ID, PortNum: portNum, PortGUID: portGUID, DiscoveryCount: 1}
	s.physps[p.ID] = p
	n.Physps = append(n.Physps, p.ID)
	if !portGUID.IsZero() {
		s.guidToPhysp[portGUID] = p.ID
	}
	return p, true, nil
}

func (s *Subnet) Physp(id PhyspID) (*Physp, bool) {
	p, ok := s.physps[id]
	return p, ok
}

func (s *Subnet) PhyspByGUID(guid ibtype.GUID) (*Physp, bool) {
	id, ok := s.guidToPhysp[guid]
	if !ok {
		return nil, false
	}
	return s.physps[id], true
}

func (s *Subnet) Physps() []*Physp {
	out := make([]*Physp, 0, len(s.physps))
	for _, p := range s.physps {
		out = append(out, p)
	}
	return out
}

// GetOrCreateLogicalPort returns the logical port keyed by portGUID,
// creating it (and marking it IsNew) if it did not already exist.
func (s *Subnet) GetOrCreateLogicalPort(portGUID ibtype.GUID, defaultPhysp PhyspID) (*LogicalPort, bool) {
	if id, ok := s.guidToLPort[portGUID]; ok {
		return s.lports[id], false
	}
	s.nextLPortID++
	lp := &LogicalPort{
		ID:           s.nextLPortID,
		PortGUID:     portGUID,
		DefaultPhysp: defaultPhysp,
		Memberships:  make(map[ibtype.MGID]MemberState),
		IsNew:        true,
	}
	s.lports[lp.ID] = lp
	s.guidToLPort[portGUID] = lp.ID
	return lp, true
}

func (s *Subnet) LogicalPortByGUID(guid ibtype.GUID) (*LogicalPort, bool) {
	id, ok := s.guidToLPort[guid]
	if !ok {
		return nil, false
	}
	return s.lports[id], true
}

func (s *Subnet) LogicalPorts() []*LogicalPort {
	out := make([]*LogicalPort, 0, len(s.lports))
	for _, lp := range s.lports {
		out = append(out, lp)
	}
	return out
}

// GetOrCreateSwitch attaches (or returns the existing) Switch record for
// node n, which must have Type == NodeTypeSwitch.
func (s *Subnet) GetOrCreateSwitch(n *Node) *Switch {
	if n.SwitchID != 0 {
		return s.switches[n.SwitchID]
	}
	s.nextSwitchID++
	sw := &Switch{
		ID:     s.nextSwitchID,
		NodeID: n.ID,
		MFT:    make(map[ibtype.LID][]bool),
		MinHop: make(map[ibtype.LID][]int),
	}
	s.switches[sw.ID] = sw
	n.SwitchID = sw.ID
	return sw
}

func (s *Subnet) Switch(id SwitchID) (*Switch, bool) {
	sw, ok := s.switches[id]
	return sw, ok
}

func (s *Subnet) Switches() []*Switch {
	out := make([]*Switch, 0, len(s.switches))
	for _, sw := range s.switches {
		out = append(out, sw)
	}
	return out
}

// LinkPhysps sets the symmetric remote link between a and b, enforcing
// A.remote=B implies B.remote=A with matching port numbers. Returns
// true if a and b were already linked to each other.
func (s *Subnet) LinkPhysps(a, b *Physp) bool {
	if a.HasRemote && a.Remote == b.ID && b.HasRemote && b.Remote == a.ID {
		return true
	}
	a.Remote, a.HasRemote = b.ID, true
	b.Remote, b.HasRemote = a.ID, true
	return false
}

// UnlinkPhysp clears p's remote link (and the remote's link back to p,
// if still present), used by the drop manager when an endpoint vanishes.
func (s *Subnet) UnlinkPhysp(p *Physp) {
	if !p.HasRemote {
		return
	}
	if rp, ok := s.physps[p.Remote]; ok && rp.Remote == p.ID {
		rp.HasRemote = false
		rp.Remote = 0
	}
	p.HasRemote = false
	p.Remote = 0
}

// DeleteLogicalPort removes lp, used by the drop manager once its physp
// has already been unlinked.
func (s *Subnet) DeleteLogicalPort(id LogicalPortID) {
	lp, ok := s.lports[id]
	if !ok {
		return
	}
	delete(s.guidToLPort, lp.PortGUID)
	delete(s.lports, id)
}

// DeletePhysp removes p from the arena after unlinking its remote, used
// by the drop manager on a stale node/physp.
func (s *Subnet) DeletePhysp(id PhyspID) {
	p, ok := s.physps[id]
	if !ok {
		return
	}
	s.UnlinkPhysp(p)
	if !p.PortGUID.IsZero() {
		delete(s.guidToPhysp, p.PortGUID)
	}
	delete(s.physps, id)
}

// DeleteNode removes n and every physp it owns, used by the drop manager
// once n's entire port set has been found stale.
func (s *Subnet) DeleteNode(id NodeID) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	for _, pid := range n.Physps {
		s.DeletePhysp(pid)
	}
	if n.SwitchID != 0 {
		delete(s.switches, n.SwitchID)
	}
	delete(s.guidToNode, n.GUID)
	delete(s.nodes, id)
}

// Partition accessors.

func (s *Subnet) UpsertPartition(p *Partition) { s.partitions[p.Name] = p }
func (s *Subnet) Partition(name string) (*Partition, bool) {
	p, ok := s.partitions[name]
	return p, ok
}
func (s *Subnet) Partitions() []*Partition {
	out := make([]*Partition, 0, len(s.partitions))
	for _, p := range s.partitions {
		out = append(out, p)
	}
	return out
}

// PKeysForGUID returns every partition P_Key that portGUID is a member of.
func (s *Subnet) PKeysForGUID(guid ibtype.GUID) []ibtype.PKey {
	var out []ibtype.PKey
	for _, p := range s.partitions {
		if _, ok := p.Members[guid]; ok {
			out = append(out, p.PKey)
		}
	}
	return out
}

// SharesPKey reports whether a and b have at least one partition P_Key
// value (ignoring the membership bit) in common.
func (s *Subnet) SharesPKey(a, b ibtype.GUID) bool {
	pa := s.PKeysForGUID(a)
	pb := s.PKeysForGUID(b)
	for _, x := range pa {
		for _, y := range pb {
			if x.SharesPartition(y) {
				return true
			}
		}
	}
	return false
}

// Multicast group accessors.

func (s *Subnet) UpsertMCGroup(g *MCGroup) {
	s.mcByMGID[g.MGID] = g
	s.mcByMLID[g.MLID] = g
}

func (s *Subnet) MCGroupByMGID(mgid ibtype.MGID) (*MCGroup, bool) {
	g, ok := s.mcByMGID[mgid]
	return g, ok
}

func (s *Subnet) MCGroupByMLID(mlid ibtype.LID) (*MCGroup, bool) {
	g, ok := s.mcByMLID[mlid]
	return g, ok
}

func (s *Subnet) MCGroups() []*MCGroup {
	out := make([]*MCGroup, 0, len(s.mcByMGID))
	for _, g := range s.mcByMGID {
		out = append(out, g)
	}
	return out
}

func (s *Subnet) DeleteMCGroup(g *MCGroup) {
	delete(s.mcByMGID, g.MGID)
	delete(s.mcByMLID, g.MLID)
}

// RemoteSM accessors.

func (s *Subnet) UpsertRemoteSM(r *RemoteSM) { s.remoteSMs[r.PortGUID] = r }
func (s *Subnet) RemoteSM(guid ibtype.GUID) (*RemoteSM, bool) {
	r, ok := s.remoteSMs[guid]
	return r, ok
}
func (s *Subnet) RemoteSMs() []*RemoteSM {
	out := make([]*RemoteSM, 0, len(s.remoteSMs))
	for _, r := range s.remoteSMs {
		out = append(out, r)
	}
	return out
}
