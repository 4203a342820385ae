// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package discovery

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/osmerr"
	"github.com/ibfabric/osmd/internal/subnet"
)

// maxLinkInferenceRetries bounds how many times InferLink will retry a
// link whose two ends disagree, covering the cable-move/duplicate-GUID
// transient where a second NodeInfo sweep on the same wire briefly
// reports a stale remote before settling.
const maxLinkInferenceRetries = 5

// Receivers applies decoded SMP attributes to the subnet model. The
// caller must hold the subnet writer lock around each call (the passive
// reader/writer lock Subnet.Lock documents).
type Receivers struct {
	Subnet *subnet.Subnet
	Log    *logging.Logger

	// retries tracks, per ordered physp-id pair, how many mismatched
	// link-inference attempts have been made so far this discovery run.
	retries map[[2]subnet.PhyspID]int
}

func NewReceivers(sn *subnet.Subnet, log *logging.Logger) *Receivers {
	return &Receivers{Subnet: sn, Log: log, retries: make(map[[2]subnet.PhyspID]int)}
}

// BeginSweep clears link-inference retry bookkeeping for a new discovery
// pass.
func (r *Receivers) BeginSweep() {
	r.retries = make(map[[2]subnet.PhyspID]int)
}

// NodeInfo creates or refreshes the node and its local physp from a
// NodeInfo response received via the directed route used to reach it.
func (r *Receivers) NodeInfo(route subnet.DirectedRoute, attr NodeInfoAttr) (*subnet.Node, *subnet.Physp, error) {
	n, _, err := r.Subnet.GetOrCreateNode(attr.NodeGUID)
	if err != nil {
		return nil, nil, err
	}
	n.Type = attr.NodeType
	n.NumPorts = attr.NumPorts
	n.SystemImageGUID = attr.SystemImageGUID

	p, _, err := r.Subnet.GetOrCreatePhysp(n, attr.LocalPortNum, attr.PortGUID)
	if err != nil {
		return n, nil, err
	}
	p.Path = route

	if n.Type == ibtype.NodeTypeSwitch {
		r.Subnet.GetOrCreateSwitch(n)
	}
	return n, p, nil
}

// NodeDescription records the human-readable node description.
func (r *Receivers) NodeDescription(n *subnet.Node, desc string) {
	n.Description = desc
}

// PortInfo applies a decoded PortInfo response to p, and — for CA/router
// ports with a unicast LID — registers the corresponding logical port.
func (r *Receivers) PortInfo(n *subnet.Node, attr PortInfoAttr) (*subnet.Physp, error) {
	p, _, err := r.Subnet.GetOrCreatePhysp(n, attr.PortNum, 0)
	if err != nil {
		return nil, err
	}
	p.LID = attr.LID
	p.LMC = attr.LMC
	p.PortState = subnet.PortState(attr.State)
	p.PhysState = subnet.PhysPortState(attr.PhysState)
	p.MTUCap, p.MTUActive = attr.MTUCap, attr.MTUActive
	p.RateCap, p.RateActive = attr.RateCap, attr.RateActive
	p.LinkSpeedEnabled, p.LinkSpeedActive = attr.LinkSpeedEnabled, attr.LinkSpeedActive
	p.VLCap = attr.VLCap
	p.MKey = attr.MKey
	p.SubnetPrefix = attr.SubnetPrefix

	if n.Type != ibtype.NodeTypeSwitch && attr.LID.IsUnicast() {
		r.Subnet.GetOrCreateLogicalPort(p.PortGUID, p.ID)
	}
	return p, nil
}

// SwitchInfo applies a decoded SwitchInfo response to sw.
func (r *Receivers) SwitchInfo(sw *subnet.Switch, attr SwitchInfoAttr) {
	sw.MaxLID = attr.LinearFDBTop
	sw.MaxMCastFDBTop = attr.MulticastFDBTop
}

// PKeyTable installs one 32-entry P_Key table block on p.
func (r *Receivers) PKeyTable(p *subnet.Physp, attr PKeyTableAttr) {
	need := (attr.Block + 1) * 32
	if len(p.PKeyTable) < need {
		grown := make([]ibtype.PKey, need)
		copy(grown, p.PKeyTable)
		p.PKeyTable = grown
	}
	copy(p.PKeyTable[attr.Block*32:], attr.Entries)
}

// SLToVL installs an SL-to-VL mapping table on p.
func (r *Receivers) SLToVL(p *subnet.Physp, attr SLToVLAttr) {
	p.SL2VL = attr.Map
}

// VLArb installs a VL arbitration table (high or low priority) on p.
func (r *Receivers) VLArb(p *subnet.Physp, attr VLArbAttr) {
	entries := make([]subnet.VLArbEntry, len(attr.Entries))
	for i, e := range attr.Entries {
		entries[i] = subnet.VLArbEntry{VL: e.VL, Weight: e.Weight}
	}
	if attr.High {
		p.VLArbHigh = entries
	} else {
		p.VLArbLow = entries
	}
}

// InferLink links a and b if their mutually-reported remote port GUIDs
// agree. On a mismatch it retries (the caller re-discovers and calls
// InferLink again) up to maxLinkInferenceRetries times before giving up
// and reporting a routing fault, covering the transient where a cable
// move or a stale cached NodeInfo briefly disagrees with the other end.
func (r *Receivers) InferLink(a, b *subnet.Physp, aReportsRemote, bReportsRemote ibtype.GUID) (bool, error) {
	if aReportsRemote != b.PortGUID || bReportsRemote != a.PortGUID {
		key := linkKey(a.ID, b.ID)
		r.retries[key]++
		if r.retries[key] > maxLinkInferenceRetries {
			return false, osmerr.New(osmerr.KindRoutingFailed, "link inference mismatch exceeded retry budget").
				With("physp_a", a.ID).With("physp_b", b.ID)
		}
		return false, nil
	}
	delete(r.retries, linkKey(a.ID, b.ID))
	already := r.Subnet.LinkPhysps(a, b)
	return !already, nil
}

func linkKey(a, b subnet.PhyspID) [2]subnet.PhyspID {
	if a < b {
		return [2]subnet.PhyspID{a, b}
	}
	return [2]subnet.PhyspID{b, a}
}
