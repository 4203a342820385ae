// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package subnet holds the in-memory topology graph and SA record tables
// that every other component reads or mutates: nodes, physical/logical
// ports, switches, partitions, multicast groups, and SA records.
//
// Entities are stored in arenas keyed by small integer ids rather than
// linked by pointer, per the "graph ownership" design note: relationships
// (remote-port links, node-to-switch, logical-port-to-physp) are id
// references, trivially updated without lifetime gymnastics.
package subnet

import (
	"sync"

	"github.com/ibfabric/osmd/internal/ibtype"
)

type (
	NodeID        int
	PhyspID       int
	LogicalPortID int
	SwitchID      int
)

// DirectedRoute is a hop-by-hop output-port path from the SM used to
// reach an entity before LIDs exist (spec GLOSSARY "Directed route").
type DirectedRoute []uint8

// Node is a device: channel adapter, switch, or router.
type Node struct {
	ID             NodeID
	GUID           ibtype.GUID
	SystemImageGUID ibtype.GUID
	Type           ibtype.NodeType
	NumPorts       uint8
	Description    string
	Physps         []PhyspID
	SwitchID       SwitchID // zero value (no switch) unless Type == switch
	DiscoveryCount int
}

// Physp is one hardware port.
type Physp struct {
	ID       PhyspID
	NodeID   NodeID
	PortNum  uint8
	PortGUID ibtype.GUID

	LID  ibtype.LID
	LMC  uint8
	PortState      PortState
	PhysState      PhysPortState
	MTUCap         uint8
	MTUActive      uint8
	RateCap        uint8
	RateActive     uint8
	MKey           uint64
	SubnetPrefix   uint64
	VLCap          uint8
	LinkSpeedEnabled uint8
	LinkSpeedActive  uint8

	PKeyTable []ibtype.PKey
	SL2VL     [16]uint8 // SL -> VL
	VLArbHigh []VLArbEntry
	VLArbLow  []VLArbEntry

	Path DirectedRoute

	Remote   PhyspID // 0 == none
	HasRemote bool

	DiscoveryCount int
}

// PortState mirrors the IBTA port-state enumeration.
type PortState uint8

const (
	PortStateNoChange PortState = iota
	PortStateDown
	PortStateInit
	PortStateArmed
	PortStateActive
)

// PhysPortState mirrors the IBTA physical port-state enumeration.
type PhysPortState uint8

const (
	PhysStateNoChange PhysPortState = iota
	PhysStateSleep
	PhysStatePolling
	PhysStateDisabled
	PhysStatePortConfigTraining
	PhysStateLinkUp
	PhysStateLinkErrorRecovery
	PhysStatePhyTest
)

// VLArbEntry is one (VL, weight) pair in a VL-arbitration table.
type VLArbEntry struct {
	VL     uint8
	Weight uint8
}

// LogicalPort is the externally addressable port object keyed by port
// GUID; for switches it represents port 0 (the management port).
type LogicalPort struct {
	ID          LogicalPortID
	PortGUID    ibtype.GUID
	DefaultPhysp PhyspID
	Memberships map[ibtype.MGID]MemberState
	IsNew       bool
}

// MemberState is a port's multicast-group membership record.
type MemberState struct {
	JoinState JoinState
	ProxyJoin bool
}

// JoinState is the IBTA multicast JoinState bitmask.
type JoinState uint8

const (
	JoinStateFull JoinState = 1 << iota
	JoinStateNonMember
	JoinStateSendOnlyNonMember
)

// Switch adds per-switch routing/forwarding state to a Node.
type Switch struct {
	ID       SwitchID
	NodeID   NodeID
	MaxLID   ibtype.LID // LinearFDBTop
	LFT      []PhyspID  // indexed by destination LID; 0 == no path
	MFT      map[ibtype.LID][]bool
	MaxMCastFDBTop ibtype.LID

	// MinHop[dstLID][i] = hop count via the port at position i of the
	// node's Physps, or -1 if unreachable.
	MinHop map[ibtype.LID][]int

	Rank           int
	DiscoveryCount int
}

// Partition is a P_Key plus the set of member ports that must appear in
// the partition's P_Key tables.
type Partition struct {
	Name      string
	PKey      ibtype.PKey
	DefaultSL uint8
	IPoIB     bool
	Members   map[ibtype.GUID]bool // port GUID -> full-member
}

// MCGroup is a multicast group.
type MCGroup struct {
	MGID      ibtype.MGID
	MLID      ibtype.LID
	PKey      ibtype.PKey
	MTU       uint8
	Rate      uint8
	SL        uint8
	HopLimit  uint8
	FlowLabel uint32
	Scope     uint8
	WellKnown bool
	Members   map[ibtype.GUID]MemberState // port GUID -> state
}

// RemoteSM is one discovered peer SM.
type RemoteSM struct {
	PortGUID    ibtype.GUID
	Priority    uint8
	State       SMState
	ActCount    uint32
	LastSeen    int64 // unix nanos, stamped by caller
}

// SMState mirrors the subnet manager's full activity state set.
type SMState int

const (
	SMStateNoState SMState = iota
	SMStateDiscovering
	SMStateStandby
	SMStateNotActive
	SMStateMaster
)

func (s SMState) String() string {
	switch s {
	case SMStateDiscovering:
		return "discovering"
	case SMStateStandby:
		return "standby"
	case SMStateNotActive:
		return "not_active"
	case SMStateMaster:
		return "master"
	default:
		return "no_state"
	}
}

// Subnet is the single subnet-wide mutable state: the topology graph
// plus the SA tables, protected by a passive reader/writer lock. All
// mutation happens through the methods on *Subnet while the caller
// holds the writer lock (Lock/Unlock); queries take RLock/RUnlock.
type Subnet struct {
	mu sync.RWMutex

	nodes   map[NodeID]*Node
	physps  map[PhyspID]*Physp
	lports  map[LogicalPortID]*LogicalPort
	switches map[SwitchID]*Switch

	guidToNode   map[ibtype.GUID]NodeID
	guidToPhysp  map[ibtype.GUID]PhyspID // port GUID -> physp
	guidToLPort  map[ibtype.GUID]LogicalPortID

	partitions map[string]*Partition
	mcByMGID   map[ibtype.MGID]*MCGroup
	mcByMLID   map[ibtype.LID]*MCGroup

	services map[string]*ServiceRecord // keyed by RID string
	informs  map[string]*InformRecord  // keyed by RID string

	remoteSMs map[ibtype.GUID]*RemoteSM

	nextNodeID   NodeID
	nextPhyspID  PhyspID
	nextLPortID  LogicalPortID
	nextSwitchID SwitchID

	SubnetPrefix uint64
	MasterSMLID  ibtype.LID
}

// New returns an empty subnet model.
func New(subnetPrefix uint64) *Subnet {
	return &Subnet{
		nodes:       make(map[NodeID]*Node),
		physps:      make(map[PhyspID]*Physp),
		lports:      make(map[LogicalPortID]*LogicalPort),
		switches:    make(map[SwitchID]*Switch),
		guidToNode:  make(map[ibtype.GUID]NodeID),
		guidToPhysp: make(map[ibtype.GUID]PhyspID),
		guidToLPort: make(map[ibtype.GUID]LogicalPortID),
		partitions:  make(map[string]*Partition),
		mcByMGID:    make(map[ibtype.MGID]*MCGroup),
		mcByMLID:    make(map[ibtype.LID]*MCGroup),
		services:    make(map[string]*ServiceRecord),
		informs:     make(map[string]*InformRecord),
		remoteSMs:   make(map[ibtype.GUID]*RemoteSM),
		SubnetPrefix: subnetPrefix,
	}
}

// Lock / Unlock / RLock / RUnlock implement the passive reader/writer
// lock: the state manager and discovery receivers hold the writer lock
// for the duration of one message handler; SA queries hold the reader
// lock.
func (s *Subnet) Lock()    { s.mu.Lock() }
func (s *Subnet) Unlock()  { s.mu.Unlock() }
func (s *Subnet) RLock()   { s.mu.RLock() }
func (s *Subnet) RUnlock() { s.mu.RUnlock() }
