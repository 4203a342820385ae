// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sa implements the Subnet Administration query/subscription
// plane: component-mask matching (with the range/operator exceptions
// IBTA defines for LID ranges and MTU/rate/packet-lifetime), P_Key
// scoping, RMPP paging, and the record-specific Get/GetTable/Set/Delete
// semantics, including the MCMemberRecord join/leave state machine from
// osm_sa_mcmember_record.c.
package sa

import "github.com/ibfabric/osmd/internal/ibtype"

// ComponentMask selects which fields of a query record are significant,
// one bit per field, assigned by each record type's field order (IBTA
// Vol 1 Table "SA ComponentMask").
type ComponentMask uint64

func (m ComponentMask) has(field uint) bool { return m&ComponentMask(field) != 0 }

// NodeRecord mirrors the SA NodeRecord attribute (spec GLOSSARY).
type NodeRecord struct {
	LID             ibtype.LID
	BaseVersion     uint8
	NodeType        ibtype.NodeType
	NumPorts        uint8
	SystemImageGUID ibtype.GUID
	NodeGUID        ibtype.GUID
	PortGUID        ibtype.GUID
	NodeDescription string
}

const (
	NodeRecLID ComponentMask = 1 << iota
	NodeRecBaseVersion
	NodeRecNodeType
	NodeRecNumPorts
	NodeRecSystemImageGUID
	NodeRecNodeGUID
	NodeRecPortGUID
	NodeRecNodeDescription
)

// PortInfoRecord mirrors the SA PortInfoRecord attribute.
type PortInfoRecord struct {
	LID      ibtype.LID
	PortNum  uint8
	LMC      uint8
	MTUCap   uint8
	RateCap  uint8
	State    uint8
}

const (
	PIRecLID ComponentMask = 1 << iota
	PIRecPortNum
	PIRecLMC
	PIRecMTUCap
	PIRecRateCap
	PIRecState
)

// Selector encodes the 2-bit comparison operator IBTA uses on the top
// bits of the MTU/Rate/PacketLifeTime fields in PathRecord/MCMemberRecord
// queries.
type Selector uint8

const (
	SelectorEqual Selector = iota
	SelectorGreaterEqual
	SelectorLessEqual
	SelectorLargestAvailable
)

// PathRecord mirrors the SA PathRecord attribute.
type PathRecord struct {
	DGID, SGID                [16]byte
	DLID, SLID                ibtype.LID
	RawTraffic                bool
	FlowLabel                 uint32
	HopLimit                  uint8
	TClass                    uint8
	Reversible                bool
	NumbPath                  uint8
	PKey                      ibtype.PKey
	QosClass                  uint16
	SL                        uint8
	MTUSelector               Selector
	MTU                       uint8
	RateSelector              Selector
	Rate                      uint8
	PacketLifeTimeSelector    Selector
	PacketLifeTime            uint8
	Preference                uint8
}

const (
	PRecDGID ComponentMask = 1 << iota
	PRecSGID
	PRecDLID
	PRecSLID
	PRecPKey
	PRecSL
	PRecMTU
	PRecRate
	PRecPacketLifeTime
	PRecReversible
)

// MCMemberRecord mirrors the SA MCMemberRecord attribute.
type MCMemberRecord struct {
	MGID           ibtype.MGID
	PortGID        [16]byte
	QKey           uint32
	MLID           ibtype.LID
	MTUSelector    Selector
	MTU            uint8
	TClass         uint8
	PKey           ibtype.PKey
	RateSelector   Selector
	Rate           uint8
	PacketLifeTimeSelector Selector
	PacketLifeTime uint8
	SL             uint8
	FlowLabel      uint32
	HopLimit       uint8
	Scope          uint8
	JoinState      uint8
	ProxyJoin      bool
}

const (
	MCRecMGID ComponentMask = 1 << iota
	MCRecPortGID
	MCRecQKey
	MCRecMLID
	MCRecMTU
	MCRecPKey
	MCRecRate
	MCRecSL
	MCRecJoinState
	MCRecScope
)

// PortGUIDFromGID extracts the low 64 bits (interface id) of a 16-byte
// GID, which is the port GUID on any GID this subnet originates.
func PortGUIDFromGID(gid [16]byte) ibtype.GUID {
	var v uint64
	for i := 8; i < 16; i++ {
		v = v<<8 | uint64(gid[i])
	}
	return ibtype.GUID(v)
}
