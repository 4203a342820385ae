// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package discovery turns decoded SMP attribute payloads into subnet
// model updates: NodeInfo/NodeDescription/PortInfo/SwitchInfo/
// P_Key-table/SL-to-VL/VL-arbitration receivers, plus link inference
// between two freshly-discovered physps.
//
// Wire encode/decode of the raw MAD payload bytes is kept as a thin,
// separately testable boundary (codec.go); the receivers here operate on
// the decoded Go attribute structs so the control-plane logic --- the
// part spec.md actually specifies --- is exercised directly by tests
// without needing a byte-for-byte IBTA-layout encoder.
package discovery

import "github.com/ibfabric/osmd/internal/ibtype"

// NodeInfoAttr is the decoded NodeInfo SMP attribute.
type NodeInfoAttr struct {
	NodeType        ibtype.NodeType
	NumPorts        uint8
	SystemImageGUID ibtype.GUID
	NodeGUID        ibtype.GUID
	PortGUID        ibtype.GUID
	LocalPortNum    uint8
	VendorID        uint32
	DeviceID        uint16
	Revision        uint32
}

// PortInfoAttr is the decoded PortInfo SMP attribute.
type PortInfoAttr struct {
	PortNum          uint8
	LID              ibtype.LID
	MasterSMLID      ibtype.LID
	MKey             uint64
	SubnetPrefix     uint64
	LMC              uint8
	State            uint8 // subnet.PortState value
	PhysState        uint8 // subnet.PhysPortState value
	LinkSpeedEnabled uint8
	LinkSpeedActive  uint8
	MTUCap           uint8
	MTUActive        uint8
	RateCap          uint8
	RateActive       uint8
	VLCap            uint8
}

// SwitchInfoAttr is the decoded SwitchInfo SMP attribute.
type SwitchInfoAttr struct {
	LinearFDBCap    uint16
	LinearFDBTop    ibtype.LID
	MulticastFDBCap uint16
	MulticastFDBTop ibtype.LID
	LifeTimeValue   uint8
}

// PKeyTableAttr is one 32-entry P_Key table block.
type PKeyTableAttr struct {
	Block   int
	Entries []ibtype.PKey
}

// SLToVLAttr is a decoded SL-to-VL mapping table (one per port pair).
type SLToVLAttr struct {
	Map [16]uint8
}

// VLArbAttr is one VL arbitration table (high or low priority).
type VLArbAttr struct {
	High    bool
	Entries []struct {
		VL     uint8
		Weight uint8
	}
}
