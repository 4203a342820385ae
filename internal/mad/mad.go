// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package mad defines the management-datagram wire shapes consumed and
// produced by every component upstream of the transport: the common MAD
// header, the method/status enums, and the two body shapes (Smp for
// Subnet Management, Sa for Subnet Administration/RMPP).
package mad

// Method is the MAD method byte.
type Method uint8

const (
	MethodGet        Method = 0x01
	MethodSet        Method = 0x02
	MethodGetResp    Method = 0x81
	MethodGetTable   Method = 0x12
	MethodGetTableResp Method = 0x92
	MethodReport     Method = 0x06
	MethodReportResp Method = 0x86
	MethodTrap       Method = 0x05
	MethodTrapRepress Method = 0x07
	MethodDelete     Method = 0x15
	MethodDeleteResp Method = 0x95
)

// ManagementClass discriminates the MAD class carried in CommonHeader.
type ManagementClass uint8

const (
	ClassSubnet      ManagementClass = 0x01
	ClassSubnetAdmin ManagementClass = 0x03
	ClassPerf        ManagementClass = 0x04
)

// Status is the 16-bit MAD status field; nonzero values are SA-specific
// when Class == ClassSubnetAdmin.
type Status uint16

const (
	StatusOK               Status = 0x0000
	StatusNoRecords        Status = 0x0106
	StatusTooManyRecords   Status = 0x0107
	StatusReqInvalid       Status = 0x0108
	StatusInsufficientResources Status = 0x0109
	StatusInvalidGID       Status = 0x010A
	StatusInsufficientComponents Status = 0x010B
	StatusUnsupportedMethodAttr Status = 0x0D04
	StatusTimeout          Status = 0xffff // internal sentinel, never on the wire
)

// AttrID is the 16-bit attribute id.
type AttrID uint16

const (
	AttrNodeDescription AttrID = 0x0010
	AttrNodeInfo        AttrID = 0x0011
	AttrSwitchInfo      AttrID = 0x0012
	AttrPortInfo        AttrID = 0x0015
	AttrPKeyTable       AttrID = 0x0016
	AttrSLToVLTable     AttrID = 0x0017
	AttrVLArbTable      AttrID = 0x0018
	AttrLinearFT        AttrID = 0x0019
	AttrMulticastFT     AttrID = 0x001b
	AttrSMInfo          AttrID = 0x0020
	AttrNotice          AttrID = 0x0002
	AttrInformInfo      AttrID = 0x0022

	AttrNodeRecord      AttrID = 0x0011 | 0x0100
	AttrPortInfoRecord  AttrID = 0x0015 | 0x0100
	AttrPathRecord      AttrID = 0x0035
	AttrMCMemberRecord  AttrID = 0x0038
	AttrServiceRecord   AttrID = 0x0031
	AttrInformInfoRecord AttrID = 0x00f3
)

// CommonHeader is the portion of the MAD present on every management
// datagram.
type CommonHeader struct {
	BaseVersion     uint8
	Class           ManagementClass
	ClassVersion    uint8
	Method          Method
	Status          Status
	TransactionID   uint64
	AttrID          AttrID
	AttrModifier    uint32
}

// Frame is one outer MAD: a common header plus either an Smp or Sa body,
// per the design note "SMP vs SA datagrams".
type Frame struct {
	Header CommonHeader
	Smp    *SmpBody
	Sa     *SaBody
}

// SmpBody carries a single ≤256-byte SMP attribute payload plus the
// directed-route fields used before LIDs are assigned.
type SmpBody struct {
	DirRoute     []uint8
	DestLID      uint16
	SourceLID    uint16
	MKey         uint64
	Payload      []byte
}

// RMPPFlags mirror the RMPP header flags used to page large SA responses.
type RMPPFlags uint8

const (
	RMPPFlagActive RMPPFlags = 1 << iota
	RMPPFlagFirst
	RMPPFlagLast
)

// SaBody carries an SA attribute payload, optionally RMPP-paged.
type SaBody struct {
	SMKey         uint64
	ComponentMask uint64
	RMPP          RMPPFlags
	SegmentNum    uint32
	Payload       []byte
}
