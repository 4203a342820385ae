// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package discovery

import (
	"encoding/binary"
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// EncodeRequest packs a directed route and an attribute modifier into an
// outgoing SMP payload. Real IBTA directed-route framing lives in the
// header, not the payload; folding it into mad.SmpBody.Payload keeps the
// pacer (which only threads Payload through) usable as the single send
// path for both directed and LID-routed requests without widening its
// contract for this module's own simulator.
func EncodeRequest(route subnet.DirectedRoute, attrModifier uint32) []byte {
	buf := make([]byte, 1+4+len(route))
	buf[0] = byte(len(route))
	binary.BigEndian.PutUint32(buf[1:5], attrModifier)
	copy(buf[5:], route)
	return buf
}

// DecodeRequest reverses EncodeRequest; used by the bundled simulator to
// recover the walker's intent.
func DecodeRequest(payload []byte) (route subnet.DirectedRoute, attrModifier uint32) {
	if len(payload) < 5 {
		return nil, 0
	}
	n := int(payload[0])
	attrModifier = binary.BigEndian.Uint32(payload[1:5])
	if len(payload) < 5+n {
		return nil, attrModifier
	}
	route = append(subnet.DirectedRoute{}, payload[5:5+n]...)
	return route, attrModifier
}

// EncodeNodeInfo/DecodeNodeInfo pack the decoded NodeInfo attribute. The
// layout is this module's own fixed-width encoding, not the IBTA wire
// format; see the package doc for why that boundary is drawn here.
func EncodeNodeInfo(a NodeInfoAttr) []byte {
	buf := make([]byte, 28)
	binary.BigEndian.PutUint16(buf[0:2], uint16(a.NodeType))
	buf[2] = a.NumPorts
	binary.BigEndian.PutUint64(buf[3:11], uint64(a.SystemImageGUID))
	binary.BigEndian.PutUint64(buf[11:19], uint64(a.NodeGUID))
	binary.BigEndian.PutUint64(buf[19:27], uint64(a.PortGUID))
	buf[27] = a.LocalPortNum
	return buf
}

func DecodeNodeInfo(payload []byte) (NodeInfoAttr, error) {
	var a NodeInfoAttr
	if len(payload) < 28 {
		return a, errShortPayload("NodeInfo", 28, len(payload))
	}
	a.NodeType = ibtype.NodeType(binary.BigEndian.Uint16(payload[0:2]))
	a.NumPorts = payload[2]
	a.SystemImageGUID = ibtype.GUID(binary.BigEndian.Uint64(payload[3:11]))
	a.NodeGUID = ibtype.GUID(binary.BigEndian.Uint64(payload[11:19]))
	a.PortGUID = ibtype.GUID(binary.BigEndian.Uint64(payload[19:27]))
	a.LocalPortNum = payload[27]
	return a, nil
}

// EncodeNodeDescription/DecodeNodeDescription carry the 64-byte node
// description string, padded/truncated like the real attribute.
func EncodeNodeDescription(desc string) []byte {
	buf := make([]byte, 64)
	copy(buf, desc)
	return buf
}

func DecodeNodeDescription(payload []byte) string {
	n := len(payload)
	for n > 0 && payload[n-1] == 0 {
		n--
	}
	return string(payload[:n])
}

func EncodePortInfo(a PortInfoAttr) []byte {
	buf := make([]byte, 34)
	buf[0] = a.PortNum
	binary.BigEndian.PutUint16(buf[1:3], uint16(a.LID))
	binary.BigEndian.PutUint16(buf[3:5], uint16(a.MasterSMLID))
	binary.BigEndian.PutUint64(buf[5:13], a.MKey)
	binary.BigEndian.PutUint64(buf[13:21], a.SubnetPrefix)
	buf[21] = a.LMC
	buf[22] = a.State
	buf[23] = a.PhysState
	buf[24] = a.LinkSpeedEnabled
	buf[25] = a.LinkSpeedActive
	buf[26] = a.MTUCap
	buf[27] = a.MTUActive
	buf[28] = a.RateCap
	buf[29] = a.RateActive
	buf[30] = a.VLCap
	return buf
}

func DecodePortInfo(payload []byte) (PortInfoAttr, error) {
	var a PortInfoAttr
	if len(payload) < 31 {
		return a, errShortPayload("PortInfo", 31, len(payload))
	}
	a.PortNum = payload[0]
	a.LID = ibtype.LID(binary.BigEndian.Uint16(payload[1:3]))
	a.MasterSMLID = ibtype.LID(binary.BigEndian.Uint16(payload[3:5]))
	a.MKey = binary.BigEndian.Uint64(payload[5:13])
	a.SubnetPrefix = binary.BigEndian.Uint64(payload[13:21])
	a.LMC = payload[21]
	a.State = payload[22]
	a.PhysState = payload[23]
	a.LinkSpeedEnabled = payload[24]
	a.LinkSpeedActive = payload[25]
	a.MTUCap = payload[26]
	a.MTUActive = payload[27]
	a.RateCap = payload[28]
	a.RateActive = payload[29]
	a.VLCap = payload[30]
	return a, nil
}

func EncodeSwitchInfo(a SwitchInfoAttr) []byte {
	buf := make([]byte, 7)
	binary.BigEndian.PutUint16(buf[0:2], a.LinearFDBCap)
	binary.BigEndian.PutUint16(buf[2:4], uint16(a.LinearFDBTop))
	binary.BigEndian.PutUint16(buf[4:6], a.MulticastFDBCap)
	buf[6] = a.LifeTimeValue
	return buf
}

func DecodeSwitchInfo(payload []byte) (SwitchInfoAttr, error) {
	var a SwitchInfoAttr
	if len(payload) < 7 {
		return a, errShortPayload("SwitchInfo", 7, len(payload))
	}
	a.LinearFDBCap = binary.BigEndian.Uint16(payload[0:2])
	a.LinearFDBTop = ibtype.LID(binary.BigEndian.Uint16(payload[2:4]))
	a.MulticastFDBCap = binary.BigEndian.Uint16(payload[4:6])
	a.LifeTimeValue = payload[6]
	return a, nil
}

func EncodePKeyTable(a PKeyTableAttr) []byte {
	buf := make([]byte, 2*len(a.Entries))
	for i, e := range a.Entries {
		binary.BigEndian.PutUint16(buf[i*2:i*2+2], uint16(e))
	}
	return buf
}

func DecodePKeyTable(block int, payload []byte) PKeyTableAttr {
	entries := make([]ibtype.PKey, len(payload)/2)
	for i := range entries {
		entries[i] = ibtype.PKey(binary.BigEndian.Uint16(payload[i*2 : i*2+2]))
	}
	return PKeyTableAttr{Block: block, Entries: entries}
}

func EncodeSLToVL(a SLToVLAttr) []byte {
	return append([]byte{}, a.Map[:]...)
}

func DecodeSLToVL(payload []byte) SLToVLAttr {
	var a SLToVLAttr
	copy(a.Map[:], payload)
	return a
}

func errShortPayload(attr string, want, got int) error {
	return fmt.Errorf("discovery: %s payload too short: want %d bytes, got %d", attr, want, got)
}
