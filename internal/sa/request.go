// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"context"
	"fmt"
	"time"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/subnet"
)

// requestMethod distinguishes Set from Delete on the wire envelope
// below; it is separate from mad.Method since GetTable/Get requests
// don't carry a full record and are answered by Engine/MCMember.Get
// directly rather than through RequestHandler.
type requestMethod uint8

const (
	requestSet requestMethod = iota + 1
	requestDelete
)

// encodeMCMemberRequest packs a Set/Delete MCMemberRecord request into
// an SA attribute payload. Like the discovery and trap packages, this
// is a simplified fixed-layout codec rather than a byte-exact RMPP/SA
// wire format.
func encodeMCMemberRequest(method requestMethod, rec MCMemberRecord) []byte {
	b := make([]byte, 57)
	i := 0
	b[i] = byte(method)
	i++
	copy(b[i:i+16], rec.MGID[:])
	i += 16
	copy(b[i:i+16], rec.PortGID[:])
	i += 16
	putU32(b[i:], rec.QKey)
	i += 4
	putU16(b[i:], uint16(rec.MLID))
	i += 2
	b[i] = byte(rec.MTUSelector)
	i++
	b[i] = rec.MTU
	i++
	b[i] = rec.TClass
	i++
	putU16(b[i:], uint16(rec.PKey))
	i += 2
	b[i] = byte(rec.RateSelector)
	i++
	b[i] = rec.Rate
	i++
	b[i] = byte(rec.PacketLifeTimeSelector)
	i++
	b[i] = rec.PacketLifeTime
	i++
	b[i] = rec.SL
	i++
	putU32(b[i:], rec.FlowLabel)
	i += 4
	b[i] = rec.HopLimit
	i++
	b[i] = rec.Scope
	i++
	b[i] = rec.JoinState
	i++
	if rec.ProxyJoin {
		b[i] = 1
	}
	return b
}

// decodeMCMemberRequest reverses encodeMCMemberRequest.
func decodeMCMemberRequest(payload []byte) (requestMethod, MCMemberRecord, error) {
	var rec MCMemberRecord
	const want = 57
	if len(payload) < want {
		return 0, rec, fmt.Errorf("sa: mcmember request payload too short: want %d bytes, got %d", want, len(payload))
	}
	i := 0
	method := requestMethod(payload[i])
	i++
	copy(rec.MGID[:], payload[i:i+16])
	i += 16
	copy(rec.PortGID[:], payload[i:i+16])
	i += 16
	rec.QKey = getU32(payload[i:])
	i += 4
	rec.MLID = ibtype.LID(getU16(payload[i:]))
	i += 2
	rec.MTUSelector = Selector(payload[i])
	i++
	rec.MTU = payload[i]
	i++
	rec.TClass = payload[i]
	i++
	rec.PKey = ibtype.PKey(getU16(payload[i:]))
	i += 2
	rec.RateSelector = Selector(payload[i])
	i++
	rec.Rate = payload[i]
	i++
	rec.PacketLifeTimeSelector = Selector(payload[i])
	i++
	rec.PacketLifeTime = payload[i]
	i++
	rec.SL = payload[i]
	i++
	rec.FlowLabel = getU32(payload[i:])
	i += 4
	rec.HopLimit = payload[i]
	i++
	rec.Scope = payload[i]
	i++
	rec.JoinState = payload[i]
	i++
	rec.ProxyJoin = payload[i] != 0
	return method, rec, nil
}

func putU16(b []byte, v uint16) { b[0], b[1] = byte(v>>8), byte(v) }
func getU16(b []byte) uint16    { return uint16(b[0])<<8 | uint16(b[1]) }

func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}
func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putU64(b []byte, v uint64) {
	putU32(b, uint32(v>>32))
	putU32(b[4:], uint32(v))
}
func getU64(b []byte) uint64 {
	return uint64(getU32(b))<<32 | uint64(getU32(b[4:]))
}

const serviceNameWireLen = 64

// encodeServiceRequest packs a Set/Delete ServiceRecord request into an
// SA attribute payload, the same simplified fixed-layout approach as
// encodeMCMemberRequest.
func encodeServiceRequest(method requestMethod, r subnet.ServiceRecord) []byte {
	b := make([]byte, 1+8+16+2+4+16+serviceNameWireLen+16+16+16+16)
	i := 0
	b[i] = byte(method)
	i++
	putU64(b[i:], r.ServiceID)
	i += 8
	copy(b[i:i+16], r.ServiceGID[:])
	i += 16
	putU16(b[i:], uint16(r.ServicePKey))
	i += 2
	putU32(b[i:], r.ServiceLease)
	i += 4
	copy(b[i:i+16], r.ServiceKey[:])
	i += 16
	nameBytes := []byte(r.ServiceName)
	if len(nameBytes) > serviceNameWireLen {
		nameBytes = nameBytes[:serviceNameWireLen]
	}
	copy(b[i:i+serviceNameWireLen], nameBytes)
	i += serviceNameWireLen
	copy(b[i:i+16], r.ServiceData8[:])
	i += 16
	for j := 0; j < 8; j++ {
		putU16(b[i+j*2:], r.ServiceData16[j])
	}
	i += 16
	for j := 0; j < 4; j++ {
		putU32(b[i+j*4:], r.ServiceData32[j])
	}
	i += 16
	for j := 0; j < 2; j++ {
		putU64(b[i+j*8:], r.ServiceData64[j])
	}
	return b
}

// decodeServiceRequest reverses encodeServiceRequest.
func decodeServiceRequest(payload []byte) (requestMethod, subnet.ServiceRecord, error) {
	var r subnet.ServiceRecord
	const want = 1 + 8 + 16 + 2 + 4 + 16 + serviceNameWireLen + 16 + 16 + 16 + 16
	if len(payload) < want {
		return 0, r, fmt.Errorf("sa: service request payload too short: want %d bytes, got %d", want, len(payload))
	}
	i := 0
	method := requestMethod(payload[i])
	i++
	r.ServiceID = getU64(payload[i:])
	i += 8
	copy(r.ServiceGID[:], payload[i:i+16])
	i += 16
	r.ServicePKey = ibtype.PKey(getU16(payload[i:]))
	i += 2
	r.ServiceLease = getU32(payload[i:])
	i += 4
	copy(r.ServiceKey[:], payload[i:i+16])
	i += 16
	end := i + serviceNameWireLen
	for end > i && payload[end-1] == 0 {
		end--
	}
	r.ServiceName = string(payload[i:end])
	i += serviceNameWireLen
	copy(r.ServiceData8[:], payload[i:i+16])
	i += 16
	for j := 0; j < 8; j++ {
		r.ServiceData16[j] = getU16(payload[i+j*2:])
	}
	i += 16
	for j := 0; j < 4; j++ {
		r.ServiceData32[j] = getU32(payload[i+j*4:])
	}
	i += 16
	for j := 0; j < 2; j++ {
		r.ServiceData64[j] = getU64(payload[i+j*8:])
	}
	r.RID = subnet.ServiceRID(r.ServiceID, r.ServiceGID, r.ServicePKey)
	return method, r, nil
}

// RequestHandler decodes inbound SA Set/Delete requests and applies them
// to MCMember and Services, the state machines a join/leave or
// register/deregister MAD actually drives (Get/GetTable queries are not
// handled here; Engine and MCMember.Get answer them for direct callers).
type RequestHandler struct {
	Subnet   *subnet.Subnet
	MCMember *MCMember
	Services *Services
	NextMLID func() ibtype.LID
	Log      *logging.Logger
	now      func() time.Time
}

// HandleUnsolicited decodes frame as either an MCMemberRecord or a
// ServiceRecord Set/Delete request and applies it, wiring directly to
// pacer.Pacer.Unsolicited for inbound frames carrying the Subnet
// Administration class.
func (h *RequestHandler) HandleUnsolicited(ctx context.Context, frame *mad.Frame) {
	if frame.Header.Class != mad.ClassSubnetAdmin || frame.Sa == nil {
		return
	}
	switch frame.Header.AttrID {
	case mad.AttrMCMemberRecord:
		h.handleMCMember(frame.Sa.Payload)
	case mad.AttrServiceRecord:
		h.handleService(frame.Sa.Payload)
	}
}

func (h *RequestHandler) handleMCMember(payload []byte) {
	method, rec, err := decodeMCMemberRequest(payload)
	if err != nil {
		if h.Log != nil {
			h.Log.Error("dropping malformed mcmember request", "err", err)
		}
		return
	}

	h.Subnet.Lock()
	defer h.Subnet.Unlock()

	var status mad.Status
	switch method {
	case requestSet:
		_, status = h.MCMember.Set(rec, h.NextMLID)
	case requestDelete:
		status = h.MCMember.Delete(rec)
	default:
		return
	}
	if status != mad.StatusOK && h.Log != nil {
		h.Log.Verbose("mcmember request rejected", "method", method, "status", status)
	}
}

func (h *RequestHandler) handleService(payload []byte) {
	if h.Services == nil {
		return
	}
	method, rec, err := decodeServiceRequest(payload)
	if err != nil {
		if h.Log != nil {
			h.Log.Error("dropping malformed service request", "err", err)
		}
		return
	}

	h.Subnet.Lock()
	defer h.Subnet.Unlock()

	switch method {
	case requestSet:
		h.Services.Set(&rec, h.nowFunc()())
	case requestDelete:
		if err := h.Services.Delete(rec.RID); err != nil && h.Log != nil {
			h.Log.Verbose("service request rejected", "rid", rec.RID, "err", err)
		}
	}
}

func (h *RequestHandler) nowFunc() func() time.Time {
	if h.now != nil {
		return h.now
	}
	return time.Now
}
