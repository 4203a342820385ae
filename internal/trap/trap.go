// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package trap implements the Trap/Inform engine:
// InformInfo subscription matching and Report forwarding. Like the
// discovery package, it operates on a decoded Notice struct rather than
// raw MAD bytes; wire encode/decode remains a separate boundary layer.
package trap

import (
	"context"
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/pacer"
	"github.com/ibfabric/osmd/internal/sa"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Notice is a decoded SMP trap or SM-generated notice (spec GLOSSARY).
type Notice struct {
	Generic       bool
	Type          uint16
	TrapNumber    uint16 // or DeviceID when !Generic
	ProducerType  uint32 // or VendorID when !Generic
	IssuerLID     ibtype.LID
	IssuerGID     [16]byte
	DataDetails   [64]byte
}

// Engine forwards Notices to matching InformInfo subscribers and prunes
// subscriptions that fail the P_Key check, grounded on
// original_source/opensm/osm_inform.c.
type Engine struct {
	Subnet  *subnet.Subnet
	Informs *sa.Informs
	Pacer   *pacer.Pacer
	Log     *logging.Logger
}

// New builds a trap engine bound to sn, forwarding reports through p.
func New(sn *subnet.Subnet, p *pacer.Pacer, log *logging.Logger) *Engine {
	return &Engine{Subnet: sn, Informs: &sa.Informs{Subnet: sn}, Pacer: p, Log: log}
}

// Forward iterates every subscription, forwarding a Report to each that
// matches the notice's selection fields and shares a P_Key with the
// issuer. A subscription that matches selection but fails the P_Key
// check is removed unless its LID range is the unrestricted wildcard
// (rule o13-17.1.2).
func (e *Engine) Forward(ctx context.Context, n Notice) {
	issuerGUID := e.guidForLID(n.IssuerLID)

	for _, rec := range e.Subnet.Informs() {
		if rec.IsGeneric != n.Generic {
			continue
		}
		if !e.Informs.Matches(rec, n.TrapNumber, n.ProducerType, n.IssuerLID) {
			continue
		}

		subscriberGUID := sa.PortGUIDFromGID(rec.SubscriberGID)
		if !e.Subnet.SharesPKey(issuerGUID, subscriberGUID) {
			if rec.LIDRangeBegin != 0 || rec.LIDRangeEnd != 0 {
				if e.Log != nil {
					e.Log.Verbose("inform subscription dropped on P_Key mismatch", "rid", rec.RID)
				}
				e.Subnet.DeleteInform(rec.RID)
			}
			continue
		}

		e.sendReport(ctx, rec, n)
	}
}

func (e *Engine) guidForLID(lid ibtype.LID) ibtype.GUID {
	for _, p := range e.Subnet.Physps() {
		if p.LID == lid {
			return p.PortGUID
		}
	}
	return 0
}

func (e *Engine) sendReport(ctx context.Context, rec *subnet.InformRecord, n Notice) {
	if e.Pacer == nil {
		return
	}
	payload := encodeNotice(n)
	e.Pacer.Send(ctx, mad.AttrNotice, rec.ReturnLID, payload, false, func(r pacer.Result) {
		if r.Outcome != pacer.OutcomeOK && e.Log != nil {
			e.Log.Error("report delivery failed", "rid", rec.RID, "outcome", r.Outcome)
		}
	})
}

// encodeNotice packs a Notice's fields into bytes for the payload field
// of a Report MAD; a full wire codec is a separate, not-yet-built layer
// (see the discovery package's equivalent simplification).
func encodeNotice(n Notice) []byte {
	b := make([]byte, 2+2+2+4+2+16+64)
	i := 0
	if n.Generic {
		b[i] = 1
	}
	i++
	b[i] = byte(n.Type)
	i++
	b[i], b[i+1] = byte(n.TrapNumber>>8), byte(n.TrapNumber)
	i += 2
	b[i], b[i+1], b[i+2], b[i+3] = byte(n.ProducerType>>24), byte(n.ProducerType>>16), byte(n.ProducerType>>8), byte(n.ProducerType)
	i += 4
	b[i], b[i+1] = byte(n.IssuerLID>>8), byte(n.IssuerLID)
	i += 2
	copy(b[i:i+16], n.IssuerGID[:])
	i += 16
	copy(b[i:i+64], n.DataDetails[:])
	return b
}

// DecodeNotice reverses encodeNotice's layout; used to recover a Notice
// from an inbound Trap/Report MAD's payload.
func DecodeNotice(payload []byte) (Notice, error) {
	var n Notice
	const want = 2 + 2 + 2 + 4 + 2 + 16 + 64
	if len(payload) < want {
		return n, fmt.Errorf("trap: notice payload too short: want %d bytes, got %d", want, len(payload))
	}
	i := 0
	n.Generic = payload[i] != 0
	i++
	n.Type = uint16(payload[i])
	i++
	n.TrapNumber = uint16(payload[i])<<8 | uint16(payload[i+1])
	i += 2
	n.ProducerType = uint32(payload[i])<<24 | uint32(payload[i+1])<<16 | uint32(payload[i+2])<<8 | uint32(payload[i+3])
	i += 4
	n.IssuerLID = ibtype.LID(uint16(payload[i])<<8 | uint16(payload[i+1]))
	i += 2
	copy(n.IssuerGID[:], payload[i:i+16])
	i += 16
	copy(n.DataDetails[:], payload[i:i+64])
	return n, nil
}

// HandleUnsolicited decodes an inbound frame's payload as a Notice and
// forwards it, wiring directly to pacer.Pacer.Unsolicited.
func (e *Engine) HandleUnsolicited(ctx context.Context, frame *mad.Frame) {
	if frame.Smp == nil {
		return
	}
	n, err := DecodeNotice(frame.Smp.Payload)
	if err != nil {
		if e.Log != nil {
			e.Log.Error("dropping malformed notice", "err", err)
		}
		return
	}
	e.Forward(ctx, n)
}
