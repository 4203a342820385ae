// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"time"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/osmerr"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Engine answers NodeRecord/PortInfoRecord/PathRecord GetTable queries
// against the live subnet, applying component-mask matching and P_Key
// scoping the way MCMember does for multicast records. Callers hold the
// subnet's reader lock for the duration of a query.
type Engine struct {
	Subnet *subnet.Subnet
}

// GetNodeRecords returns every NodeRecord matching the masked fields of
// req, visible to scope's requester.
func (e *Engine) GetNodeRecords(req NodeRecord, mask ComponentMask, scope Scope) ([]NodeRecord, mad.Status) {
	var out []NodeRecord
	for _, n := range e.Subnet.Nodes() {
		if mask.has(uint(NodeRecNodeGUID)) && n.GUID != req.NodeGUID {
			continue
		}
		if mask.has(uint(NodeRecSystemImageGUID)) && n.SystemImageGUID != req.SystemImageGUID {
			continue
		}
		if mask.has(uint(NodeRecNodeType)) && n.Type != req.NodeType {
			continue
		}
		if mask.has(uint(NodeRecNumPorts)) && n.NumPorts != req.NumPorts {
			continue
		}
		if mask.has(uint(NodeRecNodeDescription)) && n.Description != req.NodeDescription {
			continue
		}

		for _, pid := range n.Physps {
			p, ok := e.Subnet.Physp(pid)
			if !ok {
				continue
			}
			if mask.has(uint(NodeRecLID)) && p.LID != req.LID {
				continue
			}
			if mask.has(uint(NodeRecPortGUID)) && p.PortGUID != req.PortGUID {
				continue
			}
			if !scope.sharesPartition(p.PortGUID) {
				continue
			}
			out = append(out, NodeRecord{
				LID: p.LID, NodeType: n.Type, NumPorts: n.NumPorts,
				SystemImageGUID: n.SystemImageGUID, NodeGUID: n.GUID,
				PortGUID: p.PortGUID, NodeDescription: n.Description,
			})
		}
	}
	if len(out) == 0 {
		return nil, mad.StatusNoRecords
	}
	return out, mad.StatusOK
}

// GetPortInfoRecords returns every PortInfoRecord matching req's masked
// fields.
func (e *Engine) GetPortInfoRecords(req PortInfoRecord, mask ComponentMask) ([]PortInfoRecord, mad.Status) {
	var out []PortInfoRecord
	for _, p := range e.Subnet.Physps() {
		if mask.has(uint(PIRecLID)) && p.LID != req.LID {
			continue
		}
		if mask.has(uint(PIRecPortNum)) && p.PortNum != req.PortNum {
			continue
		}
		if mask.has(uint(PIRecLMC)) && p.LMC != req.LMC {
			continue
		}
		if mask.has(uint(PIRecMTUCap)) && p.MTUCap != req.MTUCap {
			continue
		}
		if mask.has(uint(PIRecRateCap)) && p.RateCap != req.RateCap {
			continue
		}
		if mask.has(uint(PIRecState)) && uint8(p.PortState) != req.State {
			continue
		}
		out = append(out, PortInfoRecord{
			LID: p.LID, PortNum: p.PortNum, LMC: p.LMC,
			MTUCap: p.MTUCap, RateCap: p.RateCap, State: uint8(p.PortState),
		})
	}
	if len(out) == 0 {
		return nil, mad.StatusNoRecords
	}
	return out, mad.StatusOK
}

// GetPathRecords returns a record for every (src, dst) pair of physps
// holding unicast LIDs that matches req's masked fields and is visible
// to scope's requester. The switch LFTs are not consulted, so a pair is
// reported whether or not routing connects it; it does not compute hop
// counts (the ucast package owns that).
func (e *Engine) GetPathRecords(req PathRecord, mask ComponentMask, scope Scope) ([]PathRecord, mad.Status) {
	var out []PathRecord
	for _, sp := range e.Subnet.Physps() {
		if sp.LID == 0 || !sp.LID.IsUnicast() {
			continue
		}
		if mask.has(uint(PRecSLID)) && sp.LID != req.SLID {
			continue
		}
		for _, dp := range e.Subnet.Physps() {
			if dp.LID == 0 || !dp.LID.IsUnicast() {
				continue
			}
			if mask.has(uint(PRecDLID)) && dp.LID != req.DLID {
				continue
			}
			if !scope.AllowsPath(sp.PortGUID, dp.PortGUID) {
				continue
			}
			if mask.has(uint(PRecMTU)) && !compareSelector(req.MTUSelector, req.MTU, minMTU(sp, dp)) {
				continue
			}
			if mask.has(uint(PRecRate)) && !compareSelector(req.RateSelector, req.Rate, minRate(sp, dp)) {
				continue
			}
			out = append(out, PathRecord{
				SLID: sp.LID, DLID: dp.LID,
				MTU: minMTU(sp, dp), Rate: minRate(sp, dp),
				Reversible: true, NumbPath: 1,
			})
		}
	}
	if len(out) == 0 {
		return nil, mad.StatusNoRecords
	}
	return out, mad.StatusOK
}

func minMTU(a, b *subnet.Physp) uint8 {
	if a.MTUActive < b.MTUActive {
		return a.MTUActive
	}
	return b.MTUActive
}

func minRate(a, b *subnet.Physp) uint8 {
	if a.RateActive < b.RateActive {
		return a.RateActive
	}
	return b.RateActive
}

// serviceLeaseInfinite is the wire sentinel meaning "never expires"; an
// omitted lease (the zero value) is treated the same way.
const serviceLeaseInfinite = 0xFFFFFFFF

// Services implements Get/Set/Delete for ServiceRecord, grounded on
// osm_sa_service_record.c, including the lease-driven expiry a plain
// record table doesn't give for free.
type Services struct {
	Subnet *subnet.Subnet
}

func (s *Services) Get(rid string, scope Scope) (*subnet.ServiceRecord, error) {
	r, ok := s.Subnet.Service(rid)
	if !ok {
		return nil, osmerr.New(osmerr.KindNotFound, "no service record for "+rid)
	}
	if !scope.AllowsService(r) {
		return nil, osmerr.New(osmerr.KindNotFound, "service not visible to requester")
	}
	return r, nil
}

// Set registers r, computing its expiry deadline from ServiceLease as of
// now. A zero or all-ones lease never expires.
func (s *Services) Set(r *subnet.ServiceRecord, now time.Time) {
	if r.ServiceLease == 0 || r.ServiceLease == serviceLeaseInfinite {
		r.ExpiresAtNanos = 0
	} else {
		r.ExpiresAtNanos = now.Add(time.Duration(r.ServiceLease) * time.Second).UnixNano()
	}
	s.Subnet.UpsertService(r)
}

func (s *Services) Delete(rid string) error {
	if _, ok := s.Subnet.Service(rid); !ok {
		return osmerr.New(osmerr.KindNotFound, "no service record for "+rid)
	}
	s.Subnet.DeleteService(rid)
	return nil
}

// ExpireBefore deletes every service record whose lease has elapsed as
// of now; called once per sweep to enforce the deadlines Set schedules.
func (s *Services) ExpireBefore(now time.Time) {
	nowNanos := now.UnixNano()
	for _, r := range s.Subnet.Services() {
		if r.ExpiresAtNanos != 0 && r.ExpiresAtNanos <= nowNanos {
			s.Subnet.DeleteService(r.RID)
		}
	}
}

// Informs implements Get/Set/Delete for InformRecord subscriptions,
// grounded on osm_sa_informinfo.c.
type Informs struct {
	Subnet *subnet.Subnet
}

func (i *Informs) Set(r *subnet.InformRecord) {
	i.Subnet.UpsertInform(r)
}

func (i *Informs) Delete(rid string) error {
	if _, ok := i.Subnet.Inform(rid); !ok {
		return osmerr.New(osmerr.KindNotFound, "no inform record for "+rid)
	}
	i.Subnet.DeleteInform(rid)
	return nil
}

// Matches reports whether rec's trap-selection fields match the
// notice's trap type and producer, honoring the LID-range-containment
// exception for GID-range subscriptions.
func (i *Informs) Matches(rec *subnet.InformRecord, trapNum uint16, producerType uint32, srcLID ibtype.LID) bool {
	if rec.TrapNumOrDeviceID != 0xFFFF && rec.TrapNumOrDeviceID != trapNum {
		return false
	}
	if rec.ProducerTypeOrVendorID != 0xFFFFFF && rec.ProducerTypeOrVendorID != producerType {
		return false
	}
	return lidRangeContains(uint16(rec.LIDRangeBegin), uint16(rec.LIDRangeEnd), uint16(srcLID))
}
