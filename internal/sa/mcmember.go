// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/subnet"
)

// MCMember implements the MCMemberRecord Set/Delete/Get state machine,
// grounded on original_source/opensm/osm_sa_mcmember_record.c: group
// creation and MLID assignment on join, selector realization against
// the joining port's capabilities, and the o15-0.1.14 partial-leave
// rule on Delete.
type MCMember struct {
	Subnet *subnet.Subnet

	// PacketLifeTimeCap realizes a Set request's packet-lifetime
	// selector. It is a subnet-wide value (config's packet_life_time)
	// rather than a per-port capability, since no per-port figure exists.
	PacketLifeTimeCap uint8
}

// wellKnownMGID reports whether mgid's scope/signature bytes mark it as
// one of the well-known multicast groups that always exist (IPoIB
// broadcast groups), which Delete must never remove even when empty.
func wellKnownMGID(mgid ibtype.MGID) bool {
	return mgid[0] == 0xff && mgid[1]&0xf0 == 0x10
}

// synthesizeMGID derives a group MGID from the requested scope and the
// chosen MLID, the IPoIB default synthesis rule from
// osm_sa_mcmember_record.c used when a Set/join request for a new group
// omits the MGID: "ff1X:a01b:<prefix>:<mlid>:<mlid>".
func synthesizeMGID(scope uint8, subnetPrefix uint64, mlid ibtype.LID) ibtype.MGID {
	var g ibtype.MGID
	g[0] = 0xff
	g[1] = 0x10 | (scope & 0x0f)
	g[2], g[3] = 0xa0, 0x1b
	for i := 0; i < 8; i++ {
		g[4+i] = byte(subnetPrefix >> uint(56-8*i))
	}
	g[12], g[13] = byte(mlid>>8), byte(mlid)
	g[14], g[15] = byte(mlid>>8), byte(mlid)
	return g
}

// Set applies a join (or a re-registration of group parameters) per
// req, creating the group if absent and the requester is allowed to
// create it (only a join that includes the Full bit creates a group; a
// group created under a well-known MGID is flagged WellKnown). A zero JoinState is rejected outright
// rather than defaulted to full membership, and the requested MTU/rate/
// packet-lifetime selectors are realized against the requester port's
// own capabilities before anything is committed, so an infeasible join
// never mutates group state.
func (m *MCMember) Set(req MCMemberRecord, nextMLID func() ibtype.LID) (MCMemberRecord, mad.Status) {
	if req.JoinState == 0 {
		return req, mad.StatusReqInvalid
	}

	portGUID := PortGUIDFromGID(req.PortGID)
	physp, ok := m.Subnet.PhyspByGUID(portGUID)
	if !ok {
		return req, mad.StatusInvalidGID
	}
	if !compareSelector(req.MTUSelector, req.MTU, physp.MTUCap) ||
		!compareSelector(req.RateSelector, req.Rate, physp.RateCap) ||
		!compareSelector(req.PacketLifeTimeSelector, req.PacketLifeTime, m.PacketLifeTimeCap) {
		return req, mad.StatusReqInvalid
	}

	mgid := req.MGID

	g, exists := m.Subnet.MCGroupByMGID(mgid)
	if !exists {
		if subnet.JoinState(req.JoinState)&subnet.JoinStateFull == 0 {
			return req, mad.StatusReqInvalid
		}
		if mgid.IsZero() {
			mlid := nextMLID()
			if mlid == 0 {
				return req, mad.StatusInsufficientResources
			}
			mgid = synthesizeMGID(req.Scope, m.Subnet.SubnetPrefix, mlid)
			g = &subnet.MCGroup{
				MGID: mgid, MLID: mlid, PKey: req.PKey, MTU: req.MTU, Rate: req.Rate,
				SL: req.SL, HopLimit: req.HopLimit, FlowLabel: req.FlowLabel, Scope: req.Scope,
				WellKnown: false, Members: make(map[ibtype.GUID]subnet.MemberState),
			}
		} else {
			mlid := req.MLID
			if mlid == 0 {
				mlid = nextMLID()
				if mlid == 0 {
					return req, mad.StatusInsufficientResources
				}
			}
			g = &subnet.MCGroup{
				MGID: mgid, MLID: mlid, PKey: req.PKey, MTU: req.MTU, Rate: req.Rate,
				SL: req.SL, HopLimit: req.HopLimit, FlowLabel: req.FlowLabel, Scope: req.Scope,
				WellKnown: wellKnownMGID(mgid), Members: make(map[ibtype.GUID]subnet.MemberState),
			}
		}
		m.Subnet.UpsertMCGroup(g)
	}

	g.Members[portGUID] = subnet.MemberState{JoinState: subnet.JoinState(req.JoinState), ProxyJoin: req.ProxyJoin}

	resp := req
	resp.MGID = g.MGID
	resp.MLID = g.MLID
	resp.PKey = g.PKey
	return resp, mad.StatusOK
}

// Delete clears the JoinState bits named in req from portGUID's
// membership in g (rule o15-0.1.14 of osm_sa_mcmember_record.c): a leave
// must overlap at least one bit the port actually holds and must not
// name any bit it doesn't, and only the overlapping bits are cleared —
// a partial leave (e.g. dropping SendOnlyNonMember while keeping Full)
// leaves the membership in place with the remaining bits. The port is
// removed from the group, and the group itself torn down if it is not
// well-known and no full member remains, only once its JoinState set
// empties entirely.
func (m *MCMember) Delete(req MCMemberRecord) mad.Status {
	portGUID := PortGUIDFromGID(req.PortGID)
	g, ok := m.Subnet.MCGroupByMGID(req.MGID)
	if !ok {
		return mad.StatusNoRecords
	}
	ms, ok := g.Members[portGUID]
	if !ok {
		return mad.StatusNoRecords
	}

	leave := subnet.JoinState(req.JoinState)
	if leave&ms.JoinState == 0 || leave&^ms.JoinState != 0 {
		return mad.StatusReqInvalid
	}

	ms.JoinState &^= leave
	if ms.JoinState != 0 {
		g.Members[portGUID] = ms
		return mad.StatusOK
	}

	delete(g.Members, portGUID)
	if !g.WellKnown && !hasFullMember(g) {
		m.Subnet.DeleteMCGroup(g)
	}
	return mad.StatusOK
}

func hasFullMember(g *subnet.MCGroup) bool {
	for _, ms := range g.Members {
		if ms.JoinState&subnet.JoinStateFull != 0 {
			return true
		}
	}
	return false
}

// Get returns every MCMemberRecord visible to the requester (after P_Key
// scoping) matching the masked fields of req.
func (m *MCMember) Get(req MCMemberRecord, mask ComponentMask, scope Scope) ([]MCMemberRecord, mad.Status) {
	var out []MCMemberRecord
	for _, g := range m.Subnet.MCGroups() {
		if mask.has(uint(MCRecMGID)) && g.MGID != req.MGID {
			continue
		}
		if mask.has(uint(MCRecMLID)) && g.MLID != req.MLID {
			continue
		}
		if mask.has(uint(MCRecPKey)) && !g.PKey.SharesPartition(req.PKey) {
			continue
		}
		if !scope.AllowsMCMember(g.PKey) {
			continue
		}
		for guid, ms := range g.Members {
			rec := MCMemberRecord{
				MGID: g.MGID, MLID: g.MLID, PKey: g.PKey,
				SL: g.SL, FlowLabel: g.FlowLabel, HopLimit: g.HopLimit, Scope: g.Scope,
				JoinState: uint8(ms.JoinState), ProxyJoin: ms.ProxyJoin,
			}
			setPortGIDFromGUID(&rec.PortGID, m.Subnet.SubnetPrefix, guid)
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, mad.StatusNoRecords
	}
	return out, mad.StatusOK
}

const (
	bitMGID = iota
	bitMLID
	bitPKey
)

func setPortGIDFromGUID(gid *[16]byte, subnetPrefix uint64, guid ibtype.GUID) {
	for i := 0; i < 8; i++ {
		gid[i] = byte(subnetPrefix >> uint(56-8*i))
	}
	for i := 0; i < 8; i++ {
		gid[8+i] = byte(uint64(guid) >> uint(56-8*i))
	}
}
