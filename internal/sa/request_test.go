// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/subnet"
)

// TestHandleUnsolicitedAppliesMCMemberSet drives an inbound
// ClassSubnetAdmin frame carrying an MCMemberRecord Set request all the
// way through RequestHandler.HandleUnsolicited (the same hook used for
// node-originated traps) and confirms the join lands in subnet state
// with an allocated MLID, the same path a real SM would use to serve a
// multicast join.
func TestHandleUnsolicitedAppliesMCMemberSet(t *testing.T) {
	sn, portGUID := buildJoinerSubnet(t)
	mcMember := &MCMember{Subnet: sn}
	mlids := NewMLIDAllocator(sn)
	h := &RequestHandler{Subnet: sn, MCMember: mcMember, NextMLID: mlids.Next}

	rec := MCMemberRecord{
		PortGID: gidFor(portGUID), MTUSelector: SelectorEqual, MTU: 4,
		RateSelector: SelectorEqual, Rate: 3, JoinState: uint8(subnet.JoinStateFull),
	}
	frame := &mad.Frame{
		Header: mad.CommonHeader{Class: mad.ClassSubnetAdmin, AttrID: mad.AttrMCMemberRecord},
		Sa:     &mad.SaBody{Payload: encodeMCMemberRequest(requestSet, rec)},
	}

	h.HandleUnsolicited(context.Background(), frame)

	groups := sn.MCGroups()
	require.Len(t, groups, 1)
	require.Contains(t, groups[0].Members, portGUID)
	require.True(t, groups[0].MLID.IsMulticast())
}

// TestHandleUnsolicitedAppliesMCMemberDelete drives a Set then a Delete
// through the same inbound path and confirms the leave is applied.
func TestHandleUnsolicitedAppliesMCMemberDelete(t *testing.T) {
	sn, portGUID := buildJoinerSubnet(t)
	mcMember := &MCMember{Subnet: sn}
	mlids := NewMLIDAllocator(sn)
	h := &RequestHandler{Subnet: sn, MCMember: mcMember, NextMLID: mlids.Next}

	join := MCMemberRecord{
		PortGID: gidFor(portGUID), MTUSelector: SelectorEqual, MTU: 4,
		RateSelector: SelectorEqual, Rate: 3, JoinState: uint8(subnet.JoinStateFull),
	}
	resp, status := mcMember.Set(join, mlids.Next)
	require.Equal(t, mad.StatusOK, status)

	leave := MCMemberRecord{
		PortGID: gidFor(portGUID), MGID: resp.MGID, JoinState: uint8(subnet.JoinStateFull),
	}
	frame := &mad.Frame{
		Header: mad.CommonHeader{Class: mad.ClassSubnetAdmin, AttrID: mad.AttrMCMemberRecord},
		Sa:     &mad.SaBody{Payload: encodeMCMemberRequest(requestDelete, leave)},
	}
	h.HandleUnsolicited(context.Background(), frame)

	require.Empty(t, sn.MCGroups())
}

// TestHandleUnsolicitedIgnoresOtherClasses confirms a non-SA frame is
// left alone rather than misparsed as an SA request.
func TestHandleUnsolicitedIgnoresOtherClasses(t *testing.T) {
	sn, portGUID := buildJoinerSubnet(t)
	mcMember := &MCMember{Subnet: sn}
	mlids := NewMLIDAllocator(sn)
	h := &RequestHandler{Subnet: sn, MCMember: mcMember, NextMLID: mlids.Next}

	join := MCMemberRecord{
		PortGID: gidFor(portGUID), MTUSelector: SelectorEqual, MTU: 4,
		RateSelector: SelectorEqual, Rate: 3, JoinState: uint8(subnet.JoinStateFull),
	}
	frame := &mad.Frame{
		Header: mad.CommonHeader{Class: mad.ClassSubnet, AttrID: mad.AttrMCMemberRecord},
		Sa:     &mad.SaBody{Payload: encodeMCMemberRequest(requestSet, join)},
	}
	h.HandleUnsolicited(context.Background(), frame)

	require.Empty(t, sn.MCGroups())
}

// TestHandleUnsolicitedAppliesServiceSetAndDelete drives inbound
// ServiceRecord Set and Delete requests through the same hook,
// confirming the lease is scheduled on Set and the record actually
// disappears on Delete.
func TestHandleUnsolicitedAppliesServiceSetAndDelete(t *testing.T) {
	sn, portGUID := buildJoinerSubnet(t)
	services := &Services{Subnet: sn}
	h := &RequestHandler{Subnet: sn, Services: services}

	gid := gidFor(portGUID)
	rec := subnet.ServiceRecord{
		ServiceID: 0x1234, ServiceGID: gid, ServicePKey: 0x8001,
		ServiceLease: 60, ServiceName: "ib_diag",
	}
	setFrame := &mad.Frame{
		Header: mad.CommonHeader{Class: mad.ClassSubnetAdmin, AttrID: mad.AttrServiceRecord},
		Sa:     &mad.SaBody{Payload: encodeServiceRequest(requestSet, rec)},
	}
	h.HandleUnsolicited(context.Background(), setFrame)

	rid := subnet.ServiceRID(rec.ServiceID, rec.ServiceGID, rec.ServicePKey)
	stored, ok := sn.Service(rid)
	require.True(t, ok)
	require.Equal(t, "ib_diag", stored.ServiceName)
	require.NotZero(t, stored.ExpiresAtNanos)

	delFrame := &mad.Frame{
		Header: mad.CommonHeader{Class: mad.ClassSubnetAdmin, AttrID: mad.AttrServiceRecord},
		Sa:     &mad.SaBody{Payload: encodeServiceRequest(requestDelete, rec)},
	}
	h.HandleUnsolicited(context.Background(), delFrame)

	_, ok = sn.Service(rid)
	require.False(t, ok)
}

// TestServicesSetInfiniteLeaseNeverExpires confirms an all-ones (and a
// zero) lease are both treated as "never expires", surviving
// ExpireBefore regardless of how far now advances.
func TestServicesSetInfiniteLeaseNeverExpires(t *testing.T) {
	sn, portGUID := buildJoinerSubnet(t)
	services := &Services{Subnet: sn}
	now := time.Unix(1000, 0)

	gid := gidFor(portGUID)
	rec := &subnet.ServiceRecord{
		ServiceID: 1, ServiceGID: gid, ServicePKey: 1, ServiceLease: 0xFFFFFFFF,
	}
	services.Set(rec, now)
	require.Zero(t, rec.ExpiresAtNanos)

	services.ExpireBefore(now.Add(365 * 24 * time.Hour))
	_, ok := sn.Service(rec.RID)
	require.True(t, ok)
}

// TestServicesExpireBeforeRemovesElapsedFiniteLease confirms a finite
// lease is removed by ExpireBefore once its deadline passes, and
// survives until then.
func TestServicesExpireBeforeRemovesElapsedFiniteLease(t *testing.T) {
	sn, portGUID := buildJoinerSubnet(t)
	services := &Services{Subnet: sn}
	now := time.Unix(1000, 0)

	gid := gidFor(portGUID)
	rec := &subnet.ServiceRecord{
		ServiceID: 2, ServiceGID: gid, ServicePKey: 1, ServiceLease: 30,
	}
	services.Set(rec, now)

	services.ExpireBefore(now.Add(29 * time.Second))
	_, ok := sn.Service(rec.RID)
	require.True(t, ok, "lease has not elapsed yet")

	services.ExpireBefore(now.Add(31 * time.Second))
	_, ok = sn.Service(rec.RID)
	require.False(t, ok, "lease elapsed, record must be gone")
}
