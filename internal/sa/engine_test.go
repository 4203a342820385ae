// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/subnet"
)

func buildTwoHostSubnet(t *testing.T) (*subnet.Subnet, ibtype.GUID, ibtype.GUID) {
	t.Helper()
	sn := subnet.New(0xfe80000000000000)

	n1, _, err := sn.GetOrCreateNode(ibtype.GUID(0x1))
	require.NoError(t, err)
	n1.Type = ibtype.NodeTypeChannelAdapter
	n1.NumPorts = 1
	n1.Description = "host-a"
	p1, _, err := sn.GetOrCreatePhysp(n1, 1, ibtype.GUID(0x1001))
	require.NoError(t, err)
	p1.LID = ibtype.LID(1)
	p1.MTUCap, p1.MTUActive = 4, 4
	p1.RateCap, p1.RateActive = 10, 10

	n2, _, err := sn.GetOrCreateNode(ibtype.GUID(0x2))
	require.NoError(t, err)
	n2.Type = ibtype.NodeTypeChannelAdapter
	n2.NumPorts = 1
	n2.Description = "host-b"
	p2, _, err := sn.GetOrCreatePhysp(n2, 1, ibtype.GUID(0x2001))
	require.NoError(t, err)
	p2.LID = ibtype.LID(2)
	p2.MTUCap, p2.MTUActive = 2, 2
	p2.RateCap, p2.RateActive = 6, 6

	sn.UpsertPartition(&subnet.Partition{
		Name: "default", PKey: ibtype.PKey(0xffff),
		Members: map[ibtype.GUID]bool{
			ibtype.GUID(0x1001): true,
			ibtype.GUID(0x2001): true,
		},
	})

	return sn, ibtype.GUID(0x1001), ibtype.GUID(0x2001)
}

func TestGetNodeRecordsMatchesByNodeType(t *testing.T) {
	sn, portA, _ := buildTwoHostSubnet(t)
	e := &Engine{Subnet: sn}
	scope := Scope{Subnet: sn, RequesterGUID: portA}

	recs, status := e.GetNodeRecords(NodeRecord{NodeType: ibtype.NodeTypeChannelAdapter},
		NodeRecNodeType, scope)
	require.Equal(t, mad.StatusOK, status)
	require.Len(t, recs, 2)
}

func TestGetNodeRecordsNoMatchReturnsNoRecords(t *testing.T) {
	sn, portA, _ := buildTwoHostSubnet(t)
	e := &Engine{Subnet: sn}
	scope := Scope{Subnet: sn, RequesterGUID: portA}

	recs, status := e.GetNodeRecords(NodeRecord{NodeType: ibtype.NodeTypeSwitch},
		NodeRecNodeType, scope)
	require.Nil(t, recs)
	require.Equal(t, mad.StatusNoRecords, status)
}

func TestGetPortInfoRecordsMatchesByLID(t *testing.T) {
	sn, _, _ := buildTwoHostSubnet(t)
	e := &Engine{Subnet: sn}

	recs, status := e.GetPortInfoRecords(PortInfoRecord{LID: ibtype.LID(2)}, PIRecLID)
	require.Equal(t, mad.StatusOK, status)
	require.Len(t, recs, 1)
	require.Equal(t, uint8(2), recs[0].MTUCap)
}

func TestGetPathRecordsReturnsMinMTUAndRate(t *testing.T) {
	sn, portA, _ := buildTwoHostSubnet(t)
	e := &Engine{Subnet: sn}
	scope := Scope{Subnet: sn, RequesterGUID: portA}

	recs, status := e.GetPathRecords(PathRecord{SLID: ibtype.LID(1), DLID: ibtype.LID(2)},
		PRecSLID|PRecDLID, scope)
	require.Equal(t, mad.StatusOK, status)
	require.Len(t, recs, 1)
	require.Equal(t, uint8(2), recs[0].MTU)  // min(4,2)
	require.Equal(t, uint8(6), recs[0].Rate) // min(10,6)
}
