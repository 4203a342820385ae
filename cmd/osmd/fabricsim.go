// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"fmt"

	"github.com/ibfabric/osmd/internal/discovery"
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/subnet"
	"github.com/ibfabric/osmd/internal/transport"
)

// demoFabric is the bundled -simulate fabric: two switches in a single
// cable, each with one HCA attached.
//
//	HCA1(0x100) --1-- SW1(0x1) --1-- SW2(0x2) --1-- HCA2(0x200)
//	              2 --/            \-- 2
type demoFabric struct {
	routes map[string]routeEntry
}

type fabricNode struct {
	guid     ibtype.GUID
	typ      ibtype.NodeType
	numPorts uint8
	ports    map[uint8]ibtype.GUID
}

type routeEntry struct {
	node    fabricNode
	arrival uint8
}

func newDemoFabric() *demoFabric {
	sw1 := fabricNode{guid: 0x1, typ: ibtype.NodeTypeSwitch, numPorts: 2,
		ports: map[uint8]ibtype.GUID{0: 0x1, 1: 0x11, 2: 0x12}}
	sw2 := fabricNode{guid: 0x2, typ: ibtype.NodeTypeSwitch, numPorts: 2,
		ports: map[uint8]ibtype.GUID{0: 0x2, 1: 0x21, 2: 0x22}}
	hca1 := fabricNode{guid: 0x100, typ: ibtype.NodeTypeChannelAdapter, numPorts: 1,
		ports: map[uint8]ibtype.GUID{1: 0x101}}
	hca2 := fabricNode{guid: 0x200, typ: ibtype.NodeTypeChannelAdapter, numPorts: 1,
		ports: map[uint8]ibtype.GUID{1: 0x201}}

	f := &demoFabric{routes: make(map[string]routeEntry)}
	f.add(subnet.DirectedRoute{}, sw1, 0)
	f.add(subnet.DirectedRoute{1}, sw2, 1)
	f.add(subnet.DirectedRoute{2}, hca1, 1)
	f.add(subnet.DirectedRoute{1, 1}, sw1, 1)
	f.add(subnet.DirectedRoute{1, 1, 1}, sw2, 1)
	f.add(subnet.DirectedRoute{2, 1}, sw1, 2)
	f.add(subnet.DirectedRoute{1, 2}, hca2, 1)
	f.add(subnet.DirectedRoute{1, 2, 1}, sw2, 2)
	return f
}

func (f *demoFabric) add(route subnet.DirectedRoute, n fabricNode, arrival uint8) {
	f.routes[string(route)] = routeEntry{node: n, arrival: arrival}
}

// responder answers every SMP the walker issues against the directed
// route the demo fabric's topology table above defines.
func (f *demoFabric) responder() transport.Responder {
	return func(dest ibtype.LID, req *mad.Frame) (*mad.Frame, error) {
		route, modifier := discovery.DecodeRequest(req.Smp.Payload)
		e, ok := f.routes[string(route)]
		if !ok {
			return nil, fmt.Errorf("fabricsim: no node at directed route %v", route)
		}

		var payload []byte
		switch req.Header.AttrID {
		case mad.AttrNodeInfo:
			payload = discovery.EncodeNodeInfo(discovery.NodeInfoAttr{
				NodeType:     e.node.typ,
				NumPorts:     e.node.numPorts,
				NodeGUID:     e.node.guid,
				PortGUID:     e.node.ports[e.arrival],
				LocalPortNum: e.arrival,
			})
		case mad.AttrNodeDescription:
			payload = discovery.EncodeNodeDescription(fmt.Sprintf("demo-%04x", uint64(e.node.guid)))
		case mad.AttrPortInfo:
			port := uint8(modifier)
			state := subnet.PhysStateDisabled
			if e.node.ports[port] != 0 {
				state = subnet.PhysStateLinkUp
			}
			payload = discovery.EncodePortInfo(discovery.PortInfoAttr{
				PortNum:    port,
				MTUCap:     4,
				MTUActive:  4,
				RateCap:    10,
				RateActive: 10,
				PhysState:  uint8(state),
			})
		case mad.AttrSwitchInfo:
			payload = discovery.EncodeSwitchInfo(discovery.SwitchInfoAttr{LinearFDBCap: 48})
		default:
			return nil, fmt.Errorf("fabricsim: unexpected attribute %v", req.Header.AttrID)
		}

		return &mad.Frame{
			Header: mad.CommonHeader{
				AttrID:        req.Header.AttrID,
				TransactionID: req.Header.TransactionID,
				Method:        mad.MethodGetResp,
			},
			Smp: &mad.SmpBody{Payload: payload},
		}, nil
	}
}
