// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/pacer"
	"github.com/ibfabric/osmd/internal/subnet"
	"github.com/ibfabric/osmd/internal/transport"
)

// fabricNode is one simulated node in the walker test's tiny two-switch
// fabric: S1 (route []) has port 1 wired to S2 (route [1]) port 1.
type fabricNode struct {
	guid     ibtype.GUID
	numPorts uint8
	portGUID map[uint8]ibtype.GUID
}

func twoSwitchResponder(t *testing.T) transport.Responder {
	s1 := fabricNode{guid: 0x51, numPorts: 1, portGUID: map[uint8]ibtype.GUID{0: 0x51, 1: 0x511}}
	s2 := fabricNode{guid: 0x52, numPorts: 1, portGUID: map[uint8]ibtype.GUID{0: 0x52, 1: 0x521}}

	// The fabric is a single cable: s1 port 1 <-> s2 port 1. A directed
	// route alternates ends with every hop, so its parity picks the node
	// and its last hop (0 at the root) picks the arrival port.
	nodeAt := func(route subnet.DirectedRoute) (fabricNode, uint8, bool) {
		for _, hop := range route {
			if hop != 1 {
				return fabricNode{}, 0, false
			}
		}
		n := s1
		if len(route)%2 == 1 {
			n = s2
		}
		var localPort uint8
		if len(route) > 0 {
			localPort = route[len(route)-1]
		}
		return n, localPort, true
	}

	return func(dest ibtype.LID, req *mad.Frame) (*mad.Frame, error) {
		route, modifier := DecodeRequest(req.Smp.Payload)
		n, localPort, ok := nodeAt(route)
		require.True(t, ok, "unexpected route %v", route)

		var payload []byte
		switch req.Header.AttrID {
		case mad.AttrNodeInfo:
			payload = EncodeNodeInfo(NodeInfoAttr{
				NodeType:     ibtype.NodeTypeSwitch,
				NumPorts:     n.numPorts,
				NodeGUID:     n.guid,
				PortGUID:     n.portGUID[localPort],
				LocalPortNum: localPort,
			})
		case mad.AttrNodeDescription:
			payload = EncodeNodeDescription("sw")
		case mad.AttrPortInfo:
			port := uint8(modifier)
			state := uint8(subnet.PhysStateLinkUp)
			payload = EncodePortInfo(PortInfoAttr{
				PortNum:   port,
				LID:       0,
				MTUCap:    4,
				MTUActive: 4,
				RateCap:   10,
				RateActive: 10,
				PhysState: state,
			})
		case mad.AttrSwitchInfo:
			payload = EncodeSwitchInfo(SwitchInfoAttr{LinearFDBCap: 48})
		default:
			t.Fatalf("unexpected attr %v", req.Header.AttrID)
		}
		return &mad.Frame{
			Header: mad.CommonHeader{AttrID: req.Header.AttrID, TransactionID: req.Header.TransactionID, Method: mad.MethodGetResp},
			Smp:    &mad.SmpBody{Payload: payload},
		}, nil
	}
}

// cbForward lets the test bind a Loopback handle before the pacer that
// will ultimately own it exists, since Pacer.New itself requires an
// already-bound handle.
type cbForward struct{ target transport.Callbacks }

func (c *cbForward) OnResponse(ctx context.Context, rc any, resp *mad.Frame) {
	c.target.OnResponse(ctx, rc, resp)
}
func (c *cbForward) OnSendError(ctx context.Context, rc any, err error) {
	c.target.OnSendError(ctx, rc, err)
}

func TestWalkerDiscoversTwoSwitchLink(t *testing.T) {
	sn := subnet.New(0xfe80000000000000)
	recv := NewReceivers(sn, nil)

	lb := transport.NewLoopback()
	lb.Respond = twoSwitchResponder(t)
	fwd := &cbForward{}
	h, err := lb.Bind(0x51, fwd)
	require.NoError(t, err)

	p := pacer.New(lb, h, pacer.DefaultOptions(), nil)
	defer p.Stop()
	fwd.target = p

	w := NewWalker(sn, recv, p, nil)
	require.NoError(t, w.Walk(context.Background()))

	s1, ok := sn.NodeByGUID(0x51)
	require.True(t, ok)
	s2, ok := sn.NodeByGUID(0x52)
	require.True(t, ok)
	require.Equal(t, ibtype.NodeTypeSwitch, s1.Type)
	require.Equal(t, ibtype.NodeTypeSwitch, s2.Type)

	p1, ok := sn.PhyspByGUID(0x511)
	require.True(t, ok)
	require.True(t, p1.HasRemote)

	p2, ok := sn.PhyspByGUID(0x521)
	require.True(t, ok)
	require.Equal(t, p1.ID, p2.Remote)
}
