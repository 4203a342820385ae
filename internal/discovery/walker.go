// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package discovery

import (
	"context"
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/pacer"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Walker drives the breadth-first fabric walk: starting at the local SM
// port's directed route, it queries NodeInfo/NodeDescription/
// PortInfo/SwitchInfo for every node it reaches and extends the walk out
// through every live switch port, feeding decoded attributes to a
// Receivers. CA/router ports terminate the walk; they are probed but
// never extended past.
//
// Each discovered link is confirmed by probing back through the
// neighbor's own reported local port before it is committed via
// Receivers.InferLink, catching the duplicate-GUID/stale-cache
// transient described there.
type Walker struct {
	Subnet    *subnet.Subnet
	Receivers *Receivers
	Pacer     *pacer.Pacer
	Log       *logging.Logger
}

func NewWalker(sn *subnet.Subnet, r *Receivers, p *pacer.Pacer, log *logging.Logger) *Walker {
	return &Walker{Subnet: sn, Receivers: r, Pacer: p, Log: log}
}

// Walk performs one discovery pass. The caller holds no subnet lock on
// entry; Walk takes the subnet writer lock around each model mutation,
// matching the passive reader/writer contract Subnet.Lock documents.
func (w *Walker) Walk(ctx context.Context) error {
	w.Receivers.BeginSweep()

	visited := make(map[ibtype.GUID]bool)
	queue := []subnet.DirectedRoute{{}}

	for len(queue) > 0 {
		route := queue[0]
		queue = queue[1:]

		n, localPhysp, err := w.visitNode(ctx, route)
		if err != nil {
			return err
		}
		if visited[n.GUID] {
			continue
		}
		visited[n.GUID] = true

		if n.Type != ibtype.NodeTypeSwitch {
			if _, err := w.probePort(ctx, route, n, localPhysp.PortNum); err != nil {
				return err
			}
			continue
		}

		if _, err := w.probePort(ctx, route, n, 0); err != nil {
			return err
		}
		for port := uint8(1); port <= n.NumPorts; port++ {
			p, err := w.probePort(ctx, route, n, port)
			if err != nil {
				return err
			}
			if p == nil || p.PhysState != subnet.PhysStateLinkUp {
				continue
			}
			nextRoute := extendRoute(route, port)
			if err := w.discoverNeighbor(ctx, route, n, p, nextRoute); err != nil {
				return err
			}
			queue = append(queue, nextRoute)
		}
	}
	return nil
}

// visitNode fetches NodeInfo and NodeDescription at route and applies
// them, returning the node and the physp the SM arrived on.
func (w *Walker) visitNode(ctx context.Context, route subnet.DirectedRoute) (*subnet.Node, *subnet.Physp, error) {
	attr, err := w.getNodeInfo(ctx, route, 0)
	if err != nil {
		return nil, nil, err
	}
	desc, err := w.getNodeDescription(ctx, route)
	if err != nil {
		return nil, nil, err
	}

	w.Subnet.Lock()
	defer w.Subnet.Unlock()
	n, p, err := w.Receivers.NodeInfo(route, attr)
	if err != nil {
		return nil, nil, err
	}
	w.Receivers.NodeDescription(n, desc)
	return n, p, nil
}

// probePort fetches PortInfo for one port of n and applies it.
func (w *Walker) probePort(ctx context.Context, route subnet.DirectedRoute, n *subnet.Node, port uint8) (*subnet.Physp, error) {
	attr, err := w.getPortInfo(ctx, route, port)
	if err != nil {
		return nil, err
	}
	w.Subnet.Lock()
	defer w.Subnet.Unlock()
	p, err := w.Receivers.PortInfo(n, attr)
	if err != nil {
		return nil, err
	}
	if n.Type == ibtype.NodeTypeSwitch && port == 0 {
		sw := w.Subnet.GetOrCreateSwitch(n)
		if swAttr, err := w.getSwitchInfo(ctx, route); err == nil {
			w.Receivers.SwitchInfo(sw, swAttr)
		}
	}
	return p, nil
}

// discoverNeighbor queries the node reachable via nextRoute, then probes
// back through its reported local port to confirm the link is mutual
// before calling Receivers.InferLink.
func (w *Walker) discoverNeighbor(ctx context.Context, parentRoute subnet.DirectedRoute, parentNode *subnet.Node, parentPhysp *subnet.Physp, nextRoute subnet.DirectedRoute) error {
	neighborAttr, err := w.getNodeInfo(ctx, nextRoute, 0)
	if err != nil {
		return err
	}

	w.Subnet.Lock()
	m, b, err := w.Receivers.NodeInfo(nextRoute, neighborAttr)
	w.Subnet.Unlock()
	if err != nil {
		return err
	}

	backRoute := extendRoute(nextRoute, neighborAttr.LocalPortNum)
	backAttr, err := w.getNodeInfo(ctx, backRoute, 0)
	if err != nil {
		return err
	}

	w.Subnet.Lock()
	defer w.Subnet.Unlock()
	// Switch external ports carry no management GUID of their own over
	// the wire; the first mutual probe that reaches one backfills it
	// from the neighbor's report, so a later sweep's InferLink call has
	// something to compare a genuine mismatch (duplicate GUID, cable
	// move) against instead of comparing against zero every time.
	if parentPhysp.PortGUID.IsZero() {
		parentPhysp.PortGUID = backAttr.PortGUID
	}
	linked, err := w.Receivers.InferLink(parentPhysp, b, b.PortGUID, backAttr.PortGUID)
	if err != nil {
		return err
	}
	if linked && w.Log != nil {
		w.Log.Debug("link inferred", "a", parentNode.GUID, "b", m.GUID)
	}
	return nil
}

func extendRoute(route subnet.DirectedRoute, port uint8) subnet.DirectedRoute {
	out := make(subnet.DirectedRoute, len(route)+1)
	copy(out, route)
	out[len(route)] = port
	return out
}

func (w *Walker) getNodeInfo(ctx context.Context, route subnet.DirectedRoute, modifier uint32) (NodeInfoAttr, error) {
	frame, err := w.send(ctx, mad.AttrNodeInfo, route, modifier)
	if err != nil {
		return NodeInfoAttr{}, err
	}
	return DecodeNodeInfo(frame.Smp.Payload)
}

func (w *Walker) getNodeDescription(ctx context.Context, route subnet.DirectedRoute) (string, error) {
	frame, err := w.send(ctx, mad.AttrNodeDescription, route, 0)
	if err != nil {
		return "", err
	}
	return DecodeNodeDescription(frame.Smp.Payload), nil
}

func (w *Walker) getPortInfo(ctx context.Context, route subnet.DirectedRoute, port uint8) (PortInfoAttr, error) {
	frame, err := w.send(ctx, mad.AttrPortInfo, route, uint32(port))
	if err != nil {
		return PortInfoAttr{}, err
	}
	return DecodePortInfo(frame.Smp.Payload)
}

func (w *Walker) getSwitchInfo(ctx context.Context, route subnet.DirectedRoute) (SwitchInfoAttr, error) {
	frame, err := w.send(ctx, mad.AttrSwitchInfo, route, 0)
	if err != nil {
		return SwitchInfoAttr{}, err
	}
	return DecodeSwitchInfo(frame.Smp.Payload)
}

// send blocks the walker's own goroutine until the pacer completes the
// transaction, turning its callback-based contract into the synchronous
// one a BFS walk over a single fabric naturally wants.
func (w *Walker) send(ctx context.Context, attr mad.AttrID, route subnet.DirectedRoute, modifier uint32) (*mad.Frame, error) {
	payload := EncodeRequest(route, modifier)
	done := make(chan pacer.Result, 1)
	if _, err := w.Pacer.Send(ctx, attr, 0, payload, false, func(r pacer.Result) { done <- r }); err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		if r.Outcome != pacer.OutcomeOK {
			return nil, fmt.Errorf("discovery: %v query failed: outcome %v: %w", attr, r.Outcome, r.Err)
		}
		return r.Frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
