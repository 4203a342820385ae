// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
)

// Responder computes a simulated fabric's reply to an outgoing frame, or
// returns (nil, err) to simulate a transport-level send error. Send calls
// it on a new goroutine and delivers the result to
// Callbacks.OnResponse/OnSendError from that goroutine, so callbacks never
// run inside Send, mirroring a real transport's own-thread callback delivery.
type Responder func(dest ibtype.LID, req *mad.Frame) (*mad.Frame, error)

// Loopback is an in-process Transport for tests and the bundled
// simulator. Every Send is handed to Respond, if set; otherwise the
// caller must drive responses manually via Deliver.
type Loopback struct {
	mu        sync.Mutex
	nextHandle Handle
	binds     map[Handle]Callbacks
	Respond   Responder
}

// NewLoopback returns an empty Loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{binds: make(map[Handle]Callbacks)}
}

func (l *Loopback) Bind(portGUID ibtype.GUID, cb Callbacks) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextHandle++
	l.binds[l.nextHandle] = cb
	return l.nextHandle, nil
}

func (l *Loopback) Unbind(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.binds, h)
	return nil
}

func (l *Loopback) Send(ctx context.Context, h Handle, dest ibtype.LID, datagram *mad.Frame, expectResponse bool) error {
	l.mu.Lock()
	cb, ok := l.binds[h]
	respond := l.Respond
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("loopback: unbound handle %d", h)
	}
	if !expectResponse || respond == nil {
		return nil
	}
	go func() {
		resp, err := respond(dest, datagram)
		if err != nil {
			cb.OnSendError(ctx, datagram.Header.TransactionID, err)
			return
		}
		cb.OnResponse(ctx, datagram.Header.TransactionID, resp)
	}()
	return nil
}

// Deliver synchronously invokes cb.OnResponse for handle h — a test
// helper for scripting exact response sequences without a Responder.
func (l *Loopback) Deliver(ctx context.Context, h Handle, requestContext any, resp *mad.Frame) {
	l.mu.Lock()
	cb := l.binds[h]
	l.mu.Unlock()
	if cb != nil {
		cb.OnResponse(ctx, requestContext, resp)
	}
}
