// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/transport"
)

func TestSendCompletesOnResponse(t *testing.T) {
	lb := transport.NewLoopback()
	h, err := lb.Bind(ibtype.GUID(1), nil)
	require.NoError(t, err)

	opt := DefaultOptions()
	p := New(lb, h, opt, nil)
	defer p.Stop()

	lb.Respond = func(dest ibtype.LID, req *mad.Frame) (*mad.Frame, error) {
		return &mad.Frame{Header: mad.CommonHeader{TransactionID: req.Header.TransactionID, Method: mad.MethodGetResp}}, nil
	}
	// Loopback needs callbacks bound to the handle; rebind with the pacer.
	h2, err := lb.Bind(ibtype.GUID(1), p)
	require.NoError(t, err)
	p.h = h2

	done := make(chan Result, 1)
	_, err = p.Send(context.Background(), mad.AttrNodeInfo, 1, nil, false, func(r Result) { done <- r })
	require.NoError(t, err)

	select {
	case r := <-done:
		require.Equal(t, OutcomeOK, r.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestSendTimesOutAfterRetriesExhausted(t *testing.T) {
	lb := transport.NewLoopback()
	opt := DefaultOptions()
	opt.TransactionTimeout = 5 * time.Millisecond
	opt.TransactionRetries = 1
	p := New(lb, 0, opt, nil)
	defer p.Stop()
	h, _ := lb.Bind(ibtype.GUID(1), p)
	p.h = h
	// No Responder set: sends never produce a response, forcing timeout.

	done := make(chan Result, 1)
	_, err := p.Send(context.Background(), mad.AttrNodeInfo, 1, nil, false, func(r Result) { done <- r })
	require.NoError(t, err)

	select {
	case r := <-done:
		require.Equal(t, OutcomeTimeout, r.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timeout outcome")
	}
}

func TestAbortCompletesAllInFlight(t *testing.T) {
	lb := transport.NewLoopback()
	opt := DefaultOptions()
	opt.MaxWireSMPs = 4
	p := New(lb, 0, opt, nil)
	defer p.Stop()
	h, _ := lb.Bind(ibtype.GUID(1), p)
	p.h = h

	done := make(chan Result, 1)
	_, err := p.Send(context.Background(), mad.AttrNodeInfo, 1, nil, false, func(r Result) { done <- r })
	require.NoError(t, err)

	p.Abort()
	select {
	case r := <-done:
		require.Equal(t, OutcomeAborted, r.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for abort")
	}
}
