// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/mad"
)

func TestPostDeliversToRegisteredHandler(t *testing.T) {
	d := New(false)
	var got atomic.Int32
	done := make(chan struct{}, 1)
	d.Register("node_info", func(ctx context.Context, msg *mad.Frame) {
		got.Store(int32(msg.Header.TransactionID))
		done <- struct{}{}
	})
	require.NoError(t, d.Post(context.Background(), "node_info", &mad.Frame{Header: mad.CommonHeader{TransactionID: 7}}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
	require.Equal(t, int32(7), got.Load())
}

func TestPostUnknownClassErrors(t *testing.T) {
	d := New(false)
	err := d.Post(context.Background(), "unknown", &mad.Frame{})
	require.Error(t, err)
}

func TestSingleThreadModePreservesOrder(t *testing.T) {
	d := New(true)
	var order []uint64
	d.Register("x", func(ctx context.Context, msg *mad.Frame) {
		order = append(order, msg.Header.TransactionID)
	})
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, d.Post(context.Background(), "x", &mad.Frame{Header: mad.CommonHeader{TransactionID: i}}))
	}
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, order)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	d := New(false)
	d.Register("y", func(ctx context.Context, msg *mad.Frame) {})
	d.Unregister("y")
	err := d.Post(context.Background(), "y", &mad.Frame{})
	require.Error(t, err)
}
