// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package transport defines a "send a management datagram; receive
// callbacks" abstraction that treats the physical wire as an external
// collaborator: the wire framing, CRC, and QP0/QP1 delivery live outside
// this module. Only Handle, the three calls, and the two callbacks are
// in scope here.
//
// Loopback provides an in-process implementation used by tests and by
// the bundled simulator (cmd/osmd's -simulate mode) so the rest of the
// subnet manager can be exercised without real fabric hardware.
package transport

import (
	"context"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
)

// Handle identifies one bound local port.
type Handle uint64

// Callbacks is implemented by the pacer; Transport invokes these
// from its own goroutines, never synchronously inside Send.
type Callbacks interface {
	OnResponse(ctx context.Context, requestContext any, resp *mad.Frame)
	OnSendError(ctx context.Context, requestContext any, err error)
}

// Transport is the external collaborator interface every other
// component consumes. A real implementation sends over QP0/QP1; test
// code and the simulator use Loopback below.
type Transport interface {
	Bind(portGUID ibtype.GUID, cb Callbacks) (Handle, error)
	Send(ctx context.Context, h Handle, dest ibtype.LID, datagram *mad.Frame, expectResponse bool) error
	Unbind(h Handle) error
}
