// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package pacer implements the transaction pacer: it bounds the number
// of outstanding management datagrams, retries on timeout, and
// demultiplexes responses back to their waiter by transaction id.
//
// Admission control is a golang.org/x/sync/semaphore.Weighted sized
// max_wire_smps, matching the teacher's worker-pool admission pattern;
// deadline tracking is a ticker-driven sweep over the in-flight table,
// functionally the "timer wheel" the design calls for without the extra
// machinery a literal wheel needs at this scale.
package pacer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/osmerr"
	"github.com/ibfabric/osmd/internal/transport"

	"github.com/google/uuid"
)

// Outcome is passed to OnComplete exactly once per transaction.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimeout
	OutcomeAborted
	OutcomeTransportError
)

// Result is delivered to the caller's completion callback.
type Result struct {
	Outcome Outcome
	Frame   *mad.Frame
	Err     error
}

// OnComplete is invoked exactly once with the terminal Result for a
// transaction.
type OnComplete func(Result)

// Options configures pacer thresholds.
type Options struct {
	MaxWireSMPs      uint32
	MaxWireSMPs2     uint32
	MaxSMPsTimeout   time.Duration
	TransactionTimeout time.Duration
	TransactionRetries int
	// TimeoutBurstThreshold aborts the current sweep (via the AbortSweep hook, when set) when
	// this many timeouts land within one sweep generation.
	TimeoutBurstThreshold int
}

func DefaultOptions() Options {
	return Options{
		MaxWireSMPs:        4,
		MaxWireSMPs2:       8,
		MaxSMPsTimeout:     8 * time.Second,
		TransactionTimeout: 200 * time.Millisecond,
		TransactionRetries: 3,
		TimeoutBurstThreshold: 16,
	}
}

type entry struct {
	tid        uint64
	traceID    uuid.UUID
	handle     transport.Handle
	dest       ibtype.LID
	attr       mad.AttrID
	payload    []byte
	deadline   time.Time
	retriesLeft int
	onComplete OnComplete
	extended   bool
	done       bool
}

// Pacer bounds and tracks outstanding management transactions.
type Pacer struct {
	opt   Options
	tr    transport.Transport
	h     transport.Handle
	log   *logging.Logger
	sem   *semaphore.Weighted

	mu       sync.Mutex
	inFlight map[uint64]*entry
	nextTID  atomic.Uint64

	timeoutsThisSweep atomic.Int32
	AbortSweep        func() // called when burst threshold is exceeded

	// Unsolicited, if set, receives every inbound frame that is not a
	// reply to a transaction this pacer issued (a node-originated
	// Trap/Report). The trap engine wires this to its own decode+forward
	// path.
	Unsolicited func(ctx context.Context, frame *mad.Frame)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Pacer bound to handle h on transport tr.
func New(tr transport.Transport, h transport.Handle, opt Options, log *logging.Logger) *Pacer {
	p := &Pacer{
		opt:      opt,
		tr:       tr,
		h:        h,
		log:      log,
		sem:      semaphore.NewWeighted(int64(opt.MaxWireSMPs)),
		inFlight: make(map[uint64]*entry),
		stopCh:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.sweepLoop()
	return p
}

// Bind resolves Transport.Bind and New's chicken-and-egg dependency: a
// Pacer needs a bound Handle to exist, but the handle's Callbacks is the
// Pacer itself. Bind obtains a placeholder handle, constructs the Pacer,
// then rebinds portGUID with the Pacer as Callbacks and adopts the
// resulting handle.
func Bind(tr transport.Transport, portGUID ibtype.GUID, opt Options, log *logging.Logger) (*Pacer, error) {
	h, err := tr.Bind(portGUID, nil)
	if err != nil {
		return nil, fmt.Errorf("pacer: initial bind: %w", err)
	}
	p := New(tr, h, opt, log)
	h2, err := tr.Bind(portGUID, p)
	if err != nil {
		p.Stop()
		return nil, fmt.Errorf("pacer: rebind with callbacks: %w", err)
	}
	p.h = h2
	return p, nil
}

// Stop halts the deadline sweep goroutine; outstanding transactions are
// left to complete or be explicitly dropped by the caller.
func (p *Pacer) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// ResetSweepCounters clears the per-sweep timeout burst counter; called
// by the state manager at the start of each new sweep generation.
func (p *Pacer) ResetSweepCounters() { p.timeoutsThisSweep.Store(0) }

// Send enqueues a management datagram. It blocks (parallel mode) until
// an admission slot is free, honoring max_wire_smps; ctx cancellation
// aborts the wait. extended requests the max_wire_smps2/max_smps_timeout
// soft cap's extended deadline for long-latency replies (e.g. GetTable).
func (p *Pacer) Send(ctx context.Context, attr mad.AttrID, dest ibtype.LID, payload []byte, extended bool, onComplete OnComplete) (uint64, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("pacer: waiting for send slot: %w", err)
	}
	tid := p.nextTID.Add(1)
	timeout := p.opt.TransactionTimeout
	if extended {
		timeout = p.opt.MaxSMPsTimeout
	}
	e := &entry{
		tid:        tid,
		traceID:    uuid.New(),
		handle:     p.h,
		dest:       dest,
		attr:       attr,
		payload:    payload,
		deadline:   time.Now().Add(timeout),
		retriesLeft: p.opt.TransactionRetries,
		onComplete: onComplete,
		extended:   extended,
	}
	p.mu.Lock()
	p.inFlight[tid] = e
	p.mu.Unlock()

	if err := p.transmit(ctx, e); err != nil {
		p.finish(e, Result{Outcome: OutcomeTransportError, Err: err})
		return tid, nil
	}
	return tid, nil
}

func (p *Pacer) transmit(ctx context.Context, e *entry) error {
	frame := &mad.Frame{
		Header: mad.CommonHeader{
			Class:         mad.ClassSubnet,
			Method:        mad.MethodGet,
			TransactionID: e.tid,
			AttrID:        e.attr,
		},
		Smp: &mad.SmpBody{Payload: e.payload},
	}
	return p.tr.Send(ctx, e.handle, e.dest, frame, true)
}

// OnResponse implements transport.Callbacks; requestContext is the
// transaction id stamped at Send time, except for a spontaneous
// Trap/Report a node sends without being asked, which carries no tid the
// pacer ever issued. Those are routed to Unsolicited, if set, instead of
// being dropped as a stale reply.
func (p *Pacer) OnResponse(ctx context.Context, requestContext any, resp *mad.Frame) {
	tid, ok := requestContext.(uint64)
	if !ok {
		if p.Unsolicited != nil {
			p.Unsolicited(ctx, resp)
		}
		return
	}
	p.mu.Lock()
	e, ok := p.inFlight[tid]
	p.mu.Unlock()
	if !ok {
		if resp.Header.Method == mad.MethodTrap || resp.Header.Method == mad.MethodReport {
			if p.Unsolicited != nil {
				p.Unsolicited(ctx, resp)
			}
			return
		}
		// unknown tid: late or duplicate response; it is dropped and not counted.
		return
	}
	p.finish(e, Result{Outcome: OutcomeOK, Frame: resp})
}

// OnSendError implements transport.Callbacks.
func (p *Pacer) OnSendError(ctx context.Context, requestContext any, err error) {
	tid, ok := requestContext.(uint64)
	if !ok {
		return
	}
	p.mu.Lock()
	e, ok := p.inFlight[tid]
	p.mu.Unlock()
	if !ok {
		return
	}
	p.finish(e, Result{Outcome: OutcomeTransportError, Err: osmerr.Wrap(osmerr.KindTransport, err, "transport send error")})
}

// Abort completes every in-flight transaction with OutcomeAborted and
// clears the table; used when a sweep is superseded.
func (p *Pacer) Abort() {
	p.mu.Lock()
	entries := make([]*entry, 0, len(p.inFlight))
	for _, e := range p.inFlight {
		entries = append(entries, e)
	}
	p.inFlight = make(map[uint64]*entry)
	p.mu.Unlock()
	for _, e := range entries {
		p.complete(e, Result{Outcome: OutcomeAborted})
	}
}

func (p *Pacer) finish(e *entry, r Result) {
	p.mu.Lock()
	delete(p.inFlight, e.tid)
	p.mu.Unlock()
	p.sem.Release(1)
	p.complete(e, r)
}

func (p *Pacer) complete(e *entry, r Result) {
	p.mu.Lock()
	already := e.done
	e.done = true
	p.mu.Unlock()
	if already {
		return
	}
	if r.Outcome == OutcomeTimeout {
		if n := p.timeoutsThisSweep.Add(1); int(n) >= p.opt.TimeoutBurstThreshold && p.AbortSweep != nil {
			p.AbortSweep()
		}
	}
	if p.log != nil {
		p.log.Debug("transaction complete", "tid", e.tid, "trace", e.traceID.String(), "outcome", r.Outcome)
	}
	if e.onComplete != nil {
		e.onComplete(r)
	}
}

func (p *Pacer) sweepLoop() {
	defer p.wg.Done()
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case now := <-t.C:
			p.sweepOnce(now)
		}
	}
}

func (p *Pacer) sweepOnce(now time.Time) {
	p.mu.Lock()
	var expired []*entry
	for _, e := range p.inFlight {
		if !now.Before(e.deadline) {
			expired = append(expired, e)
		}
	}
	p.mu.Unlock()

	for _, e := range expired {
		if e.retriesLeft <= 0 {
			p.finish(e, Result{Outcome: OutcomeTimeout, Err: osmerr.New(osmerr.KindTimeout, "transaction retries exhausted")})
			continue
		}
		p.mu.Lock()
		e.retriesLeft--
		timeout := p.opt.TransactionTimeout
		if e.extended {
			timeout = p.opt.MaxSMPsTimeout
		}
		e.deadline = now.Add(timeout)
		p.mu.Unlock()
		_ = p.transmit(context.Background(), e)
	}
}

// InFlightCount reports the number of outstanding transactions.
func (p *Pacer) InFlightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}
