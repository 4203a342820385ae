// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dispatch implements the message dispatcher: a set of message
// classes, one handler per class, and post() delivery with in-class
// ordering preserved in cooperative (single_thread) mode.
//
// Parallel mode is built on worker goroutines tracked by a
// sync.WaitGroup, one per class, so cross-class concurrency is unbounded
// while within-class delivery stays FIFO on that class's own goroutine —
// ordering within a class is preserved, but no ordering is guaranteed
// across classes in parallel mode.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/ibfabric/osmd/internal/mad"
)

// Handler processes one message of a given class.
type Handler func(ctx context.Context, msg *mad.Frame)

// Class identifies a message's attribute/management class pairing for
// routing purposes; the dispatcher does not interpret it further.
type Class string

// Dispatcher routes frames from the transport callback to class handlers.
type Dispatcher struct {
	single bool

	mu       sync.RWMutex
	handlers map[Class]Handler
	queues   map[Class]chan queuedMsg
	done     map[Class]chan struct{}
	wg       sync.WaitGroup

	dropped int
}

type queuedMsg struct {
	ctx context.Context
	msg *mad.Frame
}

// New creates a Dispatcher. single selects cooperative (single-thread)
// mode; false selects one worker goroutine per registered class.
func New(single bool) *Dispatcher {
	return &Dispatcher{
		single:   single,
		handlers: make(map[Class]Handler),
		queues:   make(map[Class]chan queuedMsg),
		done:     make(map[Class]chan struct{}),
	}
}

// Register binds h as the handler for class c, starting its worker
// goroutine (unless running in single-thread mode, where Post invokes
// handlers inline on the caller's goroutine to guarantee total order).
func (d *Dispatcher) Register(c Class, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[c] = h
	if d.single {
		return
	}
	q := make(chan queuedMsg, 256)
	done := make(chan struct{})
	d.queues[c] = q
	d.done[c] = done
	d.wg.Add(1)
	go d.worker(c, q, done)
}

func (d *Dispatcher) worker(c Class, q chan queuedMsg, done chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case m, ok := <-q:
			if !ok {
				return
			}
			d.mu.RLock()
			h := d.handlers[c]
			d.mu.RUnlock()
			if h != nil {
				h(m.ctx, m.msg)
			}
		case <-done:
			// Drain remaining queued messages before exiting.
			// Unregister has already removed the handler, so drained
			// messages find none and are discarded.
			for {
				select {
				case m, ok := <-q:
					if !ok {
						return
					}
					d.mu.RLock()
					h := d.handlers[c]
					d.mu.RUnlock()
					if h != nil {
						h(m.ctx, m.msg)
					}
				default:
					return
				}
			}
		}
	}
}

// Post delivers msg to class c's handler exactly once.
func (d *Dispatcher) Post(ctx context.Context, c Class, msg *mad.Frame) error {
	d.mu.RLock()
	h := d.handlers[c]
	q, hasQueue := d.queues[c]
	d.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("dispatch: no handler registered for class %q", c)
	}
	if d.single || !hasQueue {
		h(ctx, msg)
		return nil
	}
	select {
	case q <- queuedMsg{ctx: ctx, msg: msg}:
		return nil
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		return fmt.Errorf("dispatch: class %q queue full, message dropped", c)
	}
}

// Unregister synchronously stops class c's worker; after it returns, no
// further invocations of that handler occur.
func (d *Dispatcher) Unregister(c Class) {
	d.mu.Lock()
	delete(d.handlers, c)
	done, ok := d.done[c]
	q := d.queues[c]
	delete(d.done, c)
	delete(d.queues, c)
	d.mu.Unlock()
	if ok {
		close(done)
		close(q)
	}
}

// Shutdown stops every worker and waits for them to drain.
func (d *Dispatcher) Shutdown() {
	d.mu.RLock()
	classes := make([]Class, 0, len(d.handlers))
	for c := range d.handlers {
		classes = append(classes, c)
	}
	d.mu.RUnlock()
	for _, c := range classes {
		d.Unregister(c)
	}
	d.wg.Wait()
}

// DroppedCount reports how many Post calls hit a full queue and were
// dropped (observability only; the caller already logs/retries through
// its own error taxonomy).
func (d *Dispatcher) DroppedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
