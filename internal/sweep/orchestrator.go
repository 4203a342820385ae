// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ibfabric/osmd/internal/logging"
)

// Phase is one unit of work the orchestrator runs while advancing
// through State. Returning an error aborts the sweep: the orchestrator
// returns to StateIdle, and the next tick or Kick starts a fresh sweep
// from StateDiscovering.
type Phase func(ctx context.Context, heavy bool) error

// Orchestrator drives one sweep generation at a time through the fixed
// state order, matching the "sweeper wakes the state manager" data flow
// of a real subnet manager. A ticker (the sweeper thread) triggers
// sweeps at sweep_interval; force_immediate_heavy_sweep and trap-driven
// wakeups (via Kick) can trigger one early.
type Orchestrator struct {
	log      *logging.Logger
	interval time.Duration
	phases   map[State]Phase

	mu        sync.Mutex
	state     State
	heavyNext atomic.Bool

	kick   chan bool // true == force heavy
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Generation increments once per completed (or aborted) sweep; SA
	// queries and metrics use it to detect staleness.
	Generation atomic.Uint64

	// OnStateChange, if set, is invoked outside any lock after every
	// state transition; the console package uses it to stream sweep
	// progress to connected diagnostics clients.
	OnStateChange func(State)
}

// New builds an Orchestrator. phases must have an entry for every
// non-Idle, non-SubnetUp state; missing phases are treated as no-ops.
func New(interval time.Duration, log *logging.Logger, phases map[State]Phase) *Orchestrator {
	return &Orchestrator{
		log:      log,
		interval: interval,
		phases:   phases,
		state:    StateIdle,
		kick:     make(chan bool, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sweeper thread.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go o.loop()
}

// Stop halts the sweeper thread and waits for any in-progress sweep's
// goroutine to return.
func (o *Orchestrator) Stop() {
	close(o.stopCh)
	o.wg.Wait()
}

// Kick requests an out-of-cycle sweep (e.g. on a trap or a heavy-sweep
// escalation decision made elsewhere); heavy forces a full discovery
// pass rather than a light one.
func (o *Orchestrator) Kick(heavy bool) {
	if heavy {
		o.heavyNext.Store(true)
	}
	select {
	case o.kick <- heavy:
	default:
	}
}

// State returns the orchestrator's current phase, for metrics/console.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) loop() {
	defer o.wg.Done()
	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-o.stopCh:
			return
		case <-t.C:
			o.runSweep(context.Background(), o.heavyNext.Swap(false))
		case heavy := <-o.kick:
			o.runSweep(context.Background(), heavy)
		}
	}
}

// runSweep walks StateDiscovering..StateSubnetUp once, running each
// phase in order. heavy is threaded through to every phase so discovery
// can decide whether to re-walk the whole fabric or trust cached state.
func (o *Orchestrator) runSweep(ctx context.Context, heavy bool) {
	o.setState(StateDiscovering)

	for s := StateDiscovering; s != StateIdle; s = s.Next() {
		phase := o.phases[s]
		if phase != nil {
			if err := phase(ctx, heavy); err != nil {
				if o.log != nil {
					o.log.Error("sweep aborted", "state", s.String(), "heavy", heavy, "err", err)
				}
				o.setState(StateIdle)
				o.Generation.Add(1)
				return
			}
		}
		o.setState(s)
		if s == StateSubnetUp {
			break
		}
	}
	o.Generation.Add(1)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.OnStateChange != nil {
		o.OnStateChange(s)
	}
}
