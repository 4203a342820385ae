// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package election implements the SM state machine,
// supplemented with the full NO_STATE/DISCOVERING/STANDBY/NOT_ACTIVE/
// MASTER state set from _examples/original_source/opensm/osm_sm_state_mgr.c
// (the distilled spec folds NOT_ACTIVE into STANDBY; this keeps it as an
// explicit terminal sub-state reached on an sm_key mismatch, matching the
// original's "wait here until restarted" semantics).
package election

import (
	"sync"
	"time"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Options configures the election state machine.
type Options struct {
	Priority              uint8
	SMKey                 uint64
	PollInterval          time.Duration
	PollRetryNumber       int
}

func DefaultOptions() Options {
	return Options{PollInterval: time.Second, PollRetryNumber: 4}
}

// Candidate is what HandlePolledSMInfo compares against the local SM.
type Candidate struct {
	GUID     ibtype.GUID
	Priority uint8
}

// wins reports whether candidate c should be master over o, per the
// standard IBTA tie-break: higher priority wins; equal priority is
// broken in favor of the lower GUID.
func wins(c, o Candidate) bool {
	if c.Priority != o.Priority {
		return c.Priority > o.Priority
	}
	return c.GUID < o.GUID
}

// Election owns the local SM's state and the comparison against every
// polled peer.
type Election struct {
	self Candidate
	opt  Options
	log  *logging.Logger

	mu          sync.Mutex
	state       subnet.SMState
	missedPolls map[ibtype.GUID]int

	OnBecomeMaster  func()
	OnBecomeStandby func()
	OnNotActive     func()
}

func New(self Candidate, opt Options, log *logging.Logger) *Election {
	return &Election{
		self:        self,
		opt:         opt,
		log:         log,
		state:       subnet.SMStateDiscovering,
		missedPolls: make(map[ibtype.GUID]int),
	}
}

func (e *Election) State() subnet.SMState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Election) setState(s subnet.SMState) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	if prev == s {
		return
	}
	if e.log != nil {
		e.log.Info("sm state transition", "from", prev.String(), "to", s.String())
	}
	switch s {
	case subnet.SMStateMaster:
		if e.OnBecomeMaster != nil {
			e.OnBecomeMaster()
		}
	case subnet.SMStateStandby:
		if e.OnBecomeStandby != nil {
			e.OnBecomeStandby()
		}
	case subnet.SMStateNotActive:
		if e.OnNotActive != nil {
			e.OnNotActive()
		}
	}
}

// CompleteDiscovery transitions out of the initial DISCOVERING state
// once the first heavy sweep finishes: becomes MASTER immediately if no
// better candidate has been observed, else STANDBY.
func (e *Election) CompleteDiscovery(bestSeen *Candidate) {
	if e.State() != subnet.SMStateDiscovering {
		return
	}
	if bestSeen == nil || wins(e.self, *bestSeen) {
		e.setState(subnet.SMStateMaster)
	} else {
		e.setState(subnet.SMStateStandby)
	}
}

// HandlePolledSMInfo is called for every peer SMInfo the standby SM
// polls. It decides whether a handover is owed to or from peer.
func (e *Election) HandlePolledSMInfo(peer Candidate) (shouldHandoverToPeer bool) {
	cur := e.State()
	switch cur {
	case subnet.SMStateMaster:
		// A higher-priority (or lower-GUID-tied) peer appearing while we
		// are master means we must hand mastery over to it.
		return wins(peer, e.self)
	case subnet.SMStateStandby:
		if wins(e.self, peer) {
			// We now outrank the polled master; promote ourselves.
			e.setState(subnet.SMStateMaster)
		}
		return false
	default:
		return false
	}
}

// PollMissed records a missed SMInfo poll of the current master; after
// PollRetryNumber consecutive misses the standby SM promotes itself,
// assuming the master has failed.
func (e *Election) PollMissed(master ibtype.GUID) {
	e.mu.Lock()
	e.missedPolls[master]++
	missed := e.missedPolls[master]
	e.mu.Unlock()
	if e.State() == subnet.SMStateStandby && missed >= e.opt.PollRetryNumber {
		e.setState(subnet.SMStateMaster)
	}
}

// PollSucceeded clears the miss counter for master.
func (e *Election) PollSucceeded(master ibtype.GUID) {
	e.mu.Lock()
	delete(e.missedPolls, master)
	e.mu.Unlock()
}

// AcceptHandover is called when a SMInfo Set with a HANDOVER attribute
// targets this SM while it is STANDBY; it promotes directly rather than
// waiting out the poll-miss timeout.
func (e *Election) AcceptHandover() {
	if e.State() == subnet.SMStateStandby {
		e.setState(subnet.SMStateMaster)
	}
}

// YieldTo demotes this SM to STANDBY after sending a handover to a
// higher-ranked peer.
func (e *Election) YieldTo(peer Candidate) {
	if e.State() == subnet.SMStateMaster && wins(peer, e.self) {
		e.setState(subnet.SMStateStandby)
	}
}

// ValidateSMKey checks an inbound SM request's sm_key against ours,
// demoting to NOT_ACTIVE on mismatch
// (a terminal sub-state until operator intervention, matching
// osm_sm_state_mgr.c's NOT_ACTIVE).
func (e *Election) ValidateSMKey(key uint64) bool {
	if e.opt.SMKey != 0 && key != 0 && key != e.opt.SMKey {
		e.setState(subnet.SMStateNotActive)
		return false
	}
	return true
}

// Self returns the local SM's election candidate.
func (e *Election) Self() Candidate { return e.self }
