// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sweep implements the state manager orchestrator: the
// per-sweep state machine that drives discovery, LID assignment,
// unicast/multicast routing, and link-state setting to completion, plus
// the heavy-vs-light sweep distinction and force_immediate_heavy_sweep.
package sweep

// State is one phase of a sweep, in a fixed order.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateMasterDiscoveryDone
	StateConfiguringLIDs
	StateConfiguringUnicast
	StateConfiguringMulticast
	StateSettingLinkState
	StateSubnetUp
)

func (s State) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StateMasterDiscoveryDone:
		return "master_discovery_done"
	case StateConfiguringLIDs:
		return "configuring_lids"
	case StateConfiguringUnicast:
		return "configuring_unicast"
	case StateConfiguringMulticast:
		return "configuring_multicast"
	case StateSettingLinkState:
		return "setting_link_state"
	case StateSubnetUp:
		return "subnet_up"
	default:
		return "idle"
	}
}

// next is the fixed, linear state order; a sweep does not skip states,
// though a light sweep may find each step a no-op.
var next = map[State]State{
	StateIdle:                     StateDiscovering,
	StateDiscovering:              StateMasterDiscoveryDone,
	StateMasterDiscoveryDone:      StateConfiguringLIDs,
	StateConfiguringLIDs:          StateConfiguringUnicast,
	StateConfiguringUnicast:       StateConfiguringMulticast,
	StateConfiguringMulticast:     StateSettingLinkState,
	StateSettingLinkState:         StateSubnetUp,
	StateSubnetUp:                 StateIdle,
}

func (s State) Next() State { return next[s] }
