// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSweepVisitsStatesInOrder(t *testing.T) {
	var mu sync.Mutex
	var visited []State

	phases := map[State]Phase{}
	for s := StateDiscovering; s != StateIdle; s = s.Next() {
		st := s
		phases[st] = func(ctx context.Context, heavy bool) error {
			mu.Lock()
			visited = append(visited, st)
			mu.Unlock()
			return nil
		}
		if st == StateSubnetUp {
			break
		}
	}

	o := New(time.Hour, nil, phases)
	o.runSweep(context.Background(), false)

	require.Equal(t, []State{
		StateDiscovering, StateMasterDiscoveryDone, StateConfiguringLIDs,
		StateConfiguringUnicast, StateConfiguringMulticast, StateSettingLinkState, StateSubnetUp,
	}, visited)
	require.Equal(t, uint64(1), o.Generation.Load())
}

func TestRunSweepAbortsOnPhaseError(t *testing.T) {
	var visited []State
	phases := map[State]Phase{
		StateDiscovering: func(ctx context.Context, heavy bool) error {
			visited = append(visited, StateDiscovering)
			return nil
		},
		StateMasterDiscoveryDone: func(ctx context.Context, heavy bool) error {
			return fmt.Errorf("boom")
		},
		StateConfiguringLIDs: func(ctx context.Context, heavy bool) error {
			visited = append(visited, StateConfiguringLIDs)
			return nil
		},
	}
	o := New(time.Hour, nil, phases)
	o.runSweep(context.Background(), false)

	require.Equal(t, []State{StateDiscovering}, visited)
	require.Equal(t, StateIdle, o.State())
}

func TestRunSweepPropagatesHeavyFlag(t *testing.T) {
	var gotHeavy bool
	phases := map[State]Phase{
		StateDiscovering: func(ctx context.Context, heavy bool) error {
			gotHeavy = heavy
			return nil
		},
	}
	o := New(time.Hour, nil, phases)
	o.runSweep(context.Background(), true)
	require.True(t, gotHeavy)
}

func TestKickForcesHeavyOnNextTick(t *testing.T) {
	o := New(time.Hour, nil, nil)
	o.Kick(true)
	require.True(t, o.heavyNext.Load())
}
