// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ucast

import (
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// EngineContext is the input every routing engine computes against.
// Callers must hold the subnet's writer lock for the duration of Compute.
type EngineContext struct {
	Subnet      *subnet.Subnet
	MaxUcastLID ibtype.LID
}

// Engine computes the min-hop matrix and LFT for every switch in the
// subnet. Implementations: MinHopEngine, UpDnEngine; ftree, lash, dor,
// torus, and file-based engines exist in opensm but are out of scope
// here (see DESIGN.md).
type Engine interface {
	Name() string
	Compute(ctx *EngineContext) error
}

// Registry resolves an engine by the name used in routing_engine,
// trying engines in the configured fallback order until one succeeds
// (no_fallback disables all but the first).
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	r := &Registry{engines: make(map[string]Engine)}
	r.Register(MinHopEngine{})
	r.Register(UpDnEngine{})
	return r
}

func (r *Registry) Register(e Engine) { r.engines[e.Name()] = e }

func (r *Registry) Get(name string) (Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Run tries each named engine in order, stopping at the first that
// computes successfully; if noFallback is set only the first is tried.
func (r *Registry) Run(ctx *EngineContext, names []string, noFallback bool) (string, error) {
	if len(names) == 0 {
		names = []string{"minhop"}
	}
	var lastErr error
	for i, name := range names {
		e, ok := r.Get(name)
		if !ok {
			lastErr = fmt.Errorf("unknown routing engine %q", name)
			if noFallback {
				break
			}
			continue
		}
		if err := e.Compute(ctx); err != nil {
			lastErr = fmt.Errorf("routing engine %q: %w", name, err)
			if noFallback || i == len(names)-1 {
				break
			}
			continue
		}
		return name, nil
	}
	return "", lastErr
}
