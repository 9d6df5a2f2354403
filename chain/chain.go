// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package chain provides the adapter registry mapping chain
// identifiers to their lifecycle adapters. Adapters are registered
// once at startup and resolved by key at call time.
package chain

import (
	"slices"
	"sync"

	"github.com/blinklabs-io/quoll/actioncode"
)

// Registry maps chain identifiers to adapters. It satisfies
// actioncode.AdapterResolver.
type Registry struct {
	adapters map[actioncode.Chain]actioncode.Adapter
	mu       sync.RWMutex
}

// NewRegistry creates an empty adapter Registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[actioncode.Chain]actioncode.Adapter),
	}
}

// Register adds an adapter for a chain, replacing any existing entry
func (r *Registry) Register(
	chain actioncode.Chain,
	adapter actioncode.Adapter,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[chain] = adapter
}

// Lookup resolves the adapter for a chain
func (r *Registry) Lookup(
	chain actioncode.Chain,
) (actioncode.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[chain]
	return adapter, ok
}

// Registered returns the sorted list of chains with an adapter
func (r *Registry) Registered() []actioncode.Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chains := make([]actioncode.Chain, 0, len(r.adapters))
	for chain := range r.adapters {
		chains = append(chains, chain)
	}
	slices.Sort(chains)
	return chains
}
