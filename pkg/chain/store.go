// Package chain sequences multiple task goals, threading the output of
// one goal into the planning context of the next, with checkpointing so
// a crashed chain resumes instead of re-executing completed goals.
package chain

import (
	"context"
	"sync"

	"github.com/entrhq/autopilot/pkg/types"
)

// Store persists chain checkpoints.
type Store interface {
	// Save persists the chain state. Called after every goal reaches a
	// terminal state, bounding crash re-work to one in-flight goal.
	Save(ctx context.Context, state *types.ChainState) error

	// Load returns the persisted state for a chain, or nil when no
	// checkpoint exists.
	Load(ctx context.Context, chainID string) (*types.ChainState, error)
}

// MemoryStore is an in-process Store for tests and one-shot runs.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*types.ChainState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*types.ChainState)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, state *types.ChainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ChainID] = cloneState(state)
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, chainID string) (*types.ChainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[chainID]
	if !ok {
		return nil, nil
	}
	return cloneState(state), nil
}

// cloneState copies state so callers cannot mutate the stored copy.
func cloneState(state *types.ChainState) *types.ChainState {
	clone := types.NewChainState(state.ChainID)
	clone.UpdatedAt = state.UpdatedAt
	for idx := range state.Completed {
		clone.Completed[idx] = state.Completed[idx]
	}
	for idx, res := range state.Results {
		clone.Results[idx] = res
	}
	return clone
}
