// Package memhost keeps host state in process memory.
package memhost

import (
	"context"
	"sync"

	"github.com/morezero/command-registry/pkg/host"
)

// Store is a mutex-guarded host.State.
type Store struct {
	mu    sync.RWMutex
	state *host.State
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{state: host.NewState()}
}

// NewOperations returns host operations over a fresh in-memory store.
func NewOperations() *host.StoreOperations {
	return host.NewStoreOperations(New())
}

// View runs fn against the current state under a read lock.
func (s *Store) View(_ context.Context, fn func(*host.State) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// Mutate runs fn against a copy and installs it only when fn succeeds.
func (s *Store) Mutate(_ context.Context, fn func(*host.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() *host.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}
