// Package storage persists action envelopes, approval requests, identity
// specs, and policy bundles behind small interfaces, each with an in-memory
// implementation and, for the envelope and approval stores, SQL-backed ones.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ErrNotFound is returned by any store when a lookup by ID has no match.
var ErrNotFound = errors.New("storage: not found")

// EnvelopeStore persists ActionEnvelope lifecycle state.
type EnvelopeStore interface {
	Save(ctx context.Context, env *types.ActionEnvelope) error
	Update(ctx context.Context, env *types.ActionEnvelope) error
	GetByID(ctx context.Context, id string) (*types.ActionEnvelope, error)
	List(ctx context.Context, filter EnvelopeFilter) ([]*types.ActionEnvelope, error)
}

// EnvelopeFilter narrows List results. Zero values are wildcards.
type EnvelopeFilter struct {
	Status      types.EnvelopeStatus
	PrincipalID string
	Limit       int
}

// MemoryEnvelopeStore is the canonical in-memory EnvelopeStore, safe for
// concurrent use.
type MemoryEnvelopeStore struct {
	mu   sync.RWMutex
	byID map[string]*types.ActionEnvelope
	// insertion order, so List results are stable and reproducible
	order []string
}

// NewMemoryEnvelopeStore constructs an empty store.
func NewMemoryEnvelopeStore() *MemoryEnvelopeStore {
	return &MemoryEnvelopeStore{byID: make(map[string]*types.ActionEnvelope)}
}

// Save inserts env, copying it so later caller mutations don't alias store
// state.
func (s *MemoryEnvelopeStore) Save(ctx context.Context, env *types.ActionEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[env.ID]; !exists {
		s.order = append(s.order, env.ID)
	}
	cp := *env
	s.byID[env.ID] = &cp
	return nil
}

// Update replaces the stored envelope for env.ID; it is an error to update an
// envelope that was never saved.
func (s *MemoryEnvelopeStore) Update(ctx context.Context, env *types.ActionEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[env.ID]; !exists {
		return ErrNotFound
	}
	cp := *env
	s.byID[env.ID] = &cp
	return nil
}

// GetByID returns a copy of the stored envelope.
func (s *MemoryEnvelopeStore) GetByID(ctx context.Context, id string) (*types.ActionEnvelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *env
	return &cp, nil
}

// List returns envelopes matching filter, in insertion order.
func (s *MemoryEnvelopeStore) List(ctx context.Context, filter EnvelopeFilter) ([]*types.ActionEnvelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.ActionEnvelope
	for _, id := range s.order {
		env := s.byID[id]
		if filter.Status != "" && env.Status != filter.Status {
			continue
		}
		if filter.PrincipalID != "" && !envelopeHasPrincipal(env, filter.PrincipalID) {
			continue
		}
		cp := *env
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func envelopeHasPrincipal(env *types.ActionEnvelope, principalID string) bool {
	for _, p := range env.Proposals {
		if p.PrincipalID() == principalID {
			return true
		}
	}
	return false
}
