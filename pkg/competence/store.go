package competence

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Store persists competence adjustments keyed by (principalID, actionType).
type Store interface {
	Get(ctx context.Context, principalID, actionType string) (*types.CompetenceAdjustment, error)
	Save(ctx context.Context, adj *types.CompetenceAdjustment) error
}

// MemoryStore is an in-process Store, the canonical test double and the
// default until a durable backend is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*types.CompetenceAdjustment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.CompetenceAdjustment)}
}

func key(principalID, actionType string) string {
	return principalID + "\x00" + actionType
}

// Get returns the stored record, or nil if none exists yet.
func (s *MemoryStore) Get(_ context.Context, principalID, actionType string) (*types.CompetenceAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key(principalID, actionType)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// Save upserts adj.
func (s *MemoryStore) Save(_ context.Context, adj *types.CompetenceAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *adj
	s.records[key(adj.PrincipalID, adj.ActionType)] = &copied
	return nil
}
