package storage

import (
	"context"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/Mindburn-Labs/actiongov/pkg/config"
)

// PolicyStore persists the single active policy bundle and its definitions.
// Saving an older-versioned bundle than the one already active is a no-op,
// per config.IsNewerThan's semver comparison.
type PolicyStore interface {
	ListActive(ctx context.Context) ([]config.PolicyDefinition, error)
	Save(ctx context.Context, bundle *config.PolicyBundle, version *semver.Version) error
}

// MemoryPolicyStore is the canonical in-memory PolicyStore.
type MemoryPolicyStore struct {
	mu      sync.RWMutex
	active  *config.PolicyBundle
	version *semver.Version
}

// NewMemoryPolicyStore constructs an empty store.
func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{}
}

func (s *MemoryPolicyStore) Save(ctx context.Context, bundle *config.PolicyBundle, version *semver.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !config.IsNewerThan(version, s.version) {
		return nil
	}
	s.active = bundle
	s.version = version
	return nil
}

func (s *MemoryPolicyStore) ListActive(ctx context.Context) ([]config.PolicyDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, nil
	}
	return append([]config.PolicyDefinition{}, s.active.Policies...), nil
}
