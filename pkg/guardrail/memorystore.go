package guardrail

import (
	"context"
	"sync"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

type ttlEntry struct {
	rateLimit *types.RateLimitCounterState
	cooldown  *types.CooldownState
	expiresAt time.Time
}

// MemoryStore is the canonical in-process StateStore implementation, used as
// the test double and as the default before a durable backend is wired.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*ttlEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*ttlEntry)}
}

func (s *MemoryStore) GetRateLimits(_ context.Context, keys []string) (map[string]types.RateLimitCounterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.RateLimitCounterState)
	now := time.Now()
	for _, k := range keys {
		e, ok := s.entries[k]
		if !ok || e.rateLimit == nil {
			continue
		}
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, k)
			continue
		}
		out[k] = *e.rateLimit
	}
	return out, nil
}

func (s *MemoryStore) GetCooldowns(_ context.Context, keys []string) (map[string]types.CooldownState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.CooldownState)
	now := time.Now()
	for _, k := range keys {
		e, ok := s.entries[k]
		if !ok || e.cooldown == nil {
			continue
		}
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, k)
			continue
		}
		out[k] = *e.cooldown
	}
	return out, nil
}

func (s *MemoryStore) SetRateLimit(_ context.Context, key string, state types.RateLimitCounterState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires := time.Time{}
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	copied := state
	s.entries[key] = &ttlEntry{rateLimit: &copied, expiresAt: expires}
	return nil
}

func (s *MemoryStore) SetCooldown(_ context.Context, key string, state types.CooldownState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires := time.Time{}
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	copied := state
	s.entries[key] = &ttlEntry{cooldown: &copied, expiresAt: expires}
	return nil
}
