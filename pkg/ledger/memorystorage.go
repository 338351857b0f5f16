package ledger

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// MemoryStorage is an in-process Storage implementation. Append takes a
// single mutex for the whole log, which is the simplest way to satisfy the
// "ledger append must be strictly serialized" requirement for a
// single-process deployment.
type MemoryStorage struct {
	mu      sync.Mutex
	entries []types.AuditEntry
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Append(_ context.Context, entry types.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStorage) GetAll(_ context.Context) ([]types.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStorage) Query(_ context.Context, filter Filter) ([]types.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AuditEntry
	for _, e := range s.entries {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	return out, nil
}
