package storage

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ApprovalStore persists ApprovalRequest records.
type ApprovalStore interface {
	Save(ctx context.Context, req *types.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*types.ApprovalRequest, error)
	UpdateState(ctx context.Context, id string, status types.ApprovalStatus) error
	List(ctx context.Context, filter ApprovalFilter) ([]*types.ApprovalRequest, error)
}

// ApprovalFilter narrows List results. Zero values are wildcards. ApproverID
// matches requests where the principal appears in EligibleApproverIDs.
type ApprovalFilter struct {
	Status     types.ApprovalStatus
	EnvelopeID string
	ApproverID string
}

// MemoryApprovalStore is the canonical in-memory ApprovalStore.
type MemoryApprovalStore struct {
	mu    sync.RWMutex
	byID  map[string]*types.ApprovalRequest
	order []string
}

// NewMemoryApprovalStore constructs an empty store.
func NewMemoryApprovalStore() *MemoryApprovalStore {
	return &MemoryApprovalStore{byID: make(map[string]*types.ApprovalRequest)}
}

func (s *MemoryApprovalStore) Save(ctx context.Context, req *types.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[req.ID]; !exists {
		s.order = append(s.order, req.ID)
	}
	cp := *req
	s.byID[req.ID] = &cp
	return nil
}

func (s *MemoryApprovalStore) GetByID(ctx context.Context, id string) (*types.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryApprovalStore) UpdateState(ctx context.Context, id string, status types.ApprovalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	cp := *req
	cp.Status = status
	s.byID[id] = &cp
	return nil
}

func (s *MemoryApprovalStore) List(ctx context.Context, filter ApprovalFilter) ([]*types.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.ApprovalRequest
	for _, id := range s.order {
		req := s.byID[id]
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.EnvelopeID != "" && req.EnvelopeID != filter.EnvelopeID {
			continue
		}
		if filter.ApproverID != "" && !containsApprover(req.EligibleApproverIDs, filter.ApproverID) {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

func containsApprover(approverIDs []string, id string) bool {
	for _, a := range approverIDs {
		if a == id {
			return true
		}
	}
	return false
}
