package storage

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// IdentityStore persists the pieces pkg/identity.Resolve needs to rebuild a
// ResolvedIdentity: the base spec, its overlays, delegation rules, and
// per-(principal, action-type) competence records.
type IdentityStore interface {
	GetSpecByPrincipalID(ctx context.Context, principalID string) (*types.IdentitySpec, error)
	SaveSpec(ctx context.Context, spec *types.IdentitySpec) error
	ListOverlaysBySpecID(ctx context.Context, specID string) ([]*types.RoleOverlay, error)
	SaveOverlay(ctx context.Context, overlay *types.RoleOverlay) error
	GetPrincipal(ctx context.Context, principalID string) (*types.Principal, error)
	SavePrincipal(ctx context.Context, p *types.Principal) error
	SaveDelegationRule(ctx context.Context, rule *types.DelegationRule) error
	ListDelegationRules(ctx context.Context, grantorPrincipalID string) ([]*types.DelegationRule, error)
	GetCompetenceRecord(ctx context.Context, principalID, actionType string) (*types.CompetenceAdjustment, error)
	SaveCompetenceRecord(ctx context.Context, rec *types.CompetenceAdjustment) error
}

// MemoryIdentityStore is the canonical in-memory IdentityStore.
type MemoryIdentityStore struct {
	mu               sync.RWMutex
	specsByPrincipal map[string]*types.IdentitySpec
	overlaysBySpec   map[string][]*types.RoleOverlay
	principals       map[string]*types.Principal
	delegations      map[string][]*types.DelegationRule // keyed by grantor
	competence       map[string]*types.CompetenceAdjustment // keyed by principalID+":"+actionType
}

// NewMemoryIdentityStore constructs an empty store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		specsByPrincipal: make(map[string]*types.IdentitySpec),
		overlaysBySpec:   make(map[string][]*types.RoleOverlay),
		principals:       make(map[string]*types.Principal),
		delegations:      make(map[string][]*types.DelegationRule),
		competence:       make(map[string]*types.CompetenceAdjustment),
	}
}

func (s *MemoryIdentityStore) GetSpecByPrincipalID(ctx context.Context, principalID string) (*types.IdentitySpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.specsByPrincipal[principalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *spec
	return &cp, nil
}

func (s *MemoryIdentityStore) SaveSpec(ctx context.Context, spec *types.IdentitySpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *spec
	s.specsByPrincipal[spec.PrincipalID] = &cp
	return nil
}

func (s *MemoryIdentityStore) ListOverlaysBySpecID(ctx context.Context, specID string) ([]*types.RoleOverlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*types.RoleOverlay{}, s.overlaysBySpec[specID]...), nil
}

func (s *MemoryIdentityStore) SaveOverlay(ctx context.Context, overlay *types.RoleOverlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.overlaysBySpec[overlay.TargetSpecID]
	for i, existing := range list {
		if existing.ID == overlay.ID {
			list[i] = overlay
			return nil
		}
	}
	s.overlaysBySpec[overlay.TargetSpecID] = append(list, overlay)
	return nil
}

func (s *MemoryIdentityStore) GetPrincipal(ctx context.Context, principalID string) (*types.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[principalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryIdentityStore) SavePrincipal(ctx context.Context, p *types.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.principals[p.ID] = &cp
	return nil
}

func (s *MemoryIdentityStore) SaveDelegationRule(ctx context.Context, rule *types.DelegationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegations[rule.GrantorPrincipalID] = append(s.delegations[rule.GrantorPrincipalID], rule)
	return nil
}

func (s *MemoryIdentityStore) ListDelegationRules(ctx context.Context, grantorPrincipalID string) ([]*types.DelegationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*types.DelegationRule{}, s.delegations[grantorPrincipalID]...), nil
}

func competenceKey(principalID, actionType string) string {
	return principalID + ":" + actionType
}

func (s *MemoryIdentityStore) GetCompetenceRecord(ctx context.Context, principalID, actionType string) (*types.CompetenceAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.competence[competenceKey(principalID, actionType)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryIdentityStore) SaveCompetenceRecord(ctx context.Context, rec *types.CompetenceAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.competence[competenceKey(rec.PrincipalID, rec.ActionType)] = &cp
	return nil
}
