package competence

import (
	"context"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Outcome is what a recorded event produced, so the caller can decide
// whether to emit a transition audit entry.
type Outcome struct {
	Adjustment       types.CompetenceAdjustment
	TrustTransitioned bool
	DenyTransitioned  bool
}

// Tracker composes a Store with a Config to provide the public recording API.
type Tracker struct {
	store Store
	cfg   Config
}

// NewTracker constructs a Tracker over store using cfg.
func NewTracker(store Store, cfg Config) *Tracker {
	return &Tracker{store: store, cfg: cfg}
}

// GetAdjustment returns the current record for (principalID, actionType), or
// nil if none exists yet.
func (t *Tracker) GetAdjustment(ctx context.Context, principalID, actionType string) (*types.CompetenceAdjustment, error) {
	return t.store.Get(ctx, principalID, actionType)
}

func (t *Tracker) loadOrInit(ctx context.Context, principalID, actionType string) (*types.CompetenceAdjustment, error) {
	adj, err := t.store.Get(ctx, principalID, actionType)
	if err != nil {
		return nil, err
	}
	if adj == nil {
		adj = &types.CompetenceAdjustment{PrincipalID: principalID, ActionType: actionType}
	}
	return adj, nil
}

// RecordSuccess records a success outcome for (principalID, actionType).
func (t *Tracker) RecordSuccess(ctx context.Context, principalID, actionType string) (Outcome, error) {
	adj, err := t.loadOrInit(ctx, principalID, actionType)
	if err != nil {
		return Outcome{}, err
	}
	transitioned := RecordSuccess(adj, t.cfg)
	if err := t.store.Save(ctx, adj); err != nil {
		return Outcome{}, err
	}
	return Outcome{Adjustment: *adj, TrustTransitioned: transitioned}, nil
}

// RecordFailure records a failure outcome for (principalID, actionType).
func (t *Tracker) RecordFailure(ctx context.Context, principalID, actionType string) (Outcome, error) {
	adj, err := t.loadOrInit(ctx, principalID, actionType)
	if err != nil {
		return Outcome{}, err
	}
	transitioned := RecordFailure(adj, t.cfg)
	if err := t.store.Save(ctx, adj); err != nil {
		return Outcome{}, err
	}
	return Outcome{Adjustment: *adj, DenyTransitioned: transitioned}, nil
}

// RecordRollback records a rollback against the original action's adjustment.
func (t *Tracker) RecordRollback(ctx context.Context, principalID, actionType string) (Outcome, error) {
	adj, err := t.loadOrInit(ctx, principalID, actionType)
	if err != nil {
		return Outcome{}, err
	}
	RecordRollback(adj, t.cfg)
	if err := t.store.Save(ctx, adj); err != nil {
		return Outcome{}, err
	}
	return Outcome{Adjustment: *adj}, nil
}
