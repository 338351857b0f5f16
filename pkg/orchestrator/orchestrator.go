// Package orchestrator wires identity resolution, cartridge lookup,
// guardrail state, policy evaluation, approval routing, and the audit
// ledger into the governance runtime's lifecycle operations: propose,
// respondToApproval, executeApproved, requestUndo, and simulate. It is the
// one place in the system that is allowed to call all of the others.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/actiongov/pkg/approval"
	"github.com/Mindburn-Labs/actiongov/pkg/canonicalize"
	"github.com/Mindburn-Labs/actiongov/pkg/cartridge"
	"github.com/Mindburn-Labs/actiongov/pkg/competence"
	"github.com/Mindburn-Labs/actiongov/pkg/evidence"
	"github.com/Mindburn-Labs/actiongov/pkg/guardrail"
	"github.com/Mindburn-Labs/actiongov/pkg/identity"
	"github.com/Mindburn-Labs/actiongov/pkg/ledger"
	"github.com/Mindburn-Labs/actiongov/pkg/obslog"
	"github.com/Mindburn-Labs/actiongov/pkg/policy"
	"github.com/Mindburn-Labs/actiongov/pkg/risk"
	"github.com/Mindburn-Labs/actiongov/pkg/storage"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Deps bundles every collaborator the orchestrator needs. Fields left nil
// get a safe in-memory or no-op default from New.
type Deps struct {
	Cartridges  *cartridge.Registry
	Identities  storage.IdentityStore
	Competence  competence.Store
	Guardrails  guardrail.StateStore
	Envelopes   storage.EnvelopeStore
	Approvals   storage.ApprovalStore
	Policies    storage.PolicyStore
	Ledger      *ledger.Ledger
	Evidence    evidence.Store
	Obs         *obslog.Provider
	Routing     approval.RoutingConfig
	RiskConfig  risk.ScoringConfig
	Competences competence.Config

	// ProposalRateLimit is the per-principal proposals-per-minute cap
	// enforced at the orchestrator boundary, independent of any cartridge
	// guardrail. Zero means the config.RuntimeConfig default of 30/min.
	ProposalRateLimit int
}

// Orchestrator is the top-level lifecycle runtime.
type Orchestrator struct {
	cartridges *cartridge.Registry
	identities storage.IdentityStore
	competence competence.Store
	competenceCfg competence.Config
	guardrails guardrail.StateStore
	engine     *policy.Engine
	envelopes  storage.EnvelopeStore
	approvals  storage.ApprovalStore
	policies   storage.PolicyStore
	audit      *ledger.Ledger
	evidence   evidence.Store
	obs        *obslog.Provider
	routing    approval.RoutingConfig
	clock      Clock

	limiterMu    sync.Mutex
	limiters     map[string]*rate.Limiter
	proposalRPM  int
}

// New constructs an Orchestrator over deps. Deps.Envelopes/Approvals/
// Identities/Competence/Guardrails default to their in-memory
// implementations when nil, so callers can stand up a working instance
// with only a cartridge registry and a ledger.
func New(deps Deps) *Orchestrator {
	if deps.Envelopes == nil {
		deps.Envelopes = storage.NewMemoryEnvelopeStore()
	}
	if deps.Approvals == nil {
		deps.Approvals = storage.NewMemoryApprovalStore()
	}
	if deps.Identities == nil {
		deps.Identities = storage.NewMemoryIdentityStore()
	}
	if deps.Competence == nil {
		deps.Competence = competence.NewMemoryStore()
	}
	if deps.Guardrails == nil {
		deps.Guardrails = guardrail.NewMemoryStore()
	}
	if deps.Cartridges == nil {
		deps.Cartridges = cartridge.NewRegistry()
	}
	if (deps.Competences == competence.Config{}) {
		deps.Competences = competence.DefaultConfig()
	}
	if deps.ProposalRateLimit <= 0 {
		deps.ProposalRateLimit = 30
	}

	return &Orchestrator{
		cartridges:    deps.Cartridges,
		identities:    deps.Identities,
		competence:    deps.Competence,
		competenceCfg: deps.Competences,
		guardrails:    deps.Guardrails,
		engine:        policy.NewEngine(deps.RiskConfig),
		envelopes:     deps.Envelopes,
		approvals:     deps.Approvals,
		policies:      deps.Policies,
		audit:         deps.Ledger,
		evidence:      deps.Evidence,
		obs:           deps.Obs,
		routing:       deps.Routing,
		clock:         time.Now,
		limiters:      make(map[string]*rate.Limiter),
		proposalRPM:   deps.ProposalRateLimit,
	}
}

// WithClock overrides the orchestrator's clock, for deterministic tests.
func (o *Orchestrator) WithClock(c Clock) *Orchestrator {
	o.clock = c
	return o
}

// Cartridges exposes the underlying registry so callers (e.g. a health
// endpoint) can sweep every registered cartridge without the orchestrator
// itself growing health-aggregation responsibilities.
func (o *Orchestrator) Cartridges() *cartridge.Registry {
	return o.cartridges
}

// checkBackpressure enforces the per-principal proposal rate limit. This is
// a runtime-level throttle, distinct from and evaluated before any
// cartridge-declared guardrail rate limit.
func (o *Orchestrator) checkBackpressure(principalID string) error {
	o.limiterMu.Lock()
	lim, ok := o.limiters[principalID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(o.proposalRPM)/60.0), o.proposalRPM)
		o.limiters[principalID] = lim
	}
	o.limiterMu.Unlock()

	if !lim.Allow() {
		return ErrRateLimited
	}
	return nil
}

// resolveIdentity rebuilds a ResolvedIdentity for principalID in the
// context of cartridgeID/actionType, folding in the principal's current
// competence record for actionType.
func (o *Orchestrator) resolveIdentity(ctx context.Context, principalID, cartridgeID, actionType string) (types.ResolvedIdentity, *types.CompetenceAdjustment, error) {
	spec, err := o.identities.GetSpecByPrincipalID(ctx, principalID)
	if err != nil {
		return types.ResolvedIdentity{}, nil, fmt.Errorf("orchestrator: load identity spec: %w", err)
	}

	overlays, err := o.identities.ListOverlaysBySpecID(ctx, spec.ID)
	if err != nil {
		return types.ResolvedIdentity{}, nil, fmt.Errorf("orchestrator: load overlays: %w", err)
	}

	var adjustments []types.CompetenceAdjustment
	adj, err := o.competence.Get(ctx, principalID, actionType)
	if err != nil {
		return types.ResolvedIdentity{}, nil, fmt.Errorf("orchestrator: load competence record: %w", err)
	}
	if adj != nil {
		adjustments = append(adjustments, *adj)
	}

	activation := types.ActivationContext{CartridgeID: cartridgeID, Now: o.clock()}
	resolved := identity.Resolve(spec, overlays, adjustments, activation)
	return resolved, adj, nil
}

// hydrateGuardrailState loads the rate-limit and cooldown counters a
// GuardrailSpec's rules reference for principalID/entityID.
func (o *Orchestrator) hydrateGuardrailState(ctx context.Context, spec types.GuardrailSpec, principalID, entityID string) (map[string]types.RateLimitCounterState, map[string]types.CooldownState, error) {
	rateStates := map[string]types.RateLimitCounterState{}
	cooldownStates := map[string]types.CooldownState{}
	if o.guardrails == nil {
		return rateStates, cooldownStates, nil
	}

	var rateKeys []string
	for _, rl := range spec.RateLimits {
		rateKeys = append(rateKeys, guardrail.RateLimitKey(principalID, rl.ActionType))
	}
	if len(rateKeys) > 0 {
		states, err := o.guardrails.GetRateLimits(ctx, rateKeys)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: hydrate rate limits: %w", err)
		}
		rateStates = states
	}

	var cooldownKeys []string
	if entityID != "" {
		for range spec.Cooldowns {
			cooldownKeys = append(cooldownKeys, guardrail.CooldownKey(principalID, entityID))
		}
	}
	if len(cooldownKeys) > 0 {
		states, err := o.guardrails.GetCooldowns(ctx, cooldownKeys)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: hydrate cooldowns: %w", err)
		}
		cooldownStates = states
	}

	return rateStates, cooldownStates, nil
}

// flushGuardrailState persists the post-evaluation rate-limit counters for
// an allowed (non-denied) proposal, rolling each matched limit's window
// forward by one.
func (o *Orchestrator) flushGuardrailState(ctx context.Context, spec types.GuardrailSpec, principalID, entityID string, rateStates map[string]types.RateLimitCounterState) error {
	if o.guardrails == nil {
		return nil
	}
	now := o.clock()
	for _, rl := range spec.RateLimits {
		key := guardrail.RateLimitKey(principalID, rl.ActionType)
		current := rateStates[key]
		next := guardrail.NextRateLimitState(rl, &current, now)
		ttl := time.Duration(rl.WindowSecs) * time.Second
		if err := o.guardrails.SetRateLimit(ctx, key, next, ttl); err != nil {
			return fmt.Errorf("orchestrator: flush rate limit: %w", err)
		}
	}
	if entityID != "" {
		for range spec.Cooldowns {
			key := guardrail.CooldownKey(principalID, entityID)
			if err := o.guardrails.SetCooldown(ctx, key, types.CooldownState{Key: key, LastFiredAt: now}, 0); err != nil {
				return fmt.Errorf("orchestrator: flush cooldown: %w", err)
			}
		}
	}
	return nil
}

// contextSnapshotHash canonicalizes the resolved-identity and guardrail
// state a decision was made against, so a later approval response can be
// bound to exactly the context the decision trace reflects.
func contextSnapshotHash(resolved types.ResolvedIdentity, guardrails types.GuardrailSpec) (string, error) {
	return canonicalize.Hash(struct {
		ResolvedIdentity types.ResolvedIdentity `json:"resolved_identity"`
		Guardrails       types.GuardrailSpec    `json:"guardrails"`
	}{resolved, guardrails})
}

// decisionTraceHash canonicalizes and hashes a DecisionTrace, for binding an
// approval request to the exact trace that produced it.
func decisionTraceHash(trace types.DecisionTrace) (string, error) {
	return canonicalize.Hash(trace)
}

// recordAudit appends one ledger entry and returns its ID, translating any
// ledger error (including a detected chain break) into a wrapped error.
func (o *Orchestrator) recordAudit(ctx context.Context, eventType types.EventType, envelopeID, actionID, principalID string, payload map[string]interface{}) (string, error) {
	if o.audit == nil {
		return "", nil
	}
	entry, err := o.audit.Record(ctx, ledger.RecordParams{
		EventType:   eventType,
		EnvelopeID:  envelopeID,
		ActionID:    actionID,
		PrincipalID: principalID,
		Payload:     payload,
	})
	if err != nil {
		return "", fmt.Errorf("orchestrator: record audit entry: %w", err)
	}
	return entry.ID, nil
}

// recordEvidence canonicalizes v, records it under id via pkg/evidence
// (inlining small snapshots, writing larger ones to the blob store), and
// returns a reference string: the blob ref when one was written, or
// "inline:<hash>" when the snapshot was small enough to inline. A nil
// evidence store (no blob backend configured) is a no-op returning "".
func (o *Orchestrator) recordEvidence(ctx context.Context, id string, v interface{}) (string, error) {
	if o.evidence == nil {
		return "", nil
	}
	data, err := canonicalize.JCS(v)
	if err != nil {
		return "", fmt.Errorf("orchestrator: canonicalize evidence %s: %w", id, err)
	}
	snap, err := evidence.Record(ctx, o.evidence, id, data)
	if err != nil {
		return "", fmt.Errorf("orchestrator: record evidence %s: %w", id, err)
	}
	if snap.BlobRef != "" {
		return snap.BlobRef, nil
	}
	return "inline:" + snap.Hash, nil
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// loadPolicies fetches the active policy bundle and converts its
// definitions into evaluation-ready policy.Policy values scoped to
// cartridgeID: a definition with a non-empty CartridgeIDs list only applies
// when cartridgeID is in it.
func (o *Orchestrator) loadPolicies(ctx context.Context, cartridgeID string) ([]policy.Policy, error) {
	if o.policies == nil {
		return nil, nil
	}
	defs, err := o.policies.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load active policies: %w", err)
	}

	out := make([]policy.Policy, 0, len(defs))
	for _, def := range defs {
		if len(def.CartridgeIDs) > 0 && !containsString(def.CartridgeIDs, cartridgeID) {
			continue
		}
		out = append(out, policy.Policy{
			ID:            def.ID,
			Priority:      def.Priority,
			Rule:          def.Rule,
			CELExpression: def.CELExpression,
			Effect:        policy.Effect(def.Effect),
			ApprovalLevel: types.ApprovalLevel(def.ApprovalLevel),
			Patch:         def.Patch,
		})
	}
	return out, nil
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
