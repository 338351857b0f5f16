package types

import "time"

// EnvelopeStatus is the closed set of lifecycle states.
type EnvelopeStatus string

const (
	StatusProposed        EnvelopeStatus = "proposed"
	StatusPendingApproval EnvelopeStatus = "pending_approval"
	StatusApproved        EnvelopeStatus = "approved"
	StatusExecuting       EnvelopeStatus = "executing"
	StatusExecuted        EnvelopeStatus = "executed"
	StatusFailed          EnvelopeStatus = "failed"
	StatusDenied          EnvelopeStatus = "denied"
	StatusExpired         EnvelopeStatus = "expired"
)

// envelopeTransitions enumerates the legal status graph:
// proposed -> {denied, pending_approval, approved}
// pending_approval -> {approved, denied, expired}
// approved -> {executing}
// executing -> {executed, failed}
var envelopeTransitions = map[EnvelopeStatus]map[EnvelopeStatus]bool{
	StatusProposed: {
		StatusDenied:          true,
		StatusPendingApproval: true,
		StatusApproved:        true,
	},
	StatusPendingApproval: {
		StatusApproved: true,
		StatusDenied:   true,
		StatusExpired:  true,
	},
	StatusApproved: {
		StatusExecuting: true,
	},
	StatusExecuting: {
		StatusExecuted: true,
		StatusFailed:   true,
	},
}

// CanTransition reports whether from -> to is a legal envelope transition.
func CanTransition(from, to EnvelopeStatus) bool {
	return envelopeTransitions[from][to]
}

// ExecuteResult is what a cartridge's execute() returns.
type ExecuteResult struct {
	Success           bool                   `json:"success"`
	Summary           string                 `json:"summary"`
	ExternalRefs      []string               `json:"external_refs,omitempty"`
	RollbackAvailable bool                   `json:"rollback_available"`
	PartialFailures   []string               `json:"partial_failures,omitempty"`
	DurationMs        int64                  `json:"duration_ms"`
	UndoRecipe        *UndoRecipe            `json:"undo_recipe,omitempty"`
	Raw               map[string]interface{} `json:"raw,omitempty"`
}

// UndoRecipe is the reverse action a cartridge supplies after a successful
// execute, consumed by the undo operation.
type UndoRecipe struct {
	OriginalActionID   string                 `json:"original_action_id"`
	OriginalEnvelopeID string                 `json:"original_envelope_id"`
	ReverseActionType  string                 `json:"reverse_action_type"`
	ReverseParameters  map[string]interface{} `json:"reverse_parameters"`
	UndoExpiresAt      time.Time              `json:"undo_expires_at"`
	UndoRiskCategory   RiskCategory           `json:"undo_risk_category"`
	UndoApprovalRequired bool                 `json:"undo_approval_required"`
}

// ResolvedEntity is the outcome of resolving one user-supplied reference
// via pkg/entity.
type ResolvedEntity struct {
	InputRef     string  `json:"input_ref"`
	EntityType   string  `json:"entity_type"`
	ResolvedID   string  `json:"resolved_id"`
	ResolvedName string  `json:"resolved_name"`
	Confidence   float64 `json:"confidence"`
}

// ActionEnvelope is the unit of lifecycle.
type ActionEnvelope struct {
	ID                string            `json:"id"`
	Version           int               `json:"version"` // starts at 1, bumped on any mutation of proposals
	OriginalMessage    *string           `json:"original_message"`
	ConversationID     string            `json:"conversation_id"`
	Proposals          []ActionProposal  `json:"proposals"`
	ResolvedEntities   []ResolvedEntity  `json:"resolved_entities,omitempty"`
	Plan               *ActionPlan       `json:"plan,omitempty"`
	DecisionTraces     []DecisionTrace   `json:"decision_traces"`
	ApprovalRequestIDs []string          `json:"approval_request_ids,omitempty"`
	ExecutionResults   []ExecuteResult   `json:"execution_results,omitempty"`
	AuditEntryIDs      []string          `json:"audit_entry_ids,omitempty"`
	Status             EnvelopeStatus    `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	ParentEnvelopeID   string            `json:"parent_envelope_id,omitempty"`

	// OrganizationID/Metadata mirror the ProposeRequest that created this
	// envelope, retained so a later patch's mandatory re-evaluation (see
	// CanTransition/respondToApproval) runs against the same evaluation
	// context as the original proposal, not a stripped-down approximation.
	OrganizationID string                 `json:"organization_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// LatestTrace returns the most recently appended decision trace, or nil.
func (e *ActionEnvelope) LatestTrace() *DecisionTrace {
	if len(e.DecisionTraces) == 0 {
		return nil
	}
	return &e.DecisionTraces[len(e.DecisionTraces)-1]
}
