package types

import "time"

// ApprovalStatus is the closed set of states an approval request passes
// through: pending -> {approved, rejected, patched, expired}.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalPatched  ApprovalStatus = "patched"
	ApprovalExpired  ApprovalStatus = "expired"
)

// ExpiredBehavior governs what happens to the envelope when an approval
// request times out with no response.
type ExpiredBehavior string

const (
	ExpiredDeny        ExpiredBehavior = "deny"
	ExpiredEscalate    ExpiredBehavior = "escalate"
	ExpiredAutoApprove ExpiredBehavior = "auto_approve" // only legal for standard-level, low-risk requests
)

// DelegationRule names one grantor -> grantee delegation edge, as stored
// through storage.IdentityStore.SaveDelegationRule and traversed by
// pkg/approval's chain resolver.
type DelegationRule struct {
	GrantorPrincipalID string    `json:"grantor_principal_id"`
	GranteePrincipalID string    `json:"grantee_principal_id"`
	Scope              []string  `json:"scope,omitempty"` // action-type prefixes; empty = all
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// PatchedField records one parameter the approver changed away from the
// value that was present when the binding hash was computed.
type PatchedField struct {
	Path     string      `json:"path"`
	OldValue interface{} `json:"old_value"`
	NewValue interface{} `json:"new_value"`
}

// ApprovalRequest is a single human-in-the-loop decision point.
type ApprovalRequest struct {
	ID                 string           `json:"id"`
	EnvelopeID         string           `json:"envelope_id"`
	ActionID           string           `json:"action_id"`
	RequiredLevel      ApprovalLevel    `json:"required_level"`
	EligibleApproverIDs []string        `json:"eligible_approver_ids"`
	BindingHash        string           `json:"binding_hash"`
	BoundParameters    map[string]interface{} `json:"bound_parameters"`
	Status             ApprovalStatus   `json:"status"`
	RespondedBy        string           `json:"responded_by,omitempty"`
	RespondedAt        *time.Time       `json:"responded_at,omitempty"`
	PatchedFields       []PatchedField  `json:"patched_fields,omitempty"`
	RejectionReason    string           `json:"rejection_reason,omitempty"`
	ExpiresAt          time.Time        `json:"expires_at"`
	OnExpiry           ExpiredBehavior  `json:"on_expiry"`
	DelegationChain     []string        `json:"delegation_chain,omitempty"` // principal IDs walked to reach an eligible approver
	CreatedAt          time.Time        `json:"created_at"`

	// ContextEvidenceRef/DecisionEvidenceRef point at the pkg/evidence
	// snapshot of the resolved-identity+guardrail context and the decision
	// trace this request was bound against, for later audit replay.
	ContextEvidenceRef  string `json:"context_evidence_ref,omitempty"`
	DecisionEvidenceRef string `json:"decision_evidence_ref,omitempty"`
}

// IsTerminal reports whether the request has left the pending state.
func (r *ApprovalRequest) IsTerminal() bool {
	return r.Status != ApprovalPending
}

// UndoRequest is a request to reverse a previously executed action via its
// UndoRecipe.
type UndoRequest struct {
	ID           string         `json:"id"`
	EnvelopeID   string         `json:"envelope_id"`
	ActionID     string         `json:"action_id"`
	Recipe       UndoRecipe     `json:"recipe"`
	Status       ApprovalStatus `json:"status"`
	RequestedBy  string         `json:"requested_by"`
	RequestedAt  time.Time      `json:"requested_at"`
}
