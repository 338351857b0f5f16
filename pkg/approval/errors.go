package approval

import "errors"

var (
	// ErrNotPending is returned when a transition is attempted on an
	// approval request that has already left the pending state.
	ErrNotPending = errors.New("approval: request is not pending")

	// ErrStaleApproval is returned when a supplied binding hash does not
	// byte-match the stored one, or the request has expired.
	ErrStaleApproval = errors.New("approval: stale approval")

	// ErrUnauthorizedResponder is returned when the responding principal is
	// not an eligible approver and no delegation chain reaches one.
	ErrUnauthorizedResponder = errors.New("approval: unauthorized responder")

	// ErrUnknownResponder is returned when respondedBy does not resolve to
	// any known principal.
	ErrUnknownResponder = errors.New("approval: unknown responder")

	// ErrNoEligibleApprovers is returned at routing time when both the
	// approver list and fallback are empty and denyWhenNoApprovers is set.
	ErrNoEligibleApprovers = errors.New("approval: no eligible approvers")
)
