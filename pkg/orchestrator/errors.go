package orchestrator

import "errors"

var (
	// ErrRateLimited is returned when a principal exceeds the per-principal
	// proposal backpressure limit, independent of any cartridge guardrail.
	ErrRateLimited = errors.New("orchestrator: proposal rate limit exceeded")

	// ErrEnvelopeNotPending is returned when an operation expects an
	// envelope in a status it is not currently in.
	ErrEnvelopeNotPending = errors.New("orchestrator: envelope is not in the expected status")

	// ErrApprovalNotFound is returned when an approval ID does not resolve
	// to a known request.
	ErrApprovalNotFound = errors.New("orchestrator: approval request not found")

	// ErrBindingMismatch is returned when a responder's supplied binding
	// hash does not match the one computed at approval-request creation.
	ErrBindingMismatch = errors.New("orchestrator: binding hash mismatch")

	// ErrNoUndoRecipe is returned when requestUndo is called against an
	// action that executed without producing an UndoRecipe.
	ErrNoUndoRecipe = errors.New("orchestrator: action has no undo recipe")

	// ErrUndoExpired is returned when requestUndo is called after the
	// recipe's UndoExpiresAt has passed.
	ErrUndoExpired = errors.New("orchestrator: undo window has expired")

	// ErrNeedsClarification is returned by resolveAndPropose when one or
	// more entity references in the proposal are ambiguous.
	ErrNeedsClarification = errors.New("orchestrator: entity reference needs clarification")

	// ErrEntityNotFound is returned by resolveAndPropose when an entity
	// reference cannot be resolved at all.
	ErrEntityNotFound = errors.New("orchestrator: entity reference not found")
)
