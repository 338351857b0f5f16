package types

import "time"

// EventType is the closed set of audit event kinds.
type EventType string

const (
	EventProposed      EventType = "action.proposed"
	EventDenied        EventType = "action.denied"
	EventApproved      EventType = "action.approved"
	EventRejected      EventType = "action.rejected"
	EventPatched       EventType = "action.patched"
	EventExecuting     EventType = "action.executing"
	EventExecuted      EventType = "action.executed"
	EventFailed        EventType = "action.failed"
	EventExpired       EventType = "action.expired"
	EventUndoRequested EventType = "action.undo_requested"

	// EventDelegationChainResolved records a depth > 1 delegation chain
	// walked to authorize a responder, independent of the response's own
	// approve/reject/patch event.
	EventDelegationChainResolved EventType = "delegation.chain_resolved"
)

// AuditEntry is one append-only, hash-chained record. EntryHash covers every
// field below except itself; PreviousEntryHash must equal the prior entry's
// EntryHash for the same ledger (or the zero hash for the first entry).
type AuditEntry struct {
	ID                  string                 `json:"id"`
	SequenceNumber      uint64                 `json:"sequence_number"`
	EventType           EventType              `json:"event_type"`
	EnvelopeID          string                 `json:"envelope_id"`
	ActionID            string                 `json:"action_id,omitempty"`
	PrincipalID         string                 `json:"principal_id"`
	Payload             map[string]interface{} `json:"payload"`
	Redactions          []string               `json:"redactions,omitempty"` // field paths removed before hashing
	CanonicalizationVersion int                `json:"canonicalization_version"`
	PreviousEntryHash   string                 `json:"previous_entry_hash"`
	EntryHash           string                 `json:"entry_hash"`
	RecordedAt          time.Time              `json:"recorded_at"`
}

// ChainLink is the minimal tuple verifyChain needs per entry, independent of
// payload content.
type ChainLink struct {
	SequenceNumber    uint64
	PreviousEntryHash string
	EntryHash         string
}

// Link returns the entry's chain-verification tuple.
func (e *AuditEntry) Link() ChainLink {
	return ChainLink{
		SequenceNumber:    e.SequenceNumber,
		PreviousEntryHash: e.PreviousEntryHash,
		EntryHash:         e.EntryHash,
	}
}
