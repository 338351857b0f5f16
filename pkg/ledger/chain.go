// Package ledger implements the append-only, hash-chained audit log:
// redaction-before-hash, entry hashing, and chain verification.
package ledger

import (
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/actiongov/pkg/canonicalize"
	"github.com/Mindburn-Labs/actiongov/pkg/config"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// ErrChainBroken is a fatal integrity error: the caller must stop and
// surface it, never silently retry.
var ErrChainBroken = errors.New("ledger: chain integrity violation")

// ZeroHash is the previousEntryHash recorded on the first entry of a log.
const ZeroHash = ""

// hashableEntry is the subset of AuditEntry fields that feed entryHash; it
// deliberately excludes EntryHash itself and the pre-redaction payload. Field
// order here has no bearing on the hash since canonicalize sorts keys.
type hashableEntry struct {
	ID                      string                 `json:"id"`
	SequenceNumber          uint64                 `json:"sequence_number"`
	EventType               types.EventType        `json:"event_type"`
	EnvelopeID              string                 `json:"envelope_id"`
	ActionID                string                 `json:"action_id,omitempty"`
	PrincipalID             string                 `json:"principal_id"`
	Payload                 map[string]interface{} `json:"payload"`
	Redactions              []string               `json:"redactions,omitempty"`
	CanonicalizationVersion int                    `json:"canonicalization_version"`
	PreviousEntryHash       string                 `json:"previous_entry_hash"`
	RecordedAt              string                 `json:"recorded_at"`
}

// BuildEntry applies redaction to payload (before hashing, per the
// invariant that the stored snapshot and the hashed snapshot are the same
// bytes) and computes the new entry's hash given the previous entry's hash.
func BuildEntry(entry types.AuditEntry, redaction config.RedactionConfig) (types.AuditEntry, error) {
	redacted, paths := Redact(entry.Payload, redaction)
	entry.Payload = redacted
	entry.Redactions = paths

	hashable := hashableEntry{
		ID:                      entry.ID,
		SequenceNumber:          entry.SequenceNumber,
		EventType:               entry.EventType,
		EnvelopeID:              entry.EnvelopeID,
		ActionID:                entry.ActionID,
		PrincipalID:             entry.PrincipalID,
		Payload:                 entry.Payload,
		Redactions:              entry.Redactions,
		CanonicalizationVersion: entry.CanonicalizationVersion,
		PreviousEntryHash:       entry.PreviousEntryHash,
		RecordedAt:              entry.RecordedAt.Format("2006-01-02T15:04:05.000000000Z07:00"),
	}

	hash, err := canonicalize.Hash(hashable)
	if err != nil {
		return types.AuditEntry{}, fmt.Errorf("ledger: hash entry: %w", err)
	}
	entry.EntryHash = hash
	return entry, nil
}

// VerifyChain walks entries in order and returns the zero-based index of the
// first broken link (a previousEntryHash that does not match the prior
// entry's entryHash), or -1 if the chain is intact.
func VerifyChain(entries []types.AuditEntry) int {
	for i, e := range entries {
		expectedPrev := ZeroHash
		if i > 0 {
			expectedPrev = entries[i-1].EntryHash
		}
		if e.PreviousEntryHash != expectedPrev {
			return i
		}
	}
	return -1
}

// Mismatch describes one entry whose recomputed hash disagrees with its
// stored entryHash.
type Mismatch struct {
	Index    int
	Expected string
	Actual   string
}

// DeepVerify recomputes every entry's hash from its fields (using the same
// canonicalization version the entry was recorded with) and reports any
// mismatches, in addition to structural chain breaks.
func DeepVerify(entries []types.AuditEntry, redaction config.RedactionConfig) ([]Mismatch, int) {
	var mismatches []Mismatch
	for i, e := range entries {
		recomputed, err := BuildEntry(types.AuditEntry{
			ID:                      e.ID,
			SequenceNumber:          e.SequenceNumber,
			EventType:               e.EventType,
			EnvelopeID:              e.EnvelopeID,
			ActionID:                e.ActionID,
			PrincipalID:             e.PrincipalID,
			Payload:                 e.Payload,
			CanonicalizationVersion: e.CanonicalizationVersion,
			PreviousEntryHash:       e.PreviousEntryHash,
			RecordedAt:              e.RecordedAt,
		}, redaction)
		if err != nil {
			mismatches = append(mismatches, Mismatch{Index: i, Expected: e.EntryHash, Actual: "error: " + err.Error()})
			continue
		}
		if recomputed.EntryHash != e.EntryHash {
			mismatches = append(mismatches, Mismatch{Index: i, Expected: e.EntryHash, Actual: recomputed.EntryHash})
		}
	}
	return mismatches, VerifyChain(entries)
}
