// Package approval implements binding-hash computation, patch application,
// the approval state machine, expiry handling, and delegation-chain
// resolution for human-in-the-loop approvals.
package approval

import (
	"crypto/subtle"

	"github.com/Mindburn-Labs/actiongov/pkg/canonicalize"
)

// BindingTuple is the exact input to the binding hash: changing any field
// here after an approval request is created must invalidate the hash.
type BindingTuple struct {
	EnvelopeID           string                 `json:"envelope_id"`
	EnvelopeVersion      int                    `json:"envelope_version"`
	ActionID             string                 `json:"action_id"`
	Parameters           map[string]interface{} `json:"parameters"`
	DecisionTraceHash    string                 `json:"decision_trace_hash"`
	ContextSnapshotHash  string                 `json:"context_snapshot_hash"`
}

// ComputeBindingHash canonicalizes and hashes tuple.
func ComputeBindingHash(tuple BindingTuple) (string, error) {
	return canonicalize.Hash(tuple)
}

// VerifyBindingHash reports whether supplied matches stored, using a
// constant-time comparison so timing does not leak how many leading bytes
// matched.
func VerifyBindingHash(stored, supplied string) bool {
	if len(stored) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
