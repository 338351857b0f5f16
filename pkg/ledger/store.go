package ledger

import (
	"context"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Filter narrows a ledger query.
type Filter struct {
	EnvelopeID string
	EventType  types.EventType
	PrincipalID string
}

// Storage is the abstract append-only backend. Append must be strictly
// serialized (globally or per logical log) so previousEntryHash consistency
// holds under concurrent callers.
type Storage interface {
	Append(ctx context.Context, entry types.AuditEntry) error
	GetAll(ctx context.Context) ([]types.AuditEntry, error)
	Query(ctx context.Context, filter Filter) ([]types.AuditEntry, error)
}

func matches(e types.AuditEntry, f Filter) bool {
	if f.EnvelopeID != "" && e.EnvelopeID != f.EnvelopeID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.PrincipalID != "" && e.PrincipalID != f.PrincipalID {
		return false
	}
	return true
}
