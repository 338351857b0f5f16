package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/actiongov/pkg/config"
	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Ledger is the public append-only audit log: it owns sequencing and hash
// chaining over a pluggable Storage backend.
type Ledger struct {
	mu        sync.Mutex
	storage   Storage
	redaction config.RedactionConfig
	canonVer  int
	clock     Clock

	lastHash string
	nextSeq  uint64
	loaded   bool
}

// New constructs a Ledger over storage with the given redaction config and
// canonicalization version (both recorded verbatim on every entry).
func New(storage Storage, redaction config.RedactionConfig, canonVer int) *Ledger {
	return &Ledger{storage: storage, redaction: redaction, canonVer: canonVer, clock: time.Now}
}

// WithClock overrides the ledger's clock, for deterministic tests.
func (l *Ledger) WithClock(c Clock) *Ledger {
	l.clock = c
	return l
}

// RecordParams is the caller-supplied content for a new entry; sequencing,
// hashing, and the previous-hash link are computed by Record.
type RecordParams struct {
	EventType   types.EventType
	EnvelopeID  string
	ActionID    string
	PrincipalID string
	Payload     map[string]interface{}
}

// Record appends a new entry, serialized against all other Record calls on
// this Ledger so chain consistency holds under concurrency.
func (l *Ledger) Record(ctx context.Context, params RecordParams) (types.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		if err := l.hydrate(ctx); err != nil {
			return types.AuditEntry{}, err
		}
	}

	entry := types.AuditEntry{
		ID:                      uuid.NewString(),
		SequenceNumber:          l.nextSeq,
		EventType:               params.EventType,
		EnvelopeID:              params.EnvelopeID,
		ActionID:                params.ActionID,
		PrincipalID:             params.PrincipalID,
		Payload:                 params.Payload,
		CanonicalizationVersion: l.canonVer,
		PreviousEntryHash:       l.lastHash,
		RecordedAt:              l.clock(),
	}

	built, err := BuildEntry(entry, l.redaction)
	if err != nil {
		return types.AuditEntry{}, err
	}

	if err := l.storage.Append(ctx, built); err != nil {
		return types.AuditEntry{}, fmt.Errorf("%w: %v", ErrChainBroken, err)
	}

	l.lastHash = built.EntryHash
	l.nextSeq++
	return built, nil
}

// hydrate reads the tail of the existing log to recover lastHash/nextSeq
// after a process restart. Called lazily under the lock on first use.
func (l *Ledger) hydrate(ctx context.Context) error {
	existing, err := l.storage.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("ledger: hydrate: %w", err)
	}
	if idx := VerifyChain(existing); idx >= 0 {
		return fmt.Errorf("%w: break at index %d", ErrChainBroken, idx)
	}
	l.nextSeq = uint64(len(existing))
	if len(existing) > 0 {
		l.lastHash = existing[len(existing)-1].EntryHash
	}
	l.loaded = true
	return nil
}

// Query delegates to the underlying storage.
func (l *Ledger) Query(ctx context.Context, filter Filter) ([]types.AuditEntry, error) {
	return l.storage.Query(ctx, filter)
}

// GetAll returns every entry in the log, in append order.
func (l *Ledger) GetAll(ctx context.Context) ([]types.AuditEntry, error) {
	return l.storage.GetAll(ctx)
}

// DeepVerify recomputes the full chain against the configured redaction
// policy.
func (l *Ledger) DeepVerify(ctx context.Context) ([]Mismatch, int, error) {
	entries, err := l.storage.GetAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	mismatches, breakIdx := DeepVerify(entries, l.redaction)
	return mismatches, breakIdx, nil
}
