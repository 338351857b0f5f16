// Package evidence stores the evidence bundles attached to approval
// requests and audit entries: decision traces, context snapshots, and
// identity snapshots. Small bundles are inlined where they're referenced;
// anything larger is written to a blob store and referenced by pointer.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// InlineThresholdBytes is the size at or below which a snapshot is inlined
// rather than written to the blob store.
const InlineThresholdBytes = 10 * 1024

// maxPreviewLen bounds the deterministic truncated preview kept alongside a
// blob-stored snapshot, so a reader can see roughly what it holds without
// fetching the blob.
const maxPreviewLen = 200

// Store persists evidence blobs, addressed by a caller-chosen logical ID
// (e.g. "envelope/<id>/action/<id>/context.json") rather than content hash,
// since evidence must remain retrievable by the audit entry that references
// it even if two entries happen to produce identical bytes.
type Store interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Snapshot is what Record returns for one evidence blob: either the data
// inlined directly, or a pointer plus preview when it was written to Store.
type Snapshot struct {
	Inline    []byte `json:"inline,omitempty"`
	BlobRef   string `json:"blob_ref,omitempty"`
	Preview   string `json:"preview,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	Hash      string `json:"hash"`
}

// Record decides whether data should be inlined or written to store under
// id, returning the resulting Snapshot. Hashing happens either way so a
// Snapshot's integrity can be checked without a blob fetch for inlined data.
func Record(ctx context.Context, store Store, id string, data []byte) (Snapshot, error) {
	hash := sha256.Sum256(data)
	snap := Snapshot{
		SizeBytes: len(data),
		Hash:      "sha256:" + hex.EncodeToString(hash[:]),
	}

	if len(data) <= InlineThresholdBytes {
		snap.Inline = data
		return snap, nil
	}

	if err := store.Put(ctx, id, data); err != nil {
		return Snapshot{}, err
	}
	snap.BlobRef = id
	snap.Preview = preview(data)
	return snap, nil
}

// preview creates a deterministic, truncated preview of data.
func preview(data []byte) string {
	if len(data) <= maxPreviewLen {
		return string(data)
	}
	return string(data[:maxPreviewLen]) + "..."
}
