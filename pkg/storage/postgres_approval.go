package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// PostgresApprovalStore implements ApprovalStore against PostgreSQL, with
// the same indexed-columns-plus-JSON-blob layout as PostgresEnvelopeStore.
type PostgresApprovalStore struct {
	db *sql.DB
}

// NewPostgresApprovalStore wraps an existing *sql.DB; callers own migrations
// via Migrate.
func NewPostgresApprovalStore(db *sql.DB) *PostgresApprovalStore {
	return &PostgresApprovalStore{db: db}
}

// Migrate creates the approval_requests table if absent.
func (s *PostgresApprovalStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS approval_requests (
			id TEXT PRIMARY KEY,
			envelope_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		)
	`)
	return err
}

func (s *PostgresApprovalStore) Save(ctx context.Context, req *types.ApprovalRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("storage: marshal approval request: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approval_requests (id, envelope_id, status, created_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data
	`, req.ID, req.EnvelopeID, string(req.Status), req.CreatedAt, data)
	if err != nil {
		return fmt.Errorf("storage: save approval request: %w", err)
	}
	return nil
}

func (s *PostgresApprovalStore) GetByID(ctx context.Context, id string) (*types.ApprovalRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM approval_requests WHERE id = $1`, id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get approval request: %w", err)
	}
	var req types.ApprovalRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("storage: unmarshal approval request: %w", err)
	}
	return &req, nil
}

func (s *PostgresApprovalStore) UpdateState(ctx context.Context, id string, status types.ApprovalStatus) error {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	req.Status = status
	return s.Save(ctx, req)
}

func (s *PostgresApprovalStore) List(ctx context.Context, filter ApprovalFilter) ([]*types.ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM approval_requests
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR envelope_id = $2)
	`, string(filter.Status), filter.EnvelopeID)
	if err != nil {
		return nil, fmt.Errorf("storage: list approval requests: %w", err)
	}
	defer rows.Close()

	var out []*types.ApprovalRequest
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage: scan approval request row: %w", err)
		}
		var req types.ApprovalRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("storage: unmarshal approval request row: %w", err)
		}
		if filter.ApproverID != "" && !containsApprover(req.EligibleApproverIDs, filter.ApproverID) {
			continue
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}
