package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// PostgresEnvelopeStore implements EnvelopeStore against PostgreSQL. It keeps
// status and created_at as indexable columns and the full envelope as a JSON
// blob, since ActionEnvelope's nested proposals/traces/results don't map
// cleanly onto relational columns.
type PostgresEnvelopeStore struct {
	db *sql.DB
}

// NewPostgresEnvelopeStore wraps an existing *sql.DB; callers own migrations
// via Migrate.
func NewPostgresEnvelopeStore(db *sql.DB) *PostgresEnvelopeStore {
	return &PostgresEnvelopeStore{db: db}
}

// Migrate creates the envelopes table if absent.
func (s *PostgresEnvelopeStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS envelopes (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		)
	`)
	return err
}

func (s *PostgresEnvelopeStore) Save(ctx context.Context, env *types.ActionEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("storage: marshal envelope: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO envelopes (id, status, created_at, updated_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			data = EXCLUDED.data
	`, env.ID, string(env.Status), env.CreatedAt, env.UpdatedAt, data)
	if err != nil {
		return fmt.Errorf("storage: save envelope: %w", err)
	}
	return nil
}

func (s *PostgresEnvelopeStore) Update(ctx context.Context, env *types.ActionEnvelope) error {
	return s.Save(ctx, env)
}

func (s *PostgresEnvelopeStore) GetByID(ctx context.Context, id string) (*types.ActionEnvelope, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM envelopes WHERE id = $1`, id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get envelope: %w", err)
	}
	var env types.ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("storage: unmarshal envelope: %w", err)
	}
	return &env, nil
}

func (s *PostgresEnvelopeStore) List(ctx context.Context, filter EnvelopeFilter) ([]*types.ActionEnvelope, error) {
	query := `SELECT data FROM envelopes WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC`
	args := []interface{}{string(filter.Status)}
	if filter.Limit > 0 {
		query += ` LIMIT $2`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list envelopes: %w", err)
	}
	defer rows.Close()

	var out []*types.ActionEnvelope
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage: scan envelope row: %w", err)
		}
		var env types.ActionEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("storage: unmarshal envelope row: %w", err)
		}
		if filter.PrincipalID != "" && !envelopeHasPrincipal(&env, filter.PrincipalID) {
			continue
		}
		out = append(out, &env)
	}
	return out, rows.Err()
}
