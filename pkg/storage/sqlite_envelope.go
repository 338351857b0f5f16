package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

// SQLiteEnvelopeStore is the single-node, embedded-deployment counterpart of
// PostgresEnvelopeStore: same schema shape, driven through modernc.org/sqlite
// so the binary carries no cgo dependency.
type SQLiteEnvelopeStore struct {
	db *sql.DB
}

// NewSQLiteEnvelopeStore wraps an existing *sql.DB opened against the
// "sqlite" driver.
func NewSQLiteEnvelopeStore(db *sql.DB) *SQLiteEnvelopeStore {
	return &SQLiteEnvelopeStore{db: db}
}

// Migrate creates the envelopes table if absent.
func (s *SQLiteEnvelopeStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS envelopes (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			data TEXT NOT NULL
		)
	`)
	return err
}

func (s *SQLiteEnvelopeStore) Save(ctx context.Context, env *types.ActionEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("storage: marshal envelope: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO envelopes (id, status, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, env.ID, string(env.Status), env.CreatedAt, env.UpdatedAt, string(data))
	if err != nil {
		return fmt.Errorf("storage: save envelope: %w", err)
	}
	return nil
}

func (s *SQLiteEnvelopeStore) Update(ctx context.Context, env *types.ActionEnvelope) error {
	return s.Save(ctx, env)
}

func (s *SQLiteEnvelopeStore) GetByID(ctx context.Context, id string) (*types.ActionEnvelope, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM envelopes WHERE id = ?`, id)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get envelope: %w", err)
	}
	var env types.ActionEnvelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, fmt.Errorf("storage: unmarshal envelope: %w", err)
	}
	return &env, nil
}

func (s *SQLiteEnvelopeStore) List(ctx context.Context, filter EnvelopeFilter) ([]*types.ActionEnvelope, error) {
	query := `SELECT data FROM envelopes WHERE (? = '' OR status = ?) ORDER BY created_at ASC`
	args := []interface{}{string(filter.Status), string(filter.Status)}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list envelopes: %w", err)
	}
	defer rows.Close()

	var out []*types.ActionEnvelope
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage: scan envelope row: %w", err)
		}
		var env types.ActionEnvelope
		if err := json.Unmarshal([]byte(data), &env); err != nil {
			return nil, fmt.Errorf("storage: unmarshal envelope row: %w", err)
		}
		if filter.PrincipalID != "" && !envelopeHasPrincipal(&env, filter.PrincipalID) {
			continue
		}
		out = append(out, &env)
	}
	return out, rows.Err()
}
