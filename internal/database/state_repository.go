package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const stateSchema = `
CREATE TABLE IF NOT EXISTS client_state (
	state_key   TEXT PRIMARY KEY,
	state_value BYTEA NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// StateRepository handles client_state rows
type StateRepository struct {
	db DB
}

// NewStateRepository creates a new StateRepository
func NewStateRepository(db DB) *StateRepository {
	return &StateRepository{db: db}
}

// EnsureSchema creates the client_state table if it does not exist
func (r *StateRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, stateSchema); err != nil {
		return fmt.Errorf("failed to create client_state table: %w", err)
	}
	return nil
}

// Get returns the value of key; found is false when no row exists
func (r *StateRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT state_value FROM client_state WHERE state_key = $1`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, true, nil
}

// Upsert writes the value of key
func (r *StateRepository) Upsert(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO client_state (state_key, state_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (state_key)
		DO UPDATE SET state_value = EXCLUDED.state_value, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys
func (r *StateRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE state_key = ANY($1)`, pq.Array(keys),
	); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// Truncate removes every row and returns the number deleted
func (r *StateRepository) Truncate(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM client_state`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear client_state: %w", err)
	}
	return result.RowsAffected()
}
