package state

import (
	"context"

	"github.com/smarttransit/busticket-client/internal/database"
)

// PostgresStore keeps state in the client_state table
type PostgresStore struct {
	repo *database.StateRepository
}

// NewPostgresStore wraps a state repository
func NewPostgresStore(repo *database.StateRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

// Get reads a key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set writes a key
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return s.repo.Upsert(ctx, key, value)
}

// Delete removes keys
func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	return s.repo.Delete(ctx, keys...)
}
