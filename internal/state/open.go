package state

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/database"
)

// Backend is an opened state store with its health check and teardown
type Backend struct {
	Store Store
	Name  string

	// Repo is set for the postgres backend only
	Repo *database.StateRepository

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the backing service; the memory backend is always healthy
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the connection of the backend
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects the configured state backend
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Backend, error) {
	switch cfg.State.Backend {
	case config.StateBackendPostgres:
		db, err := database.NewConnection(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		repo := database.NewStateRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prepare state table: %w", err)
		}
		return &Backend{
			Store: NewPostgresStore(repo),
			Name:  config.StateBackendPostgres,
			Repo:  repo,
			ping:  db.PingContext,
			close: db.Close,
		}, nil

	case config.StateBackendRedis:
		store, err := NewRedisStore(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: store,
			Name:  config.StateBackendRedis,
			ping:  store.Ping,
			close: store.Close,
		}, nil

	default:
		return &Backend{
			Store: NewMemoryStore(),
			Name:  config.StateBackendMemory,
		}, nil
	}
}
