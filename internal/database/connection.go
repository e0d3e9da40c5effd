package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
)

// DB interface defines database operations
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

// maskPassword masks the password in a database URL for safe logging
func maskPassword(url string) string {
	re := regexp.MustCompile(`(postgres(?:ql)?://[^:]+:)([^@]+)(@.+)`)
	return re.ReplaceAllString(url, "${1}****${3}")
}

// usesPooler detects a transaction-mode pooler (Supavisor/PgBouncer on 6543)
func usesPooler(url string) bool {
	return strings.Contains(url, ":6543")
}

// NewConnection opens the state database with the configured driver
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	logger.WithFields(logrus.Fields{
		"driver": cfg.Driver,
		"url":    maskPassword(cfg.URL),
	}).Info("Connecting to state database")

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = connectLibPQ(cfg.URL)
	default:
		db, err = connectPgx(cfg.URL, logger)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

func connectPgx(url string, logger *logrus.Logger) (*sqlx.DB, error) {
	pgxConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Poolers in transaction mode drop prepared statements between calls
	if usesPooler(url) {
		pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		logger.Info("Transaction-mode pooler detected, using simple protocol")
	}

	connStr := stdlib.RegisterConnConfig(pgxConfig)
	db, err := sqlx.Connect("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func connectLibPQ(url string) (*sqlx.DB, error) {
	connectionURL := url
	if usesPooler(url) && !strings.Contains(connectionURL, "prefer_simple_protocol") {
		separator := "?"
		if strings.Contains(connectionURL, "?") {
			separator = "&"
		}
		connectionURL = connectionURL + separator + "prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
