package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/spf13/pflag"
)

func main() {
	var (
		namespace string
		all       bool
		dbURL     string
	)
	flags := pflag.NewFlagSet("clear-data", pflag.ExitOnError)
	flags.StringVar(&namespace, "namespace", "", "clear one namespace (default STATE_NAMESPACE)")
	flags.BoolVar(&all, "all", false, "delete every namespace (postgres backend only)")
	flags.StringVar(&dbURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flags.Parse(os.Args[1:])

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// DATABASE_URL may come from the flag, so set it before validation
	if dbURL != "" {
		os.Setenv("DATABASE_URL", dbURL)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := state.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s state backend: %v", cfg.State.Backend, err)
	}
	defer backend.Close()

	if all {
		if backend.Repo == nil {
			logger.Fatalf("--all needs the postgres state backend (STATE_BACKEND=%s)", backend.Name)
		}
		rows, err := backend.Repo.Truncate(ctx)
		if err != nil {
			logger.Fatalf("Failed to clear client state: %v", err)
		}
		fmt.Printf("All client state cleared (%d rows deleted).\n", rows)
		return
	}

	if namespace == "" {
		namespace = cfg.State.Namespace
	}
	if err := state.NewVault(backend.Store, namespace).Clear(ctx); err != nil {
		logger.Fatalf("Failed to clear namespace %s: %v", namespace, err)
	}
	fmt.Printf("Namespace %q cleared from the %s backend.\n", namespace, backend.Name)
}
