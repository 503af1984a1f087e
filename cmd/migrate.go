package main

import (
	"errors"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/config"
	"github.com/Vovarama1992/watchparty/internal/infra"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database and tables if they are missing",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	zcore := newZap(cfg.LogLevel)
	defer zcore.Sync()
	zl := logger.NewZapLogger(zcore.Sugar())

	ctx := cmd.Context()

	created, err := infra.EnsureDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := infra.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "schema ready",
		Fields:  map[string]any{"databaseCreated": created},
	})
	return nil
}
