package main

import (
	"context"
	"fmt"
	"io"

	"changemgmt/db"
	"changemgmt/db/migrations"
	"changemgmt/internal/config"
	"changemgmt/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "change-server",
		Short:        "Change request tracker",
		SilenceUsage: true,
		RunE:         runServe,
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd())
	return cmd
}

// env is what every subcommand needs: configuration, a logger and a
// database connection.
type env struct {
	cfg    *config.Configuration
	log    *logrus.Logger
	db     *sqlx.DB
	store  *db.Storage
	closer io.Closer
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(config.DefaultEnvFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	dbConn, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresConn)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: dbConn, store: db.NewStorage(dbConn), closer: closer}, nil
}

func (e *env) migrate(ctx context.Context) error {
	return migrations.Run(ctx, e.db.DB)
}

func (e *env) Close() {
	e.db.Close()
	e.closer.Close()
}
