package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmit-fdms/fdms/config"
	"github.com/kmit-fdms/fdms/internal/logger"
)

// migrateCmd creates the MongoDB indexes and the PostgreSQL tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database indexes and tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg.LogLevel)

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		mc, err := config.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
		defer func() { _ = mc.Disconnect(context.Background()) }()

		if err := config.EnsureMongoIndexes(ctx, mc.Database(cfg.Mongo.Database)); err != nil {
			return fmt.Errorf("mongodb indexes: %w", err)
		}
		log.WithField("database", cfg.Mongo.Database).Info("mongodb indexes ensured")

		if cfg.Postgres.URI == "" {
			log.Info("POSTGRES_URI not set; skipping postgres tables")
			return nil
		}
		gdb, err := config.NewPostgres(cfg.Postgres.URI)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer func() { _ = config.ClosePostgres(gdb) }()

		if err := config.MigratePostgres(gdb.WithContext(ctx)); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		log.Info("postgres tables migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
