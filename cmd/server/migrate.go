package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"studybuddy/internal/config"
	"studybuddy/internal/pkg/logger"
	"studybuddy/internal/platform/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config failed: %w", err)
		}
		log, err := logger.New(cfg.App.Env)
		if err != nil {
			return fmt.Errorf("init logger failed: %w", err)
		}
		defer log.Sync()

		db, err := database.New(context.Background(), cfg.Database.Driver, cfg.DatabaseDSN())
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("schema migrated", "driver", cfg.Database.Driver)
		return nil
	},
}
