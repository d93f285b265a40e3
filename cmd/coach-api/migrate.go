package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/internal/config"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/pkg/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(cfg.Service.LogLevel)
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("coach-api").Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Named("coach-api").Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Named("coach-api").Fatalw("running initial migration", "error", err)
		}

		zap.S().Named("coach-api").Info("Db migrated")
		return nil
	},
}
