package main

import (
	"github.com/BloggingApp/realtime-notifications/internal/repository/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the notifications table and its change trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := connectPostgres(cmd.Context(), logger, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.Migrate(cmd.Context(), db, cfg.ChangeFeed.Channel); err != nil {
			return err
		}

		logger.Sugar().Infof("schema is up to date, change events go to channel(%s)", cfg.ChangeFeed.Channel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
