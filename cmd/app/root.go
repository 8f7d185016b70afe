package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BloggingApp/realtime-notifications/internal/config"
	"github.com/BloggingApp/realtime-notifications/internal/logger"
	"github.com/BloggingApp/realtime-notifications/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile   string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Realtime notification service",
	Long: `Stores user notifications in PostgreSQL and pushes new ones to every
live websocket session of their recipient.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the command line; it is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding app.yaml")
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFile, configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return cfg, logger, nil
}

func connectPostgres(ctx context.Context, logger *zap.Logger, cfg config.DBConfig) (*pgxpool.Pool, error) {
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connection error: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't ping postgres db: %w", err)
	}
	logger.Info("successfully connected to PostgreSQL")

	return db, nil
}
