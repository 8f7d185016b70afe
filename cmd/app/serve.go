package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/BloggingApp/realtime-notifications/internal/changefeed"
	"github.com/BloggingApp/realtime-notifications/internal/handler"
	"github.com/BloggingApp/realtime-notifications/internal/hub"
	"github.com/BloggingApp/realtime-notifications/internal/rabbitmq"
	"github.com/BloggingApp/realtime-notifications/internal/repository"
	"github.com/BloggingApp/realtime-notifications/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectPostgres(ctx, logger, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("successfully connected to Redis")

	var mq *rabbitmq.MQConn
	if cfg.RabbitMQ.Enabled {
		mq, err = rabbitmq.New(cfg.RabbitMQ.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer mq.Close()
	}

	registry := hub.NewRegistry(logger)
	services := service.New(logger, cfg, repository.New(db), rdb, mq, registry)

	bridge := changefeed.NewBridge(logger, changefeed.NewPGSubscriber(cfg.Postgres.DSN()), registry, changefeed.Config{
		Channel:        cfg.ChangeFeed.Channel,
		MaxReconnects:  cfg.ChangeFeed.MaxReconnects,
		ReconnectDelay: cfg.ChangeFeed.ReconnectDelay,
	})
	if err := bridge.Start(ctx); err != nil {
		return err
	}
	defer bridge.Stop()

	if err := services.Notification.StartJobs(); err != nil {
		return fmt.Errorf("failed to start jobs: %w", err)
	}
	defer services.Notification.StopJobs()

	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:    cfg.App.Port,
		Handler: handler.New(logger, cfg, services, bridge.Listening).SetupRoutes(),
		// hijacked websocket connections are not tracked by Shutdown; they
		// observe gctx instead
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		return bridge.Run(gctx)
	})
	g.Go(func() error {
		return services.Notification.StartConsuming(gctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("notification service shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		registry.CloseAll()
		return err
	})

	logger.Info("notification service started", zap.String("addr", cfg.App.Port))

	return g.Wait()
}
