package service

import (
	"context"

	"github.com/BloggingApp/realtime-notifications/internal/config"
	"github.com/BloggingApp/realtime-notifications/internal/dto"
	"github.com/BloggingApp/realtime-notifications/internal/hub"
	"github.com/BloggingApp/realtime-notifications/internal/model"
	"github.com/BloggingApp/realtime-notifications/internal/rabbitmq"
	"github.com/BloggingApp/realtime-notifications/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Notification interface {
	Create(ctx context.Context, input dto.CreateNotification) (*model.Notification, error)
	GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, limit int, offset int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	DeleteOldNotifications(ctx context.Context) (int64, error)
	StartJobs() error
	StopJobs() error
	// StartConsuming blocks processing the intake queue until ctx is done.
	StartConsuming(ctx context.Context) error
}

type Session interface {
	// Serve runs the session protocol for an accepted connection and returns
	// once the session is closed and unregistered.
	Serve(ctx context.Context, userID string, conn LiveConn) error
}

type Service struct {
	Notification
	Session
}

// New wires the services. mq may be nil when the intake queue is disabled.
func New(logger *zap.Logger, cfg *config.Config, repo *repository.Repository, rdb *redis.Client, mq *rabbitmq.MQConn, registry *hub.Registry) *Service {
	return &Service{
		Notification: newNotificationService(logger, cfg, repo, rdb, mq),
		Session:      newSessionService(logger, cfg.Session, repo, registry),
	}
}
