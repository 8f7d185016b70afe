package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/config"
	"github.com/BloggingApp/realtime-notifications/internal/dto"
	"github.com/BloggingApp/realtime-notifications/internal/model"
	"github.com/BloggingApp/realtime-notifications/internal/rabbitmq"
	"github.com/BloggingApp/realtime-notifications/internal/repository"
	"github.com/BloggingApp/realtime-notifications/internal/repository/postgres"
	"github.com/BloggingApp/realtime-notifications/internal/repository/redisrepo"
	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DEFAULT_LIST_LIMIT = 50
	MAX_LIST_LIMIT     = 100
	MAX_TITLE_LENGTH   = 255
	MAX_TYPE_LENGTH    = 32
	// the insert trigger publishes the whole row and pg_notify payloads
	// must stay under 8000 bytes
	MAX_MESSAGE_LENGTH = 7000
)

type notificationService struct {
	logger   *zap.Logger
	repo     *repository.Repository
	rdb      *redis.Client
	rabbitmq *rabbitmq.MQConn

	cacheTTL        time.Duration
	intakeQueue     string
	cleanupInterval time.Duration
	retention       time.Duration

	schedulerMu sync.Mutex
	scheduler   gocron.Scheduler
}

func newNotificationService(logger *zap.Logger, cfg *config.Config, repo *repository.Repository, rdb *redis.Client, mq *rabbitmq.MQConn) Notification {
	return &notificationService{
		logger:          logger,
		repo:            repo,
		rdb:             rdb,
		rabbitmq:        mq,
		cacheTTL:        cfg.Redis.CacheTTL,
		intakeQueue:     cfg.RabbitMQ.Queue,
		cleanupInterval: cfg.Jobs.CleanupInterval,
		retention:       time.Duration(cfg.Jobs.RetentionDays) * 24 * time.Hour,
	}
}

func validateCreate(input *dto.CreateNotification) error {
	input.UserID = strings.TrimSpace(input.UserID)
	input.Type = strings.TrimSpace(input.Type)

	if input.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if input.Title == "" || len(input.Title) > MAX_TITLE_LENGTH {
		return fmt.Errorf("%w: title is required and must not be over %d characters", ErrInvalidInput, MAX_TITLE_LENGTH)
	}
	if len(input.Message) > MAX_MESSAGE_LENGTH {
		return fmt.Errorf("%w: message must not be over %d bytes", ErrInvalidInput, MAX_MESSAGE_LENGTH)
	}
	if input.Type == "" {
		input.Type = model.DefaultNotificationType
	}
	if len(input.Type) > MAX_TYPE_LENGTH {
		return fmt.Errorf("%w: type must not be over %d characters", ErrInvalidInput, MAX_TYPE_LENGTH)
	}
	return nil
}

// Create stores a notification. Live delivery happens through the change
// feed, not here.
func (s *notificationService) Create(ctx context.Context, input dto.CreateNotification) (*model.Notification, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	n, err := s.repo.Postgres.Notification.Insert(ctx, model.Notification{
		UserID:  input.UserID,
		Title:   input.Title,
		Message: input.Message,
		Type:    input.Type,
	})
	if err != nil {
		s.logger.Sugar().Errorf("failed to create notification for user(%s): %s", input.UserID, err.Error())
		return nil, ErrInternal
	}

	s.invalidate(ctx, n.UserID)

	return n, nil
}

func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, limit int, offset int) ([]*model.Notification, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DEFAULT_LIST_LIMIT
	}
	if limit > MAX_LIST_LIMIT {
		limit = MAX_LIST_LIMIT
	}

	key := redisrepo.UserNotificationsKey(userID)
	field := redisrepo.UserNotificationsPage(unreadOnly, limit, offset)

	notificationsCache, err := redisrepo.GetField[[]*model.Notification](s.rdb, ctx, key, field)
	if err == nil {
		return *notificationsCache, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.Sugar().Errorf("failed to get user(%s)'s notifications from redis: %s", userID, err.Error())
	}

	notifications, err := s.repo.Postgres.Notification.ListByUser(ctx, userID, postgres.ListOptions{
		UnreadOnly: unreadOnly,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		s.logger.Sugar().Errorf("failed to get user(%s)'s notifications from postgres: %s", userID, err.Error())
		return nil, ErrInternal
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}

	if err := redisrepo.SetFieldJSON(s.rdb, ctx, key, field, notifications, s.cacheTTL); err != nil {
		s.logger.Sugar().Errorf("failed to set user(%s)'s notifications in redis cache: %s", userID, err.Error())
	}

	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id int64) error {
	userID, found, err := s.repo.Postgres.Notification.MarkRead(ctx, id)
	if err != nil {
		s.logger.Sugar().Errorf("failed to mark notification(%d) as read: %s", id, err.Error())
		return ErrInternal
	}
	if !found {
		return ErrNotFound
	}

	s.invalidate(ctx, userID)

	return nil
}

func (s *notificationService) Delete(ctx context.Context, id int64) error {
	userID, found, err := s.repo.Postgres.Notification.Delete(ctx, id)
	if err != nil {
		s.logger.Sugar().Errorf("failed to delete notification(%d): %s", id, err.Error())
		return ErrInternal
	}
	if !found {
		return ErrNotFound
	}

	s.invalidate(ctx, userID)

	return nil
}

func (s *notificationService) invalidate(ctx context.Context, userID string) {
	if err := redisrepo.Delete(s.rdb, ctx, redisrepo.UserNotificationsKey(userID)); err != nil {
		s.logger.Sugar().Errorf("failed to invalidate user(%s)'s notifications cache: %s", userID, err.Error())
	}
}

// DeleteOldNotifications removes read notifications past retention. Unread
// ones are kept because they are the backlog.
func (s *notificationService) DeleteOldNotifications(ctx context.Context) (int64, error) {
	return s.repo.Postgres.Notification.DeleteReadBefore(ctx, time.Now().Add(-s.retention))
}

func (s *notificationService) newDeleteOldNotificationsJob(scheduler gocron.Scheduler) error {
	_, err := scheduler.NewJob(gocron.DurationJob(s.cleanupInterval), gocron.NewTask(func(ctx context.Context) {
		deleted, err := s.DeleteOldNotifications(ctx)
		if err != nil {
			s.logger.Sugar().Errorf("failed to delete old notifications: %s", err.Error())
			return
		}
		s.logger.Sugar().Infof("deleted %d old notifications", deleted)
	}))
	return err
}

func (s *notificationService) StartJobs() error {
	s.schedulerMu.Lock()
	defer s.schedulerMu.Unlock()

	if s.scheduler != nil {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if err := s.newDeleteOldNotificationsJob(scheduler); err != nil {
		scheduler.Shutdown()
		return err
	}

	scheduler.Start()
	s.scheduler = scheduler

	return nil
}

func (s *notificationService) StopJobs() error {
	s.schedulerMu.Lock()
	defer s.schedulerMu.Unlock()

	if s.scheduler == nil {
		return nil
	}

	err := s.scheduler.Shutdown()
	s.scheduler = nil
	return err
}
