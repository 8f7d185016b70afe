package postgres

import (
	"context"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListOptions selects a page of a user's notifications. Results are newest
// first unless Ascending is set.
type ListOptions struct {
	UnreadOnly bool
	Ascending  bool
	Offset     int
	// Limit <= 0 means no limit.
	Limit int
}

type Notification interface {
	Insert(ctx context.Context, n model.Notification) (*model.Notification, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*model.Notification, error)
	// MarkRead and Delete return the owner of the notification and whether it existed.
	MarkRead(ctx context.Context, id int64) (string, bool, error)
	Delete(ctx context.Context, id int64) (string, bool, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PGRepo struct {
	Notification
}

func New(db *pgxpool.Pool) *PGRepo {
	return &PGRepo{
		Notification: newNotificationRepo(db),
	}
}
