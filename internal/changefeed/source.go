package changefeed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Subscription is an open LISTEN session. It is used by one goroutine at a time.
type Subscription interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// PGSubscriber opens a dedicated PostgreSQL connection per subscription.
// LISTEN is bound to a connection, so pooled connections cannot be used.
type PGSubscriber struct {
	dsn string
}

func NewPGSubscriber(dsn string) *PGSubscriber {
	return &PGSubscriber{
		dsn: dsn,
	}
}

func (s *PGSubscriber) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to LISTEN on %s: %w", channel, err)
	}

	return conn, nil
}
