package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = "id, user_id, title, message, type, is_read, created_at"

type notificationRepo struct {
	db *pgxpool.Pool
}

func newNotificationRepo(db *pgxpool.Pool) Notification {
	return &notificationRepo{
		db: db,
	}
}

func (r *notificationRepo) Insert(ctx context.Context, n model.Notification) (*model.Notification, error) {
	row := r.db.QueryRow(
		ctx,
		"INSERT INTO notifications(user_id, title, message, type) VALUES($1, $2, $3, $4) RETURNING "+notificationColumns,
		n.UserID, n.Title, n.Message, n.Type,
	)
	return scanNotification(row)
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*model.Notification, error) {
	query, args := listByUserQuery(userID, opts)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func listByUserQuery(userID string, opts ListOptions) (string, []any) {
	var sb strings.Builder
	args := []any{userID}

	sb.WriteString("SELECT " + notificationColumns + " FROM notifications WHERE user_id = $1")
	if opts.UnreadOnly {
		sb.WriteString(" AND is_read = false")
	}

	if opts.Ascending {
		sb.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		sb.WriteString(" ORDER BY created_at DESC, id DESC")
	}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	return sb.String(), args
}

// MarkRead never flips is_read back; marking an already read notification
// still reports it as found.
func (r *notificationRepo) MarkRead(ctx context.Context, id int64) (string, bool, error) {
	var userID string
	err := r.db.QueryRow(ctx, "UPDATE notifications SET is_read = true WHERE id = $1 RETURNING user_id", id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (r *notificationRepo) Delete(ctx context.Context, id int64) (string, bool, error) {
	var userID string
	err := r.db.QueryRow(ctx, "DELETE FROM notifications WHERE id = $1 RETURNING user_id", id).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (r *notificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM notifications WHERE is_read = true AND created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	var title, message, notificationType *string
	if err := row.Scan(&n.ID, &n.UserID, &title, &message, &notificationType, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	if title != nil {
		n.Title = *title
	}
	if message != nil {
		n.Message = *message
	}
	if notificationType != nil {
		n.Type = *notificationType
	}
	return &n, nil
}
