package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	title      TEXT        NOT NULL DEFAULT '',
	message    TEXT        NOT NULL DEFAULT '',
	type       TEXT        NOT NULL DEFAULT 'info',
	is_read    BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS notifications_user_unread_idx
	ON notifications (user_id, is_read, created_at);
`

// notifyFunctionSQL publishes every inserted row on channel. The channel is
// validated as a plain identifier by config, so it is safe to inline.
func notifyFunctionSQL(channel string) string {
	return fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_new_notification()
RETURNS TRIGGER AS $$
BEGIN
	PERFORM pg_notify(
		'%s',
		json_build_object(
			'user_id', NEW.user_id,
			'notification', row_to_json(NEW)
		)::text
	);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;
`, channel)
}

const createNotifyTrigger = `
DROP TRIGGER IF EXISTS new_notification_trigger ON notifications;
CREATE TRIGGER new_notification_trigger
AFTER INSERT ON notifications
FOR EACH ROW
EXECUTE FUNCTION notify_new_notification();
`

// Migrate creates the notifications table and the trigger that feeds the
// change bridge. It is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool, channel string) error {
	for _, stmt := range []string{createNotificationsTable, notifyFunctionSQL(channel), createNotifyTrigger} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}
