package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, "new_notification", cfg.ChangeFeed.Channel)
	assert.Equal(t, "asc", cfg.Session.BacklogOrder)
	assert.Equal(t, 256, cfg.Session.SendBuffer)
	assert.Equal(t, 1024, cfg.Session.PendingLimit)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 14, cfg.Jobs.RetentionDays)
	assert.False(t, cfg.Auth.Enabled)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "notifications.create", cfg.RabbitMQ.Queue)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.yaml", `
app:
  port: ":9000"
session:
  backlog_order: desc
  backlog_limit: 100
  replay_timeout: 5s
changefeed:
  channel: user_notifications
`)
	envFile := writeFile(t, dir, ".env", "POSTGRES_PASSWORD=from-dotenv\n")

	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_DB", "notifications")
	t.Setenv("RABBITMQ_CONN_STRING", "amqp://guest:guest@mq:5672/")
	t.Setenv("APP_PORT", ":9100")
	t.Cleanup(func() { os.Unsetenv("POSTGRES_PASSWORD") })

	cfg, err := Load(envFile, dir)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.App.Port, "environment wins over file")
	assert.Equal(t, "desc", cfg.Session.BacklogOrder)
	assert.Equal(t, 100, cfg.Session.BacklogLimit)
	assert.Equal(t, 5*time.Second, cfg.Session.ReplayTimeout)
	assert.Equal(t, "user_notifications", cfg.ChangeFeed.Channel)
	assert.Equal(t, "svc", cfg.Postgres.Username)
	assert.Equal(t, "from-dotenv", cfg.Postgres.Password)
	assert.Equal(t, "notifications", cfg.Postgres.DBName)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQ.URL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "channel with quote", yaml: "changefeed:\n  channel: \"x'; drop\"\n"},
		{name: "unknown backlog order", yaml: "session:\n  backlog_order: random\n"},
		{name: "ping slower than pong", yaml: "session:\n  ping_period: 2m\n  pong_wait: 1m\n"},
		{name: "no pending room", yaml: "session:\n  pending_limit: 0\n"},
		{name: "auth without secret", yaml: "auth:\n  enabled: true\n"},
		{name: "rabbitmq without url", yaml: "rabbitmq:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "app.yaml", tt.yaml)

			_, err := Load("", dir)
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{
		Username: "svc",
		Password: "p@ss word",
		Host:     "db",
		Port:     "5432",
		DBName:   "notifications",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://svc:p%40ss%20word@db:5432/notifications?sslmode=disable", cfg.DSN())
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, isIdentifier("new_notification"))
	assert.True(t, isIdentifier("_n2"))
	assert.False(t, isIdentifier("2n"))
	assert.False(t, isIdentifier("New"))
	assert.False(t, isIdentifier(""))
}
