package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings keeps the environment variable names used by the deployment.
var envBindings = map[string]string{
	"postgres.user":      "POSTGRES_USER",
	"postgres.password":  "POSTGRES_PASSWORD",
	"postgres.host":      "POSTGRES_HOST",
	"postgres.port":      "POSTGRES_PORT",
	"postgres.db":        "POSTGRES_DB",
	"postgres.sslmode":   "POSTGRES_SSLMODE",
	"redis.addr":         "REDIS_ADDR",
	"redis.password":     "REDIS_PASSWORD",
	"rabbitmq.url":       "RABBITMQ_CONN_STRING",
	"auth.access_secret": "ACCESS_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 2*time.Minute)

	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.queue", rabbitmq.CREATE_NOTIFICATION_QUEUE)

	v.SetDefault("changefeed.channel", "new_notification")
	v.SetDefault("changefeed.max_reconnects", 5)
	v.SetDefault("changefeed.reconnect_delay", 2*time.Second)

	v.SetDefault("session.backlog_order", "asc")
	v.SetDefault("session.backlog_limit", 0)
	v.SetDefault("session.replay_timeout", 30*time.Second)
	v.SetDefault("session.send_buffer", 256)
	v.SetDefault("session.pending_limit", 1024)
	v.SetDefault("session.write_wait", 10*time.Second)
	v.SetDefault("session.pong_wait", 60*time.Second)
	v.SetDefault("session.ping_period", 54*time.Second)
	v.SetDefault("session.max_message_size", 4096)
	v.SetDefault("session.allowed_origins", []string{})

	v.SetDefault("auth.enabled", false)

	v.SetDefault("jobs.cleanup_interval", 12*time.Hour)
	v.SetDefault("jobs.retention_days", 14)
}

// Load reads .env (optional), then app.yaml from configPaths (optional), then
// the environment. Later sources win.
func Load(envFile string, configPaths ...string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("app")
	v.SetConfigType("yaml")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}
	if len(configPaths) == 0 {
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
