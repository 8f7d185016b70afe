package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Postgres   DBConfig         `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	ChangeFeed ChangeFeedConfig `mapstructure:"changefeed"`
	Session    SessionConfig    `mapstructure:"session"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
}

type AppConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type DBConfig struct {
	Username string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	DBName   string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns a postgres:// URL; credentials are escaped.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RabbitMQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Queue   string `mapstructure:"queue"`
}

type ChangeFeedConfig struct {
	Channel        string        `mapstructure:"channel"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type SessionConfig struct {
	BacklogOrder   string        `mapstructure:"backlog_order"`
	BacklogLimit   int           `mapstructure:"backlog_limit"`
	ReplayTimeout  time.Duration `mapstructure:"replay_timeout"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	PendingLimit   int           `mapstructure:"pending_limit"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	AccessSecret string `mapstructure:"access_secret"`
}

type JobsConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RetentionDays   int           `mapstructure:"retention_days"`
}

func (c *Config) validate() error {
	if !isIdentifier(c.ChangeFeed.Channel) {
		return fmt.Errorf("changefeed.channel %q must be a lowercase sql identifier", c.ChangeFeed.Channel)
	}
	if c.ChangeFeed.MaxReconnects < 0 {
		return fmt.Errorf("changefeed.max_reconnects must not be negative")
	}
	if c.Session.BacklogOrder != "asc" && c.Session.BacklogOrder != "desc" {
		return fmt.Errorf("session.backlog_order must be asc or desc, got %q", c.Session.BacklogOrder)
	}
	if c.Session.SendBuffer <= 0 {
		return fmt.Errorf("session.send_buffer must be positive")
	}
	if c.Session.PendingLimit <= 0 {
		return fmt.Errorf("session.pending_limit must be positive")
	}
	if c.Session.PingPeriod <= 0 || c.Session.PingPeriod >= c.Session.PongWait {
		return fmt.Errorf("session.ping_period must be positive and shorter than session.pong_wait")
	}
	if c.Auth.Enabled && c.Auth.AccessSecret == "" {
		return fmt.Errorf("auth.access_secret is required when auth is enabled")
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq.url is required when rabbitmq is enabled")
	}
	if c.Jobs.RetentionDays <= 0 {
		return fmt.Errorf("jobs.retention_days must be positive")
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
