// Package config loads the vaultsync server configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr    string `env:"VAULTSYNC_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr    string `env:"VAULTSYNC_GRPC_ADDR" envDefault:":9090"` // "off" disables gRPC
	DatabaseURL string `env:"VAULTSYNC_DATABASE_URL"`                 // empty = in-memory store
	NATSURL     string `env:"VAULTSYNC_NATS_URL"`                     // empty = single instance
	AuthToken   string `env:"VAULTSYNC_AUTH_TOKEN"`                   // empty = auth disabled

	// Presence
	PresenceTTL        time.Duration `env:"VAULTSYNC_PRESENCE_TTL" envDefault:"5m"`
	PresenceEvictAfter time.Duration `env:"VAULTSYNC_PRESENCE_EVICT_AFTER" envDefault:"15m"`
	PresenceSweep      time.Duration `env:"VAULTSYNC_PRESENCE_SWEEP" envDefault:"1m"`

	// Broadcast hub
	KeepaliveInterval time.Duration `env:"VAULTSYNC_KEEPALIVE_INTERVAL" envDefault:"15s"`
	SubscriberBuffer  int           `env:"VAULTSYNC_SUBSCRIBER_BUFFER" envDefault:"64"`

	// Backup (0 interval = disabled)
	BackupInterval   time.Duration `env:"VAULTSYNC_BACKUP_INTERVAL" envDefault:"0"`
	BackupS3Bucket   string        `env:"VAULTSYNC_BACKUP_S3_BUCKET"`
	BackupS3Endpoint string        `env:"VAULTSYNC_BACKUP_S3_ENDPOINT"` // custom endpoint for MinIO
	BackupS3Region   string        `env:"VAULTSYNC_BACKUP_S3_REGION" envDefault:"us-east-1"`
	BackupS3Key      string        `env:"VAULTSYNC_BACKUP_S3_KEY" envDefault:"vaultsync/backup.jsonl"`
	BackupFile       string        `env:"VAULTSYNC_BACKUP_FILE"`

	// Logging
	LogLevel      string `env:"VAULTSYNC_LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"VAULTSYNC_LOG_FILE"` // empty = stderr only
	LogMaxSizeMB  int    `env:"VAULTSYNC_LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"VAULTSYNC_LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"VAULTSYNC_LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("VAULTSYNC_HTTP_ADDR must not be empty"))
	}
	if c.PresenceTTL <= 0 {
		errs = append(errs, errors.New("VAULTSYNC_PRESENCE_TTL must be positive"))
	}
	if c.PresenceEvictAfter < c.PresenceTTL {
		errs = append(errs, fmt.Errorf("VAULTSYNC_PRESENCE_EVICT_AFTER (%s) must be at least the presence TTL (%s)", c.PresenceEvictAfter, c.PresenceTTL))
	}
	if c.PresenceSweep <= 0 {
		errs = append(errs, errors.New("VAULTSYNC_PRESENCE_SWEEP must be positive"))
	}
	if c.KeepaliveInterval <= 0 {
		errs = append(errs, errors.New("VAULTSYNC_KEEPALIVE_INTERVAL must be positive"))
	}
	if c.SubscriberBuffer <= 0 {
		errs = append(errs, errors.New("VAULTSYNC_SUBSCRIBER_BUFFER must be positive"))
	}
	if c.BackupInterval < 0 {
		errs = append(errs, errors.New("VAULTSYNC_BACKUP_INTERVAL must not be negative"))
	}
	if c.BackupInterval > 0 && c.BackupS3Bucket == "" && c.BackupFile == "" {
		errs = append(errs, errors.New("VAULTSYNC_BACKUP_INTERVAL is set but no backup destination is configured"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GRPCEnabled reports whether the gRPC listener should start.
func (c *Config) GRPCEnabled() bool {
	return c.GRPCAddr != "" && c.GRPCAddr != "off"
}

// BackupEnabled reports whether periodic backups should run.
func (c *Config) BackupEnabled() bool {
	return c.BackupInterval > 0 && (c.BackupS3Bucket != "" || c.BackupFile != "")
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("VAULTSYNC_LOG_LEVEL: %w", err)
	}
	return l, nil
}
