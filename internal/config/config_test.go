package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

var allEnvVars = []string{
	"VAULTSYNC_HTTP_ADDR", "VAULTSYNC_GRPC_ADDR", "VAULTSYNC_DATABASE_URL",
	"VAULTSYNC_NATS_URL", "VAULTSYNC_AUTH_TOKEN",
	"VAULTSYNC_PRESENCE_TTL", "VAULTSYNC_PRESENCE_EVICT_AFTER", "VAULTSYNC_PRESENCE_SWEEP",
	"VAULTSYNC_KEEPALIVE_INTERVAL", "VAULTSYNC_SUBSCRIBER_BUFFER",
	"VAULTSYNC_BACKUP_INTERVAL", "VAULTSYNC_BACKUP_S3_BUCKET", "VAULTSYNC_BACKUP_S3_ENDPOINT",
	"VAULTSYNC_BACKUP_S3_REGION", "VAULTSYNC_BACKUP_S3_KEY", "VAULTSYNC_BACKUP_FILE",
	"VAULTSYNC_LOG_LEVEL", "VAULTSYNC_LOG_FILE", "VAULTSYNC_LOG_MAX_SIZE_MB",
	"VAULTSYNC_LOG_MAX_BACKUPS", "VAULTSYNC_LOG_MAX_AGE_DAYS",
}

// clearAllEnv unsets every variable Load reads; t.Setenv restores them.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":9090" {
		t.Errorf("addrs = %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.DatabaseURL != "" || cfg.NATSURL != "" || cfg.AuthToken != "" {
		t.Errorf("optional values should default empty: %+v", cfg)
	}
	if cfg.PresenceTTL != 5*time.Minute || cfg.PresenceEvictAfter != 15*time.Minute || cfg.PresenceSweep != time.Minute {
		t.Errorf("presence = %v %v %v", cfg.PresenceTTL, cfg.PresenceEvictAfter, cfg.PresenceSweep)
	}
	if cfg.KeepaliveInterval != 15*time.Second || cfg.SubscriberBuffer != 64 {
		t.Errorf("hub = %v %d", cfg.KeepaliveInterval, cfg.SubscriberBuffer)
	}
	if cfg.BackupEnabled() {
		t.Error("backup should be disabled by default")
	}
	if cfg.BackupS3Region != "us-east-1" || cfg.BackupS3Key != "vaultsync/backup.jsonl" {
		t.Errorf("backup defaults = %q %q", cfg.BackupS3Region, cfg.BackupS3Key)
	}
	if !cfg.GRPCEnabled() {
		t.Error("gRPC should be enabled by default")
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelInfo {
		t.Errorf("log level = %v", lvl)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearAllEnv(t)
	for k, v := range map[string]string{
		"VAULTSYNC_HTTP_ADDR":          ":3000",
		"VAULTSYNC_GRPC_ADDR":          "off",
		"VAULTSYNC_DATABASE_URL":       "postgres://db:5432/vault",
		"VAULTSYNC_NATS_URL":           "nats://localhost:4222",
		"VAULTSYNC_PRESENCE_TTL":       "90s",
		"VAULTSYNC_KEEPALIVE_INTERVAL": "30s",
		"VAULTSYNC_SUBSCRIBER_BUFFER":  "8",
		"VAULTSYNC_BACKUP_INTERVAL":    "10m",
		"VAULTSYNC_BACKUP_S3_BUCKET":   "vault-backups",
		"VAULTSYNC_LOG_LEVEL":          "debug",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":3000" || cfg.GRPCEnabled() {
		t.Errorf("addrs = %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.DatabaseURL != "postgres://db:5432/vault" || cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("urls = %q %q", cfg.DatabaseURL, cfg.NATSURL)
	}
	if cfg.PresenceTTL != 90*time.Second || cfg.KeepaliveInterval != 30*time.Second || cfg.SubscriberBuffer != 8 {
		t.Errorf("tuning = %v %v %d", cfg.PresenceTTL, cfg.KeepaliveInterval, cfg.SubscriberBuffer)
	}
	if !cfg.BackupEnabled() || cfg.BackupInterval != 10*time.Minute {
		t.Errorf("backup = %v enabled=%v", cfg.BackupInterval, cfg.BackupEnabled())
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("log level = %v", lvl)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"BadDuration", map[string]string{"VAULTSYNC_PRESENCE_TTL": "soon"}, "PresenceTTL"},
		{"ZeroTTL", map[string]string{"VAULTSYNC_PRESENCE_TTL": "0s"}, "VAULTSYNC_PRESENCE_TTL must be positive"},
		{"EvictBeforeTTL", map[string]string{"VAULTSYNC_PRESENCE_EVICT_AFTER": "1m"}, "VAULTSYNC_PRESENCE_EVICT_AFTER"},
		{"ZeroBuffer", map[string]string{"VAULTSYNC_SUBSCRIBER_BUFFER": "0"}, "VAULTSYNC_SUBSCRIBER_BUFFER"},
		{"BackupWithoutDestination", map[string]string{"VAULTSYNC_BACKUP_INTERVAL": "5m"}, "no backup destination"},
		{"BadLogLevel", map[string]string{"VAULTSYNC_LOG_LEVEL": "loud"}, "VAULTSYNC_LOG_LEVEL"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
