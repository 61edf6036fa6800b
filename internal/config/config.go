// Package config reads the tracker settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rossigee/job-application-tracker/internal/minio"
	"github.com/rossigee/job-application-tracker/internal/records"
	"github.com/rossigee/job-application-tracker/internal/retry"
	"github.com/sirupsen/logrus"
)

// Slot backends
const (
	SlotMemory = "memory"
	SlotSQLite = "sqlite"
	SlotMinIO  = "minio"
)

// DefaultMinIORetry is used when MINIO_RETRY_* are unset or malformed
var DefaultMinIORetry = retry.Config{
	MaxAttempts: 3,
	Delays:      []time.Duration{500 * time.Millisecond, 2 * time.Second},
}

// Config holds the process settings
type Config struct {
	Host     string
	Port     string
	LogLevel logrus.Level

	Slot    string
	SlotKey string
	DBPath  string
	MinIO   minio.Config

	APITokensFile string
	ClientCACert  string
	TLSCertFile   string
	TLSKeyFile    string
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// TLSEnabled reports whether both a certificate and key were configured
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Load reads files (or .env when none are given) into the environment, without
// overriding variables already set, then builds the Config.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return Config{}, fmt.Errorf("failed to load env files: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the Config from getenv
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	first := func(keys ...string) string {
		for _, key := range keys {
			if v := getenv(key); v != "" {
				return v
			}
		}
		return ""
	}

	cfg := Config{
		Host:    get("HOST", "0.0.0.0"),
		Port:    get("PORT", "8080"),
		Slot:    get("JOBTRACKER_SLOT", SlotSQLite),
		SlotKey: get("JOBTRACKER_SLOT_KEY", records.DefaultKey),
		DBPath:  get("JOBTRACKER_DB", "jobtracker.db"),
		MinIO: minio.Config{
			Endpoint:  getenv("MINIO_ENDPOINT"),
			AccessKey: first("MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY_ID"),
			SecretKey: first("MINIO_SECRET_KEY", "MINIO_SECRET_ACCESS_KEY"),
			Bucket:    get("MINIO_BUCKET", "jobtracker"),
			Prefix:    getenv("MINIO_PREFIX"),
			Retry:     retry.ParseConfig(getenv("MINIO_RETRY_ATTEMPTS"), getenv("MINIO_RETRY_BACKOFF_MS"), DefaultMinIORetry),
		},
		APITokensFile: getenv("API_TOKENS_FILE"),
		ClientCACert:  getenv("CLIENT_CA_CERT"),
		TLSCertFile:   getenv("TLS_CERT_FILE"),
		TLSKeyFile:    getenv("TLS_KEY_FILE"),
	}

	level, err := logrus.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.Slot {
	case SlotMemory, SlotSQLite:
	case SlotMinIO:
		if cfg.MinIO.Endpoint == "" {
			return Config{}, fmt.Errorf("MINIO_ENDPOINT is required when JOBTRACKER_SLOT=%s", SlotMinIO)
		}
	default:
		return Config{}, fmt.Errorf("invalid JOBTRACKER_SLOT '%s': must be %s, %s or %s",
			cfg.Slot, SlotMemory, SlotSQLite, SlotMinIO)
	}

	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return Config{}, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	return cfg, nil
}
