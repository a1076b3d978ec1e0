// Package config provides configuration loading, validation, and defaults
// for the blue-relay-tools service. Values come from defaults, an optional
// config.yaml, and RELAY_* environment variables, in that order.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration is the sentinel error for configuration failures.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration for all components.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	ChatDB  ChatDBConfig  `mapstructure:"chatdb"`
	Journal JournalConfig `mapstructure:"journal"`
	Decode  DecodeConfig  `mapstructure:"decode"`
	Status  StatusConfig  `mapstructure:"status"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Watcher WatcherConfig `mapstructure:"watcher"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ChatDBConfig points at the Messages chat.db store. The store is opened
// read-only; the Messages process owns all writes.
type ChatDBConfig struct {
	Path         string        `mapstructure:"path"          validate:"required"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" validate:"required,min=100ms,max=1m"`
}

// JournalConfig points at the relay's own state database, which records
// send attempts and the inbound high-water mark.
type JournalConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DecodeConfig controls the attributed-body decoding pipeline.
type DecodeConfig struct {
	// BridgeCommand is the external helper invoked to unarchive blobs
	// with the native Foundation unarchiver. It receives the path of a
	// JSON manifest as its single argument and prints a JSON array of
	// {id, result, success} objects on stdout.
	BridgeCommand string        `mapstructure:"bridge_command"`
	BridgeTimeout time.Duration `mapstructure:"bridge_timeout" validate:"required,min=1s,max=2m"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout"  validate:"required,min=1s,max=5m"`
	TempDir       string        `mapstructure:"temp_dir"`
}

// StatusConfig controls delivery status derivation.
type StatusConfig struct {
	// FailTimeout is how long an undelivered outbound message may stay
	// without delivery flags before it is reported as failed. The store
	// gives no commit signal, so this is a policy value, not a guarantee.
	FailTimeout time.Duration `mapstructure:"fail_timeout" validate:"required,min=30s,max=24h"`
}

// VerifyConfig controls post-send verification polling.
type VerifyConfig struct {
	Retries     int           `mapstructure:"retries"      validate:"required,min=1,max=50"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"  validate:"required,min=50ms,max=10s"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"required,min=1s,max=5m"`
	// CountryPrefix is used when generating candidate handle forms for
	// bare national numbers (e.g. "+1").
	CountryPrefix string `mapstructure:"country_prefix"`
}

// WatcherConfig controls the inbound chat.db poller.
type WatcherConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"   validate:"required,min=500ms,max=10m"`
	BatchSize int           `mapstructure:"batch_size" validate:"required,min=1,max=500"`
}
