// Package config loads the trackfit.json configuration file and applies
// defaults and environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "trackfit.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":3000"

	// DefaultDatabase is the default SQLite database path.
	DefaultDatabase = "trackfit.db"

	// DefaultJWTSecret is the development fallback secret. Running with
	// it in production is reported by Warnings.
	DefaultJWTSecret = "change-me-in-production"
)

// Config is the complete trackfit.json configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr,omitempty"`

	// Database is the SQLite database file path.
	Database string `json:"database,omitempty"`

	// JWTSecret signs session tokens.
	JWTSecret string `json:"jwt_secret,omitempty"`

	// BcryptCost is the password hashing cost (0 = library default).
	BcryptCost int `json:"bcrypt_cost,omitempty"`

	// Realtime tunes the websocket fan-out layer.
	Realtime RealtimeConfig `json:"realtime,omitempty"`

	// Backup configures S3 database snapshots. Empty bucket disables it.
	Backup BackupConfig `json:"backup,omitempty"`

	// Metrics enables the /metrics endpoint. Defaults to true.
	Metrics *bool `json:"metrics,omitempty"`
}

// RealtimeConfig tunes the realtime subsystem.
type RealtimeConfig struct {
	// SendQueueSize bounds each connection's outbound queue.
	SendQueueSize int `json:"send_queue_size,omitempty"`

	// WriteTimeout is the per-frame write deadline.
	WriteTimeout Duration `json:"write_timeout,omitempty"`

	// MaxMessageSize limits inbound frame size in bytes.
	MaxMessageSize int64 `json:"max_message_size,omitempty"`

	// ReconnectDelay is the client-side fixed reconnect delay.
	ReconnectDelay Duration `json:"reconnect_delay,omitempty"`
}

// BackupConfig configures periodic S3 snapshots.
type BackupConfig struct {
	// Bucket is the S3 bucket name. Empty disables backups.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the object key prefix for snapshots.
	Prefix string `json:"prefix,omitempty"`

	// Interval between periodic snapshots. Zero means on-demand only.
	Interval Duration `json:"interval,omitempty"`
}

// Duration wraps time.Duration for JSON strings like "30s".
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration with all defaults applied.
func Default() *Config {
	metrics := true
	return &Config{
		Addr:      DefaultAddr,
		Database:  DefaultDatabase,
		JWTSecret: DefaultJWTSecret,
		Realtime: RealtimeConfig{
			SendQueueSize:  32,
			WriteTimeout:   Duration(10 * time.Second),
			MaxMessageSize: 4096,
			ReconnectDelay: Duration(3 * time.Second),
		},
		Backup:  BackupConfig{Prefix: "backups/"},
		Metrics: &metrics,
	}
}

// Load reads the config file at path (a missing file is not an error:
// the defaults apply), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = ConfigFileName
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRACKFIT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TRACKFIT_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("TRACKFIT_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
}

// Validate reports configuration errors that prevent startup.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}
	if c.Database == "" {
		return errors.New("config: database must not be empty")
	}
	if c.Realtime.SendQueueSize < 0 {
		return errors.New("config: realtime.send_queue_size must not be negative")
	}
	return nil
}

// Warnings reports non-fatal configuration smells.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.JWTSecret == DefaultJWTSecret {
		warnings = append(warnings, "jwt_secret is the development default; set TRACKFIT_JWT_SECRET")
	}
	if c.Backup.Bucket != "" && c.Backup.Interval.Std() > 0 && c.Backup.Interval.Std() < time.Minute {
		warnings = append(warnings, "backup.interval under a minute will hammer S3")
	}
	return warnings
}

// MetricsEnabled reports whether /metrics should be served.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}
