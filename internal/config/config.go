// Package config loads the optional YAML config file. Command-line flags and
// HABITFLOW_* environment variables take precedence over anything read here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/utils"
)

// DefaultPath is where the config file lives unless --config-file says otherwise.
var DefaultPath = filepath.Join(constants.DefaultConfigDir, "config.yaml")

// Config is the whole config file.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
}

// LoggingConfig controls the log files under the config directory.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is text or json
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ServerConfig configures `habitflow serve`.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Database is a SQLite path or a PostgreSQL connection string without credentials
	Database string `yaml:"database"`
	Timezone string `yaml:"timezone"`
	// CoachURL points at an external text service; empty uses the built-in tips
	CoachURL string `yaml:"coach_url"`
}

// ClientConfig configures the offline cache and sync engine.
type ClientConfig struct {
	ServerURL      string        `yaml:"server_url"`
	CachePath      string        `yaml:"cache_path"`
	Timezone       string        `yaml:"timezone"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SyncInterval   time.Duration `yaml:"sync_interval"`
	ProbeInterval  time.Duration `yaml:"probe_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Listen:   constants.DefaultListenAddr,
			Database: constants.DefaultDBPath,
			Timezone: "Local",
		},
		Client: ClientConfig{
			ServerURL:      constants.DefaultServerURL,
			CachePath:      constants.DefaultCachePath,
			Timezone:       "Local",
			RequestTimeout: constants.DefaultRequestTimeout,
			SyncInterval:   constants.DefaultSyncInterval,
			ProbeInterval:  constants.DefaultProbeInterval,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(utils.ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.normalized(), nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg = cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

// Save writes cfg as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	path = utils.ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail much later.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits must not be negative")
	}
	if !utils.ValidateTimezone(c.Server.Timezone) {
		return fmt.Errorf("server.timezone %q is not a valid IANA timezone", c.Server.Timezone)
	}
	if !utils.ValidateTimezone(c.Client.Timezone) {
		return fmt.Errorf("client.timezone %q is not a valid IANA timezone", c.Client.Timezone)
	}
	if u, err := url.Parse(c.Client.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.server_url %q must be an absolute URL", c.Client.ServerURL)
	}
	if c.Server.CoachURL != "" {
		if u, err := url.Parse(c.Server.CoachURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.coach_url %q must be an absolute URL", c.Server.CoachURL)
		}
	}
	if c.Client.RequestTimeout < 0 || c.Client.SyncInterval < 0 || c.Client.ProbeInterval < 0 {
		return fmt.Errorf("client durations must not be negative")
	}
	return nil
}

func (c Config) fillDefaults() Config {
	def := Default()
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.Database == "" {
		c.Server.Database = def.Server.Database
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = def.Server.Timezone
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = def.Client.ServerURL
	}
	if c.Client.CachePath == "" {
		c.Client.CachePath = def.Client.CachePath
	}
	if c.Client.Timezone == "" {
		c.Client.Timezone = def.Client.Timezone
	}
	if c.Client.RequestTimeout == 0 {
		c.Client.RequestTimeout = def.Client.RequestTimeout
	}
	if c.Client.SyncInterval == 0 {
		c.Client.SyncInterval = def.Client.SyncInterval
	}
	if c.Client.ProbeInterval == 0 {
		c.Client.ProbeInterval = def.Client.ProbeInterval
	}
	return c
}

// normalized expands a leading ~ in file paths.
func (c Config) normalized() Config {
	c.Client.CachePath = utils.ExpandHome(c.Client.CachePath)
	c.Server.Database = utils.ExpandHome(c.Server.Database)
	return c
}
