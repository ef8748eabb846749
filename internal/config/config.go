// Package config loads server configuration, mirroring the teacher's
// internal/config/config.go: a struct with yaml tags, a Default()
// constructor, and a Load that falls back to defaults when the file is
// absent.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recognized server options (spec §6 Configuration, plus
// the ambient logging/pool-tuning keys SPEC_FULL.md §6.3 adds).
type Config struct {
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`

	Database DatabaseConfig `yaml:"database"`

	LogLevel string `yaml:"log_level"`

	PasswordHashCost   int `yaml:"password_hash_cost"`
	MatchRatingWindow  int `yaml:"match_rating_window"` // 0 = unbounded
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
	ChallengeTTLSeconds int `yaml:"challenge_ttl_seconds"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxConns int32 `yaml:"max_conns"`
	MinConns int32 `yaml:"min_conns"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

// IdleTimeout returns the configured idle timeout as a time.Duration.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// ChallengeTTL returns the configured challenge expiry as a time.Duration.
func (c Config) ChallengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLSeconds) * time.Second
}

// Default returns Config with the defaults spec §6 names.
func Default() Config {
	return Config{
		ListenHost: "0.0.0.0",
		ListenPort: 8765,
		LogLevel:   "info",
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "chessd",
			Password: "chessd",
			DBName:  "chessd",
			SSLMode: "disable",
		},
		PasswordHashCost:    12,
		MatchRatingWindow:   0,
		IdleTimeoutSeconds:  300,
		ChallengeTTLSeconds: 60,
	}
}

// Load reads Config from a YAML file at path, falling back to Default()
// when the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
