package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Logs    LogsConfig    `toml:"logs" yaml:"logs"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Auth    AuthConfig    `toml:"auth" yaml:"auth"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// LogsConfig describes where the log files to serve live
type LogsConfig struct {
	Dir         string `toml:"dir" yaml:"dir"`
	MaxLineSize string `toml:"max_line_size" yaml:"max_line_size"` // e.g., "1MB", "256KB"
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string `toml:"host" yaml:"host"`
	Port            int    `toml:"port" yaml:"port"`
	AutoOpenBrowser bool   `toml:"auto_open_browser" yaml:"auto_open_browser"`
}

// AuthConfig holds the HTTP basic auth credentials. PasswordHash, when
// set, is a bcrypt hash and takes precedence over Password.
type AuthConfig struct {
	Username     string `toml:"username" yaml:"username"`
	Password     string `toml:"password" yaml:"password"`
	PasswordHash string `toml:"password_hash" yaml:"password_hash"`
}

// LoggingConfig controls the process's own log output
type LoggingConfig struct {
	Level      string `toml:"level" yaml:"level"` // debug, info, warn, error
	Path       string `toml:"path" yaml:"path"`   // empty logs to stderr
	MaxSize    int    `toml:"max_size" yaml:"max_size"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAge     int    `toml:"max_age" yaml:"max_age"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

const (
	DefaultUsername = "admin"
	DefaultPassword = "admin"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logs: LogsConfig{
			Dir:         "logs",
			MaxLineSize: "1MB",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			AutoOpenBrowser: false,
		},
		Auth: AuthConfig{
			Username: DefaultUsername,
			Password: DefaultPassword,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load loads configuration from a TOML or YAML file, picked by extension.
// A missing file yields the defaults. Environment overrides are applied
// last in both cases.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := decodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

// applyEnv overrides selected settings from LOGDASH_* variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("LOGDASH_LOG_DIR"); v != "" {
		c.Logs.Dir = v
	}
	if v := os.Getenv("LOGDASH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LOGDASH_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOGDASH_USERNAME"); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv("LOGDASH_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
	return nil
}

// Validate checks the values that would otherwise fail late at startup
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Logs.Dir) == "" {
		return errors.New("logs.dir must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if _, err := ParseSize(c.Logs.MaxLineSize); err != nil {
		return fmt.Errorf("invalid logs.max_line_size: %w", err)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UsesDefaultCredentials reports whether the shipped admin/admin pair is
// still in effect.
func (a AuthConfig) UsesDefaultCredentials() bool {
	return a.Username == DefaultUsername && a.Password == DefaultPassword && a.PasswordHash == ""
}

// ParseSize parses a size string like "1GB", "500MB" to bytes
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	var multiplier int64 = 1
	var numStr string

	if strings.HasSuffix(sizeStr, "GB") {
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(sizeStr, "GB")
	} else if strings.HasSuffix(sizeStr, "MB") {
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(sizeStr, "MB")
	} else if strings.HasSuffix(sizeStr, "KB") {
		multiplier = 1024
		numStr = strings.TrimSuffix(sizeStr, "KB")
	} else {
		return 0, fmt.Errorf("invalid size format: %s (use KB, MB, or GB)", sizeStr)
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil || num <= 0 {
		return 0, fmt.Errorf("invalid size number: %s", numStr)
	}

	return int64(num * float64(multiplier)), nil
}

// GetMaxLineSizeBytes returns the longest accepted log line in bytes
func (c *Config) GetMaxLineSizeBytes() int {
	size, err := ParseSize(c.Logs.MaxLineSize)
	if err != nil {
		return 1024 * 1024 // Default to 1MB
	}
	return int(size)
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
