// Package config loads partchat settings from defaults, an optional YAML or
// TOML file and environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Assistant service
	ServerURL     string
	ClientTimeout time.Duration

	// Validation layer options sent with every chat turn
	EnableValidation    bool
	ValidationThreshold int

	// Content gating
	RetailerDomains []string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors the config file layout, YAML or TOML. Pointer fields
// distinguish "unset" from zero values.
type fileConfig struct {
	ServerURL       string   `yaml:"server_url" toml:"server_url"`
	ClientTimeout   string   `yaml:"client_timeout" toml:"client_timeout"`
	RetailerDomains []string `yaml:"retailer_domains" toml:"retailer_domains"`
	Validation      struct {
		Enabled   *bool `yaml:"enabled" toml:"enabled"`
		Threshold *int  `yaml:"threshold" toml:"threshold"`
	} `yaml:"validation" toml:"validation"`
	Logging struct {
		File  string `yaml:"file" toml:"file"`
		Level string `yaml:"level" toml:"level"`
	} `yaml:"logging" toml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerURL:           "http://localhost:8000",
		ClientTimeout:       2 * time.Minute,
		EnableValidation:    true,
		ValidationThreshold: 70,
		RetailerDomains:     []string{"partselect.com"},
		LogFile:             "/tmp/partchat.log",
		LogLevel:            slog.LevelInfo,
	}
}

// Load builds the configuration from defaults, the first config file found
// (see ConfigPaths) and environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	for _, path := range ConfigPaths() {
		err := cfg.mergeFile(path)
		if err == nil {
			break
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return Config{}, err
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromPath builds the configuration from defaults and a specific file,
// then applies environment overrides. A missing file is an error.
func LoadFromPath(path string) (Config, error) {
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ConfigPaths lists candidate config files in lookup order.
func ConfigPaths() []string {
	var paths []string
	if p := os.Getenv("PARTCHAT_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "partchat.yaml", "partchat.toml")
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "partchat")
		paths = append(paths, filepath.Join(dir, "config.yaml"), filepath.Join(dir, "config.toml"))
	}
	return paths
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("server URL is required")
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client timeout must be positive, got %s", c.ClientTimeout)
	}
	if c.ValidationThreshold < 0 || c.ValidationThreshold > 100 {
		return fmt.Errorf("validation threshold must be between 0 and 100, got %d", c.ValidationThreshold)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		c.ServerURL = fc.ServerURL
	}
	if fc.ClientTimeout != "" {
		d, err := time.ParseDuration(fc.ClientTimeout)
		if err != nil {
			return fmt.Errorf("invalid client_timeout %q: %w", fc.ClientTimeout, err)
		}
		c.ClientTimeout = d
	}
	if len(fc.RetailerDomains) > 0 {
		c.RetailerDomains = fc.RetailerDomains
	}
	if fc.Validation.Enabled != nil {
		c.EnableValidation = *fc.Validation.Enabled
	}
	if fc.Validation.Threshold != nil {
		c.ValidationThreshold = *fc.Validation.Threshold
	}
	if fc.Logging.File != "" {
		c.LogFile = fc.Logging.File
	}
	if fc.Logging.Level != "" {
		c.LogLevel = parseLogLevel(fc.Logging.Level)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.ServerURL = getEnv("PARTCHAT_SERVER_URL", c.ServerURL)
	c.LogFile = getEnv("PARTCHAT_LOG_FILE", c.LogFile)

	if v := os.Getenv("PARTCHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv("PARTCHAT_CLIENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PARTCHAT_CLIENT_TIMEOUT %q: %w", v, err)
		}
		c.ClientTimeout = d
	}
	if v := os.Getenv("PARTCHAT_ENABLE_VALIDATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PARTCHAT_ENABLE_VALIDATION %q: %w", v, err)
		}
		c.EnableValidation = b
	}
	if v := os.Getenv("PARTCHAT_VALIDATION_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PARTCHAT_VALIDATION_THRESHOLD %q: %w", v, err)
		}
		c.ValidationThreshold = n
	}
	if v := os.Getenv("PARTCHAT_RETAILER_DOMAINS"); v != "" {
		c.RetailerDomains = splitList(v)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
