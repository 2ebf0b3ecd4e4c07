// Package config handles configuration loading and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Source records where a configuration value came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceUserFile Source = "user file"
	SourceProjFile Source = "project file"
	SourceEnv      Source = "environment"
	SourceFlag     Source = "flag"
)

// Default values.
const (
	DefaultServerURL         = "http://127.0.0.1:8090"
	DefaultTheme             = "classic"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultRequestTimeoutSec = 30
	DefaultOAuthRedirectPort = 8976
)

// Config holds the full configuration for tudu.
type Config struct {
	ServerURL         string `toml:"server_url"`
	Theme             string `toml:"theme"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
	LogTimestamps     bool   `toml:"log_timestamps"`
	RequestTimeoutSec int    `toml:"request_timeout_seconds"`
	OAuthRedirectPort int    `toml:"oauth_redirect_port"`
}

// WithSources pairs a loaded Config with the provenance of each field.
type WithSources struct {
	Config  *Config
	Sources map[string]Source
}

// Flags are the values supplied on the command line; empty/zero means
// the flag was not set.
type Flags struct {
	ServerURL string
	Theme     string
	LogLevel  string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:         DefaultServerURL,
		Theme:             DefaultTheme,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		LogTimestamps:     false,
		RequestTimeoutSec: DefaultRequestTimeoutSec,
		OAuthRedirectPort: DefaultOAuthRedirectPort,
	}
}

// RequestTimeout converts the configured timeout to a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return DefaultRequestTimeoutSec * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// UserConfigPath is ~/.tudu/config.toml.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tudu", "config.toml"), nil
}

// Load layers configuration: defaults, then the user file, then an
// optional project file (./tudu.toml), then TUDU_* environment
// variables, then flags. Every field's winning layer is recorded.
func Load(flags Flags) (*WithSources, error) {
	cfg := Default()
	sources := map[string]Source{
		"server_url":              SourceDefault,
		"theme":                   SourceDefault,
		"log_level":               SourceDefault,
		"log_format":              SourceDefault,
		"log_timestamps":          SourceDefault,
		"request_timeout_seconds": SourceDefault,
		"oauth_redirect_port":     SourceDefault,
	}

	if p, err := UserConfigPath(); err == nil {
		if err := mergeFile(cfg, sources, p, SourceUserFile); err != nil {
			return nil, err
		}
	}
	if err := mergeFile(cfg, sources, "tudu.toml", SourceProjFile); err != nil {
		return nil, err
	}

	mergeEnv(cfg, sources)
	mergeFlags(cfg, sources, flags)

	return &WithSources{Config: cfg, Sources: sources}, nil
}

// mergeFile overlays one TOML file when it exists; a missing file is not
// an error.
func mergeFile(cfg *Config, sources map[string]Source, path string, src Source) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var file Config
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for _, key := range meta.Keys() {
		switch key.String() {
		case "server_url":
			cfg.ServerURL = file.ServerURL
			sources["server_url"] = src
		case "theme":
			cfg.Theme = file.Theme
			sources["theme"] = src
		case "log_level":
			cfg.LogLevel = file.LogLevel
			sources["log_level"] = src
		case "log_format":
			cfg.LogFormat = file.LogFormat
			sources["log_format"] = src
		case "log_timestamps":
			cfg.LogTimestamps = file.LogTimestamps
			sources["log_timestamps"] = src
		case "request_timeout_seconds":
			cfg.RequestTimeoutSec = file.RequestTimeoutSec
			sources["request_timeout_seconds"] = src
		case "oauth_redirect_port":
			cfg.OAuthRedirectPort = file.OAuthRedirectPort
			sources["oauth_redirect_port"] = src
		}
	}
	return nil
}

func mergeEnv(cfg *Config, sources map[string]Source) {
	if v := os.Getenv("TUDU_SERVER_URL"); v != "" {
		cfg.ServerURL = v
		sources["server_url"] = SourceEnv
	}
	if v := os.Getenv("TUDU_THEME"); v != "" {
		cfg.Theme = v
		sources["theme"] = SourceEnv
	}
	if v := os.Getenv("TUDU_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		sources["log_level"] = SourceEnv
	}
	if v := os.Getenv("TUDU_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
		sources["log_format"] = SourceEnv
	}
	if v := os.Getenv("TUDU_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSec = n
			sources["request_timeout_seconds"] = SourceEnv
		}
	}
	if v := os.Getenv("TUDU_OAUTH_REDIRECT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OAuthRedirectPort = n
			sources["oauth_redirect_port"] = SourceEnv
		}
	}
}

func mergeFlags(cfg *Config, sources map[string]Source, flags Flags) {
	if flags.ServerURL != "" {
		cfg.ServerURL = flags.ServerURL
		sources["server_url"] = SourceFlag
	}
	if flags.Theme != "" {
		cfg.Theme = flags.Theme
		sources["theme"] = SourceFlag
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
		sources["log_level"] = SourceFlag
	}
}
