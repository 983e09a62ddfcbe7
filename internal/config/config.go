package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings threadline needs to reach its backend.
type Config struct {
	ServerURL       string
	MediaURL        string
	Username        string
	Lat             *float64
	Lon             *float64
	Timeout         time.Duration
	MaxRetries      int
	PollInterval    time.Duration
	LocationTimeout time.Duration
	FeedPageSize    int
	LogLevel        string
	LogFile         string
}

const (
	defaultConfigPath      = "~/.config/threadline/config.toml"
	defaultLogFile         = "~/.local/state/threadline/threadline.log"
	defaultServerURL       = "http://127.0.0.1:8000"
	defaultMediaURL        = "https://threadline.sheline.me/"
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultPollInterval    = 30 * time.Second
	defaultLocationTimeout = 15 * time.Second
	defaultFeedPageSize    = 10
	defaultLogLevel        = "info"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:       defaultServerURL,
		MediaURL:        defaultMediaURL,
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		PollInterval:    defaultPollInterval,
		LocationTimeout: defaultLocationTimeout,
		FeedPageSize:    defaultFeedPageSize,
		LogLevel:        defaultLogLevel,
		LogFile:         mustExpand(defaultLogFile),
	}
}

type fileConfig struct {
	ServerURL       string   `toml:"server_url"`
	MediaURL        string   `toml:"media_url"`
	Username        string   `toml:"username"`
	Latitude        *float64 `toml:"latitude"`
	Longitude       *float64 `toml:"longitude"`
	Timeout         string   `toml:"timeout"`
	MaxRetries      *int     `toml:"max_retries"`
	PollInterval    string   `toml:"poll_interval"`
	LocationTimeout string   `toml:"location_timeout"`
	FeedPageSize    int      `toml:"feed_page_size"`
	LogLevel        string   `toml:"log_level"`
	LogFile         string   `toml:"log_file"`
}

// envOverrides lists the variables that win over the config file. Unset
// variables leave the file value in place.
type envOverrides struct {
	ServerURL string `env:"THREADLINE_SERVER_URL"`
	MediaURL  string `env:"THREADLINE_MEDIA_URL"`
	Username  string `env:"THREADLINE_USERNAME"`
	Lat       string `env:"THREADLINE_LAT"`
	Lon       string `env:"THREADLINE_LON"`
	LogLevel  string `env:"THREADLINE_LOG_LEVEL"`
}

// Load reads the config file, falling back to defaults when missing, then
// applies THREADLINE_* environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw fileConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.apply(raw); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) apply(raw fileConfig) error {
	setString(&c.ServerURL, raw.ServerURL)
	setString(&c.MediaURL, raw.MediaURL)
	setString(&c.Username, raw.Username)
	setString(&c.LogLevel, raw.LogLevel)
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	c.Lat = raw.Latitude
	c.Lon = raw.Longitude
	if raw.MaxRetries != nil {
		c.MaxRetries = *raw.MaxRetries
	}
	if raw.FeedPageSize > 0 {
		c.FeedPageSize = raw.FeedPageSize
	}
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", raw.Timeout, &c.Timeout},
		{"poll_interval", raw.PollInterval, &c.PollInterval},
		{"location_timeout", raw.LocationTimeout, &c.LocationTimeout},
	} {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse config: %s: %w", d.name, err)
		}
		if parsed > 0 {
			*d.dst = parsed
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	setString(&c.ServerURL, ov.ServerURL)
	setString(&c.MediaURL, ov.MediaURL)
	setString(&c.Username, ov.Username)
	setString(&c.LogLevel, ov.LogLevel)
	for _, f := range []struct {
		name string
		raw  string
		dst  **float64
	}{
		{"THREADLINE_LAT", ov.Lat, &c.Lat},
		{"THREADLINE_LON", ov.Lon, &c.Lon},
	} {
		v := strings.TrimSpace(f.raw)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse environment: %s: %w", f.name, err)
		}
		*f.dst = &parsed
	}
	return nil
}

// Validate rejects settings that cannot work.
func (c Config) Validate() error {
	if (c.Lat == nil) != (c.Lon == nil) {
		return errors.New("config: latitude and longitude must be set together")
	}
	if c.Lat != nil && (*c.Lat < -90 || *c.Lat > 90) {
		return fmt.Errorf("config: latitude %v out of range", *c.Lat)
	}
	if c.Lon != nil && (*c.Lon < -180 || *c.Lon > 180) {
		return fmt.Errorf("config: longitude %v out of range", *c.Lon)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// HasLocation reports whether fixed coordinates are configured.
func (c Config) HasLocation() bool {
	return c.Lat != nil && c.Lon != nil
}

// LogPath returns the threadline log file path.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return mustExpand(defaultLogFile)
	}
	return c.LogFile
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
