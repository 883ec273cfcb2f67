package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "Europe/Warsaw"
	defaultRefresh       = "*/30 * * * *"
	defaultHorizonDays   = 14
	defaultStartMonth    = 9
	defaultTokenPath     = "eduvulcan_token.json"
	defaultRestURL       = "https://lekcjaplus.vulcan.net.pl/{tenant}/api"
	defaultRequestsPerS  = 2.0
	defaultPageSize      = 500
	defaultLogLevel      = "info"
	maxRequestsPerSecond = 50.0
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and calendar feeds.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to combine lesson dates with local
	// times and to place all-day events on the timeline.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a five-field cron schedule (e.g. "*/30 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how far past today the fetch window reaches.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// SchoolYearStartMonth (1-12) anchors the start of the fetch window.
	SchoolYearStartMonth int `yaml:"school_year_start_month" json:"school_year_start_month"`

	// TokenPath points at the eduVULCAN token file. Relative paths are
	// resolved against the config file's directory.
	TokenPath string `yaml:"token_path" json:"token_path"`

	// RestURL is the API base; "{tenant}" is replaced with the token tenant.
	RestURL string `yaml:"rest_url" json:"rest_url"`

	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	PageSize          int     `yaml:"page_size" json:"page_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               defaultListen,
		Timezone:             defaultTimezone,
		RefreshCron:          defaultRefresh,
		HorizonDays:          defaultHorizonDays,
		SchoolYearStartMonth: defaultStartMonth,
		TokenPath:            defaultTokenPath,
		RestURL:              defaultRestURL,
		RequestsPerSecond:    defaultRequestsPerS,
		PageSize:             defaultPageSize,
		LogLevel:             defaultLogLevel,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.SchoolYearStartMonth < 1 || c.SchoolYearStartMonth > 12 {
		c.SchoolYearStartMonth = defaultStartMonth
	}
	if c.TokenPath == "" {
		c.TokenPath = defaultTokenPath
	}
	if c.RestURL == "" {
		c.RestURL = defaultRestURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRequestsPerS
	}
	if c.RequestsPerSecond > maxRequestsPerSecond {
		c.RequestsPerSecond = maxRequestsPerSecond
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ResolveTokenPath returns TokenPath, joined onto the config directory
// when relative.
func (c *Config) ResolveTokenPath(configPath string) string {
	if filepath.IsAbs(c.TokenPath) || configPath == "" {
		return c.TokenPath
	}
	return filepath.Join(filepath.Dir(configPath), c.TokenPath)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unsaved default is usable.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".vulcancal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
