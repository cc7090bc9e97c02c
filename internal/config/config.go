// Package config loads metarboard.toml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/realmlist/metarboard/internal/models"
)

// DefaultPath is where LoadOrCreate writes a fresh config when none exists.
const DefaultPath = "metarboard.toml"

type Config struct {
	Station  StationConfig  `toml:"station"`
	Provider ProviderConfig `toml:"provider"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Display  DisplayConfig  `toml:"display"`
	Sinks    SinksConfig    `toml:"sinks"`

	// Path is the file the config was read from.
	Path string `toml:"-"`
}

// StationConfig seeds the settings store on first start. After that the
// stored settings win.
type StationConfig struct {
	ID         string        `toml:"id"`          // ICAO code, e.g. "EHGR"
	ReportKind string        `toml:"report_kind"` // "metar" or "taf"
	Interval   time.Duration `toml:"interval"`    // time between ticks
}

type ProviderConfig struct {
	BaseURL       string        `toml:"base_url"`       // aviationweather.gov data API root
	Format        string        `toml:"format"`         // "json" or "raw"
	Timeout       time.Duration `toml:"timeout"`        // per request
	MaxElapsed    time.Duration `toml:"max_elapsed"`    // total retry budget per fetch
	RetryInterval time.Duration `toml:"retry_interval"` // wait after a failed tick
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type StorageConfig struct {
	DBPath       string        `toml:"db_path"`
	RawRetention time.Duration `toml:"raw_retention"` // 0 keeps raw payloads forever
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type DisplayConfig struct {
	Timezone string `toml:"timezone"` // IANA name or "Local"
}

type SinksConfig struct {
	Stdout        bool   `toml:"stdout"`
	WebhookURL    string `toml:"webhook_url"`
	WebhookHeader string `toml:"webhook_header"`
	WebhookToken  string `toml:"webhook_token"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			ID:         "EHGR",
			ReportKind: string(models.KindMETAR),
			Interval:   5 * time.Minute,
		},
		Provider: ProviderConfig{
			BaseURL:       "https://aviationweather.gov/api/data",
			Format:        "json",
			Timeout:       30 * time.Second,
			MaxElapsed:    2 * time.Minute,
			RetryInterval: time.Minute,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{DBPath: "data/metarboard.db", RawRetention: 7 * 24 * time.Hour},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Display: DisplayConfig{Timezone: "Local"},
		Sinks:   SinksConfig{Stdout: true, WebhookHeader: "X-API-Key"},
	}
}

// Load reads path on top of Default. Unknown keys are an error so typos do
// not silently fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var top map[string]any
	if _, err := toml.Decode(string(data), &top); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	if isFlatFile(top) {
		cfg, err := fromFlatFile(top)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		cfg.Path = path
		return cfg, nil
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	return cfg, nil
}

// SearchPaths lists the candidate config files in order of preference.
func SearchPaths(preferred string) []string {
	paths := []string{preferred, "configs/metarboard.toml", DefaultPath}
	unique := make([]string, 0, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		if p != "" && !seen[p] {
			unique = append(unique, p)
			seen[p] = true
		}
	}
	return unique
}

// ErrNotFound is returned by LoadWithFallback when no candidate file exists.
var ErrNotFound = errors.New("config file not found")

// LoadWithFallback loads the first existing file from SearchPaths.
func LoadWithFallback(preferred string) (*Config, error) {
	for _, path := range SearchPaths(preferred) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return Load(path)
	}
	return nil, fmt.Errorf("%w in %v", ErrNotFound, SearchPaths(preferred))
}

// LoadOrCreate is LoadWithFallback that writes a default file when nothing is
// found. The file goes to preferred, or DefaultPath when preferred is empty.
func LoadOrCreate(preferred string) (*Config, bool, error) {
	cfg, err := LoadWithFallback(preferred)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	path := preferred
	if path == "" {
		path = DefaultPath
	}
	if err := WriteDefault(path); err != nil {
		return nil, false, err
	}
	cfg, err = Load(path)
	return cfg, true, err
}

// WriteDefault writes the default configuration to path, creating parent
// directories as needed.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultFile), 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

const defaultFile = `# metarboard configuration

[station]
id = "EHGR"
report_kind = "metar" # metar or taf
interval = "5m"

[provider]
base_url = "https://aviationweather.gov/api/data"
format = "json" # json or raw
timeout = "30s"
max_elapsed = "2m"
retry_interval = "1m"

[server]
addr = ":8080"

[storage]
db_path = "data/metarboard.db"
raw_retention = "168h"

[logging]
level = "info"
format = "console" # console or json

[display]
timezone = "Local"

[sinks]
stdout = true
webhook_url = ""
webhook_header = "X-API-Key"
webhook_token = ""
`

// Environment variables that override file values.
const (
	EnvStation      = "METARBOARD_STATION"
	EnvReportKind   = "METARBOARD_REPORT_KIND"
	EnvWebhookToken = "METARBOARD_WEBHOOK_TOKEN"
	EnvAPIKey       = "API_KEY"
)

// ApplyEnv overrides file values from the process environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvStation); ok && v != "" {
		c.Station.ID = strings.ToUpper(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvReportKind); ok && v != "" {
		c.Station.ReportKind = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.Sinks.WebhookToken = v
	}
	// The dedicated variable wins over the generic API_KEY.
	if v, ok := lookup(EnvWebhookToken); ok && v != "" {
		c.Sinks.WebhookToken = v
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Station.ID) == "" {
		return errors.New("station.id is required")
	}
	if _, err := models.ParseReportKind(c.Station.ReportKind); err != nil {
		return fmt.Errorf("station.report_kind: %w", err)
	}
	if c.Station.Interval < time.Minute {
		return fmt.Errorf("station.interval must be at least 1m, got %s (write durations with a unit, e.g. \"5m\")", c.Station.Interval)
	}

	u, err := url.Parse(c.Provider.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.base_url %q is not an absolute URL", c.Provider.BaseURL)
	}
	switch c.Provider.Format {
	case "json", "raw":
	default:
		return fmt.Errorf("provider.format must be json or raw, got %q", c.Provider.Format)
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("provider.timeout must be positive")
	}
	if c.Provider.RetryInterval <= 0 {
		return errors.New("provider.retry_interval must be positive")
	}
	if c.Provider.MaxElapsed < 0 {
		return errors.New("provider.max_elapsed must not be negative")
	}

	if c.Storage.DBPath == "" {
		return errors.New("storage.db_path is required")
	}
	if c.Storage.RawRetention < 0 {
		return errors.New("storage.raw_retention must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Sinks.WebhookURL != "" {
		u, err := url.Parse(c.Sinks.WebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("sinks.webhook_url %q is not an absolute URL", c.Sinks.WebhookURL)
		}
	}
	return nil
}

// Location resolves display.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" || c.Display.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display.timezone: %w", err)
	}
	return loc, nil
}

// Settings returns the station section as the default runtime settings.
func (c *Config) Settings() models.Settings {
	kind, err := models.ParseReportKind(c.Station.ReportKind)
	if err != nil {
		kind = models.KindMETAR
	}
	return models.Settings{
		StationID:  strings.ToUpper(c.Station.ID),
		ReportKind: kind,
		Interval:   c.Station.Interval,
	}
}
