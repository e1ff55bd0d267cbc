package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.tabroom/config.toml.
type Config struct {
	DefaultProfile    string   `toml:"default_profile"`
	DefaultSession    string   `toml:"default_session"`
	Transport         string   `toml:"transport"`
	RedisURL          string   `toml:"redis_url"`
	LogBackend        string   `toml:"log_backend"`
	PreviewEndpoint   string   `toml:"preview_endpoint"`
	PreviewTimeout    Duration `toml:"preview_timeout"`
	ReconcileInterval Duration `toml:"reconcile_interval"`
	PollInterval      Duration `toml:"poll_interval"`
	MetricsAddr       string   `toml:"metrics_addr"`
	Avatars           []string `toml:"avatars"`
}

// Duration is a time.Duration written as a string ("5s", "1m30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultAvatars is the fixed candidate set identities pick an avatar from.
var DefaultAvatars = []string{
	"https://i.pravatar.cc/100?img=1",
	"https://i.pravatar.cc/100?img=5",
	"https://i.pravatar.cc/100?img=12",
	"https://i.pravatar.cc/100?img=26",
	"https://i.pravatar.cc/100?img=31",
}

// Every tab is its own process; only transports that reach other processes
// are accepted.
var (
	transports  = []string{"sqlite", "redis"}
	logBackends = []string{"sqlite", "pebble"}
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Transport:      "sqlite",
		RedisURL:       "redis://127.0.0.1:6379/0",
		LogBackend:     "sqlite",
		PreviewTimeout: Duration{5 * time.Second},
		PollInterval:   Duration{100 * time.Millisecond},
		Avatars:        slices.Clone(DefaultAvatars),
	}
}

// Load reads config from the given path on top of Default. Returns an error
// if the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Avatars) == 0 {
		cfg.Avatars = slices.Clone(DefaultAvatars)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file is missing.
// Any other error is returned together with the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return Default(), err
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if c.Transport == "local" {
		return fmt.Errorf("transport %q only reaches tabs inside one process: use one of %v", c.Transport, transports)
	}
	if !slices.Contains(transports, c.Transport) {
		return fmt.Errorf("transport %q: must be one of %v", c.Transport, transports)
	}
	if !slices.Contains(logBackends, c.LogBackend) {
		return fmt.Errorf("log_backend %q: must be one of %v", c.LogBackend, logBackends)
	}
	if c.PreviewTimeout.Duration < 0 || c.ReconcileInterval.Duration < 0 || c.PollInterval.Duration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Warnings lists valid but limiting settings, for the daemon to log at boot.
func (c *Config) Warnings() []string {
	var out []string
	if c.LogBackend == "pebble" {
		out = append(out, "log_backend pebble locks the profile log to the first tab; "+
			"other tabs of the profile keep their messages in memory and replay nothing on reload")
	}
	return out
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
