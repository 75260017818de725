// Package config loads the daemon settings from ~/.wprelay/config.toml,
// an optional .env file and WPRELAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/matheus3301/wprelay/internal/layout"
	"go.uber.org/zap/zapcore"
)

// Config is the daemon configuration. Durations are Go duration strings.
type Config struct {
	DataDir          string `toml:"data_dir"`
	SocketPath       string `toml:"socket_path"`
	LogLevel         string `toml:"log_level"`
	ResetInterval    string `toml:"reset_interval"`
	StartupGrace     string `toml:"startup_grace"`
	PfpMinDelay      string `toml:"pfp_min_delay"`
	PfpMaxDelay      string `toml:"pfp_max_delay"`
	PlaceholderImage string `toml:"placeholder_image"`
	DeviceName       string `toml:"device_name"`
	CreateTimeout    string `toml:"create_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:       layout.BaseDir(),
		LogLevel:      "info",
		ResetInterval: "25m",
		StartupGrace:  "5s",
		PfpMinDelay:   "30s",
		PfpMaxDelay:   "60s",
		DeviceName:    "wprelay",
		CreateTimeout: "60s",
	}
}

// Load reads config from path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
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

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Resolve builds the effective configuration: the env file is loaded into
// the environment, the TOML file is read over the defaults and WPRELAY_*
// variables are applied last.
func Resolve(configPath, envPath string) (*Config, error) {
	if err := LoadEnvFile(envPath); err != nil {
		return nil, err
	}
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// envPrefix namespaces environment overrides.
const envPrefix = "WPRELAY_"

// ApplyEnv overrides fields from WPRELAY_<FIELD> variables, e.g.
// WPRELAY_DATA_DIR. lookup is normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for key, field := range c.fields() {
		if v, ok := lookup(envPrefix + strings.ToUpper(key)); ok {
			*field = v
		}
	}
}

func (c *Config) fields() map[string]*string {
	return map[string]*string{
		"data_dir":          &c.DataDir,
		"socket_path":       &c.SocketPath,
		"log_level":         &c.LogLevel,
		"reset_interval":    &c.ResetInterval,
		"startup_grace":     &c.StartupGrace,
		"pfp_min_delay":     &c.PfpMinDelay,
		"pfp_max_delay":     &c.PfpMaxDelay,
		"placeholder_image": &c.PlaceholderImage,
		"device_name":       &c.DeviceName,
		"create_timeout":    &c.CreateTimeout,
	}
}

// Validate checks that every value parses and the delays are ordered.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	durations := map[string]string{
		"reset_interval": c.ResetInterval,
		"startup_grace":  c.StartupGrace,
		"pfp_min_delay":  c.PfpMinDelay,
		"pfp_max_delay":  c.PfpMaxDelay,
		"create_timeout": c.CreateTimeout,
	}
	for name, v := range durations {
		if _, err := parseDuration(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		minDelay, _ := parseDuration("pfp_min_delay", c.PfpMinDelay)
		maxDelay, _ := parseDuration("pfp_max_delay", c.PfpMaxDelay)
		if maxDelay < minDelay {
			errs = append(errs, fmt.Errorf("pfp_max_delay %s is below pfp_min_delay %s", maxDelay, minDelay))
		}
	}
	return errors.Join(errs...)
}

// Layout returns the data dir layout.
func (c *Config) Layout() layout.Layout {
	return layout.New(c.DataDir)
}

// Socket returns the configured control socket or the data dir default.
func (c *Config) Socket() string {
	if c.SocketPath != "" {
		return c.SocketPath
	}
	return c.Layout().SocketPath()
}

// Level parses log_level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Durations holds the parsed timing settings.
type Durations struct {
	ResetInterval time.Duration
	StartupGrace  time.Duration
	PfpMinDelay   time.Duration
	PfpMaxDelay   time.Duration
	CreateTimeout time.Duration
}

// Durations parses every duration field. Call Validate first.
func (c *Config) Durations() (Durations, error) {
	var (
		d   Durations
		err error
	)
	parse := func(dst *time.Duration, name, v string) {
		if err != nil {
			return
		}
		*dst, err = parseDuration(name, v)
	}
	parse(&d.ResetInterval, "reset_interval", c.ResetInterval)
	parse(&d.StartupGrace, "startup_grace", c.StartupGrace)
	parse(&d.PfpMinDelay, "pfp_min_delay", c.PfpMinDelay)
	parse(&d.PfpMaxDelay, "pfp_max_delay", c.PfpMaxDelay)
	parse(&d.CreateTimeout, "create_timeout", c.CreateTimeout)
	return d, err
}

func parseDuration(name, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", name)
	}
	return d, nil
}
