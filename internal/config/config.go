// Package config loads the kp configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xcawolfe-amzn/kiropool/internal/pool"
	"github.com/xcawolfe-amzn/kiropool/internal/util"
)

// DefaultPath is the config file location unless overridden with --config.
const DefaultPath = "~/.kiropool/config.toml"

// Config controls where state lives and how selection behaves. All paths
// are injected into the store explicitly; nothing reads the environment at
// use time.
type Config struct {
	// StateDir holds accounts.json, usage.json, and their lock files.
	StateDir string `toml:"state_dir"`
	// Strategy is the default selection strategy.
	Strategy string `toml:"strategy"`
	// NotifyDebounce suppresses repeated switch notifications for the
	// same account, e.g. "30s".
	NotifyDebounce duration `toml:"notify_debounce"`
}

// duration lets TOML carry Go duration strings.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StateDir:       "~/.kiropool",
		Strategy:       string(pool.StrategySticky),
		NotifyDebounce: duration{pool.DefaultNotifyDebounce},
	}
}

// Load reads the config at path, falling back to defaults when the file is
// absent. A present-but-invalid file is an error: silently ignoring a
// malformed config would mask typos in strategy names.
func Load(path string) (*Config, error) {
	cfg := Default()
	expanded := util.ExpandHome(path)

	data, err := os.ReadFile(expanded)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", expanded, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", expanded, err)
	}
	if _, err := pool.ParseStrategy(cfg.Strategy); err != nil {
		return nil, fmt.Errorf("config %s: %w", expanded, err)
	}
	if cfg.NotifyDebounce.Duration <= 0 {
		cfg.NotifyDebounce = duration{pool.DefaultNotifyDebounce}
	}
	return cfg, nil
}

// PoolStrategy returns the configured strategy as a pool.Strategy.
func (c *Config) PoolStrategy() pool.Strategy {
	s, err := pool.ParseStrategy(c.Strategy)
	if err != nil {
		return pool.StrategySticky
	}
	return s
}

// Dir returns the state directory with ~ expanded.
func (c *Config) Dir() string {
	return util.ExpandHome(c.StateDir)
}

// Debounce returns the notify debounce window.
func (c *Config) Debounce() time.Duration {
	return c.NotifyDebounce.Duration
}
