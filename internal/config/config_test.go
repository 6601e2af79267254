package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xcawolfe-amzn/kiropool/internal/pool"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Strategy != string(pool.StrategySticky) {
		t.Errorf("Strategy = %q, want sticky", cfg.Strategy)
	}
	if cfg.Debounce() != pool.DefaultNotifyDebounce {
		t.Errorf("Debounce = %s, want %s", cfg.Debounce(), pool.DefaultNotifyDebounce)
	}
	if cfg.StateDir != "~/.kiropool" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
state_dir = "/var/lib/kiropool"
strategy = "round-robin"
notify_debounce = "45s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Dir() != "/var/lib/kiropool" {
		t.Errorf("Dir() = %q", cfg.Dir())
	}
	if cfg.PoolStrategy() != pool.StrategyRoundRobin {
		t.Errorf("PoolStrategy() = %s", cfg.PoolStrategy())
	}
	if cfg.Debounce() != 45*time.Second {
		t.Errorf("Debounce() = %s", cfg.Debounce())
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`strategy = "chaotic"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`state_dir = [`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
