package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Version != CurrentConfigVersion {
		t.Errorf("expected version %d, got %d", CurrentConfigVersion, cfg.Version)
	}
	if cfg.Strategy != StrategyWindow {
		t.Errorf("expected strategy %s, got %s", StrategyWindow, cfg.Strategy)
	}
	if cfg.WindowSize != DefaultWindowSize {
		t.Errorf("expected window size %d, got %d", DefaultWindowSize, cfg.WindowSize)
	}
	if cfg.CacheCapacity != 0 {
		t.Errorf("expected unbounded cache, got capacity %d", cfg.CacheCapacity)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	cfg.Strategy = StrategyAuto
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected auto strategy to be valid, got error: %v", err)
	}

	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name:     "invalid version",
			mutate:   func(c *Config) { c.Version = 0 },
			expected: "invalid configuration: invalid version 0",
		},
		{
			name:     "unknown strategy",
			mutate:   func(c *Config) { c.Strategy = "soft" },
			expected: `invalid configuration: unknown strategy "soft"`,
		},
		{
			name:     "zero window",
			mutate:   func(c *Config) { c.WindowSize = 0 },
			expected: "invalid configuration: window size must be positive",
		},
		{
			name:     "negative cache capacity",
			mutate:   func(c *Config) { c.CacheCapacity = -1 },
			expected: "invalid configuration: cache capacity must not be negative",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.LogLevel = "loud" },
			expected: `invalid configuration: unknown log level "loud"`,
		},
		{
			name: "enabled telemetry without name",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.ServiceName = ""
			},
			expected: "invalid configuration: service_name cannot be empty",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if err.Error() != tc.expected {
				t.Errorf("expected error %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestConfigSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFileName)

	cfg := NewDefaultConfig()
	cfg.Update(func(c *Config) {
		c.Strategy = StrategyRandom
		c.CacheCapacity = 128
	})

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}

	loaded, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile: %v", err)
	}

	strategy, window, capacity := loaded.Snapshot()
	if strategy != StrategyRandom || window != DefaultWindowSize || capacity != 128 {
		t.Errorf("unexpected loaded config: %s %d %d", strategy, window, capacity)
	}
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfigFromFile(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFromFile(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	partial := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(partial, []byte(`{"strategy":"forward"}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFromFile(partial)
	if err != nil {
		t.Fatalf("partial config should fill defaults: %v", err)
	}
	if cfg.Strategy != StrategyForward || cfg.WindowSize != DefaultWindowSize {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
