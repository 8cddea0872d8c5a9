package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/telemetry"
)

const (
	DefaultConfigFileName = "rowcursor.json"
	CurrentConfigVersion  = 1

	DefaultWindowSize = 10
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("configuration not found")
)

// Strategy selects how a result list materializes rows
type Strategy string

const (
	StrategyEager   Strategy = "eager"
	StrategySimple  Strategy = "simple"
	StrategyForward Strategy = "forward"
	StrategyRandom  Strategy = "random"
	StrategyWindow  Strategy = "window"

	// StrategyAuto resolves to simple for random access providers and to
	// window otherwise
	StrategyAuto Strategy = "auto"
)

// Strategies lists every concrete strategy in documentation order
var Strategies = []Strategy{StrategyEager, StrategySimple, StrategyForward, StrategyRandom, StrategyWindow}

// Valid reports whether s names a known strategy or auto
func (s Strategy) Valid() bool {
	if s == StrategyAuto {
		return true
	}
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

type Config struct {
	Version int `json:"version"`

	// Result list configuration
	Strategy      Strategy `json:"strategy"`
	WindowSize    int      `json:"window_size"`
	CacheCapacity int      `json:"cache_capacity"` // 0 keeps every fetched row

	LogLevel  string           `json:"log_level"`
	Telemetry telemetry.Config `json:"telemetry"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	return &Config{
		Version:       CurrentConfigVersion,
		Strategy:      StrategyWindow,
		WindowSize:    DefaultWindowSize,
		CacheCapacity: 0,
		LogLevel:      "info",
		Telemetry:     telemetry.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	if !c.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}

	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive", ErrInvalidConfig)
	}

	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache capacity must not be negative", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Telemetry.Enabled {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}

// LoadConfigFromFile reads and validates a configuration file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the configuration to path through a temporary file
func (c *Config) SaveConfig(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Snapshot returns the result list settings under the read lock
func (c *Config) Snapshot() (strategy Strategy, windowSize, cacheCapacity int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Strategy, c.WindowSize, c.CacheCapacity
}
