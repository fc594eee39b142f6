// Package config loads the YAML configuration shared by the bptreeindex
// binaries.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
	"github.com/sushant-115/bptreeindex/pkg/logger"
	"github.com/sushant-115/bptreeindex/pkg/telemetry"
	"gopkg.in/yaml.v3"
)

// DefaultOrder is the branching factor used when none is configured.
const DefaultOrder = 16

var ErrInvalidConfig = errors.New("invalid configuration")

// IndexConfig configures the index manager.
type IndexConfig struct {
	Order int `yaml:"order"`
	// VerifyEveryMutation runs a full structural check after each Put and
	// Delete. Expensive; meant for tests and debugging.
	VerifyEveryMutation bool `yaml:"verify_every_mutation"`
}

// SelfTestConfig configures the randomized self-test driver.
type SelfTestConfig struct {
	Keys        int     `yaml:"keys"`
	MaxKey      int     `yaml:"max_key"`
	DeleteRatio float64 `yaml:"delete_ratio"`
	// VerifyEvery runs Verify after every Nth delete. 0 disables the cadence.
	VerifyEvery int    `yaml:"verify_every"`
	DotFile     string `yaml:"dot_file"`
	OpsPerSec   int    `yaml:"ops_per_sec"`
}

// Config is the top-level configuration file.
type Config struct {
	Index     IndexConfig      `yaml:"index"`
	SelfTest  SelfTestConfig   `yaml:"selftest"`
	Logger    logger.Config    `yaml:"logger"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Index: IndexConfig{Order: DefaultOrder},
		SelfTest: SelfTestConfig{
			Keys:        10000,
			MaxKey:      1000000,
			DeleteRatio: 0.5,
			VerifyEvery: 100,
		},
		Logger: logger.Config{Level: "info", Format: "console", OutputFile: "stderr"},
		Telemetry: telemetry.Config{
			ServiceName:      logger.DefaultService,
			TraceSampleRatio: 1.0,
		},
	}
}

// Load reads the YAML file at path over Default. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the binaries cannot run with.
func (c Config) Validate() error {
	if c.Index.Order < bptree.MinOrder {
		return fmt.Errorf("%w: index.order must be at least %d, got %d", ErrInvalidConfig, bptree.MinOrder, c.Index.Order)
	}
	st := c.SelfTest
	switch {
	case st.Keys < 0:
		return fmt.Errorf("%w: selftest.keys must not be negative, got %d", ErrInvalidConfig, st.Keys)
	case st.MaxKey < st.Keys:
		return fmt.Errorf("%w: selftest.max_key %d cannot hold %d unique keys", ErrInvalidConfig, st.MaxKey, st.Keys)
	case st.DeleteRatio < 0 || st.DeleteRatio > 1:
		return fmt.Errorf("%w: selftest.delete_ratio must be within [0, 1], got %v", ErrInvalidConfig, st.DeleteRatio)
	case st.VerifyEvery < 0:
		return fmt.Errorf("%w: selftest.verify_every must not be negative, got %d", ErrInvalidConfig, st.VerifyEvery)
	case st.OpsPerSec < 0:
		return fmt.Errorf("%w: selftest.ops_per_sec must not be negative, got %d", ErrInvalidConfig, st.OpsPerSec)
	}
	return nil
}
