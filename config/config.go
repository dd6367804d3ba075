// Package config loads FlowMesh configuration from YAML files and
// environment variables. Values resolve in order: defaults, YAML file,
// FLOWMESH_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// OrchestratorConfig tunes agent execution defaults.
type OrchestratorConfig struct {
	DefaultTimeout       time.Duration `yaml:"default_timeout"`
	DefaultRetryCount    int           `yaml:"default_retry_count"`
	MapReduceConcurrency int           `yaml:"map_reduce_concurrency"`
	ResultCacheTTL       time.Duration `yaml:"result_cache_ttl"`
	ResultCacheMaxBytes  int64         `yaml:"result_cache_max_bytes"`
}

// MemoryConfig tunes the shared memory manager.
type MemoryConfig struct {
	// SweepInterval is how often expired entries and messages are removed
	// in the background. Zero disables the sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// CapabilityConfig holds token verification settings.
type CapabilityConfig struct {
	// Secret is the HMAC signing secret for capability tokens.
	Secret string `yaml:"secret"`
}

// Config is the root configuration.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Memory       MemoryConfig       `yaml:"memory"`
	Capability   CapabilityConfig   `yaml:"capability"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Orchestrator: OrchestratorConfig{
			DefaultTimeout:       60 * time.Second,
			DefaultRetryCount:    0,
			MapReduceConcurrency: 8,
			ResultCacheTTL:       5 * time.Minute,
			ResultCacheMaxBytes:  64 << 20,
		},
		Memory: MemoryConfig{
			SweepInterval: time.Minute,
		},
	}
}

// Load builds a Config from the optional YAML file at path and from
// FLOWMESH_* environment variables. A .env file in the working directory is
// loaded first when present. An empty path skips the file step.
func Load(path string) (*Config, error) {
	// Missing .env files are fine; only load failures of an existing file
	// would surface here and those are not fatal either.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("FLOWMESH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("FLOWMESH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("FLOWMESH_CAPABILITY_SECRET"); v != "" {
		cfg.Capability.Secret = v
	}

	if v := os.Getenv("FLOWMESH_DEFAULT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FLOWMESH_DEFAULT_TIMEOUT: %w", err)
		}
		cfg.Orchestrator.DefaultTimeout = d
	}

	if v := os.Getenv("FLOWMESH_MAP_REDUCE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FLOWMESH_MAP_REDUCE_CONCURRENCY: %w", err)
		}
		cfg.Orchestrator.MapReduceConcurrency = n
	}

	if v := os.Getenv("FLOWMESH_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FLOWMESH_SWEEP_INTERVAL: %w", err)
		}
		cfg.Memory.SweepInterval = d
	}

	return nil
}
