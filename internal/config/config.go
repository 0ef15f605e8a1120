// Package config parses worker configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds everything the worker needs to run. TimeLimitSec and
// MemoryLimit mirror the queue producers' contract: seconds and bytes.
type Config struct {
	DatabaseURL     string        `env:"DATABASE_URL"`
	BrokerURL       string        `env:"RABBITMQ_URL"`
	JobQueue        string        `env:"JOB_QUEUE" envDefault:"code_challenge_queue"`
	ResultQueue     string        `env:"RESULT_QUEUE" envDefault:"code_execution_queue"`
	TimeLimitSec    int           `env:"TIME_LIMIT" envDefault:"10"`
	MemoryLimit     int64         `env:"MEMORY_LIMIT" envDefault:"268435456"`
	NsjailPath      string        `env:"NSJAIL_PATH" envDefault:"/usr/local/bin/nsjail"`
	WorkRoot        string        `env:"WORK_ROOT"`
	MaxInflight     int           `env:"MAX_INFLIGHT" envDefault:"1"`
	LanguagesFile   string        `env:"LANGUAGES_FILE"`
	RedisURL        string        `env:"REDIS_URL"`
	OpsAddr         string        `env:"OPS_ADDR"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = os.TempDir()
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.BrokerURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}
	if c.JobQueue == "" {
		return fmt.Errorf("JOB_QUEUE is required")
	}
	if c.ResultQueue == "" {
		return fmt.Errorf("RESULT_QUEUE is required")
	}
	if c.TimeLimitSec <= 0 {
		return fmt.Errorf("TIME_LIMIT must be positive")
	}
	if c.MemoryLimit <= 0 {
		return fmt.Errorf("MEMORY_LIMIT must be positive")
	}
	if c.MaxInflight < 1 {
		return fmt.Errorf("MAX_INFLIGHT must be at least 1")
	}
	return nil
}

// WallLimit returns the per-case wall-clock limit as a duration.
func (c Config) WallLimit() time.Duration {
	return time.Duration(c.TimeLimitSec) * time.Second
}
