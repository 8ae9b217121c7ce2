// Package config loads the cache settings used by the tagcache binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	cache "github.com/krisalay/tagged-cache"
	"github.com/krisalay/tagged-cache/expiration"
	"github.com/krisalay/tagged-cache/scheduler"
)

// Executor kinds accepted in the executor field.
const (
	ExecutorInline  = "inline"
	ExecutorBounded = "bounded"
	ExecutorWorker  = "worker"
)

type Config struct {
	// ScanFrequency is the minimum interval between two expiration sweeps.
	ScanFrequency time.Duration `yaml:"scan_frequency"`

	// Executor selects where sweeps run: inline, bounded or worker.
	Executor string `yaml:"executor"`

	// Workers caps concurrent sweeps for the bounded executor.
	// 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// QueueSize is the task buffer of the worker executor.
	QueueSize int `yaml:"queue_size"`

	LogLevel string `yaml:"log_level"`

	// DefaultLifetime and Sliding form the policy used by the CLI for every write.
	DefaultLifetime time.Duration `yaml:"default_lifetime"`
	Sliding         bool          `yaml:"sliding"`
}

// Default returns a configuration that passes Validate.
func Default() Config {
	return Config{
		ScanFrequency:   time.Minute,
		Executor:        ExecutorBounded,
		QueueSize:       64,
		LogLevel:        "info",
		DefaultLifetime: 5 * time.Minute,
	}
}

// Load reads a YAML file on top of Default and validates the result.
// Unknown fields are rejected. An empty file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs error
	if c.ScanFrequency <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("scan_frequency must be positive, got %s", c.ScanFrequency))
	}
	switch c.Executor {
	case ExecutorInline, ExecutorBounded, ExecutorWorker:
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid executor: %q. Must be one of: inline, bounded, worker", c.Executor))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Executor == ExecutorWorker && c.QueueSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("queue_size must be positive for the worker executor, got %d", c.QueueSize))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := c.Policy().Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("default_lifetime: %w", err))
	}
	return errs
}

// Logger builds a console logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = level > zapcore.DebugLevel
	return zc.Build()
}

// NewExecutor builds the configured sweep executor. The returned stop function
// releases its goroutines and must be called when the cache is discarded.
func (c Config) NewExecutor() (scheduler.Executor, func(), error) {
	switch c.Executor {
	case ExecutorInline:
		return scheduler.Inline{}, func() {}, nil
	case ExecutorBounded:
		if c.Workers == 0 {
			return scheduler.Shared(), func() {}, nil
		}
		return scheduler.NewBounded(c.Workers), func() {}, nil
	case ExecutorWorker:
		w := scheduler.NewWorker(c.QueueSize)
		return w, w.Close, nil
	default:
		return nil, nil, fmt.Errorf("config: invalid executor %q", c.Executor)
	}
}

// Policy is the expiration policy for writes made by the CLI.
func (c Config) Policy() expiration.Policy {
	if c.Sliding {
		return expiration.Sliding(c.DefaultLifetime)
	}
	return expiration.Absolute(c.DefaultLifetime)
}

// NewCache builds a cache from the configuration, logging to log.
func NewCache[K comparable](c Config, log *zap.Logger) (*cache.Cache[K], func(), error) {
	exec, stop, err := c.NewExecutor()
	if err != nil {
		return nil, nil, err
	}
	cc, err := cache.New[K](c.ScanFrequency, cache.WithExecutor(exec), cache.WithLogger(log))
	if err != nil {
		stop()
		return nil, nil, err
	}
	return cc, stop, nil
}
