package worker

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/stealpool/pkg/types"
)

// ShutdownPolicy selects what Shutdown does with tasks still queued
type ShutdownPolicy string

const (
	// ShutdownDrain executes every accepted task before workers stop
	ShutdownDrain ShutdownPolicy = "drain"
	// ShutdownDiscard drops queued tasks; in-flight tasks still finish
	ShutdownDiscard ShutdownPolicy = "discard"
)

// ScalingConfig tunes the automatic scaling control loop
type ScalingConfig struct {
	// Interval is the sampling period; zero disables automatic scaling
	Interval time.Duration `yaml:"interval"`

	// BacklogPerWorker is the queued-tasks-per-worker level above which
	// the pool is considered overloaded
	BacklogPerWorker int `yaml:"backlog_per_worker"`

	// ScaleUpAfter is how long an overload must persist before a worker is added
	ScaleUpAfter time.Duration `yaml:"scale_up_after"`

	// ScaleDownAfter is how long a worker must sit idle before it is retired
	ScaleDownAfter time.Duration `yaml:"scale_down_after"`
}

// Config contains configuration for the work-stealing pool
type Config struct {
	// MinWorkers is the minimum number of workers
	MinWorkers int `yaml:"min_workers"`

	// MaxWorkers is the maximum number of workers; zero means
	// runtime.NumCPU(), raised to MinWorkers if smaller
	MaxWorkers int `yaml:"max_workers"`

	// DequeCapacity is the initial capacity of each worker deque
	DequeCapacity int `yaml:"deque_capacity"`

	// StealRounds is how many passes over the peers an idle worker makes
	// before it parks (zero means 2)
	StealRounds int `yaml:"steal_rounds"`

	// ShutdownPolicy selects drain or discard on Shutdown
	ShutdownPolicy ShutdownPolicy `yaml:"shutdown_policy"`

	// FailureHistory is how many recent task failures are retained
	FailureHistory int `yaml:"failure_history"`

	// JoinTimeout bounds how long shutdown waits for a worker before it
	// logs the overrun and reports it from Close; zero waits silently
	JoinTimeout time.Duration `yaml:"join_timeout"`

	// Scaling tunes the automatic scaling control loop
	Scaling ScalingConfig `yaml:"scaling"`

	// FailureHandler receives task failures (optional, failures are logged otherwise)
	FailureHandler types.FailureHandler `yaml:"-"`

	// Logger for pool diagnostics (optional, defaults to slog.Default())
	Logger *slog.Logger `yaml:"-"`

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock `yaml:"-"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		MinWorkers:     1,
		MaxWorkers:     runtime.NumCPU(),
		DequeCapacity:  defaultDequeCapacity,
		StealRounds:    2,
		ShutdownPolicy: ShutdownDrain,
		FailureHistory: 64,
		JoinTimeout:    30 * time.Second,
		Scaling: ScalingConfig{
			Interval:         100 * time.Millisecond,
			BacklogPerWorker: 4,
			ScaleUpAfter:     200 * time.Millisecond,
			ScaleDownAfter:   30 * time.Second,
		},
		Clock: types.NewRealClock(),
	}
}

// ParseConfig decodes YAML on top of DefaultConfig
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes a YAML configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration, resolving MaxWorkers first
func (c *Config) Validate() error {
	if c.MinWorkers <= 0 {
		return types.NewConfigError("MinWorkers", c.MinWorkers, "must be positive")
	}
	if c.MaxWorkers < 0 {
		return types.NewConfigError("MaxWorkers", c.MaxWorkers, "must not be negative")
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = max(runtime.NumCPU(), c.MinWorkers)
	}
	if c.MaxWorkers < c.MinWorkers {
		return types.NewConfigError("MaxWorkers", c.MaxWorkers,
			fmt.Sprintf("must be >= MinWorkers (%d)", c.MinWorkers))
	}
	if c.DequeCapacity < 0 {
		return types.NewConfigError("DequeCapacity", c.DequeCapacity, "must not be negative")
	}
	if c.StealRounds < 0 {
		return types.NewConfigError("StealRounds", c.StealRounds, "must not be negative")
	}
	if c.FailureHistory < 0 {
		return types.NewConfigError("FailureHistory", c.FailureHistory, "must not be negative")
	}
	if c.JoinTimeout < 0 {
		return types.NewConfigError("JoinTimeout", c.JoinTimeout, "must not be negative")
	}
	switch c.ShutdownPolicy {
	case "", ShutdownDrain, ShutdownDiscard:
	default:
		return types.NewConfigError("ShutdownPolicy", c.ShutdownPolicy, "must be drain or discard")
	}
	s := c.Scaling
	if s.Interval < 0 || s.ScaleUpAfter < 0 || s.ScaleDownAfter < 0 {
		return types.NewConfigError("Scaling", s, "durations must not be negative")
	}
	if s.BacklogPerWorker < 0 {
		return types.NewConfigError("Scaling.BacklogPerWorker", s.BacklogPerWorker, "must not be negative")
	}
	return nil
}

// withDefaults fills optional fields
func (c Config) withDefaults() Config {
	if c.ShutdownPolicy == "" {
		c.ShutdownPolicy = ShutdownDrain
	}
	if c.DequeCapacity == 0 {
		c.DequeCapacity = defaultDequeCapacity
	}
	if c.StealRounds == 0 {
		c.StealRounds = 2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = types.NewRealClock()
	}
	return c
}
