// Package config provides configuration loading for coinscope.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/coinscope/pkg/models"
)

const (
	// DefaultAddr is where the dashboard listens.
	DefaultAddr = "127.0.0.1:37810"

	// DefaultSeed is the seed the dashboard starts with.
	DefaultSeed uint64 = 834628956578

	// BaseTickBudget is the estimator time per tick at speed 1.
	BaseTickBudget = 30 * time.Millisecond

	dirName  = ".coinscope"
	fileName = "config.yaml"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config contains all coinscope settings.
type Config struct {
	// Session holds the parameters of the session started at launch.
	Session models.SessionParams `json:"session" yaml:"session"`

	// Display holds the display knobs. They can change while a session runs.
	Display models.Options `json:"display" yaml:"display"`

	// Speed scales the per-tick estimator budget.
	Speed float64 `json:"speed" yaml:"speed"`

	// TickInterval is the period of the display tick loop.
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`

	// Addr is the HTTP listen address of the dashboard.
	Addr string `json:"addr" yaml:"addr"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "info" (default), "debug" or "trace".
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the dashboard's initial values.
func Default() *Config {
	return &Config{
		Session: models.SessionParams{
			N:         1500,
			Seed:      DefaultSeed,
			StepSize:  1,
			Threshold: 1e-6,
		},
		Display:      models.DefaultOptions(),
		Speed:        1.2,
		TickInterval: 50 * time.Millisecond,
		Addr:         DefaultAddr,
		Logging:      LoggingConfig{Level: "info"},
	}
}

// TickBudget returns the estimator time per tick, 30ms scaled by Speed.
func (c *Config) TickBudget() time.Duration {
	return time.Duration(float64(BaseTickBudget) * c.Speed)
}

// DataDir returns the coinscope data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dirName)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(DataDir(), fileName)
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Load loads configuration from the default location and the environment.
// Order: defaults -> ~/.coinscope/config.yaml -> environment variables.
func Load() (*Config, error) {
	cfg := Default()

	path := Path()
	if _, statErr := os.Stat(path); statErr == nil {
		return LoadFrom(path)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFrom loads the YAML file at path and applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. Missing keys keep
// their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// YAML returns c encoded as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("%w: session: %v", ErrInvalidConfig, err)
	}
	if err := c.Display.Validate(); err != nil {
		return fmt.Errorf("%w: display: %v", ErrInvalidConfig, err)
	}
	if !(c.Speed > 0) || math.IsInf(c.Speed, 0) {
		return fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidConfig, c.Speed)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %v", ErrInvalidConfig, c.TickInterval)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level: %s (valid: info, debug, trace, or empty for default)", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies COINSCOPE_* environment variables. Unparsable
// values are ignored.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("COINSCOPE_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.N = n
		}
	}
	if v := os.Getenv("COINSCOPE_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Session.Seed = n
		}
	}
	if v := os.Getenv("COINSCOPE_STEP_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.StepSize = n
		}
	}
	if v := os.Getenv("COINSCOPE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Session.Threshold = f
		}
	}
	if v := os.Getenv("COINSCOPE_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Speed = f
		}
	}
	if v := os.Getenv("COINSCOPE_REFINE_STEPS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Display.RefineSteps = n
		}
	}
	if v := os.Getenv("COINSCOPE_SCALE"); v != "" {
		c.Display.Scale = models.Scale(v)
	}
	if v := os.Getenv("COINSCOPE_PAIRWISE"); v != "" {
		c.Display.Pairwise = v == "true" || v == "1"
	}
	if v := os.Getenv("COINSCOPE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("COINSCOPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
