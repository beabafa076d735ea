package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
)

const (
	DefaultXStart    = 0.0
	DefaultXEnd      = 2.0
	DefaultSteps     = 20
	DefaultTolerance = 1e-5
	DefaultMinStep   = 1e-12
	DefaultMaxSteps  = 10000
)

type Config struct {
	Problem   string             `yaml:"problem"`
	Stepper   string             `yaml:"stepper"`
	XStart    float64            `yaml:"x_start"`
	XEnd      float64            `yaml:"x_end"`
	Steps     int                `yaml:"steps"`
	InitState []float64          `yaml:"init_state,omitempty"`
	Params    map[string]float64 `yaml:"params,omitempty"`
	Adaptive  AdaptiveConfig     `yaml:"adaptive"`
}

type AdaptiveConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Tolerance float64 `yaml:"tolerance"`
	MinStep   float64 `yaml:"min_step"`
	MaxSteps  int     `yaml:"max_steps"`
	// Strict makes an exhausted step budget a run error.
	Strict bool `yaml:"strict"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem: "exponential",
		Stepper: "rk4",
		XStart:  DefaultXStart,
		XEnd:    DefaultXEnd,
		Steps:   DefaultSteps,
		Adaptive: AdaptiveConfig{
			Tolerance: DefaultTolerance,
			MinStep:   DefaultMinStep,
			MaxSteps:  DefaultMaxSteps,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields the solver would reject, so a bad config file
// fails before any problem is built.
func (c *Config) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("%w: problem not set", dynamo.ErrInvalidConfig)
	}
	if !(c.XStart < c.XEnd) {
		return fmt.Errorf("%w: got [%g, %g]", dynamo.ErrInvalidInterval, c.XStart, c.XEnd)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: got %d", dynamo.ErrInvalidSteps, c.Steps)
	}
	if c.Adaptive.Enabled {
		if !(c.Adaptive.Tolerance > 0) || !(c.Adaptive.MinStep > 0) || c.Adaptive.MaxSteps <= 0 {
			return fmt.Errorf("%w: tolerance=%g min_step=%g max_steps=%d", dynamo.ErrInvalidConfig,
				c.Adaptive.Tolerance, c.Adaptive.MinStep, c.Adaptive.MaxSteps)
		}
	}
	return nil
}

func (c *Config) SolverConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Adaptive = c.Adaptive.Enabled
	cfg.Tolerance = c.Adaptive.Tolerance
	cfg.MinStep = c.Adaptive.MinStep
	cfg.MaxSteps = c.Adaptive.MaxSteps
	cfg.StrictBudget = c.Adaptive.Strict
	return cfg
}

func (c *Config) ExperimentConfig() experiment.Config {
	params := make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return experiment.Config{
		Problem:   c.Problem,
		Stepper:   c.Stepper,
		XStart:    c.XStart,
		XEnd:      c.XEnd,
		Steps:     c.Steps,
		InitState: append([]float64(nil), c.InitState...),
		Params:    params,
		Solver:    c.SolverConfig(),
	}
}
