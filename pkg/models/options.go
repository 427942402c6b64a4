// Package models contains domain models for coinscope.
package models

import (
	"errors"
	"fmt"
	"math"
)

// Scale selects how probabilities are displayed.
type Scale string

const (
	ScaleLog    Scale = "log"
	ScaleLinear Scale = "linear"
)

// Valid reports whether s is a known scale.
func (s Scale) Valid() bool {
	return s == ScaleLog || s == ScaleLinear
}

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("models: invalid display options")

// SessionParams is the immutable identity of a simulation session.
type SessionParams struct {
	N         int     `json:"n" yaml:"n"`
	Seed      uint64  `json:"seed" yaml:"seed"`
	StepSize  int     `json:"step_size" yaml:"step_size"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Noise parameter bounds. FSteps sets a lookup table of 2^FSteps*8+1
// entries and NoiseMax bounds the index mass moved per perturbation.
const (
	MaxFSteps   = 16
	MaxNoiseMax = 1 << 20
)

// NoiseOptions parameterizes the perturbed reference curve.
type NoiseOptions struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	FSteps   int    `json:"f_steps" yaml:"f_steps"`
	NoiseMax int    `json:"noise_max" yaml:"noise_max"`
	Seed     uint64 `json:"seed" yaml:"seed"`
	LimitTo1 bool   `json:"limit_to_1" yaml:"limit_to_1"`
}

// Options holds every knob the display layer can turn.
// A single value is passed by pointer into explorer and pipeline calls;
// RefineSteps doubles as the refinement estimator's refine threshold.
type Options struct {
	Scale       Scale        `json:"scale" yaml:"scale"`
	Pairwise    bool         `json:"pairwise" yaml:"pairwise"`
	HistScale   Scale        `json:"hist_scale" yaml:"hist_scale"`
	LogFScale   Scale        `json:"log_f_scale" yaml:"log_f_scale"`
	RefineSteps uint64       `json:"refine_steps" yaml:"refine_steps"`
	Noise       NoiseOptions `json:"noise" yaml:"noise"`
}

// DefaultOptions mirrors the dashboard's initial state.
func DefaultOptions() Options {
	return Options{
		Scale:       ScaleLog,
		Pairwise:    false,
		HistScale:   ScaleLinear,
		LogFScale:   ScaleLinear,
		RefineSteps: 10_000_000,
		Noise: NoiseOptions{
			Enabled:  false,
			FSteps:   6,
			NoiseMax: 3,
			Seed:     1,
			LimitTo1: true,
		},
	}
}

// Validate checks the options for values the pipeline cannot handle.
func (o *Options) Validate() error {
	if !o.Scale.Valid() {
		return fmt.Errorf("%w: scale %q", ErrInvalidOptions, o.Scale)
	}
	if !o.HistScale.Valid() {
		return fmt.Errorf("%w: hist_scale %q", ErrInvalidOptions, o.HistScale)
	}
	if !o.LogFScale.Valid() {
		return fmt.Errorf("%w: log_f_scale %q", ErrInvalidOptions, o.LogFScale)
	}
	return o.Noise.Validate()
}

// Validate checks the noise parameters against MaxFSteps and MaxNoiseMax.
func (n NoiseOptions) Validate() error {
	if n.FSteps < 0 || n.FSteps > MaxFSteps {
		return fmt.Errorf("%w: f_steps must be in [0, %d], got %d", ErrInvalidOptions, MaxFSteps, n.FSteps)
	}
	if n.NoiseMax < 0 || n.NoiseMax > MaxNoiseMax {
		return fmt.Errorf("%w: noise_max must be in [0, %d], got %d", ErrInvalidOptions, MaxNoiseMax, n.NoiseMax)
	}
	return nil
}

// Validate checks the session identity. Zero-length sequences are degenerate.
func (p SessionParams) Validate() error {
	if p.N < 1 {
		return fmt.Errorf("sequence length must be positive, got %d", p.N)
	}
	if p.StepSize < 1 {
		return fmt.Errorf("step size must be positive, got %d", p.StepSize)
	}
	if !(p.Threshold > 0) || math.IsInf(p.Threshold, 0) {
		return fmt.Errorf("threshold must be a positive finite number, got %g", p.Threshold)
	}
	return nil
}
