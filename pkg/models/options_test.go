package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *Options)
		wantErr bool
	}{
		{name: "defaults", modify: func(o *Options) {}},
		{name: "linear scales", modify: func(o *Options) {
			o.Scale, o.HistScale, o.LogFScale = ScaleLinear, ScaleLinear, ScaleLinear
		}},
		{name: "unknown scale", modify: func(o *Options) { o.Scale = "cubic" }, wantErr: true},
		{name: "unknown hist scale", modify: func(o *Options) { o.HistScale = "" }, wantErr: true},
		{name: "unknown log_f scale", modify: func(o *Options) { o.LogFScale = "ln" }, wantErr: true},
		{name: "f_steps at bound", modify: func(o *Options) { o.Noise.FSteps = MaxFSteps }},
		{name: "f_steps above bound", modify: func(o *Options) { o.Noise.FSteps = MaxFSteps + 1 }, wantErr: true},
		{name: "negative f_steps", modify: func(o *Options) { o.Noise.FSteps = -1 }, wantErr: true},
		{name: "noise_max at bound", modify: func(o *Options) { o.Noise.NoiseMax = MaxNoiseMax }},
		{name: "noise_max above bound", modify: func(o *Options) { o.Noise.NoiseMax = MaxNoiseMax + 1 }, wantErr: true},
		{name: "noise_max at int limit", modify: func(o *Options) { o.Noise.NoiseMax = math.MaxInt }, wantErr: true},
		{name: "negative noise_max", modify: func(o *Options) { o.Noise.NoiseMax = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			err := o.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionParamsValidate(t *testing.T) {
	assert.NoError(t, SessionParams{N: 1, StepSize: 1, Threshold: 1e-6}.Validate())
	assert.Error(t, SessionParams{N: 0, StepSize: 1, Threshold: 1e-6}.Validate())
	assert.Error(t, SessionParams{N: 5, StepSize: 0, Threshold: 1e-6}.Validate())
	assert.Error(t, SessionParams{N: 5, StepSize: 1, Threshold: math.NaN()}.Validate())
}
