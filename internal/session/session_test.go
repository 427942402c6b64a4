package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/coinscope/pkg/models"
)

func steps(n int) func() bool {
	return func() bool {
		n--
		return n >= 0
	}
}

func TestNewRejectsDegenerateInput(t *testing.T) {
	tests := []struct {
		name   string
		params models.SessionParams
	}{
		{name: "zero length", params: models.SessionParams{N: 0, Seed: 1, StepSize: 1, Threshold: 1e-6}},
		{name: "negative length", params: models.SessionParams{N: -3, Seed: 1, StepSize: 1, Threshold: 1e-6}},
		{name: "zero step size", params: models.SessionParams{N: 10, Seed: 1, StepSize: 0, Threshold: 1e-6}},
		{name: "zero threshold", params: models.SessionParams{N: 10, Seed: 1, StepSize: 1, Threshold: 0}},
		{name: "NaN threshold", params: models.SessionParams{N: 10, Seed: 1, StepSize: 1, Threshold: math.NaN()}},
		{name: "infinite threshold", params: models.SessionParams{N: 10, Seed: 1, StepSize: 1, Threshold: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.params)
			require.ErrorIs(t, err, ErrInvalidParams)
			assert.Nil(t, s)
		})
	}
}

func TestNewScenarioSmallSequence(t *testing.T) {
	p := models.SessionParams{N: 10, Seed: 0, StepSize: 1, Threshold: 1e-6}
	s, err := New(p)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, p, s.Params())
	assert.Len(t, s.Analytic(), 11)

	s.Adaptive().RunWhile(func() bool { return true })
	require.True(t, s.Adaptive().IsFinished())

	density := s.Adaptive().LogDensityBase10()
	require.Len(t, density, 11)

	maxVal := math.Inf(-1)
	for _, v := range density {
		maxVal = math.Max(maxVal, v)
	}
	sum := 0.0
	for _, v := range density {
		sum += math.Pow(10, v-maxVal)
	}
	normSum := 0.0
	for _, v := range density {
		normSum += math.Pow(10, v-maxVal-math.Log10(sum))
	}
	assert.InDelta(t, 1.0, normSum, 1e-9)
}

func TestNewIsDeterministic(t *testing.T) {
	p := models.SessionParams{N: 30, Seed: 834628956578, StepSize: 2, Threshold: 1e-4}

	a, err := New(p)
	require.NoError(t, err)
	b, err := New(p)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.Analytic(), b.Analytic())

	a.Adaptive().RunWhile(steps(10_000))
	b.Adaptive().RunWhile(steps(10_000))
	a.Refinement().RunWhile(steps(5_000))
	b.Refinement().RunWhile(steps(5_000))
	a.Direct().SampleWhile(steps(100))
	b.Direct().SampleWhile(steps(100))

	assert.Equal(t, a.Adaptive().LogDensityBase10(), b.Adaptive().LogDensityBase10())
	assert.Equal(t, a.Adaptive().LogF(), b.Adaptive().LogF())
	assert.Equal(t, a.Refinement().Hist().Hits(), b.Refinement().Hist().Hits())
	assert.Equal(t, a.Direct().Hist().Hits(), b.Direct().Hist().Hits())
}

func TestRefinementIsIndependentOfAdaptive(t *testing.T) {
	s, err := New(models.SessionParams{N: 12, Seed: 5, StepSize: 1, Threshold: 1e-6})
	require.NoError(t, err)

	before := s.Refinement().LogDensityEstimate()
	s.Adaptive().RunWhile(steps(50_000))

	assert.Equal(t, before, s.Refinement().LogDensityEstimate())
	assert.Equal(t, uint64(0), s.Refinement().StepCounter())
}

func TestAnalyticLog10(t *testing.T) {
	for _, n := range []int{1, 2, 10, 1500} {
		curve := AnalyticLog10(n)
		require.Len(t, curve, n+1)

		sum := 0.0
		for _, v := range curve {
			sum += math.Pow(10, v)
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "n=%d", n)
		assert.InDelta(t, curve[0], curve[n], 1e-9, "symmetric for n=%d", n)
	}

	curve := AnalyticLog10(4)
	assert.InDelta(t, math.Log10(6.0/16.0), curve[2], 1e-12)
	assert.InDelta(t, math.Log10(1.0/16.0), curve[0], 1e-12)
}

func TestAnalyticIsCopied(t *testing.T) {
	s, err := New(models.SessionParams{N: 4, Seed: 1, StepSize: 1, Threshold: 1e-3})
	require.NoError(t, err)

	c := s.Analytic()
	c[0] = 42
	assert.NotEqual(t, 42.0, s.Analytic()[0])
}
