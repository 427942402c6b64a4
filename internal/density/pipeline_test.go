package density

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/coinscope/internal/session"
	"github.com/thebtf/coinscope/pkg/models"
)

func opts(scale models.Scale, pairwise bool) *models.Options {
	o := models.DefaultOptions()
	o.Scale = scale
	o.Pairwise = pairwise
	return &o
}

func TestNormalizeLog10SumTo1(t *testing.T) {
	tests := []struct {
		name  string
		curve []float64
	}{
		{name: "arbitrary offset", curve: []float64{10, 11, 12, 11, 10}},
		{name: "very negative", curve: []float64{-400, -399.5, -401}},
		{name: "single bin", curve: []float64{3.7}},
		{name: "with NaN", curve: []float64{-1, math.NaN(), -2, -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := append([]float64(nil), tt.curve...)
			NormalizeLog10SumTo1(c)
			assert.InDelta(t, 1.0, SumLinear(c), 1e-9)
			for i := range c {
				if math.IsNaN(tt.curve[i]) {
					assert.True(t, math.IsNaN(c[i]), "NaN stays NaN")
				}
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	curves := [][]float64{
		session.AnalyticLog10(40),
		{0, -1, -2, -3, math.NaN(), -5},
		{123.4, 120.1, 119.9},
	}
	for _, curve := range curves {
		once := Normalized(curve)
		twice := Normalized(once)
		require.Len(t, twice, len(once))
		for i := range once {
			if math.IsNaN(once[i]) {
				assert.True(t, math.IsNaN(twice[i]))
				continue
			}
			assert.InDelta(t, once[i], twice[i], 1e-9)
		}
	}
}

func TestNormalizeLeavesEmptyCurves(t *testing.T) {
	c := []float64{math.NaN(), math.NaN()}
	NormalizeLog10SumTo1(c)
	assert.True(t, math.IsNaN(c[0]))
	assert.True(t, math.IsNaN(c[1]))

	var empty []float64
	NormalizeLog10SumTo1(empty)
	assert.Empty(t, empty)
}

func TestNormalizeInfiniteEntries(t *testing.T) {
	c := []float64{math.Inf(-1), math.Inf(-1)}
	NormalizeLog10SumTo1(c)
	assert.Equal(t, []float64{math.Inf(-1), math.Inf(-1)}, c, "no finite mass is left unchanged")

	c = []float64{1, math.Inf(1)}
	NormalizeLog10SumTo1(c)
	assert.Equal(t, []float64{1, math.Inf(1)}, c)

	c = []float64{math.Inf(-1), 2, 2}
	NormalizeLog10SumTo1(c)
	assert.True(t, math.IsInf(c[0], -1))
	assert.InDelta(t, -math.Log10(2), c[1], 1e-12)
	assert.InDelta(t, -math.Log10(2), c[2], 1e-12)
}

func TestTransformLogScale(t *testing.T) {
	curve := []float64{5, 6, 5}
	in := append([]float64(nil), curve...)
	out := Transform("wl", curve, opts(models.ScaleLog, false))

	assert.Equal(t, in, curve, "input must not be modified")
	assert.Equal(t, "wl", out.Name)
	require.Equal(t, 3, out.Len())
	assert.InDelta(t, 1.0, SumLinear(out.Ys()), 1e-9)
	assert.InDelta(t, 0.0, out.Points[0].X, 1e-12)
	assert.InDelta(t, 1.0/3.0, out.Points[1].X, 1e-12)
	assert.InDelta(t, 2.0/3.0, out.Points[2].X, 1e-12)
}

func TestTransformLinearIsExpOfLog(t *testing.T) {
	curve := session.AnalyticLog10(12)
	logOut := Transform("a", curve, opts(models.ScaleLog, false))
	linOut := Transform("a", curve, opts(models.ScaleLinear, false))

	sum := 0.0
	for i := range linOut.Points {
		assert.GreaterOrEqual(t, linOut.Points[i].Y, 0.0)
		assert.InDelta(t, math.Pow(10, logOut.Points[i].Y), linOut.Points[i].Y, 1e-12)
		sum += linOut.Points[i].Y
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestTransformPairwise(t *testing.T) {
	curve := []float64{-2, -1, -1.5, -3}
	logOut := Transform("p", curve, opts(models.ScaleLog, true))
	linOut := Transform("p", curve, opts(models.ScaleLinear, true))

	require.Equal(t, 3, logOut.Len())
	require.Equal(t, 3, linOut.Len())
	want := []float64{-1, -0.5, -1.5}
	for i, w := range want {
		assert.InDelta(t, w, logOut.Points[i].Y, 1e-9)
		assert.InDelta(t, math.Pow(10, w), linOut.Points[i].Y, 1e-9)
		assert.InDelta(t, float64(i)/4, logOut.Points[i].X, 1e-12, "x uses the original length")
	}
}

func TestTransformPairwiseMinimalCurves(t *testing.T) {
	// N=1: two bins collapse into a single pairwise point
	out := Transform("p", []float64{-0.3, -0.3}, opts(models.ScaleLinear, true))
	require.Equal(t, 1, out.Len())
	assert.InDelta(t, 1.0, out.Points[0].Y, 1e-12)
	assert.InDelta(t, 0.0, out.Points[0].X, 1e-12)

	// N=2
	out = Transform("p", session.AnalyticLog10(2), opts(models.ScaleLog, true))
	require.Equal(t, 2, out.Len())
	assert.InDelta(t, -math.Log10(2), out.Points[0].Y, 1e-12)
	assert.InDelta(t, -math.Log10(2), out.Points[1].Y, 1e-12)

	// N=0 has no pairwise view
	out = Transform("p", []float64{0}, opts(models.ScaleLog, true))
	assert.Equal(t, 0, out.Len())
}

func TestTransformKeepsNaN(t *testing.T) {
	curve := []float64{-1, math.NaN(), -1}
	out := Transform("d", curve, opts(models.ScaleLinear, false))
	assert.True(t, out.Points[1].Missing())
	assert.Len(t, out.Present(), 2)

	pw := Transform("d", curve, opts(models.ScaleLog, true))
	assert.True(t, pw.Points[0].Missing())
	assert.True(t, pw.Points[1].Missing())
}

func TestHistogramCurve(t *testing.T) {
	hits := []uint64{0, 1, 10, 100}

	lin := HistogramCurve("h", hits, models.ScaleLinear)
	assert.Equal(t, []float64{0, 1, 10, 100}, lin.Ys())
	assert.InDelta(t, 0.75, lin.Points[3].X, 1e-12)

	lg := HistogramCurve("h", hits, models.ScaleLog)
	assert.True(t, math.IsNaN(lg.Points[0].Y))
	assert.InDelta(t, 0.0, lg.Points[1].Y, 1e-12)
	assert.InDelta(t, 2.0, lg.Points[3].Y, 1e-12)
}

func TestLogFCurve(t *testing.T) {
	samples := []models.LogFSample{{Elapsed: 0.5, LogF: 1}, {Elapsed: 1.5, LogF: 0.01}}

	lin := LogFCurve("log_f", samples, models.ScaleLinear)
	assert.Equal(t, []models.Point{{X: 0.5, Y: 1}, {X: 1.5, Y: 0.01}}, lin.Points)

	lg := LogFCurve("log_f", samples, models.ScaleLog)
	assert.InDelta(t, 0.0, lg.Points[0].Y, 1e-12)
	assert.InDelta(t, -2.0, lg.Points[1].Y, 1e-12)
}
