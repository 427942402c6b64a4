// Package noise derives a perturbed copy of the analytic distribution that
// looks like the output of a noisy estimator. The result depends only on the
// analytic curve and the noise options, so a fixed seed reproduces it.
//
// The curve is encoded as a sequence of integer indices into a table of
// exp(-k * 2^-fSteps). Noise moves index mass between neighbours, which keeps
// the index sum, and the indices are decoded back into pairwise ratios and,
// unless the pairwise view is requested, into a normalized log10 curve.
package noise

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/thebtf/coinscope/internal/density"
	"github.com/thebtf/coinscope/pkg/models"
)

// DefaultAnchor is where the cumulative reconstruction starts. Normalization
// removes it again; any finite value gives the same curve.
const DefaultAnchor = -10.0

// ErrCurveTooShort is returned for curves with fewer than two bins.
var ErrCurveTooShort = errors.New("noise: curve needs at least two bins")

// LookupTable returns 2^fSteps*8+1 values exp(-k*step) for k = 0, 1, ...
// together with step = 2^-fSteps. The table is strictly decreasing.
func LookupTable(fSteps int) ([]float64, float64) {
	step := math.Ldexp(1, -fSteps)
	size := (1<<fSteps)*8 + 1
	table := make([]float64, size)
	for k := range table {
		table[k] = math.Exp(-float64(k) * step)
	}
	return table, step
}

// Nearest returns the index of the table entry closest to v. On an exact
// tie the lower index wins, as a left-to-right scan would pick it.
func Nearest(table []float64, v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	// table is decreasing: find the first entry <= v
	hi := sort.Search(len(table), func(k int) bool { return table[k] <= v })
	switch {
	case hi == 0:
		return 0
	case hi == len(table):
		return len(table) - 1
	}
	lo := hi - 1
	if math.Abs(table[hi]-v) < math.Abs(table[lo]-v) {
		return hi
	}
	return lo
}

// Indices encodes the absolute log10 differences of adjacent bins as table
// indices of 10^-|c[i]-c[i+1]|.
func Indices(curve []float64, table []float64) []int {
	if len(curve) < 2 {
		return nil
	}
	out := make([]int, len(curve)-1)
	for i := range out {
		diff := math.Abs(curve[i] - curve[i+1])
		out[i] = Nearest(table, math.Pow(10, -diff))
	}
	return out
}

// Perturb moves a random amount in [0, noiseMax] from index i to index i-1
// for interior indices, with probability p^2 where
// p = |0.5 - i/(len-1)|*2 + 0.075, so edges are perturbed more often.
// Draws happen in increasing index order from one stream seeded with seed.
// The sum of indices is preserved exactly. A negative noiseMax is a no-op.
func Perturb(indices []int, noiseMax int, seed uint64) {
	if noiseMax < 0 {
		return
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	last := len(indices) - 1
	for i := 1; i < last; i++ {
		p := math.Abs(0.5-float64(i)/float64(last))*2 + 0.075
		if rng.Float64() >= p*p {
			continue
		}
		v := rng.IntN(noiseMax + 1)
		indices[i-1] += v
		indices[i] -= v
	}
}

// Deltas decodes indices into pairwise ratios exp(-index*step). With
// limitTo1 the exponent is capped at zero so no ratio exceeds one.
func Deltas(indices []int, step float64, limitTo1 bool) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		v := -float64(idx) * step
		if limitTo1 {
			v = math.Min(v, 0)
		}
		out[i] = math.Exp(v)
	}
	return out
}

// Reconstruct rebuilds an unnormalized log10 curve of len(deltas)+1 bins
// from pairwise ratios, rising left of the center and falling right of it.
func Reconstruct(deltas []float64, anchor float64) []float64 {
	out := make([]float64, len(deltas)+1)
	out[0] = anchor
	center := len(deltas) / 2
	for i, d := range deltas {
		step := math.Log10(d)
		if i < center {
			out[i+1] = out[i] - step
		} else {
			out[i+1] = out[i] + step
		}
	}
	return out
}

// Generate builds the perturbed reference curve for an analytic log10
// curve, honouring the display scale and pairwise view of opts. Parameters
// outside the bounds of models.NoiseOptions are rejected.
func Generate(name string, analytic []float64, params models.NoiseOptions, opts *models.Options) (models.DisplayCurve, error) {
	if err := params.Validate(); err != nil {
		return models.DisplayCurve{Name: name}, err
	}
	if len(analytic) < 2 {
		return models.DisplayCurve{Name: name}, ErrCurveTooShort
	}

	table, step := LookupTable(params.FSteps)
	indices := Indices(analytic, table)
	Perturb(indices, params.NoiseMax, params.Seed)
	deltas := Deltas(indices, step, params.LimitTo1)

	var values []float64
	if opts.Pairwise {
		values = deltas
		if opts.Scale == models.ScaleLog {
			for i, d := range values {
				values[i] = math.Log10(d)
			}
		}
	} else {
		values = Reconstruct(deltas, DefaultAnchor)
		density.NormalizeLog10SumTo1(values)
		if opts.Scale == models.ScaleLinear {
			density.ToLinear(values)
		}
	}
	return density.MapX(name, values, len(analytic)), nil
}
