// Package estimator wraps the samplers that compete in a simulation session
// behind the interfaces the scheduler drives.
package estimator

import (
	"math"
	"math/rand/v2"

	"github.com/thebtf/coinscope/internal/histogram"
)

// Direct is the naive estimator: every sample flips N fresh coins and
// records the head count. It has no terminal state.
type Direct struct {
	n    int
	rng  *rand.Rand
	hist *histogram.Histogram
}

// NewDirect creates a direct estimator for n coins with its own random stream.
func NewDirect(n int, seed uint64) (*Direct, error) {
	hist, err := histogram.New(0, n)
	if err != nil {
		return nil, err
	}
	return &Direct{
		n:    n,
		rng:  rand.New(rand.NewPCG(seed, seed)),
		hist: hist,
	}, nil
}

// SampleWhile draws samples while cond holds. cond is evaluated before every
// sample of N coins.
func (d *Direct) SampleWhile(cond func() bool) {
	for cond() {
		heads := 0
		for range d.n {
			if d.rng.Float64() > 0.5 {
				heads++
			}
		}
		d.hist.IncrementIndex(heads)
	}
}

// Samples returns the number of samples drawn so far.
func (d *Direct) Samples() uint64 {
	return d.hist.Total()
}

// Hist returns a copy of the outcome histogram.
func (d *Direct) Hist() *histogram.Histogram {
	return d.hist.Clone()
}

// Probability returns the relative frequency of every head count. Before the
// first sample all entries are zero.
func (d *Direct) Probability() []float64 {
	hits := d.hist.Hits()
	out := make([]float64, len(hits))
	total := d.hist.Total()
	if total == 0 {
		return out
	}
	rec := 1 / float64(total)
	for i, h := range hits {
		out[i] = float64(h) * rec
	}
	return out
}

// ProbabilityLog10 returns log10 of Probability. Bins that were never hit
// are NaN, not -Inf, so the display can tell them apart.
func (d *Direct) ProbabilityLog10() []float64 {
	out := d.Probability()
	for i, p := range out {
		if p > 0 {
			out[i] = math.Log10(p)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
