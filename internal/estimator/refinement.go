package estimator

import (
	"github.com/thebtf/coinscope/internal/histogram"
	"github.com/thebtf/coinscope/internal/sampling"
)

// Refinement owns an entropic sampler and decides when to refine it.
// It is touched only by its own worker during a tick and by the display
// after the tick joined, so it needs no lock.
type Refinement struct {
	es        *sampling.Entropic
	refinedAt uint64
}

// NewRefinement takes ownership of es.
func NewRefinement(es *sampling.Entropic) *Refinement {
	return &Refinement{es: es}
}

// RunWhile advances the sampler while cond holds.
func (r *Refinement) RunWhile(cond func() bool) {
	r.es.RunWhile(sampling.HeadCountUpdate, nil, cond)
}

// MaybeRefine refines the estimate once the steps taken since the previous
// refinement exceed threshold. Below the threshold it does nothing, so a
// crossing triggers exactly one refinement.
func (r *Refinement) MaybeRefine(threshold uint64) bool {
	steps := r.es.StepCounter()
	if steps-r.refinedAt <= threshold {
		return false
	}
	r.es.RefineEstimate()
	r.refinedAt = steps
	return true
}

// StepCounter returns the number of steps performed.
func (r *Refinement) StepCounter() uint64 {
	return r.es.StepCounter()
}

// Refinements returns how many refinements were applied.
func (r *Refinement) Refinements() int {
	return r.es.Refinements()
}

// LogDensityEstimate returns the natural-log density estimate.
func (r *Refinement) LogDensityEstimate() []float64 {
	return r.es.LogDensityEstimate()
}

// LogDensityBase10 converts LogDensityEstimate to base 10.
func (r *Refinement) LogDensityBase10() []float64 {
	out := r.es.LogDensityEstimate()
	for i := range out {
		out[i] *= sampling.Log10E
	}
	return out
}

// Hist returns a copy of the histogram of the current round.
func (r *Refinement) Hist() *histogram.Histogram {
	return r.es.Hist()
}
