package estimator

import (
	"sync"

	"github.com/thebtf/coinscope/internal/histogram"
	"github.com/thebtf/coinscope/internal/sampling"
)

// Adaptive guards a Wang-Landau sampler with a reader-writer lock. The
// scheduler's worker holds the write lock for the duration of a run, so a
// reader waits for the run to end. The explorer additionally serializes its
// snapshot reads with ticks because Refinement and Direct have no lock; the
// read lock serves callers that hold an Adaptive directly.
type Adaptive struct {
	mu sync.RWMutex
	wl *sampling.WangLandau
}

// NewAdaptive takes ownership of wl.
func NewAdaptive(wl *sampling.WangLandau) *Adaptive {
	return &Adaptive{wl: wl}
}

// RunWhile advances the sampler while cond holds and it is not finished.
func (a *Adaptive) RunWhile(cond func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.wl.RunWhile(sampling.HeadCountUpdate, cond)
}

// IsFinished reports whether log_f dropped below the session threshold.
func (a *Adaptive) IsFinished() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wl.IsFinished()
}

// LogF returns the current modification factor.
func (a *Adaptive) LogF() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wl.LogF()
}

// StepCounter returns the number of steps performed.
func (a *Adaptive) StepCounter() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wl.StepCounter()
}

// LogDensityBase10 returns the log10 density estimate (N+1 entries).
func (a *Adaptive) LogDensityBase10() []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wl.LogDensityBase10()
}

// Hist returns a copy of the current histogram.
func (a *Adaptive) Hist() *histogram.Histogram {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wl.Hist()
}

// Snapshot returns a deep copy of the sampler, taken under the read lock.
func (a *Adaptive) Snapshot() *sampling.WangLandau {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.wl.Clone()
}
