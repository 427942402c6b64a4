package sampling

import (
	"errors"
	"fmt"
	"math"

	"github.com/thebtf/coinscope/internal/histogram"
)

var (
	// ErrNoValidState is returned when no state inside the histogram range
	// is found within the step limit.
	ErrNoValidState = errors.New("sampling: no valid state found within step limit")

	// ErrNotInitialized is returned when a sampler is used before a valid
	// initial state was found.
	ErrNotInitialized = errors.New("sampling: sampler has no valid initial state")

	// ErrInvalidThreshold indicates a non-positive log_f threshold.
	ErrInvalidThreshold = errors.New("sampling: threshold must be positive and finite")

	// ErrInvalidStepSize indicates a non-positive step size.
	ErrInvalidStepSize = errors.New("sampling: step size must be positive")

	// ErrInvalidRefineInterval indicates a zero refine check interval.
	ErrInvalidRefineInterval = errors.New("sampling: refine check interval must be positive")
)

// Log10E converts natural logarithms to base 10.
const Log10E = math.Log10E

type wlMode int

const (
	modeHalving wlMode = iota // log_f halves whenever every bin was visited
	modeOneOverT              // log_f = bins / t
)

// WangLandau is a 1/t Wang-Landau sampler over the head-count histogram.
type WangLandau struct {
	threshold        float64
	logF             float64
	logDensity       []float64
	hist             *histogram.Histogram
	ensemble         *CoinFlipSequence
	rand             stream
	stepSize         int
	checkRefineEvery uint64

	stepCount    uint64
	accepted     uint64
	rejected     uint64
	refinedCount int
	mode         wlMode

	initialized bool
	oldEnergy   int
	oldBin      int
}

// NewWangLandau creates a sampler with log_f = 1. The histogram defines the
// energy range; checkRefineEvery is how often (in steps) the halving phase
// checks whether every bin was visited.
func NewWangLandau(threshold float64, ensemble *CoinFlipSequence, seed uint64, stepSize int, hist *histogram.Histogram, checkRefineEvery uint64) (*WangLandau, error) {
	if !(threshold > 0) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidThreshold, threshold)
	}
	if stepSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStepSize, stepSize)
	}
	if checkRefineEvery == 0 {
		return nil, ErrInvalidRefineInterval
	}

	hist.Reset()
	return &WangLandau{
		threshold:        threshold,
		logF:             1,
		logDensity:       make([]float64, hist.BinCount()),
		hist:             hist,
		ensemble:         ensemble,
		rand:             newStream(seed),
		stepSize:         stepSize,
		checkRefineEvery: checkRefineEvery,
		mode:             modeHalving,
	}, nil
}

// InitGreedyHeuristic moves the ensemble towards the histogram range,
// keeping every move that does not increase the distance to it, until a
// valid state is found or stepLimit moves were tried.
func (w *WangLandau) InitGreedyHeuristic(energy EnergyFunc, stepLimit int) error {
	e, ok := energy(w.ensemble)
	dist := w.distance(e, ok)
	for i := 0; dist > 0 && i < stepLimit; i++ {
		w.ensemble.MSteps(w.stepSize)
		next, nextOK := energy(w.ensemble)
		nextDist := w.distance(next, nextOK)
		if nextDist <= dist {
			e, ok, dist = next, nextOK, nextDist
			continue
		}
		w.ensemble.UndoSteps()
	}
	if dist > 0 {
		return fmt.Errorf("%w: limit %d", ErrNoValidState, stepLimit)
	}

	w.oldEnergy = e
	w.oldBin = e - w.hist.Left()
	w.initialized = true
	return nil
}

func (w *WangLandau) distance(e int, ok bool) int {
	switch {
	case !ok:
		return math.MaxInt
	case e < w.hist.Left():
		return w.hist.Left() - e
	case e > w.hist.Right():
		return e - w.hist.Right()
	default:
		return 0
	}
}

// RunWhile performs Wang-Landau steps while cond holds and the sampler is
// not finished. cond is evaluated once per step.
func (w *WangLandau) RunWhile(accept AcceptFunc, cond func() bool) {
	if !w.initialized {
		return
	}
	for !w.IsFinished() && cond() {
		w.step(accept)
	}
}

func (w *WangLandau) step(accept AcceptFunc) {
	w.stepCount++
	w.ensemble.MSteps(w.stepSize)

	newEnergy, ok := accept(w.ensemble, w.oldEnergy)
	if ok && w.hist.Contains(newEnergy) {
		newBin := newEnergy - w.hist.Left()
		prob := math.Exp(w.logDensity[w.oldBin] - w.logDensity[newBin])
		if w.rand.rng.Float64() < prob {
			w.oldEnergy = newEnergy
			w.oldBin = newBin
			w.accepted++
		} else {
			w.ensemble.UndoSteps()
			w.rejected++
		}
	} else {
		w.ensemble.UndoSteps()
		w.rejected++
	}

	w.hist.IncrementIndex(w.oldBin)
	w.logDensity[w.oldBin] += w.logF
	w.checkRefine()
}

func (w *WangLandau) checkRefine() {
	switch w.mode {
	case modeOneOverT:
		w.logF = w.logFOneOverT()
	case modeHalving:
		if w.stepCount%w.checkRefineEvery != 0 || w.hist.AnyBinZero() {
			return
		}
		w.refinedCount++
		w.hist.Reset()
		w.logF *= 0.5
		if w.logF < w.logFOneOverT() {
			w.logF = w.logFOneOverT()
			w.mode = modeOneOverT
		}
	}
}

func (w *WangLandau) logFOneOverT() float64 {
	return float64(w.hist.BinCount()) / float64(w.stepCount)
}

// IsFinished reports whether log_f dropped below the threshold.
func (w *WangLandau) IsFinished() bool {
	return w.logF < w.threshold
}

// Initialized reports whether a valid starting state was found.
func (w *WangLandau) Initialized() bool { return w.initialized }

// LogF returns the current modification factor.
func (w *WangLandau) LogF() float64 { return w.logF }

// Threshold returns the log_f value below which the run is finished.
func (w *WangLandau) Threshold() float64 { return w.threshold }

// StepCounter returns the number of steps performed.
func (w *WangLandau) StepCounter() uint64 { return w.stepCount }

// Accepted returns the number of accepted moves.
func (w *WangLandau) Accepted() uint64 { return w.accepted }

// Rejected returns the number of rejected moves.
func (w *WangLandau) Rejected() uint64 { return w.rejected }

// RefinedCount returns how often log_f was halved.
func (w *WangLandau) RefinedCount() int { return w.refinedCount }

// InOneOverTMode reports whether the sampler switched to log_f = 1/t.
func (w *WangLandau) InOneOverTMode() bool { return w.mode == modeOneOverT }

// Energy returns the head count of the current state.
func (w *WangLandau) Energy() int { return w.oldEnergy }

// Hist returns a copy of the histogram of the current refinement round.
func (w *WangLandau) Hist() *histogram.Histogram { return w.hist.Clone() }

// LogDensity returns the natural-log density estimate, shifted so that
// its maximum is zero.
func (w *WangLandau) LogDensity() []float64 {
	out := make([]float64, len(w.logDensity))
	copy(out, w.logDensity)
	subtractMax(out)
	return out
}

// LogDensityBase10 returns LogDensity in base 10.
func (w *WangLandau) LogDensityBase10() []float64 {
	out := w.LogDensity()
	for i := range out {
		out[i] *= Log10E
	}
	return out
}

// Clone returns a deep copy that evolves independently.
func (w *WangLandau) Clone() *WangLandau {
	cp := *w
	cp.logDensity = make([]float64, len(w.logDensity))
	copy(cp.logDensity, w.logDensity)
	cp.hist = w.hist.Clone()
	cp.ensemble = w.ensemble.Clone()
	cp.rand = w.rand.clone()
	return &cp
}

// subtractMax shifts finite values so the largest becomes zero.
func subtractMax(v []float64) {
	maxVal := math.Inf(-1)
	for _, x := range v {
		if !math.IsNaN(x) && x > maxVal {
			maxVal = x
		}
	}
	if math.IsInf(maxVal, 0) {
		return
	}
	for i := range v {
		v[i] -= maxVal
	}
}
