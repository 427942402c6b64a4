package sampling

import (
	"math"

	"github.com/thebtf/coinscope/internal/histogram"
)

// Entropic performs entropic sampling with fixed weights taken from a
// Wang-Landau estimate. RefineEstimate folds the visited histogram into the
// weights and starts a new round.
type Entropic struct {
	logDensity []float64
	hist       *histogram.Histogram
	ensemble   *CoinFlipSequence
	rand       stream
	stepSize   int

	stepCount   uint64
	accepted    uint64
	rejected    uint64
	refinements int

	oldEnergy int
	oldBin    int
}

// NewEntropicFromWangLandau deep-copies the state of wl into a new sampler.
// wl is not modified and shares nothing with the result. The acceptance
// stream is reseeded with seed so the two samplers do not replay the same
// random numbers.
func NewEntropicFromWangLandau(wl *WangLandau, seed uint64) (*Entropic, error) {
	if !wl.Initialized() {
		return nil, ErrNotInitialized
	}
	snap := wl.Clone()
	snap.hist.Reset()
	return &Entropic{
		logDensity: snap.LogDensity(),
		hist:       snap.hist,
		ensemble:   snap.ensemble,
		rand:       newStream(seed),
		stepSize:   snap.stepSize,
		oldEnergy:  snap.oldEnergy,
		oldBin:     snap.oldBin,
	}, nil
}

// RunWhile performs entropic sampling steps while cond holds. progress, if
// not nil, is called after every step.
func (e *Entropic) RunWhile(accept AcceptFunc, progress func(*Entropic), cond func() bool) {
	for cond() {
		e.step(accept)
		if progress != nil {
			progress(e)
		}
	}
}

func (e *Entropic) step(accept AcceptFunc) {
	e.stepCount++
	e.ensemble.MSteps(e.stepSize)

	newEnergy, ok := accept(e.ensemble, e.oldEnergy)
	if ok && e.hist.Contains(newEnergy) {
		newBin := newEnergy - e.hist.Left()
		prob := math.Exp(e.logDensity[e.oldBin] - e.logDensity[newBin])
		if e.rand.rng.Float64() < prob {
			e.oldEnergy = newEnergy
			e.oldBin = newBin
			e.accepted++
		} else {
			e.ensemble.UndoSteps()
			e.rejected++
		}
	} else {
		e.ensemble.UndoSteps()
		e.rejected++
	}

	e.hist.IncrementIndex(e.oldBin)
}

// RefineEstimate adds ln(hits) of every visited bin to the weights and
// resets the histogram. Calling it on an empty histogram is a no-op.
func (e *Entropic) RefineEstimate() {
	if e.hist.Total() == 0 {
		return
	}
	for i := range e.logDensity {
		if hits := e.hist.HitsAt(i); hits > 0 {
			e.logDensity[i] += math.Log(float64(hits))
		}
	}
	subtractMax(e.logDensity)
	e.hist.Reset()
	e.refinements++
}

// LogDensityEstimate returns the natural-log density estimate implied by
// the current weights and histogram. Before any step of the current round
// the weights themselves are returned; afterwards bins without hits are NaN.
func (e *Entropic) LogDensityEstimate() []float64 {
	out := make([]float64, len(e.logDensity))
	if e.hist.Total() == 0 {
		copy(out, e.logDensity)
		subtractMax(out)
		return out
	}
	for i, ld := range e.logDensity {
		hits := e.hist.HitsAt(i)
		if hits == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = ld + math.Log(float64(hits))
	}
	subtractMax(out)
	return out
}

// LogDensityBase10 returns LogDensityEstimate in base 10.
func (e *Entropic) LogDensityBase10() []float64 {
	out := e.LogDensityEstimate()
	for i := range out {
		out[i] *= Log10E
	}
	return out
}

// StepCounter returns the number of steps performed; it never decreases.
func (e *Entropic) StepCounter() uint64 { return e.stepCount }

// Refinements returns how often RefineEstimate changed the weights.
func (e *Entropic) Refinements() int { return e.refinements }

// Accepted returns the number of accepted moves.
func (e *Entropic) Accepted() uint64 { return e.accepted }

// Rejected returns the number of rejected moves.
func (e *Entropic) Rejected() uint64 { return e.rejected }

// Energy returns the head count of the current state.
func (e *Entropic) Energy() int { return e.oldEnergy }

// Hist returns a copy of the histogram of the current round.
func (e *Entropic) Hist() *histogram.Histogram { return e.hist.Clone() }
