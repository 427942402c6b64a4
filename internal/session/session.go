// Package session builds the set of estimators that run together for one
// "Start" action, plus the analytic reference curve they are compared with.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/thebtf/coinscope/internal/estimator"
	"github.com/thebtf/coinscope/internal/histogram"
	"github.com/thebtf/coinscope/internal/sampling"
	"github.com/thebtf/coinscope/pkg/models"
)

const (
	// GreedyStepLimit bounds the search for a valid initial state.
	GreedyStepLimit = 10_000

	// RefineCheckInterval is how often, in steps, Wang-Landau checks whether
	// it can halve log_f.
	RefineCheckInterval = 100
)

var (
	// ErrInvalidParams indicates degenerate session parameters.
	ErrInvalidParams = errors.New("session: invalid parameters")

	// ErrSetupFailed indicates that the adaptive estimator found no valid
	// initial state within GreedyStepLimit steps.
	ErrSetupFailed = errors.New("session: unable to find a valid initial state")
)

// Session aggregates the three estimators and the analytic curve.
// Its identity (Params) never changes; a restart builds a new Session.
type Session struct {
	id     string
	params models.SessionParams

	adaptive   *estimator.Adaptive
	refinement *estimator.Refinement
	direct     *estimator.Direct

	analytic []float64
}

// New validates p and builds a session. The same parameters always yield
// the same estimator states.
func New(p models.SessionParams) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	hist, err := histogram.New(0, p.N)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	seeds := sampling.SeedStream(p.Seed)
	ensemble := sampling.NewCoinFlipSequence(p.N, seeds.Uint64())

	wl, err := sampling.NewWangLandau(p.Threshold, ensemble, seeds.Uint64(), p.StepSize, hist, RefineCheckInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := wl.InitGreedyHeuristic(sampling.HeadCountEnergy, GreedyStepLimit); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	es, err := sampling.NewEntropicFromWangLandau(wl, seeds.Uint64())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	direct, err := estimator.NewDirect(p.N, p.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	return &Session{
		id:         uuid.NewString(),
		params:     p,
		adaptive:   estimator.NewAdaptive(wl),
		refinement: estimator.NewRefinement(es),
		direct:     direct,
		analytic:   AnalyticLog10(p.N),
	}, nil
}

// AnalyticLog10 returns log10 P(heads = k) for k = 0..n under Binomial(n, 1/2).
func AnalyticLog10(n int) []float64 {
	dist := distuv.Binomial{N: float64(n), P: 0.5}
	out := make([]float64, n+1)
	for k := range out {
		out[k] = sampling.Log10E * dist.LogProb(float64(k))
	}
	return out
}

// ID uniquely identifies this session instance.
func (s *Session) ID() string { return s.id }

// Params returns the session identity.
func (s *Session) Params() models.SessionParams { return s.params }

// Adaptive returns the Wang-Landau estimator.
func (s *Session) Adaptive() *estimator.Adaptive { return s.adaptive }

// Refinement returns the entropic estimator.
func (s *Session) Refinement() *estimator.Refinement { return s.refinement }

// Direct returns the naive estimator.
func (s *Session) Direct() *estimator.Direct { return s.direct }

// Analytic returns a copy of the analytic log10 curve.
func (s *Session) Analytic() []float64 {
	out := make([]float64, len(s.analytic))
	copy(out, s.analytic)
	return out
}
