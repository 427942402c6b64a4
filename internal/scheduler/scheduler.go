// Package scheduler advances the estimators of a session for one display
// tick. Every estimator gets its own goroutine; all of them work against the
// same deadline and are joined before RunTick returns.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrWorkerPanic is returned when an estimator panicked during a tick.
var ErrWorkerPanic = errors.New("scheduler: estimator worker panicked")

// AdaptiveRunner is the contract of the adaptive (Wang-Landau) estimator.
type AdaptiveRunner interface {
	RunWhile(cond func() bool)
	IsFinished() bool
	StepCounter() uint64
}

// RefinementRunner is the contract of the refinement (entropic) estimator.
type RefinementRunner interface {
	RunWhile(cond func() bool)
	MaybeRefine(threshold uint64) bool
	StepCounter() uint64
}

// DirectRunner is the contract of the naive estimator.
type DirectRunner interface {
	SampleWhile(cond func() bool)
	Samples() uint64
}

// Workload is the set of estimators advanced together.
type Workload struct {
	Adaptive   AdaptiveRunner
	Refinement RefinementRunner
	Direct     DirectRunner
}

// TickReport summarizes the work done in one tick.
type TickReport struct {
	Skipped         bool // paused; nothing ran
	AdaptiveSteps   uint64
	RefinementSteps uint64
	DirectSamples   uint64
	Refined         bool
	Duration        time.Duration
}

// Scheduler runs ticks. The zero value is not usable; call New.
type Scheduler struct {
	now func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTick advances every estimator of w until the shared deadline
// (now + budget) passes or, for the adaptive estimator, until it finishes.
// After its run the refinement estimator refines once if it crossed
// refineThreshold. RunTick blocks until all workers returned.
//
// A paused tick returns immediately. A panicking worker makes the tick fail
// with ErrWorkerPanic; the remaining workers stop at their next check.
func (s *Scheduler) RunTick(ctx context.Context, w Workload, budget time.Duration, paused bool, refineThreshold uint64) (TickReport, error) {
	if paused {
		return TickReport{Skipped: true}, nil
	}

	start := s.now()
	deadline := start.Add(budget)
	g, gctx := errgroup.WithContext(ctx)
	running := func() bool {
		return gctx.Err() == nil && s.now().Before(deadline)
	}

	var report TickReport

	if w.Adaptive != nil {
		g.Go(guard("adaptive", func() {
			if w.Adaptive.IsFinished() {
				return
			}
			before := w.Adaptive.StepCounter()
			w.Adaptive.RunWhile(running)
			report.AdaptiveSteps = w.Adaptive.StepCounter() - before
		}))
	}

	if w.Refinement != nil {
		g.Go(guard("refinement", func() {
			before := w.Refinement.StepCounter()
			w.Refinement.RunWhile(running)
			report.RefinementSteps = w.Refinement.StepCounter() - before
			report.Refined = w.Refinement.MaybeRefine(refineThreshold)
		}))
	}

	if w.Direct != nil {
		g.Go(guard("direct", func() {
			before := w.Direct.Samples()
			w.Direct.SampleWhile(running)
			report.DirectSamples = w.Direct.Samples() - before
		}))
	}

	err := g.Wait()
	report.Duration = s.now().Sub(start)
	if err != nil {
		return report, err
	}
	return report, nil
}

// guard turns a panic inside fn into an ErrWorkerPanic error.
func guard(name string, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: %v", ErrWorkerPanic, name, r)
			}
		}()
		fn()
		return nil
	}
}
