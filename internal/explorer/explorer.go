// Package explorer is the single entry point of the display layer. It owns
// the current session, the pause clock and the log_f history, and turns the
// estimator state into plot-ready snapshots.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/coinscope/internal/clock"
	"github.com/thebtf/coinscope/internal/density"
	"github.com/thebtf/coinscope/internal/metrics"
	"github.com/thebtf/coinscope/internal/noise"
	"github.com/thebtf/coinscope/internal/scheduler"
	"github.com/thebtf/coinscope/internal/session"
	"github.com/thebtf/coinscope/pkg/models"
)

var (
	// ErrNoSession is returned before the first successful Start.
	ErrNoSession = errors.New("explorer: no session started")

	// ErrSessionFailed is returned after a tick failed. The session must be
	// restarted; its partially updated state is never served.
	ErrSessionFailed = errors.New("explorer: session failed")
)

// Explorer is safe for concurrent use. Ticks, snapshots and progress reads
// are serialized by tickMu; mu guards the session pointer, clock and log_f
// history and is never held while estimators run, so pause, restart and
// identity queries return immediately during a tick. Lock order is tickMu
// before mu.
type Explorer struct {
	tickMu sync.Mutex
	mu     sync.Mutex

	sess   *session.Session
	clock  clock.PauseClock
	logF   []models.LogFSample
	failed error

	sched    *scheduler.Scheduler
	recorder *metrics.Recorder
	now      func() time.Time
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithClock replaces time.Now for both the pause clock and the scheduler.
func WithClock(now func() time.Time) Option {
	return func(e *Explorer) { e.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Explorer) { e.recorder = r }
}

// New creates an Explorer without a session.
func New(opts ...Option) *Explorer {
	e := &Explorer{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.sched = scheduler.New(scheduler.WithClock(e.now))
	return e
}

// Start replaces the current session. On error the previous session stays
// active and untouched.
func (e *Explorer) Start(p models.SessionParams) error {
	sess, err := session.New(p)
	if err != nil {
		log.Warn().Err(err).Int("n", p.N).Uint64("seed", p.Seed).Msg("Session setup failed")
		return err
	}

	e.mu.Lock()
	e.sess = sess
	e.failed = nil
	e.logF = nil
	e.clock.Reset(e.now())
	e.mu.Unlock()

	e.recorder.SessionStarted(context.Background(), p.N)
	log.Info().
		Str("session", sess.ID()).
		Int("n", p.N).
		Uint64("seed", p.Seed).
		Int("step_size", p.StepSize).
		Float64("threshold", p.Threshold).
		Msg("Session started")
	return nil
}

// TogglePause flips the pause state and returns it.
func (e *Explorer) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	paused := e.clock.Toggle(e.now())
	log.Info().Bool("paused", paused).Msg("Pause toggled")
	return paused
}

// IsPaused reports the pause state.
func (e *Explorer) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Paused()
}

// SessionID returns the id of the current session, or "" without one.
func (e *Explorer) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return ""
	}
	return e.sess.ID()
}

// Advance runs one tick of the current session with the given time budget.
// While the adaptive estimator is unfinished and the session not paused,
// the (elapsed, log_f) pair is appended to the log_f history.
// A failing tick marks the session failed. If the session was replaced
// while the tick ran, the result is dropped.
func (e *Explorer) Advance(ctx context.Context, budget time.Duration, opts *models.Options) (scheduler.TickReport, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	if err := e.usable(); err != nil {
		e.mu.Unlock()
		return scheduler.TickReport{}, err
	}
	sess := e.sess
	paused := e.clock.Paused()
	e.mu.Unlock()

	w := scheduler.Workload{
		Adaptive:   sess.Adaptive(),
		Refinement: sess.Refinement(),
		Direct:     sess.Direct(),
	}
	report, err := e.sched.RunTick(ctx, w, budget, paused, opts.RefineSteps)
	e.recorder.RecordTick(ctx, report)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != sess {
		log.Debug().Str("session", sess.ID()).Msg("Session replaced during tick")
		return report, nil
	}

	if err != nil {
		e.failed = err
		log.Error().Err(err).Str("session", sess.ID()).Msg("Tick failed")
		return report, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}

	if report.Refined {
		log.Info().
			Str("session", sess.ID()).
			Int("refinements", sess.Refinement().Refinements()).
			Msg("Refinement estimate refined")
	}

	if !report.Skipped && !sess.Adaptive().IsFinished() {
		elapsed, err := e.clock.Elapsed(e.now())
		if err != nil {
			return report, err
		}
		e.logF = append(e.logF, models.LogFSample{
			Elapsed: elapsed.Seconds(),
			LogF:    sess.Adaptive().LogF(),
		})
	}

	log.Debug().
		Bool("skipped", report.Skipped).
		Uint64("adaptive_steps", report.AdaptiveSteps).
		Uint64("refinement_steps", report.RefinementSteps).
		Uint64("direct_samples", report.DirectSamples).
		Dur("duration", report.Duration).
		Msg("Tick")
	return report, nil
}

// LogFSeries returns a copy of the log_f history.
func (e *Explorer) LogFSeries() []models.LogFSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.LogFSample, len(e.logF))
	copy(out, e.logF)
	return out
}

// Progress returns the estimator counters of the current session.
func (e *Explorer) Progress() (models.Progress, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usable(); err != nil {
		return models.Progress{}, err
	}
	return e.progress(), nil
}

// Snapshot renders every curve of the current session with opts.
func (e *Explorer) Snapshot(opts *models.Options) (models.Snapshot, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usable(); err != nil {
		return models.Snapshot{}, err
	}

	elapsed, err := e.clock.Elapsed(e.now())
	if err != nil {
		return models.Snapshot{}, err
	}

	s := e.sess
	analytic := s.Analytic()
	snap := models.Snapshot{
		SessionID: s.ID(),
		Params:    s.Params(),
		Paused:    e.clock.Paused(),
		Elapsed:   elapsed.Seconds(),
		Progress:  e.progress(),

		Analytic:   density.Transform("analytic", analytic, opts),
		Adaptive:   density.Transform("adaptive", s.Adaptive().LogDensityBase10(), opts),
		Refinement: density.Transform("refinement", s.Refinement().LogDensityBase10(), opts),
		Direct:     density.Transform("direct", s.Direct().ProbabilityLog10(), opts),

		AdaptiveHist:   density.HistogramCurve("adaptive_hist", s.Adaptive().Hist().Hits(), opts.HistScale),
		RefinementHist: density.HistogramCurve("refinement_hist", s.Refinement().Hist().Hits(), opts.HistScale),
		DirectHist:     density.HistogramCurve("direct_hist", s.Direct().Hist().Hits(), opts.HistScale),

		LogF: density.LogFCurve("log_f", e.logF, opts.LogFScale),
	}

	if opts.Noise.Enabled {
		ref, err := noise.Generate("reference", analytic, opts.Noise, opts)
		if err == nil {
			snap.Reference = &ref
		} else if !errors.Is(err, noise.ErrCurveTooShort) {
			return models.Snapshot{}, err
		}
	}
	return snap, nil
}

func (e *Explorer) usable() error {
	if e.sess == nil {
		return ErrNoSession
	}
	if e.failed != nil {
		return fmt.Errorf("%w: %w", ErrSessionFailed, e.failed)
	}
	return nil
}

func (e *Explorer) progress() models.Progress {
	s := e.sess
	return models.Progress{
		AdaptiveSteps:   s.Adaptive().StepCounter(),
		RefinementSteps: s.Refinement().StepCounter(),
		DirectSamples:   s.Direct().Samples(),
		Refinements:     s.Refinement().Refinements(),
		LogF:            s.Adaptive().LogF(),
		Finished:        s.Adaptive().IsFinished(),
	}
}
