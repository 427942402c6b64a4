// Package worker provides the dashboard service: an HTTP API, a live event
// stream and the tick loop that advances the running session.
package worker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/coinscope/internal/config"
	"github.com/thebtf/coinscope/internal/explorer"
	"github.com/thebtf/coinscope/internal/metrics"
	"github.com/thebtf/coinscope/internal/presets"
	"github.com/thebtf/coinscope/internal/worker/sse"
	"github.com/thebtf/coinscope/pkg/models"
)

// EventSnapshot is the SSE event carrying a models.Snapshot.
const EventSnapshot = "snapshot"

// Service runs the dashboard.
type Service struct {
	version string
	config  *config.Config

	optsMu sync.RWMutex
	opts   models.Options

	explorer       *explorer.Explorer
	presets        *presets.Registry
	recorder       *metrics.Recorder
	metrics        *metrics.Provider
	sseBroadcaster *sse.Broadcaster

	router     chi.Router
	server     *http.Server
	listenAddr string

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	ready     atomic.Bool
	startTime time.Time

	fatal func(error)
}

// Option configures a Service.
type Option func(*Service)

// WithPresets sets the preset registry. Without it the service has none.
func WithPresets(r *presets.Registry) Option {
	return func(s *Service) { s.presets = r }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics serves the provider's instruments under /api/metrics. Unless
// WithRecorder is given, the explorer records into it.
func WithMetrics(p *metrics.Provider) Option {
	return func(s *Service) { s.metrics = p }
}

// WithExplorer replaces the explorer, mainly for tests.
func WithExplorer(e *explorer.Explorer) Option {
	return func(s *Service) { s.explorer = e }
}

// WithFatal replaces the handler for tick failures. The default logs the
// error and exits the process.
func WithFatal(fn func(error)) Option {
	return func(s *Service) { s.fatal = fn }
}

// NewService creates a Service for cfg. The config is validated but no
// session is started until Start.
func NewService(version string, cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		version:        version,
		config:         cfg,
		opts:           cfg.Display,
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
		fatal: func(err error) {
			log.Fatal().Err(err).Msg("Tick failed, session state is no longer consistent")
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil && s.metrics != nil {
		r, err := s.metrics.Recorder()
		if err != nil {
			cancel()
			return nil, err
		}
		s.recorder = r
	}
	if s.explorer == nil {
		s.explorer = explorer.New(explorer.WithRecorder(s.recorder))
	}
	if s.presets == nil {
		s.presets = presets.Empty()
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler of the service.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Addr returns the address the HTTP server listens on, or "" before Start.
func (s *Service) Addr() string {
	return s.listenAddr
}

// Options returns a copy of the current display options.
func (s *Service) Options() models.Options {
	s.optsMu.RLock()
	defer s.optsMu.RUnlock()
	return s.opts
}

// SetOptions validates and installs new display options.
func (s *Service) SetOptions(o models.Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.optsMu.Lock()
	s.opts = o
	s.optsMu.Unlock()
	return nil
}

// ReloadConfig re-reads the config file at path and applies its display
// options. The running session is not touched.
func (s *Service) ReloadConfig(path string) error {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	if err := s.SetOptions(cfg.Display); err != nil {
		return err
	}
	log.Info().
		Str("scale", string(cfg.Display.Scale)).
		Bool("pairwise", cfg.Display.Pairwise).
		Msg("Display options reloaded")
	return nil
}

// Start launches the configured session, the tick loop and, if addr is
// not empty, the HTTP server on addr.
func (s *Service) Start(addr string) error {
	if err := s.explorer.Start(s.config.Session); err != nil {
		return err
	}

	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		s.server = &http.Server{
			Handler:           s.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
		s.listenAddr = ln.Addr().String()
		log.Info().Str("addr", s.listenAddr).Msg("Dashboard listening")
	}

	s.wg.Add(1)
	go s.tickLoop()

	s.ready.Store(true)
	return nil
}

// Shutdown stops the tick loop and the HTTP server.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.cancel()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Service) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(s.ctx); err != nil {
				if s.ctx.Err() != nil {
					return
				}
				s.fatal(err)
				return
			}
		}
	}
}

// Tick advances the session once and streams the new snapshot to
// connected clients.
func (s *Service) Tick(ctx context.Context) error {
	opts := s.Options()
	if _, err := s.explorer.Advance(ctx, s.config.TickBudget(), &opts); err != nil {
		if errors.Is(err, explorer.ErrNoSession) {
			return nil
		}
		return err
	}

	if s.sseBroadcaster.ClientCount() == 0 {
		return nil
	}
	snap, err := s.explorer.Snapshot(&opts)
	if err != nil {
		return err
	}
	return s.sseBroadcaster.Publish(EventSnapshot, snap)
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/", serveIndex)
	s.router.Get("/app.js", serveAssets)
	s.router.Get("/style.css", serveAssets)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Get("/version", s.handleVersion)
		r.Get("/metrics", s.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(s.requireReady)
			r.Get("/config", s.handleGetConfig)
			r.Post("/session", s.handleStartSession)
			r.Post("/pause", s.handleTogglePause)
			r.Get("/snapshot", s.handleSnapshot)
			r.Get("/options", s.handleGetOptions)
			r.Put("/options", s.handleUpdateOptions)
			r.Get("/events", s.sseBroadcaster.HandleSSE)
		})
	})
}

// requireReady rejects requests until Start completed.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, errors.New("service is starting"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
