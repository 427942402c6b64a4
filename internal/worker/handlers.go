package worker

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/coinscope/internal/explorer"
	"github.com/thebtf/coinscope/internal/metrics"
	"github.com/thebtf/coinscope/internal/session"
	"github.com/thebtf/coinscope/pkg/models"
)

// maxBodyBytes bounds request bodies; every request payload is tiny.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type configResponse struct {
	Session      models.SessionParams `json:"session"`
	Display      models.Options       `json:"display"`
	Speed        float64              `json:"speed"`
	TickInterval string               `json:"tick_interval"`
	TickBudget   string               `json:"tick_budget"`
	Presets      []string             `json:"presets"`
}

type sessionResponse struct {
	SessionID string               `json:"session_id"`
	Params    models.SessionParams `json:"params"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// unchanged.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"session": s.explorer.SessionID(),
		"paused":  s.explorer.IsPaused(),
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, errors.New("service is starting"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleMetrics(w http.ResponseWriter, r *http.Request) {
	samples, err := s.metrics.Collect(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if samples == nil {
		samples = []metrics.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Service) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Session:      s.config.Session,
		Display:      s.Options(),
		Speed:        s.config.Speed,
		TickInterval: s.config.TickInterval.String(),
		TickBudget:   s.config.TickBudget().String(),
		Presets:      s.presets.Names(),
	})
}

// handleStartSession starts a session from ?preset=<name> or from a JSON
// body of session parameters. Fields missing from the body keep the
// configured defaults.
func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	params := s.config.Session

	if name := r.URL.Query().Get("preset"); name != "" {
		p, ok := s.presets.Get(name)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("unknown preset: "+name))
			return
		}
		params = p.Params(params)
	} else if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.explorer.Start(params); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidParams):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, session.ErrSetupFailed):
			writeError(w, http.StatusUnprocessableEntity, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: s.explorer.SessionID(),
		Params:    params,
	})
}

func (s *Service) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.explorer.TogglePause()})
}

func (s *Service) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	opts := s.Options()
	snap, err := s.explorer.Snapshot(&opts)
	if err != nil {
		switch {
		case errors.Is(err, explorer.ErrNoSession):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Service) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Options())
}

// handleUpdateOptions merges a partial JSON object into the current
// display options.
func (s *Service) handleUpdateOptions(w http.ResponseWriter, r *http.Request) {
	opts := s.Options()
	if err := decodeBody(r, &opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.SetOptions(opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}
