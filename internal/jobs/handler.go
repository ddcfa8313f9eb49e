package jobs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxJobBodyBytes = 64 << 10

// Handler exposes job HTTP endpoints using go-chi.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler returns a Handler that uses the given Service and Logger.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the job endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/compositions", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/{run_id}", h.GetJob)
	})
}

// SubmitJob handles POST /compositions.
// Body: { "primary_asset_key": "...", "secondary_asset_key": "...", "layout_config": {...}, "run_id": "..." }.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var job Job
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&job); err != nil {
		h.log.Debug("invalid job body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.svc.Submit(job)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidJob):
			h.log.Info("job rejected", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrJobExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrQueueFull):
			h.log.Warn("job rejected queue full", slog.String("run_id", string(job.RunID)))
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.log.Error("submit job failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, st)
}

// GetJob handles GET /compositions/{run_id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	runID := RunID(chi.URLParam(r, "run_id"))
	if runID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	st, ok := h.svc.Get(runID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Health handles GET /healthz; it fails while runs cannot be executed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(); err != nil {
		h.log.Warn("health check failed", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
