// Package httpapi exposes the job controller's four operations (submit,
// status, cancel, result) over HTTP. It is intentionally thin plumbing: all
// pipeline behavior lives behind the controller.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/user/framecast/pkg/capture"
	"github.com/user/framecast/pkg/controller"
)

// Server holds the handler dependencies.
type Server struct {
	ctrl *controller.Controller
	log  zerolog.Logger
}

// NewRouter builds the chi router for the control surface.
func NewRouter(ctrl *controller.Controller, log zerolog.Logger) http.Handler {
	s := &Server{ctrl: ctrl, log: log}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(log),
	)

	r.Get("/healthz", s.Health)
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.SubmitJob)
		r.Get("/{id}", s.JobStatus)
		r.Delete("/{id}", s.CancelJob)
		r.Get("/{id}/result", s.JobResult)
	})

	return r
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitRequest struct {
	Target     string  `json:"target"`
	FPS        float64 `json:"fps,omitempty"`
	DurationMs int     `json:"duration_ms,omitempty"`
	MaxFrames  int     `json:"max_frames,omitempty"`
	BudgetMs   int     `json:"budget_ms,omitempty"`
}

type submitResponse struct {
	ID string `json:"id"`
}

// SubmitJob accepts a job spec and returns its id immediately.
func (s *Server) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	spec := capture.JobSpec{
		Target:    req.Target,
		FPS:       req.FPS,
		MaxFrames: req.MaxFrames,
		Duration:  time.Duration(req.DurationMs) * time.Millisecond,
		Budget:    time.Duration(req.BudgetMs) * time.Millisecond,
	}

	id, err := s.ctrl.Submit(spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{ID: id})
}

type statusResponse struct {
	ID             string  `json:"id"`
	State          string  `json:"state"`
	FramesCaptured int     `json:"frames_captured"`
	Gaps           int     `json:"gaps"`
	Progress       float64 `json:"progress"`
	Error          string  `json:"error,omitempty"`
}

// JobStatus reports the latest known state of a job.
func (s *Server) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.ctrl.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		ID:             st.ID,
		State:          st.State.String(),
		FramesCaptured: st.FramesCaptured,
		Gaps:           st.Gaps,
		Progress:       st.Progress,
		Error:          st.Err,
	})
}

// CancelJob signals the job to stop; the sampler observes it within one
// sampling interval.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ctrl.Cancel(id); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "state": "cancelling"})
}

// JobResult blocks until the job finishes, then streams the artifact file or
// reports the job's fatal error.
func (s *Server) JobResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	artifact, err := s.ctrl.Result(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, capture.ErrNoFrames):
			writeError(w, http.StatusConflict, err.Error())
		case r.Context().Err() != nil:
			// Client went away while waiting.
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("X-Frame-Count", strconv.Itoa(artifact.FrameCount))
	w.Header().Set("X-Gap-Fills", strconv.Itoa(artifact.Gaps))
	w.Header().Set("X-Duration-Ms", strconv.Itoa(artifact.DurationMs))
	http.ServeFile(w, r, artifact.Path)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
