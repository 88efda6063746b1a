package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/okian/behavior/internal/adapters/export"
	"github.com/okian/behavior/internal/adapters/repository"
	"github.com/okian/behavior/internal/domain/types"
	"github.com/okian/behavior/pkg/logger"
)

// HandleSnapshot handles GET /snapshot.
func (s *Server) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, types.FromSnapshot(s.deps.Snapshot()))
}

// HandleHistory handles GET /history?since=<time>. since accepts any common
// date format, e.g. RFC3339, "2025-10-16 14:00:00" or a unix timestamp.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.history"
	if !allow(w, r, http.MethodGet) {
		return
	}
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, errors.Join(ErrBadRequest, err)))
			return
		}
		since = t
	}
	writeJSON(w, http.StatusOK, types.FromHistory(s.deps.History(since)))
}

type exportResponse struct {
	Path string `json:"path"`
}

// HandleExport handles POST /export.
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if !allow(w, r, http.MethodPost) {
		return
	}
	path, err := s.deps.Export(r.Context())
	if err != nil {
		code := "internal_error"
		if errors.Is(err, export.ErrExport) {
			code = "export_failed"
		}
		writeError(w, http.StatusInternalServerError, code, Wrap(op, err))
		return
	}
	s.logger.Info(r.Context(), "history exported", logger.String("path", path))
	writeJSON(w, http.StatusOK, exportResponse{Path: path})
}

// HandleRecognitions handles GET /recognitions?limit=N.
func (s *Server) HandleRecognitions(w http.ResponseWriter, r *http.Request) {
	const op = "api.recognitions"
	if !allow(w, r, http.MethodGet) {
		return
	}
	n := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > s.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", Wrap(op, ErrBadRequest))
		return
	}
	entries, err := s.deps.Recognitions(r.Context(), n)
	switch {
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	default:
		writeJSON(w, http.StatusOK, entries)
	}
}

// HandleFrame handles GET /frame.jpg with the latest annotated frame.
func (s *Server) HandleFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.frame"
	if !allow(w, r, http.MethodGet) {
		return
	}
	data, ok, err := s.deps.Frame()
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	case !ok:
		writeError(w, http.StatusNotFound, "no_frame", Wrap(op, ErrNoFrame))
	default:
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
