package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/behavior/internal/app"
	"github.com/okian/behavior/pkg/logger"
)

type sessionResponse struct {
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state"`
}

// HandleStart handles POST /session/start.
func (s *Server) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_start"
	if !allow(w, r, http.MethodPost) {
		return
	}
	id, err := s.deps.Start(r.Context())
	switch {
	case errors.Is(err, service.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "already_running", Wrap(op, err))
	case err != nil:
		s.logger.Error(r.Context(), "session start failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "start_failed", Wrap(op, err))
	default:
		writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: "running"})
	}
}

// HandleStop handles POST /session/stop. Stopping an idle session succeeds.
func (s *Server) HandleStop(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_stop"
	if !allow(w, r, http.MethodPost) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.stopTimeout)
	defer cancel()
	if err := s.deps.Stop(ctx); err != nil {
		writeError(w, http.StatusGatewayTimeout, "stop_timeout", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{State: "idle"})
}
