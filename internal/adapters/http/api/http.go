// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/types"
	"github.com/okian/behavior/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the session service.
type Dependencies interface {
	// Session control.
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) error
	Running() bool

	// Read operations.
	Snapshot() model.Snapshot
	History(since time.Time) []model.HistoryEntry
	Recognitions(ctx context.Context, limit int) ([]types.Entry, error)
	Frame() ([]byte, bool, error)
	Subscribe(capacity int) *events.Subscription

	// Export writes the history and returns the file path.
	Export(ctx context.Context) (string, error)
}

// Entry mirrors the read shape returned by recognition queries.
type Entry = types.Entry

const (
	defaultMaxLimit    = 100
	defaultLimit       = 10
	defaultRedraw      = time.Second
	defaultStopTimeout = 5 * time.Second
)

// Server wires HTTP routes for the perception API.
type Server struct {
	deps        Dependencies
	maxLimit    int
	redraw      time.Duration
	stopTimeout time.Duration
	logger      logger.Logger

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:             deps,
		maxLimit:         defaultMaxLimit,
		redraw:           defaultRedraw,
		stopTimeout:      defaultStopTimeout,
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		dashboardHandler: newDashboardHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/session/start", MetricsMiddleware(s.HandleStart, "session_start"))
	mux.HandleFunc("/session/stop", MetricsMiddleware(s.HandleStop, "session_stop"))
	mux.HandleFunc("/snapshot", MetricsMiddleware(s.HandleSnapshot, "snapshot"))
	mux.HandleFunc("/history", MetricsMiddleware(s.HandleHistory, "history"))
	mux.HandleFunc("/export", MetricsMiddleware(s.HandleExport, "export"))
	mux.HandleFunc("/recognitions", MetricsMiddleware(s.HandleRecognitions, "recognitions"))
	mux.HandleFunc("/frame.jpg", MetricsMiddleware(s.HandleFrame, "frame"))
	mux.HandleFunc("/ws", s.HandleStream)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// allow answers 405 and returns false unless r uses method.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	return false
}
