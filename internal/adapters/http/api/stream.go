package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/types"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"
)

const (
	// writeWait is how long to wait for a write to complete.
	writeWait = 10 * time.Second
	// pongWait is how long to wait for a pong response.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	eventBuffer    = 64
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals // stateless upgrader
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

var streamClients atomic.Int64 //nolint:gochecknoglobals // gauge source

// StreamMessage is one frame of the /ws stream.
type StreamMessage struct {
	Type     string          `json:"type"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
	Event    *types.Event    `json:"event,omitempty"`
}

// HandleStream handles GET /ws. Clients receive the latest snapshot on every
// redraw tick when it changed, and every event as it happens. Snapshots are
// last-write-wins: a slow client skips intermediate cycles.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	metrics.UpdateWebsocketClients(int(streamClients.Add(1)))
	defer func() {
		metrics.UpdateWebsocketClients(int(streamClients.Add(-1)))
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.deps.Subscribe(eventBuffer)
	defer sub.Close()

	evCh := make(chan model.Event, eventBuffer)
	go func() {
		defer close(evCh)
		for {
			ev, err := sub.Receive(ctx)
			if err != nil {
				return
			}
			select {
			case evCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	go s.readPump(conn, cancel)
	s.writePump(ctx, conn, evCh)
}

// readPump discards client messages and cancels the stream on disconnect.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on conn.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, evCh <-chan model.Event) {
	redraw := time.NewTicker(s.redraw)
	defer redraw.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var lastCycle uint64
	var lastAt time.Time
	sendSnapshot := func() error {
		snap := s.deps.Snapshot()
		if snap.Cycle == lastCycle && snap.At.Equal(lastAt) {
			return nil
		}
		lastCycle, lastAt = snap.Cycle, snap.At
		view := types.FromSnapshot(snap)
		return s.write(conn, StreamMessage{Type: "snapshot", Snapshot: &view})
	}

	if err := sendSnapshot(); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev, ok := <-evCh:
			if !ok {
				return
			}
			view := types.FromEvent(ev)
			if err := s.write(conn, StreamMessage{Type: "event", Event: &view}); err != nil {
				return
			}
		case <-redraw.C:
			if err := sendSnapshot(); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
