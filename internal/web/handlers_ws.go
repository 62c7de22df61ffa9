package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tv42/topic"
	"nhooyr.io/websocket"
)

// clientBuffer is how many events a client may lag behind before the topic
// drops it.
const clientBuffer = 64

// WSHub fans node events out to WebSocket clients. A client whose buffer is
// full when an event arrives is dropped and its channel closed.
type WSHub struct {
	topic  *topic.Topic
	logger *slog.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{topic: topic.New(), logger: logger}
}

// Subscribe registers a client channel. It returns false once the hub is
// stopped.
func (h *WSHub) Subscribe(buffer int) (chan any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return nil, false
	}
	ch := make(chan any, buffer)
	h.topic.Register(ch)
	return ch, true
}

// Unsubscribe removes and closes ch unless the topic already dropped it.
func (h *WSHub) Unsubscribe(ch chan any) {
	h.topic.Unregister(ch)
}

// Stop closes the topic, which closes every client channel. Safe to call
// multiple times.
func (h *WSHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	close(h.topic.Broadcast)
}

// Broadcast sends a message to all connected clients without blocking.
func (h *WSHub) Broadcast(msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}
	select {
	case h.topic.Broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast channel full, dropping message")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	// If no allowedOrigins configured, nhooyr defaults to same-origin check.

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}
	conn.SetReadLimit(4096)

	events, ok := s.wsHub.Subscribe(clientBuffer)
	if !ok {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}
	s.logger.Debug("ws client connected")

	ctx, cancel := context.WithCancel(r.Context())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wsWritePump(ctx, conn, events)
		cancel()
	}()
	s.wsReadPump(ctx, conn)
	cancel()
	s.wsHub.Unsubscribe(events)
	s.logger.Debug("ws client disconnected")
}

func (s *Server) wsWritePump(ctx context.Context, conn *websocket.Conn, events <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				// Dropped as too slow or the hub stopped.
				conn.Close(websocket.StatusGoingAway, "")
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("ws marshal", "err", err)
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

// wsReadPump discards client messages until the connection ends.
func (s *Server) wsReadPump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "")
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
