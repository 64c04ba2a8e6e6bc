package events

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// EventConnected is the first frame of every websocket session. Its payload carries the
// subscriber id an initiator passes as correlation-id when submitting work.
const EventConnected = "connected"

// WebSocketHandler streams hub events to websocket clients. Clients for which
// fullFeed reports false only receive events about their own transactions.
type WebSocketHandler struct {
	hub            *Hub
	logger         *zap.Logger
	allowedOrigins []string
	fullFeed       func(*http.Request) bool
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler builds the /ws endpoint. A nil fullFeed gives every client the
// full event stream.
func NewWebSocketHandler(hub *Hub, allowedOrigins []string, fullFeed func(*http.Request) bool, logger *zap.Logger) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, logger: logger, allowedOrigins: allowedOrigins, fullFeed: fullFeed}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.logger.Warn("websocket origin not allowed", zap.String("origin", origin))
	return false
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close()

	full := h.fullFeed == nil || h.fullFeed(r)
	var sub *Subscription
	if full {
		sub = h.hub.Subscribe()
	} else {
		sub = h.hub.SubscribeOwn()
	}
	defer sub.Close()

	log := h.logger.With(zap.String("subscriber_id", sub.ID), zap.String("remote_addr", r.RemoteAddr))
	log.Info("websocket subscriber connected", zap.Bool("full_feed", full))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readLoop(conn, cancel)

	hello := Event{
		Name:      EventConnected,
		Payload:   map[string]string{"subscriber_id": sub.ID},
		Timestamp: time.Now().UTC(),
	}
	if err := writeEvent(conn, hello); err != nil {
		log.Warn("failed to greet subscriber", zap.Error(err))
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				log.Info("websocket write failed, closing", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			log.Info("websocket subscriber disconnected", zap.Int64("dropped_events", sub.Dropped()))
			return
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed; any read
// error ends the session.
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
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

func writeEvent(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
