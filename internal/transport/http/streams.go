package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"auv-monitor/internal/stream"
)

func (h *Handler) streamAlerts(w http.ResponseWriter, r *http.Request) {
	h.serveSSE(w, r, stream.ChannelAlert)
}

func (h *Handler) streamTelemetry(w http.ResponseWriter, r *http.Request) {
	h.serveSSE(w, r, stream.ChannelTelemetry)
}

// serveSSE runs one Server-Sent Events subscription: register a sink, send
// a connect event, then relay published events with a periodic keepalive
// until the client goes away.
func (h *Handler) serveSSE(w http.ResponseWriter, r *http.Request, ch stream.Channel) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	auvID := r.URL.Query().Get("auv_id")
	sink := stream.NewChannelSink(h.cfg.StreamBufferSize)
	h.registry.Subscribe(ch, auvID, sink)
	defer func() {
		sink.Close()
		h.registry.Unsubscribe(ch, auvID, sink)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, "connect", h.connectPayload(ch)); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.Duration(h.cfg.KeepaliveIntervalSec) * time.Second
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case data := <-sink.Events():
			if err := writeSSE(w, "message", data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := writeSSE(w, "ping", []byte("keepalive")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// connectPayload is the initial event confirming the subscription is live.
func (h *Handler) connectPayload(ch stream.Channel) []byte {
	now := time.Now().UTC().Format(time.RFC3339)
	if ch == stream.ChannelAlert {
		return []byte(fmt.Sprintf(
			`{"id":%q,"timestamp":%q,"auv_id":"system","severity":"low","title":"Connected","message":"Alert stream connected"}`,
			uuid.NewString(), now))
	}
	return []byte(fmt.Sprintf(
		`{"id":%q,"timestamp":%q,"auv_id":"system","message":"Telemetry stream connected"}`,
		uuid.NewString(), now))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard clients connect from a different origin than the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// streamWS serves the same subscriptions over a WebSocket. The read loop
// exists only to observe the close; all traffic flows server to client.
func (h *Handler) streamWS(w http.ResponseWriter, r *http.Request) {
	var ch stream.Channel
	switch r.URL.Query().Get("channel") {
	case "alerts":
		ch = stream.ChannelAlert
	case "telemetry", "":
		ch = stream.ChannelTelemetry
	default:
		writeError(w, http.StatusBadRequest, "channel must be 'alerts' or 'telemetry'")
		return
	}
	auvID := r.URL.Query().Get("auv_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sink := stream.NewChannelSink(h.cfg.StreamBufferSize)
	h.registry.Subscribe(ch, auvID, sink)
	defer func() {
		sink.Close()
		h.registry.Unsubscribe(ch, auvID, sink)
		conn.Close()
	}()

	go func() {
		defer sink.Close()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case data := <-sink.Events():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sink.Done():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case <-r.Context().Done():
			return
		}
	}
}
