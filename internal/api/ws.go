package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cflp/internal/auth"
	"cflp/internal/metrics"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
	wsWriteWait  = 5 * time.Second
)

// wsMessage is one frame of the /ws protocol. The server sends "ack" once,
// then one "event" per solve event; clients may send "ping".
type wsMessage struct {
	Type    string `json:"type"`
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// WSHandler handles /ws, streaming the caller's solve events over a WebSocket.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.authorize(w, r, auth.RoleViewer)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	metrics.StreamClients.WithLabelValues("ws").Inc()
	defer metrics.StreamClients.WithLabelValues("ws").Dec()

	ch := s.Broker.Subscribe(p.Tenant)
	defer s.Broker.Unsubscribe(p.Tenant, ch)

	// Only this goroutine writes; the reader hands pong replies over.
	replies := make(chan wsMessage, 4)
	closed := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	go func() {
		defer close(closed)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			if msg.Type == "ping" {
				select {
				case replies <- wsMessage{Type: "pong"}:
				default:
				}
			}
		}
	}()

	write := func(m wsMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(m)
	}
	if err := write(wsMessage{Type: "ack", Payload: map[string]string{"tenantId": p.Tenant}}); err != nil {
		return
	}
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case m := <-replies:
			if write(m) != nil {
				return
			}
		case evt, open := <-ch:
			if !open {
				return
			}
			if write(wsMessage{Type: "event", Event: evt.Type, Payload: evt.Data}) != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if conn.WriteMessage(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}
