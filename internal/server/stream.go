package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/synth"
)

const (
	writeWait   = 10 * time.Second
	requestWait = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is one frame sent to a stream client.
type streamMessage struct {
	Type     string             `json:"type"` // "slot", "result" or "error"
	Event    *synth.SlotEvent   `json:"event,omitempty"`
	Response *generate.Response `json:"response,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// streamConn serializes writes; slot events arrive from several goroutines.
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) send(msg streamMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// handleStream reads one request frame, streams slot events while the
// request runs and finishes with the response.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[Server] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	sc := &streamConn{conn: conn}

	if s.generator == nil {
		_ = sc.send(streamMessage{Type: "error", Error: "generator is not initialized"})
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(requestWait))
	var req generate.Request
	if err := conn.ReadJSON(&req); err != nil {
		_ = sc.send(streamMessage{Type: "error", Error: "invalid request frame: " + err.Error()})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	// A failed read means the client went away; stop the pending calls.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	observer := func(ev synth.SlotEvent) {
		if err := sc.send(streamMessage{Type: "slot", Event: &ev}); err != nil {
			logger.Debug("[Server] drop slot event for %s: %v", ev.SlotID, err)
		}
	}
	resp, err := s.generator.Generate(ctx, req, synth.WithObserver(observer))
	if err != nil {
		logger.Debug("[Server] stream request for %s failed: %v", req.VariantID, err)
	}
	if ctx.Err() != nil {
		return
	}
	if err := sc.send(streamMessage{Type: "result", Response: resp}); err != nil {
		logger.Warn("[Server] send stream result: %v", err)
		return
	}

	sc.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	sc.mu.Unlock()
}
