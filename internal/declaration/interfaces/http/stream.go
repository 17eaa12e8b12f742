package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"energy-declaration/internal/declaration/application"
)

const (
	messageProgress = "progress"
	messageResult   = "result"
	messageError    = "error"

	streamWriteWait = 10 * time.Second
	streamReadWait  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	// The browser client is served from another host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamMessage struct {
	Type     string                `json:"type"`
	Progress *application.Progress `json:"progress,omitempty"`
	Result   *declarationResponse  `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
	Status   int                   `json:"status,omitempty"`
}

// streamConn serialises writes; gorilla connections allow one writer at a time.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamConn) send(msg streamMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return c.conn.WriteJSON(msg)
}

// handleStream runs a declaration over a WebSocket. The client sends one
// request message and receives progress updates followed by a result or an
// error. Closing the socket cancels the run.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	sc := &streamConn{conn: conn}

	var req declarationRequest
	_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))
	if err := conn.ReadJSON(&req); err != nil {
		_ = sc.send(streamMessage{Type: messageError, Error: "invalid request message", Status: http.StatusBadRequest})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Any read error means the peer went away.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	token := req.RefreshToken
	if token == "" {
		token = bearerToken(r)
	}
	decl, err := h.runner.Run(ctx, application.Request{
		RefreshToken: token,
		Year:         req.Year,
		Progress: func(p application.Progress) {
			progress := p
			if err := sc.send(streamMessage{Type: messageProgress, Progress: &progress}); err != nil {
				cancel()
			}
		},
	})
	if err != nil {
		status, message := classifyError(err)
		switch {
		case status == http.StatusGatewayTimeout:
			h.logger.WithError(err).Warn("streamed declaration cancelled")
		case status >= http.StatusInternalServerError:
			h.logger.WithError(err).Error("streamed declaration failed")
		}
		_ = sc.send(streamMessage{Type: messageError, Error: message, Status: status})
	} else {
		resp := newDeclarationResponse(decl)
		_ = sc.send(streamMessage{Type: messageResult, Result: &resp})
	}

	sc.mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	sc.mu.Unlock()
}
