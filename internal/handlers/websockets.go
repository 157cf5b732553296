package handlers

import (
	"context"
	"net/http"
	"time"

	"eldom_bridge"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 1 << 12 // 4 KB
	updateQueue = 16
)

// Envelope used for WebSocket messages. "states" carries every entity on
// connect, "update" the entities of one entry after a refresh.
type wsEnvelope struct {
	Type    string      `json:"type"`
	EntryID string      `json:"entry_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins once the UI host is configurable
}

// @Summary      Entity state stream
// @Description  WebSocket. Sends {"type":"states"} with every entity on connect, then {"type":"update","entry_id":...} after each refresh.
// @Tags         entities
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	// Subscribe before the initial snapshot so no refresh falls in between.
	updates := make(chan wsEnvelope, updateQueue)
	cancel := h.services.Control.SubscribeStates(func(entryID string, states []eldom_bridge.EntityState) {
		select {
		case updates <- wsEnvelope{Type: "update", EntryID: entryID, Data: states}:
		default:
			// never block the coordinator on a slow client
			if h.log != nil {
				h.log.Warnw("ws_update_dropped", "entry_id", entryID)
			}
		}
	})
	defer cancel()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := h.sendStates(c.Request.Context(), conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case env := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendStates writes every entity state with a write deadline.
func (h *Handler) sendStates(ctx context.Context, conn *websocket.Conn) error {
	states, err := h.services.Control.ListEntities(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_list_entities_failed", "err", err)
		}
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "states", Data: states})
}
