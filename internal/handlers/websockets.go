package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Envelope types.
const (
	wsTypeSnapshot = "snapshot"
	wsTypeStatus   = "status"
	wsTypeError    = "error"

	wsCmdTogglePlayback = "toggle_playback"
	wsCmdSelectNav      = "select_nav"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsCommand is a client message on the dashboard stream.
type wsCommand struct {
	Type  string `json:"type"`
	Index int    `json:"index,omitempty"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{CheckOrigin: h.checkOrigin}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	return h.allowedOrigins[r.Header.Get("Origin")]
}

// @Summary      Dashboard stream
// @Description  WebSocket. Without view_id a view is mounted for the connection and unmounted when it closes. Sends {"type":"snapshot"} after every change; accepts {"type":"toggle_playback"} and {"type":"select_nav","index":n}.
// @Tags         dashboard
// @Param        view_id  query  string  false  "Attach to an existing view"
// @Router       /ws/dashboard [get]
func (h *Handler) wsDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Query("view_id")
	owned := id == ""
	if owned {
		snap, err := h.services.Dashboard.Mount(ctx)
		if err != nil {
			h.logAndJSONError(c, http.StatusInternalServerError, errMountView, "ws_view_mount_failed", err)
			return
		}
		id = snap.ViewID
		defer func() {
			if err := h.services.Dashboard.Unmount(context.Background(), id); err != nil {
				h.log.Debugw("ws_view_unmount_skipped", "view_id", id, "err", err)
			}
		}()
	}

	updates, cancel, err := h.services.Dashboard.Subscribe(id, h.wsBuffer)
	if err != nil {
		h.respondError(c, "ws_subscribe_failed", err, "view_id", id)
		return
	}
	defer cancel()

	initial, err := h.services.Dashboard.Get(ctx, id)
	if err != nil {
		h.respondError(c, "ws_get_view_failed", err, "view_id", id)
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()
	configureConn(conn)

	stop := make(chan struct{})
	defer close(stop)
	done := make(chan struct{})
	commands := make(chan wsCommand)
	go h.startReader(conn, done, stop, commands)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := writeEnvelope(conn, wsEnvelope{Type: wsTypeSnapshot, Data: initial}); err != nil {
		h.log.Infow("ws_write_failed_initial", "view_id", id, "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := writePing(conn); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case snap, ok := <-updates:
			if !ok {
				// view unmounted elsewhere
				return
			}
			if err := writeEnvelope(conn, wsEnvelope{Type: wsTypeSnapshot, Data: snap}); err != nil {
				h.log.Infow("ws_write_failed", "view_id", id, "err", err)
				return
			}
		case cmd := <-commands:
			if err := h.applyDashboardCommand(ctx, id, cmd); err != nil {
				if werr := writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: err.Error()}); werr != nil {
					return
				}
			}
		}
	}
}

func (h *Handler) applyDashboardCommand(ctx context.Context, id string, cmd wsCommand) error {
	switch cmd.Type {
	case wsCmdTogglePlayback:
		_, err := h.services.Dashboard.TogglePlayback(ctx, id)
		return err
	case wsCmdSelectNav:
		_, err := h.services.Dashboard.SelectNav(ctx, id, cmd.Index)
		return err
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// @Summary      Verification countdown stream
// @Description  WebSocket. Sends {"type":"status"} on every tick until the flow is cancelled.
// @Tags         verification
// @Param        id  path  string  true  "Flow ID"
// @Router       /ws/verification/{id} [get]
func (h *Handler) wsVerification(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	updates, cancel, err := h.services.Verification.Subscribe(id, h.wsBuffer)
	if err != nil {
		h.respondError(c, "ws_subscribe_failed", err, "flow_id", id)
		return
	}
	defer cancel()

	initial, err := h.services.Verification.Status(ctx, id)
	if err != nil {
		h.respondError(c, "ws_status_failed", err, "flow_id", id)
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()
	configureConn(conn)

	stop := make(chan struct{})
	defer close(stop)
	done := make(chan struct{})
	go h.startReader(conn, done, stop, nil)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := writeEnvelope(conn, wsEnvelope{Type: wsTypeStatus, Data: initial}); err != nil {
		h.log.Infow("ws_write_failed_initial", "flow_id", id, "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := writePing(conn); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case st, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "flow closed"))
				return
			}
			if err := writeEnvelope(conn, wsEnvelope{Type: wsTypeStatus, Data: st}); err != nil {
				h.log.Infow("ws_write_failed", "flow_id", id, "err", err)
				return
			}
		}
	}
}

// configureConn sets read limits and a pong handler extending the read deadline.
func configureConn(conn *websocket.Conn) {
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// startReader drains incoming messages to handle control frames and detect
// closure. Text frames are decoded as commands when commands is non-nil.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}, stop <-chan struct{}, commands chan<- wsCommand) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			h.log.Infow("ws_read_closed", "err", err)
			return
		}
		if commands == nil {
			continue
		}
		var cmd wsCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			h.log.Infow("ws_bad_command", "err", err)
			continue
		}
		select {
		case commands <- cmd:
		case <-stop:
			return
		}
	}
}

func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

func writePing(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.PingMessage, nil)
}
