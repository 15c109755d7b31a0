package ws

import (
	"context"
	"linkup/internal/config"
	"linkup/pkg/logging"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket owns the gorilla connection. Data and ping frames are written only
// from the client's write loop; reads happen only in ReadLoop.
type WebSocket struct {
	*websocket.Conn
	cfg    *config.RealtimeConfig
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewWebSocket(parent context.Context, log *slog.Logger, conn *websocket.Conn, cfg *config.RealtimeConfig) *WebSocket {
	ctx, cancel := context.WithCancel(parent)
	return &WebSocket{Conn: conn, cfg: cfg, log: log, ctx: ctx, cancel: cancel}
}

// Done is closed once the socket is closed.
func (w *WebSocket) Done() <-chan struct{} {
	return w.ctx.Done()
}

func (w *WebSocket) WriteMessage(data []byte) error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) WritePing() error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	return w.Conn.WriteMessage(websocket.PingMessage, nil)
}

// ReadLoop blocks until the peer goes away, the idle deadline passes or the
// socket is closed locally. Inbound data frames are handed to onMsg; control
// frames are handled by gorilla.
func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	defer w.Close()

	w.Conn.SetReadLimit(w.cfg.ReadLimit)
	_ = w.Conn.SetReadDeadline(time.Now().Add(w.cfg.PongWait))
	w.Conn.SetPongHandler(func(string) error {
		return w.Conn.SetReadDeadline(time.Now().Add(w.cfg.PongWait))
	})

	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				w.log.Warn("ws - read loop - unexpected close", logging.Err(err))
			}
			return
		}
		if len(data) > 0 && onMsg != nil {
			onMsg(data)
		}
	}
}

func (w *WebSocket) Close() {
	w.once.Do(func() {
		w.cancel()
		_ = w.Conn.Close()
	})
}
