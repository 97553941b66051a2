// internal/handlers/ws_conn.go
package handlers

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

const wsWriteTimeout = 10 * time.Second

// wsConn adapts a coder/websocket connection to the lobby.Conn interface.
// Writes are bounded so one stalled peer cannot wedge a relay fan-out.
type wsConn struct {
	c *websocket.Conn
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{c: c}
}

func (w *wsConn) Send(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	return w.c.Write(ctx, websocket.MessageBinary, p)
}

func (w *wsConn) Close() {
	_ = w.c.Close(websocket.StatusNormalClosure, "")
}
