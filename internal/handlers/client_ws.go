// internal/handlers/client_ws.go
package handlers

import (
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/Cryptverse/routing-server/internal/analytics"
	"github.com/Cryptverse/routing-server/internal/middleware"
)

// ClientWSHandler accepts a player's socket and joins it to an existing
// lobby. The client must present a live identity token and the target party
// code; each IP is capped to a fixed number of concurrent client sockets.
func (s *Server) ClientWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")
	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)

	// Oversized frames are dropped by the relay length check, not by the
	// transport closing the connection.
	c.SetReadLimit(-1)

	q := r.URL.Query()

	entry, err := analytics.FromBase64(q.Get("analytics"))
	if err != nil {
		c.Close(websocket.StatusPolicyViolation, "invalid analytics payload")
		return
	}

	ip := remoteIP(r.RemoteAddr)
	if !s.clients.Within(ip) {
		s.logger.WithField("remote", ip).Warn("client connection limit exceeded")
		c.Close(websocket.StatusPolicyViolation, "rate limit exceeded")
		return
	}

	token := q.Get("uuid")
	sess, ok := s.identity.Lookup(token)
	if !ok || !sess.ExpiresAt.After(time.Now()) {
		c.Close(websocket.StatusPolicyViolation, "invalid identity token")
		return
	}

	lob, ok := s.registry.Get(q.Get("partyURL"))
	if !ok {
		c.Close(websocket.StatusPolicyViolation, "no such lobby")
		return
	}

	s.clients.Bump(ip)
	defer s.clients.Release(ip)

	conn := newWSConn(c)
	id, err := lob.AddClient(conn, token, q.Get("clientKey"))
	if err != nil {
		c.Close(websocket.StatusTryAgainLater, err.Error())
		return
	}
	defer lob.RemoveClient(id)

	entry.Define("client", map[string]any{
		"gamemode": lob.Gamemode(),
		"biome":    lob.Biome(),
	})
	defer func() {
		entry.Finish()
		s.analytics.Record(entry)
	}()

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, err)
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		lob.RelayFromClient(id, data)
	}
}
