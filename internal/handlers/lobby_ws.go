// internal/handlers/lobby_ws.go
package handlers

import (
	"net/http"
	"net/url"

	"github.com/coder/websocket"

	"github.com/Cryptverse/routing-server/internal/analytics"
	"github.com/Cryptverse/routing-server/internal/lobby"
	"github.com/Cryptverse/routing-server/internal/middleware"
	"github.com/Cryptverse/routing-server/internal/protocol"
)

// LobbyWSHandler accepts a game owner's socket, builds the lobby from the
// query string, then relays owner frames until the socket closes. The lobby
// lives exactly as long as this connection: owner disconnect destroys it and
// kicks every client.
func (s *Server) LobbyWSHandler(w http.ResponseWriter, r *http.Request) {
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

	// Resource documents and piped payloads have no transport-level size cap.
	c.SetReadLimit(-1)

	q := r.URL.Query()

	entry, err := analytics.FromBase64(q.Get("analytics"))
	if err != nil {
		c.Close(websocket.StatusPolicyViolation, "invalid analytics payload")
		return
	}

	conn := newWSConn(c)

	lob, err := s.buildLobby(conn, q)
	if err != nil {
		_ = conn.Send(protocol.ControlError(err.Error()))
		c.Close(websocket.StatusPolicyViolation, "invalid lobby configuration")
		return
	}
	defer lob.Destroy()

	summary := lob.Summary()
	entry.Define("lobby", map[string]any{
		"modded":   summary.IsModded,
		"private":  summary.IsPrivate,
		"gamemode": summary.Gamemode,
		"biome":    summary.Biome,
	})
	defer func() {
		entry.Finish()
		s.analytics.Record(entry)
	}()

	lob.Activate()

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
		lob.HandleOwnerFrame(data)
	}
}

// buildLobby runs the full construction pipeline for an owner connection:
// name validation, settings, trust, and the optional direct connect block.
// Any failure releases the reserved party code before returning.
func (s *Server) buildLobby(conn lobby.Conn, q url.Values) (*lobby.Lobby, error) {
	lob, err := lobby.New(conn, q.Get("gameName"), s.filter.Prohibited, s.registry, s.logger)
	if err != nil {
		return nil, err
	}

	if err := lob.Define(
		q.Get("isModded"),
		q.Get("isPrivate"),
		q.Get("secretKey"),
		q.Get("gamemode"),
		q.Get("biome"),
		s.cfg.Trusted,
	); err != nil {
		lob.Destroy()
		return nil, err
	}

	lob.SetAdminTable(s.cfg.Admins)
	lob.SetAnalytics(s.analytics)

	if q.Has("directConnect") {
		dc, err := lobby.ParseDirectConnect(q.Get("directConnect"))
		if err != nil {
			lob.Destroy()
			return nil, err
		}
		if dc != nil {
			if err := lob.SetDirectConnect(dc.Address, dc.TimeZone); err != nil {
				lob.Destroy()
				return nil, err
			}
		}
	}

	return lob, nil
}
