// internal/handlers/api.go
package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/Cryptverse/routing-server/internal/identity"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type acquireResponse struct {
	OK      bool `json:"ok"`
	Renewed bool `json:"renewed"`
	identity.Session
}

type checkResponse struct {
	OK      bool `json:"ok"`
	IsValid bool `json:"isValid"`
	*identity.Session
}

// LobbyListHandler returns summaries of every public lobby.
func (s *Server) LobbyListHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.registry.List())
}

// LobbyGetHandler returns one lobby's summary by party code, or null.
func (s *Server) LobbyGetHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("partyURL")
	if code == "" {
		s.writeJSON(w, nil)
		return
	}
	lob, ok := s.registry.Get(code)
	if !ok {
		s.writeJSON(w, nil)
		return
	}
	s.writeJSON(w, lob.Summary())
}

// LobbyResourcesHandler returns the raw resource document a lobby's owner
// last published, or null.
func (s *Server) LobbyResourcesHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("partyURL")
	if code == "" {
		s.writeJSON(w, nil)
		return
	}
	res, ok := s.registry.Resources(code)
	if !ok {
		s.writeJSON(w, nil)
		return
	}
	s.writeJSON(w, res)
}

// IdentityGetHandler issues or renews an identity token for the caller's IP.
// Only fresh issuance counts against the per-IP rate limit; renewals are free.
func (s *Server) IdentityGetHandler(w http.ResponseWriter, r *http.Request) {
	ip := remoteIP(r.RemoteAddr)
	if ip == "" {
		s.writeJSON(w, errorResponse{Error: "Invalid IP"})
		return
	}

	if !s.issuance.Allow(ip) {
		s.writeJSON(w, errorResponse{Error: "Rate limit exceeded"})
		return
	}

	existing := r.URL.Query().Get("existing")
	if existing == "" || (existing != "false" && len(existing) != 36) {
		s.writeJSON(w, errorResponse{Error: "Invalid existing UUID"})
		return
	}
	if existing == "false" {
		existing = ""
	}

	sess, fresh := s.identity.StandardAcquire(existing, ip)
	if fresh {
		s.issuance.Bump(ip)
	}

	s.writeJSON(w, acquireResponse{OK: true, Renewed: fresh, Session: sess})
}

// IdentityCheckHandler lets a trusted game server verify a client token.
func (s *Server) IdentityCheckHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token := q.Get("uuid")
	if len(token) != 36 {
		s.writeJSON(w, errorResponse{Error: "Invalid UUID"})
		return
	}

	trustedKey := q.Get("trustedKey")
	if trustedKey == "" || !s.trustedKeyValid(trustedKey) {
		s.writeJSON(w, errorResponse{Error: "Invalid trusted key"})
		return
	}

	sess, ok := s.identity.Lookup(token)
	if !ok {
		s.writeJSON(w, checkResponse{OK: true, IsValid: false})
		return
	}
	s.writeJSON(w, checkResponse{OK: true, IsValid: true, Session: &sess})
}

func (s *Server) trustedKeyValid(key string) bool {
	valid := false
	for _, secret := range s.cfg.Trusted {
		if subtle.ConstantTimeCompare([]byte(secret), []byte(key)) == 1 {
			valid = true
		}
	}
	return valid
}

// AnalyticsGetHandler dumps every analytics record collected since startup.
func (s *Server) AnalyticsGetHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.analytics.Snapshot())
}
