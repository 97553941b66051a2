// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Cryptverse/routing-server/internal/analytics"
	"github.com/Cryptverse/routing-server/internal/config"
	"github.com/Cryptverse/routing-server/internal/filter"
	"github.com/Cryptverse/routing-server/internal/identity"
	"github.com/Cryptverse/routing-server/internal/lobby"
	"github.com/Cryptverse/routing-server/internal/middleware"
	"github.com/Cryptverse/routing-server/internal/ratelimit"
)

// Server holds the shared state behind every HTTP and WebSocket route.
type Server struct {
	logger *logrus.Logger
	cfg    *config.Config

	registry  *lobby.Registry
	identity  *identity.Cache
	issuance  *ratelimit.Table
	clients   *ratelimit.Table
	analytics *analytics.Service
	filter    *filter.Filter
}

// NewServer wires the route handlers to their backing services.
func NewServer(
	cfg *config.Config,
	reg *lobby.Registry,
	ids *identity.Cache,
	issuance, clients *ratelimit.Table,
	an *analytics.Service,
	f *filter.Filter,
	logger *logrus.Logger,
) *Server {
	return &Server{
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		identity:  ids,
		issuance:  issuance,
		clients:   clients,
		analytics: an,
		filter:    f,
	}
}

// Routes builds the full handler chain: mux -> CORS -> request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/lobby/list", s.LobbyListHandler)
	mux.HandleFunc("/lobby/get", s.LobbyGetHandler)
	mux.HandleFunc("/lobby/resources", s.LobbyResourcesHandler)
	mux.HandleFunc("/uuid/get", s.IdentityGetHandler)
	mux.HandleFunc("/uuid/check", s.IdentityCheckHandler)
	mux.HandleFunc("/analytics/get", s.AnalyticsGetHandler)

	mux.HandleFunc("/ws/lobby", s.LobbyWSHandler)
	mux.HandleFunc("/ws/client", s.ClientWSHandler)

	return middleware.LogMiddleware(s.logger)(withCORS(mux))
}

// withCORS allows browser game clients served from any origin to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnf("failed to encode response: %v", err)
	}
}
