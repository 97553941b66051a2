// internal/handlers/api_test.go
package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Cryptverse/routing-server/internal/analytics"
	"github.com/Cryptverse/routing-server/internal/config"
	"github.com/Cryptverse/routing-server/internal/filter"
	"github.com/Cryptverse/routing-server/internal/identity"
	"github.com/Cryptverse/routing-server/internal/lobby"
	"github.com/Cryptverse/routing-server/internal/ratelimit"
)

const testTrustedKey = "29e4b5febd6c2f326dee890e1f71991ea4c7850bfa09a14a"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := identity.NewStore(filepath.Join(t.TempDir(), "identity.txt"))
	cache, err := identity.NewCache(store, logger)
	require.NoError(t, err)

	cfg := &config.Config{
		IdentityRateLimit: 2,
		ClientIPLimit:     100,
		Trusted:           map[string]string{"testserver": testTrustedKey},
		Admins:            map[string]string{},
	}

	return NewServer(
		cfg,
		lobby.NewRegistry(),
		cache,
		ratelimit.NewTable(cfg.IdentityRateLimit, time.Minute),
		ratelimit.NewTable(cfg.ClientIPLimit, time.Minute),
		analytics.NewService(nil, logger),
		filter.New(),
		logger,
	)
}

func TestLobbyListEmpty(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/lobby/list", nil)
	w := httptest.NewRecorder()
	s.LobbyListHandler(w, req)

	require.Equal(t, 200, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestLobbyGetUnknownIsNull(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/lobby/get?partyURL=deadbeefdeadbeef", nil)
	w := httptest.NewRecorder()
	s.LobbyGetHandler(w, req)

	require.Equal(t, "null\n", w.Body.String())

	req = httptest.NewRequest("GET", "/lobby/get", nil)
	w = httptest.NewRecorder()
	s.LobbyGetHandler(w, req)
	require.Equal(t, "null\n", w.Body.String())
}

func TestIdentityGetIssuesAndRenews(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/uuid/get?existing=false", nil)
	w := httptest.NewRecorder()
	s.IdentityGetHandler(w, req)

	var first struct {
		OK      bool   `json:"ok"`
		Renewed bool   `json:"renewed"`
		UUID    string `json:"uuid"`
		IPAddr  string `json:"ipaddr"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.True(t, first.OK)
	require.True(t, first.Renewed, "fresh issuance reports renewed")
	require.Len(t, first.UUID, 36)
	require.Equal(t, "192.0.2.1", first.IPAddr)

	// Presenting the live token back renews it instead of issuing.
	req = httptest.NewRequest("GET", "/uuid/get?existing="+first.UUID, nil)
	w = httptest.NewRecorder()
	s.IdentityGetHandler(w, req)

	var second struct {
		OK      bool   `json:"ok"`
		Renewed bool   `json:"renewed"`
		UUID    string `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.True(t, second.OK)
	require.False(t, second.Renewed)
	require.Equal(t, first.UUID, second.UUID)
}

func TestIdentityGetRejectsBadExisting(t *testing.T) {
	s := newTestServer(t)

	for _, existing := range []string{"", "short", "true"} {
		req := httptest.NewRequest("GET", "/uuid/get?existing="+existing, nil)
		w := httptest.NewRecorder()
		s.IdentityGetHandler(w, req)

		var resp struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.False(t, resp.OK)
		require.Equal(t, "Invalid existing UUID", resp.Error)
	}
}

func TestIdentityGetRateLimited(t *testing.T) {
	s := newTestServer(t)

	// Limit is 2 in the test config; the third fresh issuance must fail.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/uuid/get?existing=false", nil)
		w := httptest.NewRecorder()
		s.IdentityGetHandler(w, req)

		var resp struct {
			OK bool `json:"ok"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.True(t, resp.OK, "request %d should pass", i)
	}

	req := httptest.NewRequest("GET", "/uuid/get?existing=false", nil)
	w := httptest.NewRecorder()
	s.IdentityGetHandler(w, req)

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.OK)
	require.Equal(t, "Rate limit exceeded", resp.Error)
}

func TestIdentityCheck(t *testing.T) {
	s := newTestServer(t)

	sess := s.identity.Issue("203.0.113.9")

	// Valid token + valid key.
	req := httptest.NewRequest("GET", "/uuid/check?uuid="+sess.Token+"&trustedKey="+testTrustedKey, nil)
	w := httptest.NewRecorder()
	s.IdentityCheckHandler(w, req)

	var resp struct {
		OK      bool   `json:"ok"`
		IsValid bool   `json:"isValid"`
		UUID    string `json:"uuid"`
		IPAddr  string `json:"ipaddr"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.True(t, resp.IsValid)
	require.Equal(t, sess.Token, resp.UUID)
	require.Equal(t, "203.0.113.9", resp.IPAddr)

	// Unknown token is ok but not valid, and leaks no session fields.
	req = httptest.NewRequest("GET", "/uuid/check?uuid=00000000-0000-0000-0000-000000000000&trustedKey="+testTrustedKey, nil)
	w = httptest.NewRecorder()
	s.IdentityCheckHandler(w, req)

	var missing map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &missing))
	require.Equal(t, true, missing["ok"])
	require.Equal(t, false, missing["isValid"])
	require.NotContains(t, missing, "uuid")

	// Wrong key is rejected regardless of token.
	req = httptest.NewRequest("GET", "/uuid/check?uuid="+sess.Token+"&trustedKey=wrong", nil)
	w = httptest.NewRecorder()
	s.IdentityCheckHandler(w, req)

	var rejected struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
	require.False(t, rejected.OK)
	require.Equal(t, "Invalid trusted key", rejected.Error)

	// Malformed token shape.
	req = httptest.NewRequest("GET", "/uuid/check?uuid=nope&trustedKey="+testTrustedKey, nil)
	w = httptest.NewRecorder()
	s.IdentityCheckHandler(w, req)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
	require.False(t, rejected.OK)
	require.Equal(t, "Invalid UUID", rejected.Error)
}

func TestAnalyticsGetEmpty(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/analytics/get", nil)
	w := httptest.NewRecorder()
	s.AnalyticsGetHandler(w, req)

	require.Equal(t, 200, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()

	req := httptest.NewRequest("OPTIONS", "/lobby/list", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 204, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
