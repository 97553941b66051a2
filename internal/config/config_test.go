// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadTables(t *testing.T) {
	secret := strings.Repeat("ab", 24)
	t.Setenv("TRUSTED_alpha", secret)
	t.Setenv("TRUSTED_bad", "tooshort")
	t.Setenv("ADMIN_root", "devkey")
	t.Setenv("IDENTITY_RATE_LIMIT", "7")
	t.Setenv("CLIENT_IP_LIMIT", "junk")

	cfg := Load(logrus.New())

	require.Equal(t, map[string]string{"alpha": secret}, cfg.Trusted)
	require.Equal(t, map[string]string{"devkey": "root"}, cfg.Admins)
	require.Equal(t, 7, cfg.IdentityRateLimit)
	require.Equal(t, 100, cfg.ClientIPLimit, "unparseable value falls back to default")
	require.Equal(t, "uuid_saves.txt", cfg.IdentityStoreFile)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, WriteTemplate(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "ENV_DONE=false")
	require.Contains(t, content, "TRUSTED_admin=")

	for _, line := range strings.Split(content, "\n") {
		if key, ok := strings.CutPrefix(line, "TRUSTED_admin="); ok {
			require.Len(t, key, 48)
		}
	}
}
