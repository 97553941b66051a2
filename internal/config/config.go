// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// trustedKeyLen is the required length of a TRUSTED_* secret.
const trustedKeyLen = 48

// Config is everything the hub reads from the environment at startup.
// Trust and admin tables are static for the process lifetime.
type Config struct {
	Port        string
	TLSCertFile string
	TLSKeyFile  string

	IdentityStoreFile string
	IdentityRateLimit int
	ClientIPLimit     int

	AnalyticsRedisAddr string
	AnalyticsQueueName string

	// Trusted maps identity name -> shared secret (from TRUSTED_<name>).
	Trusted map[string]string
	// Admins maps shared secret -> admin name (from ADMIN_<name>).
	Admins map[string]string
}

// EnvReady reports whether the operator has finished filling out the .env
// file.
func EnvReady() bool {
	return os.Getenv("ENV_DONE") == "true"
}

// WriteTemplate writes a starter .env with a freshly generated trusted key.
// The operator is expected to review it and flip ENV_DONE to "true".
func WriteTemplate(path string) error {
	key := make([]byte, trustedKeyLen/2)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generate trusted key: %w", err)
	}
	content := fmt.Sprintf(`ENV_DONE=false
TRUSTED_admin=%s
ADMIN_admin=devkey
PORT=8080
TLS_CERT_FILE=
TLS_KEY_FILE=
IDENTITY_STORE_FILE=uuid_saves.txt
IDENTITY_RATE_LIMIT=100
CLIENT_IP_LIMIT=100
ANALYTICS_REDIS_ADDR=
ANALYTICS_QUEUE_NAME=
`, hex.EncodeToString(key))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads the service configuration from the environment. Malformed
// TRUSTED_* keys are skipped with a warning rather than failing startup.
func Load(logger *logrus.Logger) *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		TLSCertFile:        os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:         os.Getenv("TLS_KEY_FILE"),
		IdentityStoreFile:  getEnv("IDENTITY_STORE_FILE", "uuid_saves.txt"),
		IdentityRateLimit:  getEnvInt("IDENTITY_RATE_LIMIT", 100),
		ClientIPLimit:      getEnvInt("CLIENT_IP_LIMIT", 100),
		AnalyticsRedisAddr: os.Getenv("ANALYTICS_REDIS_ADDR"),
		AnalyticsQueueName: os.Getenv("ANALYTICS_QUEUE_NAME"),
		Trusted:            make(map[string]string),
		Admins:             make(map[string]string),
	}

	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		switch {
		case strings.HasPrefix(key, "TRUSTED_"):
			if len(value) != trustedKeyLen {
				logger.Warnf("invalid %s, must be %d characters long, skipping", key, trustedKeyLen)
				continue
			}
			cfg.Trusted[strings.TrimPrefix(key, "TRUSTED_")] = value
		case strings.HasPrefix(key, "ADMIN_"):
			if value == "" {
				continue
			}
			cfg.Admins[value] = strings.TrimPrefix(key, "ADMIN_")
		}
	}
	return cfg
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
