package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"endpoint_addr_http":    "0.0.0.0:80",
		"endpoint_addr_grpc":    "0.0.0.0:81",
		"database_dsn":          "postgres://db/fund",
		"secret_key":            "my_secret_key",
		"session_ttl":           "30m",
		"cookie_secure":         true,
		"request_timeout":       5000000000,
		"login_rate_per_second": 2.5,
		"login_burst":           3,
		"cors_allowed_origins":  []string{"https://fund.example"},
		"google_client_id":      "gid",
		"google_client_secret":  "gsecret",
		"s3_bucket":             "bucket",
		"s3_base_endpoint":      "http://minio:9000/",
	})

	t.Run("loads every field", func(t *testing.T) {
		os.Args = []string{"server", "-config", full}
		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "0.0.0.0:80", cfg.EndpointAddrHTTP)
		assert.Equal(t, "0.0.0.0:81", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db/fund", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
		assert.True(t, cfg.CookieSecure)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 2.5, cfg.LoginRatePerSecond)
		assert.Equal(t, 3, cfg.LoginBurst)
		assert.Equal(t, []string{"https://fund.example"}, cfg.CORSAllowedOrigins)
		assert.True(t, cfg.GoogleEnabled())
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "http://minio:9000/", cfg.S3BaseEndpoint)
	})

	t.Run("absent fields keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "k"})
		os.Args = []string{"server", "-c", partial}
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "k", cfg.SecretKey)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	})

	t.Run("no config flag is a no-op", func(t *testing.T) {
		os.Args = []string{"server"}
		cfg := &Config{SecretKey: "keep"}
		parseJson(cfg)
		assert.Equal(t, "keep", cfg.SecretKey)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ not json`), 0o600))
		os.Args = []string{"server", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"server", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
