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
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":                  "www.example:9000",
		"api_key":                    "key",
		"aws_endpoint":               "http://localstack:4566",
		"s3_path_style":              true,
		"database_host":              "db",
		"database_port":              6543,
		"database_root_secret_name":  "root/secret",
		"database_pool_retire_grace": "30s",
		"secrets_provider":           "memory",
		"search_url":                 "http://search:9200",
		"presigned_upload_expiry":    "5m",
		"max_file_size_bytes":        1000,
		"sweep_concurrency":          2,
		"run_migrations":             true,
		"completion_source":          "sqs",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.APIKey)
		assert.Equal(t, "http://localstack:4566", cfg.AWSEndpoint)
		assert.True(t, cfg.S3PathStyle)
		assert.Equal(t, "db", cfg.DatabaseHost)
		assert.Equal(t, 6543, cfg.DatabasePort)
		assert.Equal(t, "root/secret", cfg.DatabaseRootSecretName)
		assert.Equal(t, 30*time.Second, cfg.DatabasePoolRetireGrace)
		assert.Equal(t, SecretsProviderMemory, cfg.SecretsProvider)
		assert.Equal(t, "http://search:9200", cfg.SearchURL)
		assert.Equal(t, 5*time.Minute, cfg.PresignedUploadExpiry)
		assert.Equal(t, int64(1000), cfg.MaxFileSizeBytes)
		assert.Equal(t, 2, cfg.SweepConcurrency)
		assert.True(t, cfg.RunMigrations)
		assert.Equal(t, CompletionSourceSQS, cfg.CompletionSource)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "debug"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, 15*time.Minute, cfg.PresignedUploadExpiry)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", DatabaseHost: "h", SweepConcurrency: 9}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "h", cfg.DatabaseHost)
		assert.Equal(t, 9, cfg.SweepConcurrency)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
