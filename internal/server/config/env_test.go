package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func Test_parseEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"DOCBOX_HTTP_ADDR":                      ":9999",
		"AWS_REGION":                            "eu-west-1",
		"AWS_ENDPOINT_URL":                      "http://localstack:4566",
		"DOCBOX_S3_PATH_STYLE":                  "true",
		"DOCBOX_DB_PORT":                        "15432",
		"DOCBOX_DB_RETIRE_GRACE":                "10s",
		"DOCBOX_SECRET_MANAGER":                 "memory",
		"DOCBOX_SECRET_MANAGER_MEMORY_USERNAME": "u",
		"DOCBOX_SECRET_MANAGER_MEMORY_PASSWORD": "p",
		"DOCBOX_PRESIGNED_EXPIRY":               "2m",
		"DOCBOX_MAX_FILE_SIZE_BYTES":            "2048",
		"DOCBOX_SWEEP_CONCURRENCY":              "8",
		"DOCBOX_COMPLETION_SOURCE":              "sqs",
		"DOCBOX_LOG_LEVEL":                      "",
	})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NotPanics(t, func() { parseEnv(cfg) })

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "http://localstack:4566", cfg.AWSEndpoint)
	assert.True(t, cfg.S3PathStyle)
	assert.Equal(t, 15432, cfg.DatabasePort)
	assert.Equal(t, 10*time.Second, cfg.DatabasePoolRetireGrace)
	assert.Equal(t, SecretsProviderMemory, cfg.SecretsProvider)
	assert.Equal(t, "u", cfg.SecretsMemoryUsername)
	assert.Equal(t, "p", cfg.SecretsMemoryPassword)
	assert.Equal(t, 2*time.Minute, cfg.PresignedUploadExpiry)
	assert.Equal(t, int64(2048), cfg.MaxFileSizeBytes)
	assert.Equal(t, 8, cfg.SweepConcurrency)
	assert.Equal(t, CompletionSourceSQS, cfg.CompletionSource)
	assert.Equal(t, "info", cfg.LogLevel, "empty values are ignored")
}

func Test_parseEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port", env: map[string]string{"DOCBOX_DB_PORT": "abc"}},
		{name: "bool", env: map[string]string{"DOCBOX_RUN_MIGRATIONS": "maybe"}},
		{name: "duration", env: map[string]string{"DOCBOX_PRESIGNED_EXPIRY": "soon"}},
		{name: "size", env: map[string]string{"DOCBOX_MAX_FILE_SIZE_BYTES": "1e3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.env)
			require.Panics(t, func() { parseEnv(&Config{}) })
		})
	}
}
