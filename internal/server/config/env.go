package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// parseEnv overlays DOCBOX_* (and the standard AWS_*) environment variables.
// Lambdas are configured this way since they get no command line. Malformed
// numeric or boolean values panic.
func parseEnv(config *Config) {
	envString(&config.HTTPAddr, "DOCBOX_HTTP_ADDR")
	envString(&config.APIKey, "DOCBOX_API_KEY")
	envString(&config.LogLevel, "DOCBOX_LOG_LEVEL")
	envString(&config.AWSRegion, "AWS_REGION")
	envString(&config.AWSEndpoint, "AWS_ENDPOINT_URL")
	envString(&config.AWSAccessKeyID, "DOCBOX_AWS_ACCESS_KEY_ID")
	envString(&config.AWSSecretAccessKey, "DOCBOX_AWS_SECRET_ACCESS_KEY")
	envBool(&config.S3PathStyle, "DOCBOX_S3_PATH_STYLE")

	envString(&config.DatabaseHost, "DOCBOX_DB_HOST")
	envInt(&config.DatabasePort, "DOCBOX_DB_PORT")
	envString(&config.DatabaseRootName, "DOCBOX_DB_ROOT_NAME")
	envString(&config.DatabaseRootSecretName, "DOCBOX_DB_ROOT_SECRET_NAME")
	envInt(&config.DatabaseMaxConnections, "DOCBOX_DB_MAX_CONNECTIONS")
	envDuration(&config.DatabasePoolRetireGrace, "DOCBOX_DB_RETIRE_GRACE")

	envString(&config.SecretsProvider, "DOCBOX_SECRET_MANAGER")
	envString(&config.SecretsMemoryUsername, "DOCBOX_SECRET_MANAGER_MEMORY_USERNAME")
	envString(&config.SecretsMemoryPassword, "DOCBOX_SECRET_MANAGER_MEMORY_PASSWORD")

	envString(&config.SearchURL, "DOCBOX_OPENSEARCH_URL")
	envString(&config.SearchUsername, "DOCBOX_OPENSEARCH_USERNAME")
	envString(&config.SearchPassword, "DOCBOX_OPENSEARCH_PASSWORD")

	envDuration(&config.PresignedUploadExpiry, "DOCBOX_PRESIGNED_EXPIRY")
	if v, ok := lookup("DOCBOX_MAX_FILE_SIZE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(fmt.Errorf("invalid env DOCBOX_MAX_FILE_SIZE_BYTES: %w", err))
		}
		config.MaxFileSizeBytes = n
	}
	envInt(&config.SweepConcurrency, "DOCBOX_SWEEP_CONCURRENCY")
	envBool(&config.RunMigrations, "DOCBOX_RUN_MIGRATIONS")
	envString(&config.CompletionSource, "DOCBOX_COMPLETION_SOURCE")
}

// lookup returns a non-empty variable.
func lookup(k string) (string, bool) {
	v, ok := lookupEnv(k)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(dst *string, k string) {
	if v, ok := lookup(k); ok {
		*dst = v
	}
}

func envInt(dst *int, k string) {
	if v, ok := lookup(k); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("invalid env %s: %w", k, err))
		}
		*dst = n
	}
}

func envBool(dst *bool, k string) {
	if v, ok := lookup(k); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("invalid env %s: %w", k, err))
		}
		*dst = b
	}
}

func envDuration(dst *time.Duration, k string) {
	if v, ok := lookup(k); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("invalid env %s: %w", k, err))
		}
		*dst = d
	}
}
