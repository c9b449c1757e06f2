// Package config handles configuration for the docbox processes (HTTP API,
// upload completion, presigned cleanup, migrate), including defaults, JSON
// overlay, environment variables and command-line flags.
package config

import "time"

// Secret providers understood by the secrets package.
const (
	SecretsProviderAWS    = "aws"
	SecretsProviderMemory = "memory"
)

// Notification sources the upload-completion lambda can be subscribed to.
const (
	CompletionSourceS3  = "s3"
	CompletionSourceSQS = "sqs"
)

// Config holds runtime settings shared by every docbox entry point.
//
// Fields:
//   - HTTPAddr / APIKey: bind address of the HTTP API and the optional
//     x-docbox-api-key value requests must carry.
//   - AWSRegion / AWSEndpoint / S3PathStyle: AWS client settings. A non-empty
//     endpoint targets LocalStack or MinIO and usually wants path style.
//     Static keys, when both set, replace the default credential chain.
//   - Database*: server holding the root and tenant databases, the secret
//     with root credentials, pool sizing, and how long a flushed pool stays
//     open for in-flight users.
//   - SecretsProvider (+ memory credentials): where database credentials
//     come from.
//   - Search*: OpenSearch cluster used for tenant indexes.
//   - PresignedUploadExpiry / MaxFileSizeBytes: upload grant lifetime and
//     largest accepted upload.
//   - SweepConcurrency: tenants purged in parallel by the cleanup sweep.
//   - CompletionSource: whether upload-completion receives S3 events
//     directly or wrapped in SQS messages.
type Config struct {
	HTTPAddr string
	APIKey   string
	LogLevel string

	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3PathStyle        bool

	DatabaseHost            string
	DatabasePort            int
	DatabaseRootName        string
	DatabaseRootSecretName  string
	DatabaseMaxConnections  int
	DatabasePoolRetireGrace time.Duration

	SecretsProvider       string
	SecretsMemoryUsername string
	SecretsMemoryPassword string

	SearchURL      string
	SearchUsername string
	SearchPassword string

	PresignedUploadExpiry time.Duration
	MaxFileSizeBytes      int64
	SweepConcurrency      int
	RunMigrations         bool
	CompletionSource      string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the memory secret credentials are for local use only.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.LogLevel = "info"
	c.AWSRegion = "us-east-1"
	c.DatabaseHost = "localhost"
	c.DatabasePort = 5432
	c.DatabaseRootName = "docbox"
	c.DatabaseRootSecretName = "postgres/docbox/config"
	c.DatabaseMaxConnections = 10
	c.DatabasePoolRetireGrace = time.Minute
	c.SecretsProvider = SecretsProviderAWS
	c.SecretsMemoryUsername = "postgres"
	c.SecretsMemoryPassword = "postgres"
	c.SearchURL = "http://localhost:9200"
	c.PresignedUploadExpiry = 15 * time.Minute
	c.MaxFileSizeBytes = 100 * 1000 * 1024
	c.SweepConcurrency = 4
	c.CompletionSource = CompletionSourceS3
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
