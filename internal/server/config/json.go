package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docbox/internal/flagx"
	"github.com/dmitrijs2005/docbox/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted. Pointer
// fields distinguish "absent" from "false"/"0".
type JsonConfig struct {
	HTTPAddr string `json:"http_addr"`
	APIKey   string `json:"api_key"`
	LogLevel string `json:"log_level"`

	AWSRegion          string `json:"aws_region"`
	AWSEndpoint        string `json:"aws_endpoint"`
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	S3PathStyle        *bool  `json:"s3_path_style"`

	DatabaseHost            string         `json:"database_host"`
	DatabasePort            int            `json:"database_port"`
	DatabaseRootName        string         `json:"database_root_name"`
	DatabaseRootSecretName  string         `json:"database_root_secret_name"`
	DatabaseMaxConnections  int            `json:"database_max_connections"`
	DatabasePoolRetireGrace timex.Duration `json:"database_pool_retire_grace"`

	SecretsProvider       string `json:"secrets_provider"`
	SecretsMemoryUsername string `json:"secrets_memory_username"`
	SecretsMemoryPassword string `json:"secrets_memory_password"`

	SearchURL      string `json:"search_url"`
	SearchUsername string `json:"search_username"`
	SearchPassword string `json:"search_password"`

	PresignedUploadExpiry timex.Duration `json:"presigned_upload_expiry"`
	MaxFileSizeBytes      int64          `json:"max_file_size_bytes"`
	SweepConcurrency      int            `json:"sweep_concurrency"`
	RunMigrations         *bool          `json:"run_migrations"`
	CompletionSource      string         `json:"completion_source"`
}

// parseJson overlays values from the file named by -c / -config onto config.
// Fields missing from the file keep their current value. An unreadable or
// malformed file panics, as the process cannot start with it.
func parseJson(config *Config) {
	path := flagx.ConfigFile(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.APIKey, c.APIKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSEndpoint, c.AWSEndpoint)
	setString(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	if c.S3PathStyle != nil {
		config.S3PathStyle = *c.S3PathStyle
	}
	setString(&config.DatabaseHost, c.DatabaseHost)
	if c.DatabasePort != 0 {
		config.DatabasePort = c.DatabasePort
	}
	setString(&config.DatabaseRootName, c.DatabaseRootName)
	setString(&config.DatabaseRootSecretName, c.DatabaseRootSecretName)
	if c.DatabaseMaxConnections != 0 {
		config.DatabaseMaxConnections = c.DatabaseMaxConnections
	}
	if c.DatabasePoolRetireGrace.Duration != 0 {
		config.DatabasePoolRetireGrace = c.DatabasePoolRetireGrace.Duration
	}
	setString(&config.SecretsProvider, c.SecretsProvider)
	setString(&config.SecretsMemoryUsername, c.SecretsMemoryUsername)
	setString(&config.SecretsMemoryPassword, c.SecretsMemoryPassword)
	setString(&config.SearchURL, c.SearchURL)
	setString(&config.SearchUsername, c.SearchUsername)
	setString(&config.SearchPassword, c.SearchPassword)
	if c.PresignedUploadExpiry.Duration != 0 {
		config.PresignedUploadExpiry = c.PresignedUploadExpiry.Duration
	}
	if c.MaxFileSizeBytes != 0 {
		config.MaxFileSizeBytes = c.MaxFileSizeBytes
	}
	if c.SweepConcurrency != 0 {
		config.SweepConcurrency = c.SweepConcurrency
	}
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
	setString(&config.CompletionSource, c.CompletionSource)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
