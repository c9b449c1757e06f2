// Package awsx builds the shared AWS clients (S3, SQS, Secrets Manager)
// from the process configuration. Clients are created once per process and
// shared by every tenant.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sc "github.com/dmitrijs2005/docbox/internal/server/config"
)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// LoadConfig resolves the AWS configuration for cfg.AWSRegion. Static keys
// replace the default credential chain when both are configured.
func LoadConfig(ctx context.Context, cfg *sc.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}
	return loadDefaultAWSConfig(ctx, opts...)
}

func endpoint(cfg *sc.Config) *string {
	if cfg.AWSEndpoint == "" {
		return nil
	}
	return aws.String(cfg.AWSEndpoint)
}

// NewS3 returns the S3 client and its presign client.
func NewS3(awsCfg aws.Config, cfg *sc.Config) (*s3.Client, *s3.PresignClient) {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = endpoint(cfg)
		o.UsePathStyle = cfg.S3PathStyle
	})
	return client, s3.NewPresignClient(client)
}

// NewSQS returns the SQS client used by the event publishers.
func NewSQS(awsCfg aws.Config, cfg *sc.Config) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = endpoint(cfg)
	})
}

// NewSecretsManager returns the Secrets Manager client.
func NewSecretsManager(awsCfg aws.Config, cfg *sc.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		o.BaseEndpoint = endpoint(cfg)
	})
}
