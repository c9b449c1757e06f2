package awsx

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	sc "github.com/dmitrijs2005/docbox/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLoadOptions(t *testing.T) *awsconfig.LoadOptions {
	t.Helper()
	var lo awsconfig.LoadOptions
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		return aws.Config{Region: lo.Region}, nil
	}
	return &lo
}

func TestLoadConfig_RegionOnly(t *testing.T) {
	lo := captureLoadOptions(t)

	cfg, err := LoadConfig(context.Background(), &sc.Config{AWSRegion: "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Nil(t, lo.Credentials)
}

func TestLoadConfig_StaticCredentials(t *testing.T) {
	lo := captureLoadOptions(t)

	_, err := LoadConfig(context.Background(), &sc.Config{
		AWSRegion: "us-east-1", AWSAccessKeyID: "minioadmin", AWSSecretAccessKey: "minioadmin",
	})
	require.NoError(t, err)
	require.NotNil(t, lo.Credentials)

	creds, err := lo.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", creds.AccessKeyID)
}

func TestNewClients_EndpointOverride(t *testing.T) {
	cfg := &sc.Config{AWSRegion: "us-east-1", AWSEndpoint: "http://localstack:4566", S3PathStyle: true}
	awsCfg := aws.Config{Region: "us-east-1"}

	s3c, presign := NewS3(awsCfg, cfg)
	require.NotNil(t, s3c)
	require.NotNil(t, presign)
	opts := s3c.Options()
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localstack:4566", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	sqsOpts := NewSQS(awsCfg, cfg).Options()
	require.NotNil(t, sqsOpts.BaseEndpoint)

	smOpts := NewSecretsManager(awsCfg, &sc.Config{}).Options()
	assert.Nil(t, smOpts.BaseEndpoint)
}
