// Package secrets supplies database credentials by secret name, from AWS
// Secrets Manager or from memory for local development.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	sc "github.com/dmitrijs2005/docbox/internal/server/config"
)

// ErrEmptySecret is returned for a secret without a string value.
var ErrEmptySecret = errors.New("secret has no string value")

// Credentials is the JSON document stored in each database secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Source resolves a secret name to credentials.
type Source interface {
	Credentials(ctx context.Context, name string) (*Credentials, error)
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSource reads credentials from AWS Secrets Manager.
type AWSSource struct {
	client secretsAPI
}

func NewAWSSource(client secretsAPI) *AWSSource {
	return &AWSSource{client: client}
}

func (s *AWSSource) Credentials(ctx context.Context, name string) (*Credentials, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("get secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q: %w", name, ErrEmptySecret)
	}

	var c Credentials
	if err := json.Unmarshal([]byte(*out.SecretString), &c); err != nil {
		return nil, fmt.Errorf("decode secret %q: %w", name, err)
	}
	return &c, nil
}

// MemorySource returns fixed credentials for every secret name.
type MemorySource struct {
	creds Credentials
}

func NewMemorySource(username, password string) *MemorySource {
	return &MemorySource{creds: Credentials{Username: username, Password: password}}
}

func (s *MemorySource) Credentials(_ context.Context, _ string) (*Credentials, error) {
	c := s.creds
	return &c, nil
}

// New returns the Source selected by cfg.SecretsProvider. client is only
// used by the aws provider.
func New(cfg *sc.Config, client secretsAPI) (Source, error) {
	switch cfg.SecretsProvider {
	case sc.SecretsProviderAWS:
		return NewAWSSource(client), nil
	case sc.SecretsProviderMemory:
		return NewMemorySource(cfg.SecretsMemoryUsername, cfg.SecretsMemoryPassword), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.SecretsProvider)
	}
}
