// Package storage gives each tenant a handle on its bucket, derived from
// shared S3 clients.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/docbox/internal/server/models"
)

// PresignedRequest is a signed HTTP request a client performs directly
// against storage.
type PresignedRequest struct {
	Method    string            `json:"method"`
	URI       string            `json:"uri"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Storage is the tenant-scoped object store.
type Storage interface {
	PresignPut(ctx context.Context, key string, size int64, mime string, expiry time.Duration) (*PresignedRequest, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (*PresignedRequest, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key, mime string, body []byte) error
	Delete(ctx context.Context, key string) error
}

type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Factory builds tenant handles. It holds no per-tenant state.
type Factory struct {
	client  s3API
	presign presignAPI
	now     func() time.Time
}

func NewFactory(client s3API, presign presignAPI) *Factory {
	return &Factory{client: client, presign: presign, now: time.Now}
}

// ForTenant returns the storage of t's bucket. It never fails; errors
// surface when the handle is used.
func (f *Factory) ForTenant(t *models.Tenant) *S3Storage {
	return &S3Storage{bucket: t.S3Name, client: f.client, presign: f.presign, now: f.now}
}

// S3Storage is a Storage over one bucket.
type S3Storage struct {
	bucket  string
	client  s3API
	presign presignAPI
	now     func() time.Time
}

func (s *S3Storage) Bucket() string { return s.bucket }

func toPresigned(req *v4.PresignedHTTPRequest, expiresAt time.Time) *PresignedRequest {
	headers := make(map[string]string, len(req.SignedHeader))
	for k := range req.SignedHeader {
		// Host is implied by the URI.
		if http.CanonicalHeaderKey(k) == "Host" {
			continue
		}
		headers[k] = req.SignedHeader.Get(k)
	}
	return &PresignedRequest{Method: req.Method, URI: req.URL, Headers: headers, ExpiresAt: expiresAt}
}

// PresignPut signs an upload bound to key, size and mime.
func (s *S3Storage) PresignPut(ctx context.Context, key string, size int64, mime string, expiry time.Duration) (*PresignedRequest, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(mime),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("presign put %q: %w", key, err)
	}
	return toPresigned(req, s.now().Add(expiry)), nil
}

// PresignGet signs a download of key.
func (s *S3Storage) PresignGet(ctx context.Context, key string, expiry time.Duration) (*PresignedRequest, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("presign get %q: %w", key, err)
	}
	return toPresigned(req, s.now().Add(expiry)), nil
}

// Get streams the object at key; the caller closes the body.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Storage) Put(ctx context.Context, key, mime string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(mime),
		ContentLength: aws.Int64(int64(len(body))),
		Body:          bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing object succeeds.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}
var _ Storage = (*S3Storage)(nil)
