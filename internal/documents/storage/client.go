// Package storage stores intervention documents in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is how long a download link stays valid.
const PresignedURLTTL = 15 * time.Minute

// PresignedURL is a time-limited link to one object.
type PresignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}

// MinIO stores objects in a MinIO (or any S3-compatible) server.
type MinIO struct {
	client *minio.Client
}

// NewMinIO creates a MinIO client. It does not contact the server.
func NewMinIO(cfg Config) (*MinIO, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinIO{client: client}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinIO) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// Put uploads size bytes from r under key.
func (s *MinIO) Put(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a download link that saves the object as fileName.
func (s *MinIO) PresignGet(ctx context.Context, bucket, key, fileName string) (PresignedURL, error) {
	params := make(url.Values)
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	expiresAt := time.Now().Add(PresignedURLTTL)
	u, err := s.client.PresignedGetObject(ctx, bucket, key, PresignedURLTTL, params)
	if err != nil {
		return PresignedURL{}, fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return PresignedURL{URL: u.String(), ExpiresAt: expiresAt}, nil
}

// Remove deletes an object.
func (s *MinIO) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
