// Package storage stores uploaded files in a MinIO (S3 compatible) bucket.
package storage

import (
	"context"
	"fincra-wisdom/internal/config"
	"fincra-wisdom/pkg/log"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadResult identifies a stored object. PublicID is the handle used to delete it.
type UploadResult struct {
	URL      string
	PublicID string
}

// ObjectStore is a MinIO backed file store bound to one bucket.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinIO connects to MinIO and makes sure the configured bucket exists.
func NewMinIO(cfg config.MinIOConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.BucketName, err)
	}
	if !exists {
		log.Infof("bucket '%s' does not exist, creating it", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.BucketName, err)
		}
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.BucketName)
	}

	log.Info("MinIO client initialized")
	return &ObjectStore{client: client, bucket: cfg.BucketName, baseURL: baseURL}, nil
}

// Upload stores r under objectName. size may be -1 when unknown.
func (s *ObjectStore) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (*UploadResult, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectName, err)
	}
	return &UploadResult{
		URL:      s.baseURL + "/" + objectName,
		PublicID: objectName,
	}, nil
}

// Delete removes the object. Removing a missing object is not an error in MinIO.
func (s *ObjectStore) Delete(ctx context.Context, publicID string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", publicID, err)
	}
	return nil
}

// DownloadURL returns a presigned GET URL that forces the original file name.
func (s *ObjectStore) DownloadURL(ctx context.Context, publicID, fileName string, expiry time.Duration) (string, error) {
	params := url.Values{}
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, publicID, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", publicID, err)
	}
	return presigned.String(), nil
}
