// Package minio persists original contract documents in S3-compatible
// object storage.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// objectAPI abstracts the minio client for testing.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// DocumentStore implements contract.DocumentStore on a single MinIO bucket.
type DocumentStore struct {
	api           objectAPI
	bucket        string
	presignExpiry time.Duration
	log           logging.Logger
}

var _ contract.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore connects to MinIO and ensures the configured bucket
// exists.
func NewDocumentStore(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*DocumentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "create minio client")
	}

	s := &DocumentStore{
		api:           client,
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
		log:           log,
	}
	if s.presignExpiry <= 0 {
		s.presignExpiry = time.Hour
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("minio document store ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return s, nil
}

func (s *DocumentStore) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "check bucket")
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "create bucket")
	}
	s.log.Info("created bucket", logging.String("bucket", s.bucket))
	return nil
}

// Put stores an object under key.
func (s *DocumentStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.api.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "put object")
	}
	return nil
}

// Get opens the object stored under key.  The caller closes the reader.
func (s *DocumentStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "get object")
	}
	// GetObject is lazy; Stat surfaces missing keys before the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, errors.NotFound("document not found: " + key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "stat object")
	}
	return obj, nil
}

// Delete removes the object stored under key.  Deleting a missing key is not
// an error.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "remove object")
	}
	return nil
}

// PresignedURL returns a time-limited download URL for key.
func (s *DocumentStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = s.presignExpiry
	}
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeObjectStoreFailed, "presign object url")
	}
	return u.String(), nil
}
