package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
)

type stubAPI struct {
	bucketExists bool
	madeBucket   string

	putBucket, putKey, putContentType string
	putSize                           int64
	putBody                           []byte

	removedKey string
	presignKey string
	presignExp time.Duration
}

func (s *stubAPI) BucketExists(context.Context, string) (bool, error) { return s.bucketExists, nil }

func (s *stubAPI) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	s.madeBucket = bucket
	return nil
}

func (s *stubAPI) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	s.putBucket, s.putKey, s.putSize = bucket, key, size
	s.putContentType = opts.ContentType
	s.putBody, _ = io.ReadAll(r)
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (s *stubAPI) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, nil
}

func (s *stubAPI) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	s.removedKey = key
	return nil
}

func (s *stubAPI) PresignedGetObject(_ context.Context, bucket, key string, expiry time.Duration, _ url.Values) (*url.URL, error) {
	s.presignKey = key
	s.presignExp = expiry
	return url.Parse("https://minio.local/" + bucket + "/" + key)
}

func newTestStore(api objectAPI) *DocumentStore {
	return &DocumentStore{
		api:           api,
		bucket:        "clauselens-documents",
		presignExpiry: time.Hour,
		log:           logging.NewNopLogger(),
	}
}

func TestEnsureBucket_CreatesOnlyWhenMissing(t *testing.T) {
	api := &stubAPI{bucketExists: true}
	require.NoError(t, newTestStore(api).ensureBucket(context.Background()))
	assert.Empty(t, api.madeBucket)

	api = &stubAPI{}
	require.NoError(t, newTestStore(api).ensureBucket(context.Background()))
	assert.Equal(t, "clauselens-documents", api.madeBucket)
}

func TestPut_DefaultsContentType(t *testing.T) {
	api := &stubAPI{}
	s := newTestStore(api)

	body := []byte("%PDF-1.7 contract body")
	err := s.Put(context.Background(), "contracts/abc/msa.pdf", bytes.NewReader(body), int64(len(body)), "")
	require.NoError(t, err)

	assert.Equal(t, "clauselens-documents", api.putBucket)
	assert.Equal(t, "contracts/abc/msa.pdf", api.putKey)
	assert.Equal(t, "application/octet-stream", api.putContentType)
	assert.Equal(t, body, api.putBody)
}

func TestDelete(t *testing.T) {
	api := &stubAPI{}
	require.NoError(t, newTestStore(api).Delete(context.Background(), "contracts/abc/msa.pdf"))
	assert.Equal(t, "contracts/abc/msa.pdf", api.removedKey)
}

func TestPresignedURL_UsesConfiguredExpiryWhenZero(t *testing.T) {
	api := &stubAPI{}
	s := newTestStore(api)

	u, err := s.PresignedURL(context.Background(), "contracts/abc/msa.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/clauselens-documents/contracts/abc/msa.pdf", u)
	assert.Equal(t, time.Hour, api.presignExp)

	_, err = s.PresignedURL(context.Background(), "contracts/abc/msa.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, api.presignExp)
}
