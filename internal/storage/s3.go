package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/singleflight"
)

// s3StreamPartSize caps the multipart part buffer for uploads of unknown
// length.
const s3StreamPartSize = 16 * 1024 * 1024

// S3Config carries the settings for an S3-compatible backend
// (MinIO locally, any S3 provider in production).
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Backend streams uploads to an S3-compatible object store via minio-go.
// Client construction is deferred to first use and shared across
// concurrent first callers.
type S3Backend struct {
	cfg S3Config

	initGroup singleflight.Group
	mu        sync.RWMutex
	client    *minio.Client
}

// NewS3Backend creates an S3Backend without touching the network.
func NewS3Backend(cfg S3Config) *S3Backend {
	return &S3Backend{cfg: cfg}
}

// NewS3BackendWithClient creates an S3Backend on an already constructed
// client. Tests use it to point the backend at a fake server.
func NewS3BackendWithClient(client *minio.Client, cfg S3Config) *S3Backend {
	return &S3Backend{cfg: cfg, client: client}
}

func (b *S3Backend) Name() string {
	return "s3"
}

// GetTargetPath returns s3://<bucket>/raw/<fileID>/<safe name>. Requires a
// configured bucket even for the path-only call.
func (b *S3Backend) GetTargetPath(fileID, fileName string) (string, error) {
	if b.cfg.Bucket == "" {
		return "", ErrBucketNotConfigured
	}
	return fmt.Sprintf("s3://%s/%s", b.cfg.Bucket, b.objectKey(fileID, fileName)), nil
}

// StoreFile streams data into the bucket under the derived key. The
// declared size lets minio-go upload small objects in a single part;
// for streams of unknown length the multipart part size is capped so the
// part buffer stays bounded. minio-go owns any internal part retry.
func (b *S3Backend) StoreFile(ctx context.Context, fileID, fileName, contentType string, sizeBytes int64, data io.Reader) (string, error) {
	targetPath, err := b.GetTargetPath(fileID, fileName)
	if err != nil {
		return "", err
	}

	client, err := b.clientHandle()
	if err != nil {
		return "", err
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if sizeBytes < 0 {
		// Without a cap minio-go sizes the part buffer for the maximum
		// object size and allocates hundreds of MiB per upload.
		opts.PartSize = s3StreamPartSize
	}

	key := b.objectKey(fileID, fileName)
	if _, err := client.PutObject(ctx, b.cfg.Bucket, key, data, sizeBytes, opts); err != nil {
		return "", fmt.Errorf("%w: put object %s: %v", ErrStorageUnavailable, key, err)
	}

	return targetPath, nil
}

func (b *S3Backend) objectKey(fileID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", uploadNamespace, fileID, SanitizeFileName(fileName))
}

// clientHandle returns the cached minio client, constructing it at most
// once across concurrent callers.
func (b *S3Backend) clientHandle() (*minio.Client, error) {
	b.mu.RLock()
	client := b.client
	b.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	v, err, _ := b.initGroup.Do("init", func() (interface{}, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.client != nil {
			return b.client, nil
		}

		client, err := minio.New(b.cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(b.cfg.AccessKey, b.cfg.SecretKey, ""),
			Secure: b.cfg.UseSSL,
			Region: b.cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create s3 client: %v", ErrStorageUnavailable, err)
		}

		b.client = client
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*minio.Client), nil
}
