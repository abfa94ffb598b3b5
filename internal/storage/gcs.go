package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"
)

// gcsWriterChunkSize is the resumable-upload buffer handed to the GCS
// writer. 256 KiB is the smallest chunk the API accepts.
const gcsWriterChunkSize = 256 * 1024

// GCSConfig carries the settings for the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// GCSBackend streams uploads to a Google Cloud Storage bucket. The client
// and bucket handle are constructed on first use and cached; concurrent
// first calls share a single initialization.
type GCSBackend struct {
	cfg GCSConfig

	initGroup singleflight.Group
	mu        sync.RWMutex
	client    *gcs.Client
	bucket    *gcs.BucketHandle
}

// NewGCSBackend creates a GCSBackend. No client is constructed yet; a
// missing bucket name only surfaces when the backend is used.
func NewGCSBackend(cfg GCSConfig) *GCSBackend {
	return &GCSBackend{cfg: cfg}
}

func (b *GCSBackend) Name() string {
	return "gcs"
}

// GetTargetPath returns gs://<bucket>/raw/<fileID>/<safe name>. Requires a
// configured bucket even though no network call is made, so callers can
// fail fast before writing provisional rows.
func (b *GCSBackend) GetTargetPath(fileID, fileName string) (string, error) {
	if b.cfg.Bucket == "" {
		return "", ErrBucketNotConfigured
	}
	return fmt.Sprintf("gs://%s/%s", b.cfg.Bucket, b.objectKey(fileID, fileName)), nil
}

// StoreFile uploads data under the derived object key with the declared
// content type. Retries of a failed upload are the caller's concern; the
// GCS client owns any internal resumable-upload retry.
func (b *GCSBackend) StoreFile(ctx context.Context, fileID, fileName, contentType string, sizeBytes int64, data io.Reader) (string, error) {
	targetPath, err := b.GetTargetPath(fileID, fileName)
	if err != nil {
		return "", err
	}

	bucket, err := b.bucketHandle()
	if err != nil {
		return "", err
	}

	w := bucket.Object(b.objectKey(fileID, fileName)).NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = gcsWriterChunkSize

	buf := make([]byte, copyChunkSize)
	if _, err := io.CopyBuffer(w, data, buf); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: upload %s: %v", ErrStorageUnavailable, targetPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: finalize %s: %v", ErrStorageUnavailable, targetPath, err)
	}

	return targetPath, nil
}

// Close releases the cached client, if one was ever constructed.
func (b *GCSBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	b.bucket = nil
	return err
}

func (b *GCSBackend) objectKey(fileID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s", uploadNamespace, fileID, SanitizeFileName(fileName))
}

// bucketHandle returns the cached bucket handle, constructing the client at
// most once across concurrent callers. A failed initialization is not
// cached; the next call retries.
func (b *GCSBackend) bucketHandle() (*gcs.BucketHandle, error) {
	if b.cfg.Bucket == "" {
		return nil, ErrBucketNotConfigured
	}

	b.mu.RLock()
	bucket := b.bucket
	b.mu.RUnlock()
	if bucket != nil {
		return bucket, nil
	}

	v, err, _ := b.initGroup.Do("init", func() (interface{}, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.bucket != nil {
			return b.bucket, nil
		}

		// The client outlives any single request.
		ctx := context.Background()

		opts, err := b.clientOptions(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcs.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: create gcs client: %v", ErrStorageUnavailable, err)
		}

		b.client = client
		b.bucket = client.Bucket(b.cfg.Bucket)
		return b.bucket, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*gcs.BucketHandle), nil
}

// clientOptions resolves credentials: an explicit service-account file when
// configured, application default credentials otherwise.
func (b *GCSBackend) clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if b.cfg.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(b.cfg.ProjectID))
	}
	if b.cfg.CredentialsFile != "" {
		data, err := os.ReadFile(b.cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gcs.ScopeReadWrite)
		if err != nil {
			return nil, fmt.Errorf("parse gcs credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	return opts, nil
}
