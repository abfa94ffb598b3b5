package storage

import (
	"fmt"

	"github.com/eduscale/backend-go/internal/config"
)

// New resolves the configured storage backend. Called once at startup; the
// returned instance is shared for the process lifetime so object-store
// clients are never rebuilt per request. An unrecognized backend name is a
// fatal configuration error, never silently defaulted.
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalBackend(cfg.LocalBaseDir), nil
	case "gcs":
		return NewGCSBackend(GCSConfig{
			Bucket:          cfg.GCSBucket,
			ProjectID:       cfg.GCPProjectID,
			CredentialsFile: cfg.GCSCredentialsFile,
		}), nil
	case "s3":
		return NewS3Backend(S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
