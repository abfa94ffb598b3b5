// Package storage implements the upload storage backends. A Backend is
// selected once at startup from configuration and shared for the process
// lifetime; swap implementations by changing the concrete type injected
// in main.
package storage

import (
	"context"
	"errors"
	"io"
)

const (
	// uploadNamespace prefixes every object key so raw uploads stay
	// separate from derived artifacts in the same bucket.
	uploadNamespace = "raw"

	// copyChunkSize bounds the per-upload copy buffer. Streams are never
	// materialized in full.
	copyChunkSize = 64 * 1024
)

var (
	// ErrUnknownBackend is returned by New for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrBucketNotConfigured is returned by object backends when no bucket
	// name is configured. Raised for path derivation too, before any
	// network call.
	ErrBucketNotConfigured = errors.New("storage bucket not configured")

	// ErrStorageUnavailable wraps connectivity and auth failures against a
	// remote backend. Safe to retry at a higher layer; this package never
	// retries internally.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)

// Backend is the capability contract every storage target implements.
type Backend interface {
	// GetTargetPath derives the final storage location for the pair
	// (fileID, fileName) without performing any I/O. Deterministic: the
	// same inputs always yield the same path, and a subsequent StoreFile
	// with the same inputs returns the identical path.
	GetTargetPath(fileID, fileName string) (string, error)

	// StoreFile streams data to the target location in bounded chunks and
	// returns the final storage path. sizeBytes is the declared stream
	// length, or -1 when unknown; implementations must keep memory bounded
	// either way. On failure no cleanup is attempted; the caller must not
	// catalog the upload.
	StoreFile(ctx context.Context, fileID, fileName, contentType string, sizeBytes int64, data io.Reader) (string, error)

	// Name returns the stable backend identifier recorded in the catalog.
	Name() string
}
