package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalBackend stores uploads under a base directory fixed at construction,
// one subdirectory per file ID.
type LocalBackend struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalBackend creates a LocalBackend writing to the OS filesystem.
func NewLocalBackend(baseDir string) *LocalBackend {
	return NewLocalBackendWithFs(afero.NewOsFs(), baseDir)
}

// NewLocalBackendWithFs creates a LocalBackend on the given filesystem.
// Tests use an in-memory afero.Fs.
func NewLocalBackendWithFs(fs afero.Fs, baseDir string) *LocalBackend {
	return &LocalBackend{fs: fs, baseDir: baseDir}
}

func (b *LocalBackend) Name() string {
	return "local"
}

// GetTargetPath returns <baseDir>/<fileID>/<safe name>. No I/O.
func (b *LocalBackend) GetTargetPath(fileID, fileName string) (string, error) {
	return filepath.Join(b.baseDir, fileID, SanitizeFileName(fileName)), nil
}

// StoreFile copies data to the target path in 64 KiB chunks. The file is
// opened with O_EXCL so a concurrent duplicate write fails instead of
// interleaving. Partial files from a failed copy are left in place for
// diagnosis; cleanup policy belongs to the caller, which has not yet
// cataloged the upload.
func (b *LocalBackend) StoreFile(ctx context.Context, fileID, fileName, contentType string, sizeBytes int64, data io.Reader) (string, error) {
	targetPath, err := b.GetTargetPath(fileID, fileName)
	if err != nil {
		return "", err
	}

	if err := b.fs.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	f, err := b.fs.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", targetPath, err)
	}
	defer f.Close()

	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := data.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return "", fmt.Errorf("write %s: %w", targetPath, writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read upload stream: %w", readErr)
		}
	}

	return targetPath, nil
}
