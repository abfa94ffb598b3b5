package repository

import (
	"context"
	"errors"

	"github.com/eduscale/backend-go/internal/domain"
)

// ErrUploadNotFound is returned by Get for an unknown file ID.
var ErrUploadNotFound = errors.New("upload not found")

// UploadCatalog maps a file ID to its stored-location metadata.
//
// Create overwrites silently when the same file ID is written twice; IDs
// are generated fresh per upload attempt upstream, so a duplicate only
// occurs when a caller breaks that contract. ListAll returns a snapshot:
// later writes never mutate an already-returned slice.
type UploadCatalog interface {
	Create(ctx context.Context, record *domain.UploadRecord) error
	Get(ctx context.Context, fileID string) (*domain.UploadRecord, error)
	ListAll(ctx context.Context) ([]*domain.UploadRecord, error)
}
