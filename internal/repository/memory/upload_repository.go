// Package memory holds the in-memory upload catalog. Records live for the
// process lifetime only; restarts lose the catalog while stored files
// remain on the backend.
package memory

import (
	"context"
	"sync"

	"github.com/eduscale/backend-go/internal/domain"
	"github.com/eduscale/backend-go/internal/repository"
)

type uploadCatalog struct {
	mu      sync.RWMutex
	uploads map[string]domain.UploadRecord
}

// NewUploadCatalog creates an empty in-memory catalog.
func NewUploadCatalog() repository.UploadCatalog {
	return &uploadCatalog{uploads: make(map[string]domain.UploadRecord)}
}

func (c *uploadCatalog) Create(ctx context.Context, record *domain.UploadRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Stored by value so later caller mutations don't leak into the catalog.
	c.uploads[record.FileID] = *record
	return nil
}

func (c *uploadCatalog) Get(ctx context.Context, fileID string) (*domain.UploadRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.uploads[fileID]
	if !ok {
		return nil, repository.ErrUploadNotFound
	}
	return &record, nil
}

func (c *uploadCatalog) ListAll(ctx context.Context) ([]*domain.UploadRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records := make([]*domain.UploadRecord, 0, len(c.uploads))
	for _, record := range c.uploads {
		r := record
		records = append(records, &r)
	}
	return records, nil
}
