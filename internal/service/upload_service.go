package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/eduscale/backend-go/internal/cache"
	"github.com/eduscale/backend-go/internal/domain"
	"github.com/eduscale/backend-go/internal/repository"
	"github.com/eduscale/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// UploadService ties the active storage backend to the upload catalog:
// bytes are streamed to the backend first, and the catalog entry is
// written only after the backend confirms the store.
type UploadService struct {
	backend storage.Backend
	catalog repository.UploadCatalog
	cache   cache.UploadRecordCache
}

func NewUploadService(backend storage.Backend, catalog repository.UploadCatalog, recordCache cache.UploadRecordCache) *UploadService {
	return &UploadService{
		backend: backend,
		catalog: catalog,
		cache:   recordCache,
	}
}

// BackendName returns the identifier of the active backend.
func (s *UploadService) BackendName() string {
	return s.backend.Name()
}

// TargetPath derives the storage location for an upload before any bytes
// are written, e.g. for a provisional database row.
func (s *UploadService) TargetPath(fileID, fileName string) (string, error) {
	return s.backend.GetTargetPath(fileID, fileName)
}

// Store streams data to the backend and catalogs the result. A storage
// failure surfaces unmodified and leaves no catalog entry.
func (s *UploadService) Store(ctx context.Context, fileID, regionID, fileName, contentType string, sizeBytes int64, data io.Reader) (*domain.UploadRecord, error) {
	storagePath, err := s.backend.StoreFile(ctx, fileID, fileName, contentType, sizeBytes, data)
	if err != nil {
		return nil, err
	}

	record := &domain.UploadRecord{
		FileID:         fileID,
		RegionID:       regionID,
		FileName:       fileName,
		ContentType:    contentType,
		SizeBytes:      sizeBytes,
		StorageBackend: s.backend.Name(),
		StoragePath:    storagePath,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.catalog.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("catalog upload %s: %w", fileID, err)
	}

	// Cache invalidation is best effort; a stale entry expires on its TTL.
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("failed to invalidate upload cache")
	}

	log.Info().
		Str("file_id", fileID).
		Str("region_id", regionID).
		Str("backend", record.StorageBackend).
		Int64("size_bytes", sizeBytes).
		Msg("upload completed")

	return record, nil
}

// Get fetches one upload record, consulting the cache first.
func (s *UploadService) Get(ctx context.Context, fileID string) (*domain.UploadRecord, error) {
	if record, ok, err := s.cache.GetRecord(ctx, fileID); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("upload cache read failed")
	} else if ok {
		return record, nil
	}

	record, err := s.catalog.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetRecord(ctx, record); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("upload cache write failed")
	}

	return record, nil
}

// List returns a snapshot of all upload records.
func (s *UploadService) List(ctx context.Context) ([]*domain.UploadRecord, error) {
	if records, ok, err := s.cache.GetList(ctx); err != nil {
		log.Warn().Err(err).Msg("upload cache read failed")
	} else if ok {
		return records, nil
	}

	records, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetList(ctx, records); err != nil {
		log.Warn().Err(err).Msg("upload cache write failed")
	}

	return records, nil
}
