package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eduscale/backend-go/internal/domain"
	"github.com/eduscale/backend-go/internal/repository"
)

const uploadsSchema = `
	CREATE TABLE IF NOT EXISTS uploads (
		file_id         TEXT PRIMARY KEY,
		region_id       TEXT NOT NULL,
		file_name       TEXT NOT NULL,
		content_type    TEXT NOT NULL,
		size_bytes      BIGINT NOT NULL,
		storage_backend TEXT NOT NULL,
		storage_path    TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)
`

type uploadCatalog struct {
	db *DB
}

// NewUploadCatalog creates the durable catalog variant, ensuring the
// uploads table exists.
func NewUploadCatalog(ctx context.Context, db *DB) (repository.UploadCatalog, error) {
	if _, err := db.ExecContext(ctx, uploadsSchema); err != nil {
		return nil, fmt.Errorf("ensure uploads table: %w", err)
	}
	return &uploadCatalog{db: db}, nil
}

// Create upserts the record, matching the in-memory catalog's
// overwrite-on-duplicate policy.
func (c *uploadCatalog) Create(ctx context.Context, record *domain.UploadRecord) error {
	return c.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO uploads (
				file_id, region_id, file_name, content_type,
				size_bytes, storage_backend, storage_path, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (file_id)
			DO UPDATE SET
				region_id = EXCLUDED.region_id,
				file_name = EXCLUDED.file_name,
				content_type = EXCLUDED.content_type,
				size_bytes = EXCLUDED.size_bytes,
				storage_backend = EXCLUDED.storage_backend,
				storage_path = EXCLUDED.storage_path,
				created_at = EXCLUDED.created_at
		`
		if _, err := tx.ExecContext(
			ctx,
			query,
			record.FileID,
			record.RegionID,
			record.FileName,
			record.ContentType,
			record.SizeBytes,
			record.StorageBackend,
			record.StoragePath,
			record.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert upload record: %w", err)
		}
		return nil
	})
}

func (c *uploadCatalog) Get(ctx context.Context, fileID string) (*domain.UploadRecord, error) {
	var record domain.UploadRecord
	query := `SELECT * FROM uploads WHERE file_id = $1`
	if err := c.db.GetContext(ctx, &record, query, fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to fetch upload record: %w", err)
	}
	return &record, nil
}

func (c *uploadCatalog) ListAll(ctx context.Context) ([]*domain.UploadRecord, error) {
	records := make([]*domain.UploadRecord, 0)
	query := `SELECT * FROM uploads ORDER BY created_at DESC`
	if err := c.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list upload records: %w", err)
	}
	return records, nil
}
