package domain

import "time"

// UploadRecord is the catalog entry for one stored upload. A record is
// created exactly once, after the backend confirms the write, and is never
// mutated afterwards.
type UploadRecord struct {
	FileID         string    `json:"file_id" db:"file_id"`
	RegionID       string    `json:"region_id" db:"region_id"`
	FileName       string    `json:"file_name" db:"file_name"`
	ContentType    string    `json:"content_type" db:"content_type"`
	SizeBytes      int64     `json:"size_bytes" db:"size_bytes"`
	StorageBackend string    `json:"storage_backend" db:"storage_backend"`
	StoragePath    string    `json:"storage_path" db:"storage_path"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
