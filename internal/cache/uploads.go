// Package cache provides an optional redis read cache in front of the
// upload catalog. When caching is disabled a noop implementation is
// injected instead, so callers never branch on configuration.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eduscale/backend-go/internal/config"
	"github.com/eduscale/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	uploadRecordKeyPrefix = "uploads:record:"
	uploadListKey         = "uploads:list"
	scanBatchSize         = 100
)

type UploadRecordCache interface {
	GetRecord(ctx context.Context, fileID string) (*domain.UploadRecord, bool, error)
	SetRecord(ctx context.Context, record *domain.UploadRecord) error
	GetList(ctx context.Context) ([]*domain.UploadRecord, bool, error)
	SetList(ctx context.Context, records []*domain.UploadRecord) error
	Invalidate(ctx context.Context) error
}

type redisUploadCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopUploadCache struct{}

func NewUploadCache(cfg config.CacheConfig) (UploadRecordCache, error) {
	if !cfg.Enabled {
		return &noopUploadCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisUploadCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopUploadCache() UploadRecordCache {
	return &noopUploadCache{}
}

func (c *redisUploadCache) GetRecord(ctx context.Context, fileID string) (*domain.UploadRecord, bool, error) {
	payload, err := c.client.Get(ctx, uploadRecordKeyPrefix+fileID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var record domain.UploadRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, false, fmt.Errorf("decode upload record cache: %w", err)
	}

	return &record, true, nil
}

func (c *redisUploadCache) SetRecord(ctx context.Context, record *domain.UploadRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode upload record cache: %w", err)
	}

	if err := c.client.Set(ctx, uploadRecordKeyPrefix+record.FileID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisUploadCache) GetList(ctx context.Context) ([]*domain.UploadRecord, bool, error) {
	payload, err := c.client.Get(ctx, uploadListKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var records []*domain.UploadRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode upload list cache: %w", err)
	}

	return records, true, nil
}

func (c *redisUploadCache) SetList(ctx context.Context, records []*domain.UploadRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode upload list cache: %w", err)
	}

	if err := c.client.Set(ctx, uploadListKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Invalidate drops the cached list and every cached record. Called after a
// successful catalog write.
func (c *redisUploadCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, uploadListKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return deleteKeysWithPrefix(ctx, c.client, uploadRecordKeyPrefix, scanBatchSize)
}

func (c *noopUploadCache) GetRecord(ctx context.Context, fileID string) (*domain.UploadRecord, bool, error) {
	return nil, false, nil
}

func (c *noopUploadCache) SetRecord(ctx context.Context, record *domain.UploadRecord) error {
	return nil
}

func (c *noopUploadCache) GetList(ctx context.Context) ([]*domain.UploadRecord, bool, error) {
	return nil, false, nil
}

func (c *noopUploadCache) SetList(ctx context.Context, records []*domain.UploadRecord) error {
	return nil
}

func (c *noopUploadCache) Invalidate(ctx context.Context) error {
	return nil
}
