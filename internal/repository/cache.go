package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/cache"

	goredis "github.com/redis/go-redis/v9"
)

const (
	_prefsKeyPrefix  = "prefs"
	_globalKeySuffix = "global"
)

// CacheRepository is the read-through preference cache: bounded TTL,
// invalidated on every preference write. Cache errors are reported to the
// caller but never block resolution; the store is authoritative.
type CacheRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewCacheRepository(rdb *goredis.Client, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb: rdb, ttl: ttl}
}

func (c *CacheRepository) key(userID, networkID string) string {
	if networkID == "" {
		return cache.Key(_prefsKeyPrefix, userID, _globalKeySuffix)
	}
	return cache.Key(_prefsKeyPrefix, userID, networkID)
}

// GetPreferences returns the cached record, entity.ErrDataNotFound on a
// cache miss.
func (c *CacheRepository) GetPreferences(ctx context.Context, userID, networkID string) (*entity.Preferences, error) {
	const op = "repository.CacheRepository.GetPreferences"

	data, err := c.rdb.Get(ctx, c.key(userID, networkID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
		}
		return nil, fmt.Errorf("%s: get: %w", op, err)
	}

	var p entity.Preferences
	if err := cache.Deserialize(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

func (c *CacheRepository) SetPreferences(ctx context.Context, p *entity.Preferences) error {
	const op = "repository.CacheRepository.SetPreferences"

	data, err := cache.Serialize(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.rdb.Set(ctx, c.key(p.UserID, p.NetworkID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: set: %w", op, err)
	}
	return nil
}

func (c *CacheRepository) InvalidatePreferences(ctx context.Context, userID, networkID string) error {
	const op = "repository.CacheRepository.InvalidatePreferences"

	if err := c.rdb.Del(ctx, c.key(userID, networkID)).Err(); err != nil {
		return fmt.Errorf("%s: del: %w", op, err)
	}
	return nil
}
