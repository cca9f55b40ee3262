package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/redis/go-redis/v9"
)

// Remote is any file source the cache can wrap.
type Remote interface {
	ListFiles(ctx context.Context) ([]models.RemoteFile, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
}

const defaultCachePrefix = "hrsync:source:"

// CachedSource keeps listings and downloads in Redis for ttl so repeated
// triggers in a short window do not hit the remote server again. Redis
// failures fall through to the wrapped source.
type CachedSource struct {
	next   Remote
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedSource(next Remote, rdb redis.UniversalClient, ttl time.Duration, l *slog.Logger) *CachedSource {
	return &CachedSource{next: next, rdb: rdb, ttl: ttl, prefix: defaultCachePrefix, logger: l}
}

func (c *CachedSource) ListFiles(ctx context.Context) ([]models.RemoteFile, error) {
	key := c.prefix + "list"

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var files []models.RemoteFile
		if err := json.Unmarshal(raw, &files); err == nil {
			c.logger.Debug("Source listing served from cache", "count", len(files))
			return files, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Source cache read failed", "key", key, "error", err)
	}

	files, err := c.next.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(files); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("Source cache write failed", "key", key, "error", err)
		}
	}
	return files, nil
}

func (c *CachedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	key := c.prefix + "file:" + name

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		c.logger.Debug("Source file served from cache", "file", name, "bytes", len(data))
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Source cache read failed", "key", key, "error", err)
	}

	data, err = c.next.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Source cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// Invalidate drops every cached listing and file.
func (c *CachedSource) Invalidate(ctx context.Context) (int, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan source cache: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("purge source cache: %w", err)
	}
	c.logger.Info("Source cache invalidated", "keys", n)
	return int(n), nil
}
