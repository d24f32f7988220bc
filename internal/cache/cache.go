// cache хранит в Redis отметки об отзыве сессий, чтобы access-токены
// отозванной сессии (claim sid) отклонялись раньше истечения своего exp.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RevocationCache — минимальный контракт кэша отзывов.
type RevocationCache interface {
	// MarkRevoked запоминает отзыв сессии sessionID на ttl.
	// Повторная отметка не перезаписывает момент первого отзыва.
	MarkRevoked(ctx context.Context, sessionID uuid.UUID, at time.Time, ttl time.Duration) error
	// RevokedAt возвращает момент отзыва сессии и признак наличия отметки.
	RevokedAt(ctx context.Context, sessionID uuid.UUID) (time.Time, bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rev:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (RevocationCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return newRedisCache(rdb, prefix), nil
}

func newRedisCache(rdb *redis.Client, prefix string) *redisCache {
	if prefix == "" {
		prefix = "auth:rev:"
	}

	return &redisCache{rdb: rdb, prefix: prefix}
}

func (c *redisCache) key(sessionID uuid.UUID) string {
	return c.prefix + sessionID.String()
}

func (c *redisCache) MarkRevoked(ctx context.Context, sessionID uuid.UUID, at time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	return c.rdb.SetNX(ctx, c.key(sessionID), at.UnixMilli(), ttl).Err()
}

func (c *redisCache) RevokedAt(ctx context.Context, sessionID uuid.UUID) (time.Time, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, err
	}

	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}

	return time.UnixMilli(ms).UTC(), true, nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
