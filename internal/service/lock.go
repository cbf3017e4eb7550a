package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker takes short-lived per-key locks shared by all server instances
type RedisLocker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(client *redis.Client, prefix string, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// TryLock sets key with NX and a TTL. It returns nil without error when another
// holder owns the key.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := fmt.Sprintf("%s:%s", l.prefix, key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, nil
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}

// NoopLocker always grants the lock. Used when Redis is not configured.
type NoopLocker struct{}

// TryLock implements Locker
func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
