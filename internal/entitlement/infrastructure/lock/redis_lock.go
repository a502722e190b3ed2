package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

const defaultLeaseTTL = 30 * time.Second

// releaseScript deletes the lease only when still held by this owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConsumerLock serializes per-consumer work across nodes with a Redis
// SET NX lease. The lease expires on its own if a node dies mid-pass; a
// regeneration pass taking longer than the TTL loses exclusivity, so the TTL
// should comfortably exceed the slowest expected pass.
type RedisConsumerLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisConsumerLock creates a lock backed by Redis.
func NewRedisConsumerLock(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisConsumerLock {
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisConsumerLock{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the consumer's lease. Returns ErrConcurrentModification when
// another node holds it.
func (l *RedisConsumerLock) Acquire(ctx context.Context, consumerID uuid.UUID) (func(), error) {
	key := leaseKey(consumerID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire consumer lease: %w", err)
	}
	if !ok {
		return nil, domain.ErrConcurrentModification
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Release on a fresh context; the caller's may be done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release consumer lease",
					"consumer_id", consumerID,
					"error", err)
			}
		})
	}
	return release, nil
}

func leaseKey(consumerID uuid.UUID) string {
	return "sigil:consumer-lock:" + consumerID.String()
}
