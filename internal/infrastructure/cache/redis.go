package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// OpenRedis connects to the Redis backing idempotency keys, the gateway
// verification cache and the event channel. It fails unless the server
// answers a ping.
func OpenRedis(ctx context.Context, addr string, db int, log *zap.Logger) (*redis.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		log.Error("redis unreachable", zap.String("addr", addr), zap.Int("db", db), zap.Error(err))
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Info("redis connected", zap.String("addr", addr), zap.Int("db", db))
	return r, nil
}
