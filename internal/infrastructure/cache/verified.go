package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// VerifiedCache remembers addresses whose identity has been confirmed.
// Only positive answers are stored; a miss means "ask the database".
type VerifiedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewVerifiedCache(rdb *redis.Client, ttl time.Duration) *VerifiedCache {
	return &VerifiedCache{rdb: rdb, ttl: ttl}
}

func verifiedKey(addr common.Address) string { return "gateway:verified:" + addr.Hex() }

// IsVerified reports a cached positive answer. ok is false on a miss.
func (c *VerifiedCache) IsVerified(ctx context.Context, addr common.Address) (ok bool, err error) {
	err = c.rdb.Get(ctx, verifiedKey(addr)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (c *VerifiedCache) MarkVerified(ctx context.Context, addr common.Address) error {
	return c.rdb.Set(ctx, verifiedKey(addr), "1", c.ttl).Err()
}

func (c *VerifiedCache) Forget(ctx context.Context, addr common.Address) error {
	return c.rdb.Del(ctx, verifiedKey(addr)).Err()
}
