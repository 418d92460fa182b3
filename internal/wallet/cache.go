package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kobo-pay/kobo_pay/internal/money"
)

const balanceKeyPrefix = "wallet:balance:"

// BalanceCache is a read-through Redis cache for wallet balances. It is
// advisory only: every miss or Redis error falls through to the store, and
// mutations invalidate the key after commit. A read that loads the store and
// repopulates the key concurrently with a mutation's Invalidate can cache the
// pre-mutation balance for up to one TTL, so the TTL bounds the staleness
// window and the store stays the source of truth. Repopulation uses SetNX so
// a slow reader cannot clobber a value a faster reader already cached.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBalanceCache builds a balance cache with the given entry TTL.
func NewBalanceCache(rdb *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BalanceCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached balance and whether the lookup hit.
func (c *BalanceCache) Get(ctx context.Context, userID int64) (money.Amount, bool) {
	val, err := c.rdb.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		return money.Amount{}, false
	}
	amount, err := money.Parse(val)
	if err != nil {
		return money.Amount{}, false
	}
	return amount, true
}

// Set repopulates the balance if no fresher value is already cached, failing
// open on Redis errors.
func (c *BalanceCache) Set(ctx context.Context, userID int64, amount money.Amount) {
	_ = c.rdb.SetNX(ctx, balanceKey(userID), amount.String(), c.ttl).Err()
}

// Invalidate drops the cached balance after a committed mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, userID int64) {
	_ = c.rdb.Del(ctx, balanceKey(userID)).Err()
}

func balanceKey(userID int64) string {
	return fmt.Sprintf("%s%d", balanceKeyPrefix, userID)
}
