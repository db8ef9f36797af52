package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const balanceTTL = 5 * time.Minute

// BalanceCache is a read-through cache of wallet balances keyed by owner.
// It is advisory only; the database stays authoritative and entries for
// both parties are dropped after every committed transfer.
type BalanceCache struct {
	rdb *redis.Client
}

func NewBalanceCache(rdb *redis.Client) *BalanceCache {
	return &BalanceCache{rdb: rdb}
}

func balanceKey(ownerID string) string { return fmt.Sprintf("balance:%s", ownerID) }

func (c *BalanceCache) Set(ctx context.Context, ownerID string, bal decimal.Decimal) error {
	return c.rdb.Set(ctx, balanceKey(ownerID), bal.String(), balanceTTL).Err()
}

func (c *BalanceCache) Get(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	str, err := c.rdb.Get(ctx, balanceKey(ownerID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}

// Invalidate drops cached balances for the given owners.
func (c *BalanceCache) Invalidate(ctx context.Context, ownerIDs ...string) error {
	keys := make([]string, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		keys = append(keys, balanceKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
