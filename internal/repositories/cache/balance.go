package cache

import (
	"context"

	"custody/internal/domain/ledger"
	keys "custody/internal/utils/cache"
)

// BalanceCache is a read-through cache of account balances. It doubles as an
// event publisher: every committed event evicts the balance of the account it
// touched.
type BalanceCache struct {
	cache *CacheService
}

func NewBalanceCache(cache *CacheService) *BalanceCache {
	return &BalanceCache{cache: cache}
}

func (c *BalanceCache) GetBalance(ctx context.Context, account ledger.Address) (ledger.Amount, bool, error) {
	var amount uint64
	found, err := c.cache.Get(ctx, keys.BalanceKey(string(account)), &amount)
	if err != nil || !found {
		return 0, false, err
	}
	return ledger.Amount(amount), true, nil
}

func (c *BalanceCache) SetBalance(ctx context.Context, account ledger.Address, amount ledger.Amount) error {
	return c.cache.Set(ctx, keys.BalanceKey(string(account)), uint64(amount))
}

func (c *BalanceCache) Publish(ctx context.Context, events []ledger.Event) error {
	seen := make(map[ledger.Address]bool)
	var stale []string
	for _, e := range events {
		if e.Account == "" || seen[e.Account] {
			continue
		}
		seen[e.Account] = true
		stale = append(stale, keys.BalanceKey(string(e.Account)))
	}
	return c.cache.Delete(ctx, stale...)
}
