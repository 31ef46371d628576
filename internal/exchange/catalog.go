package exchange

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCatalogTTL is how long a fetched coin listing is considered fresh.
const DefaultCatalogTTL = time.Hour

// CoinLister is the subset of the exchange client the catalog needs.
type CoinLister interface {
	ListCoins(ctx context.Context) ([]Coin, error)
}

// Catalog is a read-mostly cache of the exchange's coin listing. Reads are
// served from memory; a refresh happens at most once per staleness window
// under a single writer. If a refresh fails but stale data exists, the stale
// listing is served (the content is idempotent).
type Catalog struct {
	client CoinLister
	ttl    time.Duration

	mu        sync.RWMutex
	coins     []Coin
	fetchedAt time.Time
}

// NewCatalog creates a coin catalog backed by the given client.
func NewCatalog(client CoinLister, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &Catalog{client: client, ttl: ttl}
}

func (c *Catalog) fresh() ([]Coin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.coins != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.coins, true
	}
	return c.coins, false
}

func (c *Catalog) coinList(ctx context.Context) ([]Coin, error) {
	if coins, ok := c.fresh(); ok {
		return coins, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another writer may have refreshed while we waited for the lock.
	if c.coins != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.coins, nil
	}

	coins, err := c.client.ListCoins(ctx)
	if err != nil {
		if c.coins != nil {
			slog.Warn("coin catalog refresh failed, serving stale listing",
				"age", time.Since(c.fetchedAt), "error", err)
			return c.coins, nil
		}
		return nil, err
	}

	c.coins = coins
	c.fetchedAt = time.Now()
	slog.Info("coin catalog refreshed", "coins", len(coins))
	return c.coins, nil
}

// NetworksFor returns the networks a coin is available on, or nil when the
// symbol is unknown. Symbol comparison is case-insensitive.
func (c *Catalog) NetworksFor(ctx context.Context, symbol string) ([]string, error) {
	coins, err := c.coinList(ctx)
	if err != nil {
		return nil, err
	}
	for _, coin := range coins {
		if strings.EqualFold(coin.Symbol, symbol) {
			networks := make([]string, 0, len(coin.Networks))
			for _, n := range coin.Networks {
				networks = append(networks, n.Name)
			}
			return networks, nil
		}
	}
	return nil, nil
}

// Symbols returns the distinct coin symbols available, sorted by listing
// order, capped at limit (0 means no cap).
func (c *Catalog) Symbols(ctx context.Context, limit int) ([]string, error) {
	coins, err := c.coinList(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(coins))
	var symbols []string
	for _, coin := range coins {
		sym := strings.ToUpper(coin.Symbol)
		if seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
		if limit > 0 && len(symbols) >= limit {
			break
		}
	}
	return symbols, nil
}
