package upstream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/integration-hub/internal/adapter/metrics"
)

// ExchangeFunc performs a blocking credential exchange for a system and
// returns a fresh bearer token.
type ExchangeFunc func(ctx context.Context, system string) (string, error)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// TokenCache caches one bearer token per upstream system with a fixed TTL.
// Concurrent misses for the same system are collapsed: the exchange runs
// under the write lock, so a single refresh serves all waiters.
type TokenCache struct {
	mu       sync.RWMutex
	entries  map[string]tokenEntry
	ttl      time.Duration
	now      func() time.Time
	exchange ExchangeFunc
	logger   *slog.Logger
	metrics  *metrics.PipelineMetrics
}

// NewTokenCache creates a token cache. now may be nil, in which case
// time.Now is used; it is injectable for tests.
func NewTokenCache(exchange ExchangeFunc, ttl time.Duration, logger *slog.Logger, m *metrics.PipelineMetrics, now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{
		entries:  make(map[string]tokenEntry),
		ttl:      ttl,
		now:      now,
		exchange: exchange,
		logger:   logger.With("component", "token_cache"),
		metrics:  m,
	}
}

// Token returns the cached token for the system, refreshing it when absent
// or past its TTL. Nothing is cached when the exchange fails.
func (c *TokenCache) Token(ctx context.Context, system string) (string, error) {
	c.mu.RLock()
	entry, found := c.entries[system]
	c.mu.RUnlock()

	if found && c.now().Before(entry.expiresAt) {
		if c.metrics != nil {
			c.metrics.TokenCacheHits.Inc()
		}
		return entry.token, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check in case another goroutine refreshed while we waited for
	// the lock; a waiter satisfied here is a hit, not a miss.
	entry, found = c.entries[system]
	if found && c.now().Before(entry.expiresAt) {
		if c.metrics != nil {
			c.metrics.TokenCacheHits.Inc()
		}
		return entry.token, nil
	}

	// Counted here so misses track actual exchanges.
	if c.metrics != nil {
		c.metrics.TokenCacheMisses.Inc()
	}

	c.logger.Info("fetching new upstream token", "system", system)
	token, err := c.exchange(ctx, system)
	if err != nil {
		return "", err
	}

	c.entries[system] = tokenEntry{
		token:     token,
		expiresAt: c.now().Add(c.ttl),
	}
	return token, nil
}

// Invalidate removes any cached token for the system unconditionally.
func (c *TokenCache) Invalidate(system string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, system)
}
