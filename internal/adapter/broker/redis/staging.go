package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/integration-hub/internal/domain"
)

const (
	stagingCustomersKey = "staging:customers"
	stagingProductsKey  = "staging:products"
)

// Staging holds the most recent customer and product snapshots delivered by
// the broker until both sides are present. Each put replaces the previous
// snapshot for its side: every envelope carries a full page, not a delta.
type Staging struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewStaging(client *redis.Client, logger *slog.Logger, ttl time.Duration) *Staging {
	return &Staging{
		client: client,
		logger: logger.With("component", "staging"),
		ttl:    ttl,
	}
}

func (s *Staging) PutCustomers(ctx context.Context, customers []domain.Customer) error {
	return s.put(ctx, stagingCustomersKey, customers)
}

func (s *Staging) PutProducts(ctx context.Context, products []domain.Product) error {
	return s.put(ctx, stagingProductsKey, products)
}

func (s *Staging) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal staging value for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to stage %s: %w", key, err)
	}
	return nil
}

// Snapshot returns both staged sides; ready is false until both have been
// staged.
func (s *Staging) Snapshot(ctx context.Context) ([]domain.Customer, []domain.Product, bool, error) {
	values, err := s.client.MGet(ctx, stagingCustomersKey, stagingProductsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, false, fmt.Errorf("failed to read staging keys: %w", err)
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return nil, nil, false, nil
	}

	rawCustomers, ok0 := values[0].(string)
	rawProducts, ok1 := values[1].(string)
	if !ok0 || !ok1 {
		return nil, nil, false, nil
	}

	var customers []domain.Customer
	if err := json.Unmarshal([]byte(rawCustomers), &customers); err != nil {
		return nil, nil, false, fmt.Errorf("failed to unmarshal staged customers: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal([]byte(rawProducts), &products); err != nil {
		return nil, nil, false, fmt.Errorf("failed to unmarshal staged products: %w", err)
	}
	return customers, products, true, nil
}

// Clear drops both staged sides after a successful merge.
func (s *Staging) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, stagingCustomersKey, stagingProductsKey).Err(); err != nil {
		return fmt.Errorf("failed to clear staging keys: %w", err)
	}
	return nil
}
