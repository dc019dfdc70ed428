package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/user/integration-hub/internal/domain"
)

const streamPrefix = "integration:"

// StreamKey maps a routing key to its fixed stream on the broker.
func StreamKey(routingKey string) string {
	return streamPrefix + routingKey
}

// Publisher sends enveloped payloads to Redis Streams. Each publish builds a
// fresh envelope; there is no shared mutable state, so concurrent fetches
// may publish simultaneously.
type Publisher struct {
	client *redis.Client
	source string
	logger *slog.Logger
}

// NewPublisher creates a stream publisher tagged with the given source
// identifier.
func NewPublisher(client *redis.Client, source string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		source: source,
		logger: logger.With("component", "stream_publisher"),
	}
}

// Publish wraps payload in an envelope with a unique correlation id and
// XADDs it to the routing key's stream. Failures wrap domain.ErrPublish.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload for %s: %v", domain.ErrPublish, routingKey, err)
	}

	envelope := domain.Envelope{
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        p.source,
		Data:          data,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("%w: marshal envelope for %s: %v", domain.ErrPublish, routingKey, err)
	}

	stream := StreamKey(routingKey)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"payload":     body,
			"routing_key": routingKey,
		},
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: xadd to %s: %v", domain.ErrPublish, stream, err)
	}

	p.logger.Debug("published envelope", "stream", stream, "correlation_id", envelope.CorrelationID)
	return nil
}
