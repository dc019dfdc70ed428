package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/integration-hub/internal/domain"
)

// Consumer reads integration envelopes from the customer and product
// streams via a consumer group. Messages with an unparsable payload are
// moved to the DLQ stream and acknowledged so they never block the group.
type Consumer struct {
	client    *redis.Client
	logger    *slog.Logger
	group     string
	name      string
	streams   []string
	dlqStream string
}

// NewConsumer creates the consumer and ensures the group exists on both
// integration streams.
func NewConsumer(client *redis.Client, logger *slog.Logger, group, name, dlqStream string) (*Consumer, error) {
	c := &Consumer{
		client:    client,
		logger:    logger.With("component", "stream_consumer"),
		group:     group,
		name:      name,
		streams:   []string{StreamKey(domain.RoutingKeyCustomers), StreamKey(domain.RoutingKeyProducts)},
		dlqStream: dlqStream,
	}

	for _, stream := range c.streams {
		err := client.XGroupCreateMkStream(context.Background(), stream, group, "0").Err()
		if err != nil && !isBusyGroupError(err) {
			return nil, fmt.Errorf("failed to create consumer group on %s: %w", stream, err)
		}
	}
	return c, nil
}

// ReadEnvelopes reads up to count undelivered messages across both streams.
// A nil result means nothing new arrived within the block window.
func (c *Consumer) ReadEnvelopes(ctx context.Context, count int) ([]domain.StreamMessage, error) {
	args := &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  append(append([]string{}, c.streams...), ">", ">"),
		Count:    int64(count),
		Block:    2 * time.Second,
	}

	streams, err := c.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP: %w", err)
	}

	var messages []domain.StreamMessage
	for _, stream := range streams {
		routingKey := strings.TrimPrefix(stream.Stream, streamPrefix)
		for _, msg := range stream.Messages {
			payload, ok := msg.Values["payload"].(string)
			if !ok {
				c.logger.Warn("message without payload field, moving to DLQ", "stream", stream.Stream, "message_id", msg.ID)
				c.deadLetter(ctx, stream.Stream, msg.ID, "")
				continue
			}

			var envelope domain.Envelope
			if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
				c.logger.Warn("unparsable envelope, moving to DLQ", "stream", stream.Stream, "message_id", msg.ID, "error", err)
				c.deadLetter(ctx, stream.Stream, msg.ID, payload)
				continue
			}

			messages = append(messages, domain.StreamMessage{
				Stream:     stream.Stream,
				MessageID:  msg.ID,
				RoutingKey: routingKey,
				Envelope:   envelope,
			})
		}
	}
	return messages, nil
}

// Ack acknowledges processed messages in their streams.
func (c *Consumer) Ack(ctx context.Context, messages ...domain.StreamMessage) error {
	byStream := make(map[string][]string)
	for _, msg := range messages {
		byStream[msg.Stream] = append(byStream[msg.Stream], msg.MessageID)
	}

	for stream, ids := range byStream {
		if err := c.client.XAck(ctx, stream, c.group, ids...).Err(); err != nil {
			return fmt.Errorf("failed to XACK on %s: %w", stream, err)
		}
	}
	return nil
}

// deadLetter parks a poison message on the DLQ stream and acknowledges the
// original so the group can move on.
func (c *Consumer) deadLetter(ctx context.Context, stream, messageID, payload string) {
	args := &redis.XAddArgs{
		Stream: c.dlqStream,
		Values: map[string]interface{}{
			"payload":         payload,
			"original_stream": stream,
			"original_msg_id": messageID,
			"failed_at":       time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := c.client.XAdd(ctx, args).Err(); err != nil {
		c.logger.Error("failed to move message to DLQ", "stream", stream, "message_id", messageID, "error", err)
		return
	}
	if err := c.client.XAck(ctx, stream, c.group, messageID).Err(); err != nil {
		c.logger.Error("failed to ack dead-lettered message", "stream", stream, "message_id", messageID, "error", err)
	}
}

func isBusyGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
