package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/user/integration-hub/internal/domain"
)

// ProcessEnvelopesUseCase drives the consumer side of the pipeline: read
// envelopes from the broker, stage their payloads, merge once both sides are
// present, apply the merged batch to the durable store, then acknowledge.
//
// Delivery is at-least-once: when the store write fails nothing is
// acknowledged and the messages are redelivered later; the merge store's
// idempotent upsert absorbs the duplicates.
type ProcessEnvelopesUseCase struct {
	consumer  domain.BrokerConsumer
	staging   domain.StagingStore
	store     domain.CustomerStore
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

func NewProcessEnvelopesUseCase(
	consumer domain.BrokerConsumer,
	staging domain.StagingStore,
	store domain.CustomerStore,
	logger *slog.Logger,
	batchSize int,
) *ProcessEnvelopesUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ProcessEnvelopesUseCase{
		consumer:  consumer,
		staging:   staging,
		store:     store,
		logger:    logger.With("component", "process_envelopes"),
		batchSize: batchSize,
		now:       time.Now,
	}
}

// ProcessBatch performs one read-stage-merge-apply-ack cycle and returns the
// number of broker messages it consumed.
func (uc *ProcessEnvelopesUseCase) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := uc.consumer.ReadEnvelopes(ctx, uc.batchSize)
	if err != nil {
		uc.logger.Error("failed to read envelopes from broker", "error", err)
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read envelopes from broker", "count", len(messages))

	for _, msg := range messages {
		if err := uc.stage(ctx, msg); err != nil {
			return 0, err
		}
	}

	customers, products, ready, err := uc.staging.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if ready {
		batch := BuildBatch(customers, products, uc.now())
		if len(batch.Data) > 0 {
			if err := uc.store.ApplyBatch(ctx, batch); err != nil {
				// No ack: the messages stay pending and will be
				// redelivered.
				uc.logger.Error("failed to apply merged batch", "batch_number", batch.BatchNumber, "error", err)
				return 0, err
			}
			uc.logger.Info("applied merged batch", "batch_number", batch.BatchNumber, "records", len(batch.Data))
		}
		if err := uc.staging.Clear(ctx); err != nil {
			return 0, err
		}
	}

	if err := uc.consumer.Ack(ctx, messages...); err != nil {
		// The batch is already durable; redelivered messages re-stage and
		// re-apply idempotently.
		uc.logger.Error("failed to acknowledge envelopes", "error", err)
		return 0, err
	}
	return len(messages), nil
}

func (uc *ProcessEnvelopesUseCase) stage(ctx context.Context, msg domain.StreamMessage) error {
	switch msg.RoutingKey {
	case domain.RoutingKeyCustomers:
		var customers []domain.Customer
		if err := json.Unmarshal(msg.Envelope.Data, &customers); err != nil {
			uc.logger.Warn("customer envelope payload not decodable, skipping",
				"correlation_id", msg.Envelope.CorrelationID, "error", err)
			return nil
		}
		return uc.staging.PutCustomers(ctx, customers)
	case domain.RoutingKeyProducts:
		var products []domain.Product
		if err := json.Unmarshal(msg.Envelope.Data, &products); err != nil {
			uc.logger.Warn("product envelope payload not decodable, skipping",
				"correlation_id", msg.Envelope.CorrelationID, "error", err)
			return nil
		}
		return uc.staging.PutProducts(ctx, products)
	default:
		uc.logger.Warn("envelope with unknown routing key, skipping", "routing_key", msg.RoutingKey)
		return nil
	}
}
