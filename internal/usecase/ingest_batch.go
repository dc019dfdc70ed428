package usecase

import (
	"context"
	"log/slog"

	"github.com/user/integration-hub/internal/domain"
)

// IngestBatchUseCase applies externally submitted batches to the merge
// store.
type IngestBatchUseCase struct {
	store  domain.CustomerStore
	logger *slog.Logger
}

func NewIngestBatchUseCase(store domain.CustomerStore, logger *slog.Logger) *IngestBatchUseCase {
	return &IngestBatchUseCase{
		store:  store,
		logger: logger.With("component", "ingest_batch"),
	}
}

// Ingest applies the batch and returns the number of records it carried.
// An empty or absent batch is a logged no-op, not an error; a store failure
// is a hard failure and nothing from the batch is visible.
func (uc *IngestBatchUseCase) Ingest(ctx context.Context, batch domain.Batch) (int, error) {
	if len(batch.Data) == 0 {
		uc.logger.Info("received empty batch", "batch_number", batch.BatchNumber)
		return 0, nil
	}

	if err := uc.store.ApplyBatch(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch.Data), nil
}
