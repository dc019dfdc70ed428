package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/domain/mocks"
)

func TestIngestBatchUseCase_Ingest(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Applies Batch And Reports Record Count", func(t *testing.T) {
		store := &mocks.MockCustomerStore{}
		uc := NewIngestBatchUseCase(store, logger)

		batch := domain.Batch{
			BatchNumber: "B100",
			Data: []domain.MergedRecord{
				{
					MergeID:  "MERGE_0000000A",
					Customer: &domain.BatchCustomer{ID: "CUST_1", Name: "Alice Smith"},
					Products: []domain.BatchProduct{{ID: "PROD_1", Name: "Widget"}},
				},
				{
					MergeID:  "MERGE_0000000B",
					Customer: nil, // not applicable, still counted as carried
				},
			},
		}

		count, err := uc.Ingest(context.Background(), batch)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 2 {
			t.Errorf("expected record count 2, got %d", count)
		}
		if len(store.Batches) != 1 {
			t.Errorf("expected 1 batch applied, got %d", len(store.Batches))
		}
	})

	t.Run("Empty Batch Is A No-Op", func(t *testing.T) {
		store := &mocks.MockCustomerStore{}
		uc := NewIngestBatchUseCase(store, logger)

		count, err := uc.Ingest(context.Background(), domain.Batch{BatchNumber: "B101"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0, got %d", count)
		}
		if len(store.Batches) != 0 {
			t.Errorf("expected store untouched, got %d batches", len(store.Batches))
		}
	})

	t.Run("Store Failure Propagates", func(t *testing.T) {
		store := &mocks.MockCustomerStore{ApplyErr: errors.New("database is down")}
		uc := NewIngestBatchUseCase(store, logger)

		batch := domain.Batch{
			BatchNumber: "B102",
			Data: []domain.MergedRecord{{
				Customer: &domain.BatchCustomer{ID: "CUST_1"},
				Products: []domain.BatchProduct{{ID: "PROD_1"}},
			}},
		}
		count, err := uc.Ingest(context.Background(), batch)
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		if count != 0 {
			t.Errorf("expected 0 on failure, got %d", count)
		}
	})
}
