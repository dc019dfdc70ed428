package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/user/integration-hub/internal/domain"
)

// BuildBatch merges staged customer and product snapshots into one ingestion
// batch: products are grouped by their owning customer id and every customer
// with at least one product becomes a merged record carrying its complete
// current catalog plus derived summary totals.
func BuildBatch(customers []domain.Customer, products []domain.Product, now time.Time) domain.Batch {
	byCustomer := make(map[string][]domain.Product)
	for _, p := range products {
		byCustomer[p.CustomerID] = append(byCustomer[p.CustomerID], p)
	}

	batch := domain.Batch{BatchNumber: newBatchNumber()}
	for _, c := range customers {
		owned := byCustomer[c.CustomerID]
		if len(owned) == 0 {
			continue
		}

		merged := domain.MergedRecord{
			MergeID: newMergeID(),
			Customer: &domain.BatchCustomer{
				ID:     c.CustomerID,
				Name:   strings.TrimSpace(c.FirstName + " " + c.LastName),
				Email:  c.Email,
				Phone:  c.Phone,
				Status: c.Status,
			},
			Timestamp: now.UTC(),
		}

		total := decimal.Zero
		for _, p := range owned {
			merged.Products = append(merged.Products, domain.BatchProduct{
				ID:         p.ProductID,
				Name:       p.Name,
				Category:   p.Category,
				Price:      p.Price,
				StockLevel: p.StockLevel,
			})
			if p.Price.Valid {
				total = total.Add(p.Price.Decimal)
			}
		}
		merged.Summary = &domain.BatchSummary{
			TotalProducts: len(owned),
			TotalValue:    total,
		}

		batch.Data = append(batch.Data, merged)
	}
	return batch
}

func newBatchNumber() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

func newMergeID() string {
	id := uuid.New()
	return "MERGE_" + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}
