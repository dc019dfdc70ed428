package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch is one ingestion unit of merged customer+product records. Batches
// are transient: only their effect on customer aggregates is durable.
type Batch struct {
	BatchNumber string         `json:"batchNumber"`
	Data        []MergedRecord `json:"data"`
}

// MergedRecord pairs a customer with its complete current product catalog.
// Records with a nil customer or an empty product list carry nothing to
// persist and are skipped by the merge store.
type MergedRecord struct {
	MergeID   string         `json:"merge_id"`
	Customer  *BatchCustomer `json:"customer"`
	Products  []BatchProduct `json:"products"`
	Summary   *BatchSummary  `json:"summary,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type BatchCustomer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

type BatchProduct struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Category   string              `json:"category"`
	Price      decimal.NullDecimal `json:"price"`
	StockLevel int                 `json:"stock_level"`
}

type BatchSummary struct {
	TotalProducts int             `json:"total_products"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Applicable reports whether the record passes the merge precondition:
// a customer and at least one product.
func (r MergedRecord) Applicable() bool {
	return r.Customer != nil && r.Customer.ID != "" && len(r.Products) > 0
}
