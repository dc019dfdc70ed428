package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderCustomerID is persisted when the SOAP upstream did not assign
// an id to a newly created customer.
const PlaceholderCustomerID = "CUST_UNKNOWN"

// CustomerAggregate is a customer together with its owned product records,
// the unit of upsert. ExternalID is the stable upstream key; upserting an
// aggregate fully overwrites its scalar fields and replaces its product set.
type CustomerAggregate struct {
	ExternalID             string
	Name                   string
	Email                  string
	Phone                  string
	Status                 string
	LastBatchNumber        string
	LastAnalyticsTimestamp *time.Time
	Products               []ProductRecord
}

// ProductRecord is a product owned by a CustomerAggregate. Its lifetime is
// tied to the owner: replacing the owner's product set destroys it.
type ProductRecord struct {
	ExternalID      string
	Name            string
	Category        string
	Price           decimal.NullDecimal
	StockLevel      int
	OwnerExternalID string
}

// ProjectedCustomer is the read-side shape of an aggregate with derived
// totals.
type ProjectedCustomer struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone"`
	Status          string             `json:"status"`
	LastBatchNumber string             `json:"lastBatchNumber"`
	Products        []ProjectedProduct `json:"products"`
	Summary         ProjectedSummary   `json:"summary"`
}

type ProjectedProduct struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Category   string              `json:"category"`
	Price      decimal.NullDecimal `json:"price"`
	StockLevel int                 `json:"stockLevel"`
}

type ProjectedSummary struct {
	TotalProducts int             `json:"totalProducts"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}

// Summarize derives the projection totals for a set of products. TotalValue
// sums only non-null prices.
func Summarize(products []ProjectedProduct) ProjectedSummary {
	total := decimal.Zero
	for _, p := range products {
		if p.Price.Valid {
			total = total.Add(p.Price.Decimal)
		}
	}
	return ProjectedSummary{TotalProducts: len(products), TotalValue: total}
}
