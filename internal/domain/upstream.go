package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Upstream system identifiers, used as token cache keys.
const (
	SystemCRM       = "crm-service"
	SystemInventory = "inventory-service"
)

func init() {
	// Upstream systems and our own API carry prices as bare JSON numbers,
	// not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Customer is a customer record as served by the CRM upstream.
type Customer struct {
	CustomerID       string    `json:"customer_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	RegistrationDate time.Time `json:"registration_date"`
	Status           string    `json:"status"`
}

// Product is a product record as served by the Inventory upstream.
// CustomerID references the owning customer and drives the consumer-side
// merge.
type Product struct {
	ProductID   string              `json:"product_id"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Price       decimal.NullDecimal `json:"price"`
	StockLevel  int                 `json:"stock_level"`
	CustomerID  string              `json:"customer_id"`
	LastUpdated time.Time           `json:"last_updated"`
}

// Page is one immutable page of an upstream paginated fetch.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	HasNext       bool  `json:"has_next"`
	HasPrevious   bool  `json:"has_previous"`
}

// SoapResult is the structured outcome of the SOAP add-customer call.
// Transport and protocol failures are folded into Success=false rather than
// returned as errors, because callers persist a local row either way.
type SoapResult struct {
	Success    bool   `json:"success"`
	CustomerID string `json:"customer_id,omitempty"`
	Message    string `json:"message"`
}
