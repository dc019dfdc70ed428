package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/domain/mocks"
	"github.com/user/integration-hub/internal/usecase"
)

func newAnalyticsHandler(store *mocks.MockCustomerStore, soap *mocks.MockSoapClient) *AnalyticsHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ingest := usecase.NewIngestBatchUseCase(store, logger)
	addCustomer := usecase.NewAddCustomerUseCase(soap, store, logger)
	orchestrator := usecase.NewFetchOrchestrator(&mocks.MockCRMClient{}, &mocks.MockInventoryClient{}, &mocks.MockPublisher{}, logger, nil, usecase.OrchestratorOptions{})
	return NewAnalyticsHandler(ingest, addCustomer, orchestrator, store, logger, 0)
}

func TestAnalyticsHandler_IngestBatch(t *testing.T) {
	t.Run("Accepts Batch", func(t *testing.T) {
		store := &mocks.MockCustomerStore{}
		h := newAnalyticsHandler(store, &mocks.MockSoapClient{})

		body := `{
			"batchNumber": "B100",
			"data": [{
				"merge_id": "MERGE_0000000A",
				"customer": {"id": "CUST_1", "name": "Alice Smith", "email": "alice@example.com", "status": "ACTIVE"},
				"products": [{"id": "PROD_1", "name": "Widget", "price": 19.99, "stock_level": 3}],
				"timestamp": "2024-06-01T12:00:00Z"
			}]
		}`
		req := httptest.NewRequest(http.MethodPost, "/analytics/api/data", strings.NewReader(body))
		rr := httptest.NewRecorder()

		h.IngestBatch(rr, req)

		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response not json: %v", err)
		}
		if resp["status"] != "accepted" || resp["batchNumber"] != "B100" || resp["records"] != float64(1) {
			t.Errorf("unexpected response: %v", resp)
		}
		if len(store.Batches) != 1 {
			t.Errorf("expected batch applied, got %d", len(store.Batches))
		}
	})

	t.Run("Empty Batch Is Accepted With Zero Records", func(t *testing.T) {
		h := newAnalyticsHandler(&mocks.MockCustomerStore{}, &mocks.MockSoapClient{})

		req := httptest.NewRequest(http.MethodPost, "/analytics/api/data", strings.NewReader(`{"batchNumber": "B101", "data": []}`))
		rr := httptest.NewRecorder()

		h.IngestBatch(rr, req)

		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rr.Code)
		}
		var resp map[string]any
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["records"] != float64(0) {
			t.Errorf("expected 0 records, got %v", resp["records"])
		}
	})

	t.Run("Malformed Payload Is 400", func(t *testing.T) {
		h := newAnalyticsHandler(&mocks.MockCustomerStore{}, &mocks.MockSoapClient{})

		req := httptest.NewRequest(http.MethodPost, "/analytics/api/data", strings.NewReader(`not json`))
		rr := httptest.NewRecorder()

		h.IngestBatch(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("Store Failure Is 500", func(t *testing.T) {
		store := &mocks.MockCustomerStore{ApplyErr: errors.New("database is down")}
		h := newAnalyticsHandler(store, &mocks.MockSoapClient{})

		body := `{"batchNumber": "B102", "data": [{"customer": {"id": "CUST_1"}, "products": [{"id": "PROD_1"}]}]}`
		req := httptest.NewRequest(http.MethodPost, "/analytics/api/data", strings.NewReader(body))
		rr := httptest.NewRecorder()

		h.IngestBatch(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rr.Code)
		}
	})
}

func TestAnalyticsHandler_ListCustomers(t *testing.T) {
	t.Run("Empty Store Returns Empty Array", func(t *testing.T) {
		h := newAnalyticsHandler(&mocks.MockCustomerStore{}, &mocks.MockSoapClient{})

		req := httptest.NewRequest(http.MethodGet, "/analytics/api/customers", nil)
		rr := httptest.NewRecorder()

		h.ListCustomers(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
			t.Errorf("expected empty json array, got %s", body)
		}
	})

	t.Run("Serializes Projection With Totals", func(t *testing.T) {
		store := &mocks.MockCustomerStore{}
		h := newAnalyticsHandler(store, &mocks.MockSoapClient{})

		batch := domain.Batch{
			BatchNumber: "B100",
			Data: []domain.MergedRecord{{
				Customer: &domain.BatchCustomer{ID: "CUST_1", Name: "Alice Smith", Email: "alice@example.com", Status: "ACTIVE"},
				Products: []domain.BatchProduct{{
					ID: "PROD_1", Name: "Widget", Category: "tools",
					Price:      decimal.NullDecimal{Decimal: decimal.RequireFromString("19.99"), Valid: true},
					StockLevel: 3,
				}},
			}},
		}
		if err := store.ApplyBatch(context.Background(), batch); err != nil {
			t.Fatalf("seed failed: %v", err)
		}

		r := httptest.NewRequest(http.MethodGet, "/analytics/api/customers", nil)
		rr := httptest.NewRecorder()

		h.ListCustomers(rr, r)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var customers []map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &customers); err != nil {
			t.Fatalf("response not json: %v", err)
		}
		if len(customers) != 1 {
			t.Fatalf("expected 1 customer, got %d", len(customers))
		}
		c := customers[0]
		if c["id"] != "CUST_1" || c["lastBatchNumber"] != "B100" {
			t.Errorf("unexpected customer: %v", c)
		}
		summary, ok := c["summary"].(map[string]any)
		if !ok {
			t.Fatalf("expected summary object, got %v", c["summary"])
		}
		if summary["totalProducts"] != float64(1) || summary["totalValue"] != float64(19.99) {
			t.Errorf("unexpected summary: %v", summary)
		}
	})
}

func TestAnalyticsHandler_AddCustomer(t *testing.T) {
	t.Run("Creates And Reports SOAP Result", func(t *testing.T) {
		soap := &mocks.MockSoapClient{Result: domain.SoapResult{Success: true, CustomerID: "CUST_42", Message: "created"}}
		h := newAnalyticsHandler(&mocks.MockCustomerStore{}, soap)

		body := `{"first_name": "Jane", "last_name": "Doe", "email": "jane@example.com", "phone": "+155501"}`
		r := httptest.NewRequest(http.MethodPost, "/analytics/api/customers", strings.NewReader(body))
		rr := httptest.NewRecorder()

		h.AddCustomer(rr, r)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp map[string]any
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "created" || resp["customer_id"] != "CUST_42" || resp["soap_success"] != true {
			t.Errorf("unexpected response: %v", resp)
		}
	})

	t.Run("Validation Failure Is 400", func(t *testing.T) {
		h := newAnalyticsHandler(&mocks.MockCustomerStore{}, &mocks.MockSoapClient{})

		body := `{"first_name": "Jane", "last_name": "Doe", "email": "not-an-email"}`
		r := httptest.NewRequest(http.MethodPost, "/analytics/api/customers", strings.NewReader(body))
		rr := httptest.NewRecorder()

		h.AddCustomer(rr, r)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})
}

func TestAnalyticsHandler_Exports(t *testing.T) {
	seedStore := func(t *testing.T) *mocks.MockCustomerStore {
		t.Helper()
		store := &mocks.MockCustomerStore{}
		batch := domain.Batch{
			BatchNumber: "B100",
			Data: []domain.MergedRecord{{
				Customer: &domain.BatchCustomer{ID: "CUST_1", Name: `O'Brien, "Big"`, Email: "obrien@example.com", Status: "ACTIVE"},
				Products: []domain.BatchProduct{
					{ID: "PROD_1", Name: "Widget", Category: "tools", Price: decimal.NullDecimal{Decimal: decimal.RequireFromString("19.99"), Valid: true}, StockLevel: 3},
					{ID: "PROD_2", Name: "Mystery", Category: "misc"}, // null price
				},
			}},
		}
		if err := store.ApplyBatch(context.Background(), batch); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		return store
	}

	t.Run("Customers CSV", func(t *testing.T) {
		h := newAnalyticsHandler(seedStore(t), &mocks.MockSoapClient{})

		r := httptest.NewRequest(http.MethodGet, "/analytics/api/customers/export", nil)
		rr := httptest.NewRecorder()

		h.ExportCustomersCSV(rr, r)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("expected text/csv, got %q", ct)
		}
		if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "customers.csv") {
			t.Errorf("expected attachment filename, got %q", cd)
		}

		lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
		if lines[0] != "id,name,email,phone,status,total_products,total_value" {
			t.Errorf("unexpected header: %s", lines[0])
		}
		if len(lines) != 2 {
			t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
		}
		// Fields containing commas and quotes must be quoted with doubled
		// quotes.
		if !strings.Contains(lines[1], `"O'Brien, ""Big"""`) {
			t.Errorf("expected csv-escaped name, got %s", lines[1])
		}
	})

	t.Run("Products CSV With Null Price", func(t *testing.T) {
		h := newAnalyticsHandler(seedStore(t), &mocks.MockSoapClient{})

		r := httptest.NewRequest(http.MethodGet, "/analytics/api/products/export", nil)
		rr := httptest.NewRecorder()

		h.ExportProductsCSV(rr, r)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
		if lines[0] != "id,name,category,price,stock_level,customer_id" {
			t.Errorf("unexpected header: %s", lines[0])
		}
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
		}
		if lines[1] != "PROD_1,Widget,tools,19.99,3,CUST_1" {
			t.Errorf("unexpected row: %s", lines[1])
		}
		if lines[2] != "PROD_2,Mystery,misc,,0,CUST_1" {
			t.Errorf("expected empty price cell for null price, got %s", lines[2])
		}
	})
}
