package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/integration-hub/internal/adapter/api"
	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/domain/mocks"
	"github.com/user/integration-hub/internal/usecase"
)

// newHubServer wires the full HTTP surface against in-memory adapters so the
// whole request path runs in-process: router, handlers, use cases, merge
// semantics.
func newHubServer(t *testing.T, store *mocks.MockCustomerStore, soap *mocks.MockSoapClient, crm *mocks.MockCRMClient, inventory *mocks.MockInventoryClient, publisher *mocks.MockPublisher) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orchestrator := usecase.NewFetchOrchestrator(crm, inventory, publisher, logger, nil, usecase.OrchestratorOptions{PageSize: 100})
	ingest := usecase.NewIngestBatchUseCase(store, logger)
	addCustomer := usecase.NewAddCustomerUseCase(soap, store, logger)

	router := api.NewRouter(logger, orchestrator, ingest, addCustomer, soap, store, 5*time.Second)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	return resp, decoded
}

func TestIngestToQueryFlow(t *testing.T) {
	store := &mocks.MockCustomerStore{}
	server := newHubServer(t, store, &mocks.MockSoapClient{}, &mocks.MockCRMClient{}, &mocks.MockInventoryClient{}, &mocks.MockPublisher{})

	batch := `{
		"batchNumber": "B1",
		"data": [{
			"merge_id": "MERGE_0000000A",
			"customer": {"id": "CUST_1", "name": "Alice Smith", "email": "alice@example.com", "phone": "+155501", "status": "ACTIVE"},
			"products": [
				{"id": "PROD_1", "name": "Widget", "category": "tools", "price": 19.99, "stock_level": 3},
				{"id": "PROD_2", "name": "Gadget", "category": "tools", "price": 5.01, "stock_level": 1}
			],
			"timestamp": "2024-06-01T12:00:00Z"
		}]
	}`

	resp, body := postJSON(t, server.URL+"/analytics/api/data", batch)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %v", resp.StatusCode, body)
	}
	if body["records"] != float64(1) {
		t.Errorf("expected 1 record accepted, got %v", body["records"])
	}

	queryResp, err := http.Get(server.URL + "/analytics/api/customers")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer queryResp.Body.Close()

	var customers []map[string]any
	if err := json.NewDecoder(queryResp.Body).Decode(&customers); err != nil {
		t.Fatalf("query response not json: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(customers))
	}
	c := customers[0]
	if c["id"] != "CUST_1" || c["lastBatchNumber"] != "B1" {
		t.Errorf("unexpected customer: %v", c)
	}
	products := c["products"].([]any)
	if len(products) != 2 {
		t.Errorf("expected 2 products, got %d", len(products))
	}
	summary := c["summary"].(map[string]any)
	if summary["totalProducts"] != float64(2) || summary["totalValue"] != float64(25) {
		t.Errorf("unexpected summary: %v", summary)
	}
}

func TestProductReplacementAcrossBatches(t *testing.T) {
	store := &mocks.MockCustomerStore{}
	server := newHubServer(t, store, &mocks.MockSoapClient{}, &mocks.MockCRMClient{}, &mocks.MockInventoryClient{}, &mocks.MockPublisher{})

	first := `{
		"batchNumber": "B1",
		"data": [{
			"customer": {"id": "CUST_1", "name": "Alice Smith", "email": "alice@example.com", "status": "ACTIVE"},
			"products": [
				{"id": "PROD_1", "name": "Widget", "price": 19.99},
				{"id": "PROD_2", "name": "Gadget", "price": 5.01}
			]
		}]
	}`
	second := `{
		"batchNumber": "B2",
		"data": [{
			"customer": {"id": "CUST_1", "name": "Alice Smith-Jones", "email": "alice@example.com", "status": "ACTIVE"},
			"products": [
				{"id": "PROD_3", "name": "Replacement", "price": 100.00}
			]
		}]
	}`

	if resp, _ := postJSON(t, server.URL+"/analytics/api/data", first); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first batch rejected: %d", resp.StatusCode)
	}
	if resp, _ := postJSON(t, server.URL+"/analytics/api/data", second); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("second batch rejected: %d", resp.StatusCode)
	}

	queryResp, err := http.Get(server.URL + "/analytics/api/customers")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer queryResp.Body.Close()

	var customers []map[string]any
	if err := json.NewDecoder(queryResp.Body).Decode(&customers); err != nil {
		t.Fatalf("query response not json: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected the same customer upserted, got %d rows", len(customers))
	}
	c := customers[0]
	if c["name"] != "Alice Smith-Jones" || c["lastBatchNumber"] != "B2" {
		t.Errorf("scalar fields not overwritten: %v", c)
	}
	products := c["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("expected product set fully replaced, got %d products", len(products))
	}
	p := products[0].(map[string]any)
	if p["id"] != "PROD_3" {
		t.Errorf("expected only the new product, got %v", p)
	}
}

func TestFetchAndConsumeRoundTrip(t *testing.T) {
	// Producer publishes fetched upstream data, the consumer-side use case
	// reads it back off the broker, merges and persists.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	crm := &mocks.MockCRMClient{Pages: []domain.Page[domain.Customer]{{
		Content: []domain.Customer{{CustomerID: "CUST_1", FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Status: "ACTIVE"}},
	}}}
	inventory := &mocks.MockInventoryClient{Pages: []domain.Page[domain.Product]{{
		Content: []domain.Product{{ProductID: "PROD_1", Name: "Widget", CustomerID: "CUST_1"}},
	}}}
	publisher := &mocks.MockPublisher{}

	orchestrator := usecase.NewFetchOrchestrator(crm, inventory, publisher, logger, nil, usecase.OrchestratorOptions{PageSize: 100})
	counts, err := orchestrator.FetchAndPublishAll(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if counts.CustomersPublished != 1 || counts.ProductsPublished != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	// Re-deliver the captured publishes as broker messages.
	var messages []domain.StreamMessage
	for _, p := range publisher.Published {
		data, err := json.Marshal(p.Payload)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		messages = append(messages, domain.StreamMessage{
			Stream:     "integration:" + p.RoutingKey,
			MessageID:  "1-0",
			RoutingKey: p.RoutingKey,
			Envelope:   domain.Envelope{CorrelationID: "corr", Source: "integration-hub", Data: data},
		})
	}

	consumer := &mocks.MockBrokerConsumer{ReadResult: messages}
	staging := &mocks.MockStaging{}
	store := &mocks.MockCustomerStore{}
	process := usecase.NewProcessEnvelopesUseCase(consumer, staging, store, logger, 100)

	if _, err := process.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	projected, err := store.ProjectAll(context.Background())
	if err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	if len(projected) != 1 {
		t.Fatalf("expected 1 aggregate after round trip, got %d", len(projected))
	}
	if projected[0].ID != "CUST_1" || projected[0].Name != "Alice Smith" {
		t.Errorf("unexpected aggregate: %+v", projected[0])
	}
	if len(projected[0].Products) != 1 || projected[0].Products[0].ID != "PROD_1" {
		t.Errorf("expected merged product catalog: %+v", projected[0].Products)
	}
}
