package mocks

import (
	"context"
	"sync"

	"github.com/user/integration-hub/internal/domain"
)

// MockTokenSource is a mock implementation of domain.TokenSource for testing.
type MockTokenSource struct {
	mu          sync.Mutex
	Tokens      map[string]string
	TokenErr    error
	Requested   []string
	Invalidated []string
}

func (m *MockTokenSource) Token(ctx context.Context, system string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requested = append(m.Requested, system)
	if m.TokenErr != nil {
		return "", m.TokenErr
	}
	if tok, ok := m.Tokens[system]; ok {
		return tok, nil
	}
	return "test-token", nil
}

func (m *MockTokenSource) Invalidate(system string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, system)
}

// MockCRMClient is a mock implementation of domain.CRMClient for testing.
type MockCRMClient struct {
	mu         sync.Mutex
	Pages      []domain.Page[domain.Customer]
	FetchErr   error
	PagesAsked []int
}

func (m *MockCRMClient) FetchCustomers(ctx context.Context, page, size int) (domain.Page[domain.Customer], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PagesAsked = append(m.PagesAsked, page)
	if m.FetchErr != nil {
		return domain.Page[domain.Customer]{}, m.FetchErr
	}
	if page < len(m.Pages) {
		return m.Pages[page], nil
	}
	return domain.Page[domain.Customer]{Page: page, Size: size}, nil
}

// MockInventoryClient is a mock implementation of domain.InventoryClient for testing.
type MockInventoryClient struct {
	mu         sync.Mutex
	Pages      []domain.Page[domain.Product]
	FetchErr   error
	PagesAsked []int
}

func (m *MockInventoryClient) FetchProducts(ctx context.Context, page, size int) (domain.Page[domain.Product], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PagesAsked = append(m.PagesAsked, page)
	if m.FetchErr != nil {
		return domain.Page[domain.Product]{}, m.FetchErr
	}
	if page < len(m.Pages) {
		return m.Pages[page], nil
	}
	return domain.Page[domain.Product]{Page: page, Size: size}, nil
}

// MockSoapClient is a mock implementation of domain.SoapClient for testing.
type MockSoapClient struct {
	mu     sync.Mutex
	Result domain.SoapResult
	Calls  [][4]string
}

func (m *MockSoapClient) AddCustomer(ctx context.Context, firstName, lastName, email, phone string) domain.SoapResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, [4]string{firstName, lastName, email, phone})
	return m.Result
}

// PublishedMessage records a single captured publish call.
type PublishedMessage struct {
	RoutingKey string
	Payload    any
}

// MockPublisher is a mock implementation of domain.MessagePublisher for testing.
type MockPublisher struct {
	mu         sync.Mutex
	Published  []PublishedMessage
	PublishErr error
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Published = append(m.Published, PublishedMessage{RoutingKey: routingKey, Payload: payload})
	return nil
}

// ByRoutingKey returns the captured payloads published on the given key.
func (m *MockPublisher) ByRoutingKey(key string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, p := range m.Published {
		if p.RoutingKey == key {
			out = append(out, p.Payload)
		}
	}
	return out
}

// MockBrokerConsumer is a mock implementation of domain.BrokerConsumer for testing.
type MockBrokerConsumer struct {
	mu         sync.Mutex
	ReadResult []domain.StreamMessage
	ReadErr    error
	AckErr     error
	Acked      []domain.StreamMessage
}

func (m *MockBrokerConsumer) ReadEnvelopes(ctx context.Context, count int) ([]domain.StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := m.ReadResult
	m.ReadResult = nil
	return out, nil
}

func (m *MockBrokerConsumer) Ack(ctx context.Context, messages ...domain.StreamMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.Acked = append(m.Acked, messages...)
	return nil
}

// MockStaging is an in-memory implementation of domain.StagingStore for testing.
type MockStaging struct {
	mu           sync.Mutex
	Customers    []domain.Customer
	Products     []domain.Product
	HasCustomers bool
	HasProducts  bool
	PutErr       error
	SnapshotErr  error
	ClearErr     error
	Cleared      int
}

func (m *MockStaging) PutCustomers(ctx context.Context, customers []domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Customers = customers
	m.HasCustomers = true
	return nil
}

func (m *MockStaging) PutProducts(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Products = products
	m.HasProducts = true
	return nil
}

func (m *MockStaging) Snapshot(ctx context.Context) ([]domain.Customer, []domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotErr != nil {
		return nil, nil, false, m.SnapshotErr
	}
	return m.Customers, m.Products, m.HasCustomers && m.HasProducts, nil
}

func (m *MockStaging) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Customers, m.Products = nil, nil
	m.HasCustomers, m.HasProducts = false, false
	m.Cleared++
	return nil
}

// MockCustomerStore is an in-memory implementation of domain.CustomerStore
// with honest replace-on-upsert semantics, so pipeline tests exercise the
// same merge behavior the SQL repository provides.
type MockCustomerStore struct {
	mu         sync.Mutex
	Aggregates map[string]domain.CustomerAggregate
	ProductSet map[string][]domain.ProductRecord
	Batches    []domain.Batch
	ApplyErr   error
	SaveErr    error
	ProjectErr error
	ListErr    error
}

func (m *MockCustomerStore) ApplyBatch(ctx context.Context, batch domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	m.Batches = append(m.Batches, batch)
	for _, record := range batch.Data {
		if !record.Applicable() {
			continue
		}
		m.ensureMaps()
		agg := m.Aggregates[record.Customer.ID]
		agg.ExternalID = record.Customer.ID
		agg.Name = record.Customer.Name
		agg.Email = record.Customer.Email
		agg.Phone = record.Customer.Phone
		agg.Status = record.Customer.Status
		agg.LastBatchNumber = batch.BatchNumber
		ts := record.Timestamp
		agg.LastAnalyticsTimestamp = &ts
		m.Aggregates[record.Customer.ID] = agg

		products := make([]domain.ProductRecord, 0, len(record.Products))
		for _, p := range record.Products {
			products = append(products, domain.ProductRecord{
				ExternalID:      p.ID,
				Name:            p.Name,
				Category:        p.Category,
				Price:           p.Price,
				StockLevel:      p.StockLevel,
				OwnerExternalID: record.Customer.ID,
			})
		}
		m.ProductSet[record.Customer.ID] = products
	}
	return nil
}

func (m *MockCustomerStore) SaveCustomer(ctx context.Context, aggregate domain.CustomerAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.ensureMaps()
	existing := m.Aggregates[aggregate.ExternalID]
	aggregate.LastAnalyticsTimestamp = existing.LastAnalyticsTimestamp
	if aggregate.LastBatchNumber == "" {
		aggregate.LastBatchNumber = existing.LastBatchNumber
	}
	m.Aggregates[aggregate.ExternalID] = aggregate
	return nil
}

func (m *MockCustomerStore) ProjectAll(ctx context.Context) ([]domain.ProjectedCustomer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProjectErr != nil {
		return nil, m.ProjectErr
	}
	out := make([]domain.ProjectedCustomer, 0, len(m.Aggregates))
	for id, agg := range m.Aggregates {
		projected := domain.ProjectedCustomer{
			ID:              agg.ExternalID,
			Name:            agg.Name,
			Email:           agg.Email,
			Phone:           agg.Phone,
			Status:          agg.Status,
			LastBatchNumber: agg.LastBatchNumber,
			Products:        []domain.ProjectedProduct{},
		}
		for _, p := range m.ProductSet[id] {
			projected.Products = append(projected.Products, domain.ProjectedProduct{
				ID:         p.ExternalID,
				Name:       p.Name,
				Category:   p.Category,
				Price:      p.Price,
				StockLevel: p.StockLevel,
			})
		}
		projected.Summary = domain.Summarize(projected.Products)
		out = append(out, projected)
	}
	return out, nil
}

func (m *MockCustomerStore) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []domain.ProductRecord
	for _, products := range m.ProductSet {
		out = append(out, products...)
	}
	return out, nil
}

func (m *MockCustomerStore) ensureMaps() {
	if m.Aggregates == nil {
		m.Aggregates = make(map[string]domain.CustomerAggregate)
	}
	if m.ProductSet == nil {
		m.ProductSet = make(map[string][]domain.ProductRecord)
	}
}
