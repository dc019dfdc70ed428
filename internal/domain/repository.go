package domain

import "context"

// TokenSource yields a valid bearer token for an upstream system,
// refreshing on miss or expiry.
type TokenSource interface {
	// Token returns a cached token for the system, performing a blocking
	// credential exchange when none is cached or the cached one expired.
	Token(ctx context.Context, system string) (string, error)

	// Invalidate drops any cached token for the system unconditionally.
	Invalidate(system string)
}

// CRMClient fetches customer pages from the CRM upstream.
type CRMClient interface {
	FetchCustomers(ctx context.Context, page, size int) (Page[Customer], error)
}

// InventoryClient fetches product pages from the Inventory upstream.
type InventoryClient interface {
	FetchProducts(ctx context.Context, page, size int) (Page[Product], error)
}

// SoapClient creates a customer on the CRM upstream via its RPC endpoint.
// The result is always structured; transport faults never surface as errors.
type SoapClient interface {
	AddCustomer(ctx context.Context, firstName, lastName, email, phone string) SoapResult
}

// MessagePublisher wraps a payload in a fresh Envelope and hands it to the
// broker on the given routing key. Implementations must be safe for
// concurrent use.
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BrokerConsumer reads and acknowledges envelopes from the broker.
type BrokerConsumer interface {
	// ReadEnvelopes blocks briefly for up to count undelivered messages
	// across the integration streams. A nil slice means nothing new.
	ReadEnvelopes(ctx context.Context, count int) ([]StreamMessage, error)

	// Ack marks messages as processed in their consumer group.
	Ack(ctx context.Context, messages ...StreamMessage) error
}

// StagingStore holds the latest customer and product snapshots delivered by
// the broker until both sides are present and can be merged.
type StagingStore interface {
	PutCustomers(ctx context.Context, customers []Customer) error
	PutProducts(ctx context.Context, products []Product) error

	// Snapshot returns both staged sides. ready is false until both have
	// been staged.
	Snapshot(ctx context.Context) (customers []Customer, products []Product, ready bool, err error)

	// Clear drops both staged sides after a successful merge.
	Clear(ctx context.Context) error
}

// CustomerStore is the durable home of customer aggregates.
type CustomerStore interface {
	// ApplyBatch upserts every applicable record of the batch atomically:
	// scalar fields are overwritten and the product set is fully replaced.
	// Either the whole batch is visible afterwards or none of it.
	ApplyBatch(ctx context.Context, batch Batch) error

	// SaveCustomer upserts a single aggregate's scalar fields without
	// touching its product set.
	SaveCustomer(ctx context.Context, aggregate CustomerAggregate) error

	// ProjectAll flattens all aggregates into response-ready shape with
	// derived totals. Requires read-committed isolation or stronger.
	ProjectAll(ctx context.Context) ([]ProjectedCustomer, error)

	// ListProducts returns every product record with its owner's external
	// id, for export.
	ListProducts(ctx context.Context) ([]ProductRecord, error)
}
