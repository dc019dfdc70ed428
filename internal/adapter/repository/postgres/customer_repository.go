package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/user/integration-hub/internal/adapter/metrics"
	"github.com/user/integration-hub/internal/domain"
)

// CustomerRepository implements domain.CustomerStore on PostgreSQL.
//
// ApplyBatch runs delete-then-insert product replacement inside one
// transaction, so a batch is visible all-or-nothing. The upsert's row lock
// on customers serializes concurrent batches touching the same external id.
type CustomerRepository struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.PipelineMetrics
}

func NewCustomerRepository(db *sql.DB, logger *slog.Logger, m *metrics.PipelineMetrics) *CustomerRepository {
	return &CustomerRepository{
		db:      db,
		logger:  logger.With("component", "customer_repository"),
		metrics: m,
	}
}

const upsertCustomerQuery = `
	INSERT INTO customers (external_id, name, email, phone, status, last_batch_number, last_analytics_timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (external_id) DO UPDATE SET
		name = EXCLUDED.name,
		email = EXCLUDED.email,
		phone = EXCLUDED.phone,
		status = EXCLUDED.status,
		last_batch_number = EXCLUDED.last_batch_number,
		last_analytics_timestamp = EXCLUDED.last_analytics_timestamp
	RETURNING id`

const insertProductQuery = `
	INSERT INTO products (external_id, name, category, price, stock_level, customer_id)
	VALUES ($1, $2, $3, $4, $5, $6)`

// ApplyBatch upserts every applicable record of the batch. Records with no
// customer or an empty product list are skipped silently; for the rest the
// customer's scalar fields are overwritten and its product set replaced.
func (r *CustomerRepository) ApplyBatch(ctx context.Context, batch domain.Batch) error {
	applicable := make([]domain.MergedRecord, 0, len(batch.Data))
	for _, record := range batch.Data {
		if record.Applicable() {
			applicable = append(applicable, record)
		}
	}
	if len(applicable) == 0 {
		r.logger.Info("batch contained no applicable records", "batch_number", batch.BatchNumber)
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.failBatch(err)
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	for _, record := range applicable {
		var timestamp sql.NullTime
		if !record.Timestamp.IsZero() {
			timestamp = sql.NullTime{Time: record.Timestamp, Valid: true}
		}

		var customerID int64
		err = txn.QueryRowContext(ctx, upsertCustomerQuery,
			record.Customer.ID,
			record.Customer.Name,
			record.Customer.Email,
			record.Customer.Phone,
			record.Customer.Status,
			batch.BatchNumber,
			timestamp,
		).Scan(&customerID)
		if err != nil {
			return r.failBatch(fmt.Errorf("failed to upsert customer %s: %w", record.Customer.ID, err))
		}

		// The batch's product list is authoritative: wipe whatever was
		// there before and insert the current catalog.
		if _, err := txn.ExecContext(ctx, `DELETE FROM products WHERE customer_id = $1`, customerID); err != nil {
			return r.failBatch(fmt.Errorf("failed to clear products for customer %s: %w", record.Customer.ID, err))
		}

		for _, product := range record.Products {
			_, err := txn.ExecContext(ctx, insertProductQuery,
				product.ID,
				product.Name,
				product.Category,
				product.Price,
				product.StockLevel,
				customerID,
			)
			if err != nil {
				return r.failBatch(fmt.Errorf("failed to insert product %s for customer %s: %w", product.ID, record.Customer.ID, err))
			}
		}
	}

	if err := txn.Commit(); err != nil {
		return r.failBatch(err)
	}

	if r.metrics != nil {
		r.metrics.BatchesApplied.Inc()
		r.metrics.CustomersUpserted.Add(float64(len(applicable)))
	}
	r.logger.Info("applied batch", "batch_number", batch.BatchNumber, "customers", len(applicable))
	return nil
}

// failBatch counts the failure before handing the error back, so every
// ApplyBatch error path lands in the BatchesFailed counter.
func (r *CustomerRepository) failBatch(err error) error {
	if r.metrics != nil {
		r.metrics.BatchesFailed.Inc()
	}
	return err
}

// SaveCustomer upserts a single aggregate's scalar fields. The product set
// is left untouched.
func (r *CustomerRepository) SaveCustomer(ctx context.Context, aggregate domain.CustomerAggregate) error {
	var timestamp sql.NullTime
	if aggregate.LastAnalyticsTimestamp != nil {
		timestamp = sql.NullTime{Time: *aggregate.LastAnalyticsTimestamp, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, upsertCustomerQuery,
		aggregate.ExternalID,
		aggregate.Name,
		aggregate.Email,
		aggregate.Phone,
		aggregate.Status,
		aggregate.LastBatchNumber,
		timestamp,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to save customer %s: %w", aggregate.ExternalID, err)
	}
	return nil
}

// ProjectAll flattens all aggregates into response-ready shape with derived
// totals. Read consistency is whatever the connection's isolation provides;
// read-committed or stronger is required.
func (r *CustomerRepository) ProjectAll(ctx context.Context) ([]domain.ProjectedCustomer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT external_id, name, email, phone, status, COALESCE(last_batch_number, '')
		FROM customers
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var projected []domain.ProjectedCustomer
	index := make(map[string]int)
	for rows.Next() {
		var c domain.ProjectedCustomer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &c.LastBatchNumber); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		c.Products = []domain.ProjectedProduct{}
		index[c.ID] = len(projected)
		projected = append(projected, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		i, ok := index[p.OwnerExternalID]
		if !ok {
			continue
		}
		projected[i].Products = append(projected[i].Products, domain.ProjectedProduct{
			ID:         p.ExternalID,
			Name:       p.Name,
			Category:   p.Category,
			Price:      p.Price,
			StockLevel: p.StockLevel,
		})
	}

	for i := range projected {
		projected[i].Summary = domain.Summarize(projected[i].Products)
	}
	return projected, nil
}

// ListProducts returns every product with its owner's external id, ordered
// stably for export.
func (r *CustomerRepository) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.external_id, p.name, COALESCE(p.category, ''), p.price, COALESCE(p.stock_level, 0), c.external_id
		FROM products p
		JOIN customers c ON c.id = p.customer_id
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.ProductRecord
	for rows.Next() {
		var p domain.ProductRecord
		if err := rows.Scan(&p.ExternalID, &p.Name, &p.Category, &p.Price, &p.StockLevel, &p.OwnerExternalID); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
