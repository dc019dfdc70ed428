package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/user/integration-hub/internal/adapter/metrics"
	"github.com/user/integration-hub/internal/domain"
)

// Counts reports how many records each side of a fetch-and-publish run
// pushed to the broker.
type Counts struct {
	CustomersPublished int `json:"customers_published"`
	ProductsPublished  int `json:"products_published"`
}

// OrchestratorOptions tune pagination and failure reporting.
type OrchestratorOptions struct {
	// PageSize is the fixed page size per upstream call.
	PageSize int

	// WalkPages walks pages while the upstream reports has_next, bounded
	// by MaxPages. When false only page 0 is fetched per invocation.
	WalkPages bool
	MaxPages  int

	// Strict surfaces a combined error when a side fails instead of the
	// default zero-count-plus-log behavior.
	Strict bool
}

// FetchOrchestrator coordinates the customer and product fetch-and-publish
// paths. The two sides are independent: they run concurrently and one side's
// failure never cancels the other's in-flight work.
type FetchOrchestrator struct {
	crm       domain.CRMClient
	inventory domain.InventoryClient
	publisher domain.MessagePublisher
	logger    *slog.Logger
	metrics   *metrics.PipelineMetrics
	opts      OrchestratorOptions
}

func NewFetchOrchestrator(
	crm domain.CRMClient,
	inventory domain.InventoryClient,
	publisher domain.MessagePublisher,
	logger *slog.Logger,
	m *metrics.PipelineMetrics,
	opts OrchestratorOptions,
) *FetchOrchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &FetchOrchestrator{
		crm:       crm,
		inventory: inventory,
		publisher: publisher,
		logger:    logger.With("component", "fetch_orchestrator"),
		metrics:   m,
		opts:      opts,
	}
}

// FetchAndPublishAll runs both sides concurrently and waits for both before
// reporting combined counts. In lenient mode a failed side's cause is logged
// and only its published count is reported; in strict mode the errors are
// joined and returned alongside the counts. With page walking enabled a side
// that fails mid-walk still reports the records it published before the
// failure: those records reached the broker, so the count stays honest even
// though the walk was cut short. The caller's ctx bounds the wait.
func (o *FetchOrchestrator) FetchAndPublishAll(ctx context.Context) (Counts, error) {
	var (
		wg      sync.WaitGroup
		counts  Counts
		custErr error
		prodErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		counts.CustomersPublished, custErr = o.fetchAndPublishCustomers(ctx)
	}()
	go func() {
		defer wg.Done()
		counts.ProductsPublished, prodErr = o.fetchAndPublishProducts(ctx)
	}()
	wg.Wait()

	if o.opts.Strict {
		return counts, errors.Join(custErr, prodErr)
	}
	return counts, nil
}

// FetchAndPublishCustomers runs the customer side only.
func (o *FetchOrchestrator) FetchAndPublishCustomers(ctx context.Context) (int, error) {
	count, err := o.fetchAndPublishCustomers(ctx)
	if o.opts.Strict {
		return count, err
	}
	return count, nil
}

// FetchAndPublishProducts runs the product side only.
func (o *FetchOrchestrator) FetchAndPublishProducts(ctx context.Context) (int, error) {
	count, err := o.fetchAndPublishProducts(ctx)
	if o.opts.Strict {
		return count, err
	}
	return count, nil
}

func (o *FetchOrchestrator) fetchAndPublishCustomers(ctx context.Context) (int, error) {
	published := 0
	for page := 0; page < o.maxPages(); page++ {
		result, err := o.crm.FetchCustomers(ctx, page, o.opts.PageSize)
		if err != nil {
			o.observeFailure("customers", err)
			return published, err
		}

		if err := o.publisher.Publish(ctx, domain.RoutingKeyCustomers, result.Content); err != nil {
			o.observeFailure("customers", err)
			return published, err
		}
		published += len(result.Content)

		if !o.opts.WalkPages || !result.HasNext {
			break
		}
	}

	if o.metrics != nil {
		o.metrics.FetchesTotal.WithLabelValues("customers", "ok").Inc()
		o.metrics.RecordsPublished.WithLabelValues("customers").Add(float64(published))
	}
	o.logger.Info("published customers", "count", published)
	return published, nil
}

func (o *FetchOrchestrator) fetchAndPublishProducts(ctx context.Context) (int, error) {
	published := 0
	for page := 0; page < o.maxPages(); page++ {
		result, err := o.inventory.FetchProducts(ctx, page, o.opts.PageSize)
		if err != nil {
			o.observeFailure("products", err)
			return published, err
		}

		if err := o.publisher.Publish(ctx, domain.RoutingKeyProducts, result.Content); err != nil {
			o.observeFailure("products", err)
			return published, err
		}
		published += len(result.Content)

		if !o.opts.WalkPages || !result.HasNext {
			break
		}
	}

	if o.metrics != nil {
		o.metrics.FetchesTotal.WithLabelValues("products", "ok").Inc()
		o.metrics.RecordsPublished.WithLabelValues("products").Add(float64(published))
	}
	o.logger.Info("published products", "count", published)
	return published, nil
}

func (o *FetchOrchestrator) maxPages() int {
	if !o.opts.WalkPages {
		return 1
	}
	return o.opts.MaxPages
}

func (o *FetchOrchestrator) observeFailure(resource string, err error) {
	if o.metrics != nil {
		o.metrics.FetchesTotal.WithLabelValues(resource, "error").Inc()
	}
	o.logger.Error("failed to fetch/publish "+resource, "error", err)
}
