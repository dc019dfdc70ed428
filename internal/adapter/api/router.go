package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/user/integration-hub/internal/adapter/api/handler"
	"github.com/user/integration-hub/internal/adapter/api/middleware"
	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/usecase"
)

// NewRouter creates and configures the main HTTP router for the hub service.
func NewRouter(
	logger *slog.Logger,
	orchestrator *usecase.FetchOrchestrator,
	ingest *usecase.IngestBatchUseCase,
	addCustomer *usecase.AddCustomerUseCase,
	soap domain.SoapClient,
	store domain.CustomerStore,
	fetchTimeout time.Duration,
) http.Handler {
	mux := http.NewServeMux()

	analyticsHandler := handler.NewAnalyticsHandler(ingest, addCustomer, orchestrator, store, logger, fetchTimeout)
	triggerHandler := handler.NewTriggerHandler(orchestrator, soap, logger, fetchTimeout)

	// Analytics side: ingestion, read path, exports.
	mux.HandleFunc("POST /analytics/api/data", analyticsHandler.IngestBatch)
	mux.HandleFunc("GET /analytics/api/customers", analyticsHandler.ListCustomers)
	mux.HandleFunc("POST /analytics/api/customers", analyticsHandler.AddCustomer)
	mux.HandleFunc("GET /analytics/api/customers/export", analyticsHandler.ExportCustomersCSV)
	mux.HandleFunc("GET /analytics/api/products/export", analyticsHandler.ExportProductsCSV)
	mux.HandleFunc("POST /analytics/api/refresh", analyticsHandler.Refresh)
	mux.HandleFunc("POST /analytics/api/refresh/customers", analyticsHandler.RefreshCustomers)
	mux.HandleFunc("POST /analytics/api/refresh/products", analyticsHandler.RefreshProducts)

	// Producer side: manual triggers.
	mux.HandleFunc("POST /api/trigger/fetch-all", triggerHandler.FetchAll)
	mux.HandleFunc("POST /api/trigger/fetch-customers", triggerHandler.FetchCustomers)
	mux.HandleFunc("POST /api/trigger/fetch-products", triggerHandler.FetchProducts)
	mux.HandleFunc("POST /api/trigger/add-customer-soap", triggerHandler.AddCustomerSoap)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return middleware.Logging(logger)(mux)
}
