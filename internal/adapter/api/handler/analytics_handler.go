package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/usecase"
)

// AnalyticsHandler serves the consumer-facing API: batch ingestion, the
// customer projection, CSV exports, refresh triggers and add-customer.
type AnalyticsHandler struct {
	ingest       *usecase.IngestBatchUseCase
	addCustomer  *usecase.AddCustomerUseCase
	orchestrator *usecase.FetchOrchestrator
	store        domain.CustomerStore
	logger       *slog.Logger
	fetchTimeout time.Duration
}

func NewAnalyticsHandler(
	ingest *usecase.IngestBatchUseCase,
	addCustomer *usecase.AddCustomerUseCase,
	orchestrator *usecase.FetchOrchestrator,
	store domain.CustomerStore,
	logger *slog.Logger,
	fetchTimeout time.Duration,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		ingest:       ingest,
		addCustomer:  addCustomer,
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// IngestBatch accepts a merged batch. The response is 202 with the record
// count even for an empty batch; only a store failure is an error.
func (h *AnalyticsHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var batch domain.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch payload")
		return
	}

	records, err := h.ingest.Ingest(r.Context(), batch)
	if err != nil {
		h.logger.Error("failed to apply batch", "batch_number", batch.BatchNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply batch")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"batchNumber": batch.BatchNumber,
		"records":     records,
	})
}

// ListCustomers returns the projected customers.
func (h *AnalyticsHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ProjectAll(r.Context())
	if err != nil {
		h.logger.Error("failed to project customers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}
	if customers == nil {
		customers = []domain.ProjectedCustomer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// AddCustomer validates the request, creates the customer upstream via SOAP
// and persists the local aggregate.
func (h *AnalyticsHandler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	var req usecase.AddCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.addCustomer.AddCustomer(r.Context(), req)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		h.logger.Error("failed to add customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add customer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "created",
		"customer_id":  result.CustomerID,
		"soap_success": result.SoapSuccess,
		"soap_message": result.SoapMessage,
	})
}

// Refresh runs both orchestrator sides and echoes the counts.
func (h *AnalyticsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	counts, err := h.orchestrator.FetchAndPublishAll(ctx)
	if err != nil {
		h.logger.Warn("refresh completed with failures", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "refresh-triggered",
		"customers_published": counts.CustomersPublished,
		"products_published":  counts.ProductsPublished,
	})
}

// RefreshCustomers runs the customer side only.
func (h *AnalyticsHandler) RefreshCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	count, err := h.orchestrator.FetchAndPublishCustomers(ctx)
	if err != nil {
		h.logger.Warn("customer refresh completed with failures", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "customers-refresh-triggered",
		"customers_published": count,
	})
}

// RefreshProducts runs the product side only.
func (h *AnalyticsHandler) RefreshProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	count, err := h.orchestrator.FetchAndPublishProducts(ctx)
	if err != nil {
		h.logger.Warn("product refresh completed with failures", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "products-refresh-triggered",
		"products_published": count,
	})
}

// ExportCustomersCSV streams all customers as CSV with derived totals.
func (h *AnalyticsHandler) ExportCustomersCSV(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ProjectAll(r.Context())
	if err != nil {
		h.logger.Error("failed to export customers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export customers")
		return
	}

	setCSVHeaders(w, "customers.csv")
	writer := csv.NewWriter(w)
	writer.Write([]string{"id", "name", "email", "phone", "status", "total_products", "total_value"})
	for _, c := range customers {
		writer.Write([]string{
			c.ID,
			c.Name,
			c.Email,
			c.Phone,
			c.Status,
			strconv.Itoa(c.Summary.TotalProducts),
			c.Summary.TotalValue.String(),
		})
	}
	writer.Flush()
}

// ExportProductsCSV streams all product records as CSV.
func (h *AnalyticsHandler) ExportProductsCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to export products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export products")
		return
	}

	setCSVHeaders(w, "products.csv")
	writer := csv.NewWriter(w)
	writer.Write([]string{"id", "name", "category", "price", "stock_level", "customer_id"})
	for _, p := range products {
		price := ""
		if p.Price.Valid {
			price = p.Price.Decimal.String()
		}
		writer.Write([]string{
			p.ExternalID,
			p.Name,
			p.Category,
			price,
			strconv.Itoa(p.StockLevel),
			p.OwnerExternalID,
		})
	}
	writer.Flush()
}

func (h *AnalyticsHandler) fetchContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.fetchTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, h.fetchTimeout)
}

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; nothing left to do.
		return
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
