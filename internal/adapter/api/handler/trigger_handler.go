package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/integration-hub/internal/domain"
	"github.com/user/integration-hub/internal/usecase"
)

// TriggerHandler serves the producer-facing manual triggers.
type TriggerHandler struct {
	orchestrator *usecase.FetchOrchestrator
	soap         domain.SoapClient
	logger       *slog.Logger
	fetchTimeout time.Duration
}

func NewTriggerHandler(orchestrator *usecase.FetchOrchestrator, soap domain.SoapClient, logger *slog.Logger, fetchTimeout time.Duration) *TriggerHandler {
	return &TriggerHandler{
		orchestrator: orchestrator,
		soap:         soap,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// FetchAll triggers both fetch-and-publish sides.
func (h *TriggerHandler) FetchAll(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("manual trigger: fetching all data")
	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	counts, err := h.orchestrator.FetchAndPublishAll(ctx)
	if err != nil {
		h.logger.Warn("fetch-all completed with failures", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "completed",
		"customers_published": counts.CustomersPublished,
		"products_published":  counts.ProductsPublished,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

// FetchCustomers triggers the customer side only.
func (h *TriggerHandler) FetchCustomers(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("manual trigger: fetching customers")
	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	count, err := h.orchestrator.FetchAndPublishCustomers(ctx)
	if err != nil {
		h.logger.Warn("customer fetch completed with failures", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "completed",
		"customers_published": count,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

// FetchProducts triggers the product side only.
func (h *TriggerHandler) FetchProducts(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("manual trigger: fetching products")
	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	count, err := h.orchestrator.FetchAndPublishProducts(ctx)
	if err != nil {
		h.logger.Warn("product fetch completed with failures", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "completed",
		"products_published": count,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

// AddCustomerSoap forwards a raw add-customer trigger to the SOAP upstream
// without persisting anything locally.
func (h *TriggerHandler) AddCustomerSoap(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("manual trigger: adding customer via SOAP")

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = map[string]string{}
	}

	result := h.soap.AddCustomer(r.Context(),
		valueOr(req, "first_name", "John"),
		valueOr(req, "last_name", "Doe"),
		valueOr(req, "email", "john.doe@example.com"),
		valueOr(req, "phone", "+1234567890"),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"soap_success": result.Success,
		"customer_id":  result.CustomerID,
		"soap_message": result.Message,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *TriggerHandler) fetchContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.fetchTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, h.fetchTimeout)
}

func valueOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
