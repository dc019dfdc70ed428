package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/carlmjohnson/requests"
	"github.com/user/integration-hub/internal/domain"
	"golang.org/x/time/rate"
)

// CRMClient fetches paginated customer data from the CRM upstream,
// authenticating via the token cache. It does not retry; retry policy
// belongs to the caller.
type CRMClient struct {
	baseURL string
	tokens  domain.TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewCRMClient(baseURL string, tokens domain.TokenSource, limiter *rate.Limiter, logger *slog.Logger) *CRMClient {
	return &CRMClient{
		baseURL: baseURL,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger.With("component", "crm_client"),
	}
}

// FetchCustomers fetches one page of customers.
func (c *CRMClient) FetchCustomers(ctx context.Context, page, size int) (domain.Page[domain.Customer], error) {
	var out domain.Page[domain.Customer]
	if err := waitLimiter(ctx, c.limiter); err != nil {
		return out, err
	}

	token, err := c.tokens.Token(ctx, domain.SystemCRM)
	if err != nil {
		return out, err
	}

	c.logger.Info("fetching customers from CRM", "page", page, "size", size)
	err = requests.URL(c.baseURL).
		Path("/crm/api/customers").
		Param("page", strconv.Itoa(page)).
		Param("size", strconv.Itoa(size)).
		Bearer(token).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return domain.Page[domain.Customer]{}, classifyFetchError("crm customers", err)
	}
	return out, nil
}

// InventoryClient fetches paginated product data from the Inventory
// upstream.
type InventoryClient struct {
	baseURL string
	tokens  domain.TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewInventoryClient(baseURL string, tokens domain.TokenSource, limiter *rate.Limiter, logger *slog.Logger) *InventoryClient {
	return &InventoryClient{
		baseURL: baseURL,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger.With("component", "inventory_client"),
	}
}

// FetchProducts fetches one page of products.
func (c *InventoryClient) FetchProducts(ctx context.Context, page, size int) (domain.Page[domain.Product], error) {
	var out domain.Page[domain.Product]
	if err := waitLimiter(ctx, c.limiter); err != nil {
		return out, err
	}

	token, err := c.tokens.Token(ctx, domain.SystemInventory)
	if err != nil {
		return out, err
	}

	c.logger.Info("fetching products from Inventory", "page", page, "size", size)
	err = requests.URL(c.baseURL).
		Path("/inventory/api/products").
		Param("page", strconv.Itoa(page)).
		Param("size", strconv.Itoa(size)).
		Bearer(token).
		ToJSON(&out).
		Fetch(ctx)
	if err != nil {
		return domain.Page[domain.Product]{}, classifyFetchError("inventory products", err)
	}
	return out, nil
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// classifyFetchError maps a handler-stage failure (body received but not
// decodable) to ErrDecode so callers can tell "upstream returned garbage"
// from "upstream unreachable".
func classifyFetchError(op string, err error) error {
	if errors.Is(err, requests.ErrHandler) {
		return fmt.Errorf("%w: %s: %v", domain.ErrDecode, op, err)
	}
	return fmt.Errorf("fetch %s: %w", op, err)
}
