package upstream

import (
	"fmt"
	"log/slog"

	"context"

	"github.com/carlmjohnson/requests"
	"github.com/user/integration-hub/internal/domain"
)

// Credentials are the username/password pair exchanged for a bearer token.
type Credentials struct {
	Username string
	Password string
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AuthClient exchanges per-system credentials for bearer tokens against the
// upstream credential endpoint. Its Exchange method satisfies ExchangeFunc.
type AuthClient struct {
	baseURL     string
	credentials map[string]Credentials
	logger      *slog.Logger
}

func NewAuthClient(baseURL string, credentials map[string]Credentials, logger *slog.Logger) *AuthClient {
	return &AuthClient{
		baseURL:     baseURL,
		credentials: credentials,
		logger:      logger.With("component", "auth_client"),
	}
}

// Exchange posts the system's credentials and returns the issued token. An
// unknown system, a failed call, or a response without a token all fail with
// ErrAuthFailure.
func (a *AuthClient) Exchange(ctx context.Context, system string) (string, error) {
	creds, ok := a.credentials[system]
	if !ok {
		return "", fmt.Errorf("%w: no credentials configured for %s", domain.ErrAuthFailure, system)
	}

	var resp tokenResponse
	err := requests.URL(a.baseURL).
		Path("/auth/token").
		BodyJSON(&authRequest{Username: creds.Username, Password: creds.Password}).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		a.logger.Error("credential exchange failed", "system", system, "error", err)
		return "", fmt.Errorf("%w: %s: %v", domain.ErrAuthFailure, system, err)
	}

	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: %s returned no access_token", domain.ErrAuthFailure, system)
	}
	return resp.AccessToken, nil
}
