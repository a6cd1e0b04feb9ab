package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal/endpoint"
)

// AcquireError marks a failed token exchange. Token failures are terminal
// for the provider's attempt in the current run and are never retried.
type AcquireError struct {
	SupplierID string
	Err        error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquiring token for %s: %v", e.SupplierID, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

type Option func(*Acquirer)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Acquirer) {
		a.logger = logger
	}
}

// Acquirer exchanges stored credentials for a bearer token via the OAuth2
// password grant.
type Acquirer struct {
	client *http.Client
	logger *zap.Logger
}

func NewAcquirer(client *http.Client, opts ...Option) *Acquirer {
	a := &Acquirer{
		client: client,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Acquire returns a bearer token for the descriptor. Descriptors without a
// token URL need no token; the empty string is returned and the caller
// proceeds unauthenticated. Any transport error or non-2xx response yields
// an *AcquireError.
func (a *Acquirer) Acquire(ctx context.Context, d endpoint.Descriptor) (string, error) {
	if !d.RequiresToken() {
		a.logger.Debug("no token url, querying unauthenticated",
			zap.String("supplier_id", d.SupplierID),
		)
		return "", nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", d.Username)
	form.Set("password", d.Password)
	form.Set("client_id", d.ClientID)
	form.Set("client_secret", d.ClientSecret)
	if d.Scope != "" {
		form.Set("scope", d.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AcquireError{SupplierID: d.SupplierID, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(d.ClientID, d.ClientSecret)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("token exchange failed",
			zap.String("supplier_id", d.SupplierID),
			zap.String("supplier_name", d.DisplayName()),
			zap.Error(err),
		)
		return "", &AcquireError{SupplierID: d.SupplierID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AcquireError{SupplierID: d.SupplierID, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Error("token endpoint returned error status",
			zap.String("supplier_id", d.SupplierID),
			zap.Int("status", resp.StatusCode),
		)
		return "", &AcquireError{
			SupplierID: d.SupplierID,
			Err:        fmt.Errorf("token endpoint returned status %d", resp.StatusCode),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &AcquireError{SupplierID: d.SupplierID, Err: fmt.Errorf("parsing token response: %w", err)}
	}

	if tr.AccessToken == "" {
		return "", &AcquireError{SupplierID: d.SupplierID, Err: fmt.Errorf("token response missing access_token")}
	}

	return tr.AccessToken, nil
}
