package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal/endpoint"
)

// ErrMissingURL marks a descriptor that cannot be generically polled.
var ErrMissingURL = fmt.Errorf("endpoint has no query url")

// MalformedCountError records a response that parsed but carried a missing
// or non-numeric count field. Retrying will not fix a shape mismatch, so the
// scheduler treats it as permanent.
type MalformedCountError struct {
	Raw string
}

func (e *MalformedCountError) Error() string {
	if e.Raw == "" {
		return "response missing pagination.totalRows"
	}
	return fmt.Sprintf("pagination.totalRows is not numeric: %q", e.Raw)
}

// StatusError is a non-2xx count query response, eligible for retry.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("count query returned status %d", e.StatusCode)
}

type Option func(*Fetcher)

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithPageSize overrides the page size of the count query. The query only
// exists for its pagination header, so the page stays minimal.
func WithPageSize(pageSize int) Option {
	return func(f *Fetcher) {
		f.pageSize = pageSize
	}
}

// Fetcher issues the generic paginated search request and extracts the row
// count from the pagination block. It is stateless; one instance serves all
// providers in a run.
type Fetcher struct {
	client   *http.Client
	pageSize int
	logger   *zap.Logger
}

func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   client,
		pageSize: 1,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type countQuery struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	SupplierID string `json:"supplier_id,omitempty"`
}

type countResponse struct {
	Pagination struct {
		TotalRows json.RawMessage `json:"totalRows"`
	} `json:"pagination"`
}

// Count queries page 1 with a minimal page size and returns
// pagination.totalRows. The bearer token may be empty for open endpoints.
func (f *Fetcher) Count(ctx context.Context, d endpoint.Descriptor, bearer string) (int64, error) {
	if d.URL == "" {
		return 0, ErrMissingURL
	}

	payload, err := json.Marshal(countQuery{
		Page:       1,
		PageSize:   f.pageSize,
		SupplierID: d.SupplierID,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	setBrowserHeaders(req)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("count query failed",
			zap.String("supplier_id", d.SupplierID),
			zap.Int("status", resp.StatusCode),
		)
		return 0, &StatusError{StatusCode: resp.StatusCode}
	}

	var cr countResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return 0, fmt.Errorf("parsing count response: %w", err)
	}

	return totalRows(cr.Pagination.TotalRows)
}

// totalRows validates the extracted count. A missing field or a value that
// is not a non-negative number is a shape mismatch, not a transient fault,
// so the literal offending value is preserved for the report.
func totalRows(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, &MalformedCountError{}
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, &MalformedCountError{Raw: string(raw)}
	}

	n, err := num.Int64()
	if err != nil {
		f, ferr := num.Float64()
		if ferr != nil || f != float64(int64(f)) {
			return 0, &MalformedCountError{Raw: num.String()}
		}
		n = int64(f)
	}

	if n < 0 {
		return 0, &MalformedCountError{Raw: num.String()}
	}

	return n, nil
}
