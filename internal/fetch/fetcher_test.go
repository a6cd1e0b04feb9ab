package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparenciamx/numeralia/internal/endpoint"
)

func TestCount(t *testing.T) {
	t.Run("extracts pagination.totalRows", func(t *testing.T) {
		var captured struct {
			body    []byte
			bearer  string
			origin  string
			content string
		}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured.body, _ = io.ReadAll(r.Body)
			captured.bearer = r.Header.Get("Authorization")
			captured.origin = r.Header.Get("Origin")
			captured.content = r.Header.Get("Content-Type")

			w.Write([]byte(`{"results": [], "pagination": {"page": 1, "pageSize": 1, "totalRows": 120}}`))
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client())
		d := endpoint.Descriptor{SupplierID: "SESNA", URL: srv.URL}

		count, err := f.Count(context.Background(), d, "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(120), count)

		assert.Equal(t, "Bearer abc123", captured.bearer)
		assert.Equal(t, "https://www.plataformadigitalnacional.org", captured.origin)
		assert.Contains(t, captured.content, "application/json")

		var query map[string]any
		require.NoError(t, json.Unmarshal(captured.body, &query))
		assert.Equal(t, float64(1), query["page"])
		assert.Equal(t, float64(1), query["pageSize"])
		assert.Equal(t, "SESNA", query["supplier_id"])
	})

	t.Run("zero rows is a valid count", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pagination": {"totalRows": 0}}`))
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client())
		count, err := f.Count(context.Background(), endpoint.Descriptor{URL: srv.URL}, "")

		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("missing totalRows is a malformed count", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pagination": {"page": 1}}`))
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client())
		_, err := f.Count(context.Background(), endpoint.Descriptor{URL: srv.URL}, "")

		var malformed *MalformedCountError
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("non-numeric totalRows keeps the literal value", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pagination": {"totalRows": "No disponible"}}`))
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client())
		_, err := f.Count(context.Background(), endpoint.Descriptor{URL: srv.URL}, "")

		var malformed *MalformedCountError
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, err.Error(), "No disponible")
	})

	t.Run("non-2xx is a status error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream broken", http.StatusBadGateway)
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client())
		_, err := f.Count(context.Background(), endpoint.Descriptor{URL: srv.URL}, "")

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})

	t.Run("descriptor without url cannot be polled", func(t *testing.T) {
		f := NewFetcher(http.DefaultClient)
		_, err := f.Count(context.Background(), endpoint.Descriptor{SupplierID: "X"}, "")
		assert.ErrorIs(t, err, ErrMissingURL)
	})
}

func TestTotalRows(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		n, err := totalRows(json.RawMessage(`42`))
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
	})

	t.Run("whole float", func(t *testing.T) {
		n, err := totalRows(json.RawMessage(`42.0`))
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
	})

	t.Run("negative is malformed", func(t *testing.T) {
		_, err := totalRows(json.RawMessage(`-1`))
		var malformed *MalformedCountError
		assert.ErrorAs(t, err, &malformed)
	})

	t.Run("null is malformed", func(t *testing.T) {
		_, err := totalRows(json.RawMessage(`null`))
		var malformed *MalformedCountError
		assert.ErrorAs(t, err, &malformed)
	})
}
