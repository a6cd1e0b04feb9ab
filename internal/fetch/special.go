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

// Default endpoints for the built-in special cases, used when the
// descriptor does not carry its own URL.
const (
	sfpSearchURL = "https://api.plataformadigitalnacional.org/s1/v1/search"
	pueblaURL    = "https://api.plataformadigitalnacional.org/s2/api/v1/search"
	renirespURL  = "https://internal-apis.funcionpublica.gob.mx/pdn/reniresp/"
)

// Func fetches the record count for one non-conforming provider.
type Func func(ctx context.Context, d endpoint.Descriptor) (int64, error)

type SpecialOption func(*Special)

func SpecialWithLogger(logger *zap.Logger) SpecialOption {
	return func(s *Special) {
		s.logger = logger
	}
}

// Special is the lookup table of providers whose API deviates from the
// generic contract. New cases are added with Register, never by branching
// inside the generic fetch path.
type Special struct {
	table  map[string]Func
	logger *zap.Logger
}

// NewSpecial builds the adapter with the built-in cases registered. The
// slow client serves SFP, which routinely takes minutes to answer; the
// shared client serves the rest.
func NewSpecial(client *http.Client, slowClient *http.Client, opts ...SpecialOption) *Special {
	s := &Special{
		table:  make(map[string]Func),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.Register("SFP", sfpDeclarations(slowClient))
	s.Register("PUEBLA", pueblaSearch(client))
	s.Register("RENIRESP", renirespTotal(client))

	return s
}

func (s *Special) Register(supplierID string, fn Func) {
	s.logger.Debug("registering special provider", zap.String("supplier_id", supplierID))
	s.table[supplierID] = fn
}

// Lookup returns the custom fetch function for the supplier, if any.
func (s *Special) Lookup(supplierID string) (Func, bool) {
	fn, ok := s.table[supplierID]
	return fn, ok
}

// sfpDeclarations queries the declarations search endpoint. The server
// rejects the minimal generic payload, so the full empty query object is
// sent.
func sfpDeclarations(client *http.Client) Func {
	type query struct {
		Query      map[string]string `json:"query"`
		Sort       map[string]string `json:"sort"`
		SupplierID string            `json:"supplier_id"`
	}

	return func(ctx context.Context, d endpoint.Descriptor) (int64, error) {
		url := d.URL
		if url == "" {
			url = sfpSearchURL
		}

		payload, err := json.Marshal(query{
			Query: map[string]string{
				"nombres":               "",
				"primerApellido":        "",
				"segundoApellido":       "",
				"nombreEntePublico":     "",
				"entidadFederativa":     "",
				"municipioAlcaldia":     "",
				"empleoCargoComision":   "",
				"nivelOrdenGobierno":    "",
				"escolaridadNivel":      "",
				"formaAdquisicion":      "",
				"totalIngresosNetosMin": "",
				"totalIngresosNetosMax": "",
			},
			Sort:       map[string]string{},
			SupplierID: d.SupplierID,
		})
		if err != nil {
			return 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		setBrowserHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, err
		}

		if resp.StatusCode >= 500 {
			return 0, &StatusError{StatusCode: resp.StatusCode}
		}

		var cr countResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return 0, fmt.Errorf("parsing declarations response: %w", err)
		}

		return totalRows(cr.Pagination.TotalRows)
	}
}

// pueblaSearch uses the generic search contract but with the larger page
// size the provider insists on.
func pueblaSearch(client *http.Client) Func {
	return func(ctx context.Context, d endpoint.Descriptor) (int64, error) {
		url := d.URL
		if url == "" {
			url = pueblaURL
		}

		payload, err := json.Marshal(countQuery{
			Page:       1,
			PageSize:   10,
			SupplierID: d.SupplierID,
		})
		if err != nil {
			return 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		setBrowserHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return 0, &StatusError{StatusCode: resp.StatusCode}
		}

		var cr countResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return 0, fmt.Errorf("parsing search response: %w", err)
		}

		return totalRows(cr.Pagination.TotalRows)
	}
}

// renirespTotal reads the sanctioned-officials registry, which answers a
// bare GET with the total in the response root.
func renirespTotal(client *http.Client) Func {
	type response struct {
		Total json.RawMessage `json:"total"`
	}

	return func(ctx context.Context, d endpoint.Descriptor) (int64, error) {
		url := d.URL
		if url == "" {
			url = renirespURL
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, err
		}
		setBrowserHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return 0, &StatusError{StatusCode: resp.StatusCode}
		}

		var r response
		if err := json.Unmarshal(body, &r); err != nil {
			return 0, fmt.Errorf("parsing registry response: %w", err)
		}

		return totalRows(r.Total)
	}
}
