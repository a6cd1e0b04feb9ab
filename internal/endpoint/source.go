package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Source enumerates the providers to poll in one run.
type Source interface {
	Providers(ctx context.Context) ([]Descriptor, error)
}

// FileSource reads descriptors from a static credentials file: a JSON array
// of endpoint objects.
type FileSource struct {
	Path    string
	Catalog Catalog
}

func (s *FileSource) Providers(ctx context.Context) ([]Descriptor, error) {
	bs, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading endpoints file: %w", err)
	}

	var descriptors []Descriptor
	if err := json.Unmarshal(bs, &descriptors); err != nil {
		return nil, fmt.Errorf("parsing endpoints file %s: %w", s.Path, err)
	}

	for i := range descriptors {
		if descriptors[i].SupplierName == "" && s.Catalog != nil {
			descriptors[i].SupplierName = s.Catalog.Name(descriptors[i].SupplierID)
		}
	}

	return descriptors, nil
}

type DirectoryOption func(*Directory)

func DirectoryWithLogger(logger *zap.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = logger
	}
}

func DirectoryWithCatalog(catalog Catalog) DirectoryOption {
	return func(d *Directory) {
		d.catalog = catalog
	}
}

// DirectoryWithSearchURL sets the count query endpoint stamped onto every
// descriptor the directory returns. Directory listings only carry supplier
// ids; the query endpoint itself is shared per system.
func DirectoryWithSearchURL(url string) DirectoryOption {
	return func(d *Directory) {
		d.searchURL = url
	}
}

// Directory fetches the provider list from the platform's directory
// endpoint once per run.
type Directory struct {
	client    *http.Client
	url       string
	searchURL string
	catalog   Catalog
	logger    *zap.Logger
}

func NewDirectory(client *http.Client, url string, opts ...DirectoryOption) *Directory {
	d := &Directory{
		client: client,
		url:    url,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// directoryEnvelope covers the wrapped response shape some systems use.
type directoryEnvelope struct {
	Data []Descriptor `json:"data"`
}

func (d *Directory) Providers(ctx context.Context) ([]Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching provider directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The directory returns either a bare array or a {"data": [...]} envelope.
	var descriptors []Descriptor
	if err := json.Unmarshal(body, &descriptors); err != nil {
		var envelope directoryEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("parsing provider directory response: %w", err)
		}
		descriptors = envelope.Data
	}

	for i := range descriptors {
		if descriptors[i].URL == "" {
			descriptors[i].URL = d.searchURL
		}
		if descriptors[i].SupplierName == "" && d.catalog != nil {
			descriptors[i].SupplierName = d.catalog.Name(descriptors[i].SupplierID)
		}
	}

	d.logger.Info("provider directory fetched",
		zap.String("url", d.url),
		zap.Int("providers", len(descriptors)),
	)

	return descriptors, nil
}
