package config

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal"
	"github.com/transparenciamx/numeralia/internal/endpoint"
	"github.com/transparenciamx/numeralia/internal/fetch"
	"github.com/transparenciamx/numeralia/internal/local"
	"github.com/transparenciamx/numeralia/internal/monitor"
	"github.com/transparenciamx/numeralia/internal/report"
	"github.com/transparenciamx/numeralia/internal/retry"
	"github.com/transparenciamx/numeralia/internal/s3"
	"github.com/transparenciamx/numeralia/internal/token"
)

// InitializeMonitors builds one Monitor per configured system.
func InitializeMonitors(c *Numeralia, logger *zap.Logger) ([]*monitor.Monitor, error) {
	archive, err := initializeArchive(c.Archive, logger)
	if err != nil {
		return nil, err
	}

	monitors := make([]*monitor.Monitor, 0, len(c.Systems))
	for _, sys := range c.Systems {
		m, err := initializeMonitor(c, sys, archive, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing system %s: %w", sys.Name, err)
		}
		monitors = append(monitors, m)
	}

	return monitors, nil
}

func initializeMonitor(c *Numeralia, sys System, archive internal.Repository, logger *zap.Logger) (*monitor.Monitor, error) {
	timeout, err := parseDuration(sys.Timeout, fetch.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing timeout: %w", err)
	}
	slowTimeout, err := parseDuration(sys.SlowTimeout, fetch.SlowTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing slow_timeout: %w", err)
	}
	pace, err := parseDuration(sys.Pace, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing pace: %w", err)
	}
	baseDelay, err := parseDuration(sys.Retry.BaseDelay, retry.DefaultBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("parsing retry.base_delay: %w", err)
	}

	clientOpts := []fetch.ClientOption{fetch.ClientWithTimeout(timeout)}
	if sys.InsecureTLS {
		clientOpts = append(clientOpts, fetch.ClientWithInsecureTLS())
	}
	client := fetch.NewClient(clientOpts...)
	slowClient := fetch.NewClient(fetch.ClientWithTimeout(slowTimeout))

	var catalog endpoint.Catalog
	if sys.CatalogPath != "" {
		catalog, err = endpoint.LoadCatalog(sys.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("loading provider catalog: %w", err)
		}
	}

	var source endpoint.Source
	if sys.ProvidersURL != "" {
		source = endpoint.NewDirectory(client, sys.ProvidersURL,
			endpoint.DirectoryWithLogger(logger),
			endpoint.DirectoryWithCatalog(catalog),
			endpoint.DirectoryWithSearchURL(sys.SearchURL),
		)
	} else {
		source = &endpoint.FileSource{
			Path:    sys.EndpointsPath,
			Catalog: catalog,
		}
	}

	outputPath := sys.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(c.Output.Path, sys.Name)
	}

	recorderOpts := []report.Option{report.WithLogger(logger)}
	if c.Output.FallbackPath != "" {
		recorderOpts = append(recorderOpts, report.WithFallbackDir(filepath.Join(c.Output.FallbackPath, sys.Name)))
	}

	recorder, err := report.NewRecorder(outputPath, sys.Name, recorderOpts...)
	if err != nil {
		return nil, err
	}

	fetcherOpts := []fetch.Option{fetch.WithLogger(logger)}
	if sys.PageSize > 0 {
		fetcherOpts = append(fetcherOpts, fetch.WithPageSize(sys.PageSize))
	}

	static := make([]endpoint.Descriptor, 0, len(sys.Special))
	for _, sp := range sys.Special {
		static = append(static, endpoint.Descriptor{
			SupplierID:   sp.SupplierID,
			SupplierName: sp.SupplierName,
			URL:          sp.URL,
			Kind:         endpoint.Kind(sp.Type),
		})
	}

	opts := []monitor.Option{
		monitor.WithLogger(logger),
		monitor.WithSource(source),
		monitor.WithStaticProviders(static),
		monitor.WithSpecial(fetch.NewSpecial(client, slowClient, fetch.SpecialWithLogger(logger))),
		monitor.WithFetcher(fetch.NewFetcher(client, fetcherOpts...)),
		monitor.WithAcquirer(token.NewAcquirer(client, token.WithLogger(logger))),
		monitor.WithRecorder(recorder),
		monitor.WithRetry(retry.Config{
			MaxAttempts: sys.Retry.MaxAttempts,
			BaseDelay:   baseDelay,
		}),
		monitor.WithPace(pace),
	}

	if sys.GroupSize > 0 {
		opts = append(opts, monitor.WithGroupSize(sys.GroupSize))
	}
	if archive != nil {
		opts = append(opts, monitor.WithArchive(archive))
	}

	return monitor.New(sys.Name, opts...), nil
}

func initializeArchive(a Archive, logger *zap.Logger) (internal.Repository, error) {
	switch a.Type {
	case "":
		return nil, nil
	case "local":
		return local.New(
			a.LocalConfig.Path,
			local.WithLogger(logger),
		), nil
	case "s3":
		return s3.New(
			s3.WithLogger(logger),
			s3.WithRegion(a.S3Config.Region),
			s3.WithBucket(a.S3Config.Bucket),
			s3.WithPrefix(a.S3Config.Prefix),
			s3.WithEndpoint(a.S3Config.Endpoint),
			s3.WithForcePathStyle(a.S3Config.ForcePathStyle),
		), nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", a.Type)
	}
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
