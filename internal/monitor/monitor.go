package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/transparenciamx/numeralia/internal"
	"github.com/transparenciamx/numeralia/internal/catalog"
	"github.com/transparenciamx/numeralia/internal/endpoint"
	"github.com/transparenciamx/numeralia/internal/fetch"
	"github.com/transparenciamx/numeralia/internal/report"
	"github.com/transparenciamx/numeralia/internal/retry"
	"github.com/transparenciamx/numeralia/internal/token"
)

const DefaultGroupSize = 5

type Option func(*Monitor)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithSource(source endpoint.Source) Option {
	return func(m *Monitor) {
		m.source = source
	}
}

// WithStaticProviders declares providers that are not listed by the
// directory source, typically the special-cased ones.
func WithStaticProviders(descriptors []endpoint.Descriptor) Option {
	return func(m *Monitor) {
		m.static = descriptors
	}
}

func WithSpecial(special *fetch.Special) Option {
	return func(m *Monitor) {
		m.special = special
	}
}

func WithFetcher(fetcher *fetch.Fetcher) Option {
	return func(m *Monitor) {
		m.fetcher = fetcher
	}
}

func WithAcquirer(acquirer *token.Acquirer) Option {
	return func(m *Monitor) {
		m.acquirer = acquirer
	}
}

func WithRecorder(recorder *report.Recorder) Option {
	return func(m *Monitor) {
		m.recorder = recorder
	}
}

func WithRetry(cfg retry.Config) Option {
	return func(m *Monitor) {
		m.retry = cfg
	}
}

// WithGroupSize bounds how many generic providers are queried at once.
// A size of 1 degrades to strictly sequential processing.
func WithGroupSize(n int) Option {
	return func(m *Monitor) {
		m.groupSize = n
	}
}

// WithPace inserts a minimum delay between consecutive calls across the
// whole run.
func WithPace(pace time.Duration) Option {
	return func(m *Monitor) {
		m.pace = pace
	}
}

func WithArchive(repository internal.Repository) Option {
	return func(m *Monitor) {
		m.archive = repository
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// Monitor drives one system's run: enumerate providers, fetch each count
// with bounded concurrency and retries, and stream every outcome to the
// recorder. No single provider failure aborts a run.
type Monitor struct {
	system    string
	source    endpoint.Source
	static    []endpoint.Descriptor
	special   *fetch.Special
	fetcher   *fetch.Fetcher
	acquirer  *token.Acquirer
	recorder  *report.Recorder
	archive   internal.Repository
	retry     retry.Config
	groupSize int
	pace      time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func New(system string, opts ...Option) *Monitor {
	m := &Monitor{
		system:    system,
		groupSize: DefaultGroupSize,
		logger:    zap.NewNop(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Monitor) System() string {
	return m.system
}

// Run executes one full monitoring pass. The returned catalog.Run is valid
// even when err is non-nil; err is only set for run-fatal conditions such as
// an unreachable provider directory.
func (m *Monitor) Run(ctx context.Context) (catalog.Run, error) {
	runID := uuid.Must(uuid.NewUUID()).String()
	l := m.logger.Named("monitor.run").With(
		zap.String("run_id", runID),
		zap.String("system", m.system),
	)

	run := catalog.Run{
		RunID:     runID,
		System:    m.system,
		StartTime: m.now(),
	}

	fsm := NewFSM(FSMWithLogger(l))

	var limiter *rate.Limiter
	if m.pace > 0 {
		limiter = rate.NewLimiter(rate.Every(m.pace), 1)
	}

	descriptors, err := m.loadProviders(ctx)
	if err != nil {
		l.Error("loading providers failed", zap.Error(err))
		fsm.Transition(StateError)

		run.EndTime = m.now()
		run.Error = err.Error()
		if m.recorder != nil {
			m.recorder.RecordGeneralError(err.Error())
		}
		return run, err
	}

	special, generic, skipped := m.partition(descriptors, l)
	run.Providers = len(special) + len(generic)
	run.Skipped = skipped

	l.Info("providers loaded",
		zap.Int("special", len(special)),
		zap.Int("generic", len(generic)),
		zap.Int("skipped", skipped),
	)

	if run.Providers > 0 {
		// Special providers go first and strictly sequentially so a flaky
		// one cannot consume connection-pool capacity meant for the batch.
		fsm.Transition(StateFetchSpecial)
		for _, d := range special {
			m.pollOne(ctx, d, limiter, l)
		}

		if len(generic) > 0 {
			fsm.Transition(StateFetchGeneric)
			m.pollGroups(ctx, generic, limiter, l)
		}
	}

	fsm.Transition(StateFinalize)

	if err := m.recorder.Finalize(); err != nil {
		l.Error("writing summary row failed", zap.Error(err))
	}

	run.EndTime = m.now()
	run.Rows, run.Available, run.Unavailable = m.recorder.Stats()
	run.TotalRecords = m.recorder.Total()
	run.Completed = true

	if err := m.writeCatalog(run); err != nil {
		l.Error("writing run catalog failed", zap.Error(err))
	}

	m.archiveReports(ctx, runID, l)

	fsm.Transition(StateDone)

	l.Info("run finished",
		zap.Int("rows", run.Rows),
		zap.Int("available", run.Available),
		zap.Int("unavailable", run.Unavailable),
		zap.Int64("total_records", run.TotalRecords),
	)

	return run, nil
}

// loadProviders merges the directory listing with the statically-declared
// providers, keeping the first descriptor seen per supplier id.
func (m *Monitor) loadProviders(ctx context.Context) ([]endpoint.Descriptor, error) {
	var descriptors []endpoint.Descriptor

	if m.source != nil {
		listed, err := m.source.Providers(ctx)
		if err != nil {
			return nil, err
		}
		descriptors = listed
	}

	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		seen[d.SupplierID] = struct{}{}
	}

	for _, d := range m.static {
		if _, ok := seen[d.SupplierID]; ok {
			continue
		}
		seen[d.SupplierID] = struct{}{}
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

// partition splits descriptors into special and generic lists, dropping the
// ones that can be polled neither way.
func (m *Monitor) partition(descriptors []endpoint.Descriptor, l *zap.Logger) (special, generic []endpoint.Descriptor, skipped int) {
	for _, d := range descriptors {
		if m.isSpecial(d) {
			special = append(special, d)
			continue
		}

		if d.URL == "" && d.EntitiesURL == "" {
			l.Warn("skipping provider without query url",
				zap.String("supplier_id", d.SupplierID),
				zap.String("supplier_name", d.DisplayName()),
			)
			skipped++
			continue
		}

		generic = append(generic, d)
	}
	return special, generic, skipped
}

func (m *Monitor) isSpecial(d endpoint.Descriptor) bool {
	if m.special == nil {
		return false
	}
	if d.Kind == endpoint.KindSpecial || d.Kind == endpoint.KindGraphQL {
		_, ok := m.special.Lookup(d.SupplierID)
		return ok
	}
	_, ok := m.special.Lookup(d.SupplierID)
	return ok
}

// pollGroups processes generic providers in fixed-size groups. Calls within
// a group run concurrently; group N+1 never starts until all of group N has
// settled, which bounds peak in-flight connections to the group size.
func (m *Monitor) pollGroups(ctx context.Context, descriptors []endpoint.Descriptor, limiter *rate.Limiter, l *zap.Logger) {
	size := m.groupSize
	if size <= 0 {
		size = DefaultGroupSize
	}

	for start := 0; start < len(descriptors); start += size {
		end := start + size
		if end > len(descriptors) {
			end = len(descriptors)
		}

		var g errgroup.Group
		for _, d := range descriptors[start:end] {
			d := d
			g.Go(func() error {
				m.pollOne(ctx, d, limiter, l)
				return nil
			})
		}
		g.Wait()
	}
}

// pollOne produces exactly one outcome for the descriptor, retries
// included, and records it immediately.
func (m *Monitor) pollOne(ctx context.Context, d endpoint.Descriptor, limiter *rate.Limiter, l *zap.Logger) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			m.record(endpoint.Unavailable(d, err.Error(), m.now()), l)
			return
		}
	}

	count, err := retry.Do(ctx, m.retryConfig(l), func() (int64, error) {
		return m.fetchCount(ctx, d)
	})

	if err != nil {
		l.Warn("provider unavailable",
			zap.String("supplier_id", d.SupplierID),
			zap.String("supplier_name", d.DisplayName()),
			zap.Error(err),
		)
		m.record(endpoint.Unavailable(d, err.Error(), m.now()), l)
		return
	}

	l.Info("provider count fetched",
		zap.String("supplier_id", d.SupplierID),
		zap.String("supplier_name", d.DisplayName()),
		zap.Int64("total_records", count),
	)
	m.record(endpoint.Available(d, count, m.now()), l)
}

// fetchCount is the single retried operation: special dispatch, else token
// acquisition followed by the generic count query. Token failures and shape
// mismatches are permanent; transport errors and non-2xx responses stay
// retryable.
func (m *Monitor) fetchCount(ctx context.Context, d endpoint.Descriptor) (int64, error) {
	if m.special != nil {
		if fn, ok := m.special.Lookup(d.SupplierID); ok {
			count, err := fn(ctx, d)
			return count, classify(err)
		}
	}

	bearer, err := m.acquirer.Acquire(ctx, d)
	if err != nil {
		return 0, retry.Permanent(err)
	}

	count, err := m.fetcher.Count(ctx, d, bearer)
	return count, classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	var malformed *fetch.MalformedCountError
	if errors.As(err, &malformed) || errors.Is(err, fetch.ErrMissingURL) {
		return retry.Permanent(err)
	}
	return err
}

func (m *Monitor) record(o endpoint.Outcome, l *zap.Logger) {
	if err := m.recorder.Record(o); err != nil {
		l.Error("recording outcome failed",
			zap.String("supplier_id", o.SupplierID),
			zap.Error(err),
		)
	}
}

func (m *Monitor) retryConfig(l *zap.Logger) retry.Config {
	cfg := m.retry
	if cfg.Logger == nil {
		cfg.Logger = l
	}
	return cfg
}

func (m *Monitor) writeCatalog(run catalog.Run) error {
	dir := filepath.Dir(m.recorder.DetailPath())
	return run.WriteFile(filepath.Join(dir, fmt.Sprintf("catalog_%s.json", m.system)))
}

func (m *Monitor) archiveReports(ctx context.Context, runID string, l *zap.Logger) {
	if m.archive == nil {
		return
	}

	for _, path := range m.recorder.Files() {
		f, err := os.Open(path)
		if err != nil {
			l.Warn("opening report for archive failed", zap.String("path", path), zap.Error(err))
			continue
		}

		key := filepath.Join(runID, filepath.Base(path))
		if err := m.archive.Write(ctx, key, f); err != nil {
			l.Error("archiving report failed", zap.String("key", key), zap.Error(err))
		}
		f.Close()
	}
}
