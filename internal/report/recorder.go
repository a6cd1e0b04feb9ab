package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal/endpoint"
)

const (
	detailHeader  = "FECHA_EJECUCION,HORA_EJECUCION,ENTE_PUBLICO,TOTAL_REGISTROS,ESTATUS\n"
	summaryHeader = "FECHA_EJECUCION,TOTAL_REGISTROS,SISTEMA\n"

	statusAvailable   = "Disponible"
	valueUnavailable  = "No disponible"
	generalErrorLabel = "Error general"
)

type Option func(*Recorder)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithFallbackDir sets the alternate directory tried when a row cannot be
// written to the primary one.
func WithFallbackDir(dir string) Option {
	return func(r *Recorder) {
		r.fallbackDir = dir
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder appends one detail row per outcome as it arrives and keeps the
// running total of available counts. Finalize appends the summary row.
// A fresh Recorder is built per run; the total starts at zero.
type Recorder struct {
	dir         string
	fallbackDir string
	system      string
	logger      *zap.Logger
	now         func() time.Time

	mu          sync.Mutex
	total       int64
	rows        int
	available   int
	unavailable int
}

func NewRecorder(dir, system string, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		dir:    dir,
		system: system,
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return r, nil
}

// DetailPath is the per-run-date detail report file.
func (r *Recorder) DetailPath() string {
	return filepath.Join(r.dir, r.detailName())
}

// SummaryPath is the cumulative totals file, one row appended per run.
func (r *Recorder) SummaryPath() string {
	return filepath.Join(r.dir, "resultados_total.csv")
}

func (r *Recorder) detailName() string {
	return fmt.Sprintf("resultados_%s_%s.csv", r.system, r.now().Format("20060102"))
}

// Record appends one formatted row immediately. Only available outcomes
// contribute to the running total.
func (r *Recorder) Record(o endpoint.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	date := o.Timestamp.Format("2006-01-02")
	hour := o.Timestamp.Format("15:04:05")

	total := valueUnavailable
	status := o.Reason
	if o.Available {
		total = strconv.FormatInt(o.TotalRecords, 10)
		status = statusAvailable
		r.total += o.TotalRecords
		r.available++
	} else {
		r.unavailable++
	}

	r.rows++

	row := formatRow(date, hour, o.SupplierName, total, status)
	return r.append(r.detailName(), detailHeader, row)
}

// RecordGeneralError appends a single run-level failure row, used when the
// run aborts before producing per-provider outcomes.
func (r *Recorder) RecordGeneralError(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	row := formatRow(
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		generalErrorLabel,
		valueUnavailable,
		reason,
	)
	return r.append(r.detailName(), detailHeader, row)
}

// Finalize appends the summary row with the run timestamp and the running
// total. It runs exactly once, after every provider has an outcome.
func (r *Recorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := formatRow(
		r.now().Format("2006-01-02 15:04:05"),
		strconv.FormatInt(r.total, 10),
		r.system,
	)
	return r.append("resultados_total.csv", summaryHeader, row)
}

func (r *Recorder) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Stats returns rows written, available and unavailable outcome counts.
func (r *Recorder) Stats() (rows, available, unavailable int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows, r.available, r.unavailable
}

// Files lists the report files of this run, for archival.
func (r *Recorder) Files() []string {
	return []string{r.DetailPath(), r.SummaryPath()}
}

// append writes the row to the named file under the primary directory,
// creating it with a header when absent. On failure the fallback directory
// is tried; if that fails too, the row is logged and dropped. A write
// failure never aborts the run.
func (r *Recorder) append(name, header, row string) error {
	if err := appendRow(filepath.Join(r.dir, name), header, row); err != nil {
		r.logger.Error("writing report row failed",
			zap.String("path", filepath.Join(r.dir, name)),
			zap.Error(err),
		)

		if r.fallbackDir == "" {
			return nil
		}

		if err := os.MkdirAll(r.fallbackDir, 0o755); err != nil {
			r.logger.Error("creating fallback directory failed", zap.Error(err))
			return nil
		}

		if err := appendRow(filepath.Join(r.fallbackDir, name), header, row); err != nil {
			r.logger.Error("writing fallback report row failed",
				zap.String("path", filepath.Join(r.fallbackDir, name)),
				zap.String("row", row),
				zap.Error(err),
			)
		}
	}

	return nil
}

func appendRow(path, header, row string) error {
	_, err := os.Stat(path)
	writeHeader := os.IsNotExist(err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if writeHeader {
		if _, err := f.WriteString(header); err != nil {
			return err
		}
	}

	if _, err := f.WriteString(row); err != nil {
		return err
	}

	return f.Close()
}
