package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparenciamx/numeralia/internal/endpoint"
)

var testClock = func() time.Time {
	return time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
}

func testOutcome(id string, total int64, available bool, reason string) endpoint.Outcome {
	return endpoint.Outcome{
		SupplierID:   id,
		SupplierName: id,
		TotalRecords: total,
		Available:    available,
		Reason:       reason,
		Timestamp:    testClock(),
	}
}

func TestRecorder(t *testing.T) {
	t.Run("writes header once and appends rows", func(t *testing.T) {
		dir := t.TempDir()
		r, err := NewRecorder(dir, "s1", WithClock(testClock))
		require.NoError(t, err)

		require.NoError(t, r.Record(testOutcome("SESNA", 120, true, "")))
		require.NoError(t, r.Record(testOutcome("SFP", 0, false, "timeout")))

		bs, err := os.ReadFile(r.DetailPath())
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(string(bs), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, strings.TrimRight(detailHeader, "\n"), lines[0])
		assert.Contains(t, lines[1], "SESNA,120,Disponible")
		assert.Contains(t, lines[2], "SFP,No disponible,timeout")
	})

	t.Run("second run appends without rewriting header", func(t *testing.T) {
		dir := t.TempDir()

		first, err := NewRecorder(dir, "s1", WithClock(testClock))
		require.NoError(t, err)
		require.NoError(t, first.Record(testOutcome("SESNA", 1, true, "")))

		second, err := NewRecorder(dir, "s1", WithClock(testClock))
		require.NoError(t, err)
		require.NoError(t, second.Record(testOutcome("SFP", 2, true, "")))

		bs, err := os.ReadFile(second.DetailPath())
		require.NoError(t, err)

		content := string(bs)
		assert.Equal(t, 1, strings.Count(content, "FECHA_EJECUCION"))
		assert.Contains(t, content, "SESNA")
		assert.Contains(t, content, "SFP")
	})

	t.Run("only available outcomes feed the running total", func(t *testing.T) {
		r, err := NewRecorder(t.TempDir(), "s2", WithClock(testClock))
		require.NoError(t, err)

		require.NoError(t, r.Record(testOutcome("A", 120, true, "")))
		require.NoError(t, r.Record(testOutcome("B", 999, false, "token error")))
		require.NoError(t, r.Record(testOutcome("C", 0, true, "")))

		assert.Equal(t, int64(120), r.Total())

		rows, available, unavailable := r.Stats()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 2, available)
		assert.Equal(t, 1, unavailable)
	})

	t.Run("finalize appends one summary row", func(t *testing.T) {
		r, err := NewRecorder(t.TempDir(), "s2", WithClock(testClock))
		require.NoError(t, err)

		require.NoError(t, r.Record(testOutcome("A", 7, true, "")))
		require.NoError(t, r.Finalize())

		bs, err := os.ReadFile(r.SummaryPath())
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(string(bs), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, strings.TrimRight(summaryHeader, "\n"), lines[0])
		assert.Equal(t, "2025-03-14 10:30:00,7,s2", lines[1])
	})

	t.Run("error reasons with commas stay one field", func(t *testing.T) {
		r, err := NewRecorder(t.TempDir(), "s1", WithClock(testClock))
		require.NoError(t, err)

		reason := `Estado: 500, Mensaje: "Internal Server Error"`
		require.NoError(t, r.Record(testOutcome("SESNA", 0, false, reason)))

		bs, err := os.ReadFile(r.DetailPath())
		require.NoError(t, err)
		assert.Contains(t, string(bs), `"Estado: 500, Mensaje: ""Internal Server Error"""`)
	})

	t.Run("falls back to alternate directory when primary is unwritable", func(t *testing.T) {
		primary := filepath.Join(t.TempDir(), "primary")
		fallback := t.TempDir()

		r, err := NewRecorder(primary, "s1", WithClock(testClock), WithFallbackDir(fallback))
		require.NoError(t, err)

		// Make the primary directory unusable after construction.
		require.NoError(t, os.RemoveAll(primary))
		require.NoError(t, os.WriteFile(primary, []byte("not a directory"), 0o644))

		require.NoError(t, r.Record(testOutcome("SESNA", 5, true, "")))

		bs, err := os.ReadFile(filepath.Join(fallback, filepath.Base(r.DetailPath())))
		require.NoError(t, err)
		assert.Contains(t, string(bs), "SESNA,5,Disponible")
	})

	t.Run("general error row carries the reason", func(t *testing.T) {
		r, err := NewRecorder(t.TempDir(), "s3", WithClock(testClock))
		require.NoError(t, err)

		require.NoError(t, r.RecordGeneralError("provider directory returned status 503"))

		bs, err := os.ReadFile(r.DetailPath())
		require.NoError(t, err)
		assert.Contains(t, string(bs), "Error general,No disponible,provider directory returned status 503")
	})
}
