package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryWrite(t *testing.T) {
	base := t.TempDir()
	r := New(base, WithPrefix("run-1"))

	err := r.Write(context.Background(), "resultados_s1.csv", strings.NewReader("FECHA,TOTAL\n2025-03-14,120\n"))
	require.NoError(t, err)

	bs, err := os.ReadFile(filepath.Join(base, "run-1", "resultados_s1.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(bs), "2025-03-14,120")
}
