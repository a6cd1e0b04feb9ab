package report

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatField(t *testing.T) {
	t.Run("plain value passes through", func(t *testing.T) {
		assert.Equal(t, "SESNA", formatField("SESNA"))
	})

	t.Run("comma is quoted", func(t *testing.T) {
		assert.Equal(t, `"Secretaría, Anticorrupción"`, formatField("Secretaría, Anticorrupción"))
	})

	t.Run("internal quotes are doubled", func(t *testing.T) {
		assert.Equal(t, `"said ""no"""`, formatField(`said "no"`))
	})

	t.Run("round trips through a standard csv parser", func(t *testing.T) {
		values := []string{
			"plain",
			"with, comma",
			`with "quotes"`,
			"with\nnewline",
			`everything, "at" once` + "\nand more",
		}

		for _, value := range values {
			row := formatRow("2025-01-02", value, "0")

			records, err := csv.NewReader(strings.NewReader(row)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, value, records[0][1])
		}
	})
}
