package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumeraliaFromFile(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		numeralia, err := NewNumeraliaFromFile("testdata/numeralia.yml")
		require.NoError(t, err)
		require.NotNil(t, numeralia)

		require.Len(t, numeralia.Systems, 2)

		s1 := numeralia.Systems[0]
		assert.Equal(t, "s1", s1.Name)
		assert.Equal(t, 5, s1.GroupSize)
		assert.Equal(t, 5, s1.Retry.MaxAttempts)
		require.Len(t, s1.Special, 2)
		assert.Equal(t, "SFP", s1.Special[0].SupplierID)

		s2 := numeralia.Systems[1]
		assert.True(t, s2.InsecureTLS)
		assert.Equal(t, "500ms", s2.Pace)

		assert.Equal(t, "local", numeralia.Archive.Type)
		assert.Equal(t, "./resultados", numeralia.Output.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewNumeraliaFromFile("testdata/missing.yml")
		assert.Error(t, err)
	})

	t.Run("system without any source is rejected", func(t *testing.T) {
		_, err := NewNumeraliaFromFile("testdata/invalid.yml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "neither providers_url nor endpoints_path")
	})
}
