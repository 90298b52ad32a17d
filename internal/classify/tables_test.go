package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ignite/tradeintel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()
	require.NoError(t, tables.Validate())

	assert.Equal(t, "2024.1", tables.Version)
	assert.Equal(t, []string{"A1", "F4", "IN", "A3", "AF", "OTHERS"}, tables.labels(domain.DimRegime))
	assert.Equal(t, []string{"84", "85", "90", "73", "74", "OTHERS"}, tables.labels(domain.DimCommodity))
	assert.Len(t, tables.Port.Rules, 5)
	assert.Equal(t, "NUEVO_LAREDO", tables.Port.Rules[0].Label)
}

func TestLoadTables_OverridesSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	content := `
version: "2025.2"
incoterm:
  fallback: OTHERS
  labels: [DAP, EXW, FCA, CIF]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	assert.Equal(t, "2025.2", tables.Version)
	assert.Equal(t, []string{"DAP", "EXW", "FCA", "CIF"}, tables.Incoterm.Labels)
	// untouched sections keep defaults
	assert.Equal(t, "NOT_DECLARED", tables.Transport.Fallback)
	assert.Len(t, tables.Origin.Rules, 7)

	c, err := New(tables)
	require.NoError(t, err)
	assert.Equal(t, "CIF", c.Classify(domain.DimIncoterm, "CIF"))
}

func TestLoadTables_EmptyPath(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), tables)
}

func TestLoadTables_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing fallback", "regime:\n  fallback: \"\"\n  labels: [A1]\n"},
		{"duplicate label", "incoterm:\n  fallback: OTHERS\n  labels: [DAP, DAP]\n"},
		{"fallback repeats a label", "incoterm:\n  fallback: DAP\n  labels: [DAP]\n"},
		{"bad yaml", "transport: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tables.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadTables(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadTables_MissingFile(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
