package aggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Validate())

	assert.Equal(t, 1, r.Scoring.Base)
	assert.Equal(t, 10, r.Scoring.Max)
	assert.Len(t, r.Scoring.Rules, 8)
	assert.Equal(t, ScoreRule{Metric: MetricOriginUSA, GT: 0, Points: 2}, r.Scoring.Rules[5])
	assert.Equal(t, 5, r.Brokers.TopN)
	assert.Equal(t, ", ", r.Brokers.Separator)
	assert.Equal(t, 30.0, r.Flags.OceanFreight.GT)
	assert.Equal(t, 5, r.Flags.SupplyChain.BrokersGT)
}

func TestLoadRules_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
version: "2025.1"
brokers:
  top_n: 3
  separator: " | "
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "2025.1", r.Version)
	assert.Equal(t, 3, r.Brokers.TopN)
	assert.Len(t, r.Scoring.Rules, 8, "scoring keeps defaults")
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown metric", "scoring:\n  base: 1\n  max: 10\n  rules:\n    - {metric: shipments, gt: 1, points: 1}\n"},
		{"pct without label", "scoring:\n  base: 1\n  max: 10\n  rules:\n    - {metric: pct, dimension: regime, gt: 1, points: 1}\n"},
		{"negative points", "scoring:\n  base: 1\n  max: 10\n  rules:\n    - {metric: record_count, gt: 1, points: -1}\n"},
		{"base above max", "scoring:\n  base: 11\n  max: 10\n"},
		{"zero top brokers", "brokers:\n  top_n: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadRules(path)
			assert.Error(t, err)
		})
	}
}
