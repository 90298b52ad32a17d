package classify

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ignite/tradeintel/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTablesYAML []byte

// MatchRule maps any of its tokens, found as a substring, to Label.
type MatchRule struct {
	Label  string   `yaml:"label"`
	Tokens []string `yaml:"tokens"`
}

// MatchTable is an ordered substring table. The first matching rule wins.
type MatchTable struct {
	Fallback string      `yaml:"fallback"`
	Rules    []MatchRule `yaml:"rules"`
}

// ExactTable is a whitelist compared by equality.
type ExactTable struct {
	Fallback string   `yaml:"fallback"`
	Labels   []string `yaml:"labels"`
}

// Tables is the versioned label configuration for every dimension.
type Tables struct {
	Version   string     `yaml:"version"`
	Transport MatchTable `yaml:"transport"`
	Port      MatchTable `yaml:"port"`
	Origin    MatchTable `yaml:"origin"`
	Commodity ExactTable `yaml:"commodity"`
	Incoterm  ExactTable `yaml:"incoterm"`
	Regime    ExactTable `yaml:"regime"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	var t Tables
	if err := yaml.Unmarshal(defaultTablesYAML, &t); err != nil {
		panic(fmt.Sprintf("classify: embedded defaults: %v", err))
	}
	return t
}

// LoadTables reads tables from a YAML file. Sections missing from the file
// keep their built-in values. An empty path returns the defaults.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read classification tables: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parse classification tables %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Validate checks that every dimension has a fallback label and that no
// label is declared twice within a dimension.
func (t Tables) Validate() error {
	for _, dim := range domain.Dimensions {
		labels := t.labels(dim)
		if len(labels) == 0 || t.fallback(dim) == "" {
			return fmt.Errorf("classification tables: %s has no fallback label", dim)
		}
		seen := make(map[string]bool, len(labels))
		for _, l := range labels {
			if seen[l] {
				return fmt.Errorf("classification tables: %s declares label %q twice", dim, l)
			}
			seen[l] = true
		}
	}
	return nil
}

func (t Tables) fallback(dim domain.Dimension) string {
	switch dim {
	case domain.DimTransport:
		return t.Transport.Fallback
	case domain.DimPort:
		return t.Port.Fallback
	case domain.DimOrigin:
		return t.Origin.Fallback
	case domain.DimCommodity:
		return t.Commodity.Fallback
	case domain.DimIncoterm:
		return t.Incoterm.Fallback
	case domain.DimRegime:
		return t.Regime.Fallback
	}
	return ""
}

// labels lists the configured labels of dim followed by its fallback.
func (t Tables) labels(dim domain.Dimension) []string {
	var out []string
	switch dim {
	case domain.DimTransport:
		out = matchLabels(t.Transport)
	case domain.DimPort:
		out = matchLabels(t.Port)
	case domain.DimOrigin:
		out = matchLabels(t.Origin)
	case domain.DimCommodity:
		out = append(out, t.Commodity.Labels...)
	case domain.DimIncoterm:
		out = append(out, t.Incoterm.Labels...)
	case domain.DimRegime:
		out = append(out, t.Regime.Labels...)
	default:
		return nil
	}
	if fb := t.fallback(dim); fb != "" {
		out = append(out, fb)
	}
	return out
}

func matchLabels(m MatchTable) []string {
	out := make([]string, 0, len(m.Rules)+1)
	for _, r := range m.Rules {
		out = append(out, r.Label)
	}
	return out
}
