package aggregate

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ignite/tradeintel/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultRulesYAML []byte

// Metric names a summary value a score rule compares against.
type Metric string

const (
	MetricRecordCount  Metric = "record_count"
	MetricTotalFreight Metric = "total_freight_usd"
	MetricNumBrokers   Metric = "num_brokers"
	MetricPct          Metric = "pct"
	MetricOriginUSA    Metric = "origin_usa"
)

// ScoreRule adds Points when the metric is strictly greater than GT.
type ScoreRule struct {
	Metric    Metric           `yaml:"metric"`
	Dimension domain.Dimension `yaml:"dimension,omitempty"`
	Label     string           `yaml:"label,omitempty"`
	GT        float64          `yaml:"gt"`
	Points    int              `yaml:"points"`
}

// Scoring is the opportunity score table.
type Scoring struct {
	Base  int         `yaml:"base"`
	Max   int         `yaml:"max"`
	Rules []ScoreRule `yaml:"rules"`
}

// PctThreshold holds when the percentage of Label in Dimension exceeds GT.
type PctThreshold struct {
	Dimension domain.Dimension `yaml:"dimension"`
	Label     string           `yaml:"label"`
	GT        float64          `yaml:"gt"`
}

// SupplyChainRule holds when both the record count and the distinct broker
// count exceed their thresholds.
type SupplyChainRule struct {
	RecordsGT int `yaml:"records_gt"`
	BrokersGT int `yaml:"brokers_gt"`
}

// Flags configures the boolean potentials of a summary.
type Flags struct {
	USAOrigin    PctThreshold    `yaml:"usa_origin"`
	OceanFreight PctThreshold    `yaml:"ocean_freight"`
	SupplyChain  SupplyChainRule `yaml:"supply_chain"`
}

// BrokerRules configures the broker display string.
type BrokerRules struct {
	TopN      int    `yaml:"top_n"`
	Separator string `yaml:"separator"`
}

// Rules is the versioned heuristic configuration of the aggregator.
type Rules struct {
	Version string      `yaml:"version"`
	Scoring Scoring     `yaml:"scoring"`
	Flags   Flags       `yaml:"flags"`
	Brokers BrokerRules `yaml:"brokers"`
}

// DefaultRules returns the built-in heuristics.
func DefaultRules() Rules {
	var r Rules
	if err := yaml.Unmarshal(defaultRulesYAML, &r); err != nil {
		panic(fmt.Sprintf("aggregate: embedded defaults: %v", err))
	}
	return r
}

// LoadRules reads rules from a YAML file. Sections missing from the file
// keep their built-in values. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read scoring rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse scoring rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate rejects tables that could produce a score outside [1, max] or
// reference unknown metrics.
func (r Rules) Validate() error {
	if r.Scoring.Base < 1 || r.Scoring.Max < r.Scoring.Base {
		return fmt.Errorf("scoring rules: need 1 <= base (%d) <= max (%d)", r.Scoring.Base, r.Scoring.Max)
	}
	for i, rule := range r.Scoring.Rules {
		if rule.Points < 0 {
			return fmt.Errorf("scoring rules: rule %d has negative points", i)
		}
		switch rule.Metric {
		case MetricRecordCount, MetricTotalFreight, MetricNumBrokers, MetricOriginUSA:
		case MetricPct:
			if rule.Dimension == "" || rule.Label == "" {
				return fmt.Errorf("scoring rules: rule %d (pct) needs dimension and label", i)
			}
		default:
			return fmt.Errorf("scoring rules: rule %d has unknown metric %q", i, rule.Metric)
		}
	}
	if r.Brokers.TopN < 1 {
		return fmt.Errorf("scoring rules: brokers.top_n must be positive")
	}
	return nil
}
