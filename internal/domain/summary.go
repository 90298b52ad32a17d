package domain

import (
	"strings"
	"time"
)

// Dimension is a categorical axis used for percentage bucketing.
type Dimension string

const (
	DimRegime    Dimension = "regime"
	DimTransport Dimension = "transport"
	DimPort      Dimension = "port"
	DimCommodity Dimension = "commodity"
	DimOrigin    Dimension = "origin"
	DimIncoterm  Dimension = "incoterm"
)

// Dimensions lists every bucketed dimension in summary order.
var Dimensions = []Dimension{DimRegime, DimTransport, DimPort, DimCommodity, DimOrigin, DimIncoterm}

// Share is one label's tally within a dimension.
type Share struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// Distribution holds every configured label of a dimension, including the
// catch-all, in configuration order.
type Distribution struct {
	Dimension Dimension `json:"dimension"`
	Shares    []Share   `json:"shares"`
}

// Summary is the BI profile derived from one entity's stored records.
// It is unique on EntityName; regeneration replaces the previous row.
type Summary struct {
	ID                    int64          `json:"id,omitempty" db:"id"`
	EntityName            string         `json:"entity_name" db:"entity_name"`
	TaxID                 string         `json:"tax_id,omitempty" db:"tax_id"`
	RecordCount           int            `json:"record_count" db:"record_count"`
	TotalFreightUSD       float64        `json:"total_freight_usd" db:"total_freight_usd"`
	AvgFreightUSD         float64        `json:"avg_freight_usd" db:"avg_freight_usd"`
	TotalWeightKg         float64        `json:"total_weight_kg" db:"total_weight_kg"`
	AvgWeightKg           float64        `json:"avg_weight_kg" db:"avg_weight_kg"`
	TotalGoodsValueUSD    float64        `json:"total_goods_value_usd" db:"total_goods_value_usd"`
	FirstDispatchDate     string         `json:"first_dispatch_date,omitempty" db:"first_dispatch_date"`
	LastDispatchDate      string         `json:"last_dispatch_date,omitempty" db:"last_dispatch_date"`
	Distributions         []Distribution `json:"distributions" db:"distributions"`
	BrokersUsed           string         `json:"brokers_used" db:"brokers_used"`
	TopBroker             string         `json:"top_broker,omitempty" db:"top_broker"`
	PctTopBroker          float64        `json:"pct_top_broker" db:"pct_top_broker"`
	NumBrokers            int            `json:"num_brokers" db:"num_brokers"`
	IsOriginUSA           bool           `json:"is_origin_usa" db:"is_origin_usa"`
	CrossborderCandidate  bool           `json:"crossborder_candidate" db:"crossborder_candidate"`
	OceanFreightPotential bool           `json:"ocean_freight_potential" db:"ocean_freight_potential"`
	SupplyChainPotential  bool           `json:"supply_chain_potential" db:"supply_chain_potential"`
	OpportunityScore      int            `json:"opportunity_score" db:"opportunity_score"`
	RulesVersion          string         `json:"rules_version,omitempty" db:"rules_version"`
	PeriodStart           string         `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd             string         `json:"period_end,omitempty" db:"period_end"`
	CreatedAt             time.Time      `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at,omitempty" db:"updated_at"`
}

// Distribution returns the distribution for dim, if present.
func (s *Summary) Distribution(dim Dimension) (Distribution, bool) {
	for _, d := range s.Distributions {
		if d.Dimension == dim {
			return d, true
		}
	}
	return Distribution{}, false
}

// Pct returns the percentage recorded for label within dim, or 0.
func (s *Summary) Pct(dim Dimension, label string) float64 {
	d, ok := s.Distribution(dim)
	if !ok {
		return 0
	}
	for _, sh := range d.Shares {
		if sh.Label == label {
			return sh.Pct
		}
	}
	return 0
}

// PctColumn is one flattened percentage, keyed pct_<dimension>_<label>.
type PctColumn struct {
	Key   string
	Value float64
}

// PctColumns flattens every distribution in order.
func (s *Summary) PctColumns() []PctColumn {
	var out []PctColumn
	for _, d := range s.Distributions {
		for _, sh := range d.Shares {
			out = append(out, PctColumn{Key: PctKey(d.Dimension, sh.Label), Value: sh.Pct})
		}
	}
	return out
}

// pctPrefix overrides the column prefix for dimensions whose legacy
// column names differ from the dimension name.
var pctPrefix = map[Dimension]string{DimCommodity: "hs"}

// PctKey builds the flattened column name for a dimension label. Labels keep
// their case (pct_regime_A1, pct_origin_USA) except transport, whose legacy
// columns are lowercase (pct_transport_carretero). Spaces become underscores.
func PctKey(dim Dimension, label string) string {
	prefix, ok := pctPrefix[dim]
	if !ok {
		prefix = string(dim)
	}
	label = strings.ReplaceAll(strings.TrimSpace(label), " ", "_")
	if dim == DimTransport {
		label = strings.ToLower(label)
	}
	return "pct_" + prefix + "_" + label
}
