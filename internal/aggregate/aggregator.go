// Package aggregate turns one importer's stored declarations into a
// domain.Summary: totals and averages, per-dimension percentage
// distributions, broker concentration, opportunity flags and the 1-10
// opportunity score.
//
// Summarize is deterministic. Record order only affects the broker tie-break
// and which tax identifier is reported.
package aggregate

import (
	"math"
	"strings"

	"github.com/ignite/tradeintel/internal/classify"
	"github.com/ignite/tradeintel/internal/domain"
)

// Aggregator is safe for concurrent use.
type Aggregator struct {
	classifier *classify.Classifier
	rules      Rules
}

// New creates an aggregator over the given label tables and heuristics.
func New(c *classify.Classifier, rules Rules) *Aggregator {
	return &Aggregator{classifier: c, rules: rules}
}

// Summarize builds the summary for entity. It returns nil for an empty
// record set.
func (a *Aggregator) Summarize(entity string, records []domain.ImportRecord) *domain.Summary {
	n := len(records)
	if n == 0 {
		return nil
	}

	s := &domain.Summary{
		EntityName:   entity,
		RecordCount:  n,
		RulesVersion: a.rules.Version,
	}

	var freight, weight, goods float64
	counts := make(map[domain.Dimension]map[string]int, len(domain.Dimensions))
	for _, dim := range domain.Dimensions {
		counts[dim] = make(map[string]int)
	}

	for _, r := range records {
		freight += r.FreightUSD
		weight += r.GrossWeightKg
		goods += r.GoodsValueUSD

		if s.TaxID == "" {
			s.TaxID = strings.TrimSpace(r.ImporterTaxID)
		}
		if d := r.DispatchDate; d != "" {
			if s.FirstDispatchDate == "" || d < s.FirstDispatchDate {
				s.FirstDispatchDate = d
			}
			if d > s.LastDispatchDate {
				s.LastDispatchDate = d
			}
		}
		for dim, label := range a.classifier.ClassifyRecord(r) {
			counts[dim][label]++
		}
	}

	s.TotalFreightUSD = round2(freight)
	s.AvgFreightUSD = round2(freight / float64(n))
	s.TotalWeightKg = round2(weight)
	s.AvgWeightKg = round2(weight / float64(n))
	s.TotalGoodsValueUSD = round2(goods)

	for _, dim := range domain.Dimensions {
		s.Distributions = append(s.Distributions, a.distribution(dim, counts[dim], n))
	}

	a.applyBrokers(s, records)
	a.applyFlags(s)
	s.OpportunityScore = a.score(s)
	return s
}

func (a *Aggregator) distribution(dim domain.Dimension, counts map[string]int, n int) domain.Distribution {
	labels := a.classifier.Labels(dim)
	d := domain.Distribution{Dimension: dim, Shares: make([]domain.Share, 0, len(labels))}
	for _, label := range labels {
		c := counts[label]
		d.Shares = append(d.Shares, domain.Share{Label: label, Count: c, Pct: pct(c, n)})
	}
	return d
}

func (a *Aggregator) applyBrokers(s *domain.Summary, records []domain.ImportRecord) {
	ranked := RankBrokers(records)
	s.NumBrokers = len(ranked)
	if len(ranked) == 0 {
		return
	}

	top := a.rules.Brokers.TopN
	if top > len(ranked) {
		top = len(ranked)
	}
	ids := make([]string, 0, top)
	for _, b := range ranked[:top] {
		ids = append(ids, b.ID)
	}
	s.BrokersUsed = strings.Join(ids, a.rules.Brokers.Separator)
	s.TopBroker = ranked[0].ID
	s.PctTopBroker = pct(ranked[0].Count, s.RecordCount)
}

func (a *Aggregator) applyFlags(s *domain.Summary) {
	f := a.rules.Flags
	s.IsOriginUSA = s.Pct(f.USAOrigin.Dimension, f.USAOrigin.Label) > f.USAOrigin.GT
	s.CrossborderCandidate = s.IsOriginUSA
	s.OceanFreightPotential = s.Pct(f.OceanFreight.Dimension, f.OceanFreight.Label) > f.OceanFreight.GT
	s.SupplyChainPotential = s.RecordCount > f.SupplyChain.RecordsGT && s.NumBrokers > f.SupplyChain.BrokersGT
}

// score applies the scoring table to a summary whose distributions, broker
// counts and flags are already set.
func (a *Aggregator) score(s *domain.Summary) int {
	sc := a.rules.Scoring
	score := sc.Base
	for _, rule := range sc.Rules {
		if metricValue(s, rule) > rule.GT {
			score += rule.Points
		}
	}
	if score > sc.Max {
		score = sc.Max
	}
	return score
}

func metricValue(s *domain.Summary, rule ScoreRule) float64 {
	switch rule.Metric {
	case MetricRecordCount:
		return float64(s.RecordCount)
	case MetricTotalFreight:
		return s.TotalFreightUSD
	case MetricNumBrokers:
		return float64(s.NumBrokers)
	case MetricPct:
		return s.Pct(rule.Dimension, rule.Label)
	case MetricOriginUSA:
		if s.IsOriginUSA {
			return 1
		}
	}
	return 0
}

func pct(count, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(float64(count) / float64(n) * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
