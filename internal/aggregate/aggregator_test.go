package aggregate

import (
	"fmt"
	"testing"

	"github.com/ignite/tradeintel/internal/classify"
	"github.com/ignite/tradeintel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator() *Aggregator {
	return New(classify.Default(), DefaultRules())
}

func TestSummarize_EmptyReturnsNil(t *testing.T) {
	a := newTestAggregator()
	assert.Nil(t, a.Summarize("ACME", nil))
	assert.Nil(t, a.Summarize("ACME", []domain.ImportRecord{}))
}

// acmeRecords: 10 road shipments, A1 on six of them and IN on the rest,
// 100 kg and 6000 USD freight each.
func acmeRecords() []domain.ImportRecord {
	recs := make([]domain.ImportRecord, 10)
	for i := range recs {
		regime := "IN"
		if i < 6 {
			regime = "A1"
		}
		recs[i] = domain.ImportRecord{
			ImporterName:    "ACME",
			DispatchDate:    fmt.Sprintf("2024-03-%02d", i+1),
			Transport:       "TRANSPORTE CARRETERO",
			CustomsRegimeID: regime,
			GrossWeightKg:   100,
			FreightUSD:      6000,
		}
	}
	return recs
}

func TestSummarize_ACMEScenario(t *testing.T) {
	s := newTestAggregator().Summarize("ACME", acmeRecords())
	require.NotNil(t, s)

	assert.Equal(t, "ACME", s.EntityName)
	assert.Equal(t, 10, s.RecordCount)
	assert.Equal(t, 100.00, s.Pct(domain.DimTransport, "CARRETERO"))
	assert.Equal(t, 60.00, s.Pct(domain.DimRegime, "A1"))
	assert.Equal(t, 40.00, s.Pct(domain.DimRegime, "IN"), "IN is tallied on its own, not copied from A1")
	assert.Equal(t, 1000.00, s.TotalWeightKg)
	assert.Equal(t, 100.00, s.AvgWeightKg)
	assert.Equal(t, 60000.00, s.TotalFreightUSD)
	assert.Equal(t, 6000.00, s.AvgFreightUSD)
	assert.Equal(t, "2024-03-01", s.FirstDispatchDate)
	assert.Equal(t, "2024-03-10", s.LastDispatchDate)

	// base 1, freight > 50000, A1 > 50, road > 50; N is not > 10 and there are no brokers
	assert.Equal(t, 4, s.OpportunityScore)
	assert.False(t, s.IsOriginUSA)
	assert.Equal(t, "", s.BrokersUsed)
	assert.Equal(t, 0, s.NumBrokers)
}

func TestSummarize_EveryLabelPresent(t *testing.T) {
	s := newTestAggregator().Summarize("ACME", acmeRecords())
	require.NotNil(t, s)
	require.Len(t, s.Distributions, len(domain.Dimensions))

	origin, ok := s.Distribution(domain.DimOrigin)
	require.True(t, ok)
	labels := make([]string, 0, len(origin.Shares))
	for _, sh := range origin.Shares {
		labels = append(labels, sh.Label)
	}
	assert.Equal(t, []string{"TAIWAN", "VIETNAM", "CHINA", "USA", "GERMANY", "DENMARK", "FRANCE", "OTHERS"}, labels)
	assert.Equal(t, 100.00, s.Pct(domain.DimOrigin, "OTHERS"))
	assert.Equal(t, 0.00, s.Pct(domain.DimOrigin, "USA"))
}

func TestSummarize_PercentagesSumToHundred(t *testing.T) {
	transports := []string{"CARRETERO", "AÉREO", "MARITIMO", "", "FERROVIARIO", "aereo"}
	origins := []string{"CHINA", "ESTADOS UNIDOS", "ALEMANIA", "JAPON", "", "TAIWAN", "Francia"}
	hs := []string{"8471", "8544", "9018", "7318", "7411", "3926", "8"}
	incoterms := []string{"DAP", "EXW", "FCA", "CIF", " DAP"}
	regimes := []string{"A1", "F4", "IN", "A3", "AF", "V1", ""}
	offices := []string{"NUEVO LAREDO, NUEVO LAREDO, TAMAULIPAS", "MANZANILLO, MANZANILLO, COLIMA", "TIJUANA"}

	var recs []domain.ImportRecord
	for i := 0; i < 137; i++ {
		recs = append(recs, domain.ImportRecord{
			Transport:       transports[i%len(transports)],
			OriginCountry:   origins[i%len(origins)],
			HSCode:          hs[i%len(hs)],
			Incoterm:        incoterms[i%len(incoterms)],
			CustomsRegimeID: regimes[i%len(regimes)],
			DispatchCustoms: offices[i%len(offices)],
			BrokerID:        fmt.Sprintf("B%d", i%9),
			FreightUSD:      float64(i) * 13.37,
		})
	}

	s := newTestAggregator().Summarize("MIX", recs)
	require.NotNil(t, s)

	for _, d := range s.Distributions {
		var sum float64
		var count int
		for _, sh := range d.Shares {
			assert.GreaterOrEqual(t, sh.Pct, 0.0)
			assert.LessOrEqual(t, sh.Pct, 100.0)
			sum += sh.Pct
			count += sh.Count
		}
		tolerance := 0.1 * float64(len(d.Shares)-1)
		assert.InDelta(t, 100.0, sum, tolerance, "dimension %s sums to %f", d.Dimension, sum)
		assert.Equal(t, len(recs), count, "dimension %s counts every record once", d.Dimension)
	}
}

func TestSummarize_Brokers(t *testing.T) {
	recs := []domain.ImportRecord{
		{BrokerID: "A"}, {BrokerID: "B"}, {BrokerID: "C"}, {BrokerID: "B"}, {BrokerID: "A"}, {BrokerID: ""},
	}
	s := newTestAggregator().Summarize("X", recs)
	require.NotNil(t, s)

	assert.Equal(t, "A, B, C", s.BrokersUsed)
	assert.Equal(t, "A", s.TopBroker)
	assert.Equal(t, 33.33, s.PctTopBroker)
	assert.Equal(t, 3, s.NumBrokers)
}

func TestSummarize_BrokersTopFive(t *testing.T) {
	var recs []domain.ImportRecord
	for i, id := range []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7"} {
		for j := 0; j <= 7-i; j++ {
			recs = append(recs, domain.ImportRecord{BrokerID: id})
		}
	}
	s := newTestAggregator().Summarize("X", recs)
	require.NotNil(t, s)
	assert.Equal(t, "B1, B2, B3, B4, B5", s.BrokersUsed)
	assert.Equal(t, 7, s.NumBrokers)
}

func TestRankBrokers_StableTieBreak(t *testing.T) {
	recs := []domain.ImportRecord{
		{BrokerID: "C"}, {BrokerID: "A"}, {BrokerID: "B"}, {BrokerID: "A"}, {BrokerID: "B"},
	}
	ranked := RankBrokers(recs)
	require.Len(t, ranked, 3)
	assert.Equal(t, []BrokerCount{{"A", 2}, {"B", 2}, {"C", 1}}, ranked)
}

func TestSummarize_Flags(t *testing.T) {
	tests := []struct {
		name       string
		usa        int
		maritime   int
		total      int
		brokers    int
		wantUSA    bool
		wantOcean  bool
		wantSupply bool
	}{
		{"majority usa and ocean", 6, 4, 10, 1, true, true, false},
		{"exactly half usa is not majority", 5, 3, 10, 1, false, false, false},
		{"supply chain needs more than 20 and more than 5 brokers", 0, 0, 21, 6, false, false, true},
		{"twenty records is not enough", 0, 0, 20, 6, false, false, false},
		{"five brokers is not enough", 0, 0, 30, 5, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recs []domain.ImportRecord
			for i := 0; i < tt.total; i++ {
				r := domain.ImportRecord{OriginCountry: "CHINA", Transport: "CARRETERO"}
				if i < tt.usa {
					r.OriginCountry = "ESTADOS UNIDOS DE AMERICA"
				}
				if i < tt.maritime {
					r.Transport = "MARÍTIMO"
				}
				r.BrokerID = fmt.Sprintf("BRK%d", i%tt.brokers)
				recs = append(recs, r)
			}
			s := newTestAggregator().Summarize("X", recs)
			require.NotNil(t, s)
			assert.Equal(t, tt.wantUSA, s.IsOriginUSA)
			assert.Equal(t, tt.wantUSA, s.CrossborderCandidate)
			assert.Equal(t, tt.wantOcean, s.OceanFreightPotential)
			assert.Equal(t, tt.wantSupply, s.SupplyChainPotential)
		})
	}
}

func TestSummarize_MaxScore(t *testing.T) {
	var recs []domain.ImportRecord
	for i := 0; i < 60; i++ {
		recs = append(recs, domain.ImportRecord{
			OriginCountry:   "USA",
			Transport:       "CARRETERO",
			CustomsRegimeID: "A1",
			FreightUSD:      5000,
			BrokerID:        fmt.Sprintf("B%d", i%4),
		})
	}
	s := newTestAggregator().Summarize("BIG", recs)
	require.NotNil(t, s)
	assert.Equal(t, 10, s.OpportunityScore)
}

func TestScore_ClampedAtMax(t *testing.T) {
	rules := DefaultRules()
	rules.Scoring.Rules = append(rules.Scoring.Rules, ScoreRule{Metric: MetricRecordCount, GT: 0, Points: 50})
	a := New(classify.Default(), rules)

	s := a.Summarize("X", acmeRecords())
	require.NotNil(t, s)
	assert.Equal(t, rules.Scoring.Max, s.OpportunityScore)
}

func TestScore_MonotonicInFreight(t *testing.T) {
	a := newTestAggregator()
	prev := 0
	for _, freight := range []float64{0, 50000, 50000.01, 200000, 200000.01, 1e9} {
		recs := []domain.ImportRecord{{FreightUSD: freight}}
		s := a.Summarize("X", recs)
		require.NotNil(t, s)
		assert.GreaterOrEqual(t, s.OpportunityScore, prev, "freight %f", freight)
		assert.LessOrEqual(t, s.OpportunityScore, 10)
		prev = s.OpportunityScore
	}
	assert.Equal(t, 3, prev)
}

func TestSummarize_TaxIDAndRounding(t *testing.T) {
	recs := []domain.ImportRecord{
		{ImporterTaxID: "", FreightUSD: 0.1, GrossWeightKg: 1},
		{ImporterTaxID: "ACM010101AB1", FreightUSD: 0.2, GrossWeightKg: 1},
		{ImporterTaxID: "ZZZ010101ZZ9", FreightUSD: 0.005, GrossWeightKg: 1},
	}
	s := newTestAggregator().Summarize("ACME", recs)
	require.NotNil(t, s)
	assert.Equal(t, "ACM010101AB1", s.TaxID)
	assert.Equal(t, 0.31, s.TotalFreightUSD)
	assert.Equal(t, 0.1, s.AvgFreightUSD)
	assert.Equal(t, "", s.FirstDispatchDate)
	assert.Equal(t, 100.0, s.Pct(domain.DimIncoterm, "OTHERS"))
}
