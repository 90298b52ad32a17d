// Package export renders stored records and summaries as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/ignite/tradeintel/internal/domain"
)

var recordHeader = []string{
	"id", "dispatch_date", "importer_name", "importer_address", "importer_tax_id",
	"supplier_name", "supplier_address", "origin_country", "buyer_seller_country",
	"transport", "hs_code", "gross_weight_kg", "goods_value_usd", "freight_usd",
	"insurance_usd", "dispatch_customs", "entry_customs", "dispatch_customs_state",
	"broker_id", "customs_regime", "customs_regime_id", "declaration_type",
	"incoterm", "container_type", "teus", "created_at",
}

// RecordWriter streams records as CSV rows. The header is written before
// the first row, or by Flush when no rows were written.
type RecordWriter struct {
	w      *csv.Writer
	header bool
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: csv.NewWriter(w)}
}

func (rw *RecordWriter) Write(r domain.ImportRecord) error {
	if err := rw.writeHeader(); err != nil {
		return err
	}
	return rw.w.Write([]string{
		strconv.FormatInt(r.ID, 10), r.DispatchDate, r.ImporterName, r.ImporterAddress, r.ImporterTaxID,
		r.SupplierName, r.SupplierAddress, r.OriginCountry, r.BuyerSellerCountry,
		r.Transport, r.HSCode, money(r.GrossWeightKg), money(r.GoodsValueUSD), money(r.FreightUSD),
		money(r.InsuranceUSD), r.DispatchCustoms, r.EntryCustoms, r.DispatchCustomsState,
		r.BrokerID, r.CustomsRegime, r.CustomsRegimeID, r.DeclarationType,
		r.Incoterm, r.ContainerType, num(r.TEUs), timestamp(r.CreatedAt),
	})
}

func (rw *RecordWriter) Flush() error {
	if err := rw.writeHeader(); err != nil {
		return err
	}
	rw.w.Flush()
	return rw.w.Error()
}

func (rw *RecordWriter) writeHeader() error {
	if rw.header {
		return nil
	}
	rw.header = true
	return rw.w.Write(recordHeader)
}

var summaryHeader = []string{
	"entity_name", "tax_id", "record_count",
	"total_freight_usd", "avg_freight_usd", "total_weight_kg", "avg_weight_kg", "total_goods_value_usd",
	"first_dispatch_date", "last_dispatch_date",
	"brokers_used", "top_broker", "pct_top_broker", "num_brokers",
	"is_origin_usa", "crossborder_candidate", "ocean_freight_potential", "supply_chain_potential",
	"opportunity_score", "rules_version", "period_start", "period_end", "updated_at",
}

// WriteSummaries writes one row per summary. The fixed columns are followed
// by one pct_<dimension>_<label> column per label seen across summaries,
// in first-seen order; a summary lacking a label gets 0.
func WriteSummaries(w io.Writer, summaries []domain.Summary) error {
	var pctKeys []string
	seen := make(map[string]bool)
	for i := range summaries {
		for _, c := range summaries[i].PctColumns() {
			if !seen[c.Key] {
				seen[c.Key] = true
				pctKeys = append(pctKeys, c.Key)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, summaryHeader...), pctKeys...)); err != nil {
		return err
	}
	for i := range summaries {
		s := &summaries[i]
		row := []string{
			s.EntityName, s.TaxID, strconv.Itoa(s.RecordCount),
			money(s.TotalFreightUSD), money(s.AvgFreightUSD), money(s.TotalWeightKg), money(s.AvgWeightKg), money(s.TotalGoodsValueUSD),
			s.FirstDispatchDate, s.LastDispatchDate,
			s.BrokersUsed, s.TopBroker, money(s.PctTopBroker), strconv.Itoa(s.NumBrokers),
			flag(s.IsOriginUSA), flag(s.CrossborderCandidate), flag(s.OceanFreightPotential), flag(s.SupplyChainPotential),
			strconv.Itoa(s.OpportunityScore), s.RulesVersion, s.PeriodStart, s.PeriodEnd, timestamp(s.UpdatedAt),
		}
		values := make(map[string]float64)
		for _, c := range s.PctColumns() {
			values[c.Key] = c.Value
		}
		for _, k := range pctKeys {
			row = append(row, money(values[k]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
