package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/tradeintel/internal/domain"
	"github.com/ignite/tradeintel/internal/service/summary"
)

// SummaryRepo implements summary.Repository against PostgreSQL.
type SummaryRepo struct{ db *sql.DB }

// NewSummaryRepo creates a Postgres-backed summary repository.
func NewSummaryRepo(db *sql.DB) *SummaryRepo { return &SummaryRepo{db: db} }

const selectSummaries = `
	SELECT id, entity_name, tax_id, record_count,
		total_freight_usd, avg_freight_usd, total_weight_kg, avg_weight_kg, total_goods_value_usd,
		COALESCE(to_char(first_dispatch_date, 'YYYY-MM-DD'), ''),
		COALESCE(to_char(last_dispatch_date, 'YYYY-MM-DD'), ''),
		distributions, brokers_used, top_broker, pct_top_broker, num_brokers,
		is_origin_usa, crossborder_candidate, ocean_freight_potential, supply_chain_potential,
		opportunity_score, rules_version,
		COALESCE(to_char(period_start, 'YYYY-MM-DD'), ''),
		COALESCE(to_char(period_end, 'YYYY-MM-DD'), ''),
		created_at, updated_at
	FROM import_summaries`

// Upsert writes s in a single statement, replacing the previous summary of
// the same entity.
func (r *SummaryRepo) Upsert(ctx context.Context, s *domain.Summary) error {
	dists, err := json.Marshal(s.Distributions)
	if err != nil {
		return fmt.Errorf("upsert summary: marshal distributions: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO import_summaries (
			entity_name, tax_id, record_count,
			total_freight_usd, avg_freight_usd, total_weight_kg, avg_weight_kg, total_goods_value_usd,
			first_dispatch_date, last_dispatch_date, distributions,
			brokers_used, top_broker, pct_top_broker, num_brokers,
			is_origin_usa, crossborder_candidate, ocean_freight_potential, supply_chain_potential,
			opportunity_score, rules_version, period_start, period_end
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			NULLIF($9, '')::date, NULLIF($10, '')::date, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
			NULLIF($22, '')::date, NULLIF($23, '')::date
		)
		ON CONFLICT (entity_name) DO UPDATE SET
			tax_id = EXCLUDED.tax_id,
			record_count = EXCLUDED.record_count,
			total_freight_usd = EXCLUDED.total_freight_usd,
			avg_freight_usd = EXCLUDED.avg_freight_usd,
			total_weight_kg = EXCLUDED.total_weight_kg,
			avg_weight_kg = EXCLUDED.avg_weight_kg,
			total_goods_value_usd = EXCLUDED.total_goods_value_usd,
			first_dispatch_date = EXCLUDED.first_dispatch_date,
			last_dispatch_date = EXCLUDED.last_dispatch_date,
			distributions = EXCLUDED.distributions,
			brokers_used = EXCLUDED.brokers_used,
			top_broker = EXCLUDED.top_broker,
			pct_top_broker = EXCLUDED.pct_top_broker,
			num_brokers = EXCLUDED.num_brokers,
			is_origin_usa = EXCLUDED.is_origin_usa,
			crossborder_candidate = EXCLUDED.crossborder_candidate,
			ocean_freight_potential = EXCLUDED.ocean_freight_potential,
			supply_chain_potential = EXCLUDED.supply_chain_potential,
			opportunity_score = EXCLUDED.opportunity_score,
			rules_version = EXCLUDED.rules_version,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`,
		s.EntityName, s.TaxID, s.RecordCount,
		s.TotalFreightUSD, s.AvgFreightUSD, s.TotalWeightKg, s.AvgWeightKg, s.TotalGoodsValueUSD,
		s.FirstDispatchDate, s.LastDispatchDate, string(dists),
		s.BrokersUsed, s.TopBroker, s.PctTopBroker, s.NumBrokers,
		s.IsOriginUSA, s.CrossborderCandidate, s.OceanFreightPotential, s.SupplyChainPotential,
		s.OpportunityScore, s.RulesVersion, s.PeriodStart, s.PeriodEnd,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return classify("upsert summary", err)
	}
	return nil
}

func (r *SummaryRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM import_summaries`)
	if err != nil {
		return 0, fmt.Errorf("delete summaries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SummaryRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_summaries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return n, nil
}

func (r *SummaryRepo) Get(ctx context.Context, entity string) (*domain.Summary, error) {
	s, err := scanSummary(r.db.QueryRowContext(ctx, selectSummaries+` WHERE entity_name = $1`, entity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, summary.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SummaryRepo) List(ctx context.Context) ([]domain.Summary, error) {
	rows, err := r.db.QueryContext(ctx, selectSummaries+` ORDER BY opportunity_score DESC, entity_name`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []domain.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSummary(sc scanner) (domain.Summary, error) {
	var (
		s     domain.Summary
		dists []byte
	)
	err := sc.Scan(
		&s.ID, &s.EntityName, &s.TaxID, &s.RecordCount,
		&s.TotalFreightUSD, &s.AvgFreightUSD, &s.TotalWeightKg, &s.AvgWeightKg, &s.TotalGoodsValueUSD,
		&s.FirstDispatchDate, &s.LastDispatchDate,
		&dists, &s.BrokersUsed, &s.TopBroker, &s.PctTopBroker, &s.NumBrokers,
		&s.IsOriginUSA, &s.CrossborderCandidate, &s.OceanFreightPotential, &s.SupplyChainPotential,
		&s.OpportunityScore, &s.RulesVersion, &s.PeriodStart, &s.PeriodEnd,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if err != nil {
		return s, fmt.Errorf("scan summary: %w", err)
	}
	if len(dists) > 0 {
		if err := json.Unmarshal(dists, &s.Distributions); err != nil {
			return s, fmt.Errorf("decode distributions for %q: %w", s.EntityName, err)
		}
	}
	return s, nil
}
