package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/tradeintel/internal/domain"
)

// RecordRepo implements the record store against PostgreSQL.
type RecordRepo struct{ db *sql.DB }

// NewRecordRepo creates a Postgres-backed record repository.
func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{db: db} }

var copyColumns = []string{
	"dispatch_date", "importer_name", "importer_address", "importer_tax_id",
	"supplier_name", "supplier_address", "origin_country", "buyer_seller_country",
	"transport", "hs_code", "gross_weight_kg", "goods_value_usd", "freight_usd",
	"insurance_usd", "dispatch_customs", "entry_customs", "dispatch_customs_state",
	"broker_id", "customs_regime", "customs_regime_id", "declaration_type",
	"incoterm", "container_type", "teus",
}

const selectRecords = `
	SELECT id, COALESCE(to_char(dispatch_date, 'YYYY-MM-DD'), ''), importer_name,
		importer_address, importer_tax_id, supplier_name, supplier_address,
		origin_country, buyer_seller_country, transport, hs_code,
		gross_weight_kg, goods_value_usd, freight_usd, insurance_usd,
		dispatch_customs, entry_customs, dispatch_customs_state, broker_id,
		customs_regime, customs_regime_id, declaration_type, incoterm,
		container_type, teus, created_at
	FROM import_records`

// InsertBulk writes records with a single COPY inside one transaction.
func (r *RecordRepo) InsertBulk(ctx context.Context, records []domain.ImportRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert records: begin: %w", err)
	}
	defer tx.Rollback()

	n, err := copyRecords(ctx, tx, records)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert records: commit: %w", err)
	}
	return n, nil
}

// Replace deletes the rows selected by scope and copies records in, in one
// transaction. Nothing changes if any step fails.
func (r *RecordRepo) Replace(ctx context.Context, scope domain.ClearScope, entity string, records []domain.ImportRecord) (int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("replace records: begin: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	switch scope.OrDefault() {
	case domain.ClearEntity:
		res, err = tx.ExecContext(ctx, `DELETE FROM import_records WHERE importer_name = $1`, entity)
	case domain.ClearAll:
		res, err = tx.ExecContext(ctx, `DELETE FROM import_records`)
	case domain.ClearNone:
	default:
		return 0, 0, fmt.Errorf("replace records: unknown clear scope %q", scope)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("replace records: clear: %w", err)
	}
	cleared := 0
	if res != nil {
		n, _ := res.RowsAffected()
		cleared = int(n)
	}

	inserted, err := copyRecords(ctx, tx, records)
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("replace records: commit: %w", err)
	}
	return cleared, inserted, nil
}

func copyRecords(ctx context.Context, tx *sql.Tx, records []domain.ImportRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_records", copyColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			nullDate(rec.DispatchDate), rec.ImporterName, rec.ImporterAddress, rec.ImporterTaxID,
			rec.SupplierName, rec.SupplierAddress, rec.OriginCountry, rec.BuyerSellerCountry,
			rec.Transport, rec.HSCode, rec.GrossWeightKg, rec.GoodsValueUSD, rec.FreightUSD,
			rec.InsuranceUSD, rec.DispatchCustoms, rec.EntryCustoms, rec.DispatchCustomsState,
			rec.BrokerID, rec.CustomsRegime, rec.CustomsRegimeID, rec.DeclarationType,
			rec.Incoterm, rec.ContainerType, rec.TEUs,
		)
		if err != nil {
			return 0, classify("copy record", err)
		}
	}
	// flush
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, classify("flush copy", err)
	}
	return len(records), nil
}

// DeleteByEntity removes every record of entity.
func (r *RecordRepo) DeleteByEntity(ctx context.Context, entity string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM import_records WHERE importer_name = $1`, entity)
	if err != nil {
		return 0, fmt.Errorf("delete records by entity: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll removes every record.
func (r *RecordRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM import_records`)
	if err != nil {
		return 0, fmt.Errorf("delete all records: %w", err)
	}
	return res.RowsAffected()
}

// FindByEntity returns entity's records in dispatch order. Empty start or
// end leaves that bound open.
func (r *RecordRepo) FindByEntity(ctx context.Context, entity, start, end string) ([]domain.ImportRecord, error) {
	var (
		where = []string{"importer_name = $1"}
		args  = []any{entity}
	)
	if start != "" {
		args = append(args, start)
		where = append(where, fmt.Sprintf("dispatch_date >= $%d", len(args)))
	}
	if end != "" {
		args = append(args, end)
		where = append(where, fmt.Sprintf("dispatch_date <= $%d", len(args)))
	}
	query := selectRecords + " WHERE " + strings.Join(where, " AND ") + " ORDER BY dispatch_date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	var out []domain.ImportRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ExportAll streams every record to fn in (importer, dispatch date) order.
func (r *RecordRepo) ExportAll(ctx context.Context, fn func(domain.ImportRecord) error) error {
	rows, err := r.db.QueryContext(ctx, selectRecords+" ORDER BY importer_name, dispatch_date, id")
	if err != nil {
		return fmt.Errorf("export records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListEntities returns the distinct importer names, sorted.
func (r *RecordRepo) ListEntities(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT importer_name FROM import_records WHERE importer_name <> '' ORDER BY importer_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// LastUpdated returns the newest insert time, or nil for an empty table.
func (r *RecordRepo) LastUpdated(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM import_records`).Scan(&t); err != nil {
		return nil, fmt.Errorf("last updated: %w", err)
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.ImportRecord, error) {
	var rec domain.ImportRecord
	err := s.Scan(
		&rec.ID, &rec.DispatchDate, &rec.ImporterName,
		&rec.ImporterAddress, &rec.ImporterTaxID, &rec.SupplierName, &rec.SupplierAddress,
		&rec.OriginCountry, &rec.BuyerSellerCountry, &rec.Transport, &rec.HSCode,
		&rec.GrossWeightKg, &rec.GoodsValueUSD, &rec.FreightUSD, &rec.InsuranceUSD,
		&rec.DispatchCustoms, &rec.EntryCustoms, &rec.DispatchCustomsState, &rec.BrokerID,
		&rec.CustomsRegime, &rec.CustomsRegimeID, &rec.DeclarationType, &rec.Incoterm,
		&rec.ContainerType, &rec.TEUs, &rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

func nullDate(s string) any {
	if s == "" {
		return nil
	}
	return s
}
