package logcomex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ignite/tradeintel/internal/domain"
)

// ErrCoercion is returned when a raw record cannot be turned into a
// domain.ImportRecord.
var ErrCoercion = errors.New("record coercion failed")

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Column limits of import_records. A value outside them would fail the
// whole COPY batch, so the record is rejected here instead.
const (
	maxName   = 500
	maxTaxID  = 50
	maxLabel  = 100
	maxOffice = 200
	maxCode   = 50
	maxShort  = 20
	unbounded = 0

	// NUMERIC(18,2) and NUMERIC(12,2)
	maxAmount = 1e16
	maxTEUs   = 1e10
)

// ParseRecord maps one upstream object onto an ImportRecord. Numbers may
// arrive as JSON numbers or numeric strings; absent, null and empty values
// become zero. Negative, non-numeric or out-of-range values, over-long text
// and text containing NUL bytes are rejected.
func ParseRecord(raw json.RawMessage) (domain.ImportRecord, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return domain.ImportRecord{}, fmt.Errorf("%w: not a JSON object", ErrCoercion)
	}

	p := &fields{obj: obj}
	rec := domain.ImportRecord{
		DispatchDate:         p.date("dispatch_date"),
		ImporterName:         p.str("importer_name", maxName),
		ImporterAddress:      p.str("importer_address", unbounded),
		ImporterTaxID:        p.str("importer_id", maxTaxID),
		SupplierName:         p.str("supplier_name", maxName),
		SupplierAddress:      p.str("supplier_address", unbounded),
		OriginCountry:        p.str("origin_destination_country", maxLabel),
		BuyerSellerCountry:   p.str("buyer_seller_country", maxLabel),
		Transport:            p.str("entry_exit_transport", maxLabel),
		HSCode:               p.str("departure_hscodes", maxCode),
		GrossWeightKg:        p.num("departure_gross_weight", maxAmount),
		GoodsValueUSD:        p.num("departure_goods_usd_value", maxAmount),
		FreightUSD:           p.num("departure_freight_usd_value", maxAmount),
		InsuranceUSD:         p.num("departure_insurance_usd_value", maxAmount),
		DispatchCustoms:      p.str("dispatch_customs", maxOffice),
		EntryCustoms:         p.str("entry_customs", maxOffice),
		DispatchCustomsState: p.str("dispatch_customs_state", maxLabel),
		BrokerID:             p.str("custom_broker_id", maxCode),
		CustomsRegime:        p.str("customs_regime", maxLabel),
		CustomsRegimeID:      p.str("customs_regime_id", maxShort),
		DeclarationType:      p.str("declaration_type", maxLabel),
		Incoterm:             p.str("incoterm", maxShort),
		ContainerType:        p.str("container_type", maxLabel),
		TEUs:                 p.num("teus_qty", maxTEUs),
	}
	if p.err != nil {
		return domain.ImportRecord{}, p.err
	}
	return rec, nil
}

// fields keeps the first coercion error so ParseRecord reads top to bottom.
type fields struct {
	obj map[string]json.RawMessage
	err error
}

func (f *fields) fail(key, format string, args ...any) {
	if f.err == nil {
		f.err = fmt.Errorf("%w: %s: %s", ErrCoercion, key, fmt.Sprintf(format, args...))
	}
}

func (f *fields) value(key string) (json.RawMessage, bool) {
	v, ok := f.obj[key]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

// str reads a scalar as text. maxLen counts characters, as VARCHAR does;
// unbounded skips the check.
func (f *fields) str(key string, maxLen int) string {
	v, ok := f.value(key)
	if !ok {
		return ""
	}
	var s string
	switch v[0] {
	case '"':
		if err := json.Unmarshal(v, &s); err != nil {
			f.fail(key, "invalid string")
			return ""
		}
		s = strings.TrimSpace(s)
	case '{', '[':
		f.fail(key, "expected a scalar")
		return ""
	default:
		// numbers and booleans keep their literal text
		s = string(v)
	}
	if strings.ContainsRune(s, 0) {
		f.fail(key, "contains a NUL byte")
		return ""
	}
	if maxLen != unbounded && utf8.RuneCountInString(s) > maxLen {
		f.fail(key, "longer than %d characters", maxLen)
		return ""
	}
	return s
}

func (f *fields) num(key string, limit float64) float64 {
	v, ok := f.value(key)
	if !ok {
		return 0
	}
	var n float64
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			f.fail(key, "invalid string")
			return 0
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f.fail(key, "non-numeric value %q", s)
			return 0
		}
		n = parsed
	} else if err := json.Unmarshal(v, &n); err != nil {
		f.fail(key, "non-numeric value %s", v)
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		f.fail(key, "non-finite value")
		return 0
	}
	if n < 0 {
		f.fail(key, "negative value %v", n)
		return 0
	}
	if n >= limit {
		f.fail(key, "value %v out of range", n)
		return 0
	}
	return n
}

func (f *fields) date(key string) string {
	s := f.str(key, unbounded)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(domain.DateLayout)
		}
	}
	f.fail(key, "invalid date %q", s)
	return ""
}
