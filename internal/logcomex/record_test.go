package logcomex

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_MapsFields(t *testing.T) {
	raw := json.RawMessage(`{
		"dispatch_date": "2024-03-05T00:00:00",
		"importer_name": " ACME SA DE CV ",
		"importer_id": "AAA010101AAA",
		"origin_destination_country": "ESTADOS UNIDOS",
		"entry_exit_transport": "CARRETERO",
		"departure_hscodes": 8471300100,
		"departure_gross_weight": "1200.5",
		"departure_goods_usd_value": 35000,
		"departure_freight_usd_value": "",
		"departure_insurance_usd_value": null,
		"dispatch_customs": "NUEVO LAREDO",
		"custom_broker_id": "3012",
		"customs_regime_id": "A1",
		"incoterm": "DAP",
		"teus_qty": "2"
	}`)

	rec, err := ParseRecord(raw)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-05", rec.DispatchDate)
	assert.Equal(t, "ACME SA DE CV", rec.ImporterName)
	assert.Equal(t, "AAA010101AAA", rec.ImporterTaxID)
	assert.Equal(t, "ESTADOS UNIDOS", rec.OriginCountry)
	assert.Equal(t, "8471300100", rec.HSCode)
	assert.Equal(t, 1200.5, rec.GrossWeightKg)
	assert.Equal(t, 35000.0, rec.GoodsValueUSD)
	assert.Zero(t, rec.FreightUSD)
	assert.Zero(t, rec.InsuranceUSD)
	assert.Equal(t, "3012", rec.BrokerID)
	assert.Equal(t, "A1", rec.RegimeCode())
	assert.Equal(t, 2.0, rec.TEUs)
}

func TestParseRecord_AbsentFieldsAreZero(t *testing.T) {
	rec, err := ParseRecord(json.RawMessage(`{"importer_name":"ACME"}`))
	require.NoError(t, err)
	assert.Equal(t, "ACME", rec.ImporterName)
	assert.Empty(t, rec.DispatchDate)
	assert.Zero(t, rec.GrossWeightKg)
	assert.Zero(t, rec.TEUs)
}

func TestParseRecord_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"negative freight", `{"departure_freight_usd_value": -10}`},
		{"negative string weight", `{"departure_gross_weight": "-1"}`},
		{"non-numeric value", `{"departure_goods_usd_value": "n/a"}`},
		{"boolean number", `{"teus_qty": true}`},
		{"bad date", `{"dispatch_date": "15/01/2024"}`},
		{"object as string", `{"importer_name": {"x": 1}}`},
		{"not an object", `[1,2]`},
		{"scalar", `42`},
		{"null", `null`},
		{"broker id too long", `{"custom_broker_id": "` + strings.Repeat("B", 51) + `"}`},
		{"regime id too long", `{"customs_regime_id": "` + strings.Repeat("A", 21) + `"}`},
		{"incoterm too long", `{"incoterm": "` + strings.Repeat("X", 27) + `"}`},
		{"importer name too long", `{"importer_name": "` + strings.Repeat("N", 501) + `"}`},
		{"NUL in supplier", `{"supplier_name": "ACME\u0000SUPPLY"}`},
		{"NUL in address", `{"importer_address": "CALLE 1\u0000"}`},
		{"freight overflows column", `{"departure_freight_usd_value": 1e17}`},
		{"weight at column limit", `{"departure_gross_weight": "10000000000000000"}`},
		{"teus overflows column", `{"teus_qty": 1e10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, ErrCoercion)
		})
	}
}

func TestParseRecord_AcceptsValuesAtColumnLimits(t *testing.T) {
	raw := `{
		"custom_broker_id": "` + strings.Repeat("B", 50) + `",
		"customs_regime_id": "` + strings.Repeat("A", 20) + `",
		"incoterm": "` + strings.Repeat("É", 20) + `",
		"importer_address": "` + strings.Repeat("CALLE ", 200) + `",
		"departure_freight_usd_value": 9999999999999.99,
		"dispatch_date": "2024-01-15T10:30:00.123456789-06:00"
	}`
	rec, err := ParseRecord(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Len(t, rec.BrokerID, 50)
	assert.Len(t, rec.CustomsRegimeID, 20)
	assert.Equal(t, strings.Repeat("É", 20), rec.Incoterm)
	assert.Equal(t, 9999999999999.99, rec.FreightUSD)
	assert.Equal(t, "2024-01-15", rec.DispatchDate)
}
