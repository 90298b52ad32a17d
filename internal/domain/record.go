package domain

import "time"

// DateLayout is the storage and filter format for dispatch dates.
const DateLayout = "2006-01-02"

// ImportRecord is one customs declaration line for an importer.
// Monetary and weight fields are never negative; absent values are zero.
type ImportRecord struct {
	ID                   int64     `json:"id,omitempty" db:"id"`
	DispatchDate         string    `json:"dispatch_date" db:"dispatch_date"`
	ImporterName         string    `json:"importer_name" db:"importer_name"`
	ImporterAddress      string    `json:"importer_address,omitempty" db:"importer_address"`
	ImporterTaxID        string    `json:"importer_tax_id,omitempty" db:"importer_tax_id"`
	SupplierName         string    `json:"supplier_name,omitempty" db:"supplier_name"`
	SupplierAddress      string    `json:"supplier_address,omitempty" db:"supplier_address"`
	OriginCountry        string    `json:"origin_country,omitempty" db:"origin_country"`
	BuyerSellerCountry   string    `json:"buyer_seller_country,omitempty" db:"buyer_seller_country"`
	Transport            string    `json:"transport,omitempty" db:"transport"`
	HSCode               string    `json:"hs_code,omitempty" db:"hs_code"`
	GrossWeightKg        float64   `json:"gross_weight_kg" db:"gross_weight_kg"`
	GoodsValueUSD        float64   `json:"goods_value_usd" db:"goods_value_usd"`
	FreightUSD           float64   `json:"freight_usd" db:"freight_usd"`
	InsuranceUSD         float64   `json:"insurance_usd" db:"insurance_usd"`
	DispatchCustoms      string    `json:"dispatch_customs,omitempty" db:"dispatch_customs"`
	EntryCustoms         string    `json:"entry_customs,omitempty" db:"entry_customs"`
	DispatchCustomsState string    `json:"dispatch_customs_state,omitempty" db:"dispatch_customs_state"`
	BrokerID             string    `json:"broker_id,omitempty" db:"broker_id"`
	CustomsRegime        string    `json:"customs_regime,omitempty" db:"customs_regime"`
	CustomsRegimeID      string    `json:"customs_regime_id,omitempty" db:"customs_regime_id"`
	DeclarationType      string    `json:"declaration_type,omitempty" db:"declaration_type"`
	Incoterm             string    `json:"incoterm,omitempty" db:"incoterm"`
	ContainerType        string    `json:"container_type,omitempty" db:"container_type"`
	TEUs                 float64   `json:"teus" db:"teus"`
	CreatedAt            time.Time `json:"created_at,omitempty" db:"created_at"`
}

// RegimeCode returns the short customs regime key (e.g. "A1"), preferring the
// dedicated id column over the free-text regime.
func (r ImportRecord) RegimeCode() string {
	if r.CustomsRegimeID != "" {
		return r.CustomsRegimeID
	}
	return r.CustomsRegime
}

// ClearScope controls which stored records are removed before an ingest writes.
type ClearScope string

const (
	ClearNone   ClearScope = "none"
	ClearEntity ClearScope = "entity"
	ClearAll    ClearScope = "all"
)

// Valid reports whether s is a known scope. The empty value is accepted and
// means ClearEntity.
func (s ClearScope) Valid() bool {
	switch s {
	case "", ClearNone, ClearEntity, ClearAll:
		return true
	}
	return false
}

// OrDefault maps the zero value to ClearEntity.
func (s ClearScope) OrDefault() ClearScope {
	if s == "" {
		return ClearEntity
	}
	return s
}

// Status is a point-in-time view of both stores.
type Status struct {
	RecordCount  int        `json:"record_count"`
	SummaryCount int        `json:"summary_count"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}
