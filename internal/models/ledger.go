package models

import (
	"sort"
	"time"
)

// Contract categories of ledger mandates that are compared against the catalog.
// Anything else (buyer search mandates, valuations, ...) is ignored.
const (
	ContractSaleNoExclusive        = "venta-sin-exclusiva"
	ContractSaleExclusive          = "venta-con-exclusiva"
	ContractSaleMandateNoExclusive = "encargo_venta_sin_exclusiva"
	ContractRental                 = "alquiler"
)

// ComparableContracts is the allow-list of contract categories.
var ComparableContracts = []string{
	ContractSaleNoExclusive,
	ContractSaleExclusive,
	ContractSaleMandateNoExclusive,
	ContractRental,
}

// Compared field names. They are persisted in dismissal records and must stay stable.
const (
	FieldPrice = "precio"
	FieldType  = "tipo"
	FieldRooms = "habitaciones"
	FieldBaths = "baños"
)

// ComparedFields lists the discrepancy fields in report order.
var ComparedFields = []string{FieldPrice, FieldType, FieldRooms, FieldBaths}

// IsComparedField reports whether field is one of the compared fields.
func IsComparedField(field string) bool {
	for _, f := range ComparedFields {
		if f == field {
			return true
		}
	}
	return false
}

// LedgerEntry is one brokerage mandate (encargo). Read-only for this service.
type LedgerEntry struct {
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	Reference    string    `db:"ref" json:"ref"`
	PropertyType string    `db:"tipo_inmueble" json:"tipoInmueble"`
	Status       string    `db:"estado" json:"estado"`
	ContractType string    `db:"tipo_contrato" json:"tipoContrato"`
	Price        float64   `db:"precio" json:"precio"`
	NewPrice     float64   `db:"precio_nuevo" json:"precioNuevo"`
	ID           int64     `db:"id" json:"id"`
	Rooms        int       `db:"habitaciones" json:"habitaciones"`
	Baths        int       `db:"banos" json:"banos"`
}

// CurrentPrice is the renegotiated price when set, the original one otherwise.
func (e LedgerEntry) CurrentPrice() float64 {
	if e.NewPrice > 0 {
		return e.NewPrice
	}
	return e.Price
}

// Discrepancy is a field-level mismatch between a mandate and the published view.
// Values are the string forms used for dismissal matching.
type Discrepancy struct {
	Reference      string `json:"ref" binding:"required"`
	Field          string `json:"campo" binding:"required"`
	LedgerValue    string `json:"valorEncargo" binding:"required"`
	PublishedValue string `json:"valorWeb" binding:"required"`
}

// DismissalRecord suppresses one exact discrepancy tuple.
type DismissalRecord struct {
	DismissedAt    time.Time `db:"dismissed_at" json:"dismissedAt"`
	Reference      string    `db:"ref" json:"ref"`
	Field          string    `db:"campo" json:"campo"`
	LedgerValue    string    `db:"valor_encargo" json:"valorEncargo"`
	PublishedValue string    `db:"valor_web" json:"valorWeb"`
	DismissedBy    string    `db:"dismissed_by" json:"dismissedBy"`
	ID             int64     `db:"id" json:"id"`
}

// DiscrepancyReport is the output of one detection run.
// Discrepancies is keyed by normalized reference.
type DiscrepancyReport struct {
	GeneratedAt             time.Time                `json:"generatedAt"`
	Discrepancies           map[string][]Discrepancy `json:"discrepancies"`
	UnpublishedMandates     []string                 `json:"unpublishedMandates"`
	PublishedWithoutMandate []string                 `json:"publishedWithoutMandate"`
	Suppressed              int                      `json:"suppressed"`
}

// Count returns the number of live discrepancies.
func (r DiscrepancyReport) Count() int {
	n := 0
	for _, list := range r.Discrepancies {
		n += len(list)
	}
	return n
}

// References returns the references with discrepancies, sorted.
func (r DiscrepancyReport) References() []string {
	refs := make([]string, 0, len(r.Discrepancies))
	for ref := range r.Discrepancies {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
