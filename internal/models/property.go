package models

import (
	"time"
)

// PropertyMetadata is one row of property_metadata: the latest CRM snapshot,
// the dedicated columns that may diverge from it, operator overrides and the
// description bag.
type PropertyMetadata struct {
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
	Descriptions DescriptionBag  `db:"descriptions" json:"descriptions"`
	Overrides    AdminOverrides  `db:"admin_overrides" json:"adminOverrides"`
	Snapshot     ListingSnapshot `db:"full_data" json:"fullData"`
	Reference    string          `db:"ref" json:"ref"`
	Type         string          `db:"tipo" json:"tipo"`
	City         string          `db:"poblacion" json:"poblacion"`
	Price        float64         `db:"precio" json:"precio"`
	ID           int64           `db:"cod_ofer" json:"id"`
	Unavailable  bool            `db:"nodisponible" json:"nodisponible"`
}

// PropertyFeatures is one row of property_features. Nil pointers mean "not known".
// Single+double rooms should equal Rooms; a mismatch is a data-quality signal only.
type PropertyFeatures struct {
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	Area        *float64  `db:"superficie" json:"superficie,omitempty"`
	Price       *float64  `db:"precio" json:"precio,omitempty"`
	Rooms       *int      `db:"habitaciones" json:"habitaciones,omitempty"`
	SingleRooms *int      `db:"habitaciones_simples" json:"habitacionesSimples,omitempty"`
	DoubleRooms *int      `db:"habitaciones_dobles" json:"habitacionesDobles,omitempty"`
	Baths       *int      `db:"banos" json:"banos,omitempty"`
	ID          int64     `db:"cod_ofer" json:"id"`
}

// Data-quality issue codes attached to a PublishedView.
const (
	IssueRoomsSplitMismatch = "rooms_split_mismatch"
	IssueMissingReference   = "missing_reference"
	IssueMissingPrice       = "missing_price"
	IssueMissingSourceText  = "missing_source_text"
)

// PublishedView is the resolved, externally visible form of a listing.
// Every field has a zero-value default; slices and maps are never nil.
type PublishedView struct {
	UpdatedAt    time.Time      `json:"updatedAt"`
	Descriptions DescriptionBag `json:"descriptions"`
	Issues       []string       `json:"issues"`
	Photos       []string       `json:"fotos"`
	Reference    string         `json:"ref"`
	Type         string         `json:"tipo"`
	City         string         `json:"poblacion"`
	PostalCode   string         `json:"cp"`
	Price        float64        `json:"precio"`
	Area         float64        `json:"superficie"`
	ID           int64          `json:"id"`
	Rooms        int            `json:"habitaciones"`
	SingleRooms  int            `json:"habitacionesSimples"`
	DoubleRooms  int            `json:"habitacionesDobles"`
	Baths        int            `json:"banos"`
	PhotoCount   int            `json:"numFotos"`
	Available    bool           `json:"disponible"`
	Overridden   bool           `json:"overridden"`
}

// HasIssue reports whether the view carries the given data-quality issue.
func (v PublishedView) HasIssue(code string) bool {
	for _, issue := range v.Issues {
		if issue == code {
			return true
		}
	}
	return false
}

// SyncRow is what the sync engine writes for one listing. It only carries the
// fields sync owns.
type SyncRow struct {
	SyncedAt    time.Time
	Snapshot    ListingSnapshot
	Reference   string
	SourceText  string
	ID          int64
	Unavailable bool
}
