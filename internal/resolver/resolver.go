// Package resolver turns a stored listing row into its published view.
//
// Each output field follows a fixed precedence list and takes the first
// non-empty candidate:
//
//	reference  column, snapshot ref, "#<id>"
//	type       override, column (unless "Property"), snapshot tipo_nombre, column
//	city       override, column, snapshot poblacion, snapshot municipio
//	price      override, column, snapshot precioinmo, snapshot precio
//	available  override, not column nodisponible
//	area       features, snapshot m_cons, snapshot m_utiles
//	rooms      features split sum, features total, snapshot single+double
//	baths      features, snapshot banyos
//	photos     snapshot numfotos/fotoletra under Options.PhotoBaseURL
//
// Resolve does no I/O and never fails; missing inputs produce zero values.
package resolver

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/stwalsh4118/catalogsync/internal/models"
)

// PlaceholderType is the type label the CRM import writes when it has no real type.
const PlaceholderType = "Property"

// Options carries the deployment settings some view fields depend on. The zero
// value leaves Photos empty and skips the source-text check.
type Options struct {
	SourceLanguage string
	PhotoBaseURL   string
}

// Resolve builds the published view for meta, using features when present.
func Resolve(meta models.PropertyMetadata, features *models.PropertyFeatures) models.PublishedView {
	return ResolveWith(meta, features, Options{})
}

// ResolveWith is Resolve with photo URLs and the source-text check enabled by opts.
func ResolveWith(meta models.PropertyMetadata, features *models.PropertyFeatures, opts Options) models.PublishedView {
	snap := meta.Snapshot
	ov := meta.Overrides

	view := models.PublishedView{
		ID:           meta.ID,
		Reference:    resolveReference(meta),
		Type:         resolveType(meta),
		City:         firstString(deref(ov.City), meta.City, string(snap.City), string(snap.Municipality)),
		PostalCode:   strings.TrimSpace(string(snap.PostalCode)),
		Price:        firstPositive(derefFloat(ov.Price), meta.Price, float64(snap.SalePrice), float64(snap.ListPrice)),
		Available:    !meta.Unavailable,
		PhotoCount:   int(snap.PhotoCount),
		Descriptions: meta.Descriptions.Clone(),
		UpdatedAt:    meta.UpdatedAt,
		Issues:       []string{},
		Photos:       snap.PhotoURLs(opts.PhotoBaseURL),
		Overridden:   !ov.IsEmpty(),
	}
	if ov.Available != nil {
		view.Available = *ov.Available
	}

	var f models.PropertyFeatures
	if features != nil {
		f = *features
	}

	view.Area = firstPositive(derefFloat(f.Area), float64(snap.BuiltArea), float64(snap.UsableArea))
	view.SingleRooms = firstPositiveInt(derefInt(f.SingleRooms), int(snap.SingleRooms))
	view.DoubleRooms = firstPositiveInt(derefInt(f.DoubleRooms), int(snap.DoubleRooms))
	view.Baths = firstPositiveInt(derefInt(f.Baths), int(snap.Baths))
	view.Rooms = resolveRooms(f, snap, &view)

	if view.Reference == "" || strings.HasPrefix(view.Reference, "#") {
		view.Issues = append(view.Issues, models.IssueMissingReference)
	}
	if view.Price <= 0 {
		view.Issues = append(view.Issues, models.IssueMissingPrice)
	}
	if opts.SourceLanguage != "" && !view.Descriptions.Has(opts.SourceLanguage) {
		view.Issues = append(view.Issues, models.IssueMissingSourceText)
	}

	return view
}

// ResolveAll resolves every row, pairing it with its features row by id.
func ResolveAll(rows []models.PropertyMetadata, features map[int64]*models.PropertyFeatures, opts Options) []models.PublishedView {
	views := make([]models.PublishedView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ResolveWith(row, features[row.ID], opts))
	}
	return views
}

// NormalizeReference makes CRM and ledger references comparable:
// trimmed, all whitespace removed, upper-cased.
func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, ref))
}

func resolveReference(meta models.PropertyMetadata) string {
	if ref := firstString(meta.Reference, string(meta.Snapshot.Reference)); ref != "" {
		return ref
	}
	if meta.ID != 0 {
		return fmt.Sprintf("#%d", meta.ID)
	}
	return ""
}

func resolveType(meta models.PropertyMetadata) string {
	column := strings.TrimSpace(meta.Type)
	if column == PlaceholderType {
		column = ""
	}
	return firstString(deref(meta.Overrides.Type), column, string(meta.Snapshot.TypeName), meta.Type)
}

// resolveRooms prefers the split counts of the features row when both are
// known, since the total column is edited by hand and drifts. A stored total
// that disagrees with the split is flagged on the view.
func resolveRooms(f models.PropertyFeatures, snap models.ListingSnapshot, view *models.PublishedView) int {
	if f.SingleRooms != nil && f.DoubleRooms != nil {
		sum := *f.SingleRooms + *f.DoubleRooms
		if f.Rooms != nil && *f.Rooms != sum {
			view.Issues = append(view.Issues, models.IssueRoomsSplitMismatch)
		}
		if sum > 0 {
			return sum
		}
	}
	if total := derefInt(f.Rooms); total > 0 {
		return total
	}
	sum := int(snap.SingleRooms) + int(snap.DoubleRooms)
	if sum < 0 {
		return 0
	}
	return sum
}

func firstString(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
