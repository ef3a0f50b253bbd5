package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ListingSnapshot is one listing as returned by the CRM at fetch time.
// It is immutable once fetched and is replaced wholesale on every re-sync.
type ListingSnapshot struct {
	ID           FlexInt    `json:"cod_ofer"`
	Reference    FlexString `json:"ref"`
	SalePrice    FlexFloat  `json:"precioinmo"`
	ListPrice    FlexFloat  `json:"precio"`
	RentPrice    FlexFloat  `json:"precioalq"`
	TypeName     FlexString `json:"tipo_nombre"`
	TypeKey      FlexInt    `json:"key_tipo"`
	City         FlexString `json:"poblacion"`
	Municipality FlexString `json:"municipio"`
	PostalCode   FlexString `json:"cp"`
	SingleRooms  FlexInt    `json:"habitaciones"`
	DoubleRooms  FlexInt    `json:"habdobles"`
	Baths        FlexInt    `json:"banyos"`
	BuiltArea    FlexFloat  `json:"m_cons"`
	UsableArea   FlexFloat  `json:"m_utiles"`
	Description  FlexString `json:"descripciones"`
	PhotoCount   FlexInt    `json:"numfotos"`
	PhotoLetter  FlexString `json:"fotoletra"`
	AgencyNumber FlexInt    `json:"numagencia"`
	OperationKey FlexInt    `json:"keyacci"`
	Unavailable  FlexBool   `json:"nodisponible"`
}

// Scan implements sql.Scanner for the full_data JSONB column.
func (s *ListingSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = ListingSnapshot{}
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan ListingSnapshot: %w", err)
	}
	if len(data) == 0 {
		*s = ListingSnapshot{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to unmarshal listing snapshot: %w", err)
	}
	return nil
}

// Value implements driver.Valuer for the full_data JSONB column.
func (s ListingSnapshot) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing snapshot: %w", err)
	}
	return string(data), nil
}

// PhotoURLs builds the photo URLs following the CRM naming convention
// <base>/<agency>/<id>/<letter>-<n>.jpg, numbered from 1.
func (s ListingSnapshot) PhotoURLs(base string) []string {
	count := int(s.PhotoCount)
	if count <= 0 || base == "" {
		return []string{}
	}
	base = strings.TrimRight(base, "/")
	urls := make([]string, 0, count)
	for n := 1; n <= count; n++ {
		urls = append(urls, fmt.Sprintf("%s/%d/%d/%s-%d.jpg", base, s.AgencyNumber, s.ID, s.PhotoLetter, n))
	}
	return urls
}

// DescriptionBag maps a language code to the description text in that language.
// The source-language text lives in the same bag under its own code.
type DescriptionBag map[string]string

// Get returns the trimmed text for lang, or "" when absent.
func (b DescriptionBag) Get(lang string) string {
	if b == nil {
		return ""
	}
	return strings.TrimSpace(b[lang])
}

// Has reports whether lang carries non-empty text.
func (b DescriptionBag) Has(lang string) bool {
	return b.Get(lang) != ""
}

// Missing returns the languages from langs that have no text, in the given order.
func (b DescriptionBag) Missing(langs []string) []string {
	missing := make([]string, 0, len(langs))
	for _, lang := range langs {
		if !b.Has(lang) {
			missing = append(missing, lang)
		}
	}
	return missing
}

// Clone returns a copy that is never nil.
func (b DescriptionBag) Clone() DescriptionBag {
	out := make(DescriptionBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// AdminOverrides holds values an operator pinned. They win over anything sync writes.
type AdminOverrides struct {
	Price     *float64 `json:"precio,omitempty"`
	Type      *string  `json:"tipo,omitempty"`
	City      *string  `json:"poblacion,omitempty"`
	Available *bool    `json:"disponible,omitempty"`
}

// IsEmpty reports whether no override is set.
func (o AdminOverrides) IsEmpty() bool {
	return o.Price == nil && o.Type == nil && o.City == nil && o.Available == nil
}

// Scan implements sql.Scanner for the admin_overrides JSONB column.
func (o *AdminOverrides) Scan(value interface{}) error {
	*o = AdminOverrides{}
	if value == nil {
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan AdminOverrides: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("failed to unmarshal admin overrides: %w", err)
	}
	return nil
}

// Value implements driver.Valuer for the admin_overrides JSONB column.
func (o AdminOverrides) Value() (driver.Value, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal admin overrides: %w", err)
	}
	return string(data), nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case map[string]interface{}:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("expected JSON bytes, got %T", value)
	}
}
