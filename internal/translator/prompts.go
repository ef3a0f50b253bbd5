package translator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stwalsh4118/catalogsync/internal/models"
)

// Footer is appended to every machine translation.
const Footer = "\n\nNous parlons français. We speak English. Mówimy po polsku. Parliamo italiano."

// footerMarker identifies a text that already carries the footer.
const footerMarker = "Nous parlons français"

// LanguagePrompt is the persona and template used for one target language.
type LanguagePrompt struct {
	Code         string
	NativeName   string
	Portal       string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

// Catalog is an immutable set of language prompts with a fixed order.
type Catalog struct {
	prompts map[string]LanguagePrompt
	order   []string
}

// NewCatalog builds a catalog. Later duplicates of a code replace earlier ones
// but keep the first position.
func NewCatalog(prompts ...LanguagePrompt) *Catalog {
	c := &Catalog{prompts: make(map[string]LanguagePrompt, len(prompts))}
	for _, p := range prompts {
		if _, seen := c.prompts[p.Code]; !seen {
			c.order = append(c.order, p.Code)
		}
		c.prompts[p.Code] = p
	}
	return c
}

// DefaultCatalog returns the built-in market prompts (en, fr, de, it, pl).
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultPrompts...)
}

// Get returns the prompt for lang.
func (c *Catalog) Get(lang string) (LanguagePrompt, bool) {
	p, ok := c.prompts[lang]
	return p, ok
}

// Languages returns the configured codes in catalog order.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Restrict splits langs into the codes the catalog knows, in the order given,
// and the unknown ones, sorted. Duplicates are dropped.
func (c *Catalog) Restrict(langs []string) (known, unknown []string) {
	seen := make(map[string]bool, len(langs))
	for _, l := range langs {
		if seen[l] {
			continue
		}
		seen[l] = true
		if _, ok := c.prompts[l]; ok {
			known = append(known, l)
		} else {
			unknown = append(unknown, l)
		}
	}
	sort.Strings(unknown)
	return known, unknown
}

// PropertyData is the listing context sent next to the description.
// It grounds the translation and is never translated itself.
type PropertyData struct {
	Reference string
	Type      string
	City      string
	Price     float64
	Area      float64
	Rooms     int
	Baths     int
}

// PropertyDataFromView extracts the context block fields from a resolved listing.
func PropertyDataFromView(v models.PublishedView) PropertyData {
	return PropertyData{
		Reference: v.Reference,
		Type:      v.Type,
		City:      v.City,
		Price:     v.Price,
		Area:      v.Area,
		Rooms:     v.Rooms,
		Baths:     v.Baths,
	}
}

func (d PropertyData) block() string {
	var parts []string
	if d.Reference != "" {
		parts = append(parts, "Ref: "+d.Reference)
	}
	if d.Type != "" {
		parts = append(parts, "Tipo: "+d.Type)
	}
	if d.Price > 0 {
		parts = append(parts, fmt.Sprintf("Precio (solo contexto, no mencionar): %s €", formatNumber(d.Price)))
	}
	if d.Area > 0 {
		parts = append(parts, fmt.Sprintf("Superficie: %sm²", formatNumber(d.Area)))
	}
	if d.Rooms > 0 {
		parts = append(parts, fmt.Sprintf("Habitaciones: %d", d.Rooms))
	}
	if d.Baths > 0 {
		parts = append(parts, fmt.Sprintf("Baños: %d", d.Baths))
	}
	if d.City != "" {
		parts = append(parts, "Ubicación: "+d.City)
	}
	if len(parts) == 0 {
		return ""
	}
	return "\nDatos de la propiedad:\n" + strings.Join(parts, " | ") + "\n"
}

// BuildUserMessage fills the prompt's user template.
func BuildUserMessage(p LanguagePrompt, description string, data PropertyData) string {
	msg := strings.Replace(p.UserPrompt, "{{DESCRIPTION}}", description, 1)
	return strings.Replace(msg, "{{PROPERTY_DATA}}", data.block(), 1)
}

// HasFooter reports whether text already ends with (or contains) the footer.
func HasFooter(text string) bool {
	return strings.Contains(text, footerMarker)
}

// AppendFooter adds the footer once.
func AppendFooter(text string) string {
	if HasFooter(text) {
		return text
	}
	return strings.TrimRight(text, " \n") + Footer
}

// StripCodeFences removes a surrounding ``` block the model sometimes adds.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], " \t") {
		// Drop a language tag such as ```json or ```text.
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
