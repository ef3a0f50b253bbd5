package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/reports"
	"github.com/stwalsh4118/catalogsync/internal/repository"
	"github.com/stwalsh4118/catalogsync/internal/resolver"
)

// Discrepancy errors
var (
	ErrUnauthorized       = errors.New("operator identity required")
	ErrInvalidField       = errors.New("unknown discrepancy field")
	ErrInvalidDiscrepancy = errors.New("invalid discrepancy")
)

// typeSynonyms maps lower-cased property type labels to one canonical token.
var typeSynonyms = map[string]string{
	"piso":            "piso",
	"apartamento":     "apartamento",
	"ático":           "atico",
	"atico":           "atico",
	"ático dúplex":    "atico duplex",
	"atico duplex":    "atico duplex",
	"dúplex":          "duplex",
	"duplex":          "duplex",
	"villa":           "villa",
	"chalet":          "chalet",
	"casa":            "casa",
	"casa adosada":    "adosado",
	"adosado":         "adosado",
	"bungalow":        "bungalow",
	"terreno":         "terreno",
	"solar":           "solar",
	"local":           "local",
	"local comercial": "local comercial",
	"garaje":          "garaje",
	"trastero":        "trastero",
	"nave":            "nave industrial",
	"nave industrial": "nave industrial",
	"finca":           "finca rustica",
	"finca rústica":   "finca rustica",
	"finca rustica":   "finca rustica",
	"edificio":        "edificio",
}

// NormalizeType folds a property type label to its canonical token.
// Unknown labels are lower-cased with collapsed whitespace.
func NormalizeType(label string) string {
	key := strings.Join(strings.Fields(strings.ToLower(label)), " ")
	if canonical, ok := typeSynonyms[key]; ok {
		return canonical
	}
	return key
}

// DiscrepancyService compares the ledger with the published catalog.
type DiscrepancyService interface {
	// Detect builds a fresh report. Dismissed tuples are left out.
	Detect(ctx context.Context) (*models.DiscrepancyReport, error)

	// Dismiss records that operator accepted one exact discrepancy.
	// Returns ErrUnauthorized when operator is empty, before any write.
	Dismiss(ctx context.Context, operator string, d models.Discrepancy) error

	// ExportXLSX writes a freshly detected report as an Excel workbook.
	ExportXLSX(ctx context.Context, w io.Writer) error
}

type discrepancyService struct {
	ledger     repository.LedgerRepository
	meta       repository.MetadataRepository
	features   repository.FeaturesRepository
	dismissals repository.DismissalRepository
	log        *logger.Logger
	now        func() time.Time
}

// NewDiscrepancyService creates a new instance of DiscrepancyService.
func NewDiscrepancyService(
	ledger repository.LedgerRepository,
	meta repository.MetadataRepository,
	features repository.FeaturesRepository,
	dismissals repository.DismissalRepository,
	log *logger.Logger,
) DiscrepancyService {
	return &discrepancyService{
		ledger:     ledger,
		meta:       meta,
		features:   features,
		dismissals: dismissals,
		log:        log.WithComponent("discrepancies"),
		now:        time.Now,
	}
}

func (s *discrepancyService) Detect(ctx context.Context) (*models.DiscrepancyReport, error) {
	mandates, err := s.ledger.ListMandates(ctx, models.ComparableContracts)
	if err != nil {
		return nil, fmt.Errorf("failed to load mandates: %w", err)
	}

	views, err := loadViews(ctx, s.meta, s.features, resolver.Options{})
	if err != nil {
		return nil, err
	}

	records, err := s.dismissals.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dismissals: %w", err)
	}
	dismissed := make(map[string]bool, len(records))
	for _, rec := range records {
		dismissed[dismissalKey(rec.Reference, rec.Field, rec.LedgerValue, rec.PublishedValue)] = true
	}

	published := indexViews(views)

	report := &models.DiscrepancyReport{
		GeneratedAt:             s.now(),
		Discrepancies:           map[string][]models.Discrepancy{},
		UnpublishedMandates:     []string{},
		PublishedWithoutMandate: []string{},
	}

	inLedger := make(map[string]bool, len(mandates))
	unpublished := make(map[string]bool)
	emitted := make(map[string]bool)

	for _, entry := range mandates {
		ref := resolver.NormalizeReference(entry.Reference)
		if ref == "" {
			continue
		}
		inLedger[ref] = true

		view, ok := published[ref]
		if !ok {
			if !unpublished[ref] {
				unpublished[ref] = true
				report.UnpublishedMandates = append(report.UnpublishedMandates, ref)
			}
			continue
		}
		if !view.Available {
			continue
		}

		for _, d := range compare(ref, entry, view) {
			key := dismissalKey(d.Reference, d.Field, d.LedgerValue, d.PublishedValue)
			if dismissed[key] {
				report.Suppressed++
				continue
			}
			if emitted[key] {
				continue
			}
			emitted[key] = true
			report.Discrepancies[ref] = append(report.Discrepancies[ref], d)
		}
	}

	for ref, view := range published {
		if view.Available && !inLedger[ref] && !strings.HasPrefix(ref, "#") {
			report.PublishedWithoutMandate = append(report.PublishedWithoutMandate, ref)
		}
	}
	sort.Strings(report.UnpublishedMandates)
	sort.Strings(report.PublishedWithoutMandate)

	s.log.Info("Discrepancy detection finished", map[string]interface{}{
		"mandates":                  len(mandates),
		"listings":                  len(views),
		"discrepancies":             report.Count(),
		"suppressed":                report.Suppressed,
		"unpublished_mandates":      len(report.UnpublishedMandates),
		"published_without_mandate": len(report.PublishedWithoutMandate),
	})
	return report, nil
}

func (s *discrepancyService) Dismiss(ctx context.Context, operator string, d models.Discrepancy) error {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return ErrUnauthorized
	}
	if !models.IsComparedField(d.Field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, d.Field)
	}

	ref := resolver.NormalizeReference(d.Reference)
	if ref == "" {
		return fmt.Errorf("%w: reference is required", ErrInvalidDiscrepancy)
	}
	if strings.TrimSpace(d.LedgerValue) == "" || strings.TrimSpace(d.PublishedValue) == "" {
		return fmt.Errorf("%w: both values are required", ErrInvalidDiscrepancy)
	}

	rec := models.DismissalRecord{
		Reference:      ref,
		Field:          d.Field,
		LedgerValue:    strings.TrimSpace(d.LedgerValue),
		PublishedValue: strings.TrimSpace(d.PublishedValue),
		DismissedBy:    operator,
		DismissedAt:    s.now(),
	}
	if err := s.dismissals.Upsert(ctx, rec); err != nil {
		s.log.Error("Failed to store dismissal", err, map[string]interface{}{
			"ref":   ref,
			"field": d.Field,
		})
		return fmt.Errorf("failed to dismiss discrepancy: %w", err)
	}

	s.log.Info("Discrepancy dismissed", map[string]interface{}{
		"ref":          ref,
		"field":        d.Field,
		"ledger":       rec.LedgerValue,
		"published":    rec.PublishedValue,
		"dismissed_by": operator,
	})
	return nil
}

func (s *discrepancyService) ExportXLSX(ctx context.Context, w io.Writer) error {
	report, err := s.Detect(ctx)
	if err != nil {
		return err
	}
	if err := reports.WriteDiscrepancies(w, report); err != nil {
		return fmt.Errorf("failed to export discrepancies: %w", err)
	}
	return nil
}

// indexViews keys views by normalized reference. When two listings share a
// reference the available one wins.
func indexViews(views []models.PublishedView) map[string]models.PublishedView {
	index := make(map[string]models.PublishedView, len(views))
	for _, v := range views {
		ref := resolver.NormalizeReference(v.Reference)
		if ref == "" {
			continue
		}
		if existing, ok := index[ref]; ok && existing.Available && !v.Available {
			continue
		}
		index[ref] = v
	}
	return index
}

// compare returns the field mismatches between a mandate and its listing.
// A zero or empty value on either side is unknown and never reported.
func compare(ref string, entry models.LedgerEntry, view models.PublishedView) []models.Discrepancy {
	var out []models.Discrepancy

	if lp, pp := entry.CurrentPrice(), view.Price; lp > 0 && pp > 0 && lp != pp {
		out = append(out, models.Discrepancy{
			Reference: ref, Field: models.FieldPrice,
			LedgerValue: formatValue(lp), PublishedValue: formatValue(pp),
		})
	}

	lt, pt := strings.TrimSpace(entry.PropertyType), strings.TrimSpace(view.Type)
	if pt == resolver.PlaceholderType {
		pt = ""
	}
	if lt != "" && pt != "" && NormalizeType(lt) != NormalizeType(pt) {
		out = append(out, models.Discrepancy{
			Reference: ref, Field: models.FieldType,
			LedgerValue: lt, PublishedValue: pt,
		})
	}

	if entry.Rooms > 0 && view.Rooms > 0 && entry.Rooms != view.Rooms {
		out = append(out, models.Discrepancy{
			Reference: ref, Field: models.FieldRooms,
			LedgerValue: strconv.Itoa(entry.Rooms), PublishedValue: strconv.Itoa(view.Rooms),
		})
	}

	if entry.Baths > 0 && view.Baths > 0 && entry.Baths != view.Baths {
		out = append(out, models.Discrepancy{
			Reference: ref, Field: models.FieldBaths,
			LedgerValue: strconv.Itoa(entry.Baths), PublishedValue: strconv.Itoa(view.Baths),
		})
	}

	return out
}

func dismissalKey(ref, field, ledger, published string) string {
	return strings.Join([]string{resolver.NormalizeReference(ref), field, ledger, published}, "|")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
