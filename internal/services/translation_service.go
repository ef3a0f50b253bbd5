package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/repository"
	"github.com/stwalsh4118/catalogsync/internal/resolver"
	"github.com/stwalsh4118/catalogsync/internal/translator"
	"golang.org/x/sync/errgroup"
)

// Translation errors
var (
	ErrProviderNotConfigured = errors.New("translation provider not configured")
	ErrUnsupportedLanguage   = errors.New("unsupported language")
	ErrEmptyTranslation      = errors.New("translation text is empty")
)

// Translation defaults
const (
	DefaultTranslationBatchSize    = 10
	DefaultTranslationMaxBatchSize = 50
	DefaultTranslationCallTimeout  = 60 * time.Second
)

// TranslationRequest selects the work of one batch.
type TranslationRequest struct {
	IDs       []int64  `json:"ids"`
	Languages []string `json:"languages"`
	BatchSize int      `json:"batchSize"`
	Force     bool     `json:"force"`

	// AfterID resumes listing selection past this id.
	AfterID int64 `json:"-"`
}

// TranslationResult summarizes one or more batches.
type TranslationResult struct {
	PerListingErrors []ItemError `json:"perListingErrors"`
	Message          string      `json:"message,omitempty"`
	CostEstimate     float64     `json:"costEstimate"`
	Processed        int         `json:"processed"`
	Translated       int         `json:"translated"`
	Errors           int         `json:"errors"`
	Skipped          int         `json:"skipped"`
	TokensUsed       int         `json:"tokensUsed"`
	Batches          int         `json:"batches"`
	Success          bool        `json:"success"`

	lastID    int64
	exhausted bool
}

func (r *TranslationResult) addError(e ItemError) {
	r.Errors++
	if len(r.PerListingErrors) < maxItemErrors {
		r.PerListingErrors = append(r.PerListingErrors, e)
	}
}

func (r *TranslationResult) merge(other *TranslationResult) {
	r.Processed += other.Processed
	r.Translated += other.Translated
	r.Skipped += other.Skipped
	r.TokensUsed += other.TokensUsed
	r.CostEstimate += other.CostEstimate
	r.Batches += other.Batches
	r.Errors += other.Errors
	for _, e := range other.PerListingErrors {
		if len(r.PerListingErrors) >= maxItemErrors {
			break
		}
		r.PerListingErrors = append(r.PerListingErrors, e)
	}
}

// TranslationOptions configures the pipeline.
type TranslationOptions struct {
	SourceLanguage string
	Languages      []string
	BatchSize      int
	MaxBatchSize   int
	CallDelay      time.Duration
	BatchDelay     time.Duration
	CallTimeout    time.Duration
	Workers        int
	UnitCost       float64
}

// TranslationService fills missing description languages.
type TranslationService interface {
	// Run processes one batch. Provider or selection failures return a result
	// with Success=false together with the error.
	Run(ctx context.Context, req TranslationRequest) (*TranslationResult, error)

	// RunUntilDone repeats Run until no candidates remain or maxBatches is reached (0 = no limit).
	RunUntilDone(ctx context.Context, req TranslationRequest, maxBatches int) (*TranslationResult, error)

	// UpdateTranslation stores an operator-written text for one language.
	UpdateTranslation(ctx context.Context, id int64, lang, text string) error

	// RecentLog returns the latest audit entries, newest first.
	RecentLog(ctx context.Context, limit int) ([]models.TranslationLogEntry, error)
}

type translationService struct {
	provider translator.Provider
	catalog  *translator.Catalog
	meta     repository.MetadataRepository
	features repository.FeaturesRepository
	logs     repository.TranslationLogRepository
	log      *logger.Logger
	sleep    func(time.Duration)
	opts     TranslationOptions
}

// NewTranslationService creates a new instance of TranslationService.
// A nil provider is allowed; batches then report ErrProviderNotConfigured.
// Configured languages the catalog does not know are dropped.
func NewTranslationService(
	provider translator.Provider,
	catalog *translator.Catalog,
	meta repository.MetadataRepository,
	features repository.FeaturesRepository,
	logs repository.TranslationLogRepository,
	opts TranslationOptions,
	log *logger.Logger,
) TranslationService {
	log = log.WithComponent("translation")

	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultTranslationMaxBatchSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultTranslationBatchSize
	}
	if opts.BatchSize > opts.MaxBatchSize {
		opts.BatchSize = opts.MaxBatchSize
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultTranslationCallTimeout
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(opts.Languages) == 0 {
		opts.Languages = catalog.Languages()
	}

	known, unknown := catalog.Restrict(opts.Languages)
	for _, lang := range unknown {
		log.Warn("Ignoring language without prompt", map[string]interface{}{"language": lang})
	}
	languages := make([]string, 0, len(known))
	for _, lang := range known {
		if lang != opts.SourceLanguage {
			languages = append(languages, lang)
		}
	}
	opts.Languages = languages

	return &translationService{
		provider: provider,
		catalog:  catalog,
		meta:     meta,
		features: features,
		logs:     logs,
		log:      log,
		sleep:    time.Sleep,
		opts:     opts,
	}
}

// languagesFor returns the requested languages in configured order. Codes the
// catalog lacks or the deployment did not enable are rejected.
func (s *translationService) languagesFor(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return s.opts.Languages, nil
	}

	trimmed := make([]string, 0, len(requested))
	for _, lang := range requested {
		trimmed = append(trimmed, strings.TrimSpace(lang))
	}
	known, unknown := s.catalog.Restrict(trimmed)

	wanted := make(map[string]bool, len(known))
	for _, lang := range known {
		wanted[lang] = true
	}
	langs := make([]string, 0, len(known))
	for _, lang := range s.opts.Languages {
		if wanted[lang] {
			langs = append(langs, lang)
			delete(wanted, lang)
		}
	}
	for lang := range wanted {
		unknown = append(unknown, lang)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, strings.Join(unknown, ","))
	}
	return langs, nil
}

func (s *translationService) batchSize(requested int) int {
	switch {
	case requested <= 0:
		return s.opts.BatchSize
	case requested > s.opts.MaxBatchSize:
		return s.opts.MaxBatchSize
	default:
		return requested
	}
}

func (s *translationService) Run(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	result := &TranslationResult{PerListingErrors: []ItemError{}}

	if s.provider == nil {
		result.Message = ErrProviderNotConfigured.Error()
		return result, ErrProviderNotConfigured
	}

	langs, err := s.languagesFor(req.Languages)
	if err != nil {
		result.Message = err.Error()
		return result, err
	}

	limit := s.batchSize(req.BatchSize)
	ids := req.IDs
	truncated := ""
	if len(ids) > s.opts.MaxBatchSize {
		truncated = fmt.Sprintf("only the first %d of %d ids were processed", s.opts.MaxBatchSize, len(ids))
		s.log.Warn("Truncating explicit ids", map[string]interface{}{
			"requested": len(ids),
			"limit":     s.opts.MaxBatchSize,
		})
		ids = ids[:s.opts.MaxBatchSize]
	}

	candidates, err := s.meta.ListTranslationCandidates(ctx, repository.CandidateFilter{
		IDs:            ids,
		SourceLanguage: s.opts.SourceLanguage,
		TargetLanguage: langs,
		AfterID:        req.AfterID,
		Limit:          limit,
		Force:          req.Force,
	})
	if err != nil {
		s.log.Error("Failed to select translation candidates", err, nil)
		result.Message = "failed to select listings"
		return result, fmt.Errorf("failed to select translation candidates: %w", err)
	}

	result.Success = true
	result.Batches = 1
	result.exhausted = len(ids) > 0 || len(candidates) < limit
	result.Message = truncated
	if len(candidates) == 0 {
		result.Message = joinMessages("no listings need translation", truncated)
		return result, nil
	}
	result.lastID = candidates[len(candidates)-1].ID

	s.log.Info("Translation batch started", map[string]interface{}{
		"listings":  len(candidates),
		"languages": langs,
		"force":     req.Force,
		"workers":   s.opts.Workers,
	})

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range candidates {
		listing := candidates[i]
		g.Go(func() error {
			outcome := s.translateListing(gctx, listing, langs, req.Force)
			mu.Lock()
			result.merge(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("Translation batch finished", map[string]interface{}{
		"processed":     result.Processed,
		"translated":    result.Translated,
		"errors":        result.Errors,
		"skipped":       result.Skipped,
		"tokens":        result.TokensUsed,
		"cost_estimate": result.CostEstimate,
	})
	return result, nil
}

// translateListing runs every missing language of one listing sequentially.
func (s *translationService) translateListing(ctx context.Context, listing models.PropertyMetadata, langs []string, force bool) *TranslationResult {
	out := &TranslationResult{}
	fields := map[string]interface{}{"listing_id": listing.ID, "ref": listing.Reference}

	targets := langs
	if !force {
		targets = listing.Descriptions.Missing(langs)
	}
	if len(targets) == 0 {
		out.Skipped++
		return out
	}

	features, err := s.features.FindByID(ctx, listing.ID)
	if err != nil {
		s.log.Warn("Translating without features", map[string]interface{}{
			"listing_id": listing.ID,
			"error":      err.Error(),
		})
		features = nil
	}
	view := resolver.ResolveWith(listing, features, resolver.Options{SourceLanguage: s.opts.SourceLanguage})
	if view.HasIssue(models.IssueMissingSourceText) {
		fields["issue"] = models.IssueMissingSourceText
		s.log.Info("Skipping listing: no source text", fields)
		out.Skipped++
		return out
	}
	out.Processed++

	source := view.Descriptions.Get(s.opts.SourceLanguage)
	data := translator.PropertyDataFromView(view)

	staged := models.DescriptionBag{}
	succeeded := make([]string, 0, len(targets))
	failures := []string{}
	tokens := 0

	for _, lang := range targets {
		prompt, _ := s.catalog.Get(lang)
		msg := translator.BuildUserMessage(prompt, source, data)

		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		completion, err := s.provider.Translate(callCtx, prompt.SystemPrompt, msg, prompt.Temperature)
		cancel()
		s.sleep(s.opts.CallDelay)

		if err != nil {
			s.log.Warn("Translation call failed", map[string]interface{}{
				"listing_id": listing.ID,
				"language":   lang,
				"error":      err.Error(),
			})
			failures = append(failures, lang+": "+err.Error())
			out.addError(ItemError{ID: listing.ID, Reference: listing.Reference, Language: lang, Error: err.Error()})
			continue
		}

		tokens += completion.TotalTokens()
		staged[lang] = translator.AppendFooter(completion.Text)
		succeeded = append(succeeded, lang)
	}

	out.TokensUsed = tokens
	out.CostEstimate = s.cost(tokens)

	entry := &models.TranslationLogEntry{
		ListingID:      listing.ID,
		SourceLanguage: s.opts.SourceLanguage,
		TokensUsed:     tokens,
		CostEstimate:   out.CostEstimate,
		ErrorMessage:   strings.Join(failures, "; "),
	}

	if len(staged) == 0 {
		entry.Status = models.TranslationStatusError
		entry.TargetLanguages = targets
		s.appendLog(ctx, entry)
		return out
	}

	if err := s.meta.MergeDescriptions(ctx, listing.ID, staged, force); err != nil {
		s.log.Error("Failed to store translations", err, fields)
		out.addError(ItemError{ID: listing.ID, Reference: listing.Reference, Error: err.Error()})
		entry.Status = models.TranslationStatusError
		entry.TargetLanguages = succeeded
		entry.ErrorMessage = strings.TrimPrefix(entry.ErrorMessage+"; store: "+err.Error(), "; ")
		s.appendLog(ctx, entry)
		return out
	}

	out.Translated++
	entry.Status = models.TranslationStatusSuccess
	entry.TargetLanguages = succeeded
	s.appendLog(ctx, entry)

	s.log.Info("Listing translated", map[string]interface{}{
		"listing_id": listing.ID,
		"languages":  succeeded,
		"failed":     len(failures),
		"tokens":     tokens,
	})
	return out
}

func joinMessages(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "; ")
}

func (s *translationService) appendLog(ctx context.Context, entry *models.TranslationLogEntry) {
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.log.Error("Failed to write translation log", err, map[string]interface{}{
			"listing_id": entry.ListingID,
			"status":     entry.Status,
		})
	}
}

func (s *translationService) cost(tokens int) float64 {
	return float64(tokens) / 1000 * s.opts.UnitCost
}

func (s *translationService) RunUntilDone(ctx context.Context, req TranslationRequest, maxBatches int) (*TranslationResult, error) {
	total := &TranslationResult{PerListingErrors: []ItemError{}, Success: true}

	for {
		res, err := s.Run(ctx, req)
		if err != nil {
			if total.Batches == 0 {
				return res, err
			}
			total.Success = false
			total.Message = res.Message
			return total, err
		}
		total.merge(res)
		if res.Message != "" && total.Message == "" {
			total.Message = res.Message
		}

		if res.exhausted || (maxBatches > 0 && total.Batches >= maxBatches) {
			break
		}
		if ctx.Err() != nil {
			total.Message = "stopped: " + ctx.Err().Error()
			break
		}
		req.AfterID = res.lastID
		s.sleep(s.opts.BatchDelay)
	}

	s.log.Info("Translation run finished", map[string]interface{}{
		"batches":       total.Batches,
		"translated":    total.Translated,
		"errors":        total.Errors,
		"cost_estimate": total.CostEstimate,
	})
	return total, nil
}

func (s *translationService) UpdateTranslation(ctx context.Context, id int64, lang, text string) error {
	lang = strings.TrimSpace(lang)
	if lang != s.opts.SourceLanguage {
		if _, ok := s.catalog.Get(lang); !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyTranslation
	}

	if err := s.meta.MergeDescriptions(ctx, id, models.DescriptionBag{lang: text}, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("listing %d: %w", id, ErrListingNotFound)
		}
		return fmt.Errorf("failed to update %s translation of listing %d: %w", lang, id, err)
	}

	s.appendLog(ctx, &models.TranslationLogEntry{
		ListingID:       id,
		Status:          models.TranslationStatusSuccess,
		SourceLanguage:  models.SourceManualEdit,
		TargetLanguages: []string{lang},
	})
	s.log.Info("Translation edited", map[string]interface{}{
		"listing_id": id,
		"language":   lang,
	})
	return nil
}

func (s *translationService) RecentLog(ctx context.Context, limit int) ([]models.TranslationLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := s.logs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation log: %w", err)
	}
	return entries, nil
}
