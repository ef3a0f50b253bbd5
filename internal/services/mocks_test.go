package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/repository"
	"github.com/stwalsh4118/catalogsync/internal/translator"
)

// MockCRMClient is a mock implementation of crm.Client for testing
type MockCRMClient struct {
	mock.Mock
}

func (m *MockCRMClient) ListListings(ctx context.Context, page int) ([]models.ListingSnapshot, error) {
	args := m.Called(ctx, page)
	listings, _ := args.Get(0).([]models.ListingSnapshot)
	return listings, args.Error(1)
}

func (m *MockCRMClient) GetListingDetail(ctx context.Context, id int64) (*models.ListingSnapshot, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*models.ListingSnapshot)
	return listing, args.Error(1)
}

// MockMetadataRepository is a mock implementation of MetadataRepository for testing
type MockMetadataRepository struct {
	mock.Mock
}

func (m *MockMetadataRepository) UpsertFromSync(ctx context.Context, rows []models.SyncRow, sourceLanguage string) (repository.SyncWriteResult, error) {
	args := m.Called(ctx, rows, sourceLanguage)
	res, _ := args.Get(0).(repository.SyncWriteResult)
	return res, args.Error(1)
}

func (m *MockMetadataRepository) MarkUnavailableExcept(ctx context.Context, seen []int64) (int64, error) {
	args := m.Called(ctx, seen)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *MockMetadataRepository) FindByID(ctx context.Context, id int64) (*models.PropertyMetadata, error) {
	args := m.Called(ctx, id)
	meta, _ := args.Get(0).(*models.PropertyMetadata)
	return meta, args.Error(1)
}

func (m *MockMetadataRepository) ListAll(ctx context.Context) ([]models.PropertyMetadata, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.PropertyMetadata)
	return rows, args.Error(1)
}

func (m *MockMetadataRepository) ListTranslationCandidates(ctx context.Context, filter repository.CandidateFilter) ([]models.PropertyMetadata, error) {
	args := m.Called(ctx, filter)
	rows, _ := args.Get(0).([]models.PropertyMetadata)
	return rows, args.Error(1)
}

func (m *MockMetadataRepository) ListMissingSourceText(ctx context.Context, sourceLanguage string, limit int) ([]models.PropertyMetadata, error) {
	args := m.Called(ctx, sourceLanguage, limit)
	rows, _ := args.Get(0).([]models.PropertyMetadata)
	return rows, args.Error(1)
}

func (m *MockMetadataRepository) MergeDescriptions(ctx context.Context, id int64, bag models.DescriptionBag, force bool) error {
	args := m.Called(ctx, id, bag, force)
	return args.Error(0)
}

func (m *MockMetadataRepository) SetPriceOverride(ctx context.Context, id int64, price float64) error {
	args := m.Called(ctx, id, price)
	return args.Error(0)
}

// MockFeaturesRepository is a mock implementation of FeaturesRepository for testing
type MockFeaturesRepository struct {
	mock.Mock
}

func (m *MockFeaturesRepository) ListAll(ctx context.Context) (map[int64]*models.PropertyFeatures, error) {
	args := m.Called(ctx)
	features, _ := args.Get(0).(map[int64]*models.PropertyFeatures)
	return features, args.Error(1)
}

func (m *MockFeaturesRepository) FindByID(ctx context.Context, id int64) (*models.PropertyFeatures, error) {
	args := m.Called(ctx, id)
	features, _ := args.Get(0).(*models.PropertyFeatures)
	return features, args.Error(1)
}

func (m *MockFeaturesRepository) Upsert(ctx context.Context, features models.PropertyFeatures) error {
	args := m.Called(ctx, features)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository for testing
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ListMandates(ctx context.Context, categories []string) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, categories)
	entries, _ := args.Get(0).([]models.LedgerEntry)
	return entries, args.Error(1)
}

// MockTranslationLogRepository is a mock implementation of TranslationLogRepository for testing
type MockTranslationLogRepository struct {
	mock.Mock
}

func (m *MockTranslationLogRepository) Insert(ctx context.Context, entry *models.TranslationLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTranslationLogRepository) ListRecent(ctx context.Context, limit int) ([]models.TranslationLogEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.TranslationLogEntry)
	return entries, args.Error(1)
}

// MockLeadRepository is a mock implementation of LeadRepository for testing
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// memoryDismissals is an in-memory DismissalRepository keyed by the full tuple.
type memoryDismissals struct {
	records map[string]models.DismissalRecord
	err     error
}

func newMemoryDismissals() *memoryDismissals {
	return &memoryDismissals{records: map[string]models.DismissalRecord{}}
}

func (d *memoryDismissals) Upsert(ctx context.Context, rec models.DismissalRecord) error {
	if d.err != nil {
		return d.err
	}
	d.records[rec.Reference+"|"+rec.Field+"|"+rec.LedgerValue+"|"+rec.PublishedValue] = rec
	return nil
}

func (d *memoryDismissals) ListAll(ctx context.Context) ([]models.DismissalRecord, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]models.DismissalRecord, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec)
	}
	return out, nil
}

// memoryRateLimits is an in-memory RateLimitRepository with an injectable failure.
type memoryRateLimits struct {
	counters map[string]*models.RateLimitCounter
	failOn   string
}

var errStorage = errors.New("storage unavailable")

func newMemoryRateLimits() *memoryRateLimits {
	return &memoryRateLimits{counters: map[string]*models.RateLimitCounter{}}
}

func (r *memoryRateLimits) Get(ctx context.Context, identifier string) (*models.RateLimitCounter, error) {
	if r.failOn == "get" {
		return nil, errStorage
	}
	c, ok := r.counters[identifier]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *memoryRateLimits) Start(ctx context.Context, identifier string, now, resetAt time.Time) error {
	if r.failOn == "start" {
		return errStorage
	}
	r.counters[identifier] = &models.RateLimitCounter{Identifier: identifier, Count: 1, LastAttempt: now, ResetAt: resetAt}
	return nil
}

func (r *memoryRateLimits) Increment(ctx context.Context, identifier string, now time.Time) error {
	if r.failOn == "increment" {
		return errStorage
	}
	c, ok := r.counters[identifier]
	if !ok {
		return repository.ErrNotFound
	}
	c.Count++
	c.LastAttempt = now
	return nil
}

// memoryMetadata is an in-memory MetadataRepository that honours the same
// write-ownership rules as the Postgres one.
type memoryMetadata struct {
	mu          sync.Mutex
	rows        map[int64]*models.PropertyMetadata
	failUpsert  map[int64]bool
	failMerge   map[int64]bool
	merges      int
	failMissing bool

	// failCandidatesOn makes the n-th ListTranslationCandidates call fail (1-based, 0 = never).
	failCandidatesOn int
	candidateCalls   int
}

func newMemoryMetadata(rows ...models.PropertyMetadata) *memoryMetadata {
	m := &memoryMetadata{
		rows:       map[int64]*models.PropertyMetadata{},
		failUpsert: map[int64]bool{},
		failMerge:  map[int64]bool{},
	}
	for i := range rows {
		row := rows[i]
		row.Descriptions = row.Descriptions.Clone()
		m.rows[row.ID] = &row
	}
	return m
}

func (m *memoryMetadata) UpsertFromSync(ctx context.Context, rows []models.SyncRow, sourceLanguage string) (repository.SyncWriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res repository.SyncWriteResult
	for _, row := range rows {
		if m.failUpsert[row.ID] {
			return repository.SyncWriteResult{}, errStorage
		}
	}
	for _, row := range rows {
		existing, ok := m.rows[row.ID]
		if !ok {
			meta := &models.PropertyMetadata{
				ID:           row.ID,
				Reference:    row.Reference,
				Snapshot:     row.Snapshot,
				Unavailable:  row.Unavailable,
				Descriptions: models.DescriptionBag{},
				UpdatedAt:    row.SyncedAt,
			}
			if row.SourceText != "" {
				meta.Descriptions[sourceLanguage] = row.SourceText
			}
			m.rows[row.ID] = meta
			res.Inserted++
			continue
		}

		changed := existing.Reference != row.Reference ||
			!reflect.DeepEqual(existing.Snapshot, row.Snapshot) ||
			existing.Unavailable != row.Unavailable ||
			(row.SourceText != "" && existing.Descriptions[sourceLanguage] != row.SourceText)
		if !changed {
			res.Unchanged++
			continue
		}
		existing.Reference = row.Reference
		existing.Snapshot = row.Snapshot
		existing.Unavailable = row.Unavailable
		if row.SourceText != "" {
			existing.Descriptions[sourceLanguage] = row.SourceText
		}
		existing.UpdatedAt = row.SyncedAt
		res.Updated++
	}
	return res, nil
}

func (m *memoryMetadata) MarkUnavailableExcept(ctx context.Context, seen []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := map[int64]bool{}
	for _, id := range seen {
		keep[id] = true
	}
	var n int64
	for id, row := range m.rows {
		if !keep[id] && !row.Unavailable {
			row.Unavailable = true
			n++
		}
	}
	return n, nil
}

func (m *memoryMetadata) FindByID(ctx context.Context, id int64) (*models.PropertyMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	copied.Descriptions = row.Descriptions.Clone()
	return &copied, nil
}

func (m *memoryMetadata) ListAll(ctx context.Context) ([]models.PropertyMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PropertyMetadata, 0, len(m.rows))
	for _, row := range m.rows {
		copied := *row
		copied.Descriptions = row.Descriptions.Clone()
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryMetadata) ListTranslationCandidates(ctx context.Context, filter repository.CandidateFilter) ([]models.PropertyMetadata, error) {
	m.mu.Lock()
	m.candidateCalls++
	fail := m.candidateCalls == m.failCandidatesOn
	m.mu.Unlock()
	if fail {
		return nil, errStorage
	}
	all, _ := m.ListAll(ctx)

	wanted := map[int64]bool{}
	for _, id := range filter.IDs {
		wanted[id] = true
	}

	out := []models.PropertyMetadata{}
	for _, row := range all {
		available := !row.Unavailable
		if row.Overrides.Available != nil {
			available = *row.Overrides.Available
		}
		if !available {
			continue
		}
		if len(filter.IDs) > 0 {
			if wanted[row.ID] {
				out = append(out, row)
			}
			continue
		}
		if row.ID <= filter.AfterID || !row.Descriptions.Has(filter.SourceLanguage) {
			continue
		}
		if !filter.Force && len(row.Descriptions.Missing(filter.TargetLanguage)) == 0 {
			continue
		}
		out = append(out, row)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryMetadata) ListMissingSourceText(ctx context.Context, sourceLanguage string, limit int) ([]models.PropertyMetadata, error) {
	if m.failMissing {
		return nil, errStorage
	}
	all, _ := m.ListAll(ctx)

	out := []models.PropertyMetadata{}
	for _, row := range all {
		available := !row.Unavailable
		if row.Overrides.Available != nil {
			available = *row.Overrides.Available
		}
		if !available || row.Descriptions.Has(sourceLanguage) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryMetadata) MergeDescriptions(ctx context.Context, id int64, bag models.DescriptionBag, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failMerge[id] {
		return errStorage
	}
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.merges++
	for lang, text := range bag {
		if force || !row.Descriptions.Has(lang) {
			row.Descriptions[lang] = text
		}
	}
	return nil
}

func (m *memoryMetadata) SetPriceOverride(ctx context.Context, id int64, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.Price = price
	row.Overrides.Price = &price
	return nil
}

// fakeProvider answers by language, detected from the system prompt.
// fail applies to every listing; failRef is keyed "<ref>/<lang>".
type fakeProvider struct {
	mu       sync.Mutex
	catalog  *translator.Catalog
	fail     map[string]error
	failRef  map[string]error
	calls    []string
	tokens   int
	messages []string
}

func newFakeProvider(catalog *translator.Catalog) *fakeProvider {
	return &fakeProvider{catalog: catalog, fail: map[string]error{}, failRef: map[string]error{}, tokens: 100}
}

func (p *fakeProvider) Translate(ctx context.Context, systemPrompt, userMessage string, temperature float64) (translator.Completion, error) {
	lang := "?"
	for _, code := range p.catalog.Languages() {
		if prompt, _ := p.catalog.Get(code); prompt.SystemPrompt == systemPrompt {
			lang = code
		}
	}

	p.mu.Lock()
	p.calls = append(p.calls, lang)
	p.messages = append(p.messages, userMessage)
	err := p.fail[lang]
	for key, refErr := range p.failRef {
		ref, refLang, _ := strings.Cut(key, "/")
		if refLang == lang && strings.Contains(userMessage, "Ref: "+ref) {
			err = refErr
		}
	}
	p.mu.Unlock()

	if err != nil {
		return translator.Completion{}, err
	}
	return translator.Completion{
		Text:             "[" + lang + "] translated",
		PromptTokens:     p.tokens / 2,
		CompletionTokens: p.tokens / 2,
	}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
