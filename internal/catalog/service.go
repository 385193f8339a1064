// Package catalog maintains the shared, self-growing book catalog.
//
// Every book that passes through the app is resolved here: the session
// cache is checked first, then the persistent store, and only then is a new
// entry extracted from the generative model. Entries below tier 2 are queued
// for background tier-3 enrichment.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/metrics"
	"github.com/novelly/novelly-server/internal/store"
)

// Store is the persistent catalog table.
type Store interface {
	GetByKey(ctx context.Context, key string) (*domain.CatalogEntry, error)
	UpsertByKey(ctx context.Context, e *domain.CatalogEntry) error
	UpdateFields(ctx context.Context, key string, patch domain.CatalogPatch) error
	IncrementCounter(ctx context.Context, key string, counter domain.Counter) error
	QueryByFilters(ctx context.Context, f domain.CatalogFilters) ([]*domain.CatalogEntry, error)
	Stats(ctx context.Context) (*domain.CatalogStats, error)
}

// Options configures a Service.
type Options struct {
	// Model overrides the generative model. Empty uses the client default.
	Model string
	// QueueCapacity bounds the enrichment queue.
	QueueCapacity int
	// EnrichmentBatch is how many keys the worker processes per wake-up.
	EnrichmentBatch int
	// Events receives catalog change events. Nil discards them.
	Events EventEmitter
}

// DefaultEnrichmentBatch is the number of keys processed per queue drain.
const DefaultEnrichmentBatch = 3

// Service is the catalog core. Construct one per process.
type Service struct {
	store  Store
	llm    llm.Sender
	model  string
	cache  *sessionCache
	queue  *enrichmentQueue
	batch  int
	events EventEmitter
	logger *slog.Logger
}

// NewService creates a catalog service.
func NewService(st Store, sender llm.Sender, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EnrichmentBatch <= 0 {
		opts.EnrichmentBatch = DefaultEnrichmentBatch
	}
	events := opts.Events
	if events == nil {
		events = nopEmitter{}
	}
	return &Service{
		store:  st,
		llm:    sender,
		model:  opts.Model,
		cache:  newSessionCache(),
		queue:  newEnrichmentQueue(opts.QueueCapacity),
		batch:  opts.EnrichmentBatch,
		events: events,
		logger: logger,
	}
}

// normalizeAuthor substitutes the placeholder author for blank input so
// every caller derives the same key for an unattributed book.
func normalizeAuthor(author string) string {
	if strings.TrimSpace(author) == "" {
		return domain.UnknownAuthor
	}
	return author
}

// EnsureInCatalog returns the catalog entry for (title, author), creating it
// if necessary. partial carries display data already known to the caller and
// may be nil. With skipEnrichment set, a missing book is stored from partial
// alone without calling the model.
//
// It never fails: store and model errors degrade to fallback entries.
func (s *Service) EnsureInCatalog(ctx context.Context, title, author string, partial *domain.PartialBook, skipEnrichment bool) *domain.CatalogEntry {
	author = normalizeAuthor(author)
	key := domain.MakeCatalogKey(title, author)

	if e, ok := s.cache.get(key); ok {
		return e
	}

	existing, err := s.store.GetByKey(ctx, key)
	switch {
	case err == nil:
		entry := existing
		if partial != nil {
			entry = s.MergeCatalogData(ctx, existing, partial)
		}
		s.cache.set(entry)
		if entry.EnrichmentTier < domain.TierImportant {
			s.Enqueue(key)
		}
		return entry
	case !errors.Is(err, store.ErrNotFound):
		// The row may exist; writing now could overwrite it.
		s.logger.Warn("catalog read failed, serving unsaved entry",
			"catalog_key", key,
			"error", err,
		)
		return unsavedEntry(title, author, partial)
	}

	var entry *domain.CatalogEntry
	if skipEnrichment {
		entry = unsavedEntry(title, author, partial)
		s.save(ctx, entry)
	} else {
		entry = s.ExtractAndStore(ctx, title, author, partial)
	}

	s.cache.set(entry)
	return entry
}

// unsavedEntry builds a tier-1 entry from caller data alone.
func unsavedEntry(title, author string, partial *domain.PartialBook) *domain.CatalogEntry {
	e := domain.NewMinimalEntry(title, author, partial)
	e.ExtractionSource = domain.SourceHydrationOnly
	e.EnrichmentTier = domain.TierEssential
	e.EmbeddingText = domain.BuildEmbeddingText(e)
	return e
}

// ExtractAndStore runs tier 1+2 extraction for one book and persists the
// result. Model and parse failures store a low-confidence fallback entry.
func (s *Service) ExtractAndStore(ctx context.Context, title, author string, partial *domain.PartialBook) *domain.CatalogEntry {
	author = normalizeAuthor(author)

	resp, err := s.llm.Send(ctx, llm.Request{Prompt: BuildTier12Prompt(title, author), Model: s.model})
	if err == nil {
		var extracted extractedBook
		if err = llm.Parse(resp.Content, &extracted); err == nil {
			entry := extracted.toEntry(title, author, domain.SourceEnrichment)
			applyPartial(entry, partial)
			entry.EmbeddingText = domain.BuildEmbeddingText(entry)

			s.logger.Info("catalog extraction complete",
				"title", title,
				"confidence", entry.ConfidenceScore,
				"cost_usd", resp.Cost,
			)
			metrics.CatalogExtractions.WithLabelValues("single", "success").Inc()
			s.save(ctx, entry)
			return entry
		}
	}

	s.logger.Warn("catalog extraction failed, storing fallback",
		"title", title,
		"author", author,
		"error", err,
	)
	metrics.CatalogExtractions.WithLabelValues("single", "fallback").Inc()
	entry := fallbackEntry(title, author, partial, domain.SourceExtractionFailed)
	s.save(ctx, entry)
	return entry
}

// save persists a newly created entry. Failures are logged and swallowed;
// the in-memory entry is still used by the caller.
func (s *Service) save(ctx context.Context, e *domain.CatalogEntry) {
	if err := s.store.UpsertByKey(ctx, e); err != nil {
		s.logger.Warn("catalog save failed, entry not persisted",
			"catalog_key", e.CatalogKey,
			"error", err,
		)
		return
	}
	metrics.CatalogEntriesCreated.WithLabelValues(string(e.ExtractionSource)).Inc()
	s.logger.Debug("catalog entry saved",
		"catalog_key", e.CatalogKey,
		"tier", int(e.EnrichmentTier),
		"source", string(e.ExtractionSource),
	)
	s.emitCreated(e)
}

// MergeCatalogData fills empty display fields on existing from incoming and
// persists the changed fields. Populated fields are never overwritten. The
// merged view is returned whether or not the write succeeded.
func (s *Service) MergeCatalogData(ctx context.Context, existing *domain.CatalogEntry, incoming *domain.PartialBook) *domain.CatalogEntry {
	merged, patch := domain.GapMerge(existing, incoming)
	if patch.IsEmpty() {
		return merged
	}
	if err := s.store.UpdateFields(ctx, existing.CatalogKey, patch); err != nil {
		s.logger.Warn("catalog merge not persisted",
			"catalog_key", existing.CatalogKey,
			"error", err,
		)
	}
	s.cache.update(existing.CatalogKey, patch.Apply)
	return merged
}

// Entry returns the stored entry for key, preferring the session cache.
func (s *Service) Entry(ctx context.Context, key string) (*domain.CatalogEntry, error) {
	if e, ok := s.cache.get(key); ok {
		return e, nil
	}
	e, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.set(e)
	return e, nil
}

// IncrementRecommended bumps the recommended counter for key.
func (s *Service) IncrementRecommended(ctx context.Context, key string) {
	s.increment(ctx, key, domain.CounterRecommended)
}

// IncrementSaved bumps the saved counter for key.
func (s *Service) IncrementSaved(ctx context.Context, key string) {
	s.increment(ctx, key, domain.CounterSaved)
}

// increment uses the store's atomic counter and falls back to
// read-modify-write when the store cannot increment in place.
func (s *Service) increment(ctx context.Context, key string, counter domain.Counter) {
	err := s.store.IncrementCounter(ctx, key, counter)
	if errors.Is(err, store.ErrUnsupported) {
		err = s.incrementFallback(ctx, key, counter)
	}
	switch {
	case err == nil:
		s.cache.update(key, func(e *domain.CatalogEntry) {
			if counter == domain.CounterSaved {
				e.TimesSaved++
			} else {
				e.TimesRecommended++
			}
		})
	case errors.Is(err, store.ErrNotFound):
		s.logger.Debug("counter target missing", "catalog_key", key, "counter", string(counter))
	default:
		s.logger.Warn("counter increment failed",
			"catalog_key", key,
			"counter", string(counter),
			"error", err,
		)
	}
}

func (s *Service) incrementFallback(ctx context.Context, key string, counter domain.Counter) error {
	e, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	var patch domain.CatalogPatch
	if counter == domain.CounterSaved {
		n := e.TimesSaved + 1
		patch.TimesSaved = &n
	} else {
		n := e.TimesRecommended + 1
		patch.TimesRecommended = &n
	}
	return s.store.UpdateFields(ctx, key, patch)
}

// SearchCatalog returns confident entries matching f, most recommended
// first. Store failures yield an empty result.
func (s *Service) SearchCatalog(ctx context.Context, f domain.CatalogFilters) []*domain.CatalogEntry {
	entries, err := s.store.QueryByFilters(ctx, f)
	if err != nil {
		s.logger.Warn("catalog search failed", "error", err)
		return []*domain.CatalogEntry{}
	}
	if entries == nil {
		entries = []*domain.CatalogEntry{}
	}
	return entries
}

// GetCatalogStats returns catalog counts. Store failures yield zero counts.
func (s *Service) GetCatalogStats(ctx context.Context) *domain.CatalogStats {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn("catalog stats failed", "error", err)
		stats = &domain.CatalogStats{ByTier: map[domain.Tier]int{}}
	}
	stats.CacheEntries = s.cache.len()
	return stats
}

// ClearSessionCache drops every cached entry.
func (s *Service) ClearSessionCache() {
	s.cache.clear()
}

// CacheSize reports the number of cached entries.
func (s *Service) CacheSize() int {
	return s.cache.len()
}

// Enqueue schedules key for tier-3 enrichment. It never blocks.
func (s *Service) Enqueue(key string) {
	if s.queue.add(key) {
		s.logger.Debug("queued for enrichment", "catalog_key", key)
	}
}

// QueueLen reports the number of keys waiting for enrichment.
func (s *Service) QueueLen() int {
	return s.queue.len()
}

// TriggerEnrichment wakes the background worker without waiting for it.
func (s *Service) TriggerEnrichment() {
	if s.queue.len() > 0 {
		s.queue.notify()
	}
}

// ProcessEnrichmentQueue upgrades up to maxItems queued entries to tier 3,
// one at a time. Each key leaves the queue whether or not enrichment worked;
// a dropped key is queued again only when the book is next seen below tier 2.
// It returns the number of entries enriched.
func (s *Service) ProcessEnrichmentQueue(ctx context.Context, maxItems int) int {
	if maxItems <= 0 {
		maxItems = s.batch
	}

	enriched := 0
	for _, key := range s.queue.peek(maxItems) {
		if ctx.Err() != nil {
			break
		}
		result := s.enrichOne(ctx, key)
		metrics.EnrichmentProcessed.WithLabelValues(result).Inc()
		if result == "enriched" {
			enriched++
		}
		s.queue.remove(key)
	}
	return enriched
}

func (s *Service) enrichOne(ctx context.Context, key string) string {
	entry, err := s.store.GetByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("enrichment read failed", "catalog_key", key, "error", err)
			return "failed"
		}
		return "skipped"
	}
	if entry.EnrichmentTier >= domain.TierEnhanced {
		return "skipped"
	}

	prompt, err := BuildTier3Prompt(entry)
	if err != nil {
		s.logger.Warn("enrichment prompt failed", "catalog_key", key, "error", err)
		return "failed"
	}

	s.logger.Info("enriching to tier 3", "catalog_key", key, "title", entry.Title)

	resp, err := s.llm.Send(ctx, llm.Request{Prompt: prompt, Model: s.model})
	if err != nil {
		s.logger.Warn("enrichment request failed", "catalog_key", key, "error", err)
		metrics.CatalogExtractions.WithLabelValues("tier3", "fallback").Inc()
		return "failed"
	}

	var result tier3Result
	if err := llm.Parse(resp.Content, &result); err != nil {
		s.logger.Warn("enrichment parse failed", "catalog_key", key, "error", err)
		metrics.CatalogExtractions.WithLabelValues("tier3", "fallback").Inc()
		return "failed"
	}

	result.apply(entry, time.Now().UTC())
	if err := s.store.UpsertByKey(ctx, entry); err != nil {
		s.logger.Warn("enrichment not persisted", "catalog_key", key, "error", err)
		return "failed"
	}
	metrics.CatalogExtractions.WithLabelValues("tier3", "success").Inc()

	fresh := entry.Clone()
	s.cache.update(key, func(c *domain.CatalogEntry) { *c = *fresh })
	s.emitEnriched(entry)
	return "enriched"
}
