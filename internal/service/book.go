// Package service provides the business logic layer: book hydration, the
// personal library, recommendation history, the home feed, recommendations
// and the adaptive interview.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/metrics"
	"github.com/novelly/novelly-server/internal/sse"
)

// Catalog is the catalog core as the services use it.
type Catalog interface {
	EnsureInCatalog(ctx context.Context, title, author string, partial *domain.PartialBook, skipEnrichment bool) *domain.CatalogEntry
	BatchExtractAndStore(ctx context.Context, books []domain.RawRecommendation) []*domain.CatalogEntry
	MergeCatalogData(ctx context.Context, existing *domain.CatalogEntry, incoming *domain.PartialBook) *domain.CatalogEntry
	IncrementRecommended(ctx context.Context, key string)
	IncrementSaved(ctx context.Context, key string)
	TriggerEnrichment()
}

// BookLookup finds display data for a book in external sources. A nil book
// with a nil error means nothing was found.
type BookLookup interface {
	Lookup(ctx context.Context, title, author string) (*domain.PartialBook, error)
}

// EventEmitter publishes server-sent events.
type EventEmitter interface {
	Emit(event any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(any) {}

// ProgressFunc receives human-readable hydration status updates.
type ProgressFunc func(status string)

// Hydration defaults.
const (
	DefaultHydrationBatchSize = 5
	DefaultHydrationDelay     = 100 * time.Millisecond
)

// BookServiceConfig tunes hydration.
type BookServiceConfig struct {
	// BatchSize is the number of books looked up concurrently.
	BatchSize int
	// BatchDelay is the pause between batches.
	BatchDelay time.Duration
}

// BookService turns titles and raw recommendations into display books.
type BookService struct {
	catalog Catalog
	lookup  BookLookup
	events  EventEmitter
	logger  *slog.Logger

	batchSize  int
	batchDelay time.Duration

	memoMu sync.RWMutex
	memo   map[string]domain.Book
}

// NewBookService creates a new book service. events may be nil.
func NewBookService(catalog Catalog, lookup BookLookup, events EventEmitter, cfg BookServiceConfig, logger *slog.Logger) *BookService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultHydrationBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if events == nil {
		events = nopEmitter{}
	}
	return &BookService{
		catalog:    catalog,
		lookup:     lookup,
		events:     events,
		logger:     logger,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		memo:       make(map[string]domain.Book),
	}
}

// FindBook resolves a title (and optional author) into a display book using
// the external sources, and registers it in the catalog without extraction.
// Results are memoized for the life of the service.
func (s *BookService) FindBook(ctx context.Context, title, author string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("find book: empty title")
	}
	memoKey := domain.MakeCatalogKey(title, author)

	s.memoMu.RLock()
	cached, ok := s.memo[memoKey]
	s.memoMu.RUnlock()
	if ok {
		s.logger.Debug("book memo hit", "title", title)
		return &cached, nil
	}

	found, err := s.lookup.Lookup(ctx, title, author)
	if err != nil {
		return nil, fmt.Errorf("find book %q: %w", title, err)
	}

	external := &domain.PartialBook{Title: title, Author: author}
	external.FillFrom(found)
	if external.Author == "" {
		external.Author = domain.UnknownAuthor
	}

	entry := s.catalog.EnsureInCatalog(ctx, external.Title, external.Author, external, true)

	book := domain.MergeWithCatalog(withDisplay(domain.RawRecommendation{
		Title:  external.Title,
		Author: external.Author,
	}, external), entry)

	s.memoMu.Lock()
	s.memo[memoKey] = book
	s.memoMu.Unlock()
	return &book, nil
}

// VerifyBooks resolves each title in order. Titles that cannot be resolved
// are logged and left out of the result.
func (s *BookService) VerifyBooks(ctx context.Context, titles []string) []domain.Book {
	books := make([]domain.Book, 0, len(titles))
	for _, t := range titles {
		if strings.TrimSpace(t) == "" {
			continue
		}
		b, err := s.FindBook(ctx, t, "")
		if err != nil {
			s.logger.Warn("book verification failed", "title", t, "error", err)
			continue
		}
		books = append(books, *b)
	}
	return books
}

// ProgressForUser returns a ProgressFunc that forwards status updates to
// the user's event stream as hydration.progress events.
func (s *BookService) ProgressForUser(userID, requestID string) ProgressFunc {
	return func(status string) {
		s.events.Emit(sse.NewHydrationProgressEvent(userID, requestID, status))
	}
}

// HydrateBooksList enriches raw recommendations with catalog metadata and
// external display data.
//
// All books are registered in the catalog with one batch extraction up
// front. External lookups then run concurrently within fixed-size batches,
// batches run one after another, and output order matches input order. A
// book whose enrichment fails is returned in its raw shape. Background
// tier-3 enrichment is triggered once everything is assembled.
func (s *BookService) HydrateBooksList(ctx context.Context, raws []domain.RawRecommendation, onProgress ProgressFunc) []domain.Book {
	start := time.Now()
	defer func() { metrics.HydrationDuration.Observe(time.Since(start).Seconds()) }()

	report := func(status string) {
		if onProgress != nil {
			onProgress(status)
		}
	}

	total := len(raws)
	s.logger.Info("hydrating books", "count", total)
	report(fmt.Sprintf("Analyzing %d books...", total))

	entries := s.catalog.BatchExtractAndStore(ctx, raws)
	byKey := make(map[string]*domain.CatalogEntry, len(entries))
	for _, e := range entries {
		byKey[e.CatalogKey] = e
	}

	books := make([]domain.Book, total)
	for lo := 0; lo < total; lo += s.batchSize {
		hi := min(lo+s.batchSize, total)
		report(fmt.Sprintf("Fetching covers for %d/%d books...", hi, total))

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			wg.Go(func() {
				books[i] = s.hydrateOne(ctx, raws[i], byKey[raws[i].CatalogKey()])
			})
		}
		wg.Wait()

		if hi < total {
			s.pause(ctx)
		}
	}

	report("Finalizing recommendations...")
	s.catalog.TriggerEnrichment()
	return books
}

// hydrateOne builds the display book for one recommendation. entry may be
// nil when the catalog had nothing for the book.
func (s *BookService) hydrateOne(ctx context.Context, raw domain.RawRecommendation, entry *domain.CatalogEntry) domain.Book {
	display := raw.Partial()
	if entry != nil {
		display.FillFrom(entry.Display())
	}

	if display.CoverImage == "" || display.Rating == 0 {
		found, err := s.lookup.Lookup(ctx, raw.Title, raw.Author)
		if err != nil {
			s.logger.Warn("book hydration failed, using raw recommendation",
				"title", raw.Title,
				"author", raw.Author,
				"error", err,
			)
			metrics.HydrationBooks.WithLabelValues("degraded").Inc()
			return domain.NewBookFromRaw(raw)
		}
		display.FillFrom(found)
	}

	enriched := withDisplay(raw, display)
	if entry == nil {
		metrics.HydrationBooks.WithLabelValues("uncataloged").Inc()
		return domain.NewBookFromRaw(enriched)
	}

	merged := s.catalog.MergeCatalogData(ctx, entry, display)
	s.catalog.IncrementRecommended(ctx, entry.CatalogKey)
	metrics.HydrationBooks.WithLabelValues("hydrated").Inc()
	return domain.MergeWithCatalog(enriched, merged)
}

// pause waits between hydration batches. A cancelled context ends the
// wait early; the remaining batches still run and degrade on their own.
func (s *BookService) pause(ctx context.Context) {
	if s.batchDelay <= 0 {
		return
	}
	t := time.NewTimer(s.batchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// withDisplay copies display data onto a raw recommendation.
func withDisplay(raw domain.RawRecommendation, p *domain.PartialBook) domain.RawRecommendation {
	if p == nil {
		return raw
	}
	if p.CoverImage != "" {
		raw.CoverImage = p.CoverImage
	}
	if raw.Description == "" {
		raw.Description = p.Description
	}
	if p.Rating != 0 {
		raw.Rating = p.Rating
		raw.RatingSource = p.RatingSource
	}
	if p.RatingsCount != 0 {
		raw.RatingsCount = p.RatingsCount
	}
	if p.PageCount != 0 {
		raw.TotalPages = p.PageCount
	}
	return raw
}
