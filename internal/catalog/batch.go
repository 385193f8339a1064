package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/metrics"
	"github.com/novelly/novelly-server/internal/store"
)

// BatchExtractAndStore makes sure every book has a catalog entry using at
// most one model call. Books already cached or stored are not sent. The
// result holds one entry per distinct input book, in input order.
func (s *Service) BatchExtractAndStore(ctx context.Context, books []domain.RawRecommendation) []*domain.CatalogEntry {
	resolved := make(map[string]*domain.CatalogEntry, len(books))
	var (
		order     []string
		toProcess []domain.RawRecommendation
	)

	for _, b := range books {
		key := b.CatalogKey()
		if _, seen := resolved[key]; seen {
			continue
		}
		order = append(order, key)
		resolved[key] = nil

		if e, ok := s.cache.get(key); ok {
			resolved[key] = e
			continue
		}
		e, err := s.store.GetByKey(ctx, key)
		switch {
		case err == nil:
			s.cache.set(e)
			resolved[key] = e
			continue
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Warn("catalog read failed, book left out of batch",
				"catalog_key", key,
				"error", err,
			)
			resolved[key] = unsavedEntry(b.Title, b.AuthorOrUnknown(), b.Partial())
			continue
		}
		toProcess = append(toProcess, b)
	}

	if len(toProcess) > 0 {
		s.logger.Info("batch extracting new books", "count", len(toProcess))
		for _, e := range s.extractBatch(ctx, toProcess) {
			s.save(ctx, e)
			s.cache.set(e)
			resolved[e.CatalogKey] = e
		}
	} else {
		s.logger.Debug("all books already in catalog", "count", len(order))
	}

	out := make([]*domain.CatalogEntry, 0, len(order))
	for _, key := range order {
		if e := resolved[key]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// extractBatch returns exactly one entry per input book. Books the model
// answer cannot be matched to get fallback entries.
func (s *Service) extractBatch(ctx context.Context, books []domain.RawRecommendation) []*domain.CatalogEntry {
	resp, err := s.llm.Send(ctx, llm.Request{Prompt: BuildBatchPrompt(books), Model: s.model})
	var extracted batchResponse
	if err == nil {
		extracted, err = parseBatch(resp.Content)
	}
	if err != nil {
		s.logger.Warn("batch extraction failed, storing fallbacks",
			"count", len(books),
			"error", err,
		)
		metrics.CatalogExtractions.WithLabelValues("batch", "fallback").Add(float64(len(books)))
		out := make([]*domain.CatalogEntry, len(books))
		for i, b := range books {
			out[i] = fallbackEntry(b.Title, b.AuthorOrUnknown(), b.Partial(), domain.SourceBatchFailed)
		}
		return out
	}

	s.logger.Info("batch extraction complete",
		"requested", len(books),
		"returned", len(extracted),
		"cost_usd", resp.Cost,
	)

	matches := alignBatch(books, extracted)
	if len(extracted) != len(books) {
		s.logger.Warn("batch extraction count mismatch",
			"requested", len(books),
			"returned", len(extracted),
		)
	}

	out := make([]*domain.CatalogEntry, len(books))
	for i, b := range books {
		author := b.AuthorOrUnknown()
		idx := matches[i]
		if idx < 0 {
			s.logger.Warn("no batch result for book", "title", b.Title, "author", author)
			metrics.CatalogExtractions.WithLabelValues("batch", "fallback").Inc()
			out[i] = fallbackEntry(b.Title, author, b.Partial(), domain.SourceBatchFailed)
			continue
		}
		e := extracted[idx].toEntry(b.Title, author, domain.SourceBatch)
		applyPartial(e, b.Partial())
		e.EmbeddingText = domain.BuildEmbeddingText(e)
		metrics.CatalogExtractions.WithLabelValues("batch", "success").Inc()
		out[i] = e
	}
	return out
}

// alignBatch maps each requested book to the index of its answer, or -1.
//
// Answers that echo a title are matched by catalog key, then by title
// alone. Answers without an echo are matched by position. An answer is
// never used twice.
func alignBatch(books []domain.RawRecommendation, extracted []extractedBook) []int {
	matches := make([]int, len(books))
	for i := range matches {
		matches[i] = -1
	}

	byKey := make(map[string]int, len(books))
	byTitle := make(map[string]int, len(books))
	for i, b := range books {
		byKey[b.CatalogKey()] = i
		t := normalizeTitle(b.Title)
		if _, dup := byTitle[t]; !dup {
			byTitle[t] = i
		}
	}

	claim := func(book, answer int) bool {
		if book < 0 || book >= len(books) || matches[book] >= 0 {
			return false
		}
		matches[book] = answer
		return true
	}

	var unechoed []int
	for j := range extracted {
		x := &extracted[j]
		if x.Title == "" {
			unechoed = append(unechoed, j)
			continue
		}
		if i, ok := byKey[domain.MakeCatalogKey(string(x.Title), string(x.Author))]; ok && claim(i, j) {
			continue
		}
		if i, ok := byTitle[normalizeTitle(string(x.Title))]; ok {
			claim(i, j)
		}
	}

	for _, j := range unechoed {
		claim(j, j)
	}
	return matches
}

func normalizeTitle(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
