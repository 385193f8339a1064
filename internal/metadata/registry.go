package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/metrics"
)

// Registry queries every registered provider and merges the answers field by
// field in priority order.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	cache     Cache
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. cache may be nil.
func NewRegistry(cache Cache, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{cache: cache, logger: logger}
}

// Register adds a provider, keeping the list sorted by priority.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
	slices.SortStableFunc(r.providers, func(a, b Provider) int {
		return a.Priority() - b.Priority()
	})
}

// Providers returns the registered provider names in priority order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// ErrAllFailed is returned by Lookup when every provider failed. A lookup
// where at least one provider answered, even with no match, is not an error.
var ErrAllFailed = errors.New("metadata: every provider failed")

// Lookup searches all providers concurrently and merges the results.
// The first non-empty value for a field wins, so lower-priority providers
// only fill gaps. Individual provider failures are logged and treated as
// "no data". Returns nil, nil when no provider found anything.
func (r *Registry) Lookup(ctx context.Context, title, author string) (*domain.PartialBook, error) {
	r.mu.RLock()
	providers := slices.Clone(r.providers)
	r.mu.RUnlock()

	if len(providers) == 0 || title == "" {
		return nil, nil
	}

	key := domain.MakeCatalogKey(title, author)
	results := make([]*domain.PartialBook, len(providers))
	errs := make([]error, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Go(func() {
			results[i], errs[i] = r.lookupOne(ctx, p, key, title, author)
		})
	}
	wg.Wait()

	var merged *domain.PartialBook
	failed := 0
	for i, res := range results {
		if errs[i] != nil {
			failed++
		}
		if res == nil {
			continue
		}
		if merged == nil {
			c := *res
			merged = &c
			continue
		}
		merged.FillFrom(res)
	}

	if merged == nil && failed == len(providers) {
		return nil, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
	}
	return merged, nil
}

func (r *Registry) lookupOne(ctx context.Context, p Provider, key, title, author string) (*domain.PartialBook, error) {
	name := p.Name()

	if r.cache != nil {
		book, found, err := r.cache.GetLookup(ctx, name, key)
		switch {
		case err != nil:
			r.logger.Warn("lookup cache read failed", "provider", name, "catalog_key", key, "error", err)
		case found && book == nil:
			metrics.LookupCache.WithLabelValues("negative").Inc()
			return nil, nil
		case found:
			metrics.LookupCache.WithLabelValues("hit").Inc()
			return book, nil
		default:
			metrics.LookupCache.WithLabelValues("miss").Inc()
		}
	}

	book, err := p.Search(ctx, title, author)
	if err != nil {
		metrics.LookupRequests.WithLabelValues(name, "error").Inc()
		r.logger.Warn("book lookup failed",
			"provider", name,
			"title", title,
			"author", author,
			"error", err,
		)
		// Failures are not cached so the next request can retry.
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if book == nil || book.Empty() {
		metrics.LookupRequests.WithLabelValues(name, "miss").Inc()
		book = nil
	} else {
		metrics.LookupRequests.WithLabelValues(name, "hit").Inc()
	}

	if r.cache != nil {
		if err := r.cache.SetLookup(ctx, name, key, book); err != nil {
			r.logger.Warn("lookup cache write failed", "provider", name, "catalog_key", key, "error", err)
		}
	}
	return book, nil
}
