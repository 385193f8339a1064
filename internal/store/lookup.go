package store

import (
	"context"
	"fmt"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
)

const lookupPrefix = "lookup:"

// CachedLookup wraps one provider's answer with cache info.
// A nil Book records that the provider had no match.
type CachedLookup struct {
	Book      *domain.PartialBook `json:"book"`
	Provider  string              `json:"provider"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// GetLookup returns a cached provider answer for a catalog key.
// found is false on a miss or after expiry.
func (s *Store) GetLookup(ctx context.Context, provider, catalogKey string) (*domain.PartialBook, bool, error) {
	key := buildKey(lookupPrefix, provider, catalogKey)
	defer releaseKey(key)

	var cached CachedLookup
	found, err := s.getJSON(ctx, key, &cached)
	if err != nil {
		return nil, false, fmt.Errorf("get cached lookup: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return cached.Book, true, nil
}

// SetLookup caches a provider answer. Misses use the shorter miss TTL.
func (s *Store) SetLookup(ctx context.Context, provider, catalogKey string, book *domain.PartialBook) error {
	key := buildKey(lookupPrefix, provider, catalogKey)
	defer releaseKey(key)

	ttl := s.lookupTTL
	if book == nil {
		ttl = s.missTTL
	}

	cached := CachedLookup{Book: book, Provider: provider, FetchedAt: time.Now()}
	if err := s.setJSON(ctx, key, cached, ttl); err != nil {
		return fmt.Errorf("set cached lookup: %w", err)
	}
	return nil
}

// DeleteLookup drops a cached provider answer.
func (s *Store) DeleteLookup(ctx context.Context, provider, catalogKey string) error {
	key := buildKey(lookupPrefix, provider, catalogKey)
	defer releaseKey(key)
	return s.deleteKey(ctx, key)
}
