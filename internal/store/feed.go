package store

import (
	"context"
	"fmt"

	"github.com/novelly/novelly-server/internal/domain"
)

const feedPrefix = "feed:"

// GetFeed returns the cached home feed for a genre key, or nil on a miss.
func (s *Store) GetFeed(ctx context.Context, genreKey string) (*domain.HomeFeed, error) {
	key := buildKey(feedPrefix, genreKey)
	defer releaseKey(key)

	var feed domain.HomeFeed
	found, err := s.getJSON(ctx, key, &feed)
	if err != nil {
		return nil, fmt.Errorf("get cached feed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &feed, nil
}

// SetFeed caches a home feed for the configured feed TTL.
func (s *Store) SetFeed(ctx context.Context, genreKey string, feed *domain.HomeFeed) error {
	key := buildKey(feedPrefix, genreKey)
	defer releaseKey(key)

	if err := s.setJSON(ctx, key, feed, s.feedTTL); err != nil {
		return fmt.Errorf("set cached feed: %w", err)
	}
	return nil
}

// DeleteFeed drops a cached feed.
func (s *Store) DeleteFeed(ctx context.Context, genreKey string) error {
	key := buildKey(feedPrefix, genreKey)
	defer releaseKey(key)
	return s.deleteKey(ctx, key)
}
