package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/genre"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/metrics"
)

const generalFeedKey = "general"

var sectionTitles = map[domain.FeedSectionID]string{
	domain.SectionNewReleases:  "New Releases",
	domain.SectionPopular:      "Most Popular",
	domain.SectionAwardWinning: "Award Winning",
	domain.SectionHiddenGems:   "Hidden Gems",
}

// FeedCache stores generated home feeds by genre key.
type FeedCache interface {
	GetFeed(ctx context.Context, genreKey string) (*domain.HomeFeed, error)
	SetFeed(ctx context.Context, genreKey string, feed *domain.HomeFeed) error
	DeleteFeed(ctx context.Context, genreKey string) error
}

type feedAnswer struct {
	NewReleases  []domain.RawRecommendation `json:"new_releases"`
	Popular      []domain.RawRecommendation `json:"popular"`
	AwardWinning []domain.RawRecommendation `json:"award_winning"`
	HiddenGems   []domain.RawRecommendation `json:"hidden_gems"`
}

func (a *feedAnswer) section(id domain.FeedSectionID) []domain.RawRecommendation {
	switch id {
	case domain.SectionNewReleases:
		return a.NewReleases
	case domain.SectionPopular:
		return a.Popular
	case domain.SectionAwardWinning:
		return a.AwardWinning
	case domain.SectionHiddenGems:
		return a.HiddenGems
	}
	return nil
}

type newsAnswer struct {
	News []domain.NewsArticle `json:"news"`
}

// FeedService builds the genre-personalized home feed.
type FeedService struct {
	sender llm.Sender
	books  Hydrator
	cache  FeedCache
	model  string
	logger *slog.Logger

	group singleflight.Group
}

// NewFeedService creates a new feed service.
func NewFeedService(sender llm.Sender, books Hydrator, cache FeedCache, model string, logger *slog.Logger) *FeedService {
	return &FeedService{
		sender: sender,
		books:  books,
		cache:  cache,
		model:  model,
		logger: logger,
	}
}

// FeedKey returns the cache key for a genre selection: the sorted,
// de-duplicated canonical slugs, or "general" for no selection.
func FeedKey(genres []string) string {
	slugs := canonicalGenres(genres)
	if len(slugs) == 0 {
		return generalFeedKey
	}
	return strings.Join(slugs, ",")
}

func canonicalGenres(genres []string) []string {
	var slugs []string
	for _, g := range genres {
		for _, s := range genre.NormalizeToSlugs(g) {
			if s != "" {
				slugs = append(slugs, s)
			}
		}
	}
	slices.Sort(slugs)
	return slices.Compact(slugs)
}

// GetHomeFeed returns the home feed for the selected genres, generating it
// when the cache has none or forceRefresh is set. Concurrent requests for
// the same genres share one generation.
func (s *FeedService) GetHomeFeed(ctx context.Context, genres []string, forceRefresh bool) (*domain.HomeFeed, error) {
	key := FeedKey(genres)

	if !forceRefresh {
		if feed := s.cached(ctx, key); feed != nil {
			metrics.FeedGenerations.WithLabelValues("cached").Inc()
			return feed, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		if !forceRefresh {
			if feed := s.cached(ctx, key); feed != nil {
				return feed, nil
			}
		}
		return s.generate(ctx, key, genres)
	})
	if err != nil {
		metrics.FeedGenerations.WithLabelValues("failed").Inc()
		return nil, err
	}
	if shared {
		s.logger.Debug("home feed generation shared", "genre_key", key)
	}
	return v.(*domain.HomeFeed), nil
}

func (s *FeedService) cached(ctx context.Context, key string) *domain.HomeFeed {
	feed, err := s.cache.GetFeed(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read cached feed", "genre_key", key, "error", err)
		return nil
	}
	return feed
}

func (s *FeedService) generate(ctx context.Context, key string, genres []string) (*domain.HomeFeed, error) {
	start := time.Now()
	names := nonBlank(genres)
	genresText := "General"
	if len(names) > 0 {
		genresText = strings.Join(names, ", ")
	}

	var (
		wg                 sync.WaitGroup
		booksResp, newsRsp *llm.Response
		booksErr, newsErr  error
	)
	wg.Go(func() {
		booksResp, booksErr = s.sender.Send(ctx, llm.Request{
			Prompt: strings.ReplaceAll(homepageFeedPrompt, "{genres}", genresText),
			Model:  s.model,
		})
	})
	wg.Go(func() {
		newsRsp, newsErr = s.sender.Send(ctx, llm.Request{Prompt: homepageNewsPrompt, Model: s.model})
	})
	wg.Wait()

	if booksErr != nil {
		return nil, generationError(booksErr, "home feed generation failed")
	}

	var answer feedAnswer
	if err := llm.Parse(booksResp.Content, &answer); err != nil {
		return nil, domainerrors.Upstream(err, "could not parse home feed")
	}

	feed := &domain.HomeFeed{
		Genres:      names,
		Sections:    []domain.FeedSection{},
		News:        []domain.NewsArticle{},
		GeneratedAt: time.Now().UTC(),
	}
	for _, id := range domain.BookSections {
		raws := answer.section(id)
		if raws == nil {
			continue
		}
		feed.Sections = append(feed.Sections, domain.FeedSection{
			ID:    id,
			Title: sectionTitles[id],
			Books: s.books.HydrateBooksList(ctx, raws, nil),
		})
	}
	if len(feed.Sections) == 0 {
		return nil, domainerrors.Upstream(llm.ErrParse, "home feed had no sections")
	}

	// News is optional; the feed is still served without it.
	if newsErr != nil {
		s.logger.Warn("home feed news failed", "genre_key", key, "error", newsErr)
	} else {
		var news newsAnswer
		if err := llm.Parse(newsRsp.Content, &news); err != nil {
			s.logger.Warn("could not parse home feed news", "genre_key", key, "error", err)
		} else if news.News != nil {
			feed.News = news.News
		}
	}

	if err := s.cache.SetFeed(ctx, key, feed); err != nil {
		s.logger.Warn("failed to cache home feed", "genre_key", key, "error", err)
	}

	metrics.FeedGenerations.WithLabelValues("generated").Inc()
	s.logger.Info("home feed generated",
		"genre_key", key,
		"sections", len(feed.Sections),
		"news", len(feed.News),
		"duration", time.Since(start),
	)
	return feed, nil
}

// ClearCache drops the cached feed for a genre selection.
func (s *FeedService) ClearCache(ctx context.Context, genres []string) error {
	return s.cache.DeleteFeed(ctx, FeedKey(genres))
}
