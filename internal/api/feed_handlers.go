package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/genre"
)

func (s *Server) registerFeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getHomeFeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed",
		Summary:     "Get home feed",
		Description: "Returns curated book sections and reading news for the selected genres. Feeds are cached for a day.",
		Tags:        []string{"Feed"},
	}, s.handleGetHomeFeed)

	huma.Register(s.api, huma.Operation{
		OperationID:   "clearHomeFeed",
		Method:        http.MethodDelete,
		Path:          "/api/v1/feed",
		Summary:       "Clear cached home feed",
		Description:   "Drops the cached feed for the selected genres so the next request regenerates it",
		Tags:          []string{"Feed"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleClearHomeFeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFeedGenres",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed/genres",
		Summary:     "List feed genres",
		Description: "Returns the genres a reader can pick for the home feed",
		Tags:        []string{"Feed"},
	}, s.handleListFeedGenres)
}

// HomeFeedInput selects the feed genres.
type HomeFeedInput struct {
	Genres  []string `query:"genres" doc:"Genre names or slugs, comma separated"`
	Refresh bool     `query:"refresh" doc:"Regenerate even when a cached feed exists"`
}

// HomeFeedOutput wraps the home feed for Huma.
type HomeFeedOutput struct {
	Body *domain.HomeFeed
}

func (s *Server) handleGetHomeFeed(ctx context.Context, input *HomeFeedInput) (*HomeFeedOutput, error) {
	feed, err := s.services.Feed.GetHomeFeed(ctx, nonEmpty(input.Genres), input.Refresh)
	if err != nil {
		return nil, err
	}
	return &HomeFeedOutput{Body: feed}, nil
}

// ClearHomeFeedInput selects the cached feed to drop.
type ClearHomeFeedInput struct {
	Genres []string `query:"genres" doc:"Genre names or slugs, comma separated"`
}

func (s *Server) handleClearHomeFeed(ctx context.Context, input *ClearHomeFeedInput) (*struct{}, error) {
	if err := s.services.Feed.ClearCache(ctx, nonEmpty(input.Genres)); err != nil {
		return nil, err
	}
	return nil, nil
}

// FeedGenresResponse lists selectable genres.
type FeedGenresResponse struct {
	Genres []genre.Genre `json:"genres" doc:"Selectable genres"`
}

// FeedGenresOutput wraps the genre list for Huma.
type FeedGenresOutput struct {
	Body FeedGenresResponse
}

func (s *Server) handleListFeedGenres(_ context.Context, _ *struct{}) (*FeedGenresOutput, error) {
	return &FeedGenresOutput{Body: FeedGenresResponse{Genres: genre.DefaultGenres}}, nil
}
