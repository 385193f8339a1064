package itunes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/metadata"
)

const defaultLimit = 5

// Search looks up an ebook by title and author and returns the first
// result whose title matches.
func (c *Client) Search(ctx context.Context, title, author string) (*domain.PartialBook, error) {
	query := strings.TrimSpace(title)
	if author != "" && author != domain.UnknownAuthor {
		query = query + " " + strings.TrimSpace(author)
	}

	results, err := c.searchEbooks(ctx, query)
	if err != nil {
		return nil, err
	}

	wantTitle := strings.ToLower(strings.TrimSpace(title))
	for i := range results {
		r := &results[i]
		if r.Kind != "" && r.Kind != "ebook" {
			continue
		}
		if !strings.Contains(strings.ToLower(r.TrackName), wantTitle) {
			continue
		}
		return toPartial(r), nil
	}
	return nil, nil
}

func (c *Client) searchEbooks(ctx context.Context, query string) ([]searchResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "ebook")
	params.Set("entity", "ebook")
	params.Set("limit", strconv.Itoa(defaultLimit))
	searchURL := c.baseURL + "?" + params.Encode()

	c.logger.Debug("searching iTunes",
		"query", query,
		"url", searchURL,
	)

	resp, err := c.breaker.Execute(func() (*searchResponse, error) {
		return c.fetch(ctx, searchURL)
	})
	if err != nil {
		return nil, fmt.Errorf("itunes search %q: %w", query, err)
	}

	c.logger.Debug("iTunes search results",
		"query", query,
		"count", resp.ResultCount,
	)
	return resp.Results, nil
}

func (c *Client) fetch(ctx context.Context, searchURL string) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		// Apple answers throttled clients with 403 as often as 429.
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

func toPartial(r *searchResult) *domain.PartialBook {
	artwork := r.ArtworkURL100
	if artwork == "" {
		artwork = r.ArtworkURL60
	}
	book := &domain.PartialBook{
		Title:        r.TrackName,
		Author:       r.ArtistName,
		Description:  metadata.CleanDescription(r.Description),
		CoverImage:   ScaledCoverURL(artwork),
		Rating:       r.AverageUserRating,
		RatingsCount: r.UserRatingCount,
	}
	if book.Rating > 0 {
		book.RatingSource = RatingSource
	}
	return book
}
