package googlebooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/novelly/novelly-server/internal/breaker"
	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/metadata"
	"github.com/novelly/novelly-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the volumes endpoint.
	DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

	// RatingSource labels ratings that came from Google Books.
	RatingSource = "Google Books"

	providerName = "googlebooks"
	userAgent    = "novelly-server/1.0"
)

// Client searches Google Books.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	breaker    *breaker.Breaker[*volumesResponse]
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey attaches an API key for a higher quota.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a Google Books client.
// Anonymous access is limited to about one request per second.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    ratelimit.New(1, 5),
		logger:     logger,
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = breaker.New[*volumesResponse](providerName, breaker.Settings{}, logger)
	return c
}

// Close releases resources.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Name implements metadata.Provider.
func (c *Client) Name() string { return providerName }

// Priority implements metadata.Provider. Google has the best covers and
// ratings, so it wins ties.
func (c *Client) Priority() int { return 10 }

// Search finds the best single match for a title and author.
// A strict intitle/inauthor query is tried first, then a loose one.
func (c *Client) Search(ctx context.Context, title, author string) (*domain.PartialBook, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if author == domain.UnknownAuthor {
		author = ""
	}

	strict := "intitle:" + title
	if author != "" {
		strict += " inauthor:" + author
	}

	resp, err := c.query(ctx, strict)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) > 0 {
		return toPartial(resp.Items[0]), nil
	}

	c.logger.Debug("strict google books search empty, trying loose query", "title", title, "author", author)

	resp, err = c.query(ctx, strings.TrimSpace(title+" "+author))
	if err != nil {
		return nil, err
	}
	if len(resp.Items) > 0 {
		return toPartial(resp.Items[0]), nil
	}
	return nil, nil
}

func (c *Client) query(ctx context.Context, q string) (*volumesResponse, error) {
	if err := c.limiter.Wait(ctx, providerName); err != nil {
		return nil, wrapError("search", q, fmt.Errorf("rate limit: %w", err))
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", "1")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	searchURL := c.baseURL + "?" + params.Encode()

	resp, err := c.breaker.Execute(func() (*volumesResponse, error) {
		return c.fetch(ctx, searchURL)
	})
	if err != nil {
		return nil, wrapError("search", q, err)
	}
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, searchURL string) (*volumesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrServer
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrBadRequest, resp.StatusCode)
	}

	var out volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

func toPartial(v volume) *domain.PartialBook {
	info := v.VolumeInfo

	description := info.Description
	if description == "" && v.SearchInfo != nil {
		description = v.SearchInfo.TextSnippet
	}

	book := &domain.PartialBook{
		Title:        info.Title,
		Author:       domain.UnknownAuthor,
		Description:  metadata.CleanDescription(description),
		Rating:       info.AverageRating,
		RatingsCount: info.RatingsCount,
		PageCount:    info.PageCount,
	}
	if len(info.Authors) > 0 {
		book.Author = info.Authors[0]
	}
	if info.ImageLinks != nil {
		thumb := info.ImageLinks.Thumbnail
		if thumb == "" {
			thumb = info.ImageLinks.SmallThumbnail
		}
		book.CoverImage = secureURL(thumb)
	}
	if book.Rating > 0 {
		book.RatingSource = RatingSource
	}
	return book
}

func secureURL(u string) string {
	if after, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + after
	}
	return u
}

var _ metadata.Provider = (*Client)(nil)
