// Package openlibrary searches the Open Library catalog. It is a free,
// keyless source of covers and page counts.
package openlibrary

import (
	"context"
	"errors"
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
	// DefaultBaseURL is the Open Library host.
	DefaultBaseURL = "https://openlibrary.org"
	// CoverBaseURL serves cover images by cover id.
	CoverBaseURL = "https://covers.openlibrary.org/b/id/"
	// RatingSource labels ratings that came from Open Library.
	RatingSource = "Open Library"

	providerName = "openlibrary"
)

// Sentinel errors for Open Library operations.
var (
	ErrRateLimited = errors.New("openlibrary: rate limited by server")
	ErrServer      = errors.New("openlibrary: server error")
	ErrBadStatus   = errors.New("openlibrary: unexpected status")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("openlibrary %s [%s]: %v", e.Op, e.Query, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type searchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []doc `json:"docs"`
}

type doc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	CoverI              int64    `json:"cover_i"`
	FirstPublishYear    int      `json:"first_publish_year"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	RatingsAverage      float64  `json:"ratings_average"`
	RatingsCount        int      `json:"ratings_count"`
	FirstSentence       []string `json:"first_sentence"`
}

// Client searches Open Library.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	breaker    *breaker.Breaker[*searchResponse]
	logger     *slog.Logger
	baseURL    string
}

// NewClient creates an Open Library client. An empty baseURL uses the
// public host.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    ratelimit.New(2, 4),
		breaker:    breaker.New[*searchResponse](providerName, breaker.Settings{}, logger),
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Close releases resources.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Name implements metadata.Provider.
func (c *Client) Name() string { return providerName }

// Priority implements metadata.Provider.
func (c *Client) Priority() int { return 30 }

// Search returns the top search.json hit for "title author".
func (c *Client) Search(ctx context.Context, title, author string) (*domain.PartialBook, error) {
	if author == domain.UnknownAuthor {
		author = ""
	}
	q := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(author))

	if err := c.limiter.Wait(ctx, providerName); err != nil {
		return nil, &Error{Op: "search", Query: q, Err: fmt.Errorf("rate limit: %w", err)}
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", "1")
	searchURL := c.baseURL + "/search.json?" + params.Encode()

	resp, err := c.breaker.Execute(func() (*searchResponse, error) {
		return c.fetch(ctx, searchURL)
	})
	if err != nil {
		return nil, &Error{Op: "search", Query: q, Err: err}
	}

	if len(resp.Docs) == 0 {
		c.logger.Debug("no open library results", "query", q)
		return nil, nil
	}
	return toPartial(resp.Docs[0]), nil
}

func (c *Client) fetch(ctx context.Context, searchURL string) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "novelly-server/1.0")

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
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

// CoverURL returns the medium cover URL for a cover id.
func CoverURL(coverID int64) string {
	if coverID <= 0 {
		return ""
	}
	return fmt.Sprintf("%s%d-M.jpg", CoverBaseURL, coverID)
}

func toPartial(d doc) *domain.PartialBook {
	book := &domain.PartialBook{
		Title:        d.Title,
		Author:       domain.UnknownAuthor,
		CoverImage:   CoverURL(d.CoverI),
		PageCount:    d.NumberOfPagesMedian,
		Rating:       d.RatingsAverage,
		RatingsCount: d.RatingsCount,
	}
	if len(d.AuthorName) > 0 {
		book.Author = d.AuthorName[0]
	}
	if len(d.FirstSentence) > 0 {
		book.Description = metadata.CleanDescription(d.FirstSentence[0])
	}
	if book.Rating > 0 {
		book.RatingSource = RatingSource
	}
	return book
}

var _ metadata.Provider = (*Client)(nil)
