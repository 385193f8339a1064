package itunes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/novelly/novelly-server/internal/breaker"
	"github.com/novelly/novelly-server/internal/metadata"
	"github.com/novelly/novelly-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the iTunes search endpoint.
	DefaultBaseURL = "https://itunes.apple.com/search"
	// RatingSource labels ratings that came from Apple Books.
	RatingSource = "Apple Books"

	providerName = "itunes"
)

// Sentinel errors for iTunes operations.
var (
	ErrRateLimited = errors.New("itunes: rate limited by server")
	ErrBadStatus   = errors.New("itunes: unexpected status")
)

// Client provides access to the iTunes Search API.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	breaker    *breaker.Breaker[*searchResponse]
	logger     *slog.Logger
	baseURL    string
}

// NewClient creates a new iTunes client.
// Rate limited to 20 requests per minute as recommended by Apple.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// 20 requests per minute = 1 request per 3 seconds, burst of 5
		limiter: ratelimit.New(1.0/3.0, 5),
		breaker: breaker.New[*searchResponse](providerName, breaker.Settings{}, logger),
		logger:  logger,
		baseURL: baseURL,
	}
}

// Close releases resources.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Name implements metadata.Provider.
func (c *Client) Name() string { return providerName }

// Priority implements metadata.Provider.
func (c *Client) Priority() int { return 20 }

// wait blocks until rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx, providerName)
}

var _ metadata.Provider = (*Client)(nil)
