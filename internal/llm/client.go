// Package llm is the client for the Perplexity chat-completions API and the
// parser that pulls JSON out of its free-form answers.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/novelly/novelly-server/internal/breaker"
	"github.com/novelly/novelly-server/internal/metrics"
	"github.com/novelly/novelly-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the Perplexity chat-completions endpoint.
	DefaultBaseURL = "https://api.perplexity.ai/chat/completions"
	// DefaultModel is used when a request names no model.
	DefaultModel = "sonar-pro"

	systemPrompt = "You are a helpful book recommendation assistant."
	limiterKey   = "perplexity"
)

// Request is one prompt to send.
type Request struct {
	Prompt string
	Model  string
}

// Usage is the token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a successful completion.
type Response struct {
	Content   string
	Model     string
	Usage     Usage
	Cost      float64
	Citations []string
}

// Result is the flattened outcome of a send. Callers that never want an
// error value use it instead of the (Response, error) pair.
type Result struct {
	Success bool
	Content string
	Error   string
	Usage   Usage
	Cost    float64
}

// ResultOf flattens a Send outcome into a Result.
func ResultOf(resp *Response, err error) Result {
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true, Content: resp.Content, Usage: resp.Usage, Cost: resp.Cost}
}

// Sender sends prompts to a generative model.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Config configures the client.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to the Perplexity API.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	breaker    *breaker.Breaker[*Response]
	logger     *slog.Logger
	apiKey     string
	baseURL    string
	model      string
}

// NewClient creates a client. An empty API key is allowed; every Send then
// fails fast with ErrNoAPIKey.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.New(cfg.RequestsPerSecond, 4),
		breaker: breaker.New[*Response]("perplexity", breaker.Settings{
			MinRequests:  5,
			FailureRatio: 0.6,
			Timeout:      time.Minute,
			IsSuccessful: func(err error) bool {
				// A bad key or request is the caller's problem, not an outage.
				return err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrBadRequest)
			},
		}, logger),
		logger:  logger,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Close releases the rate limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

// HasKey reports whether a credential is configured.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// Model returns the model used when a request names none.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage     Usage    `json:"usage"`
	Citations []string `json:"citations"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send posts the prompt as a single user message and returns the completion.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	if c.apiKey == "" {
		metrics.LLMRequests.WithLabelValues(model, "no_key").Inc()
		return nil, wrapError("send", model, 0, ErrNoAPIKey)
	}

	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, wrapError("send", model, 0, fmt.Errorf("rate limit: %w", err))
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.do(ctx, model, req.Prompt)
	})
	metrics.LLMDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		if breaker.IsOpen(err) {
			return nil, wrapError("send", model, 0, err)
		}
		return nil, err
	}

	metrics.LLMRequests.WithLabelValues(model, "success").Inc()
	metrics.LLMTokens.WithLabelValues(model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokens.WithLabelValues(model, "completion").Add(float64(resp.Usage.CompletionTokens))
	metrics.LLMCostUSD.WithLabelValues(model).Add(resp.Cost)

	return resp, nil
}

func (c *Client) do(ctx context.Context, model, prompt string) (*Response, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, wrapError("send", model, 0, fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError("send", model, 0, fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("sending completion",
		"model", model,
		"request_id", requestID,
		"prompt_chars", len(prompt),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapError("send", model, 0, fmt.Errorf("request: %w", err))
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 8<<20))
	if err != nil {
		return nil, wrapError("send", model, httpResp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, wrapError("send", model, httpResp.StatusCode, statusError(httpResp.StatusCode, raw))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, wrapError("send", model, httpResp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return nil, wrapError("send", model, httpResp.StatusCode, ErrEmpty)
	}

	if cr.Model == "" {
		cr.Model = model
	}
	return &Response{
		Content:   cr.Choices[0].Message.Content,
		Model:     cr.Model,
		Usage:     cr.Usage,
		Cost:      Cost(model, cr.Usage),
		Citations: cr.Citations,
	}, nil
}

func statusError(status int, body []byte) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case status >= 500:
		sentinel = ErrServer
	default:
		sentinel = ErrBadRequest
	}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
		return fmt.Errorf("%w: %s", sentinel, eb.Error.Message)
	}
	return sentinel
}
