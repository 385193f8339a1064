package llm

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, key string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIKey:            key,
		BaseURL:           server.URL,
		RequestsPerSecond: 100,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(client.Close)
	return client
}

func TestClient_Send(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, "pplx-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer pplx-test", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "sonar-pro",
			"choices": [{"message": {"role": "assistant", "content": "{\"ok\": true}"}}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 2000, "total_tokens": 3000}
		}`))
	})

	resp, err := client.Send(context.Background(), Request{Prompt: "recommend something"})
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, resp.Content)
	assert.Equal(t, 3000, resp.Usage.TotalTokens)
	assert.InDelta(t, (1000*3.0+2000*15.0)/1_000_000, resp.Cost, 1e-9)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, systemPrompt, got.Messages[0].Content)
	assert.Equal(t, "recommend something", got.Messages[1].Content)
}

func TestClient_Send_NoKeySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.Send(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, ErrNoAPIKey)
	assert.Zero(t, calls.Load())
	assert.False(t, client.HasKey())
}

func TestClient_Send_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ``, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ``, ErrRateLimited},
		{"server error", http.StatusBadGateway, ``, ErrServer},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"invalid model"}}`, ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Send(context.Background(), Request{Prompt: "x", Model: "sonar"})
			require.ErrorIs(t, err, tt.wantErr)

			var llmErr *Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.status, llmErr.Status)
			assert.Equal(t, "sonar", llmErr.Model)
		})
	}
}

func TestClient_Send_EmptyChoices(t *testing.T) {
	client := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Send(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestResultOf(t *testing.T) {
	ok := ResultOf(&Response{Content: "hi", Usage: Usage{TotalTokens: 3}}, nil)
	assert.True(t, ok.Success)
	assert.Equal(t, "hi", ok.Content)

	failed := ResultOf(nil, ErrNoAPIKey)
	assert.False(t, failed.Success)
	assert.Contains(t, failed.Error, "api key")
}

func TestCost(t *testing.T) {
	u := Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}
	assert.InDelta(t, 2.0, Cost("sonar", u), 1e-9)
	assert.InDelta(t, 18.0, Cost("sonar-pro", u), 1e-9)
	assert.InDelta(t, 18.0, Cost("some-future-model", u), 1e-9)
}
