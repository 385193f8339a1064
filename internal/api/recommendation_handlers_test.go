package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/genre"
	"github.com/novelly/novelly-server/internal/service"
)

func TestRecommend_QuickSavesHistory(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/recommendations", testUser, map[string]any{
		"mode":  "quick",
		"books": []string{"Dune", "Foundation"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result service.RecommendationResult
	decodeData(t, resp, &result)
	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "Hyperion", result.Recommendations[0].Title)
	assert.Equal(t, "Big ideas and vivid worlds.", result.IntroText)
	assert.NotEmpty(t, result.HistoryID)

	resp = ts.api.Get("/api/v1/history", testUser)
	require.Equal(t, http.StatusOK, resp.Code)

	var history HistoryResponse
	decodeData(t, resp, &history)
	require.Len(t, history.Items, 1)
	assert.Equal(t, domain.SourceQuick, history.Items[0].SourceType)

	resp = ts.api.Get("/api/v1/history/"+result.HistoryID, testUser)
	require.Equal(t, http.StatusOK, resp.Code)

	var item domain.RecHistoryItem
	decodeData(t, resp, &item)
	assert.Len(t, item.Recommendations, 2)

	// History is private to its owner.
	resp = ts.api.Get("/api/v1/history/"+result.HistoryID, "X-User-ID: reader-2")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecommend_SkipsLibraryBooks(t *testing.T) {
	ts := setupTestServer(t)
	addTestBook(t, ts, "Hyperion", "Dan Simmons")
	ts.services.Library.Wait()

	resp := ts.api.Post("/api/v1/recommendations", testUser, map[string]any{
		"mode":  "quick",
		"books": []string{"Dune"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result service.RecommendationResult
	decodeData(t, resp, &result)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "The Left Hand of Darkness", result.Recommendations[0].Title)
	assert.Equal(t, 1, result.Skipped)
}

func TestRecommend_Validation(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown mode", map[string]any{"mode": "surprise", "books": []string{"Dune"}}},
		{"quick without books", map[string]any{"mode": "quick"}},
		{"interview without transcript", map[string]any{"mode": "interview"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/recommendations", testUser, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Equal(t, "VALIDATION", decodeEnvelope(t, resp).Code)
		})
	}
	assert.Zero(t, ts.sender.promptCount())
}

func TestRecommend_RequiresUser(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/recommendations", map[string]any{"mode": "quick", "books": []string{"Dune"}})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRecommend_UpstreamFailure(t *testing.T) {
	ts := setupTestServer(t)
	ts.sender.def = "not json at all"
	ts.sender.replies = nil

	resp := ts.api.Post("/api/v1/recommendations", testUser, map[string]any{
		"mode":  "quick",
		"books": []string{"Dune"},
	})
	require.Equal(t, http.StatusBadGateway, resp.Code, resp.Body.String())
	assert.Equal(t, "UPSTREAM", decodeEnvelope(t, resp).Code)
}

func TestInterview_Opening(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/interview/next", map[string]any{"books": []string{"Dune"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var turn service.InterviewTurn
	decodeData(t, resp, &turn)
	assert.Equal(t, "What was the last book you could not put down?", turn.Question)
	assert.Equal(t, 1, turn.Phase)
	assert.Equal(t, 1, turn.QuestionCount)
	assert.False(t, turn.Completed)
}

func TestInterview_MissingAnswer(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/interview/next", map[string]any{
		"question_count": 1,
		"phase":          1,
		"history": []map[string]string{
			{"role": "assistant", "content": "What do you love to read?"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFeed_GenerateAndClear(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/feed?genres=Fantasy,Romance")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var feed domain.HomeFeed
	decodeData(t, resp, &feed)
	assert.NotEmpty(t, feed.Sections)
	require.Len(t, feed.News, 1)
	assert.Equal(t, "Hugo finalists announced", feed.News[0].Title)

	// Cached.
	prompts := ts.sender.promptCount()
	resp = ts.api.Get("/api/v1/feed?genres=romance,fantasy")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, prompts, ts.sender.promptCount())

	resp = ts.api.Delete("/api/v1/feed?genres=Fantasy,Romance")
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/feed?genres=Fantasy,Romance")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Greater(t, ts.sender.promptCount(), prompts)
}

func TestFeed_Genres(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/feed/genres")
	require.Equal(t, http.StatusOK, resp.Code)

	var result FeedGenresResponse
	decodeData(t, resp, &result)
	assert.Equal(t, genre.DefaultGenres, result.Genres)
}

func TestFindBook(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/books/find", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var book domain.Book
	decodeData(t, resp, &book)
	assert.Equal(t, "Dune", book.Title)
}

func TestHydrateBooks_PreservesOrder(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/books/hydrate", testUser, map[string]any{
		"books": []map[string]any{
			{"title": "Hyperion", "author": "Dan Simmons"},
			{"title": "Piranesi", "author": "Susanna Clarke"},
		},
		"request_id": "req-7",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result BooksResponse
	decodeData(t, resp, &result)
	require.Len(t, result.Books, 2)
	assert.Equal(t, "Hyperion", result.Books[0].Title)
	assert.Equal(t, "Piranesi", result.Books[1].Title)
}

func TestHydrateBooks_BlankTitle(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/books/hydrate", map[string]any{
		"books": []map[string]any{{"title": " ", "author": "Nobody"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
