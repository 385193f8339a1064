package openlibrary

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(c.Close)
	return c
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "The Hobbit J.R.R. Tolkien", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"numFound": 1,
			"docs": [{
				"key": "/works/OL262758W",
				"title": "The Hobbit",
				"author_name": ["J.R.R. Tolkien"],
				"cover_i": 14627509,
				"number_of_pages_median": 310,
				"ratings_average": 4.27,
				"ratings_count": 512,
				"first_sentence": ["In a hole in the ground there lived a hobbit."]
			}]
		}`))
	})

	book, err := c.Search(context.Background(), "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, err)
	require.NotNil(t, book)

	assert.Equal(t, "https://covers.openlibrary.org/b/id/14627509-M.jpg", book.CoverImage)
	assert.Equal(t, "J.R.R. Tolkien", book.Author)
	assert.Equal(t, 310, book.PageCount)
	assert.InDelta(t, 4.27, book.Rating, 0.0001)
	assert.Equal(t, RatingSource, book.RatingSource)
	assert.Equal(t, "In a hole in the ground there lived a hobbit.", book.Description)
}

func TestClient_Search_NoDocs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound": 0, "docs": []}`))
	})

	book, err := c.Search(context.Background(), "Nothing", "Unknown")
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestClient_Search_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Search(context.Background(), "Dune", "")
	assert.ErrorIs(t, err, ErrServer)
}

func TestCoverURL(t *testing.T) {
	assert.Equal(t, "", CoverURL(0))
	assert.Equal(t, "https://covers.openlibrary.org/b/id/42-M.jpg", CoverURL(42))
}
