package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelly/novelly-server/internal/domain"
)

func TestEnsureInCatalog_ExtractsOnce(t *testing.T) {
	ts := setupTestServer(t)

	body := map[string]any{"title": "Dune", "author": "Frank Herbert", "skip_enrichment": true}
	resp := ts.api.Post("/api/v1/catalog/ensure", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var entry domain.CatalogEntry
	decodeData(t, resp, &entry)
	assert.Equal(t, "dune|frank herbert", entry.CatalogKey)
	assert.Equal(t, "Science Fiction", entry.PrimaryGenre)
	assert.Equal(t, domain.PacingModerate, entry.Pacing)

	// Second call is served from the session cache.
	prompts := ts.sender.promptCount()
	resp = ts.api.Post("/api/v1/catalog/ensure", body)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, prompts, ts.sender.promptCount())
}

func TestEnsureInCatalog_BlankTitle(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/catalog/ensure", map[string]any{"title": "   "})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Zero(t, ts.sender.promptCount())
}

func TestGetCatalogEntry(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/catalog/ensure", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/catalog/" + url.PathEscape("Dune|Frank Herbert"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var entry domain.CatalogEntry
	decodeData(t, resp, &entry)
	assert.Equal(t, "Dune", entry.Title)
}

func TestGetCatalogEntry_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/catalog/" + url.PathEscape("nothing|nobody"))
	require.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestSearchCatalog(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/catalog/ensure", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/catalog/search?genres=science+fiction&pacing=moderate")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result SearchCatalogResponse
	decodeData(t, resp, &result)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "dune|frank herbert", result.Entries[0].CatalogKey)

	resp = ts.api.Get("/api/v1/catalog/search?genres=horror")
	require.Equal(t, http.StatusOK, resp.Code)
	decodeData(t, resp, &result)
	assert.Zero(t, result.Count)
}

func TestSearchCatalog_UnknownPacing(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/catalog/search?pacing=glacial")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCatalogStats(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/catalog/ensure", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/catalog/stats")
	require.Equal(t, http.StatusOK, resp.Code)

	var stats domain.CatalogStats
	decodeData(t, resp, &stats)
	assert.Equal(t, 1, stats.Total)
}

func TestProcessEnrichmentQueue_Empty(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/catalog/enrich", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result ProcessEnrichmentResponse
	decodeData(t, resp, &result)
	assert.Zero(t, result.Enriched)
	assert.Zero(t, result.Remaining)
}
