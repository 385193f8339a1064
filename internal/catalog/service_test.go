package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/store"
)

func TestEnsureInCatalog_NewBookFullExtraction(t *testing.T) {
	st := newFakeStore()
	sender := replyWith(duneExtraction)
	events := &recordingEmitter{}
	svc := NewService(st, sender, Options{Events: events}, testLogger())

	e := svc.EnsureInCatalog(context.Background(), "Dune", "Frank Herbert", nil, false)

	require.NotNil(t, e)
	assert.Equal(t, "dune|frank herbert", e.CatalogKey)
	assert.Equal(t, domain.TierImportant, e.EnrichmentTier)
	assert.Equal(t, domain.SourceEnrichment, e.ExtractionSource)
	assert.Contains(t, e.EmbeddingText, "Dune")
	assert.Equal(t, "Science Fiction", e.PrimaryGenre)
	assert.Equal(t, domain.PacingSlowBurn, e.Pacing)
	assert.Equal(t, []string{"dense"}, e.WritingStyle)
	assert.InDelta(t, 0.95, e.ConfidenceScore, 1e-9)
	assert.False(t, e.NeedsReview)
	require.NotNil(t, e.RelationshipDynamics)
	assert.Empty(t, e.RelationshipDynamics.Romantic)
	assert.Empty(t, e.RelationshipDynamics.Platonic)
	assert.Equal(t, "father and son", e.RelationshipDynamics.Familial)
	require.Len(t, e.ContentWarnings, 1)
	assert.Equal(t, domain.Intensity("moderate"), e.ContentWarnings[0].Intensity)

	assert.Equal(t, 1, sender.calls())
	assert.Contains(t, sender.prompts[0], `BOOK: "Dune" by Frank Herbert`)
	assert.NotNil(t, st.get("dune|frank herbert"))
	assert.Equal(t, 1, events.count())
}

func TestEnsureInCatalog_SecondCallHitsSessionCache(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, replyWith(duneExtraction))
	ctx := context.Background()

	first := svc.EnsureInCatalog(ctx, "Dune", "Frank Herbert", nil, false)
	getsAfterFirst, upserts, _ := st.counts()
	require.Equal(t, 1, upserts)

	second := svc.EnsureInCatalog(ctx, "  DUNE ", "frank herbert  ", nil, false)
	gets, upserts, _ := st.counts()

	assert.Equal(t, getsAfterFirst, gets, "cache hit must not read the store")
	assert.Equal(t, 1, upserts, "exactly one creation")
	assert.Equal(t, first.CatalogKey, second.CatalogKey)
	assert.Equal(t, 1, svc.CacheSize())
}

func TestEnsureInCatalog_CachedEntriesAreCopies(t *testing.T) {
	svc := newTestService(newFakeStore(), replyWith(duneExtraction))
	ctx := context.Background()

	first := svc.EnsureInCatalog(ctx, "Dune", "Frank Herbert", nil, false)
	first.Title = "mutated"
	first.Themes[0] = "mutated"

	second := svc.EnsureInCatalog(ctx, "Dune", "Frank Herbert", nil, false)
	assert.Equal(t, "Dune", second.Title)
	assert.Equal(t, "power", second.Themes[0])
}

func TestEnsureInCatalog_ParseFailureStoresFallback(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, replyWith("I could not find that book, sorry."))

	e := svc.EnsureInCatalog(context.Background(), "Obscure Title", "Nobody", nil, false)

	require.NotNil(t, e)
	assert.True(t, e.NeedsReview)
	assert.Less(t, e.ConfidenceScore, domain.ReviewThreshold)
	assert.Equal(t, domain.SourceExtractionFailed, e.ExtractionSource)
	assert.Equal(t, domain.TierEssential, e.EnrichmentTier)
	assert.NotNil(t, st.get(e.CatalogKey))
}

func TestEnsureInCatalog_AdapterFailureStoresFallback(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, failWith(errUpstream))
	partial := &domain.PartialBook{CoverImage: "https://img.example/x.jpg", Rating: 4.1, RatingSource: "Google Books"}

	e := svc.EnsureInCatalog(context.Background(), "Some Book", "Some Author", partial, false)

	assert.Equal(t, domain.SourceExtractionFailed, e.ExtractionSource)
	assert.True(t, e.NeedsReview)
	assert.Equal(t, "https://img.example/x.jpg", e.CoverImage)
	assert.Equal(t, "Google Books", e.RatingSource)
}

func TestEnsureInCatalog_PartialDisplayDataWins(t *testing.T) {
	svc := newTestService(newFakeStore(), replyWith(duneExtraction))
	partial := &domain.PartialBook{CoverImage: "https://img.example/dune.jpg", PageCount: 412, Description: "ignored"}

	e := svc.EnsureInCatalog(context.Background(), "Dune", "Frank Herbert", partial, false)

	assert.Equal(t, "https://img.example/dune.jpg", e.CoverImage)
	assert.Equal(t, 412, e.PageCount)
	assert.Equal(t, "A noble family takes control of a desert planet.", e.Description)
}

func TestEnsureInCatalog_SkipEnrichment(t *testing.T) {
	st := newFakeStore()
	sender := replyWith(duneExtraction)
	svc := newTestService(st, sender)

	e := svc.EnsureInCatalog(context.Background(), "Dune", "", &domain.PartialBook{CoverImage: "c"}, true)

	assert.Equal(t, 0, sender.calls())
	assert.Equal(t, domain.SourceHydrationOnly, e.ExtractionSource)
	assert.Equal(t, domain.TierEssential, e.EnrichmentTier)
	assert.Equal(t, "dune|unknown", e.CatalogKey)
	assert.Equal(t, "c", e.CoverImage)
	assert.Less(t, e.ConfidenceScore, domain.ReviewThreshold)
	assert.True(t, e.NeedsReview)

	stored := st.get("dune|unknown")
	require.NotNil(t, stored)
	assert.True(t, stored.NeedsReview)
}

func TestEnsureInCatalog_ReadErrorDoesNotOverwrite(t *testing.T) {
	st := newFakeStore()
	st.getErr = errors.New("database is locked")
	sender := replyWith(duneExtraction)
	svc := newTestService(st, sender)

	e := svc.EnsureInCatalog(context.Background(), "Dune", "Frank Herbert", &domain.PartialBook{CoverImage: "c"}, false)

	require.NotNil(t, e)
	assert.Equal(t, "dune|frank herbert", e.CatalogKey)
	assert.Equal(t, "c", e.CoverImage)
	assert.True(t, e.NeedsReview)
	assert.Equal(t, 0, sender.calls())
	_, upserts, _ := st.counts()
	assert.Equal(t, 0, upserts)
	assert.Equal(t, 0, svc.CacheSize(), "unsaved entries are not cached")

	// The next call reads the store again once it recovers.
	st.getErr = nil
	e = svc.EnsureInCatalog(context.Background(), "Dune", "Frank Herbert", nil, false)
	assert.Equal(t, domain.TierImportant, e.EnrichmentTier)
	assert.Equal(t, 1, sender.calls())
}

func TestEnsureInCatalog_StoreHitMergesAndQueues(t *testing.T) {
	st := newFakeStore()
	existing := domain.NewMinimalEntry("Circe", "Madeline Miller", nil)
	existing.CoverImage = "https://img.example/original.jpg"
	st.put(existing)

	sender := replyWith(duneExtraction)
	svc := newTestService(st, sender)

	partial := &domain.PartialBook{CoverImage: "https://img.example/other.jpg", Rating: 4.4, RatingsCount: 900}
	e := svc.EnsureInCatalog(context.Background(), "Circe", "Madeline Miller", partial, false)

	assert.Equal(t, 0, sender.calls())
	assert.Equal(t, "https://img.example/original.jpg", e.CoverImage, "populated field must not regress")
	assert.InDelta(t, 4.4, e.Rating, 1e-9)
	assert.Equal(t, 900, e.RatingsCount)

	_, upserts, updates := st.counts()
	assert.Equal(t, 0, upserts)
	assert.Equal(t, 1, updates)
	assert.InDelta(t, 4.4, st.get(e.CatalogKey).Rating, 1e-9)

	assert.Equal(t, 1, svc.QueueLen(), "tier-1 entry should be queued")
}

func TestEnsureInCatalog_StoreHitTier2NotQueued(t *testing.T) {
	st := newFakeStore()
	existing := domain.NewMinimalEntry("Circe", "Madeline Miller", nil)
	existing.EnrichmentTier = domain.TierImportant
	st.put(existing)

	svc := newTestService(st, replyWith(""))
	svc.EnsureInCatalog(context.Background(), "Circe", "Madeline Miller", nil, false)

	assert.Equal(t, 0, svc.QueueLen())
}

func TestEnsureInCatalog_PersistenceFailureStillReturns(t *testing.T) {
	st := newFakeStore()
	st.upsertErr = assert.AnError
	svc := newTestService(st, replyWith(duneExtraction))

	e := svc.EnsureInCatalog(context.Background(), "Dune", "Frank Herbert", nil, false)
	require.NotNil(t, e)
	assert.Equal(t, domain.TierImportant, e.EnrichmentTier)
	assert.Nil(t, st.get(e.CatalogKey))
}

func TestMergeCatalogData_NoChangeNoWrite(t *testing.T) {
	st := newFakeStore()
	existing := domain.NewMinimalEntry("Emma", "Jane Austen", nil)
	existing.CoverImage = "x"
	st.put(existing)
	svc := newTestService(st, replyWith(""))

	merged := svc.MergeCatalogData(context.Background(), existing, &domain.PartialBook{CoverImage: "y"})

	assert.Equal(t, "x", merged.CoverImage)
	_, _, updates := st.counts()
	assert.Equal(t, 0, updates)
}

func TestMergeCatalogData_FillsGap(t *testing.T) {
	st := newFakeStore()
	existing := domain.NewMinimalEntry("Emma", "Jane Austen", nil)
	st.put(existing)
	svc := newTestService(st, replyWith(""))

	merged := svc.MergeCatalogData(context.Background(), existing, &domain.PartialBook{CoverImage: "x"})

	assert.Equal(t, "x", merged.CoverImage)
	assert.Equal(t, "x", st.get(existing.CatalogKey).CoverImage)
}

func TestIncrementCounters(t *testing.T) {
	st := newFakeStore()
	st.put(domain.NewMinimalEntry("Emma", "Jane Austen", nil))
	svc := newTestService(st, replyWith(""))
	ctx := context.Background()
	key := "emma|jane austen"

	svc.IncrementRecommended(ctx, key)
	svc.IncrementSaved(ctx, key)
	svc.IncrementSaved(ctx, key)

	e := st.get(key)
	assert.Equal(t, 1, e.TimesRecommended)
	assert.Equal(t, 2, e.TimesSaved)

	// Unknown keys are ignored.
	svc.IncrementSaved(ctx, "missing|nobody")
}

func TestIncrementCounters_FallbackWithoutAtomicSupport(t *testing.T) {
	st := newFakeStore()
	st.noAtomicCounts = true
	st.put(domain.NewMinimalEntry("Emma", "Jane Austen", nil))
	svc := newTestService(st, replyWith(""))
	ctx := context.Background()

	svc.IncrementRecommended(ctx, "emma|jane austen")
	svc.IncrementRecommended(ctx, "emma|jane austen")

	assert.Equal(t, 2, st.get("emma|jane austen").TimesRecommended)
	_, _, updates := st.counts()
	assert.Equal(t, 2, updates)
}

func TestSearchCatalog_StoreFailureReturnsEmpty(t *testing.T) {
	st := newFakeStore()
	st.queryErr = assert.AnError
	svc := newTestService(st, replyWith(""))

	got := svc.SearchCatalog(context.Background(), domain.CatalogFilters{Genres: []string{"Fantasy"}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetCatalogStats(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, replyWith(duneExtraction))
	ctx := context.Background()

	svc.EnsureInCatalog(ctx, "Dune", "Frank Herbert", nil, false)
	svc.EnsureInCatalog(ctx, "Emma", "Jane Austen", nil, true)

	stats := svc.GetCatalogStats(ctx)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByTier[domain.TierImportant])
	assert.Equal(t, 1, stats.ByTier[domain.TierEssential])
	assert.Equal(t, 2, stats.CacheEntries)

	svc.ClearSessionCache()
	assert.Equal(t, 0, svc.CacheSize())
}

func TestEntry(t *testing.T) {
	st := newFakeStore()
	st.put(domain.NewMinimalEntry("Emma", "Jane Austen", nil))
	svc := newTestService(st, replyWith(""))

	e, err := svc.Entry(context.Background(), "emma|jane austen")
	require.NoError(t, err)
	assert.Equal(t, "Emma", e.Title)

	_, err = svc.Entry(context.Background(), "missing|nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBuildTier12Prompt(t *testing.T) {
	p := BuildTier12Prompt("The Hobbit", "J.R.R. Tolkien")
	assert.Contains(t, p, `BOOK: "The Hobbit" by J.R.R. Tolkien`)
	assert.False(t, strings.Contains(p, "{title}") || strings.Contains(p, "{author}"))
	assert.Contains(t, p, `"pacing": "breakneck | fast | moderate | slow-burn | meditative | variable"`)
}
