package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelly/novelly-server/internal/domain"
)

const tier3Answer = "```json\n" + `{
  "storyline_structure": ["linear"],
  "character_development": "gradual-growth",
  "relationship_focus": ["friendship"],
  "representation": {"protagonist_identities": [], "diversity_notes": ["diverse cast"]},
  "ending_type": "happy-for-now",
  "best_read_when": ["cozy day"],
  "reading_difficulty": "accessible",
  "positive_content_notes": ["found family"],
  "comparable_books": ["The Goblin Emperor"],
  "series_name": null,
  "series_position": 1,
  "confidence": 0.8
}` + "\n```"

func TestProcessEnrichmentQueue_UpgradesToTier3(t *testing.T) {
	st := newFakeStore()
	entry := domain.NewMinimalEntry("Legends and Lattes", "Travis Baldree", nil)
	st.put(entry)

	sender := replyWith(tier3Answer)
	events := &recordingEmitter{}
	svc := NewService(st, sender, Options{Events: events}, testLogger())
	ctx := context.Background()

	// Prime the cache so the upgrade is visible there too.
	svc.EnsureInCatalog(ctx, "Legends and Lattes", "Travis Baldree", nil, false)
	require.Equal(t, 1, svc.QueueLen())

	n := svc.ProcessEnrichmentQueue(ctx, 3)

	assert.Equal(t, 1, n)
	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, 1, sender.calls())
	assert.Contains(t, sender.prompts[0], `EXISTING DATA: {"title":"Legends and Lattes"`)

	stored := st.get(entry.CatalogKey)
	assert.Equal(t, domain.TierEnhanced, stored.EnrichmentTier)
	assert.Equal(t, domain.EndingType("happy-for-now"), stored.EndingType)
	assert.Equal(t, []string{"found family"}, stored.PositiveContentNotes)
	assert.Empty(t, stored.SeriesName)
	assert.Zero(t, stored.SeriesPosition)
	require.NotNil(t, stored.Representation)
	assert.Equal(t, []string{"diverse cast"}, stored.Representation.DiversityNotes)
	assert.NotNil(t, stored.LastEnrichedAt)

	cached := svc.EnsureInCatalog(ctx, "Legends and Lattes", "Travis Baldree", nil, false)
	assert.Equal(t, domain.TierEnhanced, cached.EnrichmentTier)
	assert.Equal(t, 1, events.count())
}

func TestProcessEnrichmentQueue_SkipsTier3Entries(t *testing.T) {
	st := newFakeStore()
	entry := domain.NewMinimalEntry("Piranesi", "Susanna Clarke", nil)
	entry.EnrichmentTier = domain.TierReference
	st.put(entry)

	sender := replyWith(tier3Answer)
	svc := newTestService(st, sender)
	svc.Enqueue(entry.CatalogKey)

	n := svc.ProcessEnrichmentQueue(context.Background(), 3)

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, sender.calls(), "model must not be called for tier >= 3")
	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, domain.TierReference, st.get(entry.CatalogKey).EnrichmentTier)
}

func TestProcessEnrichmentQueue_FailureDropsKey(t *testing.T) {
	st := newFakeStore()
	entry := domain.NewMinimalEntry("Piranesi", "Susanna Clarke", nil)
	st.put(entry)

	svc := newTestService(st, replyWith("not json"))
	svc.Enqueue(entry.CatalogKey)
	svc.Enqueue("missing|nobody")

	n := svc.ProcessEnrichmentQueue(context.Background(), 5)

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, svc.QueueLen())
	assert.Equal(t, domain.TierEssential, st.get(entry.CatalogKey).EnrichmentTier)
}

func TestProcessEnrichmentQueue_RespectsMaxItems(t *testing.T) {
	st := newFakeStore()
	for _, title := range []string{"A", "B", "C", "D"} {
		e := domain.NewMinimalEntry(title, "X", nil)
		e.EnrichmentTier = domain.TierEnhanced
		st.put(e)
	}
	svc := newTestService(st, replyWith(tier3Answer))
	for _, title := range []string{"A", "B", "C", "D"} {
		svc.Enqueue(domain.MakeCatalogKey(title, "X"))
	}

	svc.ProcessEnrichmentQueue(context.Background(), 3)
	assert.Equal(t, 1, svc.QueueLen())
}

func TestEnqueue_Deduplicates(t *testing.T) {
	svc := newTestService(newFakeStore(), replyWith(""))
	svc.Enqueue("a|b")
	svc.Enqueue("a|b")
	assert.Equal(t, 1, svc.QueueLen())
}

func TestEnqueue_Bounded(t *testing.T) {
	svc := NewService(newFakeStore(), replyWith(""), Options{QueueCapacity: 2}, testLogger())
	svc.Enqueue("a|x")
	svc.Enqueue("b|x")
	svc.Enqueue("c|x")
	assert.Equal(t, 2, svc.QueueLen())
}

func TestWorker_DrainsWhenTriggered(t *testing.T) {
	st := newFakeStore()
	keys := make([]string, 0, 5)
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		e := domain.NewMinimalEntry(title, "X", nil)
		st.put(e)
		keys = append(keys, e.CatalogKey)
	}

	svc := newTestService(st, replyWith(tier3Answer))
	for _, k := range keys {
		svc.Enqueue(k)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWorker(svc, testLogger())
	go func() { done <- w.Serve(ctx) }()

	svc.TriggerEnrichment()

	require.Eventually(t, func() bool { return svc.QueueLen() == 0 }, 2*time.Second, 10*time.Millisecond)
	for _, k := range keys {
		assert.Equal(t, domain.TierEnhanced, st.get(k).EnrichmentTier)
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, "catalog-enrichment", w.String())
}
