package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/store"
)

// fakeStore is an in-memory Store that counts calls.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*domain.CatalogEntry

	gets, upserts, updates, increments int

	getErr         error
	upsertErr      error
	queryErr       error
	noAtomicCounts bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*domain.CatalogEntry)}
}

func (f *fakeStore) put(e *domain.CatalogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.CatalogKey] = e.Clone()
}

func (f *fakeStore) get(key string) *domain.CatalogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key].Clone()
}

func (f *fakeStore) GetByKey(_ context.Context, key string) (*domain.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (f *fakeStore) UpsertByKey(_ context.Context, e *domain.CatalogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	c := e.Clone()
	if prev, ok := f.entries[e.CatalogKey]; ok {
		c.EnrichmentTier = max(c.EnrichmentTier, prev.EnrichmentTier)
		c.TimesRecommended = prev.TimesRecommended
		c.TimesSaved = prev.TimesSaved
	}
	f.entries[e.CatalogKey] = c
	return nil
}

func (f *fakeStore) UpdateFields(_ context.Context, key string, patch domain.CatalogPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	e, ok := f.entries[key]
	if !ok {
		return store.ErrNotFound
	}
	patch.Apply(e)
	return nil
}

func (f *fakeStore) IncrementCounter(_ context.Context, key string, counter domain.Counter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	if f.noAtomicCounts {
		return store.ErrUnsupported
	}
	e, ok := f.entries[key]
	if !ok {
		return store.ErrNotFound
	}
	if counter == domain.CounterSaved {
		e.TimesSaved++
	} else {
		e.TimesRecommended++
	}
	return nil
}

func (f *fakeStore) QueryByFilters(_ context.Context, _ domain.CatalogFilters) ([]*domain.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []*domain.CatalogEntry
	for _, e := range f.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (f *fakeStore) Stats(_ context.Context) (*domain.CatalogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.CatalogStats{Total: len(f.entries), ByTier: map[domain.Tier]int{}}
	for _, e := range f.entries {
		stats.ByTier[e.EnrichmentTier]++
	}
	return stats, nil
}

func (f *fakeStore) counts() (gets, upserts, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.upserts, f.updates
}

// fakeSender answers every prompt with reply.
type fakeSender struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func replyWith(content string) *fakeSender {
	return &fakeSender{reply: func(string) (string, error) { return content, nil }}
}

func failWith(err error) *fakeSender {
	return &fakeSender{reply: func(string) (string, error) { return "", err }}
}

func (f *fakeSender) Send(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	content, err := f.reply(req.Prompt)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: content, Model: "sonar-pro"}, nil
}

func (f *fakeSender) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// recordingEmitter collects emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingEmitter) Emit(e any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var errUpstream = errors.New("upstream unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(st Store, sender llm.Sender) *Service {
	return NewService(st, sender, Options{}, testLogger())
}

const duneExtraction = `<think>The user wants Dune metadata.</think>
{
  "title": "Dune",
  "author": "Frank Herbert",
  "primary_genre": "Science Fiction",
  "fiction_nonfiction": "fiction",
  "description": "A noble family takes control of a desert planet.",
  "themes": ["power", "ecology", "religion"],
  "pacing": "slow",
  "tone": ["epic", "philosophical"],
  "mood_emotions": ["tense", "awe"],
  "subgenres": ["Space Opera"],
  "tropes": ["chosen one", "political intrigue"],
  "characterization": "idea-driven",
  "writing_style": "dense",
  "protagonist_types": ["reluctant hero"],
  "content_warnings": [{"category": "violence", "intensity": "moderate"}],
  "emotional_impact": "thought-provoking",
  "setting": {"time_period": "far future", "location_type": "desert planet", "real_or_fictional": "fictional", "importance": "central-character"},
  "target_age_group": "adult",
  "relationship_dynamics": {"romantic": null, "platonic": "null", "familial": "father and son", "rivalries": "Atreides and Harkonnen"},
  "reader_need": "Challenge",
  "confidence": 0.95
}`
