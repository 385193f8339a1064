package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/llm"
)

var errUpstream = errors.New("upstream unavailable")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCatalog keeps entries in memory and records calls.
type fakeCatalog struct {
	mu      sync.Mutex
	entries map[string]*domain.CatalogEntry

	batchCalls  int
	batchSizes  []int
	ensured     []string
	merged      []string
	recommended []string
	saved       []string
	triggers    int

	ensureNil bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{entries: make(map[string]*domain.CatalogEntry)}
}

func (f *fakeCatalog) put(e *domain.CatalogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.CatalogKey] = e.Clone()
}

func (f *fakeCatalog) entryFor(title, author string) *domain.CatalogEntry {
	key := domain.MakeCatalogKey(title, author)
	if e, ok := f.entries[key]; ok {
		return e.Clone()
	}
	e := domain.NewMinimalEntry(title, author, nil)
	e.EnrichmentTier = domain.TierImportant
	e.Tropes = []string{"found family"}
	e.Themes = []string{"belonging"}
	e.Pacing = domain.PacingModerate
	f.entries[key] = e
	return e.Clone()
}

func (f *fakeCatalog) EnsureInCatalog(_ context.Context, title, author string, _ *domain.PartialBook, _ bool) *domain.CatalogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, domain.MakeCatalogKey(title, author))
	if f.ensureNil {
		return nil
	}
	return f.entryFor(title, author)
}

func (f *fakeCatalog) BatchExtractAndStore(_ context.Context, books []domain.RawRecommendation) []*domain.CatalogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.batchSizes = append(f.batchSizes, len(books))
	out := make([]*domain.CatalogEntry, 0, len(books))
	for _, b := range books {
		out = append(out, f.entryFor(b.Title, b.AuthorOrUnknown()))
	}
	return out
}

func (f *fakeCatalog) MergeCatalogData(_ context.Context, existing *domain.CatalogEntry, incoming *domain.PartialBook) *domain.CatalogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, existing.CatalogKey)
	merged, _ := domain.GapMerge(existing, incoming)
	f.entries[merged.CatalogKey] = merged.Clone()
	return merged
}

func (f *fakeCatalog) IncrementRecommended(_ context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommended = append(f.recommended, key)
}

func (f *fakeCatalog) IncrementSaved(_ context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, key)
}

func (f *fakeCatalog) TriggerEnrichment() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}

func (f *fakeCatalog) savedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

// fakeLookup answers from a title-keyed table. Titles in fail return errUpstream.
type fakeLookup struct {
	mu    sync.Mutex
	books map[string]*domain.PartialBook
	fail  map[string]bool
	calls []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{books: map[string]*domain.PartialBook{}, fail: map[string]bool{}}
}

func (f *fakeLookup) Lookup(_ context.Context, title, _ string) (*domain.PartialBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title)
	if f.fail[title] {
		return nil, errUpstream
	}
	if b, ok := f.books[title]; ok {
		c := *b
		return &c, nil
	}
	return &domain.PartialBook{
		CoverImage:   "https://covers.example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + ".jpg",
		Rating:       4.1,
		RatingsCount: 120,
		RatingSource: "google",
	}, nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
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

func (r *recordingEmitter) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

// scriptedSender answers prompts with the first reply whose marker the
// prompt contains, falling back to def.
type scriptedSender struct {
	mu      sync.Mutex
	replies []scriptedReply
	def     string
	err     error
	prompts []string
	models  []string
}

type scriptedReply struct {
	marker  string
	content string
}

func (s *scriptedSender) on(marker, content string) *scriptedSender {
	s.replies = append(s.replies, scriptedReply{marker: marker, content: content})
	return s
}

func (s *scriptedSender) Send(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	s.models = append(s.models, req.Model)
	if s.err != nil {
		return nil, s.err
	}
	content := s.def
	for _, r := range s.replies {
		if strings.Contains(req.Prompt, r.marker) {
			content = r.content
			break
		}
	}
	model := req.Model
	if model == "" {
		model = "sonar-pro"
	}
	usage := llm.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}
	return &llm.Response{
		Content: content,
		Model:   model,
		Usage:   usage,
		Cost:    llm.Cost(model, usage),
	}, nil
}

func (s *scriptedSender) promptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *scriptedSender) prompt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts[i]
}
