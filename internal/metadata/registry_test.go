package metadata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelly/novelly-server/internal/domain"
)

type fakeProvider struct {
	name     string
	priority int
	book     *domain.PartialBook
	err      error

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Priority() int { return f.priority }

func (f *fakeProvider) Search(context.Context, string, string) (*domain.PartialBook, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.book, f.err
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]*domain.PartialBook
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*domain.PartialBook)}
}

func (m *memCache) GetLookup(_ context.Context, provider, key string) (*domain.PartialBook, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[provider+":"+key]
	return b, ok, nil
}

func (m *memCache) SetLookup(_ context.Context, provider, key string, b *domain.PartialBook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[provider+":"+key] = b
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_MergesByPriority(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	// Registered out of order on purpose.
	r.Register(&fakeProvider{name: "openlibrary", priority: 30, book: &domain.PartialBook{
		CoverImage: "https://ol/cover.jpg",
		PageCount:  412,
	}})
	r.Register(&fakeProvider{name: "googlebooks", priority: 10, book: &domain.PartialBook{
		CoverImage:   "https://google/cover.jpg",
		Rating:       4.1,
		RatingSource: "Google Books",
	}})

	assert.Equal(t, []string{"googlebooks", "openlibrary"}, r.Providers())

	got, err := r.Lookup(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://google/cover.jpg", got.CoverImage)
	assert.InDelta(t, 4.1, got.Rating, 0.0001)
	assert.Equal(t, 412, got.PageCount)
}

func TestRegistry_ProviderErrorIsNoData(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	r.Register(&fakeProvider{name: "broken", priority: 10, err: errors.New("boom")})
	r.Register(&fakeProvider{name: "ok", priority: 20, book: &domain.PartialBook{Description: "desc"}})

	got, err := r.Lookup(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "desc", got.Description)
}

func TestRegistry_AllProvidersFailed(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	r.Register(&fakeProvider{name: "a", priority: 10, err: errors.New("boom")})
	r.Register(&fakeProvider{name: "b", priority: 20, err: errors.New("bang")})

	got, err := r.Lookup(context.Background(), "Dune", "Frank Herbert")
	assert.Nil(t, got)
	require.ErrorIs(t, err, ErrAllFailed)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Contains(t, err.Error(), "b: bang")
}

func TestRegistry_NothingFound(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	r.Register(&fakeProvider{name: "empty", priority: 10})

	got, err := r.Lookup(context.Background(), "Nonexistent", "Nobody")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = NewRegistry(nil, testLogger()).Lookup(context.Background(), "Dune", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegistry_UsesCache(t *testing.T) {
	cache := newMemCache()
	hit := &fakeProvider{name: "hit", priority: 10, book: &domain.PartialBook{CoverImage: "c"}}
	miss := &fakeProvider{name: "miss", priority: 20}
	failing := &fakeProvider{name: "failing", priority: 30, err: errors.New("down")}

	r := NewRegistry(cache, testLogger())
	r.Register(hit)
	r.Register(miss)
	r.Register(failing)

	for range 2 {
		got, err := r.Lookup(context.Background(), "Dune", "Frank Herbert")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "c", got.CoverImage)
	}

	assert.Equal(t, 1, hit.Calls())
	assert.Equal(t, 1, miss.Calls(), "misses are remembered")
	assert.Equal(t, 2, failing.Calls(), "failures are retried")
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "plain text", CleanDescription("  plain text "))
	assert.Equal(t, "Tom & Jerry", CleanDescription("Tom &amp; Jerry"))

	md := CleanDescription("<p>First <b>bold</b> line</p><p>Second</p>")
	assert.Contains(t, md, "**bold**")
	assert.NotContains(t, md, "<p>")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world", PlainText("<p>Hello</p><p>world</p>"))
	assert.Equal(t, "", PlainText(""))
}
