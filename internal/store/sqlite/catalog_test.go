package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/store"
)

func makeTestEntry(title, author string) *domain.CatalogEntry {
	e := domain.NewMinimalEntry(title, author, nil)
	e.PrimaryGenre = "Fantasy"
	e.Themes = []string{"found family", "grief"}
	e.MoodEmotions = []string{"cozy", "hopeful"}
	e.SetConfidence(0.85)
	return e
}

func TestUpsertByKey_AndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := makeTestEntry("The House in the Cerulean Sea", "TJ Klune")
	e.EnrichmentTier = domain.TierImportant
	e.Tropes = []string{"grumpy sunshine"}
	e.ContentWarnings = []domain.ContentWarning{{Category: "prejudice", Intensity: domain.IntensityMild}}
	e.Setting = &domain.Setting{TimePeriod: "contemporary", RealOrFictional: domain.SettingFictional}
	e.RelationshipDynamics = &domain.RelationshipDynamics{Romantic: "slow burn"}
	now := time.Now().UTC()
	e.LastEnrichedAt = &now

	if err := s.UpsertByKey(ctx, e); err != nil {
		t.Fatalf("UpsertByKey: %v", err)
	}

	got, err := s.GetByKey(ctx, "the house in the cerulean sea|tj klune")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.Title != e.Title || got.Author != e.Author {
		t.Errorf("title/author mismatch: %q by %q", got.Title, got.Author)
	}
	if got.EnrichmentTier != domain.TierImportant {
		t.Errorf("expected tier 2, got %d", got.EnrichmentTier)
	}
	if len(got.Themes) != 2 || got.Themes[0] != "found family" {
		t.Errorf("themes mismatch: %v", got.Themes)
	}
	if len(got.ContentWarnings) != 1 || got.ContentWarnings[0].Category != "prejudice" {
		t.Errorf("content warnings mismatch: %v", got.ContentWarnings)
	}
	if got.Setting == nil || got.Setting.TimePeriod != "contemporary" {
		t.Errorf("setting mismatch: %+v", got.Setting)
	}
	if got.RelationshipDynamics == nil || got.RelationshipDynamics.Romantic != "slow burn" {
		t.Errorf("relationship dynamics mismatch: %+v", got.RelationshipDynamics)
	}
	if got.Representation != nil {
		t.Errorf("expected nil representation, got %+v", got.Representation)
	}
	if got.LastEnrichedAt == nil {
		t.Error("expected last_enriched_at to be set")
	}
	if got.Tone == nil {
		t.Error("expected tier-1 tone to be a non-nil slice")
	}
}

func TestGetByKey_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByKey(context.Background(), "missing|nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertByKey_LowerTierKeepsRicherRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := makeTestEntry("Piranesi", "Susanna Clarke")
	e.EnrichmentTier = domain.TierEnhanced
	e.ExtractionSource = domain.SourceTier3
	e.StorylineStructure = []string{"linear"}
	e.EndingType = domain.EndingBittersweet
	e.CoverImage = "https://covers.example/piranesi.jpg"
	e.Rating = 4.1
	e.RatingSource = "Google Books"
	if err := s.UpsertByKey(ctx, e); err != nil {
		t.Fatalf("UpsertByKey: %v", err)
	}
	if err := s.IncrementCounter(ctx, e.CatalogKey, domain.CounterRecommended); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}

	// A late tier-2 write for the same book.
	again := makeTestEntry("Piranesi", "Susanna Clarke")
	again.EnrichmentTier = domain.TierImportant
	again.ExtractionSource = domain.SourceBatch
	again.PrimaryGenre = "Mystery"
	again.CoverImage = "https://covers.example/other.jpg"
	again.Description = "A house of endless halls."
	again.PageCount = 272
	if err := s.UpsertByKey(ctx, again); err != nil {
		t.Fatalf("second UpsertByKey: %v", err)
	}

	got, err := s.GetByKey(ctx, e.CatalogKey)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.EnrichmentTier != domain.TierEnhanced {
		t.Errorf("expected tier 3 to be kept, got %d", got.EnrichmentTier)
	}
	if len(got.StorylineStructure) != 1 || got.StorylineStructure[0] != "linear" {
		t.Errorf("tier-3 storyline lost: %v", got.StorylineStructure)
	}
	if got.EndingType != domain.EndingBittersweet {
		t.Errorf("tier-3 ending lost: %q", got.EndingType)
	}
	if got.PrimaryGenre != "Fantasy" || got.ExtractionSource != domain.SourceTier3 {
		t.Errorf("lower tier overwrote extraction: genre=%q source=%q", got.PrimaryGenre, got.ExtractionSource)
	}
	if got.CoverImage != "https://covers.example/piranesi.jpg" || got.Rating != 4.1 || got.RatingSource != "Google Books" {
		t.Errorf("display data regressed: cover=%q rating=%v source=%q", got.CoverImage, got.Rating, got.RatingSource)
	}
	if got.Description != "A house of endless halls." || got.PageCount != 272 {
		t.Errorf("empty display fields not filled: description=%q pages=%d", got.Description, got.PageCount)
	}
	if got.TimesRecommended != 1 {
		t.Errorf("expected times_recommended=1, got %d", got.TimesRecommended)
	}
}

func TestUpsertByKey_SameTierReplacesExtraction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := makeTestEntry("Circe", "Madeline Miller")
	first.CoverImage = "https://covers.example/circe.jpg"
	if err := s.UpsertByKey(ctx, first); err != nil {
		t.Fatalf("UpsertByKey: %v", err)
	}

	second := makeTestEntry("Circe", "Madeline Miller")
	second.EnrichmentTier = domain.TierImportant
	second.PrimaryGenre = "Mythology"
	second.Tropes = []string{"retelling"}
	if err := s.UpsertByKey(ctx, second); err != nil {
		t.Fatalf("second UpsertByKey: %v", err)
	}

	got, err := s.GetByKey(ctx, first.CatalogKey)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.EnrichmentTier != domain.TierImportant || got.PrimaryGenre != "Mythology" {
		t.Errorf("higher tier not applied: tier=%d genre=%q", got.EnrichmentTier, got.PrimaryGenre)
	}
	if len(got.Tropes) != 1 || got.Tropes[0] != "retelling" {
		t.Errorf("tropes not replaced: %v", got.Tropes)
	}
	if got.CoverImage != "https://covers.example/circe.jpg" {
		t.Errorf("cover lost: %q", got.CoverImage)
	}
}

func TestUpdateFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := makeTestEntry("Circe", "Madeline Miller")
	if err := s.UpsertByKey(ctx, e); err != nil {
		t.Fatalf("UpsertByKey: %v", err)
	}

	cover := "https://covers.example/circe.jpg"
	rating := 4.3
	source := "Google Books"
	patch := domain.CatalogPatch{CoverImage: &cover, Rating: &rating, RatingSource: &source}
	if err := s.UpdateFields(ctx, e.CatalogKey, patch); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := s.GetByKey(ctx, e.CatalogKey)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.CoverImage != cover || got.Rating != rating || got.RatingSource != source {
		t.Errorf("patch not applied: %q %v %q", got.CoverImage, got.Rating, got.RatingSource)
	}
	if got.PrimaryGenre != "Fantasy" {
		t.Errorf("unpatched field changed: %q", got.PrimaryGenre)
	}

	err = s.UpdateFields(ctx, "missing|nobody", patch)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// An empty patch is a no-op even for unknown keys.
	if err := s.UpdateFields(ctx, "missing|nobody", domain.CatalogPatch{}); err != nil {
		t.Errorf("empty patch: %v", err)
	}
}

func TestIncrementCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := makeTestEntry("Beowulf", domain.UnknownAuthor)
	if err := s.UpsertByKey(ctx, e); err != nil {
		t.Fatalf("UpsertByKey: %v", err)
	}

	for range 3 {
		if err := s.IncrementCounter(ctx, e.CatalogKey, domain.CounterSaved); err != nil {
			t.Fatalf("IncrementCounter: %v", err)
		}
	}
	got, err := s.GetByKey(ctx, "beowulf|unknown")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.TimesSaved != 3 {
		t.Errorf("expected times_saved=3, got %d", got.TimesSaved)
	}

	if err := s.IncrementCounter(ctx, "missing|nobody", domain.CounterSaved); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.IncrementCounter(ctx, e.CatalogKey, domain.Counter("title")); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQueryByFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cozy := makeTestEntry("Legends & Lattes", "Travis Baldree")
	cozy.Pacing = domain.PacingSlowBurn
	cozy.TimesRecommended = 0

	dark := makeTestEntry("The Poppy War", "R.F. Kuang")
	dark.MoodEmotions = []string{"dark", "tense"}
	dark.Themes = []string{"war"}
	dark.Pacing = domain.PacingFast

	lowConfidence := makeTestEntry("Rumor", "Nobody Knows")
	lowConfidence.SetConfidence(0.3)

	romance := makeTestEntry("Beach Read", "Emily Henry")
	romance.PrimaryGenre = "Romance"
	romance.Tropes = []string{"rivals to lovers"}

	for _, e := range []*domain.CatalogEntry{cozy, dark, lowConfidence, romance} {
		if err := s.UpsertByKey(ctx, e); err != nil {
			t.Fatalf("UpsertByKey %s: %v", e.Title, err)
		}
	}
	// Make the dark entry the most popular.
	for range 2 {
		if err := s.IncrementCounter(ctx, dark.CatalogKey, domain.CounterRecommended); err != nil {
			t.Fatalf("IncrementCounter: %v", err)
		}
	}

	tests := []struct {
		name    string
		filters domain.CatalogFilters
		want    []string
	}{
		{"genre is case-insensitive and ordered by popularity", domain.CatalogFilters{Genres: []string{"fantasy"}}, []string{"The Poppy War", "Legends & Lattes"}},
		{"mood overlap", domain.CatalogFilters{Moods: []string{"tense", "melancholy"}}, []string{"The Poppy War"}},
		{"trope overlap", domain.CatalogFilters{Tropes: []string{"rivals to lovers"}}, []string{"Beach Read"}},
		{"pacing exact", domain.CatalogFilters{Pacing: domain.PacingSlowBurn}, []string{"Legends & Lattes"}},
		{"combined filters", domain.CatalogFilters{Genres: []string{"Fantasy"}, Themes: []string{"war"}}, []string{"The Poppy War"}},
		{"limit", domain.CatalogFilters{Genres: []string{"Fantasy"}, Limit: 1}, []string{"The Poppy War"}},
		{"no match", domain.CatalogFilters{Genres: []string{"Horror"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryByFilters(ctx, tt.filters)
			if err != nil {
				t.Fatalf("QueryByFilters: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
			}
			for i, e := range got {
				if e.Title != tt.want[i] {
					t.Errorf("result %d: expected %q, got %q", i, tt.want[i], e.Title)
				}
				if e.ConfidenceScore < domain.MinSearchConfidence {
					t.Errorf("result %q below confidence floor", e.Title)
				}
			}
		})
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestEntry("A", "X")
	b := makeTestEntry("B", "X")
	b.EnrichmentTier = domain.TierEnhanced
	c := makeTestEntry("C", "X")
	c.ExtractionSource = domain.SourceBatchFailed
	c.SetConfidence(0.3)

	for _, e := range []*domain.CatalogEntry{a, b, c} {
		if err := s.UpsertByKey(ctx, e); err != nil {
			t.Fatalf("UpsertByKey: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.ByTier[domain.TierEssential] != 2 || stats.ByTier[domain.TierEnhanced] != 1 {
		t.Errorf("tier counts mismatch: %v", stats.ByTier)
	}
	if stats.NeedsReview != 1 {
		t.Errorf("expected 1 needing review, got %d", stats.NeedsReview)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", stats.Failed)
	}
}
