package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCatalogKey(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		author string
		want   string
	}{
		{"plain", "Dune", "Frank Herbert", "dune|frank herbert"},
		{"whitespace and case", "  The Hobbit ", " J.R.R. TOLKIEN  ", "the hobbit|j.r.r. tolkien"},
		{"punctuation kept", "Gideon the Ninth!", "Tamsyn Muir", "gideon the ninth!|tamsyn muir"},
		{"empty author", "Beowulf", "", "beowulf|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MakeCatalogKey(tt.title, tt.author))
		})
	}
}

func TestMakeCatalogKey_SameBookDifferentSpelling(t *testing.T) {
	assert.Equal(t, MakeCatalogKey("Circe", "Madeline Miller"), MakeCatalogKey("CIRCE ", " madeline miller"))
}

func TestNeedsReviewFor(t *testing.T) {
	assert.True(t, NeedsReviewFor(0.3))
	assert.True(t, NeedsReviewFor(0.69))
	assert.False(t, NeedsReviewFor(0.7))
	assert.False(t, NeedsReviewFor(0.95))
}

func TestCatalogEntry_SetConfidence(t *testing.T) {
	e := &CatalogEntry{}

	e.SetConfidence(0.92)
	assert.False(t, e.NeedsReview)

	e.SetConfidence(ReviewThreshold - 0.01)
	assert.True(t, e.NeedsReview)

	e.SetConfidence(ReviewThreshold)
	assert.False(t, e.NeedsReview)
}

func TestNewMinimalEntry(t *testing.T) {
	e := NewMinimalEntry("Piranesi", "Susanna Clarke", &PartialBook{
		CoverImage: "https://covers.example/p.jpg",
		Rating:     4.2,
		PageCount:  272,
	})

	assert.Equal(t, "piranesi|susanna clarke", e.CatalogKey)
	assert.Equal(t, "Unknown", e.PrimaryGenre)
	assert.Equal(t, "fiction", e.FictionNonfiction)
	assert.Equal(t, PacingModerate, e.Pacing)
	assert.Equal(t, TierEssential, e.EnrichmentTier)
	assert.InDelta(t, 0.5, e.ConfidenceScore, 0.0001)
	assert.True(t, e.NeedsReview)
	assert.Equal(t, "https://covers.example/p.jpg", e.CoverImage)
	assert.Equal(t, 272, e.PageCount)
	assert.NotNil(t, e.Themes)
	assert.NotNil(t, e.Tone)
	assert.NotNil(t, e.MoodEmotions)
}

func TestCatalogEntry_Clone(t *testing.T) {
	e := NewMinimalEntry("Piranesi", "Susanna Clarke", nil)
	e.Themes = []string{"isolation"}
	e.Setting = &Setting{TimePeriod: "timeless"}

	c := e.Clone()
	c.Themes[0] = "changed"
	c.Setting.TimePeriod = "changed"

	assert.Equal(t, "isolation", e.Themes[0])
	assert.Equal(t, "timeless", e.Setting.TimePeriod)
}

func TestBuildEmbeddingText(t *testing.T) {
	e := &CatalogEntry{
		Title:        "Dune",
		Author:       "Frank Herbert",
		Description:  "A desert planet.",
		PrimaryGenre: "Science Fiction",
		Themes:       []string{"power", "ecology"},
		Pacing:       PacingSlowBurn,
	}

	text := BuildEmbeddingText(e)
	assert.Contains(t, text, "Dune")
	assert.Contains(t, text, "by Frank Herbert")
	assert.Contains(t, text, "power")
	assert.Contains(t, text, "slow-burn")
	assert.NotContains(t, text, ". . ")
}

func TestGapMerge_FillsOnlyEmptyFields(t *testing.T) {
	existing := NewMinimalEntry("Circe", "Madeline Miller", nil)
	existing.Description = "Original description"

	merged, patch := GapMerge(existing, &PartialBook{
		Description:  "Replacement description",
		CoverImage:   "https://covers.example/circe.jpg",
		Rating:       4.3,
		RatingsCount: 900,
		RatingSource: "google",
	})

	require.False(t, patch.IsEmpty())
	assert.Nil(t, patch.Description)
	assert.Equal(t, "Original description", merged.Description)
	assert.Equal(t, "https://covers.example/circe.jpg", merged.CoverImage)
	assert.InDelta(t, 4.3, merged.Rating, 0.0001)
	assert.Equal(t, 900, merged.RatingsCount)
	assert.Equal(t, "google", merged.RatingSource)

	// The input entry is not modified.
	assert.Empty(t, existing.CoverImage)
}

func TestGapMerge_NeverRegresses(t *testing.T) {
	existing := NewMinimalEntry("Circe", "Madeline Miller", &PartialBook{
		CoverImage: "https://covers.example/a.jpg",
		Rating:     4.1,
		PageCount:  400,
	})

	merged, patch := GapMerge(existing, &PartialBook{})
	assert.True(t, patch.IsEmpty())
	assert.Equal(t, existing.CoverImage, merged.CoverImage)
	assert.InDelta(t, existing.Rating, merged.Rating, 0.0001)
	assert.Equal(t, existing.PageCount, merged.PageCount)

	_, patch = GapMerge(existing, nil)
	assert.True(t, patch.IsEmpty())
}

func TestPartialBook_FillFrom(t *testing.T) {
	p := &PartialBook{CoverImage: "a"}
	changed := p.FillFrom(&PartialBook{CoverImage: "b", Rating: 3.9, RatingSource: "openlibrary"})

	assert.True(t, changed)
	assert.Equal(t, "a", p.CoverImage)
	assert.InDelta(t, 3.9, p.Rating, 0.0001)
	assert.Equal(t, "openlibrary", p.RatingSource)
	assert.False(t, p.FillFrom(&PartialBook{CoverImage: "c"}))
}

func TestCatalogEntry_DisplayFillsRecommendation(t *testing.T) {
	e := NewMinimalEntry("Circe", "Madeline Miller", &PartialBook{
		CoverImage:   "https://img.example.com/circe.jpg",
		Rating:       4.3,
		RatingSource: "Google Books",
		PageCount:    393,
	})

	display := &PartialBook{Rating: 4.0}
	assert.True(t, display.FillFrom(e.Display()))
	assert.Equal(t, "https://img.example.com/circe.jpg", display.CoverImage)
	assert.InDelta(t, 4.0, display.Rating, 1e-9)
	assert.Equal(t, 393, display.PageCount)
}

func TestNormalizePacing(t *testing.T) {
	assert.Equal(t, PacingFast, NormalizePacing("fast"))
	assert.Equal(t, PacingSlowBurn, NormalizePacing("slow"))
	assert.Equal(t, Pacing(""), NormalizePacing("glacial"))
}
