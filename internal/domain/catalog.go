package domain

import (
	"strings"
	"time"
)

// ReviewThreshold is the confidence below which an entry is flagged for human review.
const ReviewThreshold = 0.7

// Tier is the highest enrichment tier fully populated on a catalog entry.
type Tier int

// Enrichment tiers, each a superset of the one before.
const (
	TierEssential Tier = 1
	TierImportant Tier = 2
	TierEnhanced  Tier = 3
	TierReference Tier = 4
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t >= TierEssential && t <= TierReference
}

// ExtractionSource records how a catalog entry was produced.
type ExtractionSource string

// Provenance tags for catalog entries.
const (
	SourceRecommendation   ExtractionSource = "perplexity-recommendation"
	SourceEnrichment       ExtractionSource = "perplexity-enrichment"
	SourceBatch            ExtractionSource = "perplexity-batch"
	SourceTier3            ExtractionSource = "tier3-enrichment"
	SourceHydrationOnly    ExtractionSource = "hydration-only"
	SourceExtractionFailed ExtractionSource = "extraction-failed"
	SourceBatchFailed      ExtractionSource = "batch-extraction-failed"
)

// Failed reports whether the entry came from a fallback path.
func (s ExtractionSource) Failed() bool {
	return s == SourceExtractionFailed || s == SourceBatchFailed
}

// Counter names a popularity counter on a catalog entry.
type Counter string

// Catalog counters.
const (
	CounterRecommended Counter = "times_recommended"
	CounterSaved       Counter = "times_saved"
)

// CatalogEntry is the shared record for one (title, author) pair.
//
// All tier fields are optional. EnrichmentTier says which of them are
// guaranteed to be populated.
type CatalogEntry struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastEnrichedAt *time.Time `json:"last_enriched_at,omitempty"`

	CatalogKey string `json:"catalog_key"`
	Title      string `json:"title"`
	Author     string `json:"author"`

	// Tier 1.
	PrimaryGenre      string   `json:"primary_genre"`
	FictionNonfiction string   `json:"fiction_nonfiction"`
	Description       string   `json:"description"`
	Themes            []string `json:"themes"`
	Pacing            Pacing   `json:"pacing"`
	Tone              []string `json:"tone"`
	MoodEmotions      []string `json:"mood_emotions"`

	// Display data, usually supplied by external lookups.
	CoverImage   string  `json:"cover_image,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	RatingsCount int     `json:"ratings_count,omitempty"`
	RatingSource string  `json:"rating_source,omitempty"`

	// Tier 2.
	Subgenres            []string              `json:"subgenres,omitempty"`
	Tropes               []string              `json:"tropes,omitempty"`
	Characterization     Characterization      `json:"characterization,omitempty"`
	WritingStyle         []string              `json:"writing_style,omitempty"`
	ProtagonistTypes     []string              `json:"protagonist_types,omitempty"`
	ContentWarnings      []ContentWarning      `json:"content_warnings,omitempty"`
	EmotionalImpact      EmotionalImpact       `json:"emotional_impact,omitempty"`
	Setting              *Setting              `json:"setting,omitempty"`
	TargetAgeGroup       AgeGroup              `json:"target_age_group,omitempty"`
	RelationshipDynamics *RelationshipDynamics `json:"relationship_dynamics,omitempty"`
	ReaderNeed           string                `json:"reader_need,omitempty"`

	// Tier 3.
	StorylineStructure   []string             `json:"storyline_structure,omitempty"`
	CharacterDevelopment CharacterDevelopment `json:"character_development,omitempty"`
	RelationshipFocus    []string             `json:"relationship_focus,omitempty"`
	Representation       *Representation      `json:"representation,omitempty"`
	EndingType           EndingType           `json:"ending_type,omitempty"`
	BestReadWhen         []string             `json:"best_read_when,omitempty"`
	ReadingDifficulty    ReadingDifficulty    `json:"reading_difficulty,omitempty"`
	PositiveContentNotes []string             `json:"positive_content_notes,omitempty"`

	// Tier 4.
	Awards             []string `json:"awards,omitempty"`
	ComparableBooks    []string `json:"comparable_books,omitempty"`
	ISBN               string   `json:"isbn,omitempty"`
	PageCount          int      `json:"page_count,omitempty"`
	FirstPublishedYear int      `json:"first_published_year,omitempty"`
	SeriesName         string   `json:"series_name,omitempty"`
	SeriesPosition     float64  `json:"series_position,omitempty"`

	// System fields.
	EnrichmentTier   Tier             `json:"enrichment_tier"`
	ExtractionSource ExtractionSource `json:"extraction_source"`
	ConfidenceScore  float64          `json:"confidence_score"`
	NeedsReview      bool             `json:"needs_review"`
	EmbeddingText    string           `json:"embedding_text,omitempty"`
	TimesRecommended int              `json:"times_recommended"`
	TimesSaved       int              `json:"times_saved"`
}

// ContentWarning flags sensitive material in a book.
type ContentWarning struct {
	Category  string    `json:"category"`
	Intensity Intensity `json:"intensity"`
	Note      string    `json:"notes,omitempty"`
}

// Setting describes where and when a story takes place.
type Setting struct {
	TimePeriod      string            `json:"time_period,omitempty"`
	LocationType    string            `json:"location_type,omitempty"`
	RealOrFictional RealOrFictional   `json:"real_or_fictional,omitempty"`
	Importance      SettingImportance `json:"importance,omitempty"`
}

// RelationshipDynamics summarizes the relationships in a story.
type RelationshipDynamics struct {
	Romantic  string `json:"romantic,omitempty"`
	Platonic  string `json:"platonic,omitempty"`
	Familial  string `json:"familial,omitempty"`
	Rivalries string `json:"rivalries,omitempty"`
}

// Representation holds identity and diversity notes taken from the text.
type Representation struct {
	ProtagonistIdentities []string `json:"protagonist_identities,omitempty"`
	DiversityNotes        []string `json:"diversity_notes,omitempty"`
}

// MakeCatalogKey returns the canonical catalog key for a (title, author) pair.
// Every code path that addresses the catalog goes through this function.
func MakeCatalogKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(author))
}

// NeedsReviewFor reports whether an entry with the given confidence must be reviewed.
func NeedsReviewFor(confidence float64) bool {
	return confidence < ReviewThreshold
}

// MinimalConfidence is the confidence of an entry built without extraction.
const MinimalConfidence = 0.5

// SetConfidence records c and flags the entry for review when c is below
// ReviewThreshold.
func (e *CatalogEntry) SetConfidence(c float64) {
	e.ConfidenceScore = c
	e.NeedsReview = NeedsReviewFor(c)
}

// NewMinimalEntry builds a tier-1 entry from whatever is already known.
// Missing fields fall back to neutral defaults.
func NewMinimalEntry(title, author string, partial *PartialBook) *CatalogEntry {
	now := time.Now().UTC()
	e := &CatalogEntry{
		CreatedAt:         now,
		UpdatedAt:         now,
		CatalogKey:        MakeCatalogKey(title, author),
		Title:             title,
		Author:            author,
		PrimaryGenre:      "Unknown",
		FictionNonfiction: "fiction",
		Themes:            []string{},
		Pacing:            PacingModerate,
		Tone:              []string{},
		MoodEmotions:      []string{},
		EnrichmentTier:    TierEssential,
		ExtractionSource:  SourceRecommendation,
	}
	e.SetConfidence(MinimalConfidence)
	if partial != nil {
		e.Description = partial.Description
		e.CoverImage = partial.CoverImage
		e.Rating = partial.Rating
		e.RatingsCount = partial.RatingsCount
		e.RatingSource = partial.RatingSource
		e.PageCount = partial.PageCount
	}
	return e
}

// Clone returns a copy of e that shares no slices or nested values.
func (e *CatalogEntry) Clone() *CatalogEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Themes = cloneStrings(e.Themes)
	c.Tone = cloneStrings(e.Tone)
	c.MoodEmotions = cloneStrings(e.MoodEmotions)
	c.Subgenres = cloneStrings(e.Subgenres)
	c.Tropes = cloneStrings(e.Tropes)
	c.WritingStyle = cloneStrings(e.WritingStyle)
	c.ProtagonistTypes = cloneStrings(e.ProtagonistTypes)
	c.StorylineStructure = cloneStrings(e.StorylineStructure)
	c.RelationshipFocus = cloneStrings(e.RelationshipFocus)
	c.BestReadWhen = cloneStrings(e.BestReadWhen)
	c.PositiveContentNotes = cloneStrings(e.PositiveContentNotes)
	c.Awards = cloneStrings(e.Awards)
	c.ComparableBooks = cloneStrings(e.ComparableBooks)
	if e.ContentWarnings != nil {
		c.ContentWarnings = append([]ContentWarning(nil), e.ContentWarnings...)
	}
	if e.Setting != nil {
		s := *e.Setting
		c.Setting = &s
	}
	if e.RelationshipDynamics != nil {
		r := *e.RelationshipDynamics
		c.RelationshipDynamics = &r
	}
	if e.Representation != nil {
		r := Representation{
			ProtagonistIdentities: cloneStrings(e.Representation.ProtagonistIdentities),
			DiversityNotes:        cloneStrings(e.Representation.DiversityNotes),
		}
		c.Representation = &r
	}
	if e.LastEnrichedAt != nil {
		t := *e.LastEnrichedAt
		c.LastEnrichedAt = &t
	}
	return &c
}

// BuildEmbeddingText joins the richest descriptive fields into one string
// for a future semantic index. Empty parts are skipped.
func BuildEmbeddingText(e *CatalogEntry) string {
	parts := make([]string, 0, 32)
	add := func(values ...string) {
		for _, v := range values {
			if v != "" {
				parts = append(parts, v)
			}
		}
	}

	add(e.Title)
	if e.Author != "" {
		add("by " + e.Author)
	}
	add(e.Description, e.PrimaryGenre)
	add(e.Themes...)
	add(e.Tone...)
	add(e.MoodEmotions...)
	add(e.Tropes...)
	add(e.Subgenres...)
	add(string(e.Pacing))
	add(e.ProtagonistTypes...)
	add(e.WritingStyle...)
	add(e.RelationshipFocus...)
	add(e.BestReadWhen...)

	return strings.Join(parts, ". ")
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
