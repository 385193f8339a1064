// Package domain contains the core entities of the novelly book catalog:
// catalog entries, hydrated books, library items and recommendation history.
package domain

import "strings"

// UnknownAuthor stands in when a recommendation names no author.
const UnknownAuthor = "Unknown"

// BookStatus is a reader's relationship to a book.
type BookStatus string

// BookStatus values.
const (
	StatusTBR         BookStatus = "tbr"
	StatusReading     BookStatus = "reading"
	StatusRead        BookStatus = "read"
	StatusDNF         BookStatus = "dnf"
	StatusRecommended BookStatus = "recommended"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	switch s {
	case StatusTBR, StatusReading, StatusRead, StatusDNF, StatusRecommended:
		return true
	}
	return false
}

// RawRecommendation is a suggestion as a language model returned it,
// before any catalog or lookup data has been attached.
type RawRecommendation struct {
	Title                string                `json:"title"`
	Author               string                `json:"author"`
	Genre                string                `json:"genre,omitempty"`
	Description          string                `json:"description,omitempty"`
	CoverImage           string                `json:"cover_image,omitempty"`
	Tropes               []string              `json:"tropes,omitempty"`
	Themes               []string              `json:"themes,omitempty"`
	Microthemes          []string              `json:"microthemes,omitempty"`
	RelationshipDynamics *RelationshipDynamics `json:"relationship_dynamics,omitempty"`
	Pacing               string                `json:"pacing,omitempty"`
	ReaderNeed           string                `json:"reader_need,omitempty"`
	MatchReasoning       string                `json:"match_reasoning,omitempty"`
	ConfidenceScore      float64               `json:"confidence_score,omitempty"`
	Rating               float64               `json:"rating,omitempty"`
	RatingsCount         int                   `json:"ratings_count,omitempty"`
	RatingSource         string                `json:"rating_source,omitempty"`
	TotalPages           int                   `json:"total_pages,omitempty"`
}

// AuthorOrUnknown returns the author, or UnknownAuthor when blank.
func (r RawRecommendation) AuthorOrUnknown() string {
	if strings.TrimSpace(r.Author) == "" {
		return UnknownAuthor
	}
	return r.Author
}

// CatalogKey returns the catalog key for the recommendation.
func (r RawRecommendation) CatalogKey() string {
	return MakeCatalogKey(r.Title, r.AuthorOrUnknown())
}

// Partial returns the display fields the recommendation already carries.
func (r RawRecommendation) Partial() *PartialBook {
	return &PartialBook{
		Title:        r.Title,
		Author:       r.Author,
		Description:  r.Description,
		CoverImage:   r.CoverImage,
		Rating:       r.Rating,
		RatingsCount: r.RatingsCount,
		RatingSource: r.RatingSource,
		PageCount:    r.TotalPages,
	}
}

// Book is the client-facing book model: a raw recommendation or saved book
// with catalog metadata overlaid.
type Book struct {
	ID                   string                `json:"id,omitempty"`
	Title                string                `json:"title"`
	Author               string                `json:"author"`
	Description          string                `json:"description"`
	CoverImage           string                `json:"cover_image,omitempty"`
	Status               BookStatus            `json:"status"`
	Tropes               []string              `json:"tropes"`
	Themes               []string              `json:"themes"`
	Microthemes          []string              `json:"microthemes"`
	RelationshipDynamics *RelationshipDynamics `json:"relationship_dynamics"`
	Pacing               string                `json:"pacing,omitempty"`
	ReaderNeed           string                `json:"reader_need,omitempty"`
	Rating               float64               `json:"rating"`
	RatingsCount         int                   `json:"ratings_count"`
	RatingSource         string                `json:"rating_source,omitempty"`
	TotalPages           int                   `json:"total_pages,omitempty"`
	MatchReasoning       string                `json:"match_reasoning,omitempty"`
	ConfidenceScore      float64               `json:"confidence_score,omitempty"`
	Progress             int                   `json:"progress,omitempty"`
	Metadata             *BookMetadata         `json:"metadata,omitempty"`
}

// BookMetadata is the catalog view exposed alongside a display book.
type BookMetadata struct {
	CatalogKey           string               `json:"catalog_key"`
	PrimaryGenre         string               `json:"primary_genre,omitempty"`
	FictionNonfiction    string               `json:"fiction_nonfiction,omitempty"`
	Tone                 []string             `json:"tone,omitempty"`
	MoodEmotions         []string             `json:"mood_emotions,omitempty"`
	Subgenres            []string             `json:"subgenres,omitempty"`
	Characterization     Characterization     `json:"characterization,omitempty"`
	WritingStyle         []string             `json:"writing_style,omitempty"`
	ProtagonistTypes     []string             `json:"protagonist_types,omitempty"`
	ContentWarnings      []ContentWarning     `json:"content_warnings,omitempty"`
	EmotionalImpact      EmotionalImpact      `json:"emotional_impact,omitempty"`
	Setting              *Setting             `json:"setting,omitempty"`
	TargetAgeGroup       AgeGroup             `json:"target_age_group,omitempty"`
	EnrichmentTier       Tier                 `json:"enrichment_tier"`
	StorylineStructure   []string             `json:"storyline_structure,omitempty"`
	EndingType           EndingType           `json:"ending_type,omitempty"`
	BestReadWhen         []string             `json:"best_read_when,omitempty"`
	ReadingDifficulty    ReadingDifficulty    `json:"reading_difficulty,omitempty"`
	RelationshipFocus    []string             `json:"relationship_focus,omitempty"`
	PositiveContentNotes []string             `json:"positive_content_notes,omitempty"`
	ComparableBooks      []string             `json:"comparable_books,omitempty"`
	CharacterDevelopment CharacterDevelopment `json:"character_development,omitempty"`
}

// MetadataFrom projects the catalog fields shown alongside a book.
func MetadataFrom(e *CatalogEntry) *BookMetadata {
	return &BookMetadata{
		CatalogKey:           e.CatalogKey,
		PrimaryGenre:         e.PrimaryGenre,
		FictionNonfiction:    e.FictionNonfiction,
		Tone:                 e.Tone,
		MoodEmotions:         e.MoodEmotions,
		Subgenres:            e.Subgenres,
		Characterization:     e.Characterization,
		WritingStyle:         e.WritingStyle,
		ProtagonistTypes:     e.ProtagonistTypes,
		ContentWarnings:      e.ContentWarnings,
		EmotionalImpact:      e.EmotionalImpact,
		Setting:              e.Setting,
		TargetAgeGroup:       e.TargetAgeGroup,
		EnrichmentTier:       e.EnrichmentTier,
		StorylineStructure:   e.StorylineStructure,
		EndingType:           e.EndingType,
		BestReadWhen:         e.BestReadWhen,
		ReadingDifficulty:    e.ReadingDifficulty,
		RelationshipFocus:    e.RelationshipFocus,
		PositiveContentNotes: e.PositiveContentNotes,
		ComparableBooks:      e.ComparableBooks,
		CharacterDevelopment: e.CharacterDevelopment,
	}
}

// NewBookFromRaw builds a display book from the raw fields alone.
// Array fields are never nil and the status is recommended.
func NewBookFromRaw(r RawRecommendation) Book {
	return Book{
		Title:                strings.TrimSpace(r.Title),
		Author:               strings.TrimSpace(r.Author),
		Description:          r.Description,
		CoverImage:           r.CoverImage,
		Status:               StatusRecommended,
		Tropes:               cloneOrEmpty(r.Tropes),
		Themes:               cloneOrEmpty(r.Themes),
		Microthemes:          cloneOrEmpty(r.Microthemes),
		RelationshipDynamics: orEmptyDynamics(r.RelationshipDynamics),
		Pacing:               r.Pacing,
		ReaderNeed:           r.ReaderNeed,
		Rating:               r.Rating,
		RatingsCount:         r.RatingsCount,
		RatingSource:         r.RatingSource,
		TotalPages:           r.TotalPages,
		MatchReasoning:       r.MatchReasoning,
		ConfidenceScore:      r.ConfidenceScore,
	}
}

// MergeWithCatalog overlays catalog metadata onto a raw recommendation.
// Values the recommendation carries for display data win; catalog
// classification (tropes, themes, moods, pacing) wins over the raw guesses.
func MergeWithCatalog(r RawRecommendation, e *CatalogEntry) Book {
	b := NewBookFromRaw(r)
	if e == nil {
		return b
	}
	if b.Title == "" {
		b.Title = e.Title
	}
	if b.Author == "" {
		b.Author = e.Author
	}
	if b.Description == "" {
		b.Description = e.Description
	}
	if b.CoverImage == "" {
		b.CoverImage = e.CoverImage
	}
	if len(e.Tropes) > 0 {
		b.Tropes = cloneStrings(e.Tropes)
	}
	if len(e.Themes) > 0 {
		b.Themes = cloneStrings(e.Themes)
	}
	if len(e.MoodEmotions) > 0 {
		b.Microthemes = cloneStrings(e.MoodEmotions)
	}
	if e.RelationshipDynamics != nil {
		rd := *e.RelationshipDynamics
		b.RelationshipDynamics = &rd
	}
	if e.Pacing != "" {
		b.Pacing = string(e.Pacing)
	}
	if e.ReaderNeed != "" {
		b.ReaderNeed = e.ReaderNeed
	}
	if b.Rating == 0 {
		b.Rating = e.Rating
	}
	if b.RatingsCount == 0 {
		b.RatingsCount = e.RatingsCount
	}
	if b.RatingSource == "" {
		b.RatingSource = e.RatingSource
	}
	if b.TotalPages == 0 {
		b.TotalPages = e.PageCount
	}
	b.ID = e.CatalogKey
	b.Metadata = MetadataFrom(e)
	return b
}

func cloneOrEmpty(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return cloneStrings(s)
}

func orEmptyDynamics(rd *RelationshipDynamics) *RelationshipDynamics {
	if rd == nil {
		return &RelationshipDynamics{}
	}
	c := *rd
	return &c
}
