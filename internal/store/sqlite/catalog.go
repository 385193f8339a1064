package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/store"
)

// catalogColumns is the ordered list of columns in catalog queries.
// Must match catalogRecord.args and scanCatalog.
const catalogColumns = `catalog_key, title, author,
	primary_genre, fiction_nonfiction, description, themes, pacing, tone, mood_emotions,
	cover_image, rating, ratings_count, rating_source,
	subgenres, tropes, characterization, writing_style, protagonist_types,
	content_warnings, emotional_impact, setting, target_age_group,
	relationship_dynamics, reader_need,
	storyline_structure, character_development, relationship_focus, representation,
	ending_type, best_read_when, reading_difficulty, positive_content_notes,
	awards, comparable_books, isbn, page_count, first_published_year,
	series_name, series_position,
	enrichment_tier, extraction_source, confidence_score, needs_review,
	embedding_text, times_recommended, times_saved,
	created_at, updated_at, last_enriched_at`

// extractedColumns hold model output. On conflict they are replaced only by
// a write of the same or a higher tier, so a late tier-2 upsert cannot
// blank the fields of a tier-3 row.
var extractedColumns = []string{
	"title", "author",
	"primary_genre", "fiction_nonfiction", "themes", "pacing", "tone", "mood_emotions",
	"subgenres", "tropes", "characterization", "writing_style", "protagonist_types",
	"content_warnings", "emotional_impact", "setting", "target_age_group",
	"relationship_dynamics", "reader_need",
	"storyline_structure", "character_development", "relationship_focus", "representation",
	"ending_type", "best_read_when", "reading_difficulty", "positive_content_notes",
	"awards", "comparable_books", "isbn", "first_published_year",
	"series_name", "series_position",
	"extraction_source", "confidence_score", "needs_review", "embedding_text",
}

// catalogUpsertSet is applied when an insert collides on catalog_key.
// Counters and created_at stay with the existing row, the tier never moves
// backwards and display data is only gap-filled.
var catalogUpsertSet = buildUpsertSet()

func buildUpsertSet() string {
	const notLower = "excluded.enrichment_tier >= catalog_entries.enrichment_tier"

	var b strings.Builder
	for _, c := range extractedColumns {
		fmt.Fprintf(&b, "%s = CASE WHEN %s THEN excluded.%s ELSE catalog_entries.%s END,\n", c, notLower, c, c)
	}
	fmt.Fprintf(&b, `description = CASE
		WHEN %s AND excluded.description <> '' THEN excluded.description
		ELSE COALESCE(NULLIF(catalog_entries.description, ''), excluded.description) END,
`, notLower)
	b.WriteString(`cover_image = COALESCE(NULLIF(catalog_entries.cover_image, ''), excluded.cover_image),
	rating_source = CASE WHEN catalog_entries.rating > 0 THEN catalog_entries.rating_source ELSE excluded.rating_source END,
	rating = CASE WHEN catalog_entries.rating > 0 THEN catalog_entries.rating ELSE excluded.rating END,
	ratings_count = CASE WHEN catalog_entries.ratings_count > 0 THEN catalog_entries.ratings_count ELSE excluded.ratings_count END,
	page_count = CASE WHEN catalog_entries.page_count > 0 THEN catalog_entries.page_count ELSE excluded.page_count END,
	enrichment_tier = MAX(catalog_entries.enrichment_tier, excluded.enrichment_tier),
	updated_at = excluded.updated_at,
	last_enriched_at = COALESCE(excluded.last_enriched_at, catalog_entries.last_enriched_at)`)
	return b.String()
}

// catalogRecord is the column-level projection of a catalog entry.
// List and object fields are held as JSON text.
type catalogRecord struct {
	CatalogKey, Title, Author string

	PrimaryGenre, FictionNonfiction, Description string
	Themes, Pacing, Tone, MoodEmotions           string

	CoverImage   string
	Rating       float64
	RatingsCount int
	RatingSource string

	Subgenres, Tropes, Characterization, WritingStyle, ProtagonistTypes string
	ContentWarnings, EmotionalImpact                                    string
	Setting                                                             sql.NullString
	TargetAgeGroup                                                      string
	RelationshipDynamics                                                sql.NullString
	ReaderNeed                                                          string

	StorylineStructure, CharacterDevelopment, RelationshipFocus string
	Representation                                              sql.NullString
	EndingType, BestReadWhen, ReadingDifficulty                 string
	PositiveContentNotes                                        string

	Awards, ComparableBooks, ISBN string
	PageCount, FirstPublished     int
	SeriesName                    string
	SeriesPosition                float64

	Tier             int
	ExtractionSource string
	Confidence       float64
	NeedsReview      int
	EmbeddingText    string
	TimesRecommended int
	TimesSaved       int

	CreatedAt, UpdatedAt string
	LastEnrichedAt       sql.NullString
}

func (r *catalogRecord) args() []any {
	return []any{
		r.CatalogKey, r.Title, r.Author,
		r.PrimaryGenre, r.FictionNonfiction, r.Description, r.Themes, r.Pacing, r.Tone, r.MoodEmotions,
		r.CoverImage, r.Rating, r.RatingsCount, r.RatingSource,
		r.Subgenres, r.Tropes, r.Characterization, r.WritingStyle, r.ProtagonistTypes,
		r.ContentWarnings, r.EmotionalImpact, r.Setting, r.TargetAgeGroup,
		r.RelationshipDynamics, r.ReaderNeed,
		r.StorylineStructure, r.CharacterDevelopment, r.RelationshipFocus, r.Representation,
		r.EndingType, r.BestReadWhen, r.ReadingDifficulty, r.PositiveContentNotes,
		r.Awards, r.ComparableBooks, r.ISBN, r.PageCount, r.FirstPublished,
		r.SeriesName, r.SeriesPosition,
		r.Tier, r.ExtractionSource, r.Confidence, r.NeedsReview,
		r.EmbeddingText, r.TimesRecommended, r.TimesSaved,
		r.CreatedAt, r.UpdatedAt, r.LastEnrichedAt,
	}
}

func (r *catalogRecord) dest() []any {
	return []any{
		&r.CatalogKey, &r.Title, &r.Author,
		&r.PrimaryGenre, &r.FictionNonfiction, &r.Description, &r.Themes, &r.Pacing, &r.Tone, &r.MoodEmotions,
		&r.CoverImage, &r.Rating, &r.RatingsCount, &r.RatingSource,
		&r.Subgenres, &r.Tropes, &r.Characterization, &r.WritingStyle, &r.ProtagonistTypes,
		&r.ContentWarnings, &r.EmotionalImpact, &r.Setting, &r.TargetAgeGroup,
		&r.RelationshipDynamics, &r.ReaderNeed,
		&r.StorylineStructure, &r.CharacterDevelopment, &r.RelationshipFocus, &r.Representation,
		&r.EndingType, &r.BestReadWhen, &r.ReadingDifficulty, &r.PositiveContentNotes,
		&r.Awards, &r.ComparableBooks, &r.ISBN, &r.PageCount, &r.FirstPublished,
		&r.SeriesName, &r.SeriesPosition,
		&r.Tier, &r.ExtractionSource, &r.Confidence, &r.NeedsReview,
		&r.EmbeddingText, &r.TimesRecommended, &r.TimesSaved,
		&r.CreatedAt, &r.UpdatedAt, &r.LastEnrichedAt,
	}
}

// toRecord flattens a catalog entry into column values.
func toRecord(e *domain.CatalogEntry) (*catalogRecord, error) {
	r := &catalogRecord{
		CatalogKey:           e.CatalogKey,
		Title:                e.Title,
		Author:               e.Author,
		PrimaryGenre:         e.PrimaryGenre,
		FictionNonfiction:    e.FictionNonfiction,
		Description:          e.Description,
		Pacing:               string(e.Pacing),
		CoverImage:           e.CoverImage,
		Rating:               e.Rating,
		RatingsCount:         e.RatingsCount,
		RatingSource:         e.RatingSource,
		Characterization:     string(e.Characterization),
		EmotionalImpact:      string(e.EmotionalImpact),
		TargetAgeGroup:       string(e.TargetAgeGroup),
		ReaderNeed:           e.ReaderNeed,
		CharacterDevelopment: string(e.CharacterDevelopment),
		EndingType:           string(e.EndingType),
		ReadingDifficulty:    string(e.ReadingDifficulty),
		ISBN:                 e.ISBN,
		PageCount:            e.PageCount,
		FirstPublished:       e.FirstPublishedYear,
		SeriesName:           e.SeriesName,
		SeriesPosition:       e.SeriesPosition,
		Tier:                 int(e.EnrichmentTier),
		ExtractionSource:     string(e.ExtractionSource),
		Confidence:           e.ConfidenceScore,
		NeedsReview:          boolToInt(e.NeedsReview),
		EmbeddingText:        e.EmbeddingText,
		TimesRecommended:     e.TimesRecommended,
		TimesSaved:           e.TimesSaved,
		CreatedAt:            formatTime(e.CreatedAt),
		UpdatedAt:            formatTime(e.UpdatedAt),
		LastEnrichedAt:       nullTimeString(e.LastEnrichedAt),
	}

	lists := []struct {
		dst *string
		src []string
	}{
		{&r.Themes, e.Themes},
		{&r.Tone, e.Tone},
		{&r.MoodEmotions, e.MoodEmotions},
		{&r.Subgenres, e.Subgenres},
		{&r.Tropes, e.Tropes},
		{&r.WritingStyle, e.WritingStyle},
		{&r.ProtagonistTypes, e.ProtagonistTypes},
		{&r.StorylineStructure, e.StorylineStructure},
		{&r.RelationshipFocus, e.RelationshipFocus},
		{&r.BestReadWhen, e.BestReadWhen},
		{&r.PositiveContentNotes, e.PositiveContentNotes},
		{&r.Awards, e.Awards},
		{&r.ComparableBooks, e.ComparableBooks},
	}
	for _, l := range lists {
		s, err := encodeList(l.src)
		if err != nil {
			return nil, fmt.Errorf("encode list: %w", err)
		}
		*l.dst = s
	}

	warnings := e.ContentWarnings
	if warnings == nil {
		warnings = []domain.ContentWarning{}
	}
	b, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("encode content warnings: %w", err)
	}
	r.ContentWarnings = string(b)

	if r.Setting, err = encodeObject(e.Setting); err != nil {
		return nil, fmt.Errorf("encode setting: %w", err)
	}
	if r.RelationshipDynamics, err = encodeObject(e.RelationshipDynamics); err != nil {
		return nil, fmt.Errorf("encode relationship dynamics: %w", err)
	}
	if r.Representation, err = encodeObject(e.Representation); err != nil {
		return nil, fmt.Errorf("encode representation: %w", err)
	}
	if r.CreatedAt == formatTime(time.Time{}) {
		r.CreatedAt = formatTime(time.Now())
	}
	if r.UpdatedAt == formatTime(time.Time{}) {
		r.UpdatedAt = r.CreatedAt
	}
	return r, nil
}

// fromRecord rebuilds a catalog entry from column values.
func fromRecord(r *catalogRecord) (*domain.CatalogEntry, error) {
	e := &domain.CatalogEntry{
		CatalogKey:           r.CatalogKey,
		Title:                r.Title,
		Author:               r.Author,
		PrimaryGenre:         r.PrimaryGenre,
		FictionNonfiction:    r.FictionNonfiction,
		Description:          r.Description,
		Pacing:               domain.Pacing(r.Pacing),
		CoverImage:           r.CoverImage,
		Rating:               r.Rating,
		RatingsCount:         r.RatingsCount,
		RatingSource:         r.RatingSource,
		Characterization:     domain.Characterization(r.Characterization),
		EmotionalImpact:      domain.EmotionalImpact(r.EmotionalImpact),
		TargetAgeGroup:       domain.AgeGroup(r.TargetAgeGroup),
		ReaderNeed:           r.ReaderNeed,
		CharacterDevelopment: domain.CharacterDevelopment(r.CharacterDevelopment),
		EndingType:           domain.EndingType(r.EndingType),
		ReadingDifficulty:    domain.ReadingDifficulty(r.ReadingDifficulty),
		ISBN:                 r.ISBN,
		PageCount:            r.PageCount,
		FirstPublishedYear:   r.FirstPublished,
		SeriesName:           r.SeriesName,
		SeriesPosition:       r.SeriesPosition,
		EnrichmentTier:       domain.Tier(r.Tier),
		ExtractionSource:     domain.ExtractionSource(r.ExtractionSource),
		ConfidenceScore:      r.Confidence,
		NeedsReview:          r.NeedsReview != 0,
		EmbeddingText:        r.EmbeddingText,
		TimesRecommended:     r.TimesRecommended,
		TimesSaved:           r.TimesSaved,
	}

	var err error
	if e.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	if e.LastEnrichedAt, err = parseNullableTime(r.LastEnrichedAt); err != nil {
		return nil, err
	}

	lists := []struct {
		dst *[]string
		src string
	}{
		{&e.Themes, r.Themes},
		{&e.Tone, r.Tone},
		{&e.MoodEmotions, r.MoodEmotions},
		{&e.Subgenres, r.Subgenres},
		{&e.Tropes, r.Tropes},
		{&e.WritingStyle, r.WritingStyle},
		{&e.ProtagonistTypes, r.ProtagonistTypes},
		{&e.StorylineStructure, r.StorylineStructure},
		{&e.RelationshipFocus, r.RelationshipFocus},
		{&e.BestReadWhen, r.BestReadWhen},
		{&e.PositiveContentNotes, r.PositiveContentNotes},
		{&e.Awards, r.Awards},
		{&e.ComparableBooks, r.ComparableBooks},
	}
	for _, l := range lists {
		v, err := decodeList(l.src)
		if err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		*l.dst = v
	}
	// Tier-1 lists are always present.
	for _, p := range []*[]string{&e.Themes, &e.Tone, &e.MoodEmotions} {
		if *p == nil {
			*p = []string{}
		}
	}

	if r.ContentWarnings != "" && r.ContentWarnings != "[]" {
		if err := json.Unmarshal([]byte(r.ContentWarnings), &e.ContentWarnings); err != nil {
			return nil, fmt.Errorf("decode content warnings: %w", err)
		}
	}
	if e.Setting, err = decodeObject[domain.Setting](r.Setting); err != nil {
		return nil, fmt.Errorf("decode setting: %w", err)
	}
	if e.RelationshipDynamics, err = decodeObject[domain.RelationshipDynamics](r.RelationshipDynamics); err != nil {
		return nil, fmt.Errorf("decode relationship dynamics: %w", err)
	}
	if e.Representation, err = decodeObject[domain.Representation](r.Representation); err != nil {
		return nil, fmt.Errorf("decode representation: %w", err)
	}
	return e, nil
}

// scanCatalog scans a sql.Row (or sql.Rows via its Scan method) into a catalog entry.
func scanCatalog(scanner interface{ Scan(dest ...any) error }) (*domain.CatalogEntry, error) {
	var r catalogRecord
	if err := scanner.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return fromRecord(&r)
}

// GetByKey retrieves a catalog entry by its catalog key.
// Returns store.ErrNotFound if no entry has the key.
func (s *Store) GetByKey(ctx context.Context, key string) (*domain.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_entries WHERE catalog_key = ?`, key)

	e, err := scanCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return e, nil
}

// UpsertByKey inserts e or overwrites the existing row with the same key.
// Popularity counters on an existing row are preserved.
func (s *Store) UpsertByKey(ctx context.Context, e *domain.CatalogEntry) error {
	r, err := toRecord(e)
	if err != nil {
		return err
	}

	args := r.args()
	query := `INSERT INTO catalog_entries (` + catalogColumns + `) VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT(catalog_key) DO UPDATE SET ` + catalogUpsertSet

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert catalog entry: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update to the entry with the given key.
// Returns store.ErrNotFound if no entry has the key.
func (s *Store) UpdateFields(ctx context.Context, key string, patch domain.CatalogPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if patch.CoverImage != nil {
		add("cover_image", *patch.CoverImage)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Rating != nil {
		add("rating", *patch.Rating)
	}
	if patch.RatingsCount != nil {
		add("ratings_count", *patch.RatingsCount)
	}
	if patch.RatingSource != nil {
		add("rating_source", *patch.RatingSource)
	}
	if patch.PageCount != nil {
		add("page_count", *patch.PageCount)
	}
	if patch.TimesRecommended != nil {
		add("times_recommended", *patch.TimesRecommended)
	}
	if patch.TimesSaved != nil {
		add("times_saved", *patch.TimesSaved)
	}
	add("updated_at", formatTime(time.Now()))
	args = append(args, key)

	result, err := s.db.ExecContext(ctx,
		`UPDATE catalog_entries SET `+strings.Join(sets, ", ")+` WHERE catalog_key = ?`, args...)
	if err != nil {
		return fmt.Errorf("update catalog entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IncrementCounter atomically adds one to a popularity counter.
// Returns store.ErrNotFound if no entry has the key.
func (s *Store) IncrementCounter(ctx context.Context, key string, counter domain.Counter) error {
	var column string
	switch counter {
	case domain.CounterRecommended, domain.CounterSaved:
		column = string(counter)
	default:
		return store.ErrInvalidInput.WithMessage("unknown counter " + string(counter))
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE catalog_entries SET `+column+` = `+column+` + 1, updated_at = ? WHERE catalog_key = ?`,
		formatTime(time.Now()), key)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// QueryByFilters returns catalog entries matching every non-empty filter.
// Genre, pacing and age group match exactly (genre case-insensitively);
// moods, tropes and themes match when any value overlaps. Entries below
// domain.MinSearchConfidence are never returned. Results are ordered by
// popularity.
func (s *Store) QueryByFilters(ctx context.Context, f domain.CatalogFilters) ([]*domain.CatalogEntry, error) {
	where := []string{"confidence_score >= ?"}
	args := []any{domain.MinSearchConfidence}

	if len(f.Genres) > 0 {
		where = append(where, "primary_genre COLLATE NOCASE IN ("+placeholders(len(f.Genres))+")")
		for _, g := range f.Genres {
			args = append(args, g)
		}
	}
	overlap := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		where = append(where, `EXISTS (SELECT 1 FROM json_each(catalog_entries.`+column+
			`) WHERE json_each.value IN (`+placeholders(len(values))+`))`)
		for _, v := range values {
			args = append(args, v)
		}
	}
	overlap("mood_emotions", f.Moods)
	overlap("tropes", f.Tropes)
	overlap("themes", f.Themes)

	if f.Pacing != "" {
		where = append(where, "pacing = ?")
		args = append(args, string(f.Pacing))
	}
	if f.AgeGroup != "" {
		where = append(where, "target_age_group = ?")
		args = append(args, string(f.AgeGroup))
	}
	if f.MinRating > 0 {
		where = append(where, "rating >= ?")
		args = append(args, f.MinRating)
	}
	args = append(args, f.EffectiveLimit())

	query := `SELECT ` + catalogColumns + ` FROM catalog_entries
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY times_recommended DESC, confidence_score DESC, catalog_key
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []*domain.CatalogEntry
	for rows.Next() {
		e, err := scanCatalog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts over the catalog.
func (s *Store) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	stats := &domain.CatalogStats{ByTier: make(map[domain.Tier]int)}

	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(needs_review), 0),
			COALESCE(SUM(CASE WHEN extraction_source IN (?, ?) THEN 1 ELSE 0 END), 0)
		FROM catalog_entries`,
		string(domain.SourceExtractionFailed), string(domain.SourceBatchFailed),
	).Scan(&stats.Total, &stats.NeedsReview, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT enrichment_tier, COUNT(*) FROM catalog_entries GROUP BY enrichment_tier`)
	if err != nil {
		return nil, fmt.Errorf("count tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier, n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		stats.ByTier[domain.Tier(tier)] = n
	}
	return stats, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
