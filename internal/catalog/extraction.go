package catalog

import (
	"bytes"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/llm"
)

// defaultConfidence applies when the model omits its confidence.
const defaultConfidence = 0.7

// fallbackConfidence is recorded on entries built after a failed extraction.
const fallbackConfidence = 0.3

// stringList decodes either a JSON array of strings or a single string.
// Models occasionally answer a one-element list with a bare string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
		} else {
			*l = stringList{s}
		}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

func (l stringList) values() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// nullableString decodes JSON null, and the literal text "null", as empty.
type nullableString string

func (s *nullableString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(v), "null") {
		v = ""
	}
	*s = nullableString(strings.TrimSpace(v))
	return nil
}

type extractedWarning struct {
	Category  nullableString `json:"category"`
	Intensity nullableString `json:"intensity"`
	Notes     nullableString `json:"notes"`
}

type extractedSetting struct {
	TimePeriod      nullableString `json:"time_period"`
	LocationType    nullableString `json:"location_type"`
	RealOrFictional nullableString `json:"real_or_fictional"`
	Importance      nullableString `json:"importance"`
}

type extractedDynamics struct {
	Romantic  nullableString `json:"romantic"`
	Platonic  nullableString `json:"platonic"`
	Familial  nullableString `json:"familial"`
	Rivalries nullableString `json:"rivalries"`
}

// extractedBook is the tier 1+2 answer shape shared by single and batch extraction.
type extractedBook struct {
	Title             nullableString `json:"title"`
	Author            nullableString `json:"author"`
	PrimaryGenre      nullableString `json:"primary_genre"`
	FictionNonfiction nullableString `json:"fiction_nonfiction"`
	Description       nullableString `json:"description"`
	Themes            stringList     `json:"themes"`
	Pacing            nullableString `json:"pacing"`
	Tone              stringList     `json:"tone"`
	MoodEmotions      stringList     `json:"mood_emotions"`

	Subgenres            stringList         `json:"subgenres"`
	Tropes               stringList         `json:"tropes"`
	Characterization     nullableString     `json:"characterization"`
	WritingStyle         stringList         `json:"writing_style"`
	ProtagonistTypes     stringList         `json:"protagonist_types"`
	ContentWarnings      []extractedWarning `json:"content_warnings"`
	EmotionalImpact      nullableString     `json:"emotional_impact"`
	Setting              *extractedSetting  `json:"setting"`
	TargetAgeGroup       nullableString     `json:"target_age_group"`
	RelationshipDynamics *extractedDynamics `json:"relationship_dynamics"`
	ReaderNeed           nullableString     `json:"reader_need"`

	Confidence float64 `json:"confidence"`
}

func (x *extractedBook) confidence() float64 {
	if x.Confidence <= 0 || x.Confidence > 1 {
		return defaultConfidence
	}
	return x.Confidence
}

// toEntry builds a tier-2 entry. title and author are the caller's values so
// the catalog key never depends on how the model spelled them.
func (x *extractedBook) toEntry(title, author string, source domain.ExtractionSource) *domain.CatalogEntry {
	e := domain.NewMinimalEntry(title, author, nil)

	if v := string(x.PrimaryGenre); v != "" {
		e.PrimaryGenre = v
	}
	if v := strings.ToLower(string(x.FictionNonfiction)); v == "fiction" || v == "nonfiction" {
		e.FictionNonfiction = v
	}
	e.Description = string(x.Description)
	e.Themes = x.Themes.values()
	if p := domain.NormalizePacing(string(x.Pacing)); p != "" {
		e.Pacing = p
	}
	e.Tone = x.Tone.values()
	e.MoodEmotions = x.MoodEmotions.values()

	e.Subgenres = x.Subgenres.values()
	e.Tropes = x.Tropes.values()
	e.Characterization = domain.Characterization(x.Characterization)
	e.WritingStyle = x.WritingStyle.values()
	e.ProtagonistTypes = x.ProtagonistTypes.values()
	for _, w := range x.ContentWarnings {
		if w.Category == "" {
			continue
		}
		e.ContentWarnings = append(e.ContentWarnings, domain.ContentWarning{
			Category:  string(w.Category),
			Intensity: domain.Intensity(w.Intensity),
			Note:      string(w.Notes),
		})
	}
	e.EmotionalImpact = domain.EmotionalImpact(x.EmotionalImpact)
	if s := x.Setting; s != nil {
		setting := domain.Setting{
			TimePeriod:      string(s.TimePeriod),
			LocationType:    string(s.LocationType),
			RealOrFictional: domain.RealOrFictional(s.RealOrFictional),
			Importance:      domain.SettingImportance(s.Importance),
		}
		if setting != (domain.Setting{}) {
			e.Setting = &setting
		}
	}
	e.TargetAgeGroup = domain.AgeGroup(x.TargetAgeGroup)
	if d := x.RelationshipDynamics; d != nil {
		dyn := domain.RelationshipDynamics{
			Romantic:  string(d.Romantic),
			Platonic:  string(d.Platonic),
			Familial:  string(d.Familial),
			Rivalries: string(d.Rivalries),
		}
		if dyn != (domain.RelationshipDynamics{}) {
			e.RelationshipDynamics = &dyn
		}
	}
	e.ReaderNeed = string(x.ReaderNeed)

	confidence := x.confidence()
	e.EnrichmentTier = domain.TierImportant
	e.ExtractionSource = source
	e.SetConfidence(confidence)
	return e
}

// applyPartial overlays externally sourced display data. Known display data
// wins over what the model produced; the description is only a fallback.
func applyPartial(e *domain.CatalogEntry, p *domain.PartialBook) {
	if p == nil {
		return
	}
	if p.CoverImage != "" {
		e.CoverImage = p.CoverImage
	}
	if p.Rating > 0 {
		e.Rating = p.Rating
		e.RatingSource = p.RatingSource
	}
	if p.RatingsCount > 0 {
		e.RatingsCount = p.RatingsCount
	}
	if p.PageCount > 0 {
		e.PageCount = p.PageCount
	}
	if e.Description == "" {
		e.Description = p.Description
	}
}

// fallbackEntry is stored when extraction fails so the catalog always holds
// something for the book.
func fallbackEntry(title, author string, partial *domain.PartialBook, source domain.ExtractionSource) *domain.CatalogEntry {
	e := domain.NewMinimalEntry(title, author, partial)
	e.ExtractionSource = source
	e.EnrichmentTier = domain.TierEssential
	e.SetConfidence(fallbackConfidence)
	e.EmbeddingText = domain.BuildEmbeddingText(e)
	return e
}

// batchResponse accepts {"books": [...]} or a bare array.
type batchResponse []extractedBook

func (b *batchResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var books []extractedBook
		if err := json.Unmarshal(data, &books); err != nil {
			return err
		}
		*b = books
		return nil
	}
	var wrapped struct {
		Books []extractedBook `json:"books"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*b = wrapped.Books
	return nil
}

// parseBatch extracts the batch payload from a model answer. The answer may
// be a bare array inside prose, where ExtractJSON would settle on the first
// object, so the first '[' to last ']' span is tried whenever the regular
// parse yields no books.
func parseBatch(content string) (batchResponse, error) {
	var out batchResponse
	err := llm.Parse(content, &out)
	if err == nil && len(out) > 0 {
		return out, nil
	}
	first := strings.Index(content, "[")
	last := strings.LastIndex(content, "]")
	if first >= 0 && last > first {
		var arr batchResponse
		if json.Unmarshal([]byte(content[first:last+1]), &arr) == nil && len(arr) > 0 {
			return arr, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// tier3Result is the answer shape of the tier-3 prompt.
type tier3Result struct {
	StorylineStructure   stringList     `json:"storyline_structure"`
	CharacterDevelopment nullableString `json:"character_development"`
	RelationshipFocus    stringList     `json:"relationship_focus"`
	Representation       *struct {
		ProtagonistIdentities stringList `json:"protagonist_identities"`
		DiversityNotes        stringList `json:"diversity_notes"`
	} `json:"representation"`
	EndingType           nullableString `json:"ending_type"`
	BestReadWhen         stringList     `json:"best_read_when"`
	ReadingDifficulty    nullableString `json:"reading_difficulty"`
	PositiveContentNotes stringList     `json:"positive_content_notes"`
	ComparableBooks      stringList     `json:"comparable_books"`
	SeriesName           nullableString `json:"series_name"`
	SeriesPosition       float64        `json:"series_position"`
}

// apply overwrites the tier-3 field set of e and raises its tier.
func (r *tier3Result) apply(e *domain.CatalogEntry, now time.Time) {
	e.StorylineStructure = r.StorylineStructure.values()
	e.CharacterDevelopment = domain.CharacterDevelopment(r.CharacterDevelopment)
	e.RelationshipFocus = r.RelationshipFocus.values()
	e.Representation = nil
	if rep := r.Representation; rep != nil {
		ids, notes := rep.ProtagonistIdentities.values(), rep.DiversityNotes.values()
		if len(ids) > 0 || len(notes) > 0 {
			e.Representation = &domain.Representation{ProtagonistIdentities: ids, DiversityNotes: notes}
		}
	}
	e.EndingType = domain.EndingType(r.EndingType)
	e.BestReadWhen = r.BestReadWhen.values()
	e.ReadingDifficulty = domain.ReadingDifficulty(r.ReadingDifficulty)
	e.PositiveContentNotes = r.PositiveContentNotes.values()
	e.ComparableBooks = r.ComparableBooks.values()
	e.SeriesName = string(r.SeriesName)
	e.SeriesPosition = 0
	if e.SeriesName != "" {
		e.SeriesPosition = r.SeriesPosition
	}

	e.EnrichmentTier = max(e.EnrichmentTier, domain.TierEnhanced)
	e.ExtractionSource = domain.SourceTier3
	e.LastEnrichedAt = &now
	e.UpdatedAt = now
	e.EmbeddingText = domain.BuildEmbeddingText(e)
}
