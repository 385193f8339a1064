package domain

// DefaultSearchLimit caps catalog searches without an explicit limit.
const DefaultSearchLimit = 20

// MinSearchConfidence is the confidence floor for catalog search results.
const MinSearchConfidence = 0.5

// CatalogFilters selects catalog entries. Empty fields do not filter.
// Array filters match when any element overlaps.
type CatalogFilters struct {
	Genres    []string `json:"genres,omitempty"`
	Moods     []string `json:"moods,omitempty"`
	Tropes    []string `json:"tropes,omitempty"`
	Themes    []string `json:"themes,omitempty"`
	Pacing    Pacing   `json:"pacing,omitempty"`
	AgeGroup  AgeGroup `json:"age_group,omitempty"`
	MinRating float64  `json:"min_rating,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// EffectiveLimit returns the limit to apply.
func (f CatalogFilters) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultSearchLimit
	}
	return f.Limit
}

// CatalogStats summarizes the catalog.
type CatalogStats struct {
	Total        int          `json:"total"`
	ByTier       map[Tier]int `json:"by_tier"`
	NeedsReview  int          `json:"needs_review"`
	Failed       int          `json:"failed"`
	CacheEntries int          `json:"cache_entries"`
}
