package domain

// PartialBook is the best-effort record an external lookup returns.
// Any subset of fields may be set.
type PartialBook struct {
	Title        string  `json:"title,omitempty"`
	Author       string  `json:"author,omitempty"`
	Description  string  `json:"description,omitempty"`
	CoverImage   string  `json:"cover_image,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	RatingsCount int     `json:"ratings_count,omitempty"`
	RatingSource string  `json:"rating_source,omitempty"`
	PageCount    int     `json:"page_count,omitempty"`
}

// Empty reports whether p carries no display data.
func (p *PartialBook) Empty() bool {
	return p == nil || (p.Description == "" && p.CoverImage == "" &&
		p.Rating == 0 && p.RatingsCount == 0 && p.PageCount == 0)
}

// FillFrom copies fields from other into p where p has none.
// It reports whether anything changed.
func (p *PartialBook) FillFrom(other *PartialBook) bool {
	if other == nil {
		return false
	}
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}
	fill(&p.Title, other.Title)
	fill(&p.Author, other.Author)
	fill(&p.Description, other.Description)
	fill(&p.CoverImage, other.CoverImage)
	if p.Rating == 0 && other.Rating != 0 {
		p.Rating = other.Rating
		p.RatingSource = other.RatingSource
		changed = true
	}
	if p.RatingsCount == 0 && other.RatingsCount != 0 {
		p.RatingsCount = other.RatingsCount
		changed = true
	}
	if p.PageCount == 0 && other.PageCount != 0 {
		p.PageCount = other.PageCount
		changed = true
	}
	return changed
}

// Display returns the entry's display fields as a partial book.
func (e *CatalogEntry) Display() *PartialBook {
	return &PartialBook{
		Description:  e.Description,
		CoverImage:   e.CoverImage,
		Rating:       e.Rating,
		RatingsCount: e.RatingsCount,
		RatingSource: e.RatingSource,
		PageCount:    e.PageCount,
	}
}

// CatalogPatch is a typed partial update of a catalog entry.
// Nil fields are left untouched.
type CatalogPatch struct {
	CoverImage       *string
	Description      *string
	Rating           *float64
	RatingsCount     *int
	RatingSource     *string
	PageCount        *int
	TimesRecommended *int
	TimesSaved       *int
}

// IsEmpty reports whether the patch changes nothing.
func (p CatalogPatch) IsEmpty() bool {
	return p.CoverImage == nil && p.Description == nil && p.Rating == nil &&
		p.RatingsCount == nil && p.RatingSource == nil && p.PageCount == nil &&
		p.TimesRecommended == nil && p.TimesSaved == nil
}

// Apply writes the patch onto e.
func (p CatalogPatch) Apply(e *CatalogEntry) {
	if p.CoverImage != nil {
		e.CoverImage = *p.CoverImage
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Rating != nil {
		e.Rating = *p.Rating
	}
	if p.RatingsCount != nil {
		e.RatingsCount = *p.RatingsCount
	}
	if p.RatingSource != nil {
		e.RatingSource = *p.RatingSource
	}
	if p.PageCount != nil {
		e.PageCount = *p.PageCount
	}
	if p.TimesRecommended != nil {
		e.TimesRecommended = *p.TimesRecommended
	}
	if p.TimesSaved != nil {
		e.TimesSaved = *p.TimesSaved
	}
}

// GapMerge fills the empty display fields of existing from incoming.
// Only cover image, description, rating, ratings count and page count are
// considered, and a populated field is never replaced. The returned entry is
// a copy; the patch holds exactly the fields that changed.
func GapMerge(existing *CatalogEntry, incoming *PartialBook) (*CatalogEntry, CatalogPatch) {
	merged := existing.Clone()
	var patch CatalogPatch
	if incoming == nil {
		return merged, patch
	}

	if merged.CoverImage == "" && incoming.CoverImage != "" {
		v := incoming.CoverImage
		patch.CoverImage = &v
	}
	if merged.Description == "" && incoming.Description != "" {
		v := incoming.Description
		patch.Description = &v
	}
	if merged.Rating == 0 && incoming.Rating != 0 {
		v := incoming.Rating
		patch.Rating = &v
		if merged.RatingSource == "" && incoming.RatingSource != "" {
			src := incoming.RatingSource
			patch.RatingSource = &src
		}
	}
	if merged.RatingsCount == 0 && incoming.RatingsCount != 0 {
		v := incoming.RatingsCount
		patch.RatingsCount = &v
	}
	if merged.PageCount == 0 && incoming.PageCount != 0 {
		v := incoming.PageCount
		patch.PageCount = &v
	}

	patch.Apply(merged)
	return merged, patch
}
