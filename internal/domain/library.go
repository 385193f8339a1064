package domain

import "time"

// LibraryBook is a book saved to a user's personal library.
// (UserID, Title, Author) is unique.
type LibraryBook struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	CatalogKey  string     `json:"catalog_key"`
	CoverImage  string     `json:"cover_image,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      BookStatus `json:"status"`
	Progress    int        `json:"progress"`
	Rating      int        `json:"rating,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Genres      []string   `json:"genres"`
	AddedAt     time.Time  `json:"added_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// SetStatus moves the book to status s and stamps start or finish times.
func (b *LibraryBook) SetStatus(s BookStatus, now time.Time) {
	b.Status = s
	b.UpdatedAt = now
	switch s {
	case StatusReading:
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
	case StatusRead:
		if b.StartedAt == nil {
			b.StartedAt = &now
		}
		b.FinishedAt = &now
		b.Progress = 100
	}
}

// SetProgress records a reading percentage, clamped to 0..100.
// Reaching 100 marks the book read.
func (b *LibraryBook) SetProgress(p int, now time.Time) {
	p = max(0, min(100, p))
	b.Progress = p
	b.UpdatedAt = now
	if p > 0 && b.Status == StatusTBR {
		b.SetStatus(StatusReading, now)
	}
	if p == 100 && b.Status != StatusRead {
		b.SetStatus(StatusRead, now)
	}
}

// LibraryIndex is a compact view of a user's library, used to keep
// already-owned titles out of new recommendations.
type LibraryIndex struct {
	Keys   map[string]BookStatus `json:"-"`
	Titles []string              `json:"titles"`
}

// NewLibraryIndex builds an index from saved books.
func NewLibraryIndex(books []*LibraryBook) *LibraryIndex {
	idx := &LibraryIndex{Keys: make(map[string]BookStatus, len(books)), Titles: make([]string, 0, len(books))}
	for _, b := range books {
		idx.Keys[MakeCatalogKey(b.Title, b.Author)] = b.Status
		idx.Titles = append(idx.Titles, b.Title+" by "+b.Author)
	}
	return idx
}

// Has reports whether the index contains the given book.
func (i *LibraryIndex) Has(title, author string) bool {
	if i == nil {
		return false
	}
	_, ok := i.Keys[MakeCatalogKey(title, author)]
	return ok
}
