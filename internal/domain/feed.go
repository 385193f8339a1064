package domain

import "time"

// FeedSectionID names a home feed section.
type FeedSectionID string

// Feed sections, in display order.
const (
	SectionNewReleases  FeedSectionID = "new_releases"
	SectionPopular      FeedSectionID = "popular"
	SectionAwardWinning FeedSectionID = "award_winning"
	SectionHiddenGems   FeedSectionID = "hidden_gems"
)

// BookSections lists the feed sections that hold books.
var BookSections = []FeedSectionID{SectionNewReleases, SectionPopular, SectionAwardWinning, SectionHiddenGems}

// FeedSection is one titled row of the home feed.
type FeedSection struct {
	ID    FeedSectionID `json:"id"`
	Title string        `json:"title"`
	Books []Book        `json:"books"`
}

// NewsArticle is a short book-world news item.
type NewsArticle struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

// HomeFeed is the cached, genre-personalized landing page.
type HomeFeed struct {
	Genres      []string      `json:"genres"`
	Sections    []FeedSection `json:"sections"`
	News        []NewsArticle `json:"news"`
	GeneratedAt time.Time     `json:"generated_at"`
}
