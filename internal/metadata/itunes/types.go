// Package itunes searches the Apple iTunes Search API for ebooks. It is an
// optional source of large cover art and user ratings.
package itunes

// searchResponse is the raw iTunes API response.
type searchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []searchResult `json:"results"`
}

// searchResult is a single ebook result.
type searchResult struct {
	Kind              string   `json:"kind"`
	WrapperType       string   `json:"wrapperType"`
	TrackID           int64    `json:"trackId"`
	TrackName         string   `json:"trackName"`
	ArtistName        string   `json:"artistName"`
	Description       string   `json:"description"`
	ArtworkURL60      string   `json:"artworkUrl60"`
	ArtworkURL100     string   `json:"artworkUrl100"`
	AverageUserRating float64  `json:"averageUserRating"`
	UserRatingCount   int      `json:"userRatingCount"`
	ReleaseDate       string   `json:"releaseDate,omitempty"`
	Genres            []string `json:"genres,omitempty"`
}
