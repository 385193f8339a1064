// Package googlebooks searches the Google Books volumes API for covers,
// ratings and descriptions.
package googlebooks

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
	SearchInfo *struct {
		TextSnippet string `json:"textSnippet"`
	} `json:"searchInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PageCount     int      `json:"pageCount"`
	AverageRating float64  `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
	ImageLinks    *struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}
