// Package genre holds the home feed genre taxonomy and folds reader-typed
// genre names onto it.
package genre

// Genre is one selectable genre for the home feed.
type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DefaultGenres is the list readers pick home feed genres from.
var DefaultGenres = []Genre{
	{Name: "Literary Fiction", Slug: "literary-fiction"},
	{Name: "Fantasy", Slug: "fantasy"},
	{Name: "Epic Fantasy", Slug: "epic-fantasy"},
	{Name: "Romantasy", Slug: "romantasy"},
	{Name: "Progression Fantasy", Slug: "progression-fantasy"},
	{Name: "LitRPG", Slug: "litrpg"},
	{Name: "Science Fiction", Slug: "science-fiction"},
	{Name: "Dystopian", Slug: "dystopian"},
	{Name: "Mystery", Slug: "mystery"},
	{Name: "Thriller", Slug: "thriller"},
	{Name: "Horror", Slug: "horror"},
	{Name: "Romance", Slug: "romance"},
	{Name: "Contemporary Romance", Slug: "contemporary-romance"},
	{Name: "Paranormal Romance", Slug: "paranormal-romance"},
	{Name: "Historical Fiction", Slug: "historical-fiction"},
	{Name: "Young Adult", Slug: "young-adult"},
	{Name: "Humor", Slug: "humor"},
	{Name: "Memoir", Slug: "memoir"},
	{Name: "Non-Fiction", Slug: "non-fiction"},
	{Name: "Self-Help", Slug: "self-help"},
}

// NameFor returns the display name for a canonical slug, or the slug
// itself when it is not a default genre.
func NameFor(slug string) string {
	for _, g := range DefaultGenres {
		if g.Slug == slug {
			return g.Name
		}
	}
	return slug
}
