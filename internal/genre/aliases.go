package genre

// CanonicalAliases maps common reader spellings to canonical slugs.
var CanonicalAliases = map[string][]string{
	// Bookstore-style broad categories
	"literature-fiction":        {"literary-fiction"},
	"literature":                {"literary-fiction"},
	"general-fiction":           {"literary-fiction"},
	"science-fiction-fantasy":   {"science-fiction", "fantasy"},
	"mystery-thriller-suspense": {"mystery", "thriller"},
	"teens-young-adult":         {"young-adult"},
	"biographies-memoirs":       {"memoir"},
	"biography":                 {"memoir"},
	"comedy-humor":              {"humor"},

	// Science fiction
	"sci-fi": {"science-fiction"},
	"scifi":  {"science-fiction"},
	"sf":     {"science-fiction"},

	// Fantasy
	"high-fantasy":      {"epic-fantasy"},
	"sword-and-sorcery": {"epic-fantasy"},
	"s-s":               {"epic-fantasy"},
	"sci-fi-fantasy":    {"science-fiction", "fantasy"},
	"sff":               {"science-fiction", "fantasy"},
	"fantasy-romance":   {"romantasy"},
	"romantic-fantasy":  {"romantasy"},

	// Young adult
	"ya":    {"young-adult"},
	"teen":  {"young-adult"},
	"teens": {"young-adult"},

	// Mystery and thriller
	"suspense":         {"thriller"},
	"mystery-thriller": {"mystery", "thriller"},
	"crime-fiction":    {"mystery"},
	"whodunit":         {"mystery"},

	// Non-fiction
	"nonfiction":           {"non-fiction"},
	"selfhelp":             {"self-help"},
	"personal-development": {"self-help"},
	"true-story":           {"non-fiction"},

	// LitRPG
	"lit-rpg": {"litrpg"},
	"gamelit": {"litrpg"},

	// Progression fantasy
	"progression": {"progression-fantasy"},
	"cultivation": {"progression-fantasy"},

	// Romance
	"modern-romance": {"contemporary-romance"},
	"rom-com":        {"contemporary-romance"},
	"romcom":         {"contemporary-romance"},
	"pnr":            {"paranormal-romance"},

	// Horror
	"scary": {"horror"},

	// Historical
	"historical": {"historical-fiction"},
}

// NormalizeToSlugs takes a raw genre string and returns canonical slug(s).
// Returns the slugified input if no specific mapping found.
func NormalizeToSlugs(raw string) []string {
	slug := Slugify(raw)

	if canonical, ok := CanonicalAliases[slug]; ok {
		return canonical
	}

	if slug == "" {
		return nil
	}
	return []string{slug}
}
