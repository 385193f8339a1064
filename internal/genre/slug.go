package genre

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify folds a genre label to its slug. Accents are dropped, "&" reads
// as "and", and every other run of non-alphanumerics becomes one hyphen.
//
//	"Science Fiction"   -> "science-fiction"
//	"Sword & Sorcery"   -> "sword-and-sorcery"
//	"Sci-Fi/Fantasy"    -> "sci-fi-fantasy"
func Slugify(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	write := func(word string) {
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteString(word)
	}

	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			// Combining marks left over from NFKD.
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			write(string(r))
		case r >= 'A' && r <= 'Z':
			write(string(unicode.ToLower(r)))
		case r == '&':
			pendingHyphen = true
			write("and")
			pendingHyphen = true
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}
