// Package id generates the prefixed record IDs the server hands out.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefix names the kind of record an ID belongs to.
type Prefix string

// Record prefixes.
const (
	LibraryBook Prefix = "lib"
	History     Prefix = "rec"
	SSEClient   Prefix = "sse"
)

const nanoidLength = 21

// Generate returns prefix-<nanoid>, e.g. "lib-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix Prefix) (string, error) {
	n, err := gonanoid.New(nanoidLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return string(prefix) + "-" + n, nil
}

// Valid reports whether s could have been produced by Generate(prefix).
func Valid(prefix Prefix, s string) bool {
	rest, ok := strings.CutPrefix(s, string(prefix)+"-")
	if !ok || len(rest) != nanoidLength {
		return false
	}
	for _, r := range rest {
		if !isNanoidRune(r) {
			return false
		}
	}
	return true
}

func isNanoidRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') ||
		(r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		r == '_' || r == '-'
}
