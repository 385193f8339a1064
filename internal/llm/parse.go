package llm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

var (
	thinkBlock    = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkingBlock = regexp.MustCompile(`(?is)<thinking>.*?</thinking>`)
	fencedBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*([\\{\\[].*?[\\}\\]])\\s*```")
)

// stripReasoning removes reasoning markup, including an opening <think> tag
// that was never closed before the JSON starts.
func stripReasoning(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = thinkingBlock.ReplaceAllString(text, "")
	if i := strings.Index(strings.ToLower(text), "<think>"); i >= 0 {
		if j := strings.Index(text[i:], "{"); j >= 0 {
			text = text[:i] + text[i+j:]
		}
	}
	return strings.TrimSpace(text)
}

// ExtractJSON returns the JSON payload embedded in a model answer.
//
// Candidates are tried in order: the whole answer, a fenced code block, and
// the first balanced {...} object that is valid JSON.
func ExtractJSON(text string) ([]byte, error) {
	clean := stripReasoning(text)

	if clean != "" && json.Valid([]byte(clean)) {
		return []byte(clean), nil
	}

	if m := fencedBlock.FindStringSubmatch(clean); m != nil && json.Valid([]byte(m[1])) {
		return []byte(m[1]), nil
	}

	for start := strings.IndexByte(clean, '{'); start >= 0; {
		if end := balancedEnd(clean, start); end > start {
			candidate := []byte(clean[start : end+1])
			if json.Valid(candidate) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(clean[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, &Error{Op: "parse", Err: ErrParse}
}

// balancedEnd returns the index of the '}' closing the object that opens at
// s[start], or -1. Braces inside JSON strings are ignored.
func balancedEnd(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Parse decodes the JSON payload of a model answer into v.
func Parse(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Op: "parse", Err: errors.Join(ErrParse, err)}
	}
	return nil
}
