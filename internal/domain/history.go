package domain

import "time"

// SourceType is how a recommendation request was made.
type SourceType string

// SourceType values.
const (
	SourceQuick     SourceType = "quick"
	SourceContext   SourceType = "context"
	SourceInterview SourceType = "interview"
)

// Valid reports whether s is a known mode.
func (s SourceType) Valid() bool {
	return s == SourceQuick || s == SourceContext || s == SourceInterview
}

// RecHistoryItem records one completed recommendation session.
// Items are append-only.
type RecHistoryItem struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	SourceType      SourceType `json:"source_type"`
	PromptContext   string     `json:"prompt_context"`
	Recommendations []Book     `json:"recommendations"`
	IntroText       string     `json:"intro_text,omitempty"`
	Cost            float64    `json:"cost,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
