package api

import (
	"context"
	"strings"
	"sync"

	"github.com/novelly/novelly-server/internal/llm"
)

// scriptedSender answers prompts with the first reply whose marker the
// prompt contains, falling back to def.
type scriptedSender struct {
	mu      sync.Mutex
	replies []scriptedReply
	def     string
	err     error
	prompts []string
}

type scriptedReply struct {
	marker  string
	content string
}

func (s *scriptedSender) on(marker, content string) *scriptedSender {
	s.replies = append(s.replies, scriptedReply{marker: marker, content: content})
	return s
}

func (s *scriptedSender) Send(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return nil, s.err
	}
	content := s.def
	for _, r := range s.replies {
		if strings.Contains(req.Prompt, r.marker) {
			content = r.content
			break
		}
	}
	usage := llm.Usage{PromptTokens: 800, CompletionTokens: 400, TotalTokens: 1200}
	return &llm.Response{
		Content: content,
		Model:   "sonar-pro",
		Usage:   usage,
		Cost:    llm.Cost("sonar-pro", usage),
	}, nil
}

func (s *scriptedSender) promptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

const extractionJSON = `{
  "title": "Dune",
  "author": "Frank Herbert",
  "primary_genre": "Science Fiction",
  "fiction_nonfiction": "fiction",
  "description": "A desert planet and a prophecy.",
  "themes": ["power", "ecology"],
  "pacing": "moderate",
  "tone": ["epic"],
  "mood_emotions": ["tense"],
  "subgenres": ["space opera"],
  "tropes": ["chosen one"],
  "target_age_group": "adult",
  "confidence": 0.92
}`

const recommendationsJSON = `{
  "intro_text": "Big ideas and vivid worlds.",
  "analysis": {"reader_profile": "Enjoys sweeping science fiction"},
  "recommendations": [
    {"title": "Hyperion", "author": "Dan Simmons", "genre": "Science Fiction"},
    {"title": "The Left Hand of Darkness", "author": "Ursula K. Le Guin", "genre": "Science Fiction"}
  ]
}`

const feedJSON = `{
  "new_releases": [{"title": "The Will of the Many", "author": "James Islington", "genre": "Fantasy"}],
  "popular": [{"title": "Fourth Wing", "author": "Rebecca Yarros", "genre": "Romantasy"}],
  "award_winning": [{"title": "Piranesi", "author": "Susanna Clarke", "genre": "Fantasy"}],
  "hidden_gems": [{"title": "The Goblin Emperor", "author": "Katherine Addison", "genre": "Fantasy"}]
}`

const newsJSON = `{"news": [{"title": "Hugo finalists announced", "summary": "The shortlist is out.", "url": null, "source": "Tor.com", "date": "Apr 2, 2026"}]}`

const interviewOpeningJSON = `{"question": "What was the last book you could not put down?", "continue_interview": true}`

// newScriptedSender returns a sender that answers every prompt the API
// can trigger.
func newScriptedSender() *scriptedSender {
	return (&scriptedSender{}).
		on("for each of the following books", `[]`).
		on("Given a book title and author", extractionJSON).
		on("literary matchmaker", recommendationsJSON).
		on("homepage feed", feedJSON).
		on("news articles", newsJSON).
		on("Conduct the first phase", interviewOpeningJSON)
}
