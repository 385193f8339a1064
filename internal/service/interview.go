package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/llm"
)

// MaxInterviewQuestions is the hard stop for the adaptive interview.
const MaxInterviewQuestions = 10

// profileAnalysisAnswers is how many answers phase 1 collects before the
// reader is classified.
const profileAnalysisAnswers = 2

const closingMessage = "I have enough information. Ready to see your recommendations?"

// Interview message roles.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// InterviewMessage is one line of the interview transcript.
type InterviewMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReaderProfile is the phase-1 classification of how a reader talks about books.
type ReaderProfile struct {
	UserProfile         string  `json:"user_profile"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	RecommendedStrategy string  `json:"recommended_strategy"`
}

// InterviewState is the client-held state of an interview in progress.
type InterviewState struct {
	// Books the reader named before starting, if any.
	Books []string `json:"books,omitempty"`
	// History is the transcript so far, ending with the reader's latest answer.
	History []InterviewMessage `json:"history"`
	// QuestionCount is the number of questions asked so far.
	QuestionCount int            `json:"question_count"`
	Phase         int            `json:"phase"`
	Profile       *ReaderProfile `json:"profile,omitempty"`
}

// InterviewTurn is the outcome of one NextQuestion call.
type InterviewTurn struct {
	Question       string         `json:"question"`
	Completed      bool           `json:"completed"`
	Phase          int            `json:"phase"`
	QuestionCount  int            `json:"question_count"`
	Profile        *ReaderProfile `json:"profile,omitempty"`
	ContextSummary string         `json:"context_summary,omitempty"`
	Cost           float64        `json:"cost"`
}

type questionAnswer struct {
	Question          string `json:"question"`
	ContinueInterview *bool  `json:"continue_interview"`
	ContextSummary    string `json:"context_summary"`
	Reasoning         string `json:"reasoning"`
}

// InterviewService runs the two-phase adaptive preference interview.
// It keeps no state of its own; callers pass the state back on every turn.
type InterviewService struct {
	sender llm.Sender
	model  string
	logger *slog.Logger
}

// NewInterviewService creates a new interview service. An empty model uses
// the adapter default.
func NewInterviewService(sender llm.Sender, model string, logger *slog.Logger) *InterviewService {
	return &InterviewService{sender: sender, model: model, logger: logger}
}

// NextQuestion advances the interview by one question.
//
// The first call (QuestionCount 0) opens phase 1. Once the reader has given
// two answers in phase 1 they are classified and phase 2 adapts the question
// style to the profile. The interview completes when the model says it has
// enough or MaxInterviewQuestions is reached.
func (s *InterviewService) NextQuestion(ctx context.Context, state InterviewState) (*InterviewTurn, error) {
	if state.Phase == 0 {
		state.Phase = 1
	}
	turn := &InterviewTurn{
		Phase:         state.Phase,
		QuestionCount: state.QuestionCount,
		Profile:       state.Profile,
	}

	if state.QuestionCount == 0 {
		prompt := strings.NewReplacer("{books_context}", questionBooksContext(state.Books)).Replace(interviewInitPrompt)
		answer, cost, err := s.ask(ctx, prompt)
		turn.Cost += cost
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(answer.Question) == "" {
			return nil, domainerrors.Upstream(llm.ErrParse, "interview model returned no question")
		}
		turn.Question = answer.Question
		turn.Phase = 1
		turn.QuestionCount = 1
		return turn, nil
	}

	if countAnswers(state.History) == 0 {
		return nil, domainerrors.Validation("interview history must include the reader's answer")
	}

	if state.QuestionCount >= MaxInterviewQuestions {
		turn.Completed = true
		turn.Question = closingMessage
		return turn, nil
	}

	if state.Phase == 1 && countAnswers(state.History) >= profileAnalysisAnswers {
		profile, cost, err := s.analyzeProfile(ctx, state)
		turn.Cost += cost
		if err != nil {
			s.logger.Warn("reader profile analysis failed, staying in phase 1", "error", err)
		} else {
			state.Phase = 2
			state.Profile = profile
			turn.Phase = 2
			turn.Profile = profile
			s.logger.Info("reader profile classified",
				"profile", profile.UserProfile,
				"confidence", profile.Confidence,
			)
		}
	}

	answer, cost, err := s.ask(ctx, buildFollowupPrompt(state))
	turn.Cost += cost
	if err != nil {
		return nil, err
	}
	turn.ContextSummary = answer.ContextSummary

	proceed := answer.ContinueInterview == nil || *answer.ContinueInterview
	if !proceed || strings.TrimSpace(answer.Question) == "" {
		turn.Completed = true
		turn.Question = answer.Question
		if strings.TrimSpace(turn.Question) == "" {
			turn.Question = closingMessage
		}
		return turn, nil
	}

	turn.Question = answer.Question
	turn.QuestionCount = state.QuestionCount + 1
	return turn, nil
}

func (s *InterviewService) ask(ctx context.Context, prompt string) (*questionAnswer, float64, error) {
	resp, err := s.sender.Send(ctx, llm.Request{Prompt: prompt, Model: s.model})
	if err != nil {
		return nil, 0, generationError(err, "interview question generation failed")
	}
	var answer questionAnswer
	if err := llm.Parse(resp.Content, &answer); err != nil {
		return nil, resp.Cost, domainerrors.Upstream(err, "could not parse interview question")
	}
	return &answer, resp.Cost, nil
}

func (s *InterviewService) analyzeProfile(ctx context.Context, state InterviewState) (*ReaderProfile, float64, error) {
	booksContext := "No books provided."
	if len(state.Books) > 0 {
		booksContext = "User provided: " + strings.Join(state.Books, ", ")
	}
	prompt := strings.NewReplacer(
		"{books_context}", booksContext,
		"{conversation_history}", formatTranscript(state.History),
	).Replace(interviewAnalysisPrompt)

	resp, err := s.sender.Send(ctx, llm.Request{Prompt: prompt, Model: s.model})
	if err != nil {
		return nil, 0, fmt.Errorf("analyze reader profile: %w", err)
	}
	var profile ReaderProfile
	if err := llm.Parse(resp.Content, &profile); err != nil {
		return nil, resp.Cost, fmt.Errorf("parse reader profile: %w", err)
	}
	profile.UserProfile = strings.ToLower(strings.TrimSpace(profile.UserProfile))
	if profile.UserProfile == "" {
		return nil, resp.Cost, fmt.Errorf("parse reader profile: %w", llm.ErrParse)
	}
	return &profile, resp.Cost, nil
}

func buildFollowupPrompt(state InterviewState) string {
	var profileContext, instructions string
	target := 5

	switch {
	case state.Phase == 2 && state.Profile != nil:
		style, ok := questionStyles[state.Profile.UserProfile]
		if !ok {
			style = questionStyle{
				Style:            "Use conversational questions",
				StoppingCriteria: "Sufficient information gathered",
				TargetQuestions:  5,
			}
		}
		profileContext = fmt.Sprintf("\nUSER PROFILE: %s\nConfidence: %s%%\nAnalysis: %s\nStrategy: %s\n",
			strings.ToUpper(strings.ReplaceAll(state.Profile.UserProfile, "_", " ")),
			strconv.FormatFloat(state.Profile.Confidence*100, 'f', -1, 64),
			state.Profile.Reasoning,
			state.Profile.RecommendedStrategy,
		)
		instructions = strings.NewReplacer(
			"{style}", style.Style,
			"{stopping_criteria}", style.StoppingCriteria,
		).Replace(phaseTwoInstructions)
		if style.Guidelines != "" {
			instructions += "Guidelines: " + style.Guidelines + "\n"
		}
		target = style.TargetQuestions
	case state.Phase == 1:
		instructions = phaseOneInstructions
	default:
		instructions = "Continue with standard interview questions."
	}

	return strings.NewReplacer(
		"{books_context}", questionBooksContext(state.Books),
		"{conversation_history}", formatTranscript(state.History),
		"{profile_context}", profileContext,
		"{phase}", strconv.Itoa(state.Phase),
		"{question_count}", strconv.Itoa(state.QuestionCount),
		"{target_questions}", strconv.Itoa(target),
		"{phase_instructions}", instructions,
	).Replace(interviewFollowupPrompt)
}

func questionBooksContext(books []string) string {
	if len(books) == 0 {
		return "No books provided. Ask about general reading preferences."
	}
	return "User likes: " + strings.Join(books, ", ") + "\nTailor questions accordingly."
}

// formatTranscript renders the history as "ROLE: content" lines.
func formatTranscript(history []InterviewMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, strings.ToUpper(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func countAnswers(history []InterviewMessage) int {
	n := 0
	for _, m := range history {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// interviewAnswers joins the reader's answers, one per line.
func interviewAnswers(history []InterviewMessage) string {
	var answers []string
	for _, m := range history {
		if m.Role == RoleUser && strings.TrimSpace(m.Content) != "" {
			answers = append(answers, strings.TrimSpace(m.Content))
		}
	}
	return strings.Join(answers, "\n")
}
