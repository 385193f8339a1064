package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/metrics"
)

// DefaultDeepResearchModel answers interview-mode recommendation requests.
const DefaultDeepResearchModel = "sonar-deep-research"

// ErrNoRecommendations is returned when the model answered without any books.
var ErrNoRecommendations = errors.New("model returned no recommendations")

// Hydrator turns raw recommendations into display books.
type Hydrator interface {
	HydrateBooksList(ctx context.Context, raws []domain.RawRecommendation, onProgress ProgressFunc) []domain.Book
}

// LibraryIndexer loads the titles a user already owns.
type LibraryIndexer interface {
	LoadLibraryIndex(ctx context.Context, userID string) (*domain.LibraryIndex, error)
}

// HistoryRecorder appends finished sessions to a user's history.
type HistoryRecorder interface {
	SaveHistory(ctx context.Context, item *domain.RecHistoryItem) (*domain.RecHistoryItem, error)
}

// RecommendationRequest asks for recommendations in one of the three modes.
type RecommendationRequest struct {
	Mode domain.SourceType
	// Books the reader already loves. Required for quick and context modes.
	Books []string
	// Context is free-text preferences for context mode.
	Context string
	// Interview is the finished interview transcript for interview mode.
	Interview []InterviewMessage
	// Profile is the interview's reader classification, if one was made.
	Profile *ReaderProfile
	// InterviewCost is what the interview itself cost, carried into history.
	InterviewCost float64
	// RequestID correlates progress events with the caller's request.
	RequestID string
}

// RecommendationResult is a completed recommendation session.
type RecommendationResult struct {
	HistoryID       string            `json:"history_id,omitempty"`
	Mode            domain.SourceType `json:"mode"`
	IntroText       string            `json:"intro_text,omitempty"`
	ReaderProfile   string            `json:"reader_profile,omitempty"`
	Recommendations []domain.Book     `json:"recommendations"`
	Skipped         int               `json:"skipped_owned"`
	Cost            float64           `json:"cost"`
}

type recommendationAnswer struct {
	Recommendations []domain.RawRecommendation `json:"recommendations"`
	IntroText       string                     `json:"intro_text"`
	Analysis        *struct {
		ReaderProfile string `json:"reader_profile"`
	} `json:"analysis"`
}

// RecommendationServiceConfig selects the models used per mode.
type RecommendationServiceConfig struct {
	// Model answers quick and context requests. Empty uses the adapter default.
	Model string
	// DeepModel answers interview requests.
	DeepModel string
}

// RecommendationService produces hydrated recommendations and records them.
type RecommendationService struct {
	sender   llm.Sender
	books    Hydrator
	library  LibraryIndexer
	history  HistoryRecorder
	progress func(userID, requestID string) ProgressFunc
	cfg      RecommendationServiceConfig
	logger   *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(sender llm.Sender, books *BookService, library LibraryIndexer, history HistoryRecorder, cfg RecommendationServiceConfig, logger *slog.Logger) *RecommendationService {
	if cfg.DeepModel == "" {
		cfg.DeepModel = DefaultDeepResearchModel
	}
	return &RecommendationService{
		sender:   sender,
		books:    books,
		library:  library,
		history:  history,
		progress: books.ProgressForUser,
		cfg:      cfg,
		logger:   logger,
	}
}

// Recommend builds the mode's prompt, asks the model, hydrates the answer,
// drops books the user already owns and saves the session to history.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, req RecommendationRequest) (*RecommendationResult, error) {
	if err := validateRecommendationRequest(req); err != nil {
		metrics.RecommendationRequests.WithLabelValues(string(req.Mode), "invalid").Inc()
		return nil, err
	}

	model := s.cfg.Model
	if req.Mode == domain.SourceInterview {
		model = s.cfg.DeepModel
	}
	transcript := interviewAnswers(req.Interview)

	resp, err := s.sender.Send(ctx, llm.Request{
		Prompt: buildRecommendationPrompt(req.Mode, req.Books, req.Context, transcript),
		Model:  model,
	})
	if err != nil {
		metrics.RecommendationRequests.WithLabelValues(string(req.Mode), "failed").Inc()
		return nil, generationError(err, "recommendation request failed")
	}

	var answer recommendationAnswer
	if err := llm.Parse(resp.Content, &answer); err != nil {
		metrics.RecommendationRequests.WithLabelValues(string(req.Mode), "failed").Inc()
		return nil, domainerrors.Upstream(err, "could not parse recommendations")
	}

	raws := make([]domain.RawRecommendation, 0, len(answer.Recommendations))
	for _, r := range answer.Recommendations {
		if strings.TrimSpace(r.Title) != "" {
			raws = append(raws, r)
		}
	}

	skipped := 0
	if idx := s.loadLibraryIndex(ctx, userID); idx != nil {
		kept := raws[:0]
		for _, r := range raws {
			if idx.Has(r.Title, r.AuthorOrUnknown()) {
				skipped++
				continue
			}
			kept = append(kept, r)
		}
		raws = kept
	}

	if len(raws) == 0 {
		metrics.RecommendationRequests.WithLabelValues(string(req.Mode), "empty").Inc()
		return nil, domainerrors.Upstream(ErrNoRecommendations, "no recommendations found")
	}

	books := s.books.HydrateBooksList(ctx, raws, s.progress(userID, req.RequestID))

	result := &RecommendationResult{
		Mode:            req.Mode,
		IntroText:       answer.IntroText,
		Recommendations: books,
		Skipped:         skipped,
		Cost:            resp.Cost + req.InterviewCost,
	}
	if answer.Analysis != nil {
		result.ReaderProfile = answer.Analysis.ReaderProfile
	}
	if result.IntroText == "" && req.Profile != nil {
		result.IntroText = req.Profile.UserProfile
	}

	item, err := s.history.SaveHistory(ctx, &domain.RecHistoryItem{
		UserID:          userID,
		SourceType:      req.Mode,
		PromptContext:   promptContext(req, transcript),
		Recommendations: books,
		IntroText:       result.IntroText,
		Cost:            result.Cost,
	})
	if err != nil {
		s.logger.Warn("failed to save recommendation history",
			"user_id", userID,
			"mode", req.Mode,
			"error", err,
		)
	} else if item != nil {
		result.HistoryID = item.ID
	}

	s.logger.Info("recommendations generated",
		"user_id", userID,
		"mode", req.Mode,
		"count", len(books),
		"skipped_owned", skipped,
		"cost", result.Cost,
	)
	metrics.RecommendationRequests.WithLabelValues(string(req.Mode), "success").Inc()
	return result, nil
}

func (s *RecommendationService) loadLibraryIndex(ctx context.Context, userID string) *domain.LibraryIndex {
	if s.library == nil {
		return nil
	}
	idx, err := s.library.LoadLibraryIndex(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load library index, owned books will not be filtered",
			"user_id", userID,
			"error", err,
		)
		return nil
	}
	return idx
}

func validateRecommendationRequest(req RecommendationRequest) error {
	switch req.Mode {
	case domain.SourceQuick:
		if len(nonBlank(req.Books)) == 0 {
			return domainerrors.Validation("quick recommendations need at least one book")
		}
	case domain.SourceContext:
		if len(nonBlank(req.Books)) == 0 {
			return domainerrors.Validation("context recommendations need at least one book")
		}
		if strings.TrimSpace(req.Context) == "" {
			return domainerrors.Validation("context recommendations need a description of what you want")
		}
	case domain.SourceInterview:
		if interviewAnswers(req.Interview) == "" {
			return domainerrors.Validation("interview recommendations need the interview answers")
		}
	default:
		return domainerrors.Validationf("unknown recommendation mode %q", req.Mode)
	}
	return nil
}

// buildRecommendationPrompt fills the prompt for a mode. An interview with
// no books uses a prompt built on the interview alone.
func buildRecommendationPrompt(mode domain.SourceType, books []string, extra, transcript string) string {
	books = nonBlank(books)
	if mode == domain.SourceInterview && len(books) == 0 {
		return strings.ReplaceAll(interviewOnlyPrompt, "{interview}", transcript)
	}

	prompt := strings.ReplaceAll(basePrompt, "{user_book_list}", strings.Join(books, ", "))

	var section string
	switch mode {
	case domain.SourceContext:
		if strings.TrimSpace(extra) != "" {
			section = strings.ReplaceAll(contextSection, "{context}", strings.TrimSpace(extra))
		}
	case domain.SourceInterview:
		section = strings.ReplaceAll(interviewSection, "{interview}", transcript)
	}
	if section != "" {
		prompt = strings.Replace(prompt, outputFormatMarker, section+"\n\n"+outputFormatMarker, 1)
	}
	return prompt
}

func promptContext(req RecommendationRequest, transcript string) string {
	switch req.Mode {
	case domain.SourceContext:
		return req.Context
	case domain.SourceInterview:
		return transcript
	default:
		return strings.Join(nonBlank(req.Books), ", ")
	}
}

// generationError maps a generative adapter failure onto a domain error.
func generationError(err error, msg string) error {
	if errors.Is(err, llm.ErrNoAPIKey) {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "generative model is not configured")
	}
	return domainerrors.Upstream(err, msg)
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
