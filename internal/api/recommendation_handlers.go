package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/service"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recommend",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations",
		Summary:     "Get recommendations",
		Description: "Generates personalized recommendations from favorite books, free-text preferences, or a finished interview. " +
			"Books already in the caller's library are left out and the session is saved to history.",
		Tags: []string{"Recommendations"},
	}, s.handleRecommend)
}

// RecommendationRequestBody is the request body for a recommendation session.
type RecommendationRequestBody struct {
	Mode          string                     `json:"mode" validate:"required,oneof=quick context interview" doc:"quick, context or interview"`
	Books         []string                   `json:"books,omitempty" validate:"max=20" doc:"Books the reader loves"`
	Context       string                     `json:"context,omitempty" validate:"max=5000" doc:"Free-text preferences (context mode)"`
	Interview     []service.InterviewMessage `json:"interview,omitempty" doc:"Finished interview transcript (interview mode)"`
	Profile       *service.ReaderProfile     `json:"profile,omitempty" doc:"Reader classification from the interview"`
	InterviewCost float64                    `json:"interview_cost,omitempty" validate:"gte=0" doc:"Cost of the interview, recorded in history"`
	RequestID     string                     `json:"request_id,omitempty" doc:"Correlates progress events on the caller's event stream"`
}

// RecommendationInput wraps the recommendation request for Huma.
type RecommendationInput struct {
	Body RecommendationRequestBody
}

// RecommendationOutput wraps a recommendation session for Huma.
type RecommendationOutput struct {
	Body *service.RecommendationResult
}

func (s *Server) handleRecommend(ctx context.Context, input *RecommendationInput) (*RecommendationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Recommendation.Recommend(ctx, userID, service.RecommendationRequest{
		Mode:          domain.SourceType(input.Body.Mode),
		Books:         input.Body.Books,
		Context:       input.Body.Context,
		Interview:     input.Body.Interview,
		Profile:       input.Body.Profile,
		InterviewCost: input.Body.InterviewCost,
		RequestID:     input.Body.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: result}, nil
}
