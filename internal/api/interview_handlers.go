package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/service"
)

func (s *Server) registerInterviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "nextInterviewQuestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/interview/next",
		Summary:     "Next interview question",
		Description: "Advances a reader interview by one turn. The client holds the interview state and sends it back each turn.",
		Tags:        []string{"Interview"},
	}, s.handleNextInterviewQuestion)
}

// InterviewRequest is the client-held interview state.
type InterviewRequest struct {
	Books         []string                   `json:"books,omitempty" validate:"max=20" doc:"Books the reader named before starting"`
	History       []service.InterviewMessage `json:"history,omitempty" doc:"Transcript so far, ending with the reader's latest answer"`
	QuestionCount int                        `json:"question_count,omitempty" minimum:"0" doc:"Questions asked so far"`
	Phase         int                        `json:"phase,omitempty" minimum:"0" maximum:"2" doc:"Interview phase"`
	Profile       *service.ReaderProfile     `json:"profile,omitempty" doc:"Reader classification, once made"`
}

// InterviewInput wraps the interview request for Huma.
type InterviewInput struct {
	Body InterviewRequest
}

// InterviewOutput wraps an interview turn for Huma.
type InterviewOutput struct {
	Body *service.InterviewTurn
}

func (s *Server) handleNextInterviewQuestion(ctx context.Context, input *InterviewInput) (*InterviewOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	turn, err := s.services.Interview.NextQuestion(ctx, service.InterviewState{
		Books:         input.Body.Books,
		History:       input.Body.History,
		QuestionCount: input.Body.QuestionCount,
		Phase:         input.Body.Phase,
		Profile:       input.Body.Profile,
	})
	if err != nil {
		return nil, err
	}
	return &InterviewOutput{Body: turn}, nil
}
