package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/domain"
)

func (s *Server) registerHistoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/history",
		Summary:     "List recommendation history",
		Description: "Returns the caller's past recommendation sessions, newest first",
		Tags:        []string{"History"},
	}, s.handleListHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHistoryItem",
		Method:      http.MethodGet,
		Path:        "/api/v1/history/{id}",
		Summary:     "Get recommendation session",
		Description: "Returns one past recommendation session",
		Tags:        []string{"History"},
	}, s.handleGetHistoryItem)
}

// ListHistoryInput limits the history listing.
type ListHistoryInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"200" doc:"Maximum sessions (default 50)"`
}

// HistoryResponse contains recommendation sessions.
type HistoryResponse struct {
	Items []*domain.RecHistoryItem `json:"items" doc:"Sessions, newest first"`
}

// HistoryOutput wraps the history listing for Huma.
type HistoryOutput struct {
	Body HistoryResponse
}

func (s *Server) handleListHistory(ctx context.Context, input *ListHistoryInput) (*HistoryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.services.History.GetHistory(ctx, userID, input.Limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.RecHistoryItem{}
	}
	return &HistoryOutput{Body: HistoryResponse{Items: items}}, nil
}

// HistoryItemInput identifies a recommendation session.
type HistoryItemInput struct {
	ID string `path:"id" doc:"History item ID"`
}

// HistoryItemOutput wraps one session for Huma.
type HistoryItemOutput struct {
	Body *domain.RecHistoryItem
}

func (s *Server) handleGetHistoryItem(ctx context.Context, input *HistoryItemInput) (*HistoryItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.services.History.GetHistoryItem(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &HistoryItemOutput{Body: item}, nil
}
