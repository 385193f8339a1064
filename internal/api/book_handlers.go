package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "findBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/find",
		Summary:     "Find book",
		Description: "Resolves a title and optional author into a display book from external sources",
		Tags:        []string{"Books"},
	}, s.handleFindBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyBooks",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/verify",
		Summary:     "Verify books",
		Description: "Resolves a list of titles; titles that cannot be found are left out",
		Tags:        []string{"Books"},
	}, s.handleVerifyBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "hydrateBooks",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/hydrate",
		Summary:     "Hydrate books",
		Description: "Enriches raw recommendations with catalog metadata and display data, preserving order",
		Tags:        []string{"Books"},
	}, s.handleHydrateBooks)
}

// FindBookRequest is the request body for finding a book.
type FindBookRequest struct {
	Title  string `json:"title" validate:"notblank,max=500" doc:"Book title"`
	Author string `json:"author,omitempty" validate:"max=300" doc:"Author name"`
}

// FindBookInput wraps the find request for Huma.
type FindBookInput struct {
	Body FindBookRequest
}

// BookOutput wraps a display book for Huma.
type BookOutput struct {
	Body *domain.Book
}

func (s *Server) handleFindBook(ctx context.Context, input *FindBookInput) (*BookOutput, error) {
	input.Body.Title = strings.TrimSpace(input.Body.Title)
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Book.FindBook(ctx, input.Body.Title, strings.TrimSpace(input.Body.Author))
	if err != nil {
		return nil, domainerrors.Upstream(err, "book lookup failed")
	}
	return &BookOutput{Body: book}, nil
}

// VerifyBooksInput wraps the verify request for Huma.
type VerifyBooksInput struct {
	Body struct {
		Titles []string `json:"titles" minItems:"1" maxItems:"50" doc:"Titles to resolve"`
	}
}

// BooksResponse contains display books.
type BooksResponse struct {
	Books []domain.Book `json:"books" doc:"Display books, in request order"`
}

// BooksOutput wraps a list of display books for Huma.
type BooksOutput struct {
	Body BooksResponse
}

func (s *Server) handleVerifyBooks(ctx context.Context, input *VerifyBooksInput) (*BooksOutput, error) {
	books := s.services.Book.VerifyBooks(ctx, input.Body.Titles)
	return &BooksOutput{Body: BooksResponse{Books: books}}, nil
}

// HydrateBooksRequest is the request body for hydrating recommendations.
type HydrateBooksRequest struct {
	Books     []domain.RawRecommendation `json:"books" minItems:"1" maxItems:"50" doc:"Raw recommendations to enrich"`
	RequestID string                     `json:"request_id,omitempty" doc:"Correlates progress events on the caller's event stream"`
}

// HydrateBooksInput wraps the hydrate request for Huma.
type HydrateBooksInput struct {
	Body HydrateBooksRequest
}

func (s *Server) handleHydrateBooks(ctx context.Context, input *HydrateBooksInput) (*BooksOutput, error) {
	for i, b := range input.Body.Books {
		if strings.TrimSpace(b.Title) == "" {
			return nil, domainerrors.Validationf("books[%d]: title is required", i)
		}
	}

	var progress service.ProgressFunc
	if userID := optionalUserID(ctx); userID != "" {
		progress = s.services.Book.ProgressForUser(userID, input.Body.RequestID)
	}

	books := s.services.Book.HydrateBooksList(ctx, input.Body.Books, progress)
	return &BooksOutput{Body: BooksResponse{Books: books}}, nil
}
