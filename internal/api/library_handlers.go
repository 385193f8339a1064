package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/library",
		Summary:     "List library",
		Description: "Returns the caller's saved books, newest first",
		Tags:        []string{"Library"},
	}, s.handleListLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addLibraryBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/library",
		Summary:       "Add book to library",
		Description:   "Saves a book, or refreshes it when the same title and author are already saved",
		Tags:          []string{"Library"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddLibraryBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateLibraryBookStatus",
		Method:      http.MethodPatch,
		Path:        "/api/v1/library/{id}/status",
		Summary:     "Update reading status",
		Description: "Moves a saved book to a new reading status",
		Tags:        []string{"Library"},
	}, s.handleUpdateLibraryStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateLibraryBookProgress",
		Method:      http.MethodPatch,
		Path:        "/api/v1/library/{id}/progress",
		Summary:     "Update reading progress",
		Description: "Records reading progress as a percentage",
		Tags:        []string{"Library"},
	}, s.handleUpdateLibraryProgress)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteLibraryBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/library/{id}",
		Summary:       "Remove book from library",
		Description:   "Removes a saved book",
		Tags:          []string{"Library"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteLibraryBook)
}

// ListLibraryInput filters the library listing.
type ListLibraryInput struct {
	Status string `query:"status" doc:"Only books with this status"`
}

// LibraryResponse contains saved books.
type LibraryResponse struct {
	Books []*domain.LibraryBook `json:"books" doc:"Saved books"`
}

// LibraryOutput wraps the library listing for Huma.
type LibraryOutput struct {
	Body LibraryResponse
}

func (s *Server) handleListLibrary(ctx context.Context, input *ListLibraryInput) (*LibraryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Library.ListBooks(ctx, userID, domain.BookStatus(input.Status))
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []*domain.LibraryBook{}
	}
	return &LibraryOutput{Body: LibraryResponse{Books: books}}, nil
}

// AddLibraryBookRequest is the request body for saving a book.
type AddLibraryBookRequest struct {
	Title       string   `json:"title" validate:"notblank,max=500" doc:"Book title"`
	Author      string   `json:"author,omitempty" validate:"max=300" doc:"Author name"`
	CoverImage  string   `json:"cover_image,omitempty" validate:"omitempty,url" doc:"Cover image URL"`
	Description string   `json:"description,omitempty" doc:"Book description"`
	Status      string   `json:"status,omitempty" validate:"omitempty,bookstatus" doc:"Reading status (default tbr)"`
	Genres      []string `json:"genres,omitempty" doc:"Genres"`
	Rating      int      `json:"rating,omitempty" validate:"gte=0,lte=5" doc:"Personal rating from 1 to 5"`
	Notes       string   `json:"notes,omitempty" validate:"max=5000" doc:"Personal notes"`
}

// AddLibraryBookInput wraps the add request for Huma.
type AddLibraryBookInput struct {
	Body AddLibraryBookRequest
}

// LibraryBookOutput wraps a saved book for Huma.
type LibraryBookOutput struct {
	Body *domain.LibraryBook
}

func (s *Server) handleAddLibraryBook(ctx context.Context, input *AddLibraryBookInput) (*LibraryBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Library.AddBook(ctx, userID, service.AddBookInput{
		Title:       input.Body.Title,
		Author:      input.Body.Author,
		CoverImage:  input.Body.CoverImage,
		Description: input.Body.Description,
		Status:      domain.BookStatus(input.Body.Status),
		Genres:      input.Body.Genres,
		Rating:      input.Body.Rating,
		Notes:       input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &LibraryBookOutput{Body: book}, nil
}

// UpdateLibraryStatusInput wraps the status update for Huma.
type UpdateLibraryStatusInput struct {
	ID   string `path:"id" doc:"Library book ID"`
	Body struct {
		Status string `json:"status" validate:"required,bookstatus" doc:"New reading status"`
	}
}

func (s *Server) handleUpdateLibraryStatus(ctx context.Context, input *UpdateLibraryStatusInput) (*LibraryBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Library.UpdateStatus(ctx, userID, input.ID, domain.BookStatus(input.Body.Status))
	if err != nil {
		return nil, err
	}
	return &LibraryBookOutput{Body: book}, nil
}

// UpdateLibraryProgressInput wraps the progress update for Huma.
type UpdateLibraryProgressInput struct {
	ID   string `path:"id" doc:"Library book ID"`
	Body struct {
		Progress int `json:"progress" validate:"gte=0,lte=100" doc:"Percentage read, 0 to 100"`
	}
}

func (s *Server) handleUpdateLibraryProgress(ctx context.Context, input *UpdateLibraryProgressInput) (*LibraryBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Library.UpdateProgress(ctx, userID, input.ID, input.Body.Progress)
	if err != nil {
		return nil, err
	}
	return &LibraryBookOutput{Body: book}, nil
}

// LibraryBookIDInput identifies a saved book.
type LibraryBookIDInput struct {
	ID string `path:"id" doc:"Library book ID"`
}

func (s *Server) handleDeleteLibraryBook(ctx context.Context, input *LibraryBookIDInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Library.DeleteBook(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
