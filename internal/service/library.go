package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/id"
	"github.com/novelly/novelly-server/internal/sse"
	"github.com/novelly/novelly-server/internal/store"
)

// LibraryStore persists users' saved books.
type LibraryStore interface {
	CreateLibraryBook(ctx context.Context, b *domain.LibraryBook) error
	GetLibraryBook(ctx context.Context, userID, bookID string) (*domain.LibraryBook, error)
	GetLibraryBookByKey(ctx context.Context, userID, catalogKey string) (*domain.LibraryBook, error)
	ListLibraryBooks(ctx context.Context, userID string, status domain.BookStatus) ([]*domain.LibraryBook, error)
	UpdateLibraryBook(ctx context.Context, b *domain.LibraryBook) error
	DeleteLibraryBook(ctx context.Context, userID, bookID string) error
}

// AddBookInput describes a book being saved to a library.
type AddBookInput struct {
	Title       string
	Author      string
	CoverImage  string
	Description string
	Status      domain.BookStatus
	Genres      []string
	Rating      int
	Notes       string
}

// LibraryService orchestrates personal library operations.
// Saving a book also registers it in the shared catalog in the background.
type LibraryService struct {
	store   LibraryStore
	catalog Catalog
	events  EventEmitter
	logger  *slog.Logger

	background sync.WaitGroup
}

// NewLibraryService creates a new library service. events may be nil.
func NewLibraryService(store LibraryStore, catalog Catalog, events EventEmitter, logger *slog.Logger) *LibraryService {
	if events == nil {
		events = nopEmitter{}
	}
	return &LibraryService{
		store:   store,
		catalog: catalog,
		events:  events,
		logger:  logger,
	}
}

// AddBook saves a book to the user's library, or refreshes the existing
// record when the user already saved the same title and author.
func (s *LibraryService) AddBook(ctx context.Context, userID string, in AddBookInput) (*domain.LibraryBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domainerrors.Validation("title cannot be empty")
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = domain.UnknownAuthor
	}
	status := in.Status
	if status == "" {
		status = domain.StatusTBR
	}
	if !status.Valid() {
		return nil, domainerrors.Validationf("unknown status %q", status)
	}

	key := domain.MakeCatalogKey(title, author)
	now := time.Now().UTC()

	book, err := s.store.GetLibraryBookByKey(ctx, userID, key)
	switch {
	case err == nil:
		mergeLibraryInput(book, in)
		book.SetStatus(status, now)
		if err := s.store.UpdateLibraryBook(ctx, book); err != nil {
			return nil, fmt.Errorf("update library book: %w", err)
		}
		s.logger.Info("library book refreshed", "user_id", userID, "book_id", book.ID, "catalog_key", key)

	case errors.Is(err, store.ErrNotFound):
		bookID, err := id.Generate(id.LibraryBook)
		if err != nil {
			return nil, fmt.Errorf("generate library book ID: %w", err)
		}
		book = &domain.LibraryBook{
			ID:         bookID,
			UserID:     userID,
			Title:      title,
			Author:     author,
			CatalogKey: key,
			Genres:     []string{},
			AddedAt:    now,
		}
		mergeLibraryInput(book, in)
		book.SetStatus(status, now)
		if err := s.store.CreateLibraryBook(ctx, book); err != nil {
			return nil, fmt.Errorf("create library book: %w", err)
		}
		s.logger.Info("library book added", "user_id", userID, "book_id", book.ID, "catalog_key", key)

	default:
		return nil, fmt.Errorf("get library book: %w", err)
	}

	partial := &domain.PartialBook{
		Title:       title,
		Author:      author,
		CoverImage:  book.CoverImage,
		Description: book.Description,
	}
	bg := context.WithoutCancel(ctx)
	s.background.Go(func() {
		entry := s.catalog.EnsureInCatalog(bg, title, author, partial, false)
		if entry == nil {
			s.logger.Warn("saved book not cataloged", "catalog_key", key)
			return
		}
		s.catalog.IncrementSaved(bg, entry.CatalogKey)
	})

	s.events.Emit(sse.NewLibraryBookAddedEvent(book))
	return book, nil
}

// mergeLibraryInput copies the non-empty input fields onto b.
func mergeLibraryInput(b *domain.LibraryBook, in AddBookInput) {
	if in.CoverImage != "" {
		b.CoverImage = in.CoverImage
	}
	if in.Description != "" {
		b.Description = in.Description
	}
	if len(in.Genres) > 0 {
		b.Genres = append([]string(nil), in.Genres...)
	}
	if in.Rating > 0 {
		b.Rating = min(in.Rating, 5)
	}
	if in.Notes != "" {
		b.Notes = in.Notes
	}
}

// UpdateStatus moves a library book to a new status.
func (s *LibraryService) UpdateStatus(ctx context.Context, userID, bookID string, status domain.BookStatus) (*domain.LibraryBook, error) {
	if !status.Valid() {
		return nil, domainerrors.Validationf("unknown status %q", status)
	}
	return s.update(ctx, userID, bookID, func(b *domain.LibraryBook, now time.Time) {
		b.SetStatus(status, now)
	})
}

// UpdateProgress records reading progress as a percentage from 0 to 100.
func (s *LibraryService) UpdateProgress(ctx context.Context, userID, bookID string, progress int) (*domain.LibraryBook, error) {
	if progress < 0 || progress > 100 {
		return nil, domainerrors.Validationf("progress must be between 0 and 100, got %d", progress)
	}
	return s.update(ctx, userID, bookID, func(b *domain.LibraryBook, now time.Time) {
		b.SetProgress(progress, now)
	})
}

func (s *LibraryService) update(ctx context.Context, userID, bookID string, apply func(*domain.LibraryBook, time.Time)) (*domain.LibraryBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	book, err := s.store.GetLibraryBook(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("library book %s not found", bookID)
		}
		return nil, fmt.Errorf("get library book: %w", err)
	}

	apply(book, time.Now().UTC())
	if err := s.store.UpdateLibraryBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update library book: %w", err)
	}

	s.events.Emit(sse.NewLibraryBookUpdatedEvent(book))
	return book, nil
}

// DeleteBook removes a book from the user's library.
func (s *LibraryService) DeleteBook(ctx context.Context, userID, bookID string) error {
	if err := s.store.DeleteLibraryBook(ctx, userID, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("library book %s not found", bookID)
		}
		return fmt.Errorf("delete library book: %w", err)
	}

	s.logger.Info("library book removed", "user_id", userID, "book_id", bookID)
	s.events.Emit(sse.NewLibraryBookRemovedEvent(userID, bookID))
	return nil
}

// ListBooks returns the user's library, optionally filtered by status.
func (s *LibraryService) ListBooks(ctx context.Context, userID string, status domain.BookStatus) ([]*domain.LibraryBook, error) {
	if status != "" && !status.Valid() {
		return nil, domainerrors.Validationf("unknown status %q", status)
	}
	books, err := s.store.ListLibraryBooks(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list library books: %w", err)
	}
	return books, nil
}

// LoadLibraryIndex returns the user's saved books keyed by catalog key.
func (s *LibraryService) LoadLibraryIndex(ctx context.Context, userID string) (*domain.LibraryIndex, error) {
	books, err := s.ListBooks(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	return domain.NewLibraryIndex(books), nil
}

// Wait blocks until background catalog registrations have finished.
func (s *LibraryService) Wait() {
	s.background.Wait()
}
