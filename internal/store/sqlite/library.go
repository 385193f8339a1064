package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/store"
)

const libraryColumns = `id, user_id, catalog_key, title, author, cover_image, description,
	status, progress, rating, notes, genres, added_at, updated_at, started_at, finished_at`

func scanLibraryBook(scanner interface{ Scan(dest ...any) error }) (*domain.LibraryBook, error) {
	var (
		b          domain.LibraryBook
		status     string
		genres     string
		addedAt    string
		updatedAt  string
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	err := scanner.Scan(
		&b.ID, &b.UserID, &b.CatalogKey, &b.Title, &b.Author, &b.CoverImage, &b.Description,
		&status, &b.Progress, &b.Rating, &b.Notes, &genres,
		&addedAt, &updatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BookStatus(status)

	if b.Genres, err = decodeList(genres); err != nil {
		return nil, err
	}
	if b.Genres == nil {
		b.Genres = []string{}
	}
	if b.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if b.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, err
	}
	if b.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateLibraryBook inserts a new library book.
// Returns store.ErrAlreadyExists if the user already saved the same title and author.
func (s *Store) CreateLibraryBook(ctx context.Context, b *domain.LibraryBook) error {
	genres, err := encodeList(b.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO library_books (`+libraryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.CatalogKey, b.Title, b.Author, b.CoverImage, b.Description,
		string(b.Status), b.Progress, b.Rating, b.Notes, genres,
		formatTime(b.AddedAt), formatTime(b.UpdatedAt),
		nullTimeString(b.StartedAt), nullTimeString(b.FinishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert library book: %w", err)
	}
	return nil
}

// GetLibraryBook retrieves one of a user's library books by ID.
// Returns store.ErrNotFound if it does not exist or belongs to another user.
func (s *Store) GetLibraryBook(ctx context.Context, userID, bookID string) (*domain.LibraryBook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM library_books WHERE id = ? AND user_id = ?`, bookID, userID)

	b, err := scanLibraryBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get library book: %w", err)
	}
	return b, nil
}

// GetLibraryBookByKey retrieves a user's library book by catalog key.
// Returns store.ErrNotFound if the user has not saved it.
func (s *Store) GetLibraryBookByKey(ctx context.Context, userID, catalogKey string) (*domain.LibraryBook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM library_books WHERE user_id = ? AND catalog_key = ?`, userID, catalogKey)

	b, err := scanLibraryBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get library book: %w", err)
	}
	return b, nil
}

// ListLibraryBooks returns a user's library, most recently updated first.
// An empty status returns every book.
func (s *Store) ListLibraryBooks(ctx context.Context, userID string, status domain.BookStatus) ([]*domain.LibraryBook, error) {
	query := `SELECT ` + libraryColumns + ` FROM library_books WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list library books: %w", err)
	}
	defer rows.Close()

	books := []*domain.LibraryBook{}
	for rows.Next() {
		b, err := scanLibraryBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// UpdateLibraryBook writes the mutable fields of a library book.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) UpdateLibraryBook(ctx context.Context, b *domain.LibraryBook) error {
	genres, err := encodeList(b.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE library_books SET
			cover_image = ?, description = ?, status = ?, progress = ?, rating = ?,
			notes = ?, genres = ?, updated_at = ?, started_at = ?, finished_at = ?
		WHERE id = ? AND user_id = ?`,
		b.CoverImage, b.Description, string(b.Status), b.Progress, b.Rating,
		b.Notes, genres, formatTime(b.UpdatedAt),
		nullTimeString(b.StartedAt), nullTimeString(b.FinishedAt),
		b.ID, b.UserID,
	)
	if err != nil {
		return fmt.Errorf("update library book: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteLibraryBook removes a book from a user's library.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) DeleteLibraryBook(ctx context.Context, userID, bookID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM library_books WHERE id = ? AND user_id = ?`, bookID, userID)
	if err != nil {
		return fmt.Errorf("delete library book: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
