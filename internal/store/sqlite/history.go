package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/store"
)

const historyColumns = `id, user_id, source_type, prompt_context, recommendations, intro_text, cost, created_at`

func scanHistory(scanner interface{ Scan(dest ...any) error }) (*domain.RecHistoryItem, error) {
	var (
		h         domain.RecHistoryItem
		source    string
		recs      string
		createdAt string
	)
	if err := scanner.Scan(&h.ID, &h.UserID, &source, &h.PromptContext, &recs, &h.IntroText, &h.Cost, &createdAt); err != nil {
		return nil, err
	}
	h.SourceType = domain.SourceType(source)

	if err := json.Unmarshal([]byte(recs), &h.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if h.Recommendations == nil {
		h.Recommendations = []domain.Book{}
	}

	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHistory appends a recommendation session to the history log.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateHistory(ctx context.Context, h *domain.RecHistoryItem) error {
	recs := h.Recommendations
	if recs == nil {
		recs = []domain.Book{}
	}
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO rec_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, string(h.SourceType), h.PromptContext, string(payload),
		h.IntroText, h.Cost, formatTime(h.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// GetHistory retrieves one of a user's history items.
// Returns store.ErrNotFound if it does not exist or belongs to another user.
func (s *Store) GetHistory(ctx context.Context, userID, historyID string) (*domain.RecHistoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM rec_history WHERE id = ? AND user_id = ?`, historyID, userID)

	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return h, nil
}

// ListHistory returns a user's history, newest first.
// A non-positive limit returns everything.
func (s *Store) ListHistory(ctx context.Context, userID string, limit int) ([]*domain.RecHistoryItem, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM rec_history WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	items := []*domain.RecHistoryItem{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
