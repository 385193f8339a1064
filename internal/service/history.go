package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/id"
	"github.com/novelly/novelly-server/internal/store"
)

// DefaultHistoryLimit caps history listings when the caller gives no limit.
const DefaultHistoryLimit = 50

// HistoryStore persists recommendation sessions.
type HistoryStore interface {
	CreateHistory(ctx context.Context, h *domain.RecHistoryItem) error
	GetHistory(ctx context.Context, userID, historyID string) (*domain.RecHistoryItem, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]*domain.RecHistoryItem, error)
}

// HistoryService records completed recommendation sessions.
type HistoryService struct {
	store  HistoryStore
	logger *slog.Logger
}

// NewHistoryService creates a new history service.
func NewHistoryService(store HistoryStore, logger *slog.Logger) *HistoryService {
	return &HistoryService{store: store, logger: logger}
}

// SaveHistory appends a session to the user's history. Sessions without
// recommendations are not recorded and return nil.
func (s *HistoryService) SaveHistory(ctx context.Context, item *domain.RecHistoryItem) (*domain.RecHistoryItem, error) {
	if len(item.Recommendations) == 0 {
		s.logger.Debug("skipping empty recommendation history", "user_id", item.UserID)
		return nil, nil
	}
	if !item.SourceType.Valid() {
		return nil, domainerrors.Validationf("unknown source type %q", item.SourceType)
	}

	if item.ID == "" {
		historyID, err := id.Generate(id.History)
		if err != nil {
			return nil, fmt.Errorf("generate history ID: %w", err)
		}
		item.ID = historyID
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	if err := s.store.CreateHistory(ctx, item); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}

	s.logger.Info("recommendation history saved",
		"user_id", item.UserID,
		"history_id", item.ID,
		"source_type", item.SourceType,
		"count", len(item.Recommendations),
	)
	return item, nil
}

// GetHistory returns the user's sessions, newest first.
func (s *HistoryService) GetHistory(ctx context.Context, userID string, limit int) ([]*domain.RecHistoryItem, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	items, err := s.store.ListHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return items, nil
}

// GetHistoryItem returns one of the user's sessions.
func (s *HistoryService) GetHistoryItem(ctx context.Context, userID, historyID string) (*domain.RecHistoryItem, error) {
	if !id.Valid(id.History, historyID) {
		return nil, domainerrors.NotFoundf("history item %s not found", historyID)
	}
	item, err := s.store.GetHistory(ctx, userID, historyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("history item %s not found", historyID)
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	return item, nil
}
