package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
)

func TestHistoryService_SaveAndList(t *testing.T) {
	svc := NewHistoryService(newTestSQLite(t), testLogger())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, mode := range []domain.SourceType{domain.SourceQuick, domain.SourceContext, domain.SourceInterview} {
		saved, err := svc.SaveHistory(ctx, &domain.RecHistoryItem{
			UserID:          "user-1",
			SourceType:      mode,
			PromptContext:   string(mode),
			Recommendations: []domain.Book{domain.NewBookFromRaw(domain.RawRecommendation{Title: "Dune", Author: "Frank Herbert"})},
			Cost:            0.01,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.NotEmpty(t, saved.ID)
	}

	items, err := svc.GetHistory(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, domain.SourceInterview, items[0].SourceType, "newest first")
	assert.Equal(t, domain.SourceQuick, items[2].SourceType)

	limited, err := svc.GetHistory(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	item, err := svc.GetHistoryItem(ctx, "user-1", items[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceContext, item.SourceType)
	require.Len(t, item.Recommendations, 1)
	assert.Equal(t, "Dune", item.Recommendations[0].Title)

	_, err = svc.GetHistoryItem(ctx, "user-2", items[1].ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestHistoryService_SkipsEmpty(t *testing.T) {
	svc := NewHistoryService(newTestSQLite(t), testLogger())
	ctx := context.Background()

	saved, err := svc.SaveHistory(ctx, &domain.RecHistoryItem{UserID: "user-1", SourceType: domain.SourceQuick})
	require.NoError(t, err)
	assert.Nil(t, saved)

	items, err := svc.GetHistory(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistoryService_RejectsUnknownSource(t *testing.T) {
	svc := NewHistoryService(newTestSQLite(t), testLogger())

	_, err := svc.SaveHistory(context.Background(), &domain.RecHistoryItem{
		UserID:          "user-1",
		SourceType:      "random",
		Recommendations: []domain.Book{{Title: "Dune"}},
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestHistoryService_MalformedID(t *testing.T) {
	svc := NewHistoryService(newTestSQLite(t), testLogger())

	_, err := svc.GetHistoryItem(context.Background(), "user-1", "../etc/passwd")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
