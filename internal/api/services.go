package api

import (
	"github.com/novelly/novelly-server/internal/catalog"
	"github.com/novelly/novelly-server/internal/service"
	"github.com/novelly/novelly-server/internal/sse"
	"github.com/novelly/novelly-server/internal/store"
	"github.com/novelly/novelly-server/internal/store/sqlite"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Catalog        *catalog.Service
	Book           *service.BookService
	Library        *service.LibraryService
	History        *service.HistoryService
	Feed           *service.FeedService
	Recommendation *service.RecommendationService
	Interview      *service.InterviewService

	// Health check targets. Nil entries are reported as unavailable.
	Database *sqlite.Store
	Cache    *store.Store
	Events   *sse.Manager
}
