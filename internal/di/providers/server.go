package providers

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/api"
	"github.com/novelly/novelly-server/internal/catalog"
	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/service"
	"github.com/novelly/novelly-server/internal/sse"
)

// ProvideAPIServer provides the HTTP handler with every route registered.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*DatabaseHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	libraryHandle := do.MustInvoke[*LibraryServiceHandle](i)

	services := &api.Services{
		Catalog:        do.MustInvoke[*catalog.Service](i),
		Book:           do.MustInvoke[*service.BookService](i),
		Library:        libraryHandle.LibraryService,
		History:        do.MustInvoke[*service.HistoryService](i),
		Feed:           do.MustInvoke[*service.FeedService](i),
		Recommendation: do.MustInvoke[*service.RecommendationService](i),
		Interview:      do.MustInvoke[*service.InterviewService](i),
		Database:       dbHandle.Store,
		Cache:          cacheHandle.Store,
		Events:         sseHandle.Manager,
	}

	sseHandler := sse.NewHandler(sseHandle.Manager, api.HeaderUserID, log.ForComponent("sse"))

	return api.NewServer(api.Config{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	}, services, sseHandler, log.ForComponent("api")), nil
}

// ProvideHTTPServer provides the HTTP server. It is started by the
// supervisor tree, not here.
func ProvideHTTPServer(i do.Injector) (*http.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	handler := do.MustInvoke[*api.Server](i)

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, nil
}
