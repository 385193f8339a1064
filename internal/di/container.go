// Package di provides dependency injection configuration for the Novelly server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/api"
	"github.com/novelly/novelly-server/internal/catalog"
	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/di/providers"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideDatabase)
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideSSEManager)

	// External sources
	do.Provide(injector, providers.ProvideLLMClient)
	do.Provide(injector, providers.ProvideLookupRegistry)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideHistoryService)
	do.Provide(injector, providers.ProvideFeedService)
	do.Provide(injector, providers.ProvideRecommendationService)
	do.Provide(injector, providers.ProvideInterviewService)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	// Supervision
	do.Provide(injector, providers.ProvideSupervisor)

	return injector
}

// Bootstrap initializes all services and starts the supervisor tree.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.DatabaseHandle](injector)
	_ = do.MustInvoke[*providers.CacheHandle](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.LLMClientHandle](injector)
	_ = do.MustInvoke[*providers.LookupRegistryHandle](injector)

	// Business services
	_ = do.MustInvoke[*catalog.Service](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*providers.LibraryServiceHandle](injector)
	_ = do.MustInvoke[*service.HistoryService](injector)
	_ = do.MustInvoke[*service.FeedService](injector)
	_ = do.MustInvoke[*service.RecommendationService](injector)
	_ = do.MustInvoke[*service.InterviewService](injector)

	// Server
	_ = do.MustInvoke[*api.Server](injector)

	// Start workers and the HTTP server last
	_ = do.MustInvoke[*providers.SupervisorHandle](injector)

	return nil
}
