package providers

import (
	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/catalog"
	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/service"
)

// ProvideCatalogService provides the shared book catalog.
func ProvideCatalogService(i do.Injector) (*catalog.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*DatabaseHandle](i)
	llmHandle := do.MustInvoke[*LLMClientHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc := catalog.NewService(dbHandle.Store, llmHandle.Client, catalog.Options{
		Model:           cfg.LLM.Model,
		QueueCapacity:   cfg.Catalog.EnrichmentQueueSize,
		EnrichmentBatch: cfg.Catalog.EnrichmentBatch,
		Events:          sseHandle.Manager,
	}, log.ForComponent("catalog"))

	log.Info("Catalog service initialized",
		"queue_capacity", cfg.Catalog.EnrichmentQueueSize,
		"enrichment_batch", cfg.Catalog.EnrichmentBatch,
	)

	return svc, nil
}

// ProvideBookService provides the book hydration service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalogService := do.MustInvoke[*catalog.Service](i)
	registryHandle := do.MustInvoke[*LookupRegistryHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return service.NewBookService(catalogService, registryHandle.Registry, sseHandle.Manager, service.BookServiceConfig{
		BatchSize:  cfg.Catalog.HydrationBatchSize,
		BatchDelay: cfg.Catalog.HydrationDelay,
	}, log.ForComponent("hydration")), nil
}

// LibraryServiceHandle wraps the library service so pending catalog
// enrichment started by library writes finishes before the database closes.
type LibraryServiceHandle struct {
	*service.LibraryService
}

// Shutdown implements do.Shutdownable.
func (h *LibraryServiceHandle) Shutdown() error {
	h.Wait()
	return nil
}

// ProvideLibraryService provides the personal library service.
func ProvideLibraryService(i do.Injector) (*LibraryServiceHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*DatabaseHandle](i)
	catalogService := do.MustInvoke[*catalog.Service](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc := service.NewLibraryService(dbHandle.Store, catalogService, sseHandle.Manager, log.ForComponent("library"))
	return &LibraryServiceHandle{LibraryService: svc}, nil
}

// ProvideHistoryService provides the recommendation history service.
func ProvideHistoryService(i do.Injector) (*service.HistoryService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*DatabaseHandle](i)

	return service.NewHistoryService(dbHandle.Store, log.ForComponent("history")), nil
}

// ProvideFeedService provides the home feed service.
func ProvideFeedService(i do.Injector) (*service.FeedService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	llmHandle := do.MustInvoke[*LLMClientHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	books := do.MustInvoke[*service.BookService](i)

	return service.NewFeedService(llmHandle.Client, books, cacheHandle.Store, cfg.LLM.Model, log.ForComponent("feed")), nil
}

// ProvideRecommendationService provides the recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	llmHandle := do.MustInvoke[*LLMClientHandle](i)
	books := do.MustInvoke[*service.BookService](i)
	libraryHandle := do.MustInvoke[*LibraryServiceHandle](i)
	history := do.MustInvoke[*service.HistoryService](i)

	return service.NewRecommendationService(
		llmHandle.Client,
		books,
		libraryHandle.LibraryService,
		history,
		service.RecommendationServiceConfig{
			Model:     cfg.LLM.Model,
			DeepModel: cfg.LLM.DeepModel,
		},
		log.ForComponent("recommendation"),
	), nil
}

// ProvideInterviewService provides the reader interview service.
func ProvideInterviewService(i do.Injector) (*service.InterviewService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	llmHandle := do.MustInvoke[*LLMClientHandle](i)

	return service.NewInterviewService(llmHandle.Client, cfg.LLM.Model, log.ForComponent("interview")), nil
}
