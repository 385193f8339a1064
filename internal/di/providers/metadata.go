package providers

import (
	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/metadata"
	"github.com/novelly/novelly-server/internal/metadata/googlebooks"
	"github.com/novelly/novelly-server/internal/metadata/itunes"
	"github.com/novelly/novelly-server/internal/metadata/openlibrary"
)

// LLMClientHandle wraps the Perplexity client with shutdown capability.
type LLMClientHandle struct {
	*llm.Client
}

// Shutdown implements do.Shutdownable.
func (h *LLMClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideLLMClient provides the generative model client.
func ProvideLLMClient(i do.Injector) (*LLMClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, log.ForComponent("llm"))

	if !client.HasKey() {
		log.Warn("PERPLEXITY_API_KEY is not set, generative requests will fail with 503")
	} else {
		log.Info("LLM client initialized", "model", cfg.LLM.Model)
	}

	return &LLMClientHandle{Client: client}, nil
}

// LookupRegistryHandle wraps the lookup registry and the provider clients it
// owns so they are closed together.
type LookupRegistryHandle struct {
	*metadata.Registry
	closers []func()
}

// Shutdown implements do.Shutdownable.
func (h *LookupRegistryHandle) Shutdown() error {
	for _, c := range h.closers {
		c()
	}
	return nil
}

// ProvideLookupRegistry provides the external book lookup registry.
func ProvideLookupRegistry(i do.Injector) (*LookupRegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)

	lookupLog := log.ForComponent("lookup")
	registry := metadata.NewRegistry(cacheHandle.Store, lookupLog)
	handle := &LookupRegistryHandle{Registry: registry}

	opts := []googlebooks.Option{googlebooks.WithAPIKey(cfg.Lookup.GoogleBooksAPIKey)}
	if cfg.Lookup.GoogleBooksBaseURL != "" {
		opts = append(opts, googlebooks.WithBaseURL(cfg.Lookup.GoogleBooksBaseURL))
	}
	google := googlebooks.NewClient(lookupLog, opts...)
	registry.Register(google)
	handle.closers = append(handle.closers, google.Close)

	ol := openlibrary.NewClient(cfg.Lookup.OpenLibraryBaseURL, lookupLog)
	registry.Register(ol)
	handle.closers = append(handle.closers, ol.Close)

	providerNames := []string{google.Name(), ol.Name()}
	if cfg.Lookup.ITunesEnabled {
		it := itunes.NewClient(cfg.Lookup.ITunesBaseURL, lookupLog)
		registry.Register(it)
		handle.closers = append(handle.closers, it.Close)
		providerNames = append(providerNames, it.Name())
	}

	log.Info("Lookup registry initialized", "providers", providerNames)

	return handle, nil
}
