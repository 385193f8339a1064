// Package providers holds the samber/do constructors that assemble the server.
// Each returns a value or a Handle whose Shutdown releases what it owns.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/logger"
)

// ProvideConfig loads flags, environment and .env into a validated Config.
func ProvideConfig(do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger builds the root logger. Components derive from it with
// ForComponent.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	dev := cfg.App.Environment == "development"

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   dev,
	})

	boot := log.ForComponent("boot")
	boot.Info("novelly starting",
		"environment", cfg.App.Environment,
		"data_path", cfg.Data.BasePath,
		"port", cfg.Server.Port,
	)
	if dev {
		boot.Debug("catalog settings",
			"queue", cfg.Catalog.EnrichmentQueueSize,
			"enrichment_batch", cfg.Catalog.EnrichmentBatch,
			"hydration_batch", cfg.Catalog.HydrationBatchSize,
		)
	}
	return log, nil
}
