package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/config"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/sse"
	"github.com/novelly/novelly-server/internal/store"
	"github.com/novelly/novelly-server/internal/store/sqlite"
)

// DatabaseHandle wraps the SQLite store with shutdown capability.
type DatabaseHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *DatabaseHandle) Shutdown() error {
	return h.Close()
}

// ProvideDatabase provides the SQLite store holding the catalog, libraries and history.
func ProvideDatabase(i do.Injector) (*DatabaseHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := cfg.Data.DatabasePath()
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &DatabaseHandle{Store: db}, nil
}

// CacheHandle wraps the Badger cache with shutdown capability.
type CacheHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the Badger cache for lookup answers and home feeds.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cache, err := store.New(store.Options{
		Path:      cfg.Data.CachePath(),
		LookupTTL: cfg.Lookup.CacheTTL,
		MissTTL:   cfg.Lookup.MissTTL,
		FeedTTL:   cfg.Feed.TTL,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Cache initialized",
		"path", cfg.Data.CachePath(),
		"lookup_ttl", cfg.Lookup.CacheTTL,
		"feed_ttl", cfg.Feed.TTL,
	)

	return &CacheHandle{Store: cache}, nil
}

// SSEManagerHandle wraps the SSE manager for lifecycle management.
// The broadcast loop itself runs under the supervisor tree.
type SSEManagerHandle struct {
	*sse.Manager
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &SSEManagerHandle{Manager: sse.NewManager(log.ForComponent("sse"))}, nil
}
