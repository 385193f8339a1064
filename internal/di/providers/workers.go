package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/catalog"
	"github.com/novelly/novelly-server/internal/logger"
	"github.com/novelly/novelly-server/internal/supervisor"
)

// shutdownTimeout bounds each stage of graceful shutdown: the supervisor
// tree, the HTTP server drain and the SSE event drain.
const shutdownTimeout = 30 * time.Second

// SupervisorHandle runs the supervisor tree in the background.
type SupervisorHandle struct {
	*supervisor.Tree
	cancel context.CancelFunc
	done   <-chan error
	log    *logger.Logger
}

// Shutdown implements do.Shutdownable. It stops the HTTP server and the
// workers and waits for the tree to finish.
func (h *SupervisorHandle) Shutdown() error {
	h.cancel()

	select {
	case err := <-h.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-time.After(shutdownTimeout):
		if report, err := h.UnstoppedServiceReport(); err == nil && len(report) > 0 {
			h.log.Warn("Services did not stop in time", "count", len(report))
		}
		return errors.New("supervisor shutdown timed out")
	}

	h.log.Info("Supervisor tree stopped")
	return nil
}

// ProvideSupervisor builds the supervisor tree and starts it. The HTTP
// server begins listening here.
func ProvideSupervisor(i do.Injector) (*SupervisorHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	catalogService := do.MustInvoke[*catalog.Service](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	srv := do.MustInvoke[*http.Server](i)

	tree := supervisor.NewTree(log.ForComponent("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddWorker(catalog.NewWorker(catalogService, log.ForComponent("enrichment")))
	tree.AddWorker(sseHandle.Manager)
	tree.AddAPIService(supervisor.NewHTTPService(srv, shutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	log.Info("Server running", "addr", srv.Addr)

	return &SupervisorHandle{Tree: tree, cancel: cancel, done: done, log: log}, nil
}
