package catalog

import (
	"context"
	"log/slog"
)

// Worker drains the enrichment queue in the background. It implements
// suture.Service and wakes whenever the service is triggered.
type Worker struct {
	svc    *Service
	logger *slog.Logger
}

// NewWorker creates the background enrichment worker for svc.
func NewWorker(svc *Service, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{svc: svc, logger: logger}
}

// Serve implements suture.Service. Returns ctx.Err() on shutdown.
func (w *Worker) Serve(ctx context.Context) error {
	w.logger.Info("enrichment worker started")
	defer w.logger.Info("enrichment worker stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.svc.queue.signal:
		}

		n := w.svc.ProcessEnrichmentQueue(ctx, w.svc.batch)
		if n > 0 {
			w.logger.Info("enrichment batch complete", "enriched", n, "remaining", w.svc.queue.len())
		}
		// Keep draining until the queue is empty.
		if w.svc.queue.len() > 0 && ctx.Err() == nil {
			w.svc.queue.notify()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (w *Worker) String() string {
	return "catalog-enrichment"
}
