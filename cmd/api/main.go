// Command api runs the Novelly HTTP server and its background workers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/novelly/novelly-server/internal/di"
	"github.com/novelly/novelly-server/internal/logger"
)

func main() {
	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "novelly: bootstrap: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector).ForComponent("boot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	log.Info("shutting down")

	// Dependents stop first: supervisor, library writes, SSE, cache, database.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}

	log.Info("Happy reading.")
}
