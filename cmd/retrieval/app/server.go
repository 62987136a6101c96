// Package app provides the retrieval server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/provenance/cmd/retrieval/app/options"
	retrievalsvc "github.com/kart-io/provenance/internal/retrieval"
	"github.com/kart-io/provenance/pkg/infra/app"
)

const (
	// commandDesc is the description of the command.
	commandDesc = `Provenance Retrieval Service

The source-toggleable hybrid retrieval core.

This server provides:
  - Knowledge source registration with enable/disable/quarantine toggling
  - Hybrid retrieval fusing vector similarity, source reliability and chunk confidence
  - Document ingestion with vector embeddings
  - Append-only audit records for every query`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName(retrievalsvc.Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
