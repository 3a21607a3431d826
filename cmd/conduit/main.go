// Package main is the entry point for the conduit pipeline tool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/conduit/cmd/conduit/commands"
	"go.trai.ch/conduit/internal/app"
	"go.trai.ch/conduit/internal/core/domain"
	_ "go.trai.ch/conduit/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		// Write directly to stderr
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		if err := components.App.Close(); err != nil {
			components.Logger.Error(err)
		}
	}()

	// 2. Interface - CLI
	cli := commands.New(components.App)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		// Failed runs were already logged one by one.
		if errors.Is(err, domain.ErrSimulationFailed) {
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
