// Package telemetry provides telemetry adapters that do not render progress themselves.
package telemetry

import (
	"context"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
)

// NoOp is a no-op implementation of ports.Telemetry.
type NoOp struct{}

// NewNoOp creates a new NoOp telemetry.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Record returns ctx unchanged and a vertex that discards everything.
func (t *NoOp) Record(ctx context.Context, _ string) (context.Context, ports.Vertex) {
	return ctx, noOpVertex{}
}

// Close does nothing.
func (t *NoOp) Close() error {
	return nil
}

type noOpVertex struct{}

func (noOpVertex) Log(domain.LogLevel, string) {}
func (noOpVertex) Complete(error)              {}
func (noOpVertex) Skipped()                    {}
func (noOpVertex) Cached()                     {}
