package telemetry

import (
	"context"
	"maps"
	"sync"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
)

// Counting decorates a ports.Telemetry and tallies the final status of every vertex.
type Counting struct {
	next ports.Telemetry

	mu     sync.Mutex
	counts map[domain.VertexStatus]int
}

// NewCounting wraps next.
func NewCounting(next ports.Telemetry) *Counting {
	return &Counting{
		next:   next,
		counts: make(map[domain.VertexStatus]int),
	}
}

// Record starts a vertex on the wrapped telemetry.
func (c *Counting) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	ctx, v := c.next.Record(ctx, name)
	cv := &countingVertex{Vertex: v, parent: c}
	return ports.ContextWithVertex(ctx, cv), cv
}

// Close closes the wrapped telemetry.
func (c *Counting) Close() error {
	return c.next.Close()
}

// Counts returns a snapshot of the number of vertices per terminal status.
func (c *Counting) Counts() map[domain.VertexStatus]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}

func (c *Counting) add(status domain.VertexStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[status]++
}

type countingVertex struct {
	ports.Vertex
	parent *Counting
}

func (v *countingVertex) Complete(err error) {
	if err != nil {
		v.parent.add(domain.VertexStatusFailed)
	} else {
		v.parent.add(domain.VertexStatusCompleted)
	}
	v.Vertex.Complete(err)
}

func (v *countingVertex) Skipped() {
	v.parent.add(domain.VertexStatusSkipped)
	v.Vertex.Skipped()
}

func (v *countingVertex) Cached() {
	v.parent.add(domain.VertexStatusCached)
	v.Vertex.Cached()
}
