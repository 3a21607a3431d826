package domain

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Plan is a validated, immutable execution order over a graph together with the
// slots seeded from a run's initial inputs and the slots read back as its result.
// A plan is built once and reused by every run.
type Plan struct {
	name    string
	graph   *Graph
	order   []int
	seeds   []int
	results []int
	// resultOptional marks result slots whose absence is reported as an absent Value.
	resultOptional []bool
	async          bool
}

// Plan returns the plan of the whole graph. Seeds are the exports of the initial
// entrypoint and results are the imports of the result entrypoint.
func (g *Graph) Plan() (*Plan, error) {
	if !g.validated {
		return nil, ErrGraphNotValidated
	}

	p := &Plan{
		name:  "main",
		graph: g,
		order: g.executionOrder,
	}
	if g.initialIdx >= 0 {
		p.seeds = g.exportIndex[g.initialIdx]
	}
	if g.resultIdx >= 0 {
		p.results = g.importIndex[g.resultIdx]
		p.resultOptional = make([]bool, len(p.results))
		for i, port := range g.entrypoints[g.resultIdx].Imports {
			p.resultOptional[i] = port.Optional
		}
	}
	p.async = g.anyAsync(p.order)
	return p, nil
}

func (g *Graph) anyAsync(order []int) bool {
	for _, idx := range order {
		if g.entrypoints[idx].Async {
			return true
		}
	}
	return false
}

// Name returns the plan name: "main" or the execution domain name.
func (p *Plan) Name() string {
	return p.name
}

// Graph returns the graph the plan was built from.
func (p *Plan) Graph() *Graph {
	return p.graph
}

// Order returns the entrypoint indices in execution order.
func (p *Plan) Order() []int {
	return p.order
}

// Seeds returns the slots written from a run's initial inputs, in input order.
// When the graph exports the context type, its slot is the last seed.
func (p *Plan) Seeds() []int {
	return p.seeds
}

// Results returns the slots read back as a run's result.
func (p *Plan) Results() []int {
	return p.results
}

// ResultOptional reports whether the i-th result may be absent.
func (p *Plan) ResultOptional(i int) bool {
	return p.resultOptional[i]
}

// InputCount returns the number of caller-supplied inputs, excluding the context.
func (p *Plan) InputCount() int {
	n := len(p.seeds)
	if n > 0 && p.graph.slotTypes[p.seeds[n-1]] == ContextType {
		n--
	}
	return n
}

// IsAsync reports whether any scheduled entrypoint suspends.
func (p *Plan) IsAsync() bool {
	return p.async
}

// Names returns the entrypoint names in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.order))
	for i, idx := range p.order {
		names[i] = p.graph.entrypoints[idx].Name
	}
	return names
}

// Fingerprint returns a stable hash of the execution order and slot wiring.
// Two plans built from the same entrypoint list have the same fingerprint.
func (p *Plan) Fingerprint() string {
	hasher := xxhash.New()
	for _, idx := range p.order {
		_, _ = hasher.WriteString(p.graph.entrypoints[idx].Name)
		_, _ = hasher.Write([]byte{0})
		for _, slot := range p.graph.importIndex[idx] {
			_, _ = hasher.WriteString(strconv.Itoa(slot))
			_, _ = hasher.Write([]byte{','})
		}
		_, _ = hasher.Write([]byte{0})
	}
	for _, slot := range p.seeds {
		_, _ = hasher.WriteString(strconv.Itoa(slot))
		_, _ = hasher.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", hasher.Sum64())
}
