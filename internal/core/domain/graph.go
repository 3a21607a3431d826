// Package domain contains the core domain models and business logic for the entrypoint dependency graph.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// ConstraintIndex is a constraint resolved to its slot.
type ConstraintIndex struct {
	Slot           int
	RequiresAbsent bool
}

// Graph indexes a set of entrypoints by the types they exchange.
// Every distinct exported type is assigned a numeric slot; imports and constraints
// are resolved to those slots by Validate, which also computes the execution order.
type Graph struct {
	entrypoints []*Entrypoint
	names       map[string]int

	slotTypes []InternedString
	slots     map[InternedString]int
	producer  []int

	exportIndex     [][]int
	importIndex     [][]int
	constraintIndex [][]ConstraintIndex

	executionOrder []int
	initialIdx     int
	resultIdx      int
	validated      bool
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		names:      make(map[string]int),
		slots:      make(map[InternedString]int),
		initialIdx: -1,
		resultIdx:  -1,
	}
}

// AddEntrypoint adds an entrypoint to the graph and assigns slots to its exports
// in encounter order.
// It returns an error if the name is taken or one of its exports already has a producer.
func (g *Graph) AddEntrypoint(e *Entrypoint) error {
	if _, exists := g.names[e.Name]; exists {
		return zerr.With(ErrEntrypointAlreadyExists, "entrypoint", e.Name)
	}
	if e.Kind == KindInitial && g.initialIdx >= 0 || e.Kind == KindResult && g.resultIdx >= 0 {
		return zerr.With(ErrAmbiguousBoundary, "entrypoint", e.Name)
	}

	for i, p := range e.Exports {
		if _, exists := g.slots[p.Type]; exists {
			return zerr.With(zerr.With(ErrDuplicateExport, "type", p.Type.String()), "entrypoint", e.Name)
		}
		for _, prev := range e.Exports[:i] {
			if prev.Type == p.Type {
				return zerr.With(zerr.With(ErrDuplicateExport, "type", p.Type.String()), "entrypoint", e.Name)
			}
		}
	}

	idx := len(g.entrypoints)
	exports := make([]int, len(e.Exports))
	for i, p := range e.Exports {
		slot := len(g.slotTypes)
		g.slotTypes = append(g.slotTypes, p.Type)
		g.slots[p.Type] = slot
		g.producer = append(g.producer, idx)
		exports[i] = slot
	}

	g.entrypoints = append(g.entrypoints, e)
	g.names[e.Name] = idx
	g.exportIndex = append(g.exportIndex, exports)

	switch e.Kind {
	case KindInitial:
		g.initialIdx = idx
	case KindResult:
		g.resultIdx = idx
	}

	g.validated = false
	return nil
}

// Validate resolves imports and constraints, verifies that every export is consumed,
// checks owning components and computes the execution order.
func (g *Graph) Validate() error {
	g.validated = false
	g.importIndex = make([][]int, len(g.entrypoints))
	g.constraintIndex = make([][]ConstraintIndex, len(g.entrypoints))

	for i, e := range g.entrypoints {
		imports, err := g.resolveImports(e)
		if err != nil {
			return err
		}
		g.importIndex[i] = imports

		constraints, err := g.resolveConstraints(e)
		if err != nil {
			return err
		}
		g.constraintIndex[i] = constraints
	}

	if err := g.checkUsedExports(); err != nil {
		return err
	}
	if err := g.checkComponents(); err != nil {
		return err
	}
	if err := g.resolveOrder(); err != nil {
		return err
	}

	g.validated = true
	return nil
}

func (g *Graph) resolveImports(e *Entrypoint) ([]int, error) {
	index := make([]int, len(e.Imports))
	for i, p := range e.Imports {
		slot, ok := g.slots[p.Type]
		if !ok {
			return nil, zerr.With(zerr.With(ErrUnresolvedImport, "type", p.Type.String()), "entrypoint", e.Name)
		}
		index[i] = slot
	}
	return index, nil
}

func (g *Graph) resolveConstraints(e *Entrypoint) ([]ConstraintIndex, error) {
	constraints := e.Constraints
	if e.Owner != nil && len(e.Owner.Constraints) > 0 {
		constraints = slices.Concat(e.Owner.Constraints, e.Constraints)
	}

	index := make([]ConstraintIndex, len(constraints))
	for i, c := range constraints {
		slot, ok := g.slots[c.Type]
		if !ok {
			return nil, zerr.With(zerr.With(ErrUnresolvedConstraint, "type", c.Type.String()), "entrypoint", e.Name)
		}
		index[i] = ConstraintIndex{Slot: slot, RequiresAbsent: c.RequiresAbsent}
	}
	return index, nil
}

// checkUsedExports reports every exported slot that no import consumes.
// Constraints gate entrypoints but do not consume values, so they do not count.
func (g *Graph) checkUsedExports() error {
	consumed := make([]bool, len(g.slotTypes))
	for _, imports := range g.importIndex {
		for _, slot := range imports {
			consumed[slot] = true
		}
	}

	var report []string
	var producers []string
	for i, exports := range g.exportIndex {
		var unused []string
		for _, slot := range exports {
			if !consumed[slot] && g.slotTypes[slot] != ContextType {
				unused = append(unused, g.slotTypes[slot].String())
			}
		}
		if len(unused) > 0 {
			name := g.entrypoints[i].Name
			producers = append(producers, name)
			report = append(report, "("+strings.Join(unused, ", ")+")"+name)
		}
	}

	if len(report) > 0 {
		return zerr.With(zerr.With(ErrUnusedExport, "exports", strings.Join(report, "; ")),
			"entrypoints", strings.Join(producers, ", "))
	}
	return nil
}

// checkComponents rejects owning components that share a name but not an identity,
// and components that cannot be constructed.
func (g *Graph) checkComponents() error {
	seen := make(map[string]*Component)
	for _, e := range g.entrypoints {
		c := e.Owner
		if c == nil {
			continue
		}
		if c.New == nil {
			return zerr.With(zerr.With(ErrAmbiguousConstructor, "component", c.Name), "entrypoint", e.Name)
		}
		if prev, ok := seen[c.Name]; ok && prev != c {
			return zerr.With(zerr.With(ErrAmbiguousConstructor, "component", c.Name), "entrypoint", e.Name)
		}
		seen[c.Name] = c
	}
	return nil
}

// resolveOrder computes the execution order with a depth-first dependency walk seeded
// by entrypoints in ascending priority. Registration order breaks priority ties, so
// the same entrypoint list always yields the same order.
func (g *Graph) resolveOrder() error {
	g.executionOrder = make([]int, 0, len(g.entrypoints))
	visited := make([]int, len(g.entrypoints)) // 0: unvisited, 1: visiting, 2: visited
	var path []int

	var visit func(u int) error
	visit = func(u int) error {
		visited[u] = 1
		path = append(path, u)

		for dep := range g.dependencies(u) {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	seeds := make([]int, len(g.entrypoints))
	for i := range seeds {
		seeds[i] = i
	}
	slices.SortStableFunc(seeds, func(a, b int) int {
		pa, pb := g.entrypoints[a].Priority, g.entrypoints[b].Priority
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		default:
			return 0
		}
	})

	for _, idx := range seeds {
		if visited[idx] == 0 {
			if err := visit(idx); err != nil {
				return err
			}
		}
	}

	return nil
}

// dependencies yields the producers of every slot the entrypoint imports or is constrained on.
func (g *Graph) dependencies(idx int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, slot := range g.importIndex[idx] {
			if !yield(g.producer[slot]) {
				return
			}
		}
		for _, c := range g.constraintIndex[idx] {
			if !yield(g.producer[c.Slot]) {
				return
			}
		}
	}
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []int, dep int) error {
	startIdx := slices.Index(path, dep)
	names := make([]string, 0, len(path)-startIdx+1)
	for _, idx := range path[startIdx:] {
		names = append(names, g.entrypoints[idx].Name)
	}
	names = append(names, g.entrypoints[dep].Name)
	return zerr.With(ErrCycleDetected, "cycle", strings.Join(names, " -> "))
}

// Walk returns an iterator that yields entrypoints in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[*Entrypoint] {
	return func(yield func(*Entrypoint) bool) {
		for _, idx := range g.executionOrder {
			if !yield(g.entrypoints[idx]) {
				return
			}
		}
	}
}

// Len returns the number of entrypoints.
func (g *Graph) Len() int {
	return len(g.entrypoints)
}

// Entrypoint returns the entrypoint registered at idx.
func (g *Graph) Entrypoint(idx int) *Entrypoint {
	return g.entrypoints[idx]
}

// SlotCount returns the number of distinct exported types.
func (g *Graph) SlotCount() int {
	return len(g.slotTypes)
}

// SlotType returns the type assigned to slot.
func (g *Graph) SlotType(slot int) InternedString {
	return g.slotTypes[slot]
}

// SlotOf returns the slot assigned to t.
func (g *Graph) SlotOf(t InternedString) (int, bool) {
	slot, ok := g.slots[t]
	return slot, ok
}

// Producer returns the index of the entrypoint exporting slot.
func (g *Graph) Producer(slot int) int {
	return g.producer[slot]
}

// ImportSlots returns the slots read by the entrypoint at idx.
func (g *Graph) ImportSlots(idx int) []int {
	return g.importIndex[idx]
}

// ExportSlots returns the slots written by the entrypoint at idx.
func (g *Graph) ExportSlots(idx int) []int {
	return g.exportIndex[idx]
}

// Constraints returns the resolved constraints of the entrypoint at idx,
// including those inherited from its owning component.
func (g *Graph) Constraints(idx int) []ConstraintIndex {
	return g.constraintIndex[idx]
}

// InitialIndex returns the index of the initial entrypoint, or -1.
func (g *Graph) InitialIndex() int {
	return g.initialIdx
}

// ResultIndex returns the index of the result entrypoint, or -1.
func (g *Graph) ResultIndex() int {
	return g.resultIdx
}
