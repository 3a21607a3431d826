// Package scheduler implements the execution engine that runs a plan once per invocation.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/conduit/internal/engine/lifecycle"
	"go.trai.ch/zerr"
)

// Scheduler runs one plan. A Scheduler is safe for concurrent use; every run gets
// its own pooled run state and instance scope.
type Scheduler struct {
	plan      *domain.Plan
	graph     *domain.Graph
	manager   *lifecycle.Manager
	telemetry ports.Telemetry

	inputCount  int
	contextSlot int
	maxExports  int

	states sync.Pool
}

// runState is the per-run value store. It is acquired empty and returned emptied:
// every slot is absent and every scratch buffer holds zero values.
type runState struct {
	values []any
	none   []bool
	// inputs holds one scratch buffer per graph entrypoint, sized to its imports.
	inputs  [][]domain.Value
	outputs []domain.Value
}

// NewScheduler creates a Scheduler for plan. Instances are obtained from manager,
// which must have been built for the plan's graph.
func NewScheduler(plan *domain.Plan, manager *lifecycle.Manager, telemetry ports.Telemetry) *Scheduler {
	g := plan.Graph()
	s := &Scheduler{
		plan:        plan,
		graph:       g,
		manager:     manager,
		telemetry:   telemetry,
		inputCount:  plan.InputCount(),
		contextSlot: -1,
	}
	if seeds := plan.Seeds(); len(seeds) > s.inputCount {
		s.contextSlot = seeds[s.inputCount]
	}
	for _, idx := range plan.Order() {
		s.maxExports = max(s.maxExports, len(g.ExportSlots(idx)))
	}

	s.states.New = func() any {
		st := &runState{
			values:  make([]any, g.SlotCount()),
			none:    make([]bool, g.SlotCount()),
			inputs:  make([][]domain.Value, g.Len()),
			outputs: make([]domain.Value, s.maxExports),
		}
		for i := range st.none {
			st.none[i] = true
		}
		for _, idx := range plan.Order() {
			st.inputs[idx] = make([]domain.Value, len(g.ImportSlots(idx)))
		}
		return st
	}
	return s
}

// Plan returns the plan the scheduler runs.
func (s *Scheduler) Plan() *domain.Plan {
	return s.plan
}

// IsAsync reports whether any scheduled entrypoint suspends.
func (s *Scheduler) IsAsync() bool {
	return s.plan.IsAsync()
}

func (s *Scheduler) acquire() *runState {
	return s.states.Get().(*runState) //nolint:forcetypeassert // pool only holds run states
}

func (s *Scheduler) release(st *runState) {
	clear(st.values)
	for i := range st.none {
		st.none[i] = true
	}
	for _, buf := range st.inputs {
		clear(buf)
	}
	clear(st.outputs)
	s.states.Put(st)
}

// Run executes the plan once. inputs seed the initial slots in declaration order;
// an input passed as a domain.Value is taken as is, so optional inputs may be absent.
//
// The returned slice holds one Value per result. A required result that was never
// produced fails the run with domain.ErrResultUnavailable. Instance disposal always
// runs, and its error is joined with the run error.
func (s *Scheduler) Run(ctx context.Context, inputs ...any) ([]domain.Value, error) {
	if len(inputs) != s.inputCount {
		return nil, zerr.With(zerr.With(domain.ErrInvalidInputs, "expected", s.inputCount), "got", len(inputs))
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(domain.ErrRunCanceled, err)
	}

	st := s.acquire()
	defer s.release(st)

	scope, err := s.manager.NewScope()
	if err != nil {
		return nil, err
	}

	s.seed(ctx, st, inputs)

	results, err := s.walk(ctx, st, scope)
	if cerr := scope.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scheduler) seed(ctx context.Context, st *runState, inputs []any) {
	seeds := s.plan.Seeds()
	for i, in := range inputs {
		slot := seeds[i]
		if v, ok := in.(domain.Value); ok {
			if v.Present {
				st.values[slot] = v.V
				st.none[slot] = false
			}
			continue
		}
		st.values[slot] = in
		st.none[slot] = false
	}
	if s.contextSlot >= 0 {
		st.values[s.contextSlot] = ctx
		st.none[s.contextSlot] = false
	}
}

func (s *Scheduler) walk(ctx context.Context, st *runState, scope *lifecycle.Scope) ([]domain.Value, error) {
	for _, idx := range s.plan.Order() {
		e := s.graph.Entrypoint(idx)
		if e.Kind != domain.KindComponent {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(domain.ErrRunCanceled,
				zerr.With(zerr.Wrap(err, "run canceled"), "entrypoint", e.Name))
		}

		in, ok := s.load(st, idx)
		if !ok {
			s.skip(st, idx)
			_, v := s.telemetry.Record(ctx, e.Name)
			v.Skipped()
			continue
		}

		if err := s.invoke(ctx, st, scope, idx, in); err != nil {
			return nil, err
		}
	}
	return s.results(st)
}

// load checks the constraints of the entrypoint at idx and fills its input buffer.
// It reports false when a constraint fails or a required import is absent.
func (s *Scheduler) load(st *runState, idx int) ([]domain.Value, bool) {
	for _, c := range s.graph.Constraints(idx) {
		if st.none[c.Slot] != c.RequiresAbsent {
			return nil, false
		}
	}

	e := s.graph.Entrypoint(idx)
	buf := st.inputs[idx]
	for i, slot := range s.graph.ImportSlots(idx) {
		if st.none[slot] {
			if !e.Imports[i].Optional {
				return nil, false
			}
			buf[i] = domain.Value{}
			continue
		}
		buf[i] = domain.Value{V: st.values[slot], Present: true}
	}
	return buf, true
}

// skip marks every export of the entrypoint at idx absent, so the absence cascades
// to every transitive consumer.
func (s *Scheduler) skip(st *runState, idx int) {
	for _, slot := range s.graph.ExportSlots(idx) {
		st.values[slot] = nil
		st.none[slot] = true
	}
}

func (s *Scheduler) invoke(
	ctx context.Context,
	st *runState,
	scope *lifecycle.Scope,
	idx int,
	in []domain.Value,
) error {
	e := s.graph.Entrypoint(idx)
	exports := s.graph.ExportSlots(idx)
	out := st.outputs[:len(exports)]
	clear(out)

	vctx, v := s.telemetry.Record(ctx, e.Name)

	instance, err := scope.Instance(idx)
	if err == nil && e.Invoke != nil {
		// Async entrypoints block here until their work completes; this wait is the
		// run's only suspension point.
		err = e.Invoke(vctx, instance, in, out)
	}
	v.Complete(err)
	if err != nil {
		return classify(ctx, e.Name, err)
	}

	for i, slot := range exports {
		if e.Invoke == nil || e.Exports[i].Optional && !out[i].Present {
			st.values[slot] = nil
			st.none[slot] = true
			continue
		}
		st.values[slot] = out[i].V
		st.none[slot] = false
	}
	return nil
}

func classify(ctx context.Context, name string, err error) error {
	wrapped := zerr.With(zerr.Wrap(err, "entrypoint failed"), "entrypoint", name)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(domain.ErrRunCanceled, wrapped)
	}
	return errors.Join(domain.ErrRunFailed, wrapped)
}

func (s *Scheduler) results(st *runState) ([]domain.Value, error) {
	slots := s.plan.Results()
	if len(slots) == 0 {
		return nil, nil
	}

	results := make([]domain.Value, len(slots))
	for i, slot := range slots {
		if st.none[slot] {
			if !s.plan.ResultOptional(i) {
				return nil, zerr.With(domain.ErrResultUnavailable, "type", s.graph.SlotType(slot).String())
			}
			continue
		}
		results[i] = domain.Value{V: st.values[slot], Present: true}
	}
	return results, nil
}
