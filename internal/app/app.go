// Package app implements the application layer for conduit.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.trai.ch/conduit/flow"
	"go.trai.ch/conduit/internal/adapters/clock"
	"go.trai.ch/conduit/internal/adapters/telemetry"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	telemetry    ports.Telemetry
	clock        clockwork.Clock
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, logger ports.Logger, tel ports.Telemetry, clk clockwork.Clock) *App {
	return &App{
		configLoader: loader,
		logger:       logger,
		telemetry:    tel,
		clock:        clk,
	}
}

// SimulateOptions configures a simulation.
type SimulateOptions struct {
	// Runs is the number of pipeline invocations.
	Runs int
	// Concurrency bounds the number of runs in flight. Zero means unbounded.
	Concurrency int
	// Cache routes runs through a stale-while-revalidate cache keyed by the single input.
	Cache bool
	// Keys is the number of distinct input values cycled through by the runs.
	Keys int
}

func (a *App) load(path string) (*domain.Settings, error) {
	settings, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if l, ok := a.logger.(interface{ SetJSON(enable bool) }); ok {
		l.SetJSON(settings.LogJSON)
	}
	return settings, nil
}

// Plan validates the pipeline manifest and writes its execution order, fingerprint
// and execution domains to w.
func (a *App) Plan(path string, w io.Writer) error {
	settings, err := a.load(path)
	if err != nil {
		return err
	}

	c, err := BuildContainer(&settings.Pipeline, a.clock, flow.WithLogger(a.logger))
	if err != nil {
		return zerr.Wrap(err, "invalid pipeline")
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			a.logger.Error(cerr)
		}
	}()

	specs := make(map[string]*domain.EntrypointSpec, len(settings.Pipeline.Entrypoints))
	for i := range settings.Pipeline.Entrypoints {
		specs[settings.Pipeline.Entrypoints[i].Name] = &settings.Pipeline.Entrypoints[i]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "plan %s (async: %t)\n", c.Fingerprint(), c.IsAsync())
	step := 0
	for _, name := range c.Order() {
		spec, ok := specs[name]
		if !ok {
			continue
		}
		step++
		fmt.Fprintf(&b, "%3d. %s", step, name)
		if len(spec.Imports) > 0 {
			fmt.Fprintf(&b, " <- %s", formatPorts(spec.Imports))
		}
		if len(spec.Exports) > 0 {
			fmt.Fprintf(&b, " -> %s", formatPorts(spec.Exports))
		}
		b.WriteByte('\n')
	}
	for _, name := range c.Domains() {
		d, err := c.Domain(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "domain %s: %s\n", name, strings.Join(d.Order(), ", "))
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func formatPorts(ps []domain.Port) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Type.String()
		if p.Optional {
			names[i] += "?"
		}
	}
	return strings.Join(names, ", ")
}

// Simulate runs the manifest's pipeline opts.Runs times with synthetic entrypoints
// and writes a summary to w. Every failed run is logged; the returned error wraps
// domain.ErrSimulationFailed when any run failed.
func (a *App) Simulate(ctx context.Context, path string, opts SimulateOptions, w io.Writer) error {
	settings, err := a.load(path)
	if err != nil {
		return err
	}
	if opts.Runs <= 0 {
		opts.Runs = 1
	}
	if opts.Keys <= 0 {
		opts.Keys = opts.Runs
	}

	counting := telemetry.NewCounting(a.telemetry)
	c, err := BuildContainer(&settings.Pipeline, a.clock,
		flow.WithLogger(a.logger), flow.WithTelemetry(counting))
	if err != nil {
		return zerr.Wrap(err, "invalid pipeline")
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			a.logger.Error(cerr)
		}
	}()

	run, closeRun, err := a.runner(c, settings, opts)
	if err != nil {
		return err
	}
	defer closeRun()

	runID := uuid.NewString()
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i := range opts.Runs {
		g.Go(func() error {
			if err := run(gctx, i%opts.Keys); err != nil {
				if gctx.Err() != nil {
					return err
				}
				failed.Add(1)
				a.logger.Error(zerr.With(zerr.With(err, "simulation", runID), "run", i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(domain.ErrRunCanceled, err)
	}

	counts := counting.Counts()
	_, err = fmt.Fprintf(w,
		"simulation %s: %d runs, %d failed\nvertices: %d completed, %d skipped, %d failed, %d cached\n",
		runID, opts.Runs, failed.Load(),
		counts[domain.VertexStatusCompleted], counts[domain.VertexStatusSkipped],
		counts[domain.VertexStatusFailed], counts[domain.VertexStatusCached])
	if err != nil {
		return err
	}

	if n := failed.Load(); n > 0 {
		return errors.Join(domain.ErrSimulationFailed,
			zerr.With(zerr.New("runs failed"), "failed_runs", n))
	}
	return nil
}

type runFunc func(ctx context.Context, key int) error

// runner returns the function executing one simulated run, either directly on the
// container or through a cache keyed by the single input.
func (a *App) runner(c *flow.Container, settings *domain.Settings, opts SimulateOptions) (runFunc, func(), error) {
	m := &settings.Pipeline
	if !opts.Cache {
		return func(ctx context.Context, key int) error {
			_, err := c.Run(ctx, syntheticInputs(m.Inputs, key)...)
			return err
		}, func() {}, nil
	}

	if len(m.Inputs) != 1 || len(m.Results) == 0 {
		return nil, nil, zerr.With(zerr.With(domain.ErrInvalidConfig,
			"field", "pipeline"), "reason", "caching needs exactly one input and a result")
	}

	coarse := clock.NewCoarse(a.clock, settings.ClockTick)
	cached, err := flow.NewCached(c,
		flow.NewType[string](m.Inputs[0].Type.String()),
		flow.NewType[any](m.Results[0].Type.String()),
		flow.WithClock(coarse),
		flow.WithExpire(settings.Cache.Expire),
		flow.WithOutdate(settings.Cache.Outdate),
		flow.WithShards(settings.Cache.Shards),
		flow.WithSweepInterval(settings.Cache.SweepInterval),
	)
	if err != nil {
		_ = coarse.Close()
		return nil, nil, err
	}

	input := m.Inputs[0].Type.String()
	run := func(ctx context.Context, key int) error {
		_, err := cached.Get(ctx, input+"#"+strconv.Itoa(key))
		return err
	}
	return run, func() { _ = coarse.Close() }, nil
}

// syntheticInputs builds the inputs of one run. Optional inputs are absent for odd keys.
func syntheticInputs(inputs []domain.Port, key int) []any {
	values := make([]any, len(inputs))
	for i, p := range inputs {
		v := p.Type.String() + "#" + strconv.Itoa(key)
		switch {
		case !p.Optional:
			values[i] = v
		case key%2 == 0:
			values[i] = flow.Some[any](v)
		default:
			values[i] = flow.None[any]()
		}
	}
	return values
}

// Close releases the telemetry session.
func (a *App) Close() error {
	return a.telemetry.Close()
}
