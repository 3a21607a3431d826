package flow

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/conduit/internal/adapters/telemetry"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/conduit/internal/engine/lifecycle"
	"go.trai.ch/conduit/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Logger receives container diagnostics.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(err error)
}

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

type containerConfig struct {
	inputs    []domain.Port
	results   []domain.Port
	resolver  ports.Resolver
	logger    ports.Logger
	telemetry ports.Telemetry
	domains   []domain.DomainSettings
}

// ContainerOption configures a Container.
type ContainerOption func(*containerConfig)

// WithInputs declares the values supplied to every run, in Run argument order.
func WithInputs(ps ...Port) ContainerOption {
	return func(c *containerConfig) {
		for _, p := range ps {
			c.inputs = append(c.inputs, p.port())
		}
	}
}

// WithResults declares the values returned by every run. A required result that a
// run did not produce fails the run.
func WithResults(ps ...Port) ContainerOption {
	return func(c *containerConfig) {
		for _, p := range ps {
			c.results = append(c.results, p.port())
		}
	}
}

// WithResolver sets the resolver for component constructor arguments.
func WithResolver(r *Resolver) ContainerOption {
	return func(c *containerConfig) {
		c.resolver = r.m
	}
}

// WithLogger sets the logger for container diagnostics.
func WithLogger(l Logger) ContainerOption {
	return func(c *containerConfig) {
		c.logger = l
	}
}

// WithTelemetry records one vertex per executed entrypoint.
func WithTelemetry(t ports.Telemetry) ContainerOption {
	return func(c *containerConfig) {
		c.telemetry = t
	}
}

// WithDomain carves an execution domain: the entrypoints that turn keys into values.
// The domain runs on its own through Container.Domain.
func WithDomain(name string, keys []Port, values []Port) ContainerOption {
	return func(c *containerConfig) {
		s := domain.DomainSettings{Name: name}
		for _, k := range keys {
			s.Keys = append(s.Keys, k.port().Type)
		}
		for _, v := range values {
			s.Values = append(s.Values, v.port().Type)
		}
		c.domains = append(c.domains, s)
	}
}

// Container runs a validated set of entrypoints as one pipeline per invocation.
// A Container is safe for concurrent use.
type Container struct {
	scheduler *scheduler.Scheduler
	inputs    []domain.InternedString
	results   []domain.InternedString
	logger    ports.Logger
	telemetry ports.Telemetry

	// manager and domains are owned by the root container only.
	manager *lifecycle.Manager
	domains map[string]*Container

	closeOnce sync.Once
	closeErr  error
}

// NewContainer validates the entrypoints, computes the execution plan, prepares
// component instances and carves the configured execution domains. Every structural
// problem is reported here, never during a run.
func NewContainer(entrypoints []*Entrypoint, opts ...ContainerOption) (*Container, error) {
	cfg := containerConfig{
		logger:    nopLogger{},
		telemetry: telemetry.NewNoOp(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	g, err := buildGraph(entrypoints, &cfg)
	if err != nil {
		return nil, err
	}
	plan, err := g.Plan()
	if err != nil {
		return nil, err
	}

	domains, err := g.CarveDomains(cfg.domains...)
	if err != nil {
		return nil, err
	}

	manager, err := lifecycle.NewManager(g, cfg.resolver)
	if err != nil {
		return nil, err
	}

	c := &Container{
		scheduler: scheduler.NewScheduler(plan, manager, cfg.telemetry),
		inputs:    typesOf(cfg.inputs),
		results:   typesOf(cfg.results),
		logger:    cfg.logger,
		telemetry: cfg.telemetry,
		manager:   manager,
		domains:   make(map[string]*Container),
	}

	for _, d := range domains {
		sub := &Container{
			scheduler: scheduler.NewScheduler(g.Subplan(d), manager, cfg.telemetry),
			inputs:    d.Keys,
			results:   d.Values,
			logger:    cfg.logger,
			telemetry: cfg.telemetry,
		}
		for _, name := range append([]string{d.Name}, d.Aliases...) {
			c.domains[name] = sub
		}
	}

	return c, nil
}

func buildGraph(entrypoints []*Entrypoint, cfg *containerConfig) (*domain.Graph, error) {
	g := domain.NewGraph()
	if err := g.AddEntrypoint(domain.NewInitialEntrypoint(cfg.inputs)); err != nil {
		return nil, err
	}
	for _, e := range entrypoints {
		if err := g.AddEntrypoint(e.descriptor()); err != nil {
			return nil, err
		}
	}
	if len(cfg.results) > 0 {
		if err := g.AddEntrypoint(domain.NewResultEntrypoint(cfg.results)); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func typesOf(ps []domain.Port) []domain.InternedString {
	types := make([]domain.InternedString, len(ps))
	for i, p := range ps {
		types[i] = p.Type
	}
	return types
}

// Run executes the pipeline once. inputs are matched to WithInputs in order; pass an
// Option for an optional input that may be absent.
func (c *Container) Run(ctx context.Context, inputs ...any) (Result, error) {
	values, err := c.scheduler.Run(ctx, unwrapOptions(inputs)...)
	if err != nil {
		return Result{}, err
	}
	return Result{types: c.results, values: values}, nil
}

// unwrapOptions replaces Option inputs by slot values, copying inputs only when needed.
func unwrapOptions(inputs []any) []any {
	out := inputs
	copied := false
	for i, in := range inputs {
		o, ok := in.(valuer)
		if !ok {
			continue
		}
		if !copied {
			out = slices.Clone(inputs)
			copied = true
		}
		out[i] = o.value()
	}
	return out
}

// IsAsync reports whether any scheduled entrypoint is asynchronous.
func (c *Container) IsAsync() bool {
	return c.scheduler.IsAsync()
}

// Order returns the entrypoint names in execution order.
func (c *Container) Order() []string {
	return c.scheduler.Plan().Names()
}

// Fingerprint returns a stable hash of the execution plan.
func (c *Container) Fingerprint() string {
	return c.scheduler.Plan().Fingerprint()
}

// Domain returns the container of a carved execution domain. Its inputs are the
// domain keys and its results the domain values, which are always optional.
// Domain containers share the component instances of their root.
func (c *Container) Domain(name string) (*Container, error) {
	d, ok := c.domains[name]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownDomain, "domain", name)
	}
	return d, nil
}

// Domains returns the names of the carved execution domains, aliases included.
func (c *Container) Domains() []string {
	names := make([]string, 0, len(c.domains))
	for name := range c.domains {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close disposes every singleton. Closing a domain container is a no-op.
func (c *Container) Close() error {
	if c.manager == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		if err := c.manager.Close(); err != nil {
			c.logger.Error(err)
			c.closeErr = err
		}
	})
	return c.closeErr
}

// Result holds the values of one run, one per declared result.
type Result struct {
	types  []domain.InternedString
	values []domain.Value
}

// Len returns the number of results.
func (r Result) Len() int {
	return len(r.values)
}

// ResultOf returns the result of type t. A type that is not a declared result is absent.
// ResultOf panics if the result holds a value of another Go type than T.
func ResultOf[T any](r Result, t Type[T]) Option[T] {
	i := slices.Index(r.types, t.id)
	if i < 0 || i >= len(r.values) {
		return None[T]()
	}
	return optionOf[T](t.id, r.values[i])
}
