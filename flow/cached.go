package flow

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/conduit/internal/adapters/clock"
	"go.trai.ch/conduit/internal/adapters/store"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/conduit/internal/engine/swr"
	"go.trai.ch/zerr"
)

// Clock reports whole seconds on a monotonic scale.
type Clock interface {
	NowSec() int64
}

// CacheStore holds cache entries with a time to live.
type CacheStore[K comparable, E any] interface {
	Set(key K, entry E, ttl time.Duration)
	TryGet(key K) (E, bool)
}

// CacheEntry is the value a CacheStore holds for one key.
type CacheEntry[V any] = swr.Entry[V]

// Pair is a two-part cache key.
type Pair[A, B comparable] struct {
	First  A
	Second B
}

// CacheConfig configures a Cached container.
type CacheConfig struct {
	// Expire is how long a value is kept.
	Expire time.Duration
	// Outdate is how long a value is served before one caller refreshes it.
	Outdate time.Duration
	// Shards is the number of entry-creation locks.
	Shards int
	// SweepInterval is how often the default store removes expired entries.
	SweepInterval time.Duration
	// Clock overrides the default coarse clock.
	Clock Clock

	store any
}

// CacheOption configures a Cached container.
type CacheOption func(*CacheConfig)

// WithExpire sets the expire TTL.
func WithExpire(d time.Duration) CacheOption {
	return func(c *CacheConfig) { c.Expire = d }
}

// WithOutdate sets the outdate TTL. It must not exceed the expire TTL.
func WithOutdate(d time.Duration) CacheOption {
	return func(c *CacheConfig) { c.Outdate = d }
}

// WithShards sets the number of entry-creation locks.
func WithShards(n int) CacheOption {
	return func(c *CacheConfig) { c.Shards = n }
}

// WithSweepInterval sets how often the default store sweeps expired entries.
func WithSweepInterval(d time.Duration) CacheOption {
	return func(c *CacheConfig) { c.SweepInterval = d }
}

// WithClock replaces the default coarse clock.
func WithClock(c Clock) CacheOption {
	return func(cfg *CacheConfig) { cfg.Clock = c }
}

// WithCacheStore replaces the default in-memory store.
func WithCacheStore[K comparable, V any](s CacheStore[K, *CacheEntry[V]]) CacheOption {
	return func(c *CacheConfig) { c.store = s }
}

// Cached memoizes the results of a container keyed by its inputs. Values are served
// until they are outdated, then refreshed by a single caller while every other
// caller keeps the last good value, and removed once they expire.
type Cached[K comparable, V any] struct {
	container *Container
	cache     *swr.Cache[K, V]
	telemetry ports.Telemetry
	name      string

	// coarse is set when the cache owns its clock.
	coarse *clock.Coarse
}

// NewCached caches a container with the single input key and the result value.
func NewCached[K comparable, V any](
	c *Container,
	key Type[K],
	value Type[V],
	opts ...CacheOption,
) (*Cached[K, V], error) {
	return newCached(c, []domain.InternedString{key.id}, value, func(k K) []any {
		return []any{k}
	}, opts)
}

// NewCachedPair caches a container with the two inputs a and b and the result value.
func NewCachedPair[A, B comparable, V any](
	c *Container,
	a Type[A],
	b Type[B],
	value Type[V],
	opts ...CacheOption,
) (*Cached[Pair[A, B], V], error) {
	return newCached(c, []domain.InternedString{a.id, b.id}, value, func(k Pair[A, B]) []any {
		return []any{k.First, k.Second}
	}, opts)
}

type ranKey struct{}

func newCached[K comparable, V any](
	c *Container,
	inputs []domain.InternedString,
	value Type[V],
	split func(K) []any,
	opts []CacheOption,
) (*Cached[K, V], error) {
	if !slices.Equal(c.inputs, inputs) {
		return nil, zerr.With(zerr.With(domain.ErrInvalidInputs,
			"expected", len(c.inputs)), "got", len(inputs))
	}
	idx := -1
	for i, t := range c.results {
		if t == value.id {
			idx = i
		}
	}
	if idx < 0 {
		return nil, zerr.With(domain.ErrResultUnavailable, "type", value.Name())
	}

	cfg := CacheConfig{
		Expire:        domain.DefaultExpireTTL,
		SweepInterval: domain.DefaultSweepInterval,
		Shards:        domain.DefaultShards,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cached := &Cached[K, V]{
		container: c,
		telemetry: c.telemetry,
		name:      "cache " + value.Name(),
	}
	var clk ports.Clock = cfg.Clock
	if clk == nil {
		cached.coarse = clock.NewCoarse(clockwork.NewRealClock(), domain.DefaultClockTick)
		clk = cached.coarse
	}

	var cacheStore ports.CacheStore[K, *swr.Entry[V]]
	switch s := cfg.store.(type) {
	case nil:
		cacheStore = store.NewMemory[K, *swr.Entry[V]](clk, cfg.SweepInterval)
	case CacheStore[K, *CacheEntry[V]]:
		cacheStore = s
	default:
		cached.closeClock()
		return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "cache store"), "type", value.Name())
	}

	getter := func(ctx context.Context, key K) (V, error) {
		if ran, ok := ctx.Value(ranKey{}).(*atomic.Bool); ok {
			ran.Store(true)
		}
		var zero V
		r, err := c.Run(ctx, split(key)...)
		if err != nil {
			return zero, err
		}
		o, err := typedOption[V](value.id, r.values[idx])
		if err != nil {
			return zero, err
		}
		v, ok := o.Get()
		if !ok {
			return zero, zerr.With(domain.ErrResultUnavailable, "type", value.Name())
		}
		return v, nil
	}

	cache, err := swr.New(getter, swr.Options[K, V]{
		ExpireTTL:  cfg.Expire,
		OutdateTTL: cfg.Outdate,
		Shards:     cfg.Shards,
		Store:      cacheStore,
		Clock:      clk,
	})
	if err != nil {
		cached.closeClock()
		return nil, err
	}
	cached.cache = cache
	return cached, nil
}

// Get returns the cached value for key, running the container on a miss or a
// refresh. A caller served without running the container records a cached vertex.
func (c *Cached[K, V]) Get(ctx context.Context, key K) (V, error) {
	ran := new(atomic.Bool)
	vctx, vertex := c.telemetry.Record(context.WithValue(ctx, ranKey{}, ran), c.name)
	v, err := c.cache.Get(vctx, key)
	if err == nil && !ran.Load() {
		vertex.Cached()
	} else {
		vertex.Complete(err)
	}
	return v, err
}

// GetBatch returns the values of the distinct keys, in first-occurrence order.
// Missing keys are computed concurrently.
func (c *Cached[K, V]) GetBatch(ctx context.Context, keys []K) ([]KeyValue[K, V], error) {
	return c.cache.GetBatch(ctx, keys)
}

// KeyValue pairs a key with its cached value.
type KeyValue[K comparable, V any] = swr.KeyValue[K, V]

// IsAsync reports whether the cached container is asynchronous.
func (c *Cached[K, V]) IsAsync() bool {
	return c.container.IsAsync()
}

// Close stops the cache clock when the cache owns it. The container is not closed.
func (c *Cached[K, V]) Close() error {
	c.closeClock()
	return nil
}

func (c *Cached[K, V]) closeClock() {
	if c.coarse != nil {
		_ = c.coarse.Close()
	}
}
