// Package swr implements a keyed stale-while-revalidate cache with single-flight
// computation, soft outdated refresh and hard expiry.
package swr

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/conduit/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultShards is the number of entry-creation locks when Options.Shards is unset.
const DefaultShards = 256

// Getter computes the value for key.
type Getter[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Options configures a Cache.
type Options[K comparable, V any] struct {
	// ExpireTTL is how long an entry lives in the store.
	ExpireTTL time.Duration
	// OutdateTTL is how long a value is served before a refresh is attempted.
	// Zero means values are never refreshed before they expire.
	OutdateTTL time.Duration
	Shards     int
	Store      ports.CacheStore[K, *Entry[V]]
	Clock      ports.Clock
	// Hash overrides the shard hash of a key.
	Hash func(K) uint64
}

// KeyValue pairs a key with its value.
type KeyValue[K comparable, V any] struct {
	Key   K
	Value V
}

// Cache memoizes a Getter. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	get   Getter[K, V]
	store ports.CacheStore[K, *Entry[V]]
	clock ports.Clock
	hash  func(K) uint64
	locks []sync.Mutex

	expire     time.Duration
	outdateSec int64
}

// New creates a Cache over get.
func New[K comparable, V any](get Getter[K, V], opts Options[K, V]) (*Cache[K, V], error) {
	if opts.Store == nil {
		return nil, zerr.New("cache store is required")
	}
	if opts.Clock == nil {
		return nil, zerr.New("cache clock is required")
	}
	if opts.ExpireTTL <= 0 {
		opts.ExpireTTL = domain.DefaultExpireTTL
	}
	if opts.OutdateTTL > opts.ExpireTTL {
		return nil, zerr.With(zerr.With(domain.ErrInvalidTTL,
			"outdate", opts.OutdateTTL.String()), "expire", opts.ExpireTTL.String())
	}
	if opts.OutdateTTL <= 0 {
		opts.OutdateTTL = opts.ExpireTTL
	}
	if opts.Shards <= 0 {
		opts.Shards = DefaultShards
	}
	if opts.Hash == nil {
		opts.Hash = hashKey[K]
	}

	return &Cache[K, V]{
		get:        get,
		store:      opts.Store,
		clock:      opts.Clock,
		hash:       opts.Hash,
		locks:      make([]sync.Mutex, opts.Shards),
		expire:     opts.ExpireTTL,
		outdateSec: int64((opts.OutdateTTL + time.Second - 1) / time.Second),
	}, nil
}

func hashKey[K comparable](key K) uint64 {
	switch k := any(key).(type) {
	case string:
		return xxhash.Sum64String(k)
	case int:
		return xxhash.Sum64String(strconv.Itoa(k))
	case int64:
		return xxhash.Sum64String(strconv.FormatInt(k, 10))
	case fmt.Stringer:
		return xxhash.Sum64String(k.String())
	default:
		return xxhash.Sum64String(fmt.Sprintf("%#v", k))
	}
}

// Get returns the value for key.
//
// A missing key is computed once no matter how many callers ask for it; the
// computation is detached from the caller's cancellation and every waiter honours
// its own context. An outdated value is refreshed by exactly one caller while
// everyone else keeps receiving the last good value. A failed refresh is reported
// only to the caller that attempted it.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	now := c.clock.NowSec()
	if e, ok := c.store.TryGet(key); ok && !e.failed() {
		return c.hit(ctx, key, e, now)
	}
	return c.miss(ctx, key, now)
}

func (c *Cache[K, V]) hit(ctx context.Context, key K, e *Entry[V], now int64) (V, error) {
	if !e.completed() {
		return wait(ctx, e)
	}

	word := e.outdated.Load()
	if word&claimBit == 0 && now >= word>>1 && e.outdated.CompareAndSwap(word, word|claimBit) {
		return c.refresh(ctx, key, e, word)
	}
	return e.res.Load().value, nil
}

func (c *Cache[K, V]) refresh(ctx context.Context, key K, e *Entry[V], word int64) (V, error) {
	v, err := c.get(ctx, key)
	if err != nil {
		e.outdated.Store(word)
		var zero V
		return zero, zerr.Wrap(err, "cache refresh failed")
	}

	e.res.Store(&result[V]{value: v})
	e.outdated.Store((c.clock.NowSec() + c.outdateSec) << 1)
	c.store.Set(key, e, c.expire)
	return v, nil
}

func (c *Cache[K, V]) miss(ctx context.Context, key K, now int64) (V, error) {
	mu := &c.locks[c.hash(key)%uint64(len(c.locks))]
	mu.Lock()
	if e, ok := c.store.TryGet(key); ok && !e.failed() {
		mu.Unlock()
		return wait(ctx, e)
	}
	e := newEntry[V](now + c.outdateSec)
	c.store.Set(key, e, c.expire)
	mu.Unlock()

	go func(ctx context.Context) {
		e.resolve(c.get(ctx, key))
	}(context.WithoutCancel(ctx))

	return wait(ctx, e)
}

func wait[V any](ctx context.Context, e *Entry[V]) (V, error) {
	select {
	case <-e.done:
		r := e.res.Load()
		return r.value, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// GetBatch returns the values for keys, fetching distinct keys concurrently.
// Duplicate keys are fetched once and reported once, in first-seen order.
func (c *Cache[K, V]) GetBatch(ctx context.Context, keys []K) ([]KeyValue[K, V], error) {
	seen := make(map[K]struct{}, len(keys))
	out := make([]KeyValue[K, V], 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, KeyValue[K, V]{Key: k})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			v, err := c.Get(gctx, out[i].Key)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "batch get failed"), "key", fmt.Sprint(out[i].Key))
			}
			out[i].Value = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
