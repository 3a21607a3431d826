// Package store implements in-memory cache storage with a background sweep of expired entries.
package store

import (
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/conduit/internal/core/ports"
)

type record[E any] struct {
	entry    E
	expireAt int64
}

// Memory implements ports.CacheStore in process memory. Expired entries are
// reported as missing immediately and removed by a sweep that Set starts at most
// once per sweep interval.
type Memory[K comparable, E any] struct {
	clock      ports.Clock
	sweepEvery int64

	entries   sync.Map
	nextSweep atomic.Int64
	sweeps    sync.WaitGroup
}

// NewMemory creates an empty store. A non-positive sweepInterval disables sweeping.
func NewMemory[K comparable, E any](clock ports.Clock, sweepInterval time.Duration) *Memory[K, E] {
	m := &Memory[K, E]{
		clock:      clock,
		sweepEvery: seconds(sweepInterval),
	}
	m.nextSweep.Store(clock.NowSec() + m.sweepEvery)
	return m
}

func seconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

// Set stores entry under key until ttl elapses.
func (m *Memory[K, E]) Set(key K, entry E, ttl time.Duration) {
	now := m.clock.NowSec()
	m.entries.Store(key, &record[E]{entry: entry, expireAt: now + seconds(ttl)})
	m.maybeSweep(now)
}

// TryGet returns the live entry stored under key.
func (m *Memory[K, E]) TryGet(key K) (E, bool) {
	var zero E
	v, ok := m.entries.Load(key)
	if !ok {
		return zero, false
	}
	rec := v.(*record[E]) //nolint:forcetypeassert // map only holds records
	if m.clock.NowSec() >= rec.expireAt {
		return zero, false
	}
	return rec.entry, true
}

// Len returns the number of stored entries, expired or not.
func (m *Memory[K, E]) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Wait blocks until every started sweep has finished.
func (m *Memory[K, E]) Wait() {
	m.sweeps.Wait()
}

func (m *Memory[K, E]) maybeSweep(now int64) {
	if m.sweepEvery <= 0 {
		return
	}
	next := m.nextSweep.Load()
	if now < next || !m.nextSweep.CompareAndSwap(next, now+m.sweepEvery) {
		return
	}
	m.sweeps.Go(func() {
		m.sweep(now)
	})
}

func (m *Memory[K, E]) sweep(now int64) {
	m.entries.Range(func(key, v any) bool {
		if rec := v.(*record[E]); now >= rec.expireAt { //nolint:forcetypeassert // map only holds records
			m.entries.CompareAndDelete(key, v)
		}
		return true
	})
}
