package swr

import (
	"sync/atomic"
)

// claimBit marks an outdated entry whose refresh has been claimed by one caller.
const claimBit = 1

type result[V any] struct {
	value V
	err   error
}

// Entry is one cached key. It starts as an in-flight computation and becomes a
// completed value once done is closed.
type Entry[V any] struct {
	done chan struct{}
	res  atomic.Pointer[result[V]]
	// outdated holds the outdate deadline in seconds shifted left by one; the low
	// bit is the refresh claim.
	outdated atomic.Int64
}

func newEntry[V any](outdateAt int64) *Entry[V] {
	e := &Entry[V]{done: make(chan struct{})}
	e.outdated.Store(outdateAt << 1)
	return e
}

func (e *Entry[V]) resolve(v V, err error) {
	e.res.Store(&result[V]{value: v, err: err})
	close(e.done)
}

func (e *Entry[V]) completed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Entry[V]) failed() bool {
	return e.completed() && e.res.Load().err != nil
}
