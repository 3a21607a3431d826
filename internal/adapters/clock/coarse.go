// Package clock provides a coarse, second-resolution monotonic clock.
package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Coarse implements ports.Clock. A background ticker refreshes an atomic second
// counter, so NowSec is a single atomic load.
type Coarse struct {
	clock  clockwork.Clock
	origin time.Time
	now    atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewCoarse starts a Coarse clock driven by c that refreshes every tick.
// Readings count whole seconds since the clock was created.
func NewCoarse(c clockwork.Clock, tick time.Duration) *Coarse {
	if tick <= 0 {
		tick = time.Second
	}
	cc := &Coarse{
		clock:  c,
		origin: c.Now(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go cc.run(c.NewTicker(tick))
	return cc
}

func (c *Coarse) run(ticker clockwork.Ticker) {
	defer close(c.done)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			c.now.Store(int64(c.clock.Since(c.origin) / time.Second))
		case <-c.stop:
			return
		}
	}
}

// NowSec returns the seconds elapsed since the clock was created, as of the last tick.
func (c *Coarse) NowSec() int64 {
	return c.now.Load()
}

// Close stops the ticker.
func (c *Coarse) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
