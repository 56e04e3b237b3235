package paramchan

import (
	"context"
	"sync"

	"github.com/valvesuite/valvekit/internal/quantity"
)

// Counter implements the quota pump's "available" unit counter: the main
// loop blocks on the condition variable while available is zero and
// termination hasn't been requested; the worker applies Set/Add/Terminate
// under the same mutex. A mutex+condvar is kept here literally, rather
// than translated to a channel, because the blocking predicate
// ("available == 0 && !terminated") is a genuine condition wait, not a
// single-value handoff.
type Counter struct {
	mu          sync.Mutex
	cond        *sync.Cond
	available   uint64
	terminated  bool
}

// NewCounter constructs a Counter starting at initial.
func NewCounter(initial uint64) *Counter {
	c := &Counter{available: initial} //nolint:exhaustruct
	c.cond = sync.NewCond(&c.mu)

	return c
}

// Apply applies a parsed Quantity to the counter under the mutex, then wakes
// any waiter.
func (c *Counter) Apply(q quantity.Quantity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch q.Mode {
	case quantity.Set:
		c.available = q.Value
	case quantity.Add:
		c.available = quantity.AddSaturating(c.available, q.Value)
	case quantity.Terminate:
		c.terminated = true
	}

	c.cond.Broadcast()
}

// Take blocks until at least one unit is available, termination has been
// requested, or ctx is cancelled. A unit still available is taken (and true
// reported) even after termination or cancellation; it reports false only
// when it returns with the counter at zero.
func (c *Counter) Take(ctx context.Context) bool {
	done := ctx.Done()
	if done != nil {
		stop := context.AfterFunc(ctx, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.cond.Broadcast()
		})
		defer stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.available == 0 && !c.terminated && ctx.Err() == nil {
		c.cond.Wait()
	}

	if c.available == 0 {
		return false
	}

	c.available--

	return true
}

// Terminate raises the termination flag directly, for FIFO-EOF-with--t
// semantics.
func (c *Counter) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.terminated = true
	c.cond.Broadcast()
}
