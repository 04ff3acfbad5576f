package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// flowController holds the only state shared across workers: the closing
// signal and the rate-limiter timeout policy. First-timeout-wins: the
// first worker to observe a rate-limiter timeout closes the whole stream,
// and a timeout is treated as "no more data is currently obtainable",
// never as a fault.
type flowController struct {
	timeoutMS int64

	closeOnce sync.Once
	closing   chan struct{}
	timedOut  atomic.Bool
}

func newFlowController(timeoutMS int64) *flowController {
	return &flowController{
		timeoutMS: timeoutMS,
		closing:   make(chan struct{}),
	}
}

// timeoutEnabled reports whether a rate-limiter timeout ends the stream.
// With an unbounded wait a timeout reported by the server is a protocol
// fault instead.
func (fc *flowController) timeoutEnabled() bool {
	return fc.timeoutMS >= 0
}

// rateLimiterTimeout returns the per-request admission wait budget;
// negative means unbounded.
func (fc *flowController) rateLimiterTimeout() time.Duration {
	if fc.timeoutMS < 0 {
		return -1
	}
	return time.Duration(fc.timeoutMS) * time.Millisecond
}

// close marks the stream as closing. Idempotent.
func (fc *flowController) close() {
	fc.closeOnce.Do(func() { close(fc.closing) })
}

// markRateLimiterTimeout records the first rate-limiter timeout and closes
// the stream.
func (fc *flowController) markRateLimiterTimeout() {
	fc.timedOut.Store(true)
	fc.close()
}

func (fc *flowController) closed() <-chan struct{} {
	return fc.closing
}

func (fc *flowController) rateLimiterTimedOut() bool {
	return fc.timedOut.Load()
}

// budget is one worker's in-flight sample allowance, a counting semaphore
// of MaxInFlightSamplesPerWorker permits. Each item returned by a sampling
// request holds one permit until the reconstructor has fully emitted it.
type budget struct {
	permits chan struct{}
}

func newBudget(maxInFlight int) *budget {
	b := &budget{permits: make(chan struct{}, maxInFlight)}
	for i := 0; i < maxInFlight; i++ {
		b.permits <- struct{}{}
	}
	return b
}

// acquire blocks until at least one permit is available, then greedily
// takes up to max without further blocking. Returns 0 when the stream is
// closing or the context is cancelled.
func (b *budget) acquire(ctx context.Context, closing <-chan struct{}, max int) int {
	select {
	case <-ctx.Done():
		return 0
	case <-closing:
		return 0
	case <-b.permits:
	}

	n := 1
	for n < max {
		select {
		case <-b.permits:
			n++
		default:
			return n
		}
	}
	return n
}

// release returns n permits.
func (b *budget) release(n int) {
	for i := 0; i < n; i++ {
		b.permits <- struct{}{}
	}
}

// outstanding reports how many permits are currently held.
func (b *budget) outstanding() int {
	return cap(b.permits) - len(b.permits)
}
