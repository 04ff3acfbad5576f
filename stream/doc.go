// Package stream implements the replay sampling stream: a fixed pool of
// concurrent fetch workers pulling prioritized items from a remote table
// and reconstructing them into a single pull-based sequence of replay
// samples.
//
// A Stream composes three pieces per worker:
//
//   - a flow controller gating how many sampled items may be in flight
//     (requested but not yet fully emitted) at once,
//   - the sampling loop issuing flexible-batch requests through a Client,
//   - a timestep reconstructor turning each fetched item into either one
//     whole-sequence emission or a contiguous run of timestep emissions.
//
// Ordering is guaranteed per worker only. Consumers that need strict
// insertion order (queue-like tables) must run exactly one worker; the
// auto-selection does this for tables with a FIFO sampler.
//
// The first rate-limiter timeout reported by any worker closes the whole
// stream: remaining in-flight items are drained and Next then returns
// ErrEndOfStream, indistinguishable from an explicit Stop. Any other
// sampling error tears the stream down and is returned from Next.
package stream
