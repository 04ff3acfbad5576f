// Package replaystream provides a streaming client for remote prioritized
// replay tables, turning server-side experience buffers into continuous,
// memory-bounded sequences of training examples.
//
// # Philosophy
//
// The server owns all policy: prioritization, eviction and rate limiting
// happen remotely. This module is the consuming side only - it issues
// flexible-batch sampling requests, validates what comes back against a
// declared element spec, and reconstructs the results into an ordered
// stream of timesteps (or whole sequences) that a training loop can pull
// from at its own pace.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Stream                   │  Pull-based consumer API
//	│   (Start, Next, Stop, Stats)        │  (stream package)
//	└─────────────────────────────────────┘
//	           ↓ owns N workers
//	┌─────────────────────────────────────┐
//	│   Flow Controller + Worker Pool     │  In-flight budget, draining,
//	│      + Timestep Reconstructor       │  first-timeout-wins close
//	└─────────────────────────────────────┘
//	           ↓ samples via
//	┌─────────────────────────────────────┐
//	│        Table Client (NATS)          │  replay.v1.* request/reply
//	│  (tableclient over natsclient)      │  (tableclient package)
//	└─────────────────────────────────────┘
//
// Data definitions live in element (dtypes, shapes, specs, tensors) and
// sample (sampled items and emitted replay samples). The streamtest
// package carries an in-memory fake of the remote service for tests.
//
// # Memory bound
//
// Each worker may hold at most MaxInFlightSamplesPerWorker sampled items
// that have not yet been fully emitted, and the output channel is bounded.
// A slow consumer therefore blocks workers before they can request more
// data; memory held is proportional to workers x in-flight budget x item
// size, never to table size.
package replaystream
