// Package sample defines the units that flow through a replay stream: the
// prioritized items fetched from the remote table, the replay samples
// emitted to the consumer and the table metadata the server declares.
package sample

import (
	"github.com/c360/replaystream/element"
)

// Info carries the sampling metadata of one prioritized item. Immutable
// once produced by a sampling response.
type Info struct {
	// Key is the item's 64-bit id within the table.
	Key uint64
	// Probability is the probability with which the item was sampled.
	Probability float64
	// TableSize is the number of items in the table at sampling time.
	TableSize uint64
	// Priority is the item's priority at sampling time.
	Priority float64
}

// Timestep is one element of a sampled sequence: the flattened tensor
// leaves of an element spec, in path order.
type Timestep = []element.Tensor

// PrioritizedItem is one sampled unit as returned by a sampling RPC: its
// info plus the ordered sequence of timesteps. An item is owned
// exclusively by the worker that fetched it until fully consumed.
type PrioritizedItem struct {
	Info      Info
	Timesteps []Timestep
}

// ReplaySample is the externally visible unit of the stream.
//
// In timestep mode, Data is a single timestep and Info has length 1. In
// whole-sequence mode, Data holds the item's timesteps stacked so every
// leaf carries the sequence length as its leading dimension, and Info
// repeats the item's info once per timestep, aligned with that dimension.
type ReplaySample struct {
	Info []Info
	Data Timestep
}

// RateLimiterInfo mirrors the server-declared rate limiter configuration
// of a table. The client never enforces these values; they are exposed for
// diagnostics only.
type RateLimiterInfo struct {
	MinSizeToSample  int64   `json:"min_size_to_sample"`
	SamplesPerInsert float64 `json:"samples_per_insert"`
}

// Sampler policy names a server may declare for a table. A FIFO sampler
// makes the table queue-like: concurrent fetch would race and violate
// strict insertion order, so such tables must be consumed by one worker.
const (
	SamplerFIFO        = "fifo"
	SamplerPrioritized = "prioritized"
	SamplerUniform     = "uniform"
)

// TableInfo is the metadata a server declares for one table.
type TableInfo struct {
	Name        string
	Sampler     string
	Remover     string
	MaxSize     int64
	CurrentSize int64
	RateLimiter RateLimiterInfo
	// Signature is the table's declared per-timestep element spec, or nil
	// when the table was created without one.
	Signature *element.Spec
}
