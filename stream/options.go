package stream

import (
	"log/slog"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/metric"
)

// Auto selects a server- or client-negotiated default for the knobs that
// accept it.
const Auto = -1

const (
	defaultMaxInFlightSamplesPerWorker = 100
	defaultMaxSamplesPerStream         = 10000
	defaultFlexibleBatchSize           = 32
	defaultOutputBufferSize            = 16
	maxAutoWorkers                     = 16
)

// Options configures a Stream. All fields are validated eagerly, before
// any network call is made.
type Options struct {
	// MaxInFlightSamplesPerWorker bounds how many sampled items one worker
	// may hold that have not yet been fully emitted. Higher values give
	// higher throughput but skew the sampling distribution, as many items
	// are drawn from a single snapshot of the table. A good rule of thumb
	// is 2-3x the training batch size.
	MaxInFlightSamplesPerWorker int

	// NumWorkers is the number of concurrent fetch workers. Auto selects 1
	// for tables with a FIFO sampler (concurrent fetch would race and
	// violate strict insertion order) and a value scaled to available
	// parallelism otherwise.
	NumWorkers int

	// MaxSamplesPerStream caps how many items are drawn from one open
	// sampling session before it is closed and reopened, bounding how
	// unevenly one worker can drain a single server-side snapshot. Auto
	// selects a client default.
	MaxSamplesPerStream int

	// SequenceLength, when > 0, is validated against the timestep count of
	// every received item. Required when EmitTimesteps is false.
	SequenceLength int

	// EmitTimesteps selects timestep emission; when false, whole sequences
	// are emitted and every leaf shape must carry SequenceLength as its
	// leading dimension.
	EmitTimesteps bool

	// RateLimiterTimeoutMS bounds, in milliseconds, how long the remote
	// rate limiter may make a sampling request wait. -1 waits forever; 0
	// fails immediately when the table cannot admit a sample. The first
	// timeout on any worker ends the stream gracefully.
	RateLimiterTimeoutMS int64

	// FlexibleBatchSize bounds how many items a single sampling request
	// may return. Auto selects a client default. This is a throughput
	// tuning knob, not a correctness parameter.
	FlexibleBatchSize int

	// OutputBufferSize is the capacity of the output channel; 0 selects a
	// default. A full channel blocks workers, which is what keeps memory
	// bounded under a slow consumer.
	OutputBufferSize int

	// Logger is used for stream lifecycle logging; nil falls back to
	// slog.Default.
	Logger *slog.Logger

	// MetricsRegistry enables prometheus metrics when non-nil.
	MetricsRegistry *metric.MetricsRegistry
}

// DefaultOptions returns the defaults for timestep emission.
func DefaultOptions() Options {
	return Options{
		MaxInFlightSamplesPerWorker: defaultMaxInFlightSamplesPerWorker,
		NumWorkers:                  Auto,
		MaxSamplesPerStream:         Auto,
		EmitTimesteps:               true,
		RateLimiterTimeoutMS:        -1,
		FlexibleBatchSize:           Auto,
	}
}

// Validate checks every construction parameter and reports the first
// offending one as an invalid-argument error.
func (o *Options) Validate() error {
	if o.MaxInFlightSamplesPerWorker < 1 {
		return errors.InvalidArgumentf(
			"max_in_flight_samples_per_worker (%d) must be a positive integer",
			o.MaxInFlightSamplesPerWorker)
	}
	if o.NumWorkers < 1 && o.NumWorkers != Auto {
		return errors.InvalidArgumentf(
			"num_workers (%d) must be a positive integer or -1", o.NumWorkers)
	}
	if o.MaxSamplesPerStream < 1 && o.MaxSamplesPerStream != Auto {
		return errors.InvalidArgumentf(
			"max_samples_per_stream (%d) must be a positive integer or -1", o.MaxSamplesPerStream)
	}
	if o.SequenceLength < 0 {
		return errors.InvalidArgumentf(
			"sequence_length (%d) must be unset or a positive integer", o.SequenceLength)
	}
	if o.RateLimiterTimeoutMS < -1 {
		return errors.InvalidArgumentf(
			"rate_limiter_timeout_ms (%d) must be an integer >= -1", o.RateLimiterTimeoutMS)
	}
	if o.FlexibleBatchSize < 1 && o.FlexibleBatchSize != Auto {
		return errors.InvalidArgumentf(
			"flexible_batch_size (%d) must be a positive integer or -1", o.FlexibleBatchSize)
	}
	if o.OutputBufferSize < 0 {
		return errors.InvalidArgumentf(
			"output_buffer_size (%d) must be a positive integer or 0", o.OutputBufferSize)
	}
	if !o.EmitTimesteps && o.SequenceLength < 1 {
		return errors.InvalidArgumentf(
			"sequence_length must be set when emitting whole sequences")
	}
	return nil
}

// validateSequenceShapes enforces that every leaf of a whole-sequence spec
// carries the sequence length as its leading dimension.
func validateSequenceShapes(spec element.Spec, sequenceLength int) error {
	for i, leaf := range spec.Leaves() {
		if leaf.Shape.Rank() == 0 {
			return errors.InvalidArgumentf(
				"when emitting whole sequences all shapes must have dim[0] = sequence_length (%d); "+
					"flattened leaf %d has rank 0 and thus no dim[0]",
				sequenceLength, i)
		}
		if leaf.Shape[0] != sequenceLength {
			return errors.InvalidArgumentf(
				"when emitting whole sequences all shapes must have dim[0] = sequence_length (%d); "+
					"flattened leaf %d has dim[0] = %d",
				sequenceLength, i, leaf.Shape[0])
		}
	}
	return nil
}
