package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/sample"
)

// fakeClient satisfies Client for construction-time tests; it is never
// asked to sample.
type fakeClient struct{}

func (fakeClient) OpenSampleStream(context.Context, string) (SampleStream, error) {
	return nil, errors.ErrNoConnection
}

func (fakeClient) ServerInfo(context.Context) (map[string]sample.TableInfo, error) {
	return nil, errors.ErrNoConnection
}

func TestDefaultOptionsValid(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	assert.True(t, opts.EmitTimesteps)
	assert.Equal(t, Auto, opts.NumWorkers)
	assert.Equal(t, int64(-1), opts.RateLimiterTimeoutMS)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		errMsg string
	}{
		{
			name:   "zero max in flight",
			mutate: func(o *Options) { o.MaxInFlightSamplesPerWorker = 0 },
			errMsg: "max_in_flight_samples_per_worker (0) must be a positive integer",
		},
		{
			name:   "negative max in flight",
			mutate: func(o *Options) { o.MaxInFlightSamplesPerWorker = -1 },
			errMsg: "max_in_flight_samples_per_worker (-1) must be a positive integer",
		},
		{
			name:   "zero workers",
			mutate: func(o *Options) { o.NumWorkers = 0 },
			errMsg: "num_workers (0) must be a positive integer or -1",
		},
		{
			name:   "negative workers other than auto",
			mutate: func(o *Options) { o.NumWorkers = -2 },
			errMsg: "num_workers (-2) must be a positive integer or -1",
		},
		{
			name:   "zero max samples per stream",
			mutate: func(o *Options) { o.MaxSamplesPerStream = 0 },
			errMsg: "max_samples_per_stream (0) must be a positive integer or -1",
		},
		{
			name:   "negative sequence length",
			mutate: func(o *Options) { o.SequenceLength = -3 },
			errMsg: "sequence_length (-3) must be unset or a positive integer",
		},
		{
			name:   "rate limiter timeout below -1",
			mutate: func(o *Options) { o.RateLimiterTimeoutMS = -2 },
			errMsg: "rate_limiter_timeout_ms (-2) must be an integer >= -1",
		},
		{
			name:   "zero flexible batch size",
			mutate: func(o *Options) { o.FlexibleBatchSize = 0 },
			errMsg: "flexible_batch_size (0) must be a positive integer or -1",
		},
		{
			name:   "negative output buffer",
			mutate: func(o *Options) { o.OutputBufferSize = -1 },
			errMsg: "output_buffer_size (-1) must be a positive integer or 0",
		},
		{
			name: "whole sequences without sequence length",
			mutate: func(o *Options) {
				o.EmitTimesteps = false
				o.SequenceLength = 0
			},
			errMsg: "sequence_length must be set when emitting whole sequences",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateSequenceShapes(t *testing.T) {
	spec := element.MustSpec(
		map[string]element.DType{"obs": element.DTypeFloat32, "reward": element.DTypeFloat64},
		map[string]element.Shape{"obs": {5, 3}, "reward": {5}},
	)
	require.NoError(t, validateSequenceShapes(spec, 5))

	err := validateSequenceShapes(spec, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "dim[0] = sequence_length (4)")

	scalar := element.MustSpec(
		map[string]element.DType{"done": element.DTypeBool},
		map[string]element.Shape{"done": {}},
	)
	err = validateSequenceShapes(scalar, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank 0")
}

func TestNewRejectsBadArguments(t *testing.T) {
	spec := element.MustSpec(
		map[string]element.DType{"obs": element.DTypeFloat32},
		map[string]element.Shape{"obs": {2}},
	)

	_, err := New(nil, "table", spec, DefaultOptions())
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = New(fakeClient{}, "", spec, DefaultOptions())
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = New(fakeClient{}, "table", element.Spec{}, DefaultOptions())
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	opts := DefaultOptions()
	opts.EmitTimesteps = false
	opts.SequenceLength = 3
	_, err = New(fakeClient{}, "table", spec, opts)
	require.Error(t, err, "spec without the sequence dim must be rejected eagerly")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestNewCapsFlexibleBatchSize(t *testing.T) {
	spec := element.MustSpec(
		map[string]element.DType{"obs": element.DTypeFloat32},
		map[string]element.Shape{"obs": {2}},
	)
	opts := DefaultOptions()
	opts.MaxInFlightSamplesPerWorker = 4
	opts.FlexibleBatchSize = 64

	s, err := New(fakeClient{}, "table", spec, opts)
	require.NoError(t, err)
	assert.Equal(t, 4, s.flexibleBatchSize,
		"a request larger than the in-flight budget could never be admitted")
}

func TestSelectNumWorkers(t *testing.T) {
	spec := element.MustSpec(
		map[string]element.DType{"obs": element.DTypeFloat32},
		map[string]element.Shape{"obs": {2}},
	)
	s, err := New(fakeClient{}, "table", spec, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, s.selectNumWorkers("fifo"))
	assert.Equal(t, 1, s.selectNumWorkers(""), "unknown sampler must stay sequential")
	n := s.selectNumWorkers("prioritized")
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, maxAutoWorkers)

	opts := DefaultOptions()
	opts.NumWorkers = 7
	s, err = New(fakeClient{}, "table", spec, opts)
	require.NoError(t, err)
	assert.Equal(t, 7, s.selectNumWorkers("fifo"), "explicit worker count is never overridden")
}
