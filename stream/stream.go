package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/sample"
)

// signatureResolveTimeout bounds the metadata round trip made during
// Start. On expiry the stream starts anyway and falls back to validating
// each received timestep against the requested spec instead.
const signatureResolveTimeout = 30 * time.Second

// Stream is a pull-based replay sample stream: a pool of fetch workers
// draws prioritized items from one table, reconstructs them into replay
// samples, and delivers them through Next. Construct with New or
// NewFromTableSignature, then Start before the first Next.
type Stream struct {
	client Client
	table  string
	opts   Options

	// spec is the requested per-emission spec; timestepSpec is the same
	// with the sequence dimension trimmed when emitting whole sequences.
	spec         element.Spec
	timestepSpec element.Spec

	logger  *slog.Logger
	metrics *Metrics

	flexibleBatchSize   int
	maxSamplesPerStream int

	// lazyCheck is set when the table declares no signature (or metadata
	// could not be fetched in time): each received timestep is then
	// checked against the requested spec instead.
	lazyCheck bool

	fc  *flowController
	out chan sample.ReplaySample

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	// finalErr is written by the closer goroutine before out and done are
	// closed, so readers observing the closed channel see it.
	finalErr error

	itemsSampled     atomic.Int64
	samplesEmitted   atomic.Int64
	timestepsEmitted atomic.Int64
}

// Stats is a point-in-time snapshot of stream progress.
type Stats struct {
	ItemsSampled        int64
	SamplesEmitted      int64
	TimestepsEmitted    int64
	RateLimiterTimedOut bool
}

// New creates a stream over table whose emissions match spec. For whole
// sequence emission spec describes a full sequence, with
// opts.SequenceLength as the leading dimension of every leaf. All options
// are validated here; no network traffic happens until Start.
func New(client Client, table string, spec element.Spec, opts Options) (*Stream, error) {
	if client == nil {
		return nil, errors.InvalidArgumentf("client must not be nil")
	}
	if table == "" {
		return nil, errors.InvalidArgumentf("table must not be empty")
	}
	if spec.Len() == 0 {
		return nil, errors.InvalidArgumentf("spec must have at least one leaf")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !opts.EmitTimesteps {
		if err := validateSequenceShapes(spec, opts.SequenceLength); err != nil {
			return nil, err
		}
	}

	s := &Stream{
		client:       client,
		table:        table,
		opts:         opts,
		spec:         spec,
		timestepSpec: spec,
		fc:           newFlowController(opts.RateLimiterTimeoutMS),
		done:         make(chan struct{}),
	}
	if !opts.EmitTimesteps {
		s.timestepSpec = spec.TrimLeadingDim()
	}

	s.flexibleBatchSize = opts.FlexibleBatchSize
	if s.flexibleBatchSize == Auto {
		s.flexibleBatchSize = defaultFlexibleBatchSize
	}
	if s.flexibleBatchSize > opts.MaxInFlightSamplesPerWorker {
		s.flexibleBatchSize = opts.MaxInFlightSamplesPerWorker
	}
	s.maxSamplesPerStream = opts.MaxSamplesPerStream
	if s.maxSamplesPerStream == Auto {
		s.maxSamplesPerStream = defaultMaxSamplesPerStream
	}

	bufSize := opts.OutputBufferSize
	if bufSize == 0 {
		bufSize = defaultOutputBufferSize
	}
	s.out = make(chan sample.ReplaySample, bufSize)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger.With("component", "stream", "table", table)
	s.metrics = newMetrics(opts.MetricsRegistry, table)

	return s, nil
}

// Start resolves the table's metadata, validates the requested spec
// against the declared signature, and launches the worker pool. Start may
// be called once.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.ErrAlreadyStarted
	}

	sampler, err := s.resolveSignature(ctx)
	if err != nil {
		return err
	}

	numWorkers := s.selectNumWorkers(sampler)
	s.logger.Info("starting stream",
		"workers", numWorkers,
		"emit_timesteps", s.opts.EmitTimesteps,
		"max_in_flight_per_worker", s.opts.MaxInFlightSamplesPerWorker,
		"lazy_check", s.lazyCheck)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < numWorkers; i++ {
		id := i
		g.Go(func() error { return s.runWorker(gctx, id) })
	}

	go func() {
		err := g.Wait()
		if err != nil && !stderrors.Is(err, context.Canceled) {
			s.finalErr = err
			s.logger.Error("stream failed", "error", err)
		}
		s.fc.close()
		close(s.out)
		close(s.done)
	}()

	s.started = true
	return nil
}

// resolveSignature fetches server metadata and validates the requested
// spec against the table's declared signature. It returns the table's
// sampler kind, or "" when metadata was unavailable.
func (s *Stream) resolveSignature(ctx context.Context) (string, error) {
	infoCtx, cancel := context.WithTimeout(ctx, signatureResolveTimeout)
	defer cancel()

	info, err := s.client.ServerInfo(infoCtx)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, errors.ErrDeadlineExceeded) {
			s.logger.Warn("unable to fetch server metadata within deadline, "+
				"skipping signature validation",
				"timeout", signatureResolveTimeout)
			s.lazyCheck = true
			return "", nil
		}
		return "", errors.WrapFatal(err, "Stream", "Start", "fetch server info")
	}

	ti, ok := info[s.table]
	if !ok {
		return "", fmt.Errorf("%w: unable to find table %q, the server knows tables [%s]",
			errors.ErrTableNotFound, s.table, strings.Join(tableNames(info), ", "))
	}

	if ti.Signature == nil {
		s.lazyCheck = true
		return ti.Sampler, nil
	}
	if err := element.ValidateAgainstSignature(s.table, s.timestepSpec, *ti.Signature); err != nil {
		return "", err
	}
	return ti.Sampler, nil
}

// selectNumWorkers resolves Auto worker selection. FIFO tables get exactly
// one worker: concurrent fetch from a FIFO sampler would interleave items
// and break strict insertion order. When the sampler is unknown the safe
// answer is also one.
func (s *Stream) selectNumWorkers(sampler string) int {
	if s.opts.NumWorkers != Auto {
		return s.opts.NumWorkers
	}
	if sampler == "" || sampler == sample.SamplerFIFO {
		return 1
	}
	n := runtime.NumCPU()
	if n > maxAutoWorkers {
		n = maxAutoWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Next returns the next replay sample, blocking until one is available,
// the context is cancelled, or the stream ends. A graceful end (rate
// limiter timeout, or Stop with all buffered samples drained) is reported
// as errors.ErrEndOfStream; items fetched before the end are always
// delivered first.
func (s *Stream) Next(ctx context.Context) (sample.ReplaySample, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return sample.ReplaySample{}, errors.ErrNotStarted
	}

	select {
	case rs, ok := <-s.out:
		if !ok {
			if s.finalErr != nil {
				return sample.ReplaySample{}, s.finalErr
			}
			return sample.ReplaySample{}, errors.ErrEndOfStream
		}
		return rs, nil
	case <-ctx.Done():
		return sample.ReplaySample{}, ctx.Err()
	}
}

// Stop closes the stream and waits up to timeout for the workers to
// finish. Safe to call more than once.
func (s *Stream) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.ErrNotStarted
	}
	cancel := s.cancel
	s.mu.Unlock()

	s.fc.close()
	cancel()

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return errors.ErrStopTimeout
	}
}

// Stats returns a snapshot of stream progress counters.
func (s *Stream) Stats() Stats {
	return Stats{
		ItemsSampled:        s.itemsSampled.Load(),
		SamplesEmitted:      s.samplesEmitted.Load(),
		TimestepsEmitted:    s.timestepsEmitted.Load(),
		RateLimiterTimedOut: s.fc.rateLimiterTimedOut(),
	}
}

func tableNames(info map[string]sample.TableInfo) []string {
	names := make([]string, 0, len(info))
	for name := range info {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
