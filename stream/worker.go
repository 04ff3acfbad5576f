package stream

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/sample"
)

// runWorker is one fetch loop. It owns its budget, its reconstructor and
// at most one open sampling session; none of that state is shared. A nil
// return is a graceful exit (closing stream or cancelled context); any
// error is fatal to the whole stream.
func (s *Stream) runWorker(ctx context.Context, id int) error {
	b := newBudget(s.opts.MaxInFlightSamplesPerWorker)
	rec := newReconstructor(s.opts.EmitTimesteps)

	var (
		session SampleStream
		drawn   int
	)
	defer func() {
		if session != nil {
			_ = session.Close()
		}
		if s.metrics != nil {
			s.metrics.inFlightSamples.Sub(float64(b.outstanding()))
		}
	}()

	for {
		want := b.acquire(ctx, s.fc.closed(), s.flexibleBatchSize)
		if want == 0 {
			// Closing or cancelled. Everything already fetched has been
			// emitted (permits are only held across the request below), so
			// there is nothing left to drain.
			return nil
		}

		if session == nil {
			opened, err := s.client.OpenSampleStream(ctx, s.table)
			if err != nil {
				b.release(want)
				if ctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "Stream", "worker", "open sample stream")
			}
			session = opened
			drawn = 0
		}

		// One session may serve at most maxSamplesPerStream items.
		if remaining := s.maxSamplesPerStream - drawn; want > remaining {
			b.release(want - remaining)
			want = remaining
		}

		start := time.Now()
		items, err := session.Next(ctx, want, s.fc.rateLimiterTimeout())
		if err != nil {
			b.release(want)
			switch {
			case ctx.Err() != nil:
				return nil
			case stderrors.Is(err, errors.ErrRateLimiterTimeout) && s.fc.timeoutEnabled():
				// First timeout wins: no more data is currently
				// obtainable, so the whole stream winds down gracefully.
				if s.metrics != nil {
					s.metrics.rateLimiterTimeouts.Inc()
				}
				s.logger.Debug("rate limiter timeout, closing stream", "worker", id)
				s.fc.markRateLimiterTimeout()
				return nil
			default:
				return errors.Wrap(err, "Stream", "worker", "sample flexible batch")
			}
		}

		// A session must block, return items, or fail; an errorless empty
		// batch would spin this loop against the server.
		if len(items) == 0 {
			b.release(want)
			return errors.Wrap(stderrors.New("session returned an empty batch"),
				"Stream", "worker", "sample flexible batch")
		}

		// Unfilled reservations go straight back; each returned item keeps
		// one permit until fully emitted.
		b.release(want - len(items))
		drawn += len(items)
		s.itemsSampled.Add(int64(len(items)))
		if s.metrics != nil {
			s.metrics.itemsSampled.Add(float64(len(items)))
			s.metrics.batchSize.Observe(float64(len(items)))
			s.metrics.sampleLatency.Observe(time.Since(start).Seconds())
			s.metrics.inFlightSamples.Set(float64(b.outstanding()))
		}

		for _, item := range items {
			if err := s.checkItem(item); err != nil {
				return errors.Wrap(err, "Stream", "worker", "validate item")
			}
			if err := rec.push(item); err != nil {
				return err
			}
			for {
				out, ok, err := rec.next()
				if err != nil {
					return errors.Wrap(err, "Stream", "worker", "reconstruct item")
				}
				if !ok {
					break
				}
				select {
				case s.out <- out:
					s.samplesEmitted.Add(1)
					s.timestepsEmitted.Add(int64(len(out.Info)))
					if s.metrics != nil {
						s.metrics.samplesEmitted.Inc()
						s.metrics.timestepsEmitted.Add(float64(len(out.Info)))
					}
				case <-ctx.Done():
					return nil
				}
			}
			b.release(1)
			if s.metrics != nil {
				s.metrics.inFlightSamples.Set(float64(b.outstanding()))
			}
		}

		if drawn >= s.maxSamplesPerStream {
			_ = session.Close()
			session = nil
		}
	}
}

// checkItem validates one fetched item before reconstruction: the declared
// sequence length, and - for tables without a declared signature - the
// literal dtypes and shapes of the returned tensors.
func (s *Stream) checkItem(item sample.PrioritizedItem) error {
	if len(item.Timesteps) == 0 {
		return stderrors.New("received item with no timesteps")
	}
	if s.opts.SequenceLength > 0 && len(item.Timesteps) != s.opts.SequenceLength {
		return &SequenceLengthMismatchError{
			Want: s.opts.SequenceLength,
			Got:  len(item.Timesteps),
		}
	}
	if s.lazyCheck {
		for _, ts := range item.Timesteps {
			if err := element.CheckTimestep(s.timestepSpec, ts); err != nil {
				return err
			}
		}
	}
	return nil
}
