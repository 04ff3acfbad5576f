package stream

import (
	"fmt"

	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/sample"
)

// SequenceLengthMismatchError reports an item whose timestep count
// disagrees with the stream's declared sequence length.
type SequenceLengthMismatchError struct {
	Want int
	Got  int
}

func (e *SequenceLengthMismatchError) Error() string {
	return fmt.Sprintf("received sequence of invalid length: expected %d steps, got %d", e.Want, e.Got)
}

// reconstructor state, as a tagged variant so the transitions are explicit
// and independently testable.
type reconstructorState interface{ reconstructorState() }

// idle: no active item; the next pushed item becomes active.
type stateIdle struct{}

// active: an item is being emitted; cursor indexes the next timestep.
type stateActive struct {
	item   sample.PrioritizedItem
	cursor int
}

// exhausted: the stream is closing; nothing will be pushed or emitted.
type stateExhausted struct{}

func (stateIdle) reconstructorState()      {}
func (stateActive) reconstructorState()    {}
func (stateExhausted) reconstructorState() {}

// reconstructor turns each prioritized item into either one whole-sequence
// emission or a contiguous run of timestep emissions, preserving the
// item's original order. One reconstructor is owned by exactly one worker
// and never shared.
type reconstructor struct {
	emitTimesteps bool
	state         reconstructorState
}

func newReconstructor(emitTimesteps bool) *reconstructor {
	return &reconstructor{emitTimesteps: emitTimesteps, state: stateIdle{}}
}

// push makes item the active item. Pushing while a previous item is still
// being emitted, or after exhaust, is a programming error.
func (r *reconstructor) push(item sample.PrioritizedItem) error {
	switch r.state.(type) {
	case stateIdle:
		r.state = stateActive{item: item, cursor: 0}
		return nil
	case stateActive:
		return fmt.Errorf("reconstructor: push while an item is still active")
	default:
		return fmt.Errorf("reconstructor: push after exhaustion")
	}
}

// next emits the next replay sample of the active item. ok is false once
// the active item is fully consumed (or when idle/exhausted).
func (r *reconstructor) next() (sample.ReplaySample, bool, error) {
	st, ok := r.state.(stateActive)
	if !ok {
		return sample.ReplaySample{}, false, nil
	}

	if !r.emitTimesteps {
		data, err := element.Stack(st.item.Timesteps)
		if err != nil {
			return sample.ReplaySample{}, false, fmt.Errorf("stack sequence: %w", err)
		}
		info := make([]sample.Info, len(st.item.Timesteps))
		for i := range info {
			info[i] = st.item.Info
		}
		r.state = stateIdle{}
		return sample.ReplaySample{Info: info, Data: data}, true, nil
	}

	out := sample.ReplaySample{
		Info: []sample.Info{st.item.Info},
		Data: st.item.Timesteps[st.cursor],
	}
	if st.cursor+1 == len(st.item.Timesteps) {
		r.state = stateIdle{}
	} else {
		r.state = stateActive{item: st.item, cursor: st.cursor + 1}
	}
	return out, true, nil
}

// exhaust marks the reconstructor as finished; only valid when idle.
func (r *reconstructor) exhaust() {
	r.state = stateExhausted{}
}

// isIdle reports whether a new item may be pushed.
func (r *reconstructor) isIdle() bool {
	_, ok := r.state.(stateIdle)
	return ok
}
