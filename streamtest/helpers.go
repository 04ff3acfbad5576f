package streamtest

import (
	"github.com/c360/replaystream/element"
	"github.com/c360/replaystream/sample"
)

// Steps builds n timesteps of zero tensors matching the per-timestep spec.
// Wildcard dimensions are materialized as 1.
func Steps(spec element.Spec, n int) []sample.Timestep {
	steps := make([]sample.Timestep, n)
	for i := range steps {
		step := make(sample.Timestep, 0, spec.Len())
		for _, leaf := range spec.Leaves() {
			shape := make(element.Shape, leaf.Shape.Rank())
			for d, dim := range leaf.Shape {
				if dim == element.UnknownDim {
					dim = 1
				}
				shape[d] = dim
			}
			step = append(step, element.Zeros(leaf.DType, shape))
		}
		steps[i] = step
	}
	return steps
}

// Item builds a prioritized item of steps timesteps matching spec.
func Item(key uint64, spec element.Spec, steps int) sample.PrioritizedItem {
	return sample.PrioritizedItem{
		Info: sample.Info{
			Key:         key,
			Probability: 1,
			TableSize:   1,
			Priority:    1,
		},
		Timesteps: Steps(spec, steps),
	}
}

// Items builds n sequential items, keyed 0..n-1, each of steps timesteps.
func Items(spec element.Spec, n, steps int) []sample.PrioritizedItem {
	items := make([]sample.PrioritizedItem, n)
	for i := range items {
		items[i] = Item(uint64(i), spec, steps)
	}
	return items
}
