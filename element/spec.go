package element

import (
	"fmt"
	"sort"

	"github.com/c360/replaystream/errors"
)

// TensorSpec is the (dtype, shape) pair describing one leaf.
type TensorSpec struct {
	DType DType
	Shape Shape
}

// String renders the pair the way mismatch diagnostics report it,
// e.g. "(float32, [?,?])".
func (ts TensorSpec) String() string {
	return fmt.Sprintf("(%s, %s)", ts.DType, ts.Shape)
}

// Leaf is one flattened entry of a Spec: a path into the nested element
// structure plus the leaf's tensor spec. Paths use "/" to express nesting
// ("observation/pixels").
type Leaf struct {
	Path string
	TensorSpec
}

// Spec is the flattened, path-ordered description of one element (a single
// timestep, or a whole sequence when every leaf carries the sequence
// length as its leading dimension). A Spec is immutable once built.
type Spec struct {
	leaves []Leaf
}

// NewSpec zips a dtype tree and a shape tree, both given as path keyed
// maps, into a Spec. The two trees must be structurally identical: same
// paths, same leaf count. This is the single structural check reused by
// construction-time validation and by the sequence stacker.
func NewSpec(dtypes map[string]DType, shapes map[string]Shape) (Spec, error) {
	if len(dtypes) == 0 {
		return Spec{}, errors.InvalidArgumentf("element spec must have at least one leaf")
	}
	if len(dtypes) != len(shapes) {
		return Spec{}, errors.InvalidArgumentf(
			"dtypes and shapes must share the same structure: %d dtype leaves vs %d shape leaves",
			len(dtypes), len(shapes))
	}

	leaves := make([]Leaf, 0, len(dtypes))
	for path, dt := range dtypes {
		shape, ok := shapes[path]
		if !ok {
			return Spec{}, errors.InvalidArgumentf(
				"dtypes and shapes must share the same structure: no shape for path %q", path)
		}
		if dt.Size() == 0 {
			return Spec{}, errors.InvalidArgumentf("path %q has invalid dtype", path)
		}
		if err := shape.validate(); err != nil {
			return Spec{}, errors.InvalidArgumentf("path %q: %v", path, err)
		}
		leaves = append(leaves, Leaf{Path: path, TensorSpec: TensorSpec{DType: dt, Shape: shape}})
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Path < leaves[j].Path })
	return Spec{leaves: leaves}, nil
}

// MustSpec is NewSpec that panics on error; intended for tests and
// examples with literal specs.
func MustSpec(dtypes map[string]DType, shapes map[string]Shape) Spec {
	s, err := NewSpec(dtypes, shapes)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the flattened leaf count.
func (s Spec) Len() int { return len(s.leaves) }

// Leaves returns the leaves in path order. The returned slice must not be
// mutated.
func (s Spec) Leaves() []Leaf { return s.leaves }

// Leaf returns the leaf at flattened index i.
func (s Spec) Leaf(i int) Leaf { return s.leaves[i] }

// WithLeadingDim returns a Spec whose every leaf shape is prefixed with
// dim. Used when whole-sequence emission derives its spec from a per
// timestep table signature.
func (s Spec) WithLeadingDim(dim int) Spec {
	leaves := make([]Leaf, len(s.leaves))
	for i, l := range s.leaves {
		leaves[i] = Leaf{
			Path:       l.Path,
			TensorSpec: TensorSpec{DType: l.DType, Shape: l.Shape.WithLeading(dim)},
		}
	}
	return Spec{leaves: leaves}
}

// TrimLeadingDim returns a Spec whose every leaf shape has its first
// dimension removed. This is the inverse of WithLeadingDim, applied before
// validating a whole-sequence spec against a per-timestep signature.
func (s Spec) TrimLeadingDim() Spec {
	leaves := make([]Leaf, len(s.leaves))
	for i, l := range s.leaves {
		leaves[i] = Leaf{
			Path:       l.Path,
			TensorSpec: TensorSpec{DType: l.DType, Shape: l.Shape.TrimLeading()},
		}
	}
	return Spec{leaves: leaves}
}
