package element

import (
	"fmt"
	"slices"
	"strings"
)

// UnknownDim marks a dimension of unknown size. Unknown dimensions in a
// signature act as wildcards and are accepted against any concrete size.
const UnknownDim = -1

// Shape describes the dimensions of a tensor leaf. An empty Shape is a
// scalar.
type Shape []int

// String renders the shape in bracket form, with "?" for unknown
// dimensions, e.g. "[3,3]" or "[?,?]".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d == UnknownDim {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("%d", d)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s) }

// Equal reports exact equality, including unknown dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Compatible reports whether two shapes describe the same tensor layout,
// treating an unknown dimension on either side as a wildcard.
func (s Shape) Compatible(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] == UnknownDim || other[i] == UnknownDim {
			continue
		}
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// NumElements returns the element count and whether it is fully known.
func (s Shape) NumElements() (int, bool) {
	n := 1
	for _, d := range s {
		if d == UnknownDim {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// WithLeading returns a copy of the shape with dim prepended.
func (s Shape) WithLeading(dim int) Shape {
	out := make(Shape, 0, len(s)+1)
	out = append(out, dim)
	return append(out, s...)
}

// TrimLeading returns a copy of the shape without its first dimension.
// Trimming a scalar returns a scalar.
func (s Shape) TrimLeading() Shape {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s[1:])
}

func (s Shape) validate() error {
	for i, d := range s {
		if d < UnknownDim {
			return fmt.Errorf("dimension %d of shape %s is negative", i, s)
		}
	}
	return nil
}
