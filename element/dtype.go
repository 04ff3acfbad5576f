// Package element defines the tensor schema layer of the replay client:
// dtypes, shapes with wildcard dimensions, flattened element specs and the
// structural validation shared by the signature resolver and the stream.
package element

import (
	"fmt"
)

// DType identifies the element type of a tensor leaf.
type DType int

// Supported element types.
const (
	DTypeInvalid DType = iota
	DTypeFloat32
	DTypeFloat64
	DTypeInt32
	DTypeInt64
	DTypeUint8
	DTypeUint64
	DTypeBool
)

var dtypeNames = map[DType]string{
	DTypeFloat32: "float32",
	DTypeFloat64: "float64",
	DTypeInt32:   "int32",
	DTypeInt64:   "int64",
	DTypeUint8:   "uint8",
	DTypeUint64:  "uint64",
	DTypeBool:    "bool",
}

// String returns the canonical name of the dtype.
func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return "invalid"
}

// Size returns the byte width of one element.
func (d DType) Size() int {
	switch d {
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeFloat64, DTypeInt64, DTypeUint64:
		return 8
	case DTypeUint8, DTypeBool:
		return 1
	default:
		return 0
	}
}

// ParseDType parses a canonical dtype name as produced by String.
func ParseDType(name string) (DType, error) {
	for d, n := range dtypeNames {
		if n == name {
			return d, nil
		}
	}
	return DTypeInvalid, fmt.Errorf("unknown dtype %q", name)
}
