package element

import (
	"fmt"
	"slices"
)

// Tensor is a dense tensor value: dtype, concrete shape and raw row-major
// data. Tensors are treated as immutable after construction; the stream
// never mutates a tensor after handing it to the consumer.
type Tensor struct {
	DType DType
	Shape Shape
	Data  []byte
}

// NewTensor builds a tensor and checks that data matches the shape's
// element count. The shape must be fully known.
func NewTensor(dt DType, shape Shape, data []byte) (Tensor, error) {
	n, known := shape.NumElements()
	if !known {
		return Tensor{}, fmt.Errorf("tensor shape %s has unknown dimensions", shape)
	}
	if want := n * dt.Size(); len(data) != want {
		return Tensor{}, fmt.Errorf("tensor data is %d bytes, want %d for %s %s",
			len(data), want, dt, shape)
	}
	return Tensor{DType: dt, Shape: shape, Data: data}, nil
}

// Zeros builds a zero-filled tensor of the given dtype and shape. The
// shape must be fully known.
func Zeros(dt DType, shape Shape) Tensor {
	n, _ := shape.NumElements()
	return Tensor{DType: dt, Shape: slices.Clone(shape), Data: make([]byte, n*dt.Size())}
}

// Spec returns the tensor's (dtype, shape) pair.
func (t Tensor) Spec() TensorSpec {
	return TensorSpec{DType: t.DType, Shape: t.Shape}
}

// Stack concatenates a sequence of timesteps (each a flattened leaf slice
// of equal layout) into a single timestep whose leaves carry len(steps) as
// their leading dimension. This is the batch emitter behind whole-sequence
// emission; the leaf-wise layout check mirrors the Spec zip check.
func Stack(steps [][]Tensor) ([]Tensor, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("cannot stack zero timesteps")
	}

	width := len(steps[0])
	for i, step := range steps {
		if len(step) != width {
			return nil, fmt.Errorf("timestep %d has %d leaves, want %d", i, len(step), width)
		}
		for j, tensor := range step {
			first := steps[0][j]
			if tensor.DType != first.DType || !tensor.Shape.Equal(first.Shape) {
				return nil, fmt.Errorf("timestep %d leaf %d is %s, want %s",
					i, j, tensor.Spec(), first.Spec())
			}
		}
	}

	out := make([]Tensor, width)
	for j := 0; j < width; j++ {
		leaf := steps[0][j]
		data := make([]byte, 0, len(leaf.Data)*len(steps))
		for _, step := range steps {
			data = append(data, step[j].Data...)
		}
		out[j] = Tensor{
			DType: leaf.DType,
			Shape: leaf.Shape.WithLeading(len(steps)),
			Data:  data,
		}
	}
	return out, nil
}
