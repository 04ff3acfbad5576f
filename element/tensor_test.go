package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTensor(t *testing.T) {
	tensor, err := NewTensor(DTypeFloat32, Shape{3, 3}, make([]byte, 36))
	require.NoError(t, err)
	assert.Equal(t, TensorSpec{DType: DTypeFloat32, Shape: Shape{3, 3}}, tensor.Spec())

	_, err = NewTensor(DTypeFloat32, Shape{3, 3}, make([]byte, 35))
	assert.Error(t, err)

	_, err = NewTensor(DTypeFloat32, Shape{UnknownDim}, nil)
	assert.Error(t, err)
}

func TestZeros(t *testing.T) {
	tensor := Zeros(DTypeInt64, Shape{2, 2})
	assert.Len(t, tensor.Data, 32)
	assert.Equal(t, Shape{2, 2}, tensor.Shape)
}

func TestStack(t *testing.T) {
	step := func(fill byte) []Tensor {
		data := make([]byte, 8)
		for i := range data {
			data[i] = fill
		}
		return []Tensor{{DType: DTypeFloat32, Shape: Shape{2}, Data: data}}
	}

	stacked, err := Stack([][]Tensor{step(1), step(2), step(3)})
	require.NoError(t, err)
	require.Len(t, stacked, 1)

	assert.Equal(t, Shape{3, 2}, stacked[0].Shape)
	require.Len(t, stacked[0].Data, 24)
	assert.Equal(t, byte(1), stacked[0].Data[0])
	assert.Equal(t, byte(2), stacked[0].Data[8])
	assert.Equal(t, byte(3), stacked[0].Data[16])
}

func TestStack_LayoutMismatch(t *testing.T) {
	a := []Tensor{Zeros(DTypeFloat32, Shape{2})}
	b := []Tensor{Zeros(DTypeFloat32, Shape{3})}
	_, err := Stack([][]Tensor{a, b})
	assert.Error(t, err)

	c := []Tensor{Zeros(DTypeInt32, Shape{2})}
	_, err = Stack([][]Tensor{a, c})
	assert.Error(t, err)

	_, err = Stack(nil)
	assert.Error(t, err)

	wide := []Tensor{Zeros(DTypeFloat32, Shape{2}), Zeros(DTypeFloat32, Shape{2})}
	_, err = Stack([][]Tensor{a, wide})
	assert.Error(t, err)
}
