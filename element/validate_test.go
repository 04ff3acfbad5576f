package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAgainstSignature_DTypeMismatch(t *testing.T) {
	requested := MustSpec(
		map[string]DType{"x": DTypeInt64},
		map[string]Shape{"x": {3, 3}},
	)
	signature := MustSpec(
		map[string]DType{"x": DTypeFloat32},
		map[string]Shape{"x": {UnknownDim, UnknownDim}},
	)

	err := ValidateAgainstSignature("signatured", requested, signature)
	require.Error(t, err)

	var sigErr *IncompatibleSignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, 0, sigErr.Index)
	assert.Equal(t, "signatured", sigErr.Table)

	// The diagnostic must identify the flattened index and both specs.
	assert.Contains(t, err.Error(), "flattened index 0")
	assert.Contains(t, err.Error(), "requested (int64, [3,3])")
	assert.Contains(t, err.Error(), "signature (float32, [?,?])")
}

func TestValidateAgainstSignature_LeafCountMismatch(t *testing.T) {
	requested := MustSpec(
		map[string]DType{"a": DTypeFloat32, "b": DTypeFloat32},
		map[string]Shape{"a": {1}, "b": {1}},
	)
	signature := MustSpec(
		map[string]DType{"a": DTypeFloat32},
		map[string]Shape{"a": {1}},
	)

	err := ValidateAgainstSignature("t", requested, signature)
	var sizeErr *InconsistentSignatureSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 2, sizeErr.Requested)
	assert.Equal(t, 1, sizeErr.Signature)
}

func TestValidateAgainstSignature_WildcardsAccept(t *testing.T) {
	requested := MustSpec(
		map[string]DType{"x": DTypeFloat32},
		map[string]Shape{"x": {100, 3}},
	)
	signature := MustSpec(
		map[string]DType{"x": DTypeFloat32},
		map[string]Shape{"x": {UnknownDim, 3}},
	)
	assert.NoError(t, ValidateAgainstSignature("t", requested, signature))
}

func TestCheckTimestep(t *testing.T) {
	requested := MustSpec(
		map[string]DType{"obs": DTypeFloat32},
		map[string]Shape{"obs": {UnknownDim, 3}},
	)

	good := []Tensor{Zeros(DTypeFloat32, Shape{7, 3})}
	assert.NoError(t, CheckTimestep(requested, good))

	wrongDType := []Tensor{Zeros(DTypeInt32, Shape{7, 3})}
	var tensorErr *IncompatibleTensorError
	require.ErrorAs(t, CheckTimestep(requested, wrongDType), &tensorErr)
	assert.Equal(t, 0, tensorErr.Index)
	assert.Equal(t, DTypeFloat32, tensorErr.Requested.DType)
	assert.Equal(t, DTypeInt32, tensorErr.Received.DType)

	wrongShape := []Tensor{Zeros(DTypeFloat32, Shape{7, 4})}
	require.ErrorAs(t, CheckTimestep(requested, wrongShape), &tensorErr)

	var sizeErr *InconsistentSignatureSizeError
	require.ErrorAs(t, CheckTimestep(requested, nil), &sizeErr)
}
