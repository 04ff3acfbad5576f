package element

import (
	"fmt"
)

// IncompatibleSignatureError reports a dtype or shape disagreement between
// a requested spec and a table's declared signature. It carries enough
// detail to diagnose a schema mismatch without server-side logs.
type IncompatibleSignatureError struct {
	Table     string
	Index     int
	Requested TensorSpec
	Signature TensorSpec
}

func (e *IncompatibleSignatureError) Error() string {
	return fmt.Sprintf(
		"incompatible signature for table %q: flattened index %d: requested %s, signature %s",
		e.Table, e.Index, e.Requested, e.Signature)
}

// InconsistentSignatureSizeError reports a flattened leaf-count mismatch
// between a requested spec and a signature (or received data).
type InconsistentSignatureSizeError struct {
	Table     string
	Requested int
	Signature int
}

func (e *InconsistentSignatureSizeError) Error() string {
	return fmt.Sprintf(
		"inconsistent signature size for table %q: requested spec has %d flattened leaves, signature has %d",
		e.Table, e.Requested, e.Signature)
}

// IncompatibleTensorError reports a received tensor that does not match
// the requested spec. Raised by the lazy per-response check used for
// tables declared without a signature.
type IncompatibleTensorError struct {
	Index     int
	Requested TensorSpec
	Received  TensorSpec
}

func (e *IncompatibleTensorError) Error() string {
	return fmt.Sprintf(
		"received incompatible tensor at flattened index %d: requested %s, received %s",
		e.Index, e.Requested, e.Received)
}

// ValidateAgainstSignature checks a requested spec against a table's
// declared signature. Unknown dimensions on either side act as wildcards.
func ValidateAgainstSignature(table string, requested, signature Spec) error {
	if requested.Len() != signature.Len() {
		return &InconsistentSignatureSizeError{
			Table:     table,
			Requested: requested.Len(),
			Signature: signature.Len(),
		}
	}
	for i := 0; i < requested.Len(); i++ {
		req := requested.Leaf(i).TensorSpec
		sig := signature.Leaf(i).TensorSpec
		if req.DType != sig.DType || !req.Shape.Compatible(sig.Shape) {
			return &IncompatibleSignatureError{
				Table:     table,
				Index:     i,
				Requested: req,
				Signature: sig,
			}
		}
	}
	return nil
}

// CheckTimestep compares the literal dtypes and shapes of one received
// timestep against the requested spec. Wildcard dimensions in the request
// accept any concrete size.
func CheckTimestep(requested Spec, timestep []Tensor) error {
	if len(timestep) != requested.Len() {
		return &InconsistentSignatureSizeError{
			Requested: requested.Len(),
			Signature: len(timestep),
		}
	}
	for i, tensor := range timestep {
		req := requested.Leaf(i).TensorSpec
		got := tensor.Spec()
		if req.DType != got.DType || !req.Shape.Compatible(got.Shape) {
			return &IncompatibleTensorError{
				Index:     i,
				Requested: req,
				Received:  got,
			}
		}
	}
	return nil
}
