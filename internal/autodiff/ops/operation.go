// Package ops defines the differentiable operations recorded by the autodiff tape.
//
// Each operation keeps the raw tensors it was computed from and implements
// the backward pass for its inputs:
//   - AddOp, SubOp, MulOp, DivOp: element-wise arithmetic with broadcasting
//   - MatMulOp: d(A@B)/dA = grad@Bᵀ, d(A@B)/dB = Aᵀ@grad
//   - TransposeOp, ReshapeOp, CatOp: shape manipulation
//   - MulScalarOp, AddScalarOp: arithmetic with a constant
//   - ExpOp, LogOp, SqrtOp, ReLUOp, SoftplusOp: element-wise math
//   - SumOp, SumDimOp, LogSumExpOp: reductions
//   - BCEWithLogitsOp: fused binary cross-entropy on logits
package ops

import "github.com/born-ml/circleloss/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// The returned slice is aligned with Inputs; a nil entry means no
	// gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
