package ops

import "github.com/born-ml/circleloss/internal/tensor"

// TransposeOp represents a permutation of dimensions.
//
// Backward:
//
//	∂L/∂input = transpose(∂L/∂output, inverse_axes)
type TransposeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	axes   []int // full permutation used in the forward pass
}

// NewTransposeOp creates a new TransposeOp.
// An empty axes slice means every dimension was reversed.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	if len(axes) == 0 {
		ndim := len(input.Shape())
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	return &TransposeOp{
		input:  input,
		output: output,
		axes:   axes,
	}
}

// Backward transposes the output gradient with the inverse permutation.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// Inputs returns the input tensors.
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
