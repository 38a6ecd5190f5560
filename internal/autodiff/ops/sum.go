package ops

import "github.com/born-ml/circleloss/internal/tensor"

// SumOp represents the full reduction y = Σ x to a 0-D tensor.
//
// Backward: the scalar gradient broadcast to the input shape.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		input:  input,
		output: output,
	}
}

// Backward broadcasts the output gradient to every input element.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{expandTo(outputGrad, op.input.Shape(), backend)}
}

// Inputs returns the input tensor [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor Σ x.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
