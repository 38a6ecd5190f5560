package ops

import "github.com/born-ml/circleloss/internal/tensor"

// SqrtOp represents the square root: y = √x.
//
// Backward: grad_x = outputGrad / (2·y).
type SqrtOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSqrtOp creates a new SqrtOp.
func NewSqrtOp(input, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{
		input:  input,
		output: output,
	}
}

// Backward computes input gradient for sqrt.
func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	twoY := backend.MulScalar(op.output, 2.0)
	return []*tensor.RawTensor{backend.Div(outputGrad, twoY)}
}

// Inputs returns the input tensor [x].
func (op *SqrtOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor √x.
func (op *SqrtOp) Output() *tensor.RawTensor {
	return op.output
}
