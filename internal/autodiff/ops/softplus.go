package ops

import "github.com/born-ml/circleloss/internal/tensor"

// SoftplusOp represents y = log(1 + exp(x)).
//
// Backward: grad_x = outputGrad · sigmoid(x).
type SoftplusOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSoftplusOp creates a new SoftplusOp.
func NewSoftplusOp(input, output *tensor.RawTensor) *SoftplusOp {
	return &SoftplusOp{
		input:  input,
		output: output,
	}
}

// Backward computes input gradient for softplus.
func (op *SoftplusOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, mapRaw(op.input, sigmoid))}
}

// Inputs returns the input tensor [x].
func (op *SoftplusOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor softplus(x).
func (op *SoftplusOp) Output() *tensor.RawTensor {
	return op.output
}
