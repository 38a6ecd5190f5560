package ops

import "github.com/born-ml/circleloss/internal/tensor"

// ReLUOp represents the rectified linear unit: y = max(0, x).
//
// Backward: grad_x = outputGrad where x > 0, zero elsewhere.
// The subgradient at x == 0 is taken as 0.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		input:  input,
		output: output,
	}
}

// Backward masks the output gradient with x > 0.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	mask := mapRaw(op.input, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
	return []*tensor.RawTensor{backend.Mul(outputGrad, mask)}
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
