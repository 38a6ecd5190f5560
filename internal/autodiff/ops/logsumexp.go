package ops

import "github.com/born-ml/circleloss/internal/tensor"

// LogSumExpOp represents y = log(Σ exp(x)) over every element.
//
// Backward:
//
//	grad_x = grad_y · exp(x - y)   (the softmax of x)
type LogSumExpOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewLogSumExpOp creates a new LogSumExpOp.
func NewLogSumExpOp(input, output *tensor.RawTensor) *LogSumExpOp {
	return &LogSumExpOp{
		input:  input,
		output: output,
	}
}

// Backward computes input gradient for log-sum-exp.
func (op *LogSumExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	softmax := backend.Exp(backend.Sub(op.input, op.output))
	return []*tensor.RawTensor{backend.Mul(softmax, outputGrad)}
}

// Inputs returns the input tensor [x].
func (op *LogSumExpOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor LSE(x).
func (op *LogSumExpOp) Output() *tensor.RawTensor {
	return op.output
}
