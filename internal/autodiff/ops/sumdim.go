package ops

import "github.com/born-ml/circleloss/internal/tensor"

// SumDimOp represents a reduction sum along a dimension.
//
// Forward:
//
//	y = sum(x, dim, keepDim)
//
// Backward:
//
//	grad_x = broadcast(grad_y, x.shape)
//
// If keepDim=false the gradient is first reshaped so the reduced
// dimension is back as size 1.
type SumDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		input:   x,
		output:  output,
		dim:     normalizeDim(dim, len(x.Shape())),
		keepDim: keepDim,
	}
}

// Backward broadcasts the output gradient back along the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		kept := op.input.Shape().Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return []*tensor.RawTensor{expandTo(grad, op.input.Shape(), backend)}
}

// Inputs returns the input tensor [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor sum(x, dim).
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
