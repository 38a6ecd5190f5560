package ops

import (
	"fmt"

	"github.com/born-ml/circleloss/internal/tensor"
)

// CatOp represents a concatenation along a dimension.
//
// Backward:
//
//	The output gradient is split along dim at the input boundaries and
//	each input receives the slice it contributed.
//
// Example:
//
//	inputs: [2,1] and [3,1] along dim=0 → output [5,1]
//	gradInput1 = grad[0:2], gradInput2 = grad[2:5]
type CatOp struct {
	inputs []*tensor.RawTensor
	dim    int
	output *tensor.RawTensor
}

// NewCatOp creates a new CatOp.
func NewCatOp(inputs []*tensor.RawTensor, dim int, output *tensor.RawTensor) *CatOp {
	return &CatOp{
		inputs: inputs,
		dim:    normalizeDim(dim, len(output.Shape())),
		output: output,
	}
}

// Backward splits the output gradient between the inputs.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))

	offset := 0
	for i, in := range op.inputs {
		size := in.Shape()[op.dim]
		grads[i] = narrow(outputGrad, op.dim, offset, size, backend)
		offset += size
	}
	return grads
}

// Inputs returns the input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}

// narrow copies the [start, start+length) slice of t along dim.
func narrow(t *tensor.RawTensor, dim, start, length int, backend tensor.Backend) *tensor.RawTensor {
	shape := t.Shape()
	outShape := shape.Clone()
	outShape[dim] = length

	out, err := tensor.NewRaw(outShape, t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("narrow: %v", err))
	}

	outer := 1
	for _, s := range shape[:dim] {
		outer *= s
	}
	inner := 1
	for _, s := range shape[dim+1:] {
		inner *= s
	}

	switch t.DType() {
	case tensor.Float32:
		copyNarrow(out.AsFloat32(), t.AsFloat32(), outer, shape[dim], inner, start, length)
	case tensor.Float64:
		copyNarrow(out.AsFloat64(), t.AsFloat64(), outer, shape[dim], inner, start, length)
	default:
		panic(fmt.Sprintf("narrow: unsupported dtype %s", t.DType()))
	}
	return out
}

func copyNarrow[T float32 | float64](dst, src []T, outer, size, inner, start, length int) {
	block := length * inner
	for o := 0; o < outer; o++ {
		from := (o*size + start) * inner
		copy(dst[o*block:(o+1)*block], src[from:from+block])
	}
}
