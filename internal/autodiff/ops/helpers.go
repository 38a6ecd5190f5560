package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/circleloss/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(targetShape) {
		return grad
	}

	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	// Leading dimensions that broadcasting added are summed away first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	shape := result.Shape()
	for i, size := range targetShape {
		if size == 1 && shape[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// expandTo broadcasts t to targetShape by adding it to zeros.
func expandTo(t *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if t.Shape().Equal(targetShape) {
		return t
	}
	zeros, err := tensor.NewRaw(targetShape, t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("expandTo: %v", err))
	}
	return backend.Add(zeros, t)
}

// mapRaw returns a new tensor holding f applied to every element of x.
func mapRaw(x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("mapRaw: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		dst := out.AsFloat32()
		for i, v := range x.AsFloat32() {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		dst := out.AsFloat64()
		for i, v := range x.AsFloat64() {
			dst[i] = f(v)
		}
	default:
		panic(fmt.Sprintf("mapRaw: unsupported dtype %s", x.DType()))
	}
	return out
}

// sigmoid is the logistic function, split by sign so exp never overflows.
func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

// normalizeDim maps a negative dimension to its positive index.
func normalizeDim(dim, ndim int) int {
	if dim < 0 {
		return dim + ndim
	}
	return dim
}
