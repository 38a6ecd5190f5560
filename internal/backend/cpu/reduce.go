package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/circleloss/internal/tensor"
)

// Sum reduces all elements to a 0-D tensor. Accumulates in float64.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("sum", tensor.Shape{}, x.DType())

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = float32(sum(x.AsFloat32()))
	case tensor.Float64:
		result.AsFloat64()[0] = sum(x.AsFloat64())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

func sum[T float](data []T) float64 {
	var acc float64
	for _, v := range data {
		acc += float64(v)
	}
	return acc
}

// SumDim sums along dim. Negative dims count from the end.
//
// Example:
//
//	x: [2, 3] → SumDim(x, 1, true) → [2, 1]
//	x: [2, 3] → SumDim(x, 0, false) → [3]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumDim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := make(tensor.Shape, 0, ndim)
	for d, size := range shape {
		switch {
		case d != dim:
			outShape = append(outShape, size)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := cpu.alloc("sumDim", outShape, x.DType())
	outer := tensor.Shape(shape[:dim]).NumElements()
	inner := tensor.Shape(shape[dim+1:]).NumElements()

	switch x.DType() {
	case tensor.Float32:
		sumAlong(result.AsFloat32(), x.AsFloat32(), outer, shape[dim], inner)
	case tensor.Float64:
		sumAlong(result.AsFloat64(), x.AsFloat64(), outer, shape[dim], inner)
	default:
		panic(fmt.Sprintf("sumDim: unsupported dtype %s", x.DType()))
	}

	return result
}

func sumAlong[T float](dst, src []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var acc float64
			for s := 0; s < size; s++ {
				acc += float64(src[(o*size+s)*inner+in])
			}
			dst[o*inner+in] = T(acc)
		}
	}
}

// LogSumExp computes log(Σ exp(x)) over all elements as a 0-D tensor,
// shifting by the maximum so large inputs do not overflow.
func (cpu *CPUBackend) LogSumExp(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("logSumExp", tensor.Shape{}, x.DType())

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = float32(LogSumExp(x.AsFloat32()))
	case tensor.Float64:
		result.AsFloat64()[0] = LogSumExp(x.AsFloat64())
	default:
		panic(fmt.Sprintf("logSumExp: unsupported dtype %s", x.DType()))
	}

	return result
}

// LogSumExp is the slice form of CPUBackend.LogSumExp.
func LogSumExp[T float](data []T) float64 {
	maxVal := math.Inf(-1)
	for _, v := range data {
		maxVal = math.Max(maxVal, float64(v))
	}
	if math.IsInf(maxVal, 0) {
		return maxVal
	}

	var acc float64
	for _, v := range data {
		acc += math.Exp(float64(v) - maxVal)
	}
	return maxVal + math.Log(acc)
}
