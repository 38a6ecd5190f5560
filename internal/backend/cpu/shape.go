package cpu

import (
	"fmt"

	"github.com/born-ml/circleloss/internal/tensor"
)

// Reshape returns a copy of t laid out under newShape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := t.WithShape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose permutes the tensor's dimensions.
// With no axes all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := cpu.alloc("transpose", newShape, t.DType())

	switch t.DType() {
	case tensor.Float32:
		transpose(result.AsFloat32(), t.AsFloat32(), shape, newShape, axes)
	case tensor.Float64:
		transpose(result.AsFloat64(), t.AsFloat64(), shape, newShape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}

	return result
}

func transpose[T float](dst, src []T, inShape, outShape tensor.Shape, axes []int) {
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	// Source stride for each output dimension.
	permStrides := make([]int, len(axes))
	for i, ax := range axes {
		permStrides[i] = inStrides[ax]
	}

	for i := range dst {
		dst[i] = src[flatIndex(i, outStrides, permStrides)]
	}
}

// Cat concatenates tensors along dim. Negative dims count from the end.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}

	first := tensors[0].Shape()
	ndim := len(first)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensors", dim, ndim))
	}

	outShape := first.Clone()
	outShape[dim] = 0
	for i, t := range tensors {
		shape := t.Shape()
		if len(shape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has rank %d, expected %d", i, len(shape), ndim))
		}
		if t.DType() != tensors[0].DType() {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), tensors[0].DType()))
		}
		for d := range shape {
			if d != dim && shape[d] != first[d] {
				panic(fmt.Sprintf("cat: tensor %d shape %v incompatible with %v along dim %d", i, shape, first, d))
			}
		}
		outShape[dim] += shape[dim]
	}

	result := cpu.alloc("cat", outShape, tensors[0].DType())

	switch result.DType() {
	case tensor.Float32:
		srcs := make([][]float32, len(tensors))
		for i, t := range tensors {
			srcs[i] = t.AsFloat32()
		}
		concat(result.AsFloat32(), srcs, tensors, dim)
	case tensor.Float64:
		srcs := make([][]float64, len(tensors))
		for i, t := range tensors {
			srcs[i] = t.AsFloat64()
		}
		concat(result.AsFloat64(), srcs, tensors, dim)
	default:
		panic(fmt.Sprintf("cat: unsupported dtype %s", result.DType()))
	}

	return result
}

// concat copies each source's contiguous block per outer index.
func concat[T float](dst []T, srcs [][]T, tensors []*tensor.RawTensor, dim int) {
	shape := tensors[0].Shape()
	outer := tensor.Shape(shape[:dim]).NumElements()
	inner := tensor.Shape(shape[dim+1:]).NumElements()

	pos := 0
	for o := 0; o < outer; o++ {
		for i, src := range srcs {
			block := tensors[i].Shape()[dim] * inner
			copy(dst[pos:pos+block], src[o*block:(o+1)*block])
			pos += block
		}
	}
}
