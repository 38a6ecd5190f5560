package cpu

import (
	"github.com/born-ml/circleloss/internal/tensor"
)

type float interface {
	~float32 | ~float64
}

// binaryWithBroadcast applies f element-wise, reading a and b through
// broadcast strides when their shapes differ from outShape.
func binaryWithBroadcast[T float](dst, a, b []T, aShape, bShape, outShape tensor.Shape, f func(x, y T) T) {
	if aShape.Equal(outShape) && bShape.Equal(outShape) {
		for i := range dst {
			dst[i] = f(a[i], b[i])
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	for i := range dst {
		dst[i] = f(a[flatIndex(i, outStrides, aStrides)], b[flatIndex(i, outStrides, bStrides)])
	}
}

// broadcastStrides computes strides for reading inShape as if it had outShape.
// Dimensions of size 1 and left-padded dimensions get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	offset := len(outShape) - len(inShape)
	orig := inShape.ComputeStrides()

	for i := range outShape {
		inIdx := i - offset
		if inIdx < 0 || inShape[inIdx] == 1 {
			continue
		}
		strides[i] = orig[inIdx]
	}
	return strides
}

// flatIndex maps a flat output index to a flat input index.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	flat := 0
	for i, s := range outStrides {
		coord := outIdx / s
		outIdx %= s
		flat += coord * inStrides[i]
	}
	return flat
}
