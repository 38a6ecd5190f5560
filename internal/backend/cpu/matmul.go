package cpu

import (
	"fmt"

	"github.com/born-ml/circleloss/internal/parallel"
	"github.com/born-ml/circleloss/internal/tensor"
)

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Output rows are computed in parallel chunks for large problems.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", a.DType(), b.DType()))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := cpu.alloc("matmul", tensor.Shape{m, n}, a.DType())

	switch a.DType() {
	case tensor.Float32:
		matmul(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.parallel)
	case tensor.Float64:
		matmul(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.parallel)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmul computes C = A @ B with an i-k-j loop so the inner loop streams
// rows of B and C. c must be zeroed.
func matmul[T float](c, a, b []T, m, k, n int, cfg parallel.Config) {
	parallel.ForRows(m, k*n, func(start, end int) {
		for i := start; i < end; i++ {
			cRow := c[i*n : (i+1)*n]
			for kk := 0; kk < k; kk++ {
				aik := a[i*k+kk]
				if aik == 0 {
					continue
				}
				bRow := b[kk*n : (kk+1)*n]
				for j, bkj := range bRow {
					cRow[j] += aik * bkj
				}
			}
		}
	}, cfg)
}
