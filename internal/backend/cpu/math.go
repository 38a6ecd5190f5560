package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/circleloss/internal/parallel"
	"github.com/born-ml/circleloss/internal/tensor"
)

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, math.Exp)
}

// Log computes element-wise natural logarithm: ln(x).
// Non-positive inputs follow math.Log (-Inf for 0, NaN below).
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("log", x, math.Log)
}

// Sqrt computes element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sqrt", x, math.Sqrt)
}

// ReLU computes max(0, x).
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// Softplus computes log(1 + exp(x)) as max(x, 0) + log1p(exp(-|x|)),
// which neither overflows for large x nor loses precision for very negative x.
func (cpu *CPUBackend) Softplus(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("softplus", x, Softplus)
}

// Softplus is the scalar form of CPUBackend.Softplus.
func Softplus(v float64) float64 {
	return math.Max(v, 0) + math.Log1p(math.Exp(-math.Abs(v)))
}

// Sigmoid computes 1 / (1 + exp(-v)) without overflow.
func Sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

// MulScalar multiplies each element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := scalarFloat64("mulScalar", scalar)
	return cpu.unary("mulScalar", x, func(v float64) float64 { return v * s })
}

// AddScalar adds scalar to each element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := scalarFloat64("addScalar", scalar)
	return cpu.unary("addScalar", x, func(v float64) float64 { return v + s })
}

func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := cpu.alloc(op, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		mapValues(result.AsFloat32(), x.AsFloat32(), f, cpu.parallel)
	case tensor.Float64:
		mapValues(result.AsFloat64(), x.AsFloat64(), f, cpu.parallel)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, x.DType()))
	}

	return result
}

// mapValues splits large inputs across workers; f must be pure.
func mapValues[T float](dst, src []T, f func(float64) float64, cfg parallel.Config) {
	parallel.ForRows(len(src), 1, func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = T(f(float64(src[i])))
		}
	}, cfg)
}

// scalarFloat64 converts the scalar argument of a scalar op.
func scalarFloat64(op string, scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}
