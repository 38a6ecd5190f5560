package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/circleloss/internal/tensor"
)

// BCEWithLogits computes mean binary cross-entropy from raw logits.
//
// Per element:
//
//	loss = max(x, 0) - x*y + log(1 + exp(-|x|))
//
// which equals -[y*log σ(x) + (1-y)*log(1-σ(x))] without evaluating σ(x).
// Returns a 0-D tensor.
func (cpu *CPUBackend) BCEWithLogits(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	if !logits.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("bceWithLogits: logits shape %v != targets shape %v", logits.Shape(), targets.Shape()))
	}
	if logits.DType() != targets.DType() {
		panic(fmt.Sprintf("bceWithLogits: dtype mismatch %s vs %s", logits.DType(), targets.DType()))
	}

	result := cpu.alloc("bceWithLogits", tensor.Shape{}, logits.DType())

	switch logits.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = float32(bceWithLogits(logits.AsFloat32(), targets.AsFloat32()))
	case tensor.Float64:
		result.AsFloat64()[0] = bceWithLogits(logits.AsFloat64(), targets.AsFloat64())
	default:
		panic(fmt.Sprintf("bceWithLogits: unsupported dtype %s", logits.DType()))
	}

	return result
}

func bceWithLogits[T float](logits, targets []T) float64 {
	var total float64
	for i, v := range logits {
		x, y := float64(v), float64(targets[i])
		total += math.Max(x, 0) - x*y + math.Log1p(math.Exp(-math.Abs(x)))
	}
	return total / float64(len(logits))
}
