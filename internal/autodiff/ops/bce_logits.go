package ops

import (
	"fmt"

	"github.com/born-ml/circleloss/internal/tensor"
)

// BCEWithLogitsOp represents the fused binary cross-entropy on logits.
//
// Forward:
//
//	Loss = mean(max(x,0) - x·y + log(1 + exp(-|x|)))
//
// Backward:
//
//	∂L/∂x = (sigmoid(x) - y) / N
//
// Targets are labels and receive no gradient, so only the logits are
// reported as inputs.
type BCEWithLogitsOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor
}

// NewBCEWithLogitsOp creates a new BCEWithLogitsOp.
func NewBCEWithLogitsOp(logits, targets, output *tensor.RawTensor) *BCEWithLogitsOp {
	return &BCEWithLogitsOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Backward computes the gradient with respect to the logits.
func (op *BCEWithLogitsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.logits.Shape(), op.logits.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("BCEWithLogitsOp: %v", err))
	}

	n := float64(op.logits.NumElements())
	g := outputGrad.Float64s()[0]

	switch op.logits.DType() {
	case tensor.Float32:
		x, y, dst := op.logits.AsFloat32(), op.targets.AsFloat32(), grad.AsFloat32()
		for i := range dst {
			dst[i] = float32(g * (sigmoid(float64(x[i])) - float64(y[i])) / n)
		}
	case tensor.Float64:
		x, y, dst := op.logits.AsFloat64(), op.targets.AsFloat64(), grad.AsFloat64()
		for i := range dst {
			dst[i] = g * (sigmoid(x[i]) - y[i]) / n
		}
	default:
		panic(fmt.Sprintf("BCEWithLogitsOp: unsupported dtype %s", op.logits.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the logits.
func (op *BCEWithLogitsOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss.
func (op *BCEWithLogitsOp) Output() *tensor.RawTensor {
	return op.output
}
