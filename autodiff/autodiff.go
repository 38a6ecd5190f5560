// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// It wraps any backend and records operations on a gradient tape so that
// gradients of a scalar loss can be computed for every input.
//
// Example:
//
//	import (
//	    "github.com/born-ml/circleloss/autodiff"
//	    "github.com/born-ml/circleloss/backend/cpu"
//	    "github.com/born-ml/circleloss/tensor"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    backend.Tape().StartRecording()
//
//	    x, _ := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
//	    y := x.Mul(x)
//
//	    grads := autodiff.Backward(y, backend)
//	    dx := grads[x.Raw()] // [6]
//	}
package autodiff

import (
	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients of t for every recorded tensor it depends on.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}

// Grad looks up the gradient of x, or returns nil when none reached it.
func Grad[T tensor.DType, B tensor.Backend](grads map[*tensor.RawTensor]*tensor.RawTensor, x *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	return autodiff.Grad(grads, x)
}
