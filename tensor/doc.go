// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor API used by the circle loss.
//
// # Overview
//
//   - Generic type-safe tensors (Tensor[T, B]) over float32 and float64
//   - NumPy-style broadcasting for element-wise arithmetic
//   - A Backend interface implemented by backend/cpu and decorated by autodiff
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/circleloss/backend/cpu"
//	    "github.com/born-ml/circleloss/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//
//	    z := x.Add(y)
//	    sim := x.MatMul(y.T()) // [2, 2]
//	}
//
// # Broadcasting
//
//	a := tensor.Zeros[float32](tensor.Shape{3, 1}, backend) // (3, 1)
//	b := tensor.Ones[float32](tensor.Shape{3, 4}, backend)  // (3, 4)
//	c := a.Add(b)                                           // (3, 4)
//
// # Operations
//
// Arithmetic: Add, Sub, Mul, Div, MulScalar, AddScalar, Neg, MatMul.
// Math: Exp, Log, Sqrt, ReLU, Softplus.
// Reductions: Sum, SumDim, LogSumExp.
// Shape: Reshape, Flatten2D, Transpose, T, Cat.
// Loss: BCEWithLogits.
package tensor
