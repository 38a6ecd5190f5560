// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/parallel"
	"github.com/born-ml/circleloss/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls the worker pool used by MatMul.
type ParallelConfig = parallel.Config

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend with one worker per CPU.
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit worker configuration.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}
