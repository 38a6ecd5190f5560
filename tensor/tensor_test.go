// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/born-ml/circleloss/backend/cpu"
	"github.com/born-ml/circleloss/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicAPI(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, tensor.CPU, x.Device())

	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
	z := x.Add(y)
	assert.Equal(t, []float32{2, 3, 4, 5, 6, 7}, z.Data())

	gram := x.MatMul(x.T())
	assert.Equal(t, tensor.Shape{2, 2}, gram.Shape())
	assert.Equal(t, []float32{14, 32, 32, 77}, gram.Data())

	cat := tensor.Cat([]*tensor.Tensor[float32, *cpu.Backend]{x, y}, 0)
	assert.Equal(t, tensor.Shape{4, 3}, cat.Shape())
}

func TestPublicAPI_Broadcast(t *testing.T) {
	backend := cpu.New()
	a := tensor.Zeros[float64](tensor.Shape{3, 1}, backend)
	b := tensor.Full[float64](tensor.Shape{3, 4}, 2, backend)
	assert.Equal(t, tensor.Shape{3, 4}, a.Add(b).Shape())

	shape, broadcast, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{4})
	require.NoError(t, err)
	assert.True(t, broadcast)
	assert.Equal(t, tensor.Shape{3, 4}, shape)
}

func TestPublicAPI_BCEWithLogits(t *testing.T) {
	backend := cpu.New()
	logits, err := tensor.FromSlice([]float64{0, 0}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]float64{1, 0}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)

	loss := tensor.BCEWithLogits(logits, targets)
	assert.InDelta(t, 0.6931471805599453, loss.Item(), 1e-12)
}
