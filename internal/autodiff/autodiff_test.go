package autodiff_test

import (
	"testing"

	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func TestAutodiffBackend_Metadata(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.NotNil(t, backend.Inner())
}

func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	assert.False(t, tape.IsRecording())
	tape.StartRecording()
	assert.True(t, tape.IsRecording())
	tape.StopRecording()
	assert.False(t, tape.IsRecording())
}

func TestTape_RecordsOnlyWhileRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	a, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	_ = a.Add(a)
	assert.Equal(t, 0, tape.NumOps())

	tape.StartRecording()
	_ = a.Add(a).Mul(a)
	assert.Equal(t, 2, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

func TestBackward_Square(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	y := x.Mul(x)
	grads := autodiff.Backward(y, backend)

	assert.InDelta(t, 6.0, grads[x.Raw()].AsFloat32()[0], 1e-6)
}

func TestBackward_SeedsTargetNotLastOp(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float64{2}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	y := x.MulScalar(3)
	_ = x.Exp() // recorded after y, unrelated to it

	grads := autodiff.Backward(y, backend)
	assert.InDelta(t, 3.0, grads[x.Raw()].AsFloat64()[0], 1e-12)
}

func TestBackward_AccumulatesReusedInputs(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	// y = Σ (x + x·x) → dy/dx = 1 + 2x
	y := x.Add(x.Mul(x)).Sum()
	grads := autodiff.Backward(y, backend)

	assert.InDeltaSlice(t, []float64{3, 5}, grads[x.Raw()].AsFloat64(), 1e-12)
}

func TestBackward_DetachStopsGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float64{2}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	// y = x · detach(x) → dy/dx = detach(x) = 2
	y := x.Mul(x.Detach())
	grads := autodiff.Backward(y, backend)

	assert.InDelta(t, 2.0, grads[x.Raw()].AsFloat64()[0], 1e-12)
}

func TestBackward_BroadcastReduces(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	col, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)
	row, err := tensor.FromSlice([]float64{10, 20, 30}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	y := col.Mul(row).Sum()
	grads := autodiff.Backward(y, backend)

	gc := grads[col.Raw()]
	gr := grads[row.Raw()]
	assert.Equal(t, tensor.Shape{2, 1}, gc.Shape())
	assert.Equal(t, tensor.Shape{1, 3}, gr.Shape())
	assert.InDeltaSlice(t, []float64{60, 60}, gc.AsFloat64(), 1e-12)
	assert.InDeltaSlice(t, []float64{3, 3, 3}, gr.AsFloat64(), 1e-12)
}

func TestBackward_NoOpsPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones[float32](tensor.Shape{1}, backend)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}

func TestGrad(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	unused := tensor.Ones[float64](tensor.Shape{2}, backend)

	grads := autodiff.Backward(x.MulScalar(4).Sum(), backend)

	g := autodiff.Grad(grads, x)
	require.NotNil(t, g)
	assert.Equal(t, []float64{4, 4}, g.Data())
	assert.Nil(t, autodiff.Grad(grads, unused))
}
