package nn_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func randn(b Backend, seed int64, shape ...int) *tensor.Tensor[float64, Backend] {
	return tensor.Randn[float64](tensor.Shape(shape), b, rand.New(rand.NewSource(seed)))
}

func TestDotSimilarity_TransposeSymmetry(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := randn(backend, 1, 3, 5)
	y := randn(backend, 2, 4, 5)

	xy, err := nn.DotSimilarity(x, y)
	require.NoError(t, err)
	yx, err := nn.DotSimilarity(y, x)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{3, 4}, xy.Shape())
	assert.InDeltaSlice(t, xy.Data(), yx.T().Data(), 1e-12)
}

func TestDotSimilarity_Linear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x1 := randn(backend, 3, 2, 4)
	x2 := randn(backend, 4, 2, 4)
	y := randn(backend, 5, 3, 4)

	lhs, err := nn.DotSimilarity(x1.MulScalar(2).Add(x2), y)
	require.NoError(t, err)

	s1, err := nn.DotSimilarity(x1, y)
	require.NoError(t, err)
	s2, err := nn.DotSimilarity(x2, y)
	require.NoError(t, err)

	assert.InDeltaSlice(t, s1.MulScalar(2).Add(s2).Data(), lhs.Data(), 1e-12)
}

func TestCosineSimilarity_RangeAndDiagonal(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := randn(backend, 6, 5, 8)
	y := randn(backend, 7, 6, 8)

	cross, err := nn.CosineSimilarity(x, y)
	require.NoError(t, err)
	for _, v := range cross.Data() {
		assert.LessOrEqual(t, v, 1.0+1e-12)
		assert.GreaterOrEqual(t, v, -1.0-1e-12)
	}

	self, err := nn.CosineSimilarity(x, x)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 1.0, self.At(i, i), 1e-12)
	}
}

func TestCosineSimilarity_ScaleInvariant(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := randn(backend, 8, 2, 3)
	y := randn(backend, 9, 2, 3)

	a, err := nn.CosineSimilarity(x, y)
	require.NoError(t, err)
	b, err := nn.CosineSimilarity(x.MulScalar(7), y.MulScalar(0.1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, a.Data(), b.Data(), 1e-12)
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x, err := tensor.FromSlice([]float64{1, 0, 0, 0}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	y := randn(backend, 10, 3, 2)

	_, err = nn.CosineSimilarity(x, y)
	assert.ErrorIs(t, err, nn.ErrZeroNorm)
	assert.Contains(t, err.Error(), "row 1")

	_, err = nn.CosineSimilarity(y, x)
	assert.ErrorIs(t, err, nn.ErrZeroNorm)
}

func TestSimilarity_DimensionMismatch(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := randn(backend, 11, 2, 4)
	y := randn(backend, 12, 2, 5)

	for _, mode := range []nn.Similarity{nn.SimilarityDot, nn.SimilarityCosine} {
		_, err := nn.ComputeSimilarity(mode, x, y)
		assert.ErrorIs(t, err, nn.ErrDimensionMismatch, mode.String())
		assert.Contains(t, err.Error(), "dim 4")
		assert.Contains(t, err.Error(), "dim 5")
	}
}

func TestComputeSimilarity_Unsupported(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := randn(backend, 13, 2, 4)

	_, err := nn.ComputeSimilarity(nn.Similarity(42), x, x)
	assert.ErrorIs(t, err, nn.ErrUnsupportedSimilarity)

	dot, err := nn.ComputeSimilarity(nn.SimilarityDot, x, x)
	require.NoError(t, err)
	want, err := nn.DotSimilarity(x, x)
	require.NoError(t, err)
	assert.Equal(t, want.Data(), dot.Data())
}
