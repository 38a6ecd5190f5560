package nn_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/born-ml/circleloss/internal/autodiff"
	"github.com/born-ml/circleloss/internal/backend/cpu"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One query [1, 0] with positive [0.8, 0.6] and negative [0.1, 0.3]:
// dot similarities are sim_p = 0.8 and sim_n = 0.1.
func handExample(t *testing.T, b Backend) (p, n, q *tensor.Tensor[float64, Backend]) {
	t.Helper()
	var err error
	p, err = tensor.FromSlice([]float64{0.8, 0.6}, tensor.Shape{1, 2}, b)
	require.NoError(t, err)
	n, err = tensor.FromSlice([]float64{0.1, 0.3}, tensor.Shape{1, 2}, b)
	require.NoError(t, err)
	q, err = tensor.FromSlice([]float64{1, 0}, tensor.Shape{1, 2}, b)
	require.NoError(t, err)
	return p, n, q
}

func TestCircleLoss_HandComputed(t *testing.T) {
	// alpha_p = 0.45, alpha_n = 0.35
	// A: logit_p = -32·0.45·0.05 = -0.72, logit_n = 32·0.35·(0.1-0.25) = -1.68
	//    loss = log(1 + exp(-2.4))
	// B: logit_p = 0.72 (label 1), logit_n = 32·0.35·(0.1+0.25) = 3.92 (label 0)
	//    loss = (softplus(-0.72) + softplus(3.92)) / 2
	tests := []struct {
		policy nn.Policy
		want   float64
	}{
		{nn.PolicyLogSumExp, 0.08683615215394964},
		{nn.PolicyBCE, 2.1681204363368303},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			p, n, q := handExample(t, backend)

			cfg := nn.DefaultCircleLossConfig()
			cfg.Policy = tt.policy
			criterion, err := nn.NewCircleLoss[float64](cfg, backend)
			require.NoError(t, err)

			loss, err := criterion.Forward(p, n, q)
			require.NoError(t, err)
			assert.Empty(t, loss.Shape())
			assert.InDelta(t, tt.want, loss.Item(), 1e-5)
		})
	}
}

func TestCircleLoss_ForcedNegativeMargin(t *testing.T) {
	// Each case flips the sign its policy would pick under Auto.
	// A, -m: logit_n = 32·0.35·(0.1+0.25) = 3.92, loss = softplus(-0.72 + 3.92)
	// B, +m: logit_n = 32·0.35·(0.1-0.25) = -1.68,
	//        loss = (softplus(-0.72) + softplus(-1.68)) / 2
	tests := []struct {
		policy nn.Policy
		sign   nn.NegativeMargin
		want   float64
	}{
		{nn.PolicyLogSumExp, nn.NegativeMarginMinus, 3.2399533331624304},
		{nn.PolicyBCE, nn.NegativeMarginPlus, 0.2837478116740475},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String()+"/"+tt.sign.String(), func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			p, n, q := handExample(t, backend)

			cfg := nn.DefaultCircleLossConfig()
			cfg.Policy = tt.policy
			cfg.NegativeMargin = tt.sign
			criterion, err := nn.NewCircleLoss[float64](cfg, backend)
			require.NoError(t, err)

			loss, err := criterion.Forward(p, n, q)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, loss.Item(), 1e-5)
		})
	}
}

func TestCircleLoss_Float32MatchesFloat64(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p, err := tensor.FromSlice([]float32{0.8, 0.6}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	n, err := tensor.FromSlice([]float32{0.1, 0.3}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	q, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	criterion, err := nn.NewCircleLoss[float32](nn.DefaultCircleLossConfig(), backend)
	require.NoError(t, err)
	loss, err := criterion.Forward(p, n, q)
	require.NoError(t, err)
	assert.InDelta(t, 0.08683615215394964, float64(loss.Item()), 1e-5)
}

func TestCircleLoss_FiniteAndNonNegative(t *testing.T) {
	for _, sim := range []nn.Similarity{nn.SimilarityDot, nn.SimilarityCosine} {
		for _, policy := range []nn.Policy{nn.PolicyLogSumExp, nn.PolicyBCE} {
			for _, red := range []nn.Reduction{nn.ReductionSum, nn.ReductionMean} {
				name := fmt.Sprintf("%s/%s/%s", sim, policy, red)
				t.Run(name, func(t *testing.T) {
					backend := autodiff.New(cpu.New())
					cfg := nn.DefaultCircleLossConfig()
					cfg.Similarity, cfg.Policy, cfg.Reduction = sim, policy, red

					criterion, err := nn.NewCircleLoss[float64](cfg, backend)
					require.NoError(t, err)

					for seed := int64(0); seed < 5; seed++ {
						p := randn(backend, 100+seed, 6, 16)
						n := randn(backend, 200+seed, 9, 16)
						q := randn(backend, 300+seed, 4, 16)

						loss, err := criterion.Forward(p, n, q)
						require.NoError(t, err)
						v := loss.Item()
						assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "loss %v", v)
						assert.GreaterOrEqual(t, v, 0.0)
					}
				})
			}
		}
	}
}

func TestCircleLoss_MeanReduction(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := randn(backend, 1, 3, 4)
	n := randn(backend, 2, 5, 4)
	q := randn(backend, 3, 2, 4)

	cfg := nn.DefaultCircleLossConfig()
	cfg.Similarity = nn.SimilarityCosine
	cfg.Scale = 4

	sum, err := nn.NewCircleLoss[float64](cfg, backend)
	require.NoError(t, err)
	cfg.Reduction = nn.ReductionMean
	mean, err := nn.NewCircleLoss[float64](cfg, backend)
	require.NoError(t, err)

	lossSum, err := sum.Forward(p, n, q)
	require.NoError(t, err)
	lossMean, err := mean.Forward(p, n, q)
	require.NoError(t, err)

	// exp(sum) - 1 = Lp·Ln, exp(mean) - 1 = (Lp/2)·(Ln/2)
	product := math.Expm1(lossSum.Item())
	assert.InDelta(t, math.Log1p(product/4), lossMean.Item(), 1e-9)
}

func TestCircleLoss_BCEIgnoresReduction(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := randn(backend, 4, 3, 4)
	n := randn(backend, 5, 2, 4)
	q := randn(backend, 6, 3, 4)

	cfg := nn.DefaultCircleLossConfig()
	cfg.Policy = nn.PolicyBCE
	a, err := nn.NewCircleLoss[float64](cfg, backend)
	require.NoError(t, err)
	cfg.Reduction = nn.ReductionMean
	b, err := nn.NewCircleLoss[float64](cfg, backend)
	require.NoError(t, err)

	la, err := a.Forward(p, n, q)
	require.NoError(t, err)
	lb, err := b.Forward(p, n, q)
	require.NoError(t, err)
	assert.Equal(t, la.Item(), lb.Item())
}

func TestCircleLoss_FlattensTrailingDims(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p := randn(backend, 7, 2, 2, 3)
	n := randn(backend, 8, 3, 6)
	q := randn(backend, 9, 4, 3, 2)

	criterion, err := nn.NewCircleLoss[float64](nn.DefaultCircleLossConfig(), backend)
	require.NoError(t, err)

	got, err := criterion.Forward(p, n, q)
	require.NoError(t, err)
	want, err := criterion.Forward(p.Reshape(2, 6), n, q.Reshape(4, 6))
	require.NoError(t, err)
	assert.InDelta(t, want.Item(), got.Item(), 1e-12)
}

func TestNewCircleLoss_InvalidSimilarity(t *testing.T) {
	backend := autodiff.New(cpu.New())

	_, err := nn.ParseSimilarity("invalid")
	require.ErrorIs(t, err, nn.ErrUnsupportedSimilarity)

	cfg := nn.DefaultCircleLossConfig()
	cfg.Similarity = nn.Similarity(-1)
	criterion, err := nn.NewCircleLoss[float64](cfg, backend)
	assert.Nil(t, criterion)
	assert.ErrorIs(t, err, nn.ErrUnsupportedSimilarity)
}

func TestCircleLoss_ShapeErrors(t *testing.T) {
	backend := autodiff.New(cpu.New())
	criterion, err := nn.NewCircleLoss[float64](nn.DefaultCircleLossConfig(), backend)
	require.NoError(t, err)

	good := randn(backend, 1, 2, 4)

	t.Run("query dim 4 vs positive dim 5", func(t *testing.T) {
		loss, err := criterion.Forward(randn(backend, 2, 2, 5), good, good)
		assert.Nil(t, loss)
		require.ErrorIs(t, err, nn.ErrDimensionMismatch)
		assert.Contains(t, err.Error(), "query dim 4")
		assert.Contains(t, err.Error(), "positive dim 5")
	})

	t.Run("negative mismatch", func(t *testing.T) {
		_, err := criterion.Forward(good, randn(backend, 3, 2, 3), good)
		require.ErrorIs(t, err, nn.ErrDimensionMismatch)
		assert.Contains(t, err.Error(), "negative dim 3")
	})

	t.Run("rank 1", func(t *testing.T) {
		_, err := criterion.Forward(good, good, randn(backend, 4, 4))
		assert.ErrorIs(t, err, nn.ErrInvalidShape)
	})

	t.Run("nil", func(t *testing.T) {
		_, err := criterion.Forward(nil, good, good)
		assert.ErrorIs(t, err, nn.ErrInvalidShape)
	})
}

func TestCircleLoss_CosineZeroNorm(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cfg := nn.DefaultCircleLossConfig()
	cfg.Similarity = nn.SimilarityCosine
	criterion, err := nn.NewCircleLoss[float64](cfg, backend)
	require.NoError(t, err)

	zero := tensor.Zeros[float64](tensor.Shape{1, 4}, backend)
	_, err = criterion.Forward(zero, randn(backend, 1, 2, 4), randn(backend, 2, 2, 4))
	assert.ErrorIs(t, err, nn.ErrZeroNorm)
	assert.Contains(t, err.Error(), "query/positive")
}

func TestCircleLoss_Observer(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p, n, q := handExample(t, backend)

	var got []nn.ForwardStats
	cfg := nn.DefaultCircleLossConfig()
	cfg.Observer = nn.ObserverFunc(func(s nn.ForwardStats) { got = append(got, s) })

	criterion, err := nn.NewCircleLoss[float64](cfg, backend)
	require.NoError(t, err)
	loss, err := criterion.Forward(p, n, q)
	require.NoError(t, err)

	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, nn.SimilarityDot, s.Similarity)
	assert.Equal(t, nn.PolicyLogSumExp, s.Policy)
	assert.Equal(t, 1, s.Queries)
	assert.Equal(t, 1, s.Positives)
	assert.Equal(t, 1, s.Negatives)
	assert.Equal(t, loss.Item(), s.Loss)
	assert.InDelta(t, 0.45, s.AlphaP.Mean, 1e-12)
	assert.InDelta(t, 0.35, s.AlphaN.Mean, 1e-12)
	assert.InDelta(t, 0.8, s.SimP.Max, 1e-12)
	assert.InDelta(t, 0.1, s.SimN.Min, 1e-12)
}

// finiteDiff estimates d loss / d x[i] with central differences.
func finiteDiff(t *testing.T, cfg nn.CircleLossConfig, p, n, q []float64, shapes [3]tensor.Shape, which, i int) float64 {
	t.Helper()
	const eps = 1e-6

	eval := func(delta float64) float64 {
		backend := autodiff.New(cpu.New())
		data := [][]float64{
			append([]float64(nil), p...),
			append([]float64(nil), n...),
			append([]float64(nil), q...),
		}
		data[which][i] += delta

		ts := make([]*tensor.Tensor[float64, Backend], 3)
		for k := range ts {
			var err error
			ts[k], err = tensor.FromSlice(data[k], shapes[k], backend)
			require.NoError(t, err)
		}
		criterion, err := nn.NewCircleLoss[float64](cfg, backend)
		require.NoError(t, err)
		loss, err := criterion.Forward(ts[0], ts[1], ts[2])
		require.NoError(t, err)
		return loss.Item()
	}

	return (eval(eps) - eval(-eps)) / (2 * eps)
}

func TestCircleLoss_GradientMatchesFiniteDifferences(t *testing.T) {
	shapes := [3]tensor.Shape{{3, 4}, {2, 4}, {2, 4}}
	seedBackend := autodiff.New(cpu.New())
	p := randn(seedBackend, 21, 3, 4).Data()
	n := randn(seedBackend, 22, 2, 4).Data()
	q := randn(seedBackend, 23, 2, 4).Data()

	for _, sim := range []nn.Similarity{nn.SimilarityDot, nn.SimilarityCosine} {
		for _, policy := range []nn.Policy{nn.PolicyLogSumExp, nn.PolicyBCE} {
			t.Run(sim.String()+"/"+policy.String(), func(t *testing.T) {
				cfg := nn.DefaultCircleLossConfig()
				cfg.Similarity, cfg.Policy = sim, policy
				cfg.Scale = 2

				backend := autodiff.New(cpu.New())
				backend.Tape().StartRecording()
				pt, err := tensor.FromSlice(p, shapes[0], backend)
				require.NoError(t, err)
				nt, err := tensor.FromSlice(n, shapes[1], backend)
				require.NoError(t, err)
				qt, err := tensor.FromSlice(q, shapes[2], backend)
				require.NoError(t, err)

				criterion, err := nn.NewCircleLoss[float64](cfg, backend)
				require.NoError(t, err)
				loss, err := criterion.Forward(pt, nt, qt)
				require.NoError(t, err)
				grads := autodiff.Backward(loss, backend)

				for which, x := range []*tensor.Tensor[float64, Backend]{pt, nt, qt} {
					g := autodiff.Grad(grads, x)
					require.NotNil(t, g, "input %d has no gradient", which)
					for i := range g.Data() {
						want := finiteDiff(t, cfg, p, n, q, shapes, which, i)
						assert.InDelta(t, want, g.Data()[i], 1e-5*math.Max(1, math.Abs(want)), "input %d coordinate %d", which, i)
					}
				}
			})
		}
	}
}

func TestCircleLoss_DetachWeights(t *testing.T) {
	cfg := nn.DefaultCircleLossConfig()
	cfg.Scale = 2

	run := func(detach bool) (float64, []float64) {
		backend := autodiff.New(cpu.New())
		backend.Tape().StartRecording()
		p, n, q := handExample(t, backend)

		c := cfg
		c.DetachWeights = detach
		criterion, err := nn.NewCircleLoss[float64](c, backend)
		require.NoError(t, err)
		loss, err := criterion.Forward(p, n, q)
		require.NoError(t, err)
		grads := autodiff.Backward(loss, backend)
		return loss.Item(), autodiff.Grad(grads, q).Data()
	}

	lossFull, gradFull := run(false)
	lossDetached, gradDetached := run(true)

	assert.InDelta(t, lossFull, lossDetached, 1e-12)
	assert.NotEqual(t, gradFull, gradDetached)
}
