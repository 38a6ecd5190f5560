package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/circleloss/internal/tensor"
)

// CircleLoss computes the circle loss of query embeddings against
// positive and negative embeddings.
//
// With sim_p = sim(Q, P), sim_n = sim(Q, N) and margin m:
//
//	alpha_p = relu(1 + m - sim_p)      margin_p = 1 - m
//	alpha_n = relu(sim_n + m)          margin_n = ±m
//	logit_p = -scale · alpha_p · (sim_p - margin_p)
//	logit_n =  scale · alpha_n · (sim_n - margin_n)
//
// PolicyLogSumExp returns log(1 + Σexp(logit_p) · Σexp(logit_n)), evaluated
// as softplus(LSE(logit_p) + LSE(logit_n)) so large scales do not overflow.
// PolicyBCE returns the mean binary cross-entropy of the positive-signed
// logits labelled 1 (positives) and 0 (negatives).
//
// The loss is built from tensor operations, so on an autodiff backend
// gradients flow to P, N and Q.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	criterion, err := nn.NewCircleLoss[float32](nn.DefaultCircleLossConfig(), backend)
//	loss, err := criterion.Forward(positives, negatives, queries)
//	grads := autodiff.Backward(loss, backend)
type CircleLoss[T tensor.DType, B tensor.Backend] struct {
	cfg     CircleLossConfig
	backend B
}

// NewCircleLoss validates cfg and creates a circle loss.
func NewCircleLoss[T tensor.DType, B tensor.Backend](cfg CircleLossConfig, backend B) (*CircleLoss[T, B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CircleLoss[T, B]{
		cfg:     cfg,
		backend: backend,
	}, nil
}

// Config returns the loss configuration.
func (c *CircleLoss[T, B]) Config() CircleLossConfig {
	return c.cfg
}

// Forward computes the loss for positives p, negatives n and queries q.
//
// Each batch is [batch, features...]; trailing dimensions are flattened.
// All three must share the flattened feature dimension. Returns a 0-D tensor.
func (c *CircleLoss[T, B]) Forward(p, n, q *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	if err := validateBatches(p, n, q); err != nil {
		return nil, err
	}
	p, n, q = p.Flatten2D(), n.Flatten2D(), q.Flatten2D()

	simP, err := ComputeSimilarity(c.cfg.Similarity, q, p)
	if err != nil {
		return nil, fmt.Errorf("query/positive similarity: %w", err)
	}
	simN, err := ComputeSimilarity(c.cfg.Similarity, q, n)
	if err != nil {
		return nil, fmt.Errorf("query/negative similarity: %w", err)
	}

	m := float64(c.cfg.Margin)
	alphaP := simP.Neg().AddScalar(T(1 + m)).ReLU()
	alphaN := simN.AddScalar(T(m)).ReLU()
	if c.cfg.DetachWeights {
		alphaP, alphaN = alphaP.Detach(), alphaN.Detach()
	}

	// Centered similarities: sim_p - margin_p and sim_n - margin_n.
	centeredP := simP.AddScalar(T(-c.cfg.PositiveMargin()))
	centeredN := simN.AddScalar(T(-c.cfg.NegativeMarginValue()))
	scale := T(c.cfg.Scale)

	var loss *tensor.Tensor[T, B]
	switch c.cfg.Policy {
	case PolicyBCE:
		loss = c.bce(alphaP.Mul(centeredP).MulScalar(scale), alphaN.Mul(centeredN).MulScalar(scale))
	default:
		loss = c.logSumExp(alphaP.Mul(centeredP).MulScalar(-scale), alphaN.Mul(centeredN).MulScalar(scale), q.Shape()[0])
	}

	if c.cfg.Observer != nil {
		c.cfg.Observer.ObserveForward(ForwardStats{
			Similarity: c.cfg.Similarity,
			Policy:     c.cfg.Policy,
			Reduction:  c.cfg.Reduction,
			Queries:    q.Shape()[0],
			Positives:  p.Shape()[0],
			Negatives:  n.Shape()[0],
			Loss:       float64(loss.Item()),
			AlphaP:     summarize(alphaP.Data()),
			AlphaN:     summarize(alphaN.Data()),
			SimP:       summarize(simP.Data()),
			SimN:       summarize(simN.Data()),
		})
	}

	return loss, nil
}

// logSumExp computes log(1 + Σexp(logitP) · Σexp(logitN)) in log space.
// ReductionMean divides both sums by the query count.
func (c *CircleLoss[T, B]) logSumExp(logitP, logitN *tensor.Tensor[T, B], queries int) *tensor.Tensor[T, B] {
	z := logitP.LogSumExp().Add(logitN.LogSumExp())
	if c.cfg.Reduction == ReductionMean {
		z = z.AddScalar(T(-2 * math.Log(float64(queries))))
	}
	return z.Softplus()
}

// bce flattens both logit matrices into one column, labels positives 1 and
// negatives 0, and returns the mean binary cross-entropy.
func (c *CircleLoss[T, B]) bce(logitP, logitN *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	pos, neg := logitP.NumElements(), logitN.NumElements()
	logits := tensor.Cat([]*tensor.Tensor[T, B]{
		logitP.Reshape(pos, 1),
		logitN.Reshape(neg, 1),
	}, 0)

	labels := tensor.Zeros[T, B](tensor.Shape{pos + neg, 1}, c.backend)
	data := labels.Data()
	for i := 0; i < pos; i++ {
		data[i] = 1
	}

	return tensor.BCEWithLogits(logits, labels)
}

func validateBatches[T tensor.DType, B tensor.Backend](p, n, q *tensor.Tensor[T, B]) error {
	named := []struct {
		name string
		t    *tensor.Tensor[T, B]
	}{{"positive", p}, {"negative", n}, {"query", q}}

	dims := make([]int, len(named))
	for i, b := range named {
		if b.t == nil {
			return fmt.Errorf("%w: %s batch is nil", ErrInvalidShape, b.name)
		}
		shape := b.t.Shape()
		if len(shape) < 2 {
			return fmt.Errorf("%w: %s batch must have rank >= 2, got shape %v", ErrInvalidShape, b.name, shape)
		}
		if shape.NumElements() == 0 {
			return fmt.Errorf("%w: %s batch is empty, shape %v", ErrInvalidShape, b.name, shape)
		}
		dims[i] = tensor.Shape(shape[1:]).NumElements()
	}

	queryDim := dims[2]
	for i := 0; i < 2; i++ {
		if dims[i] != queryDim {
			return fmt.Errorf("%w: query dim %d vs %s dim %d", ErrDimensionMismatch, queryDim, named[i].name, dims[i])
		}
	}
	return nil
}
