package nn

import (
	"fmt"

	"github.com/born-ml/circleloss/internal/tensor"
)

// DotSimilarity returns x @ yᵀ for x:[m, d] and y:[n, d].
//
// Example:
//
//	q: [4, 128], p: [8, 128] → sim: [4, 8]
func DotSimilarity[T tensor.DType, B tensor.Backend](x, y *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	if err := checkPair(x, y, "x", "y"); err != nil {
		return nil, err
	}
	return x.MatMul(y.T()), nil
}

// CosineSimilarity returns (x @ yᵀ) / (‖x‖ @ ‖y‖ᵀ), where ‖·‖ is the
// per-row L2 norm kept as an [m, 1] column. Every entry lies in [-1, 1].
// A zero-norm row in either batch yields ErrZeroNorm.
func CosineSimilarity[T tensor.DType, B tensor.Backend](x, y *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	if err := checkPair(x, y, "x", "y"); err != nil {
		return nil, err
	}

	xNorm := rowNorms(x)
	if row, ok := firstZero(xNorm); ok {
		return nil, fmt.Errorf("%w: x row %d", ErrZeroNorm, row)
	}
	yNorm := rowNorms(y)
	if row, ok := firstZero(yNorm); ok {
		return nil, fmt.Errorf("%w: y row %d", ErrZeroNorm, row)
	}

	dot := x.MatMul(y.T())
	return dot.Div(xNorm.MatMul(yNorm.T())), nil
}

// ComputeSimilarity dispatches to the similarity selected by mode.
// Modes other than dot and cosine yield ErrUnsupportedSimilarity.
func ComputeSimilarity[T tensor.DType, B tensor.Backend](mode Similarity, x, y *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	switch mode {
	case SimilarityDot:
		return DotSimilarity(x, y)
	case SimilarityCosine:
		return CosineSimilarity(x, y)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSimilarity, mode)
	}
}

// rowNorms returns sqrt(Σ x², axis=1) as an [m, 1] column.
func rowNorms[T tensor.DType, B tensor.Backend](x *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	return x.Mul(x).SumDim(1, true).Sqrt()
}

func firstZero[T tensor.DType, B tensor.Backend](norms *tensor.Tensor[T, B]) (int, bool) {
	for i, v := range norms.Data() {
		if v == 0 {
			return i, true
		}
	}
	return 0, false
}

func checkPair[T tensor.DType, B tensor.Backend](x, y *tensor.Tensor[T, B], xName, yName string) error {
	if x == nil || y == nil {
		return fmt.Errorf("%w: nil tensor", ErrInvalidShape)
	}
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 {
		return fmt.Errorf("%w: similarity needs 2D batches, got %s %v and %s %v", ErrInvalidShape, xName, xs, yName, ys)
	}
	if xs[1] != ys[1] {
		return fmt.Errorf("%w: %s dim %d vs %s dim %d", ErrDimensionMismatch, xName, xs[1], yName, ys[1])
	}
	return nil
}
