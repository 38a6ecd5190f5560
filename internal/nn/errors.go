package nn

import "errors"

// Sentinel errors returned by the circle loss. They are wrapped with
// context, so match them with errors.Is.
var (
	// ErrUnsupportedSimilarity reports a similarity mode other than dot or cosine.
	ErrUnsupportedSimilarity = errors.New("unsupported similarity")

	// ErrInvalidConfig reports an out-of-range scale, margin or enum value.
	ErrInvalidConfig = errors.New("invalid circle loss config")

	// ErrDimensionMismatch reports feature batches whose flattened feature
	// dimensions differ.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrInvalidShape reports a nil, empty or rank < 2 feature batch.
	ErrInvalidShape = errors.New("invalid feature batch")

	// ErrZeroNorm reports a zero-length row under cosine similarity.
	ErrZeroNorm = errors.New("zero-norm feature row")
)
