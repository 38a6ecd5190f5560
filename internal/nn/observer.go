package nn

import (
	"math"

	"github.com/born-ml/circleloss/internal/tensor"
)

// Observer receives statistics about every CircleLoss.Forward call.
// Implementations must be safe for concurrent use when the loss is shared.
type Observer interface {
	ObserveForward(stats ForwardStats)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(stats ForwardStats)

// ObserveForward calls f(stats).
func (f ObserverFunc) ObserveForward(stats ForwardStats) {
	f(stats)
}

// Summary holds the range and mean of a tensor's values.
type Summary struct {
	Min  float64
	Max  float64
	Mean float64
}

// ForwardStats describes one evaluated loss.
type ForwardStats struct {
	Similarity Similarity
	Policy     Policy
	Reduction  Reduction

	Queries   int
	Positives int
	Negatives int

	Loss float64

	AlphaP Summary
	AlphaN Summary
	SimP   Summary
	SimN   Summary
}

func summarize[T tensor.DType](values []T) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	var total float64
	for _, v := range values {
		f := float64(v)
		s.Min = math.Min(s.Min, f)
		s.Max = math.Max(s.Max, f)
		total += f
	}
	s.Mean = total / float64(len(values))
	return s
}
