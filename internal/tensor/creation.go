package tensor

import (
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, DataTypeOf[T](), b.Device())
	if err != nil {
		panic(err) // shape validation should prevent this
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with values drawn from a standard normal
// distribution using the supplied source, so results are reproducible.
// A nil rng uses a fixed seed of 1.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	t := tensor.Randn[float32](Shape{8, 16}, backend, rng)
func Randn[T DType, B Backend](shape Shape, b B, rng *rand.Rand) *Tensor[T, B] {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec // G404: reproducible ML data, not security sensitive
	}
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(rng.NormFloat64())
	}
	return t
}
