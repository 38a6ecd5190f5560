package tensor

// Backend defines the operations a compute backend must implement.
// Backends work on RawTensor and allocate a fresh result for every call.
//
// Implementations:
//   - cpu.CPUBackend: pure Go reference implementation
//   - autodiff.AutodiffBackend: decorator recording every op on a tape
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul multiplies 2D tensors: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Scalar operations (element-wise with a scalar).
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Element-wise math.
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor
	Softplus(x *RawTensor) *RawTensor // log(1 + exp(x)), overflow safe

	// Reductions. Sum and LogSumExp reduce over every element to a 0-D tensor.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	LogSumExp(x *RawTensor) *RawTensor

	// BCEWithLogits returns the mean binary cross-entropy of logits against
	// 0/1 targets of the same shape as a 0-D tensor.
	BCEWithLogits(logits, targets *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
