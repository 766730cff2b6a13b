package tensor

// Backend defines the interface that compute backends implement.
// A backend owns the kernels for one device; the Tensor layer validates
// dtype/device compatibility and dispatches here, so kernels can assume
// co-resident operands of a shared dtype.
//
// Implementations:
//   - backend/cpu: pure Go kernels over host memory
//   - backend/webgpu: WebGPU buffer residency with staged host compute
type Backend interface {
	// Element-wise binary arithmetic with broadcasting. Result dtype equals
	// the operand dtype.
	Add(a, b *RawTensor) (*RawTensor, error)
	Sub(a, b *RawTensor) (*RawTensor, error)
	Mul(a, b *RawTensor) (*RawTensor, error)
	Div(a, b *RawTensor) (*RawTensor, error)

	// Element-wise comparisons with broadcasting. Results are Bool tensors.
	Gt(a, b *RawTensor) (*RawTensor, error)
	Lt(a, b *RawTensor) (*RawTensor, error)
	Ge(a, b *RawTensor) (*RawTensor, error)
	Le(a, b *RawTensor) (*RawTensor, error)
	Eq(a, b *RawTensor) (*RawTensor, error)
	Ne(a, b *RawTensor) (*RawTensor, error)

	// Element-wise logical operations. Any nonzero element counts as true;
	// non-Bool operands materialize results as 0/1 in their own dtype.
	LogicalAnd(a, b *RawTensor) (*RawTensor, error)
	LogicalOr(a, b *RawTensor) (*RawTensor, error)
	LogicalNot(x *RawTensor) (*RawTensor, error)

	// Element-wise unary math (float dtypes unless noted).
	Sqrt(x *RawTensor) (*RawTensor, error)
	Sin(x *RawTensor) (*RawTensor, error)
	Cos(x *RawTensor) (*RawTensor, error)
	Exp(x *RawTensor) (*RawTensor, error)
	Log(x *RawTensor) (*RawTensor, error)
	Abs(x *RawTensor) (*RawTensor, error) // signed integers and floats
	Neg(x *RawTensor) (*RawTensor, error) // signed integers and floats

	// In-place unary math, mutating x's buffer through its view.
	SqrtInPlace(x *RawTensor) error
	SinInPlace(x *RawTensor) error
	CosInPlace(x *RawTensor) error
	ExpInPlace(x *RawTensor) error
	LogInPlace(x *RawTensor) error
	AbsInPlace(x *RawTensor) error
	NegInPlace(x *RawTensor) error

	// Reductions over a dimension set. An empty dims slice reduces all
	// dimensions to a 0-d scalar tensor. keepDim retains reduced dimensions
	// at size 1.
	Sum(x *RawTensor, dims []int, keepDim bool) (*RawTensor, error)
	Min(x *RawTensor, dims []int, keepDim bool) (*RawTensor, error)
	Max(x *RawTensor, dims []int, keepDim bool) (*RawTensor, error)
	Any(x *RawTensor, dims []int, keepDim bool) (*RawTensor, error) // Bool input
	All(x *RawTensor, dims []int, keepDim bool) (*RawTensor, error) // Bool input

	// ArgMin/ArgMax along one dimension, Int64 result, first occurrence in
	// row-major order wins ties.
	ArgMin(x *RawTensor, dim int, keepDim bool) (*RawTensor, error)
	ArgMax(x *RawTensor, dim int, keepDim bool) (*RawTensor, error)

	// Type conversion into a fresh owned tensor.
	Cast(x *RawTensor, dtype DataType) (*RawTensor, error)

	// Transfer. ToHost downloads (or copies) into a fresh owned host tensor;
	// FromHost uploads (or copies) a host tensor onto this backend's device.
	// Neither ever aliases its input.
	ToHost(x *RawTensor) (*RawTensor, error)
	FromHost(x *RawTensor) (*RawTensor, error)

	// Metadata.
	Name() string
	Device() Device
	// HostBackend returns the backend used for host-resident results of
	// transfers off this device. CPU backends return themselves.
	HostBackend() Backend
}
