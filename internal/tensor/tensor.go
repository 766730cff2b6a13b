package tensor

import "fmt"

// Tensor is a dynamically typed, strided, device-resident tensor.
//
// A Tensor pairs a RawTensor with the Backend that owns its kernels. The
// dtype and device are runtime attributes; operations validate compatibility
// and dispatch through the backend, so a mixed-dtype or mixed-device call
// fails with ErrDTypeMismatch / ErrDeviceMismatch instead of silently
// converting.
type Tensor struct {
	raw     *RawTensor
	backend Backend
}

// New creates a Tensor from a RawTensor and backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return &Tensor{raw: raw, backend: b}
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape { return t.raw.Shape() }

// Strides returns the tensor's per-dimension element strides.
func (t *Tensor) Strides() []int { return t.raw.Strides() }

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType { return t.raw.DType() }

// Device returns the tensor's compute device.
func (t *Tensor) Device() Device { return t.raw.Device() }

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int { return t.raw.NumElements() }

// IsContiguous reports whether the tensor has canonical row-major layout.
func (t *Tensor) IsContiguous() bool { return t.raw.IsContiguous() }

// Raw returns the underlying RawTensor.
// Used by backend implementations for low-level operations.
func (t *Tensor) Raw() *RawTensor { return t.raw }

// Backend returns the computation backend.
func (t *Tensor) Backend() Backend { return t.backend }

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", t.raw.DType(), t.raw.Shape(), t.raw.Device())
}

// Clone creates a view sharing the same buffer (reference counted).
func (t *Tensor) Clone() *Tensor {
	return New(t.raw.Clone(), t.backend)
}

// Contiguous returns the tensor itself when already contiguous, or a fresh
// owned row-major copy otherwise.
func (t *Tensor) Contiguous() (*Tensor, error) {
	raw, err := t.raw.Contiguous()
	if err != nil {
		return nil, err
	}
	if raw == t.raw {
		return t, nil
	}
	return New(raw, t.backend), nil
}

// Release drops this tensor's reference to its buffer.
func (t *Tensor) Release() { t.raw.Release() }

// binaryCheck validates device and dtype compatibility of binary operands.
func (t *Tensor) binaryCheck(other *Tensor) error {
	if t.Device() != other.Device() {
		return fmt.Errorf("%w: operands on %s and %s, transfer one side first",
			ErrDeviceMismatch, t.Device(), other.Device())
	}
	if t.DType() != other.DType() {
		return fmt.Errorf("%w: operands are %s and %s, cast one side first",
			ErrDTypeMismatch, t.DType(), other.DType())
	}
	return nil
}

func (t *Tensor) binary(other *Tensor, op func(a, b *RawTensor) (*RawTensor, error)) (*Tensor, error) {
	if err := t.binaryCheck(other); err != nil {
		return nil, err
	}
	raw, err := op(t.raw, other.raw)
	if err != nil {
		return nil, err
	}
	return New(raw, t.backend), nil
}

// Add performs element-wise addition with broadcasting.
func (t *Tensor) Add(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Add) }

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor) Sub(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Sub) }

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor) Mul(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Mul) }

// Div performs element-wise division with broadcasting.
func (t *Tensor) Div(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Div) }

// Gt returns a > b element-wise as a Bool tensor.
func (t *Tensor) Gt(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Gt) }

// Lt returns a < b element-wise as a Bool tensor.
func (t *Tensor) Lt(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Lt) }

// Ge returns a >= b element-wise as a Bool tensor.
func (t *Tensor) Ge(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Ge) }

// Le returns a <= b element-wise as a Bool tensor.
func (t *Tensor) Le(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Le) }

// Eq returns a == b element-wise as a Bool tensor.
func (t *Tensor) Eq(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Eq) }

// Ne returns a != b element-wise as a Bool tensor.
func (t *Tensor) Ne(other *Tensor) (*Tensor, error) { return t.binary(other, t.backend.Ne) }

// LogicalAnd computes element-wise logical AND. Nonzero elements count as
// true; for non-Bool tensors the result is materialized as 0/1 in the
// operand dtype.
func (t *Tensor) LogicalAnd(other *Tensor) (*Tensor, error) {
	return t.binary(other, t.backend.LogicalAnd)
}

// LogicalOr computes element-wise logical OR under the same convention as
// LogicalAnd.
func (t *Tensor) LogicalOr(other *Tensor) (*Tensor, error) {
	return t.binary(other, t.backend.LogicalOr)
}

func (t *Tensor) unary(op func(x *RawTensor) (*RawTensor, error)) (*Tensor, error) {
	raw, err := op(t.raw)
	if err != nil {
		return nil, err
	}
	return New(raw, t.backend), nil
}

// LogicalNot computes element-wise logical NOT (zero becomes 1, nonzero 0).
func (t *Tensor) LogicalNot() (*Tensor, error) { return t.unary(t.backend.LogicalNot) }

// Sqrt returns the element-wise square root.
func (t *Tensor) Sqrt() (*Tensor, error) { return t.unary(t.backend.Sqrt) }

// Sin returns the element-wise sine.
func (t *Tensor) Sin() (*Tensor, error) { return t.unary(t.backend.Sin) }

// Cos returns the element-wise cosine.
func (t *Tensor) Cos() (*Tensor, error) { return t.unary(t.backend.Cos) }

// Exp returns the element-wise exponential.
func (t *Tensor) Exp() (*Tensor, error) { return t.unary(t.backend.Exp) }

// Log returns the element-wise natural logarithm.
func (t *Tensor) Log() (*Tensor, error) { return t.unary(t.backend.Log) }

// Abs returns the element-wise absolute value.
func (t *Tensor) Abs() (*Tensor, error) { return t.unary(t.backend.Abs) }

// Neg returns the element-wise negation.
func (t *Tensor) Neg() (*Tensor, error) { return t.unary(t.backend.Neg) }

// inPlaceCheck guards in-place mutation: read-only borrowed buffers must not
// be written through.
func (t *Tensor) inPlaceCheck() error {
	if t.raw.ReadOnly() {
		return fmt.Errorf("%w: in-place operation on a read-only borrowed buffer", ErrInvalidArgument)
	}
	return nil
}

func (t *Tensor) unaryInPlace(op func(x *RawTensor) error) (*Tensor, error) {
	if err := t.inPlaceCheck(); err != nil {
		return nil, err
	}
	if err := op(t.raw); err != nil {
		return nil, err
	}
	return t, nil
}

// SqrtInPlace replaces every element with its square root, mutating the
// receiver's buffer. Writes through views are visible to the owner.
func (t *Tensor) SqrtInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.SqrtInPlace) }

// SinInPlace applies sine in place.
func (t *Tensor) SinInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.SinInPlace) }

// CosInPlace applies cosine in place.
func (t *Tensor) CosInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.CosInPlace) }

// ExpInPlace applies the exponential in place.
func (t *Tensor) ExpInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.ExpInPlace) }

// LogInPlace applies the natural logarithm in place.
func (t *Tensor) LogInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.LogInPlace) }

// AbsInPlace applies the absolute value in place.
func (t *Tensor) AbsInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.AbsInPlace) }

// NegInPlace negates every element in place.
func (t *Tensor) NegInPlace() (*Tensor, error) { return t.unaryInPlace(t.backend.NegInPlace) }

func (t *Tensor) reduce(op func(x *RawTensor, dims []int, keepDim bool) (*RawTensor, error), dims []int, keepDim bool) (*Tensor, error) {
	raw, err := op(t.raw, dims, keepDim)
	if err != nil {
		return nil, err
	}
	return New(raw, t.backend), nil
}

// Sum reduces by summation over the given dimensions (all dimensions when
// dims is empty, yielding a 0-d scalar tensor). keepDim retains reduced
// dimensions at size 1.
func (t *Tensor) Sum(dims []int, keepDim bool) (*Tensor, error) {
	return t.reduce(t.backend.Sum, dims, keepDim)
}

// Min reduces by minimum over the given dimensions.
func (t *Tensor) Min(dims []int, keepDim bool) (*Tensor, error) {
	return t.reduce(t.backend.Min, dims, keepDim)
}

// Max reduces by maximum over the given dimensions.
func (t *Tensor) Max(dims []int, keepDim bool) (*Tensor, error) {
	return t.reduce(t.backend.Max, dims, keepDim)
}

// Any reduces a Bool tensor by logical OR over the given dimensions.
func (t *Tensor) Any(dims []int, keepDim bool) (*Tensor, error) {
	return t.reduce(t.backend.Any, dims, keepDim)
}

// All reduces a Bool tensor by logical AND over the given dimensions.
func (t *Tensor) All(dims []int, keepDim bool) (*Tensor, error) {
	return t.reduce(t.backend.All, dims, keepDim)
}

// ArgMin returns Int64 indices of the minimum. Without dims the tensor is
// treated as flattened and a 0-d index results; with a single dim the
// reduction runs along that dimension. Ties resolve to the first occurrence
// in row-major iteration order.
func (t *Tensor) ArgMin(dims ...int) (*Tensor, error) {
	return t.argReduce(t.backend.ArgMin, dims)
}

// ArgMax returns Int64 indices of the maximum under the same conventions as
// ArgMin.
func (t *Tensor) ArgMax(dims ...int) (*Tensor, error) {
	return t.argReduce(t.backend.ArgMax, dims)
}

func (t *Tensor) argReduce(op func(x *RawTensor, dim int, keepDim bool) (*RawTensor, error), dims []int) (*Tensor, error) {
	switch len(dims) {
	case 0:
		flat, err := t.Reshape(Shape{t.NumElements()})
		if err != nil {
			return nil, err
		}
		raw, err := op(flat.raw, 0, false)
		if err != nil {
			return nil, err
		}
		return New(raw, t.backend), nil
	case 1:
		raw, err := op(t.raw, dims[0], false)
		if err != nil {
			return nil, err
		}
		return New(raw, t.backend), nil
	default:
		return nil, fmt.Errorf("%w: argmin/argmax accept at most one dimension, got %d", ErrInvalidArgument, len(dims))
	}
}

// Cast produces a new owned tensor with element-wise converted values.
// Float-to-integer conversion truncates toward zero and saturates at the
// target range (NaN becomes 0); integer-to-integer conversion follows Go's
// wrap-around semantics. Casting to Bool tests nonzero.
func (t *Tensor) Cast(dtype DataType) (*Tensor, error) {
	raw, err := t.backend.Cast(t.raw, dtype)
	if err != nil {
		return nil, err
	}
	return New(raw, t.backend), nil
}

// To transfers the tensor to the device owned by the target backend.
// The result never aliases the source, including same-device transfers.
func (t *Tensor) To(target Backend) (*Tensor, error) {
	host, err := t.backend.ToHost(t.raw)
	if err != nil {
		return nil, err
	}
	if target.Device().IsHost() {
		return New(host, target), nil
	}
	moved, err := target.FromHost(host)
	if err != nil {
		return nil, err
	}
	return New(moved, target), nil
}

// ToHost transfers the tensor to the host device.
func (t *Tensor) ToHost() (*Tensor, error) {
	return t.To(t.backend.HostBackend())
}

// Reshape returns a tensor with the same data under a new shape. The result
// is a view when the tensor is contiguous, otherwise a fresh row-major copy.
func (t *Tensor) Reshape(newShape Shape) (*Tensor, error) {
	if err := newShape.Validate(); err != nil {
		return nil, err
	}
	if newShape.NumElements() != t.NumElements() {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShapeMismatch, t.Shape(), newShape)
	}
	raw, err := t.raw.Contiguous()
	if err != nil {
		return nil, err
	}
	if raw == t.raw {
		return New(t.raw.view(newShape, newShape.ComputeStrides(), t.raw.offset), t.backend), nil
	}
	raw.shape = newShape.Clone()
	raw.stride = newShape.ComputeStrides()
	return New(raw, t.backend), nil
}

// Transpose permutes the tensor's dimensions, reversing them when axes is
// empty. The result is always a view: only shape and strides change, which
// generally produces a non-contiguous layout.
func (t *Tensor) Transpose(axes ...int) (*Tensor, error) {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		return nil, fmt.Errorf("%w: transpose axes length %d != rank %d", ErrInvalidArgument, len(axes), ndim)
	}
	seen := make([]bool, ndim)
	newShape := make(Shape, ndim)
	newStride := make([]int, ndim)
	for i, ax := range axes {
		if ax < 0 {
			ax += ndim
		}
		if ax < 0 || ax >= ndim {
			return nil, fmt.Errorf("%w: transpose axis %d for rank %d", ErrInvalidArgument, axes[i], ndim)
		}
		if seen[ax] {
			return nil, fmt.Errorf("%w: duplicate transpose axis %d", ErrInvalidArgument, ax)
		}
		seen[ax] = true
		newShape[i] = t.Shape()[ax]
		newStride[i] = t.Strides()[ax]
	}
	return New(t.raw.view(newShape, newStride, t.raw.offset), t.backend), nil
}

// T is a shortcut for 2D transpose (swaps rows and columns).
func (t *Tensor) T() (*Tensor, error) {
	if len(t.Shape()) != 2 {
		return nil, fmt.Errorf("%w: T() requires a 2D tensor, got %v", ErrInvalidArgument, t.Shape())
	}
	return t.Transpose(1, 0)
}

// Data returns a typed slice over the tensor's elements (zero-copy).
// The tensor must be host-resident and contiguous, and T must match the
// dtype. Modifications through the slice mutate the tensor.
func Data[T Elem](t *Tensor) ([]T, error) {
	if want := DataTypeOf[T](); t.DType() != want {
		return nil, fmt.Errorf("%w: tensor is %s, requested %s", ErrDTypeMismatch, t.DType(), want)
	}
	if !t.Device().IsHost() {
		return nil, fmt.Errorf("%w: tensor is resident on %s", ErrDeviceMismatch, t.Device())
	}
	if !t.IsContiguous() {
		return nil, fmt.Errorf("%w: data access requires a contiguous tensor", ErrInvalidArgument)
	}
	return typedSlice[T](t.raw), nil
}

// Item returns the scalar value of a single-element tensor.
func Item[T Elem](t *Tensor) (T, error) {
	var zero T
	if t.NumElements() != 1 {
		return zero, fmt.Errorf("%w: Item() requires a single-element tensor, got shape %v", ErrInvalidArgument, t.Shape())
	}
	if want := DataTypeOf[T](); t.DType() != want {
		return zero, fmt.Errorf("%w: tensor is %s, requested %s", ErrDTypeMismatch, t.DType(), want)
	}
	if !t.Device().IsHost() {
		return zero, fmt.Errorf("%w: tensor is resident on %s", ErrDeviceMismatch, t.Device())
	}
	esz := t.DType().Size()
	off := t.raw.ElementOffset(0) * esz
	return bytesToElem[T](t.raw.hostBytes()[off : off+esz]), nil
}

// At returns the element at the given indices. Negative indices count from
// the end of their dimension.
func At[T Elem](t *Tensor, indices ...int) (T, error) {
	var zero T
	off, err := t.elementAt(indices)
	if err != nil {
		return zero, err
	}
	if want := DataTypeOf[T](); t.DType() != want {
		return zero, fmt.Errorf("%w: tensor is %s, requested %s", ErrDTypeMismatch, t.DType(), want)
	}
	esz := t.DType().Size()
	return bytesToElem[T](t.raw.hostBytes()[off*esz : (off+1)*esz]), nil
}

// SetAt sets the element at the given indices.
func SetAt[T Elem](t *Tensor, value T, indices ...int) error {
	off, err := t.elementAt(indices)
	if err != nil {
		return err
	}
	if want := DataTypeOf[T](); t.DType() != want {
		return fmt.Errorf("%w: tensor is %s, got %s value", ErrDTypeMismatch, t.DType(), want)
	}
	if t.raw.ReadOnly() {
		return fmt.Errorf("%w: assignment into a read-only borrowed buffer", ErrInvalidArgument)
	}
	esz := t.DType().Size()
	elemToBytes(value, t.raw.hostBytes()[off*esz:(off+1)*esz])
	return nil
}

// elementAt resolves full indexing into a buffer element offset.
func (t *Tensor) elementAt(indices []int) (int, error) {
	shape := t.Shape()
	if len(indices) != len(shape) {
		return 0, fmt.Errorf("%w: expected %d indices, got %d", ErrInvalidArgument, len(shape), len(indices))
	}
	if !t.Device().IsHost() {
		return 0, fmt.Errorf("%w: tensor is resident on %s", ErrDeviceMismatch, t.Device())
	}
	off := t.raw.offset
	for d, idx := range indices {
		if idx < 0 {
			idx += shape[d]
		}
		if idx < 0 || idx >= shape[d] {
			return 0, fmt.Errorf("%w: index %d out of bounds for dimension %d (size %d)",
				ErrIndexOutOfRange, indices[d], d, shape[d])
		}
		off += idx * t.raw.stride[d]
	}
	return off, nil
}

// bytesToElem decodes one element from its native byte representation.
func bytesToElem[T Elem](b []byte) T {
	return *(*T)(unsafePointerTo(b))
}

// elemToBytes encodes one element into its native byte representation.
func elemToBytes[T Elem](v T, b []byte) {
	*(*T)(unsafePointerTo(b)) = v
}
