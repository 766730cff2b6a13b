package webgpu

import (
	"fmt"

	"github.com/karst-ml/karst/internal/tensor"
)

// Compute is staged: operands are downloaded, the CPU kernel runs, and the
// result is uploaded back to the device. Device-resident tensors therefore
// behave exactly like host tensors apart from residency. In-place operations
// are not staged because the round trip could not write back through views.

func (b *Backend) binary(a, x *tensor.RawTensor, f func(p, q *tensor.RawTensor) (*tensor.RawTensor, error)) (*tensor.RawTensor, error) {
	ah, err := b.ToHost(a)
	if err != nil {
		return nil, err
	}
	defer ah.Release()
	xh, err := b.ToHost(x)
	if err != nil {
		return nil, err
	}
	defer xh.Release()

	rh, err := f(ah, xh)
	if err != nil {
		return nil, err
	}
	defer rh.Release()
	return b.FromHost(rh)
}

func (b *Backend) unary(x *tensor.RawTensor, f func(q *tensor.RawTensor) (*tensor.RawTensor, error)) (*tensor.RawTensor, error) {
	xh, err := b.ToHost(x)
	if err != nil {
		return nil, err
	}
	defer xh.Release()

	rh, err := f(xh)
	if err != nil {
		return nil, err
	}
	defer rh.Release()
	return b.FromHost(rh)
}

func (b *Backend) inPlaceUnsupported(name string) error {
	return fmt.Errorf("%w: in-place %s is not supported on %s, transfer to host first",
		tensor.ErrInvalidArgument, name, b.dev)
}

// Add computes a + b element-wise with broadcasting.
func (b *Backend) Add(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Add)
}

// Sub computes a - b element-wise with broadcasting.
func (b *Backend) Sub(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Sub)
}

// Mul computes a * b element-wise with broadcasting.
func (b *Backend) Mul(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Mul)
}

// Div computes a / b element-wise with broadcasting.
func (b *Backend) Div(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Div)
}

// Gt computes a > b element-wise, yielding a Bool tensor.
func (b *Backend) Gt(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Gt)
}

// Lt computes a < b element-wise, yielding a Bool tensor.
func (b *Backend) Lt(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Lt)
}

// Ge computes a >= b element-wise, yielding a Bool tensor.
func (b *Backend) Ge(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Ge)
}

// Le computes a <= b element-wise, yielding a Bool tensor.
func (b *Backend) Le(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Le)
}

// Eq computes a == b element-wise, yielding a Bool tensor.
func (b *Backend) Eq(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Eq)
}

// Ne computes a != b element-wise, yielding a Bool tensor.
func (b *Backend) Ne(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.Ne)
}

// LogicalAnd computes a && b element-wise with nonzero truth semantics.
func (b *Backend) LogicalAnd(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.LogicalAnd)
}

// LogicalOr computes a || b element-wise with nonzero truth semantics.
func (b *Backend) LogicalOr(a, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.binary(a, x, b.host.LogicalOr)
}

// LogicalNot computes !x element-wise with nonzero truth semantics.
func (b *Backend) LogicalNot(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.LogicalNot)
}

// Sqrt computes the element-wise square root.
func (b *Backend) Sqrt(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Sqrt)
}

// Sin computes the element-wise sine.
func (b *Backend) Sin(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Sin)
}

// Cos computes the element-wise cosine.
func (b *Backend) Cos(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Cos)
}

// Exp computes the element-wise natural exponential.
func (b *Backend) Exp(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Exp)
}

// Log computes the element-wise natural logarithm.
func (b *Backend) Log(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Log)
}

// Abs computes the element-wise absolute value.
func (b *Backend) Abs(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Abs)
}

// Neg computes the element-wise negation.
func (b *Backend) Neg(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return b.unary(x, b.host.Neg)
}

// SqrtInPlace is not supported on device-resident tensors.
func (b *Backend) SqrtInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("sqrt") }

// SinInPlace is not supported on device-resident tensors.
func (b *Backend) SinInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("sin") }

// CosInPlace is not supported on device-resident tensors.
func (b *Backend) CosInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("cos") }

// ExpInPlace is not supported on device-resident tensors.
func (b *Backend) ExpInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("exp") }

// LogInPlace is not supported on device-resident tensors.
func (b *Backend) LogInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("log") }

// AbsInPlace is not supported on device-resident tensors.
func (b *Backend) AbsInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("abs") }

// NegInPlace is not supported on device-resident tensors.
func (b *Backend) NegInPlace(*tensor.RawTensor) error { return b.inPlaceUnsupported("neg") }

// Sum reduces by addition over the masked dimensions.
func (b *Backend) Sum(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.Sum(q, dims, keepDim)
	})
}

// Min reduces by minimum over the masked dimensions.
func (b *Backend) Min(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.Min(q, dims, keepDim)
	})
}

// Max reduces by maximum over the masked dimensions.
func (b *Backend) Max(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.Max(q, dims, keepDim)
	})
}

// Any reduces by logical OR over the masked dimensions.
func (b *Backend) Any(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.Any(q, dims, keepDim)
	})
}

// All reduces by logical AND over the masked dimensions.
func (b *Backend) All(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.All(q, dims, keepDim)
	})
}

// ArgMin returns the Int64 indices of the smallest element along dim.
func (b *Backend) ArgMin(x *tensor.RawTensor, dim int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.ArgMin(q, dim, keepDim)
	})
}

// ArgMax returns the Int64 indices of the largest element along dim.
func (b *Backend) ArgMax(x *tensor.RawTensor, dim int, keepDim bool) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.ArgMax(q, dim, keepDim)
	})
}

// Cast converts x into a fresh device tensor of the requested dtype.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return b.unary(x, func(q *tensor.RawTensor) (*tensor.RawTensor, error) {
		return b.host.Cast(q, dtype)
	})
}
