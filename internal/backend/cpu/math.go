package cpu

import (
	"fmt"
	"math"

	"github.com/karst-ml/karst/internal/parallel"
	"github.com/karst-ml/karst/internal/tensor"
)

// unaryKernel evaluates f element-wise into a fresh contiguous tensor.
func unaryKernel[T, R tensor.Elem](x *tensor.RawTensor, f func(T) R, pcfg parallel.Config) (*tensor.RawTensor, error) {
	xc, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(x.Shape(), tensor.DataTypeOf[R]())
	if err != nil {
		return nil, err
	}
	xv := tensor.Values[T](xc)
	ov := tensor.Values[R](out)
	parallel.ForRange(len(ov), func(start, end int) {
		for i := start; i < end; i++ {
			ov[i] = f(xv[i])
		}
	}, pcfg)
	return out, nil
}

// unaryInPlaceKernel applies f to every element of x through its view,
// writing back into the shared buffer. Works on arbitrary strided views.
func unaryInPlaceKernel[T tensor.Elem](x *tensor.RawTensor, f func(T) T, pcfg parallel.Config) error {
	st := tensor.Storage[T](x)
	n := x.NumElements()
	if n == 0 {
		return nil
	}
	if x.IsContiguous() {
		off := x.Offset()
		parallel.ForRange(n, func(start, end int) {
			for i := start; i < end; i++ {
				st[off+i] = f(st[off+i])
			}
		}, pcfg)
		return nil
	}
	logical := x.Shape().ComputeStrides()
	stride := x.Strides()
	base := x.Offset()
	parallel.ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			off := base
			rem := i
			for d := range logical {
				coord := rem / logical[d]
				rem %= logical[d]
				off += coord * stride[d]
			}
			st[off] = f(st[off])
		}
	}, pcfg)
	return nil
}

type float interface {
	~float32 | ~float64
}

func floatFn[T float](f func(float64) float64) func(T) T {
	return func(v T) T { return T(f(float64(v))) }
}

// floatUnary dispatches a float-only element-wise function.
func (c *CPUBackend) floatUnary(x *tensor.RawTensor, f func(float64) float64, name string) (*tensor.RawTensor, error) {
	switch dt := x.DType(); dt {
	case tensor.Float32:
		return unaryKernel(x, floatFn[float32](f), c.pcfg)
	case tensor.Float64:
		return unaryKernel(x, f, c.pcfg)
	default:
		return nil, fmt.Errorf("%w: %s requires a float tensor, got %s", tensor.ErrInvalidArgument, name, dt)
	}
}

func (c *CPUBackend) floatUnaryInPlace(x *tensor.RawTensor, f func(float64) float64, name string) error {
	switch dt := x.DType(); dt {
	case tensor.Float32:
		return unaryInPlaceKernel(x, floatFn[float32](f), c.pcfg)
	case tensor.Float64:
		return unaryInPlaceKernel(x, f, c.pcfg)
	default:
		return fmt.Errorf("%w: %s requires a float tensor, got %s", tensor.ErrInvalidArgument, name, dt)
	}
}

// Sqrt computes the element-wise square root. Float dtypes only.
func (c *CPUBackend) Sqrt(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.floatUnary(x, math.Sqrt, "sqrt")
}

// Sin computes the element-wise sine. Float dtypes only.
func (c *CPUBackend) Sin(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.floatUnary(x, math.Sin, "sin")
}

// Cos computes the element-wise cosine. Float dtypes only.
func (c *CPUBackend) Cos(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.floatUnary(x, math.Cos, "cos")
}

// Exp computes the element-wise natural exponential. Float dtypes only.
func (c *CPUBackend) Exp(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.floatUnary(x, math.Exp, "exp")
}

// Log computes the element-wise natural logarithm. Float dtypes only.
func (c *CPUBackend) Log(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.floatUnary(x, math.Log, "log")
}

// SqrtInPlace computes the square root in place through x's view.
func (c *CPUBackend) SqrtInPlace(x *tensor.RawTensor) error {
	return c.floatUnaryInPlace(x, math.Sqrt, "sqrt")
}

// SinInPlace computes the sine in place through x's view.
func (c *CPUBackend) SinInPlace(x *tensor.RawTensor) error {
	return c.floatUnaryInPlace(x, math.Sin, "sin")
}

// CosInPlace computes the cosine in place through x's view.
func (c *CPUBackend) CosInPlace(x *tensor.RawTensor) error {
	return c.floatUnaryInPlace(x, math.Cos, "cos")
}

// ExpInPlace computes the exponential in place through x's view.
func (c *CPUBackend) ExpInPlace(x *tensor.RawTensor) error {
	return c.floatUnaryInPlace(x, math.Exp, "exp")
}

// LogInPlace computes the logarithm in place through x's view.
func (c *CPUBackend) LogInPlace(x *tensor.RawTensor) error {
	return c.floatUnaryInPlace(x, math.Log, "log")
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func absFn[T signed]() func(T) T {
	return func(v T) T {
		if v < 0 {
			return -v
		}
		return v
	}
}

func negFn[T signed]() func(T) T {
	return func(v T) T { return -v }
}

// Abs computes the element-wise absolute value. Unsigned dtypes are returned
// as a plain copy.
func (c *CPUBackend) Abs(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return unaryKernel(x, absFn[int8](), c.pcfg)
	case tensor.Int16:
		return unaryKernel(x, absFn[int16](), c.pcfg)
	case tensor.Int32:
		return unaryKernel(x, absFn[int32](), c.pcfg)
	case tensor.Int64:
		return unaryKernel(x, absFn[int64](), c.pcfg)
	case tensor.Float32:
		return unaryKernel(x, absFn[float32](), c.pcfg)
	case tensor.Float64:
		return unaryKernel(x, absFn[float64](), c.pcfg)
	case tensor.UInt8, tensor.UInt16, tensor.UInt32, tensor.UInt64:
		return x.Materialize()
	default:
		return nil, fmt.Errorf("%w: %s does not support abs", tensor.ErrInvalidArgument, dt)
	}
}

// Neg computes the element-wise negation. Signed integers and floats only.
func (c *CPUBackend) Neg(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return unaryKernel(x, negFn[int8](), c.pcfg)
	case tensor.Int16:
		return unaryKernel(x, negFn[int16](), c.pcfg)
	case tensor.Int32:
		return unaryKernel(x, negFn[int32](), c.pcfg)
	case tensor.Int64:
		return unaryKernel(x, negFn[int64](), c.pcfg)
	case tensor.Float32:
		return unaryKernel(x, negFn[float32](), c.pcfg)
	case tensor.Float64:
		return unaryKernel(x, negFn[float64](), c.pcfg)
	default:
		return nil, fmt.Errorf("%w: %s does not support neg", tensor.ErrInvalidArgument, dt)
	}
}

// AbsInPlace computes the absolute value in place through x's view.
// Unsigned dtypes are a no-op.
func (c *CPUBackend) AbsInPlace(x *tensor.RawTensor) error {
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return unaryInPlaceKernel(x, absFn[int8](), c.pcfg)
	case tensor.Int16:
		return unaryInPlaceKernel(x, absFn[int16](), c.pcfg)
	case tensor.Int32:
		return unaryInPlaceKernel(x, absFn[int32](), c.pcfg)
	case tensor.Int64:
		return unaryInPlaceKernel(x, absFn[int64](), c.pcfg)
	case tensor.Float32:
		return unaryInPlaceKernel(x, absFn[float32](), c.pcfg)
	case tensor.Float64:
		return unaryInPlaceKernel(x, absFn[float64](), c.pcfg)
	case tensor.UInt8, tensor.UInt16, tensor.UInt32, tensor.UInt64:
		return nil
	default:
		return fmt.Errorf("%w: %s does not support abs", tensor.ErrInvalidArgument, dt)
	}
}

// NegInPlace computes the negation in place through x's view. Signed
// integers and floats only.
func (c *CPUBackend) NegInPlace(x *tensor.RawTensor) error {
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return unaryInPlaceKernel(x, negFn[int8](), c.pcfg)
	case tensor.Int16:
		return unaryInPlaceKernel(x, negFn[int16](), c.pcfg)
	case tensor.Int32:
		return unaryInPlaceKernel(x, negFn[int32](), c.pcfg)
	case tensor.Int64:
		return unaryInPlaceKernel(x, negFn[int64](), c.pcfg)
	case tensor.Float32:
		return unaryInPlaceKernel(x, negFn[float32](), c.pcfg)
	case tensor.Float64:
		return unaryInPlaceKernel(x, negFn[float64](), c.pcfg)
	default:
		return fmt.Errorf("%w: %s does not support neg", tensor.ErrInvalidArgument, dt)
	}
}
