package cpu

import (
	"fmt"

	"github.com/karst-ml/karst/internal/parallel"
	"github.com/karst-ml/karst/internal/tensor"
)

// number is the constraint for dtypes that support arithmetic.
type number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

type arithKind int

const (
	opAdd arithKind = iota
	opSub
	opMul
	opDiv
)

func (k arithKind) String() string {
	switch k {
	case opAdd:
		return "add"
	case opSub:
		return "sub"
	case opMul:
		return "mul"
	default:
		return "div"
	}
}

// Add computes a + b element-wise with broadcasting.
func (c *CPUBackend) Add(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.arith(a, b, opAdd)
}

// Sub computes a - b element-wise with broadcasting.
func (c *CPUBackend) Sub(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.arith(a, b, opSub)
}

// Mul computes a * b element-wise with broadcasting.
func (c *CPUBackend) Mul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.arith(a, b, opMul)
}

// Div computes a / b element-wise with broadcasting. Integer division by
// zero is an error; float division follows IEEE-754 (Inf/NaN).
func (c *CPUBackend) Div(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !a.DType().IsFloat() {
		zero, err := hasZeroElem(b)
		if err != nil {
			return nil, err
		}
		if zero {
			return nil, fmt.Errorf("%w: integer division by zero", tensor.ErrInvalidArgument)
		}
	}
	return c.arith(a, b, opDiv)
}

func (c *CPUBackend) arith(a, b *tensor.RawTensor, kind arithKind) (*tensor.RawTensor, error) {
	switch dt := a.DType(); dt {
	case tensor.Int8:
		return binaryKernel(a, b, arithFn[int8](kind), c.pcfg)
	case tensor.Int16:
		return binaryKernel(a, b, arithFn[int16](kind), c.pcfg)
	case tensor.Int32:
		return binaryKernel(a, b, arithFn[int32](kind), c.pcfg)
	case tensor.Int64:
		return binaryKernel(a, b, arithFn[int64](kind), c.pcfg)
	case tensor.UInt8:
		return binaryKernel(a, b, arithFn[uint8](kind), c.pcfg)
	case tensor.UInt16:
		return binaryKernel(a, b, arithFn[uint16](kind), c.pcfg)
	case tensor.UInt32:
		return binaryKernel(a, b, arithFn[uint32](kind), c.pcfg)
	case tensor.UInt64:
		return binaryKernel(a, b, arithFn[uint64](kind), c.pcfg)
	case tensor.Float32:
		return binaryKernel(a, b, arithFn[float32](kind), c.pcfg)
	case tensor.Float64:
		return binaryKernel(a, b, arithFn[float64](kind), c.pcfg)
	default:
		return nil, fmt.Errorf("%w: %s does not support %s", tensor.ErrInvalidArgument, dt, kind)
	}
}

func arithFn[T number](kind arithKind) func(T, T) T {
	switch kind {
	case opAdd:
		return func(x, y T) T { return x + y }
	case opSub:
		return func(x, y T) T { return x - y }
	case opMul:
		return func(x, y T) T { return x * y }
	default:
		return func(x, y T) T { return x / y }
	}
}

// binaryKernel evaluates f over the broadcast of a and b into a fresh
// contiguous tensor. T is the operand element type, R the result element
// type (equal to T for arithmetic, bool for comparisons).
func binaryKernel[T, R tensor.Elem](a, b *tensor.RawTensor, f func(T, T) R, pcfg parallel.Config) (*tensor.RawTensor, error) {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	ac, err := a.Contiguous()
	if err != nil {
		return nil, err
	}
	bc, err := b.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(outShape, tensor.DataTypeOf[R]())
	if err != nil {
		return nil, err
	}

	av := tensor.Values[T](ac)
	bv := tensor.Values[T](bc)
	ov := tensor.Values[R](out)

	if !needsBroadcast {
		parallel.ForRange(len(ov), func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f(av[i], bv[i])
			}
		}, pcfg)
		return out, nil
	}

	as := expandStrides(ac.Shape(), outShape)
	bs := expandStrides(bc.Shape(), outShape)
	logical := outShape.ComputeStrides()
	parallel.ForRange(len(ov), func(start, end int) {
		for i := start; i < end; i++ {
			ai, bi := 0, 0
			rem := i
			for d := range logical {
				coord := rem / logical[d]
				rem %= logical[d]
				ai += coord * as[d]
				bi += coord * bs[d]
			}
			ov[i] = f(av[ai], bv[bi])
		}
	}, pcfg)
	return out, nil
}

// expandStrides maps a contiguous operand's strides onto a broadcast output
// shape: missing leading dimensions and stretched size-1 dimensions walk with
// stride 0.
func expandStrides(in, out tensor.Shape) []int {
	base := in.ComputeStrides()
	strides := make([]int, len(out))
	pad := len(out) - len(in)
	for i := range out {
		j := i - pad
		if j < 0 || in[j] == 1 && out[i] != 1 {
			continue // stride 0
		}
		strides[i] = base[j]
	}
	return strides
}

// hasZeroElem reports whether any element of an integer tensor is zero.
func hasZeroElem(b *tensor.RawTensor) (bool, error) {
	bc, err := b.Contiguous()
	if err != nil {
		return false, err
	}
	switch dt := bc.DType(); dt {
	case tensor.Int8:
		return scanZero(tensor.Values[int8](bc)), nil
	case tensor.Int16:
		return scanZero(tensor.Values[int16](bc)), nil
	case tensor.Int32:
		return scanZero(tensor.Values[int32](bc)), nil
	case tensor.Int64:
		return scanZero(tensor.Values[int64](bc)), nil
	case tensor.UInt8:
		return scanZero(tensor.Values[uint8](bc)), nil
	case tensor.UInt16:
		return scanZero(tensor.Values[uint16](bc)), nil
	case tensor.UInt32:
		return scanZero(tensor.Values[uint32](bc)), nil
	case tensor.UInt64:
		return scanZero(tensor.Values[uint64](bc)), nil
	default:
		return false, fmt.Errorf("%w: %s does not support div", tensor.ErrInvalidArgument, dt)
	}
}

func scanZero[T number](v []T) bool {
	for _, x := range v {
		if x == 0 {
			return true
		}
	}
	return false
}
