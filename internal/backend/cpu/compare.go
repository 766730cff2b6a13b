package cpu

import (
	"fmt"

	"github.com/karst-ml/karst/internal/tensor"
)

type cmpKind int

const (
	cmpGt cmpKind = iota
	cmpLt
	cmpGe
	cmpLe
	cmpEq
	cmpNe
)

func (k cmpKind) String() string {
	switch k {
	case cmpGt:
		return "gt"
	case cmpLt:
		return "lt"
	case cmpGe:
		return "ge"
	case cmpLe:
		return "le"
	case cmpEq:
		return "eq"
	default:
		return "ne"
	}
}

// Gt computes a > b element-wise with broadcasting, yielding a Bool tensor.
func (c *CPUBackend) Gt(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.compare(a, b, cmpGt)
}

// Lt computes a < b element-wise with broadcasting, yielding a Bool tensor.
func (c *CPUBackend) Lt(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.compare(a, b, cmpLt)
}

// Ge computes a >= b element-wise with broadcasting, yielding a Bool tensor.
func (c *CPUBackend) Ge(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.compare(a, b, cmpGe)
}

// Le computes a <= b element-wise with broadcasting, yielding a Bool tensor.
func (c *CPUBackend) Le(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.compare(a, b, cmpLe)
}

// Eq computes a == b element-wise with broadcasting, yielding a Bool tensor.
func (c *CPUBackend) Eq(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.compare(a, b, cmpEq)
}

// Ne computes a != b element-wise with broadcasting, yielding a Bool tensor.
func (c *CPUBackend) Ne(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return c.compare(a, b, cmpNe)
}

func (c *CPUBackend) compare(a, b *tensor.RawTensor, kind cmpKind) (*tensor.RawTensor, error) {
	switch dt := a.DType(); dt {
	case tensor.Bool:
		switch kind {
		case cmpEq:
			return binaryKernel(a, b, func(x, y bool) bool { return x == y }, c.pcfg)
		case cmpNe:
			return binaryKernel(a, b, func(x, y bool) bool { return x != y }, c.pcfg)
		default:
			return nil, fmt.Errorf("%w: %s does not support ordered comparison %s", tensor.ErrInvalidArgument, dt, kind)
		}
	case tensor.Int8:
		return binaryKernel(a, b, cmpFn[int8](kind), c.pcfg)
	case tensor.Int16:
		return binaryKernel(a, b, cmpFn[int16](kind), c.pcfg)
	case tensor.Int32:
		return binaryKernel(a, b, cmpFn[int32](kind), c.pcfg)
	case tensor.Int64:
		return binaryKernel(a, b, cmpFn[int64](kind), c.pcfg)
	case tensor.UInt8:
		return binaryKernel(a, b, cmpFn[uint8](kind), c.pcfg)
	case tensor.UInt16:
		return binaryKernel(a, b, cmpFn[uint16](kind), c.pcfg)
	case tensor.UInt32:
		return binaryKernel(a, b, cmpFn[uint32](kind), c.pcfg)
	case tensor.UInt64:
		return binaryKernel(a, b, cmpFn[uint64](kind), c.pcfg)
	case tensor.Float32:
		return binaryKernel(a, b, cmpFn[float32](kind), c.pcfg)
	case tensor.Float64:
		return binaryKernel(a, b, cmpFn[float64](kind), c.pcfg)
	default:
		return nil, fmt.Errorf("%w: %s does not support %s", tensor.ErrInvalidArgument, dt, kind)
	}
}

func cmpFn[T number](kind cmpKind) func(T, T) bool {
	switch kind {
	case cmpGt:
		return func(x, y T) bool { return x > y }
	case cmpLt:
		return func(x, y T) bool { return x < y }
	case cmpGe:
		return func(x, y T) bool { return x >= y }
	case cmpLe:
		return func(x, y T) bool { return x <= y }
	case cmpEq:
		return func(x, y T) bool { return x == y }
	default:
		return func(x, y T) bool { return x != y }
	}
}
