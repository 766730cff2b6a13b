package cpu

import (
	"fmt"

	"github.com/karst-ml/karst/internal/tensor"
)

// Logical operations use nonzero truth semantics: any nonzero element counts
// as true. Bool operands produce Bool results; numeric operands produce 0/1
// materialized in their own dtype.

// LogicalAnd computes a && b element-wise with broadcasting.
func (c *CPUBackend) LogicalAnd(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if a.DType() == tensor.Bool {
		return binaryKernel(a, b, func(x, y bool) bool { return x && y }, c.pcfg)
	}
	return c.logicalBinary(a, b, func(x, y bool) bool { return x && y }, "logical_and")
}

// LogicalOr computes a || b element-wise with broadcasting.
func (c *CPUBackend) LogicalOr(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if a.DType() == tensor.Bool {
		return binaryKernel(a, b, func(x, y bool) bool { return x || y }, c.pcfg)
	}
	return c.logicalBinary(a, b, func(x, y bool) bool { return x || y }, "logical_or")
}

// LogicalNot computes !x element-wise.
func (c *CPUBackend) LogicalNot(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x.DType() == tensor.Bool {
		return unaryKernel(x, func(v bool) bool { return !v }, c.pcfg)
	}
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return unaryKernel(x, notFn[int8](), c.pcfg)
	case tensor.Int16:
		return unaryKernel(x, notFn[int16](), c.pcfg)
	case tensor.Int32:
		return unaryKernel(x, notFn[int32](), c.pcfg)
	case tensor.Int64:
		return unaryKernel(x, notFn[int64](), c.pcfg)
	case tensor.UInt8:
		return unaryKernel(x, notFn[uint8](), c.pcfg)
	case tensor.UInt16:
		return unaryKernel(x, notFn[uint16](), c.pcfg)
	case tensor.UInt32:
		return unaryKernel(x, notFn[uint32](), c.pcfg)
	case tensor.UInt64:
		return unaryKernel(x, notFn[uint64](), c.pcfg)
	case tensor.Float32:
		return unaryKernel(x, notFn[float32](), c.pcfg)
	case tensor.Float64:
		return unaryKernel(x, notFn[float64](), c.pcfg)
	default:
		return nil, fmt.Errorf("%w: %s does not support logical_not", tensor.ErrInvalidArgument, dt)
	}
}

func notFn[T number]() func(T) T {
	return func(v T) T {
		if v == 0 {
			return 1
		}
		return 0
	}
}

func logicalFn[T number](truth func(bool, bool) bool) func(T, T) T {
	return func(x, y T) T {
		if truth(x != 0, y != 0) {
			return 1
		}
		return 0
	}
}

func (c *CPUBackend) logicalBinary(a, b *tensor.RawTensor, truth func(bool, bool) bool, name string) (*tensor.RawTensor, error) {
	switch dt := a.DType(); dt {
	case tensor.Int8:
		return binaryKernel(a, b, logicalFn[int8](truth), c.pcfg)
	case tensor.Int16:
		return binaryKernel(a, b, logicalFn[int16](truth), c.pcfg)
	case tensor.Int32:
		return binaryKernel(a, b, logicalFn[int32](truth), c.pcfg)
	case tensor.Int64:
		return binaryKernel(a, b, logicalFn[int64](truth), c.pcfg)
	case tensor.UInt8:
		return binaryKernel(a, b, logicalFn[uint8](truth), c.pcfg)
	case tensor.UInt16:
		return binaryKernel(a, b, logicalFn[uint16](truth), c.pcfg)
	case tensor.UInt32:
		return binaryKernel(a, b, logicalFn[uint32](truth), c.pcfg)
	case tensor.UInt64:
		return binaryKernel(a, b, logicalFn[uint64](truth), c.pcfg)
	case tensor.Float32:
		return binaryKernel(a, b, logicalFn[float32](truth), c.pcfg)
	case tensor.Float64:
		return binaryKernel(a, b, logicalFn[float64](truth), c.pcfg)
	default:
		return nil, fmt.Errorf("%w: %s does not support %s", tensor.ErrInvalidArgument, dt, name)
	}
}
