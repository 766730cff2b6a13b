package cpu

import (
	"fmt"

	"github.com/karst-ml/karst/internal/tensor"
)

// reduceLayout precomputes the index math for a masked reduction: the
// input's logical strides and, per input dimension, the output stride
// contribution (0 for reduced dimensions).
func reduceLayout(shape tensor.Shape, mask []bool) (inLogical, outContrib []int) {
	inLogical = shape.ComputeStrides()
	kept := tensor.ReducedShape(shape, mask, true)
	keptStrides := kept.ComputeStrides()
	outContrib = make([]int, len(shape))
	for d := range shape {
		if !mask[d] {
			outContrib[d] = keptStrides[d]
		}
	}
	return inLogical, outContrib
}

func outFlat(i int, inLogical, outContrib []int) int {
	oi := 0
	for d := range inLogical {
		coord := i / inLogical[d]
		i %= inLogical[d]
		oi += coord * outContrib[d]
	}
	return oi
}

// Sum reduces by addition over the masked dimensions. Numeric dtypes only;
// an empty dims slice reduces everything to a 0-d scalar.
func (c *CPUBackend) Sum(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	mask, err := tensor.NormalizeDims(dims, len(x.Shape()))
	if err != nil {
		return nil, err
	}
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return sumKernel[int8](x, mask, keepDim)
	case tensor.Int16:
		return sumKernel[int16](x, mask, keepDim)
	case tensor.Int32:
		return sumKernel[int32](x, mask, keepDim)
	case tensor.Int64:
		return sumKernel[int64](x, mask, keepDim)
	case tensor.UInt8:
		return sumKernel[uint8](x, mask, keepDim)
	case tensor.UInt16:
		return sumKernel[uint16](x, mask, keepDim)
	case tensor.UInt32:
		return sumKernel[uint32](x, mask, keepDim)
	case tensor.UInt64:
		return sumKernel[uint64](x, mask, keepDim)
	case tensor.Float32:
		return sumKernel[float32](x, mask, keepDim)
	case tensor.Float64:
		return sumKernel[float64](x, mask, keepDim)
	default:
		return nil, fmt.Errorf("%w: %s does not support sum", tensor.ErrInvalidArgument, dt)
	}
}

// Min reduces by minimum over the masked dimensions. Reducing over zero
// elements is an error.
func (c *CPUBackend) Min(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return c.minmax(x, dims, keepDim, false)
}

// Max reduces by maximum over the masked dimensions. Reducing over zero
// elements is an error.
func (c *CPUBackend) Max(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return c.minmax(x, dims, keepDim, true)
}

func (c *CPUBackend) minmax(x *tensor.RawTensor, dims []int, keepDim bool, wantMax bool) (*tensor.RawTensor, error) {
	mask, err := tensor.NormalizeDims(dims, len(x.Shape()))
	if err != nil {
		return nil, err
	}
	name := "min"
	if wantMax {
		name = "max"
	}
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return foldKernel(x, mask, keepDim, extremumFn[int8](wantMax), name)
	case tensor.Int16:
		return foldKernel(x, mask, keepDim, extremumFn[int16](wantMax), name)
	case tensor.Int32:
		return foldKernel(x, mask, keepDim, extremumFn[int32](wantMax), name)
	case tensor.Int64:
		return foldKernel(x, mask, keepDim, extremumFn[int64](wantMax), name)
	case tensor.UInt8:
		return foldKernel(x, mask, keepDim, extremumFn[uint8](wantMax), name)
	case tensor.UInt16:
		return foldKernel(x, mask, keepDim, extremumFn[uint16](wantMax), name)
	case tensor.UInt32:
		return foldKernel(x, mask, keepDim, extremumFn[uint32](wantMax), name)
	case tensor.UInt64:
		return foldKernel(x, mask, keepDim, extremumFn[uint64](wantMax), name)
	case tensor.Float32:
		return foldKernel(x, mask, keepDim, extremumFn[float32](wantMax), name)
	case tensor.Float64:
		return foldKernel(x, mask, keepDim, extremumFn[float64](wantMax), name)
	default:
		return nil, fmt.Errorf("%w: %s does not support %s", tensor.ErrInvalidArgument, dt, name)
	}
}

func extremumFn[T number](wantMax bool) func(T, T) T {
	if wantMax {
		return func(acc, v T) T {
			if v > acc {
				return v
			}
			return acc
		}
	}
	return func(acc, v T) T {
		if v < acc {
			return v
		}
		return acc
	}
}

// Any reduces by logical OR over the masked dimensions. Bool input only;
// reducing over zero elements yields false.
func (c *CPUBackend) Any(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return c.boolReduce(x, dims, keepDim, false, "any")
}

// All reduces by logical AND over the masked dimensions. Bool input only;
// reducing over zero elements yields true.
func (c *CPUBackend) All(x *tensor.RawTensor, dims []int, keepDim bool) (*tensor.RawTensor, error) {
	return c.boolReduce(x, dims, keepDim, true, "all")
}

func (c *CPUBackend) boolReduce(x *tensor.RawTensor, dims []int, keepDim bool, identity bool, name string) (*tensor.RawTensor, error) {
	if x.DType() != tensor.Bool {
		return nil, fmt.Errorf("%w: %s requires a Bool tensor, got %s", tensor.ErrInvalidArgument, name, x.DType())
	}
	mask, err := tensor.NormalizeDims(dims, len(x.Shape()))
	if err != nil {
		return nil, err
	}
	xc, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.ReducedShape(x.Shape(), mask, keepDim), tensor.Bool)
	if err != nil {
		return nil, err
	}
	xv := tensor.Values[bool](xc)
	ov := tensor.Values[bool](out)
	for i := range ov {
		ov[i] = identity
	}
	inLogical, outContrib := reduceLayout(x.Shape(), mask)
	for i, v := range xv {
		oi := outFlat(i, inLogical, outContrib)
		if identity {
			ov[oi] = ov[oi] && v
		} else {
			ov[oi] = ov[oi] || v
		}
	}
	return out, nil
}

// sumKernel accumulates into a zero-initialized output.
func sumKernel[T number](x *tensor.RawTensor, mask []bool, keepDim bool) (*tensor.RawTensor, error) {
	xc, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.ReducedShape(x.Shape(), mask, keepDim), x.DType())
	if err != nil {
		return nil, err
	}
	xv := tensor.Values[T](xc)
	ov := tensor.Values[T](out)
	inLogical, outContrib := reduceLayout(x.Shape(), mask)
	for i, v := range xv {
		ov[outFlat(i, inLogical, outContrib)] += v
	}
	return out, nil
}

// foldKernel seeds each output cell from its first contribution and folds
// the rest. Output cells with no contributions are an error.
func foldKernel[T number](x *tensor.RawTensor, mask []bool, keepDim bool, fold func(acc, v T) T, name string) (*tensor.RawTensor, error) {
	xc, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.ReducedShape(x.Shape(), mask, keepDim), x.DType())
	if err != nil {
		return nil, err
	}
	if x.NumElements() == 0 && out.NumElements() > 0 {
		return nil, fmt.Errorf("%w: %s over zero elements", tensor.ErrInvalidArgument, name)
	}
	xv := tensor.Values[T](xc)
	ov := tensor.Values[T](out)
	seen := make([]bool, len(ov))
	inLogical, outContrib := reduceLayout(x.Shape(), mask)
	for i, v := range xv {
		oi := outFlat(i, inLogical, outContrib)
		if !seen[oi] {
			ov[oi] = v
			seen[oi] = true
			continue
		}
		ov[oi] = fold(ov[oi], v)
	}
	return out, nil
}

// ArgMin returns the Int64 indices of the smallest element along dim.
// Ties resolve to the first occurrence in row-major order.
func (c *CPUBackend) ArgMin(x *tensor.RawTensor, dim int, keepDim bool) (*tensor.RawTensor, error) {
	return c.argExtremum(x, dim, keepDim, false)
}

// ArgMax returns the Int64 indices of the largest element along dim.
// Ties resolve to the first occurrence in row-major order.
func (c *CPUBackend) ArgMax(x *tensor.RawTensor, dim int, keepDim bool) (*tensor.RawTensor, error) {
	return c.argExtremum(x, dim, keepDim, true)
}

func (c *CPUBackend) argExtremum(x *tensor.RawTensor, dim int, keepDim bool, wantMax bool) (*tensor.RawTensor, error) {
	name := "argmin"
	if wantMax {
		name = "argmax"
	}
	switch dt := x.DType(); dt {
	case tensor.Int8:
		return argKernel(x, dim, keepDim, cmpFn[int8](argCmp(wantMax)), name)
	case tensor.Int16:
		return argKernel(x, dim, keepDim, cmpFn[int16](argCmp(wantMax)), name)
	case tensor.Int32:
		return argKernel(x, dim, keepDim, cmpFn[int32](argCmp(wantMax)), name)
	case tensor.Int64:
		return argKernel(x, dim, keepDim, cmpFn[int64](argCmp(wantMax)), name)
	case tensor.UInt8:
		return argKernel(x, dim, keepDim, cmpFn[uint8](argCmp(wantMax)), name)
	case tensor.UInt16:
		return argKernel(x, dim, keepDim, cmpFn[uint16](argCmp(wantMax)), name)
	case tensor.UInt32:
		return argKernel(x, dim, keepDim, cmpFn[uint32](argCmp(wantMax)), name)
	case tensor.UInt64:
		return argKernel(x, dim, keepDim, cmpFn[uint64](argCmp(wantMax)), name)
	case tensor.Float32:
		return argKernel(x, dim, keepDim, cmpFn[float32](argCmp(wantMax)), name)
	case tensor.Float64:
		return argKernel(x, dim, keepDim, cmpFn[float64](argCmp(wantMax)), name)
	default:
		return nil, fmt.Errorf("%w: %s does not support %s", tensor.ErrInvalidArgument, dt, name)
	}
}

func argCmp(wantMax bool) cmpKind {
	if wantMax {
		return cmpGt
	}
	return cmpLt
}

// argKernel scans along one dimension, keeping the index of the first
// element for which better(v, best) holds.
func argKernel[T number](x *tensor.RawTensor, dim int, keepDim bool, better func(T, T) bool, name string) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		return nil, fmt.Errorf("%w: %s dimension out of range for rank %d", tensor.ErrInvalidArgument, name, len(shape))
	}
	mask := make([]bool, len(shape))
	mask[dim] = true

	xc, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.ReducedShape(shape, mask, keepDim), tensor.Int64)
	if err != nil {
		return nil, err
	}
	if shape[dim] == 0 && out.NumElements() > 0 {
		return nil, fmt.Errorf("%w: %s over zero elements", tensor.ErrInvalidArgument, name)
	}

	xv := tensor.Values[T](xc)
	ov := tensor.Values[int64](out)
	best := make([]T, len(ov))
	seen := make([]bool, len(ov))
	inLogical, outContrib := reduceLayout(shape, mask)
	for i, v := range xv {
		oi := outFlat(i, inLogical, outContrib)
		coord := i / inLogical[dim] % shape[dim]
		if !seen[oi] || better(v, best[oi]) {
			best[oi] = v
			ov[oi] = int64(coord)
			seen[oi] = true
		}
	}
	return out, nil
}
