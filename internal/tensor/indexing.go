package tensor

import (
	"fmt"
	"math"
)

// Auto marks an unspecified slice boundary, standing in for Python's None:
// the start defaults to the beginning of the dimension (end for negative
// steps) and the stop to one past it.
const Auto = math.MaxInt

type selKind int

const (
	selIndex selKind = iota
	selRange
	selAll
)

// Sel selects along one dimension of a Get or Set call.
type Sel struct {
	kind              selKind
	index             int
	start, stop, step int
}

// I selects a single index, reducing the rank by one. Negative indices count
// from the end; out-of-range indices fail with ErrIndexOutOfRange.
func I(index int) Sel {
	return Sel{kind: selIndex, index: index}
}

// R selects the half-open range [start, stop) with step 1.
// Either boundary may be Auto.
func R(start, stop int) Sel {
	return RS(start, stop, 1)
}

// RS selects a strided range with Python slice semantics: negative indices
// count from the end, stop is exclusive, out-of-range boundaries are clamped,
// and a negative step walks backwards.
func RS(start, stop, step int) Sel {
	return Sel{kind: selRange, start: start, stop: stop, step: step}
}

// From selects [start, end of dimension).
func From(start int) Sel {
	return RS(start, Auto, 1)
}

// Until selects [0, stop).
func Until(stop int) Sel {
	return RS(Auto, stop, 1)
}

// All selects an entire dimension unchanged.
var All = Sel{kind: selAll}

// resolveRange clamps a Python-style slice against a dimension of the given
// size, returning the resolved start, step and the number of selected
// elements.
func resolveRange(s Sel, size int) (start, step, n int, err error) {
	step = s.step
	if step == 0 {
		return 0, 0, 0, fmt.Errorf("%w: slice step cannot be zero", ErrInvalidArgument)
	}

	start = s.start
	stop := s.stop
	if start == Auto {
		if step > 0 {
			start = 0
		} else {
			start = size - 1
		}
	} else if start < 0 {
		start += size
	}
	if stop == Auto {
		if step > 0 {
			stop = size
		} else {
			stop = -size - 1 // resolves to one before the first element
		}
	} else if stop < 0 {
		stop += size
	}

	// Clamp out-of-range boundaries instead of erroring.
	if step > 0 {
		start = min(max(start, 0), size)
		stop = min(max(stop, 0), size)
		if stop > start {
			n = (stop - start + step - 1) / step
		}
	} else {
		start = min(max(start, -1), size-1)
		stop = min(max(stop, -1), size-1)
		if start > stop {
			n = (start - stop - step - 1) / -step
		}
	}
	return start, step, n, nil
}

// Get indexes or slices the tensor, one selector per leading dimension;
// unselected trailing dimensions are taken whole. Integer selectors reduce
// the rank; range selectors keep it. The result is always a view sharing the
// receiver's buffer: writes through it are visible to the owner.
func (t *Tensor) Get(sels ...Sel) (*Tensor, error) {
	shape := t.Shape()
	strides := t.Strides()
	if len(sels) > len(shape) {
		return nil, fmt.Errorf("%w: %d selectors for rank-%d tensor", ErrInvalidArgument, len(sels), len(shape))
	}

	offset := t.raw.offset
	outShape := make(Shape, 0, len(shape))
	outStride := make([]int, 0, len(shape))

	for d, size := range shape {
		if d >= len(sels) {
			outShape = append(outShape, size)
			outStride = append(outStride, strides[d])
			continue
		}
		sel := sels[d]
		switch sel.kind {
		case selIndex:
			idx := sel.index
			if idx < 0 {
				idx += size
			}
			if idx < 0 || idx >= size {
				return nil, fmt.Errorf("%w: index %d out of bounds for dimension %d (size %d)",
					ErrIndexOutOfRange, sel.index, d, size)
			}
			offset += idx * strides[d]
		case selRange:
			start, step, n, err := resolveRange(sel, size)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				offset += start * strides[d]
			}
			outShape = append(outShape, n)
			outStride = append(outStride, strides[d]*step)
		case selAll:
			outShape = append(outShape, size)
			outStride = append(outStride, strides[d])
		}
	}

	return New(t.raw.view(outShape, outStride, offset), t.backend), nil
}

// Set assigns src into the selected view of the tensor in place, writing
// through to the owner's buffer. src is broadcast to the view's shape and
// must share the tensor's dtype and device.
func (t *Tensor) Set(src *Tensor, sels ...Sel) error {
	view, err := t.Get(sels...)
	if err != nil {
		return err
	}
	defer view.Release()

	if err := t.binaryCheck(src); err != nil {
		return err
	}
	if t.raw.ReadOnly() {
		return fmt.Errorf("%w: assignment into a read-only borrowed buffer", ErrInvalidArgument)
	}
	if !t.Device().IsHost() {
		return fmt.Errorf("%w: slice assignment requires a host-resident tensor", ErrDeviceMismatch)
	}

	return assignBroadcast(view.raw, src.raw)
}

// assignBroadcast writes src into dst element-wise, stretching src under
// standard broadcasting rules. dst keeps its own (possibly non-contiguous)
// layout.
func assignBroadcast(dst, src *RawTensor) error {
	outShape, _, err := BroadcastShapes(dst.shape, src.shape)
	if err != nil {
		return err
	}
	if !outShape.Equal(dst.shape) {
		return fmt.Errorf("%w: cannot broadcast %v into destination %v", ErrShapeMismatch, src.shape, dst.shape)
	}

	srcStride := broadcastStrides(src.shape, src.stride, dst.shape)
	logical := dst.shape.ComputeStrides()
	n := dst.NumElements()
	esz := dst.dtype.Size()
	sb := src.hostBytes()
	db := dst.hostBytes()

	for i := 0; i < n; i++ {
		so := src.offset
		do := dst.offset
		rem := i
		for d := range dst.shape {
			coord := rem / logical[d]
			rem %= logical[d]
			do += coord * dst.stride[d]
			so += coord * srcStride[d]
		}
		copy(db[do*esz:(do+1)*esz], sb[so*esz:(so+1)*esz])
	}
	return nil
}

// broadcastStrides adapts a tensor's actual strides to an output shape:
// missing leading dimensions and stretched size-1 dimensions get stride 0.
func broadcastStrides(inShape Shape, inStride []int, outShape Shape) []int {
	out := make([]int, len(outShape))
	pad := len(outShape) - len(inShape)
	for i := range outShape {
		inIdx := i - pad
		switch {
		case inIdx < 0:
			out[i] = 0
		case inShape[inIdx] == 1:
			out[i] = 0
		default:
			out[i] = inStride[inIdx]
		}
	}
	return out
}
