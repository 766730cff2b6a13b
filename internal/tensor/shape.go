package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions >= 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("%w: negative dimension at index %d: %d", ErrInvalidArgument, i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major element strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Rules:
//  1. Compare shapes element-wise from right to left.
//  2. Dimensions are compatible if they are equal, or one of them is 1.
//  3. Missing dimensions are treated as 1.
//
// Returns the broadcast shape, a flag indicating whether any stretching is
// needed, and ErrShapeMismatch if the shapes are incompatible.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := false

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("%w: shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				ErrShapeMismatch, a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// NormalizeDims validates a set of reduction dimensions against ndim,
// resolving negative indices. An empty set means "all dimensions".
// The returned slice is a boolean mask over the dimensions.
func NormalizeDims(dims []int, ndim int) ([]bool, error) {
	mask := make([]bool, ndim)
	if len(dims) == 0 {
		for i := range mask {
			mask[i] = true
		}
		return mask, nil
	}
	for _, d := range dims {
		if d < 0 {
			d += ndim
		}
		if d < 0 || d >= ndim {
			return nil, fmt.Errorf("%w: reduction dimension %d out of range for rank %d", ErrInvalidArgument, d, ndim)
		}
		if mask[d] {
			return nil, fmt.Errorf("%w: duplicate reduction dimension %d", ErrInvalidArgument, d)
		}
		mask[d] = true
	}
	return mask, nil
}

// ReducedShape derives the output shape of a reduction over the masked
// dimensions. With keepDim the reduced dimensions are retained at size 1,
// otherwise they are removed (all dimensions reduced yields a 0-d shape).
func ReducedShape(shape Shape, mask []bool, keepDim bool) Shape {
	if keepDim {
		out := shape.Clone()
		for i, reduced := range mask {
			if reduced {
				out[i] = 1
			}
		}
		return out
	}
	out := make(Shape, 0, len(shape))
	for i, reduced := range mask {
		if !reduced {
			out = append(out, shape[i])
		}
	}
	return out
}
