// Copyright 2026 Karst ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/karst-ml/karst/internal/tensor"
)

// Type aliases for the public API.

// Elem is the constraint over Go element types a tensor can hold.
type Elem = tensor.Elem

// DataType is a tensor's runtime element type tag.
type DataType = tensor.DataType

// Data type constants.
const (
	Bool    DataType = tensor.Bool
	Int8    DataType = tensor.Int8
	Int16   DataType = tensor.Int16
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	UInt8   DataType = tensor.UInt8
	UInt16  DataType = tensor.UInt16
	UInt32  DataType = tensor.UInt32
	UInt64  DataType = tensor.UInt64
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// DeviceKind identifies a class of compute device.
type DeviceKind = tensor.DeviceKind

// Device kinds.
const (
	CPU    DeviceKind = tensor.CPU
	WebGPU DeviceKind = tensor.WebGPU
)

// Device is a compute device: a kind plus an ordinal.
type Device = tensor.Device

// Host is the CPU device every tensor can be staged through.
var Host = tensor.Host

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} is a 3D tensor with dimensions 2x3x4.
type Shape = tensor.Shape

// Tensor is a dynamically typed, strided, device-resident tensor.
type Tensor = tensor.Tensor

// RawTensor is the low-level strided tensor representation.
type RawTensor = tensor.RawTensor

// Backend is the kernel interface a compute device implements.
type Backend = tensor.Backend

// DeviceHandle is implemented by backend-managed device allocations.
type DeviceHandle = tensor.DeviceHandle

// Capsule is the zero-copy tensor-exchange descriptor.
type Capsule = tensor.Capsule

// ArraySource is implemented by external array-like objects that can
// describe their memory as a capsule.
type ArraySource = tensor.ArraySource

// Sel selects along one dimension in Get and Set calls.
type Sel = tensor.Sel

// Auto marks an unspecified slice boundary (Python's None).
const Auto = tensor.Auto

// All selects an entire dimension unchanged.
var All = tensor.All

// Error sentinels; match with errors.Is.
var (
	ErrInvalidArgument = tensor.ErrInvalidArgument
	ErrIndexOutOfRange = tensor.ErrIndexOutOfRange
	ErrDTypeMismatch   = tensor.ErrDTypeMismatch
	ErrDeviceMismatch  = tensor.ErrDeviceMismatch
	ErrShapeMismatch   = tensor.ErrShapeMismatch
)

// Selector constructors.

// I selects a single index, reducing the rank by one.
func I(index int) Sel { return tensor.I(index) }

// R selects the half-open range [start, stop) with step 1.
func R(start, stop int) Sel { return tensor.R(start, stop) }

// RS selects a strided range with Python slice semantics.
func RS(start, stop, step int) Sel { return tensor.RS(start, stop, step) }

// From selects [start, end of dimension).
func From(start int) Sel { return tensor.From(start) }

// Until selects [0, stop).
func Until(stop int) Sel { return tensor.Until(stop) }

// Creation functions.

// New creates a Tensor from a RawTensor and backend. Most users should use
// the creation helpers instead.
func New(raw *RawTensor, b Backend) *Tensor { return tensor.New(raw, b) }

// NewRaw creates a host-resident RawTensor with canonical strides.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) { return tensor.NewRaw(shape, dtype) }

// FromSlice creates a tensor by copying a Go slice.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
func FromSlice[T Elem](data []T, shape Shape, b Backend) (*Tensor, error) {
	return tensor.FromSlice(data, shape, b)
}

// FromData creates a tensor from a nested literal (scalar, typed slice, or
// nested slices of uniform lengths), inferring shape and dtype.
func FromData(data any, b Backend) (*Tensor, error) { return tensor.FromData(data, b) }

// FromDataAs is FromData followed by a cast to the requested dtype.
func FromDataAs(data any, dtype DataType, b Backend) (*Tensor, error) {
	return tensor.FromDataAs(data, dtype, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T Elem](shape Shape, b Backend) (*Tensor, error) { return tensor.Zeros[T](shape, b) }

// Ones creates a tensor filled with ones.
func Ones[T Elem](shape Shape, b Backend) (*Tensor, error) { return tensor.Ones[T](shape, b) }

// Full creates a tensor filled with a specific value.
func Full[T Elem](shape Shape, value T, b Backend) (*Tensor, error) {
	return tensor.Full(shape, value, b)
}

// Arange creates a 1D tensor with values start, start+1, ... end-1.
func Arange[T Elem](start, end int, b Backend) (*Tensor, error) {
	return tensor.Arange[T](start, end, b)
}

// Eye creates an n-by-n identity matrix.
func Eye[T Elem](n int, b Backend) (*Tensor, error) { return tensor.Eye[T](n, b) }

// Rand creates a float tensor with values uniform in [0, 1).
func Rand[T Elem](shape Shape, b Backend) (*Tensor, error) { return tensor.Rand[T](shape, b) }

// Interop.

// FromCapsule wraps a foreign buffer description without copying. The
// capsule's deleter runs exactly once, when the last referencing tensor is
// released.
func FromCapsule(c *Capsule, b Backend) (*Tensor, error) { return tensor.FromCapsule(c, b) }

// FromArray constructs an owned tensor by copying an external array's
// elements.
func FromArray(src ArraySource, b Backend) (*Tensor, error) { return tensor.FromArray(src, b) }

// Element access.

// Data returns a typed slice over a contiguous host tensor's elements
// (zero-copy).
func Data[T Elem](t *Tensor) ([]T, error) { return tensor.Data[T](t) }

// Item returns the scalar value of a single-element tensor.
func Item[T Elem](t *Tensor) (T, error) { return tensor.Item[T](t) }

// At returns the element at the given indices.
func At[T Elem](t *Tensor, indices ...int) (T, error) { return tensor.At[T](t, indices...) }

// SetAt sets the element at the given indices.
func SetAt[T Elem](t *Tensor, value T, indices ...int) error {
	return tensor.SetAt(t, value, indices...)
}

// Utilities.

// DataTypeOf maps a Go element type to its DataType code.
func DataTypeOf[T Elem]() DataType { return tensor.DataTypeOf[T]() }

// BroadcastShapes computes the NumPy-style broadcast of two shapes, also
// reporting whether any stretching is needed.
func BroadcastShapes(a, b Shape) (Shape, bool, error) { return tensor.BroadcastShapes(a, b) }
