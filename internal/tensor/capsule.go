package tensor

import (
	"fmt"
	"sync"
	"unsafe"
)

// Capsule is an opaque tensor-exchange descriptor: data pointer, shape,
// element strides, dtype, device and a deleter. It lets a foreign system and
// this engine share one buffer with no copy on either side.
//
// Sharing is shared-mutable aliasing, not copy semantics: mutations on
// either side are visible to the other until one of them releases the
// buffer. The Deleter is invoked exactly once, when the last reference to
// the imported buffer is released.
type Capsule struct {
	Data     unsafe.Pointer
	Shape    []int64
	Strides  []int64 // element strides; nil means canonical row-major
	DType    DataType
	Device   Device
	ReadOnly bool
	Deleter  func()
}

// FromCapsule wraps a foreign buffer description without copying. The
// produced tensor borrows the memory: it never frees it itself, and the
// capsule's deleter runs exactly once when the last referencing tensor is
// released. Only host capsules with non-negative strides can be imported.
func FromCapsule(c *Capsule, b Backend) (*Tensor, error) {
	if c == nil || (c.Data == nil && numElements64(c.Shape) > 0) {
		return nil, fmt.Errorf("%w: capsule has no data", ErrInvalidArgument)
	}
	if !c.Device.IsHost() {
		return nil, fmt.Errorf("%w: capsule import requires host memory, got %s", ErrDeviceMismatch, c.Device)
	}
	if b.Device() != c.Device {
		return nil, fmt.Errorf("%w: capsule on %s, backend owns %s", ErrDeviceMismatch, c.Device, b.Device())
	}

	shape := make(Shape, len(c.Shape))
	for i, d := range c.Shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative capsule dimension %d", ErrInvalidArgument, d)
		}
		shape[i] = int(d)
	}

	stride := make([]int, len(shape))
	if c.Strides == nil {
		stride = shape.ComputeStrides()
	} else {
		if len(c.Strides) != len(shape) {
			return nil, fmt.Errorf("%w: capsule has %d strides for rank %d", ErrInvalidArgument, len(c.Strides), len(shape))
		}
		for i, s := range c.Strides {
			if s < 0 {
				return nil, fmt.Errorf("%w: capsule import does not accept negative strides", ErrInvalidArgument)
			}
			stride[i] = int(s)
		}
	}

	// The borrowed window spans from the data pointer to the farthest
	// addressable element.
	span := 1
	for i, d := range shape {
		if d == 0 {
			span = 0
			break
		}
		span += (d - 1) * stride[i]
	}
	byteSize := span * c.DType.Size()

	raw := newBorrowedRaw(c.Data, byteSize, shape, stride, c.DType, c.Device, c.Deleter, c.ReadOnly)
	return New(raw, b), nil
}

// ToCapsule exports the tensor's buffer as a capsule so a foreign consumer
// can wrap it without copying. The tensor must be host-resident. The
// capsule holds its own reference: its deleter releases that reference and
// is safe to call exactly once.
func (t *Tensor) ToCapsule() (*Capsule, error) {
	if !t.Device().IsHost() {
		return nil, fmt.Errorf("%w: capsule export requires a host-resident tensor", ErrDeviceMismatch)
	}

	raw := t.raw
	shape := make([]int64, len(raw.shape))
	for i, d := range raw.shape {
		shape[i] = int64(d)
	}
	strides := make([]int64, len(raw.stride))
	for i, s := range raw.stride {
		strides[i] = int64(s)
	}

	var data unsafe.Pointer
	if raw.NumElements() > 0 {
		bytes := raw.hostBytes()
		data = unsafe.Add(unsafePointerTo(bytes), uintptr(raw.offset)*uintptr(raw.dtype.Size()))
	}

	raw.buffer.addRef()
	var once sync.Once
	return &Capsule{
		Data:     data,
		Shape:    shape,
		Strides:  strides,
		DType:    raw.dtype,
		Device:   raw.device,
		ReadOnly: raw.ReadOnly(),
		Deleter: func() {
			once.Do(raw.buffer.release)
		},
	}, nil
}

// ArraySource is implemented by external array-like objects that can
// describe their memory as a capsule.
type ArraySource interface {
	Capsule() *Capsule
}

// FromArray constructs an owned tensor by copying an external array's
// elements. Unlike FromCapsule, the result does not alias the source: the
// source descriptor is borrowed only for the duration of the copy.
func FromArray(src ArraySource, b Backend) (*Tensor, error) {
	c := src.Capsule()
	borrowed, err := FromCapsule(c, b.HostBackend())
	if err != nil {
		return nil, err
	}
	defer borrowed.Release()

	owned, err := borrowed.raw.Materialize()
	if err != nil {
		return nil, err
	}
	return placeOn(owned, b)
}

func numElements64(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
