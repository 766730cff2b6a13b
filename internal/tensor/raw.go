package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// tensorBuffer is a reference-counted backing buffer shared between a tensor
// and its views. A buffer either owns its bytes (allocated by NewRaw), borrows
// them from an external producer (capsule import), or wraps an opaque
// device-resident allocation. Borrowed and device buffers carry a deleter
// that is invoked exactly once, when the last reference is released.
type tensorBuffer struct {
	data     []byte // host bytes; nil for device-resident buffers
	refCount atomic.Int32
	deleter  func() // nil for owned host buffers
	readOnly bool
	once     sync.Once
}

// newTensorBuffer creates an owned, zero-initialized host buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

// newBorrowedBuffer wraps externally owned memory without copying.
// The deleter is called exactly once when the last reference is released.
func newBorrowedBuffer(ptr unsafe.Pointer, size int, deleter func(), readOnly bool) *tensorBuffer {
	buf := &tensorBuffer{
		deleter:  deleter,
		readOnly: readOnly,
	}
	if size > 0 {
		buf.data = unsafe.Slice((*byte)(ptr), size)
	}
	buf.refCount.Store(1)
	return buf
}

// newDeviceBuffer wraps a backend-managed device allocation.
func newDeviceBuffer(release func()) *tensorBuffer {
	buf := &tensorBuffer{deleter: release}
	buf.refCount.Store(1)
	return buf
}

// addRef increments the reference count (views and clones).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count. When it reaches zero the deleter
// (if any) runs exactly once and the host bytes are dropped.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		if tb.deleter != nil {
			tb.once.Do(tb.deleter)
		}
		tb.data = nil
	}
}

// isUnique returns true if this buffer has only one reference.
func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// DeviceHandle is implemented by backend-managed device buffers.
// Release frees the device allocation; it is routed through the owning
// buffer's reference count so it runs exactly once.
type DeviceHandle interface {
	Release()
}

// RawTensor is the low-level strided tensor representation.
//
// A RawTensor pairs a reference-counted buffer with shape, per-dimension
// element strides, a dtype tag and a device. Slicing and transposition
// produce views: new RawTensors sharing the buffer under different
// shape/strides/offset. Strides may be negative (reversed views) or
// non-canonical (non-contiguous views).
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int    // per-dimension element strides
	dtype  DataType // runtime type tag
	device Device   // residency
	offset int      // element offset of the view origin into the buffer
	handle DeviceHandle
}

// NewRaw creates a new host-resident RawTensor with the given shape and type.
// Memory is allocated zero-initialized with canonical row-major strides.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: Host,
	}, nil
}

// NewRawOnDevice creates a RawTensor whose storage is a backend-managed
// device allocation. Shape and strides describe the logical layout; the host
// accessors are unavailable until the backend downloads the data.
func NewRawOnDevice(shape Shape, stride []int, dtype DataType, device Device, handle DeviceHandle) *RawTensor {
	return &RawTensor{
		buffer: newDeviceBuffer(handle.Release),
		shape:  shape.Clone(),
		stride: append([]int(nil), stride...),
		dtype:  dtype,
		device: device,
		handle: handle,
	}
}

// NewRawFromBytes copies raw bytes into an owned host tensor carrying the
// given layout. Device backends use it to rebuild a host view of a
// downloaded buffer before materializing.
func NewRawFromBytes(data []byte, shape Shape, stride []int, offset int, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	buf := newTensorBuffer(len(data))
	copy(buf.data, data)
	return &RawTensor{
		buffer: buf,
		shape:  shape.Clone(),
		stride: append([]int(nil), stride...),
		dtype:  dtype,
		offset: offset,
		device: Host,
	}, nil
}

// newBorrowedRaw wraps borrowed external memory (capsule import).
func newBorrowedRaw(ptr unsafe.Pointer, byteSize int, shape Shape, stride []int, dtype DataType, device Device, deleter func(), readOnly bool) *RawTensor {
	return &RawTensor{
		buffer: newBorrowedBuffer(ptr, byteSize, deleter, readOnly),
		shape:  shape.Clone(),
		stride: append([]int(nil), stride...),
		dtype:  dtype,
		device: device,
	}
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's per-dimension element strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// Offset returns the element offset of the view origin into the buffer.
func (r *RawTensor) Offset() int {
	return r.offset
}

// Handle returns the backend-managed device allocation, or nil for
// host-resident tensors.
func (r *RawTensor) Handle() DeviceHandle {
	return r.handle
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the logical size of the tensor in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// ReadOnly reports whether the backing buffer is a read-only borrow.
// In-place mutation of read-only buffers is a contract violation.
func (r *RawTensor) ReadOnly() bool {
	return r.buffer.readOnly
}

// IsHostResident reports whether the tensor's bytes live in host memory.
func (r *RawTensor) IsHostResident() bool {
	return r.handle == nil
}

// IsContiguous reports whether the strides equal the canonical row-major
// strides derived from the shape. Slicing and transposing may produce
// non-contiguous views.
func (r *RawTensor) IsContiguous() bool {
	canonical := r.shape.ComputeStrides()
	for i := range canonical {
		// Dimensions of size <= 1 never affect the layout.
		if r.shape[i] > 1 && r.stride[i] != canonical[i] {
			return false
		}
	}
	return true
}

// view creates a new RawTensor sharing this tensor's buffer under different
// shape/strides/offset. The buffer's reference count is incremented.
func (r *RawTensor) view(shape Shape, stride []int, offset int) *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape.Clone(),
		stride: append([]int(nil), stride...),
		dtype:  r.dtype,
		device: r.device,
		offset: offset,
		handle: r.handle,
	}
}

// ElementOffset converts a row-major logical element index into a buffer
// element offset using the view's strides.
func (r *RawTensor) ElementOffset(flat int) int {
	off := r.offset
	logical := r.shape.ComputeStrides()
	for d := range r.shape {
		coord := flat / logical[d]
		flat %= logical[d]
		off += coord * r.stride[d]
	}
	return off
}

// hostBytes returns the full backing byte slice, panicking for
// device-resident tensors.
func (r *RawTensor) hostBytes() []byte {
	if r.handle != nil {
		panic(fmt.Sprintf("tensor is resident on %s, transfer to host before accessing data", r.device))
	}
	return r.buffer.data
}

// Data returns the view window's bytes. The tensor must be contiguous and
// host-resident; device backends use this for uploads.
func (r *RawTensor) Data() []byte {
	if !r.IsContiguous() {
		panic("byte access requires a contiguous tensor, call Contiguous() first")
	}
	data := r.hostBytes()
	start := r.offset * r.dtype.Size()
	return data[start : start+r.ByteSize()]
}

// checkAccess validates a typed accessor call.
func (r *RawTensor) checkAccess(want DataType) {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	if !r.IsContiguous() {
		panic("typed access requires a contiguous tensor, call Contiguous() first")
	}
}

// typedSlice reinterprets the view window as a typed slice.
// The view must be contiguous and host-resident.
func typedSlice[T Elem](r *RawTensor) []T {
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	data := r.hostBytes()
	base := unsafe.Pointer(&data[0])
	p := unsafe.Add(base, uintptr(r.offset)*uintptr(r.dtype.Size()))
	//nolint:gosec // unsafe.Slice for zero-copy access, extent bounded by NumElements
	return unsafe.Slice((*T)(p), n)
}

// Values reinterprets a contiguous host tensor's elements as []T. Backend
// kernels use this after dtype dispatch; it panics on dtype mismatch or a
// non-contiguous view, the same contract as the As* accessors.
func Values[T Elem](r *RawTensor) []T {
	r.checkAccess(DataTypeOf[T]())
	return typedSlice[T](r)
}

// Storage reinterprets the entire backing buffer as []T, ignoring the view's
// shape, strides and offset. Offsets produced by ElementOffset index into the
// returned slice. In-place kernels use this to write through strided views.
func Storage[T Elem](r *RawTensor) []T {
	if r.dtype != DataTypeOf[T]() {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, DataTypeOf[T]()))
	}
	data := r.hostBytes()
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), len(data)/r.dtype.Size())
}

// AsBool interprets the data as []bool. Panics if the dtype is not Bool.
func (r *RawTensor) AsBool() []bool { r.checkAccess(Bool); return typedSlice[bool](r) }

// AsInt8 interprets the data as []int8. Panics if the dtype is not Int8.
func (r *RawTensor) AsInt8() []int8 { r.checkAccess(Int8); return typedSlice[int8](r) }

// AsInt16 interprets the data as []int16. Panics if the dtype is not Int16.
func (r *RawTensor) AsInt16() []int16 { r.checkAccess(Int16); return typedSlice[int16](r) }

// AsInt32 interprets the data as []int32. Panics if the dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 { r.checkAccess(Int32); return typedSlice[int32](r) }

// AsInt64 interprets the data as []int64. Panics if the dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 { r.checkAccess(Int64); return typedSlice[int64](r) }

// AsUint8 interprets the data as []uint8. Panics if the dtype is not UInt8.
func (r *RawTensor) AsUint8() []uint8 { r.checkAccess(UInt8); return typedSlice[uint8](r) }

// AsUint16 interprets the data as []uint16. Panics if the dtype is not UInt16.
func (r *RawTensor) AsUint16() []uint16 { r.checkAccess(UInt16); return typedSlice[uint16](r) }

// AsUint32 interprets the data as []uint32. Panics if the dtype is not UInt32.
func (r *RawTensor) AsUint32() []uint32 { r.checkAccess(UInt32); return typedSlice[uint32](r) }

// AsUint64 interprets the data as []uint64. Panics if the dtype is not UInt64.
func (r *RawTensor) AsUint64() []uint64 { r.checkAccess(UInt64); return typedSlice[uint64](r) }

// AsFloat32 interprets the data as []float32. Panics if the dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 { r.checkAccess(Float32); return typedSlice[float32](r) }

// AsFloat64 interprets the data as []float64. Panics if the dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 { r.checkAccess(Float64); return typedSlice[float64](r) }

// Clone creates a shallow copy of the RawTensor (shares the buffer with
// reference counting).
func (r *RawTensor) Clone() *RawTensor {
	return r.view(r.shape, r.stride, r.offset)
}

// Materialize copies the view's elements into a fresh owned contiguous
// tensor in row-major order. Host-resident tensors only.
func (r *RawTensor) Materialize() (*RawTensor, error) {
	out, err := NewRaw(r.shape, r.dtype)
	if err != nil {
		return nil, err
	}
	if err := copyStrided(out, r); err != nil {
		return nil, err
	}
	return out, nil
}

// Contiguous returns the tensor itself when already contiguous, or a fresh
// owned row-major copy otherwise.
func (r *RawTensor) Contiguous() (*RawTensor, error) {
	if r.IsContiguous() {
		return r, nil
	}
	return r.Materialize()
}

// copyStrided copies src's elements into dst in row-major logical order.
// Shapes must match element counts; both tensors must be host-resident and
// share a dtype. It handles arbitrary (including negative) strides.
func copyStrided(dst, src *RawTensor) error {
	if dst.dtype != src.dtype {
		return fmt.Errorf("%w: copy between %s and %s", ErrDTypeMismatch, src.dtype, dst.dtype)
	}
	n := src.NumElements()
	if dst.NumElements() != n {
		return fmt.Errorf("%w: copy between %v and %v", ErrShapeMismatch, src.shape, dst.shape)
	}
	if n == 0 {
		return nil
	}
	esz := src.dtype.Size()
	sb := src.hostBytes()
	db := dst.hostBytes()

	if src.IsContiguous() && dst.IsContiguous() {
		copy(db[dst.offset*esz:(dst.offset+n)*esz], sb[src.offset*esz:(src.offset+n)*esz])
		return nil
	}
	for i := 0; i < n; i++ {
		so := src.ElementOffset(i) * esz
		do := dst.ElementOffset(i) * esz
		copy(db[do:do+esz], sb[so:so+esz])
	}
	return nil
}

// unsafePointerTo returns a pointer to the first byte of b.
func unsafePointerTo(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}

// Release decrements the reference count, freeing the buffer (and invoking
// the borrowed-buffer deleter or device release) when it reaches zero.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// String returns a human-readable representation.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v on %s", r.dtype, r.shape, r.device)
}
