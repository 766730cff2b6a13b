package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/karst-ml/karst/internal/tensor"
)

// deviceBuffer wraps a wgpu storage buffer as a tensor.DeviceHandle. The
// tensor layer's reference counting guarantees Release runs exactly once.
type deviceBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

// Release frees the GPU allocation.
func (d *deviceBuffer) Release() {
	if d.buf != nil {
		d.buf.Release()
		d.buf = nil
	}
}

// createBuffer creates a GPU storage buffer and uploads the initial data
// through a mapped-at-creation window.
func (b *Backend) createBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// readBuffer reads data back from a GPU buffer to host memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	if err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)
	stagingBuffer.Unmap()

	return result, nil
}

// FromHost uploads a host tensor into a fresh GPU buffer. The upload always
// materializes a contiguous copy first, so the device tensor never aliases
// host memory.
func (b *Backend) FromHost(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !x.IsHostResident() {
		return nil, fmt.Errorf("%w: FromHost requires a host-resident tensor", tensor.ErrDeviceMismatch)
	}
	hc, err := x.Materialize()
	if err != nil {
		return nil, err
	}
	defer hc.Release()

	handle := &deviceBuffer{size: uint64(hc.ByteSize())}
	if hc.ByteSize() > 0 {
		handle.buf = b.createBuffer(hc.Data())
	}
	return tensor.NewRawOnDevice(x.Shape(), x.Shape().ComputeStrides(), x.DType(), b.dev, handle), nil
}

// ToHost downloads a device tensor into a fresh owned contiguous host
// tensor.
func (b *Backend) ToHost(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x.IsHostResident() {
		return x.Materialize()
	}
	handle, ok := x.Handle().(*deviceBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: tensor is not resident on this backend", tensor.ErrDeviceMismatch)
	}

	var data []byte
	if handle.size > 0 {
		var err error
		data, err = b.readBuffer(handle.buf, handle.size)
		if err != nil {
			return nil, err
		}
	}
	// Rebuild the view's layout over the downloaded bytes, then flatten it
	// into row-major order.
	host, err := tensor.NewRawFromBytes(data, x.Shape(), x.Strides(), x.Offset(), x.DType())
	if err != nil {
		return nil, err
	}
	defer host.Release()
	return host.Materialize()
}
