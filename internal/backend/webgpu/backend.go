// Package webgpu implements the WebGPU backend: tensors reside in GPU
// buffers, compute is staged through the CPU kernels, and transfers go over
// wgpu staging buffers. Uses go-webgpu for zero-CGO WebGPU bindings.
package webgpu

import (
	"fmt"
	"log/slog"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/karst-ml/karst/internal/backend/cpu"
	"github.com/karst-ml/karst/internal/tensor"
)

// Backend holds the WebGPU instance, adapter, device and queue, plus the
// host backend its kernels stage through.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfoGo

	host   *cpu.CPUBackend
	logger *slog.Logger
	dev    tensor.Device
}

// New creates a WebGPU backend on the default adapter.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	var info wgpu.AdapterInfoGo
	if infoPtr, infoErr := adapter.GetInfo(); infoErr == nil && infoPtr != nil {
		info = *infoPtr
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	b := &Backend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		info:     info,
		host:     cpu.New(),
		logger:   slog.Default().With("backend", "webgpu"),
		dev:      tensor.Device{Kind: tensor.WebGPU, Index: 0},
	}
	b.logger.Debug("webgpu backend initialized", "adapter", info.Device, "vendor", info.Vendor)
	return b, nil
}

// IsAvailable checks if WebGPU is usable on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Release frees the WebGPU objects. Tensors created on this backend must be
// released first.
func (b *Backend) Release() {
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name with adapter details when known.
func (b *Backend) Name() string {
	if b.info.Device != "" {
		return fmt.Sprintf("webgpu (%s %s)", b.info.Device, b.info.Vendor)
	}
	return "webgpu"
}

// Device returns the WebGPU device.
func (b *Backend) Device() tensor.Device {
	return b.dev
}

// HostBackend returns the CPU backend used for staged compute and for
// host-resident results of ToHost.
func (b *Backend) HostBackend() tensor.Backend {
	return b.host
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() wgpu.AdapterInfoGo {
	return b.info
}
