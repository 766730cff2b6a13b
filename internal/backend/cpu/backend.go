// Package cpu implements the compute backend with pure Go kernels over
// host memory.
package cpu

import (
	"github.com/karst-ml/karst/internal/parallel"
	"github.com/karst-ml/karst/internal/tensor"
)

// CPUBackend executes kernels on host memory. Large element-wise loops are
// sharded across worker goroutines; everything else runs sequentially.
type CPUBackend struct {
	device tensor.Device
	pcfg   parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.Host,
		pcfg:   parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend that never spawns worker goroutines.
// Useful for deterministic profiling and for tests that count allocations.
func NewSequential() *CPUBackend {
	return &CPUBackend{device: tensor.Host, pcfg: parallel.Config{}}
}

// Name returns the backend name.
func (c *CPUBackend) Name() string {
	return "cpu"
}

// Device returns the host device.
func (c *CPUBackend) Device() tensor.Device {
	return c.device
}

// HostBackend returns the backend itself; CPU results are already
// host-resident.
func (c *CPUBackend) HostBackend() tensor.Backend {
	return c
}

// ToHost copies the tensor into a fresh owned contiguous host tensor.
// The result never aliases the input, even when the input is already
// host-resident.
func (c *CPUBackend) ToHost(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return x.Materialize()
}

// FromHost copies a host tensor onto this backend, which for the CPU is the
// same memory space. The copy is still taken so the caller's buffer is never
// aliased.
func (c *CPUBackend) FromHost(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return x.Materialize()
}
