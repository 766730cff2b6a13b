package tensor

import "fmt"

// DeviceKind enumerates the compute device kinds tensors can reside on.
type DeviceKind int

// Supported device kinds.
const (
	CPU DeviceKind = iota
	WebGPU
)

// String returns a human-readable device kind name.
func (k DeviceKind) String() string {
	switch k {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// Device identifies a compute device by kind and ordinal.
// Device values are comparable; two tensors are co-resident iff their
// Device values are equal.
type Device struct {
	Kind  DeviceKind
	Index int
}

// Host is the default host (CPU) device.
var Host = Device{Kind: CPU, Index: 0}

// String returns a human-readable device name, e.g. "CPU:0".
func (d Device) String() string {
	return fmt.Sprintf("%s:%d", d.Kind, d.Index)
}

// IsHost reports whether the device is a CPU device.
func (d Device) IsHost() bool {
	return d.Kind == CPU
}
