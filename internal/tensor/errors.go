package tensor

import "errors"

// Error kinds surfaced by tensor and neighbor-search operations.
// All failures are synchronous programming or data errors; nothing is
// retried or silently downgraded. Callers match with errors.Is.
var (
	// ErrInvalidArgument indicates a malformed input: jagged literal data,
	// an in-place operation on a read-only borrowed buffer, or an index
	// search invoked before the matching build.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndexOutOfRange indicates an integer index outside [-size, size)
	// for its dimension.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDTypeMismatch indicates a binary operation or search across
	// incompatible dtypes without an explicit cast.
	ErrDTypeMismatch = errors.New("dtype mismatch")

	// ErrDeviceMismatch indicates operands resident on different devices
	// without an explicit transfer.
	ErrDeviceMismatch = errors.New("device mismatch")

	// ErrShapeMismatch indicates shapes that are not broadcast-compatible.
	ErrShapeMismatch = errors.New("shape mismatch")
)
