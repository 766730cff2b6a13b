// Package tensor provides the core strided tensor types for the Karst point-cloud library.
package tensor

// Elem is a constraint for supported tensor element types.
// It uses Go generics to ensure compile-time type safety at the API boundary.
type Elem interface {
	~bool | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// DataType represents runtime type information for tensors.
// The set is closed: every kernel dispatches over this enumeration.
type DataType int

// Supported data types for tensors.
const (
	Bool DataType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// IsSigned reports whether the data type is a signed integer type.
func (dt DataType) IsSigned() bool {
	switch dt {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether the data type is an unsigned integer type.
func (dt DataType) IsUnsigned() bool {
	switch dt {
	case UInt8, UInt16, UInt32, UInt64:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the data type supports arithmetic.
func (dt DataType) IsNumeric() bool {
	return dt != Bool
}

// DataTypeOf returns the DataType corresponding to a generic element type.
func DataTypeOf[T Elem]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return UInt8
	case uint16:
		return UInt16
	case uint32:
		return UInt32
	case uint64:
		return UInt64
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported element type")
	}
}
