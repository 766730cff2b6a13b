package tensor

import (
	"fmt"
	"math/rand"
	"reflect"
)

// FromSlice creates a tensor from a Go slice. The slice is copied into the
// tensor's memory and the result lives on the backend's device.
func FromSlice[T Elem](data []T, shape Shape, b Backend) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, but got %d",
			ErrShapeMismatch, shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	copy(typedSlice[T](raw), data)

	return placeOn(raw, b)
}

// placeOn moves a freshly built host RawTensor onto the backend's device.
func placeOn(raw *RawTensor, b Backend) (*Tensor, error) {
	if b.Device().IsHost() {
		return New(raw, b), nil
	}
	moved, err := b.FromHost(raw)
	if err != nil {
		return nil, err
	}
	return New(moved, b), nil
}

// Zeros creates a tensor filled with zeros.
func Zeros[T Elem](shape Shape, b Backend) (*Tensor, error) {
	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	// Data is already zero-initialized by make().
	return placeOn(raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T Elem](shape Shape, b Backend) (*Tensor, error) {
	var one T
	switch p := any(&one).(type) {
	case *bool:
		*p = true
	default:
		setNumeric(&one, 1)
	}
	return Full(shape, one, b)
}

// Full creates a tensor filled with a specific value.
func Full[T Elem](shape Shape, value T, b Backend) (*Tensor, error) {
	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	data := typedSlice[T](raw)
	for i := range data {
		data[i] = value
	}
	return placeOn(raw, b)
}

// setNumeric assigns an integer literal to any numeric element type.
func setNumeric[T Elem](dst *T, v int) {
	switch p := any(dst).(type) {
	case *int8:
		*p = int8(v)
	case *int16:
		*p = int16(v)
	case *int32:
		*p = int32(v)
	case *int64:
		*p = int64(v)
	case *uint8:
		*p = uint8(v)
	case *uint16:
		*p = uint16(v)
	case *uint32:
		*p = uint32(v)
	case *uint64:
		*p = uint64(v)
	case *float32:
		*p = float32(v)
	case *float64:
		*p = float64(v)
	default:
		panic("setNumeric: bool element")
	}
}

// Arange creates a 1D tensor with values start, start+1, ... up to end
// (exclusive). Numeric element types only.
func Arange[T Elem](start, end int, b Backend) (*Tensor, error) {
	if DataTypeOf[T]() == Bool {
		return nil, fmt.Errorf("%w: arange does not support bool", ErrInvalidArgument)
	}
	if end < start {
		return nil, fmt.Errorf("%w: arange end %d < start %d", ErrInvalidArgument, end, start)
	}
	n := end - start
	raw, err := NewRaw(Shape{n}, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	data := typedSlice[T](raw)
	for i := range data {
		setNumeric(&data[i], start+i)
	}
	return placeOn(raw, b)
}

// Eye creates an n-by-n identity matrix.
func Eye[T Elem](n int, b Backend) (*Tensor, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: eye size %d", ErrInvalidArgument, n)
	}
	var one T
	switch p := any(&one).(type) {
	case *bool:
		*p = true
	default:
		setNumeric(&one, 1)
	}
	raw, err := NewRaw(Shape{n, n}, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	data := typedSlice[T](raw)
	for i := 0; i < n; i++ {
		data[i*n+i] = one
	}
	return placeOn(raw, b)
}

// Rand creates a tensor with values uniformly distributed in [0, 1).
// Float element types only.
func Rand[T Elem](shape Shape, b Backend) (*Tensor, error) {
	dtype := DataTypeOf[T]()
	if !dtype.IsFloat() {
		return nil, fmt.Errorf("%w: rand supports float32 and float64, got %s", ErrInvalidArgument, dtype)
	}
	raw, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		data := typedSlice[float32](raw)
		for i := range data {
			data[i] = rand.Float32() //nolint:gosec // statistical use, reproducibility over crypto strength
		}
	case Float64:
		data := typedSlice[float64](raw)
		for i := range data {
			data[i] = rand.Float64() //nolint:gosec // statistical use, reproducibility over crypto strength
		}
	}
	return placeOn(raw, b)
}

// FromData creates a tensor from a nested literal: a scalar, a typed slice,
// or nested slices of uniform lengths. The dtype is inferred from the leaf
// element type (untyped int -> Int64, untyped float -> Float64, bool -> Bool;
// concrete types such as []float32 map to their native dtype). Jagged
// nesting fails with ErrInvalidArgument.
func FromData(data any, b Backend) (*Tensor, error) {
	shape, dtype, err := literalLayout(data)
	if err != nil {
		return nil, err
	}
	raw, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	pos := 0
	if err := fillLiteral(raw, reflect.ValueOf(data), &pos); err != nil {
		return nil, err
	}
	return placeOn(raw, b)
}

// FromDataAs is FromData followed by a cast to the requested dtype.
func FromDataAs(data any, dtype DataType, b Backend) (*Tensor, error) {
	t, err := FromData(data, b)
	if err != nil {
		return nil, err
	}
	if t.DType() == dtype {
		return t, nil
	}
	return t.Cast(dtype)
}

// literalLayout walks a nested literal to derive its shape and element dtype,
// rejecting jagged nesting.
func literalLayout(data any) (Shape, DataType, error) {
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		return nil, 0, fmt.Errorf("%w: nil literal data", ErrInvalidArgument)
	}
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}

	// Walk the leading elements to derive the nominal shape.
	shape := Shape{}
	cur := v
	for cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			dtype, err := dtypeOfReflectType(cur.Type().Elem())
			return shape, dtype, err
		}
		cur = cur.Index(0)
		for cur.Kind() == reflect.Interface {
			cur = cur.Elem()
		}
	}
	dtype, err := dtypeOfReflectType(cur.Type())
	if err != nil {
		return nil, 0, err
	}
	if err := checkUniform(v, shape, 0); err != nil {
		return nil, 0, err
	}
	return shape, dtype, nil
}

// checkUniform verifies that every sub-slice at depth d has length shape[d].
func checkUniform(v reflect.Value, shape Shape, depth int) error {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if depth == len(shape) {
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			return fmt.Errorf("%w: inconsistent nesting depth in literal data", ErrInvalidArgument)
		}
		return nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("%w: inconsistent nesting depth in literal data", ErrInvalidArgument)
	}
	if v.Len() != shape[depth] {
		return fmt.Errorf("%w: jagged literal data: expected length %d at depth %d, got %d",
			ErrInvalidArgument, shape[depth], depth, v.Len())
	}
	for i := 0; i < v.Len(); i++ {
		if err := checkUniform(v.Index(i), shape, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// dtypeOfReflectType infers the dtype of a literal's element type.
func dtypeOfReflectType(t reflect.Type) (DataType, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool, nil
	case reflect.Int8:
		return Int8, nil
	case reflect.Int16:
		return Int16, nil
	case reflect.Int32:
		return Int32, nil
	case reflect.Int64, reflect.Int:
		return Int64, nil
	case reflect.Uint8:
		return UInt8, nil
	case reflect.Uint16:
		return UInt16, nil
	case reflect.Uint32:
		return UInt32, nil
	case reflect.Uint64, reflect.Uint:
		return UInt64, nil
	case reflect.Float32:
		return Float32, nil
	case reflect.Float64:
		return Float64, nil
	case reflect.Slice, reflect.Array:
		return dtypeOfReflectType(t.Elem())
	case reflect.Interface:
		return 0, fmt.Errorf("%w: cannot infer dtype from empty interface element", ErrInvalidArgument)
	default:
		return 0, fmt.Errorf("%w: unsupported literal element kind %s", ErrInvalidArgument, t.Kind())
	}
}

// fillLiteral writes the nested literal's leaves into the raw buffer in
// row-major order.
func fillLiteral(raw *RawTensor, v reflect.Value, pos *int) error {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if err := fillLiteral(raw, v.Index(i), pos); err != nil {
				return err
			}
		}
		return nil
	}
	leaf, err := dtypeOfReflectType(v.Type())
	if err != nil {
		return err
	}
	if leaf != raw.dtype {
		return fmt.Errorf("%w: mixed element kinds in literal data (%s and %s)",
			ErrInvalidArgument, raw.dtype, leaf)
	}
	esz := raw.dtype.Size()
	dst := raw.buffer.data[*pos*esz : (*pos+1)*esz]
	switch raw.dtype {
	case Bool:
		elemToBytes(v.Bool(), dst)
	case Int8:
		elemToBytes(int8(v.Int()), dst)
	case Int16:
		elemToBytes(int16(v.Int()), dst)
	case Int32:
		elemToBytes(int32(v.Int()), dst)
	case Int64:
		elemToBytes(v.Int(), dst)
	case UInt8:
		elemToBytes(uint8(v.Uint()), dst)
	case UInt16:
		elemToBytes(uint16(v.Uint()), dst)
	case UInt32:
		elemToBytes(uint32(v.Uint()), dst)
	case UInt64:
		elemToBytes(v.Uint(), dst)
	case Float32:
		elemToBytes(float32(v.Float()), dst)
	case Float64:
		elemToBytes(v.Float(), dst)
	}
	*pos++
	return nil
}
