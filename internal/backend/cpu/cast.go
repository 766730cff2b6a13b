package cpu

import (
	"fmt"
	"math"

	"github.com/karst-ml/karst/internal/tensor"
)

// Cast converts x into a fresh owned tensor of the requested dtype.
//
// Conversion rules:
//   - anything -> Bool: nonzero (including NaN) becomes true
//   - Bool -> numeric: false/true become 0/1
//   - integer -> integer: Go conversion semantics (wrapping)
//   - float -> integer: truncation toward zero, saturating at the target
//     range; NaN becomes 0
//   - integer/float -> float: value-preserving up to float precision
func (c *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	xc, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(x.Shape(), dtype)
	if err != nil {
		return nil, err
	}
	switch dt := x.DType(); dt {
	case tensor.Bool:
		err = castFromBool(xc, out)
	case tensor.Int8:
		err = castFromInt(tensor.Values[int8](xc), out)
	case tensor.Int16:
		err = castFromInt(tensor.Values[int16](xc), out)
	case tensor.Int32:
		err = castFromInt(tensor.Values[int32](xc), out)
	case tensor.Int64:
		err = castFromInt(tensor.Values[int64](xc), out)
	case tensor.UInt8:
		err = castFromUint(tensor.Values[uint8](xc), out)
	case tensor.UInt16:
		err = castFromUint(tensor.Values[uint16](xc), out)
	case tensor.UInt32:
		err = castFromUint(tensor.Values[uint32](xc), out)
	case tensor.UInt64:
		err = castFromUint(tensor.Values[uint64](xc), out)
	case tensor.Float32:
		err = castFromFloat(tensor.Values[float32](xc), out)
	case tensor.Float64:
		err = castFromFloat(tensor.Values[float64](xc), out)
	default:
		err = fmt.Errorf("%w: cannot cast from %s", tensor.ErrInvalidArgument, dt)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func castFromBool(x, out *tensor.RawTensor) error {
	xv := tensor.Values[bool](x)
	return fillFrom(out, len(xv), func(i int) int64 {
		if xv[i] {
			return 1
		}
		return 0
	})
}

type signedInt interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type unsignedInt interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func castFromInt[S signedInt](xv []S, out *tensor.RawTensor) error {
	if out.DType().IsFloat() || out.DType() == tensor.Bool {
		return fillFloatOrBool(out, len(xv), func(i int) float64 { return float64(xv[i]) }, func(i int) bool { return xv[i] != 0 })
	}
	return fillFrom(out, len(xv), func(i int) int64 { return int64(xv[i]) })
}

func castFromUint[S unsignedInt](xv []S, out *tensor.RawTensor) error {
	if out.DType().IsFloat() || out.DType() == tensor.Bool {
		return fillFloatOrBool(out, len(xv), func(i int) float64 { return float64(xv[i]) }, func(i int) bool { return xv[i] != 0 })
	}
	// Route through uint64 so values above MaxInt64 keep Go's wrapping
	// conversion semantics.
	return fillFrom(out, len(xv), func(i int) int64 { return int64(uint64(xv[i])) })
}

func castFromFloat[S float](xv []S, out *tensor.RawTensor) error {
	switch out.DType() {
	case tensor.Bool:
		ov := tensor.Values[bool](out)
		for i := range xv {
			ov[i] = xv[i] != 0
		}
	case tensor.Int8:
		ov := tensor.Values[int8](out)
		for i := range xv {
			ov[i] = int8(clampFloat(float64(xv[i]), math.MinInt8, math.MaxInt8))
		}
	case tensor.Int16:
		ov := tensor.Values[int16](out)
		for i := range xv {
			ov[i] = int16(clampFloat(float64(xv[i]), math.MinInt16, math.MaxInt16))
		}
	case tensor.Int32:
		ov := tensor.Values[int32](out)
		for i := range xv {
			ov[i] = int32(clampFloat(float64(xv[i]), math.MinInt32, math.MaxInt32))
		}
	case tensor.Int64:
		ov := tensor.Values[int64](out)
		for i := range xv {
			ov[i] = floatToInt64(float64(xv[i]))
		}
	case tensor.UInt8:
		ov := tensor.Values[uint8](out)
		for i := range xv {
			ov[i] = uint8(clampFloat(float64(xv[i]), 0, math.MaxUint8))
		}
	case tensor.UInt16:
		ov := tensor.Values[uint16](out)
		for i := range xv {
			ov[i] = uint16(clampFloat(float64(xv[i]), 0, math.MaxUint16))
		}
	case tensor.UInt32:
		ov := tensor.Values[uint32](out)
		for i := range xv {
			ov[i] = uint32(clampFloat(float64(xv[i]), 0, math.MaxUint32))
		}
	case tensor.UInt64:
		ov := tensor.Values[uint64](out)
		for i := range xv {
			ov[i] = floatToUint64(float64(xv[i]))
		}
	case tensor.Float32:
		ov := tensor.Values[float32](out)
		for i := range xv {
			ov[i] = float32(xv[i])
		}
	case tensor.Float64:
		ov := tensor.Values[float64](out)
		for i := range xv {
			ov[i] = float64(xv[i])
		}
	default:
		return fmt.Errorf("%w: cannot cast to %s", tensor.ErrInvalidArgument, out.DType())
	}
	return nil
}

// clampFloat truncates toward zero and saturates into [lo, hi]; NaN maps
// to 0. lo and hi must be exactly representable in float64.
func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Trunc(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// floatToInt64 saturates explicitly: MaxInt64 is not exactly representable
// in float64, so the upper bound check uses 2^63.
func floatToInt64(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Trunc(v)
	if v >= 9223372036854775808.0 { // 2^63
		return math.MaxInt64
	}
	if v < -9223372036854775808.0 {
		return math.MinInt64
	}
	return int64(v)
}

func floatToUint64(v float64) uint64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	v = math.Trunc(v)
	if v >= 18446744073709551616.0 { // 2^64
		return math.MaxUint64
	}
	return uint64(v)
}

// fillFrom writes integer-sourced values into any integer destination via
// Go's wrapping conversions.
func fillFrom(out *tensor.RawTensor, n int, get func(int) int64) error {
	switch out.DType() {
	case tensor.Bool:
		ov := tensor.Values[bool](out)
		for i := 0; i < n; i++ {
			ov[i] = get(i) != 0
		}
	case tensor.Int8:
		ov := tensor.Values[int8](out)
		for i := 0; i < n; i++ {
			ov[i] = int8(get(i))
		}
	case tensor.Int16:
		ov := tensor.Values[int16](out)
		for i := 0; i < n; i++ {
			ov[i] = int16(get(i))
		}
	case tensor.Int32:
		ov := tensor.Values[int32](out)
		for i := 0; i < n; i++ {
			ov[i] = int32(get(i))
		}
	case tensor.Int64:
		ov := tensor.Values[int64](out)
		for i := 0; i < n; i++ {
			ov[i] = get(i)
		}
	case tensor.UInt8:
		ov := tensor.Values[uint8](out)
		for i := 0; i < n; i++ {
			ov[i] = uint8(get(i))
		}
	case tensor.UInt16:
		ov := tensor.Values[uint16](out)
		for i := 0; i < n; i++ {
			ov[i] = uint16(get(i))
		}
	case tensor.UInt32:
		ov := tensor.Values[uint32](out)
		for i := 0; i < n; i++ {
			ov[i] = uint32(get(i))
		}
	case tensor.UInt64:
		ov := tensor.Values[uint64](out)
		for i := 0; i < n; i++ {
			ov[i] = uint64(get(i))
		}
	case tensor.Float32:
		ov := tensor.Values[float32](out)
		for i := 0; i < n; i++ {
			ov[i] = float32(get(i))
		}
	case tensor.Float64:
		ov := tensor.Values[float64](out)
		for i := 0; i < n; i++ {
			ov[i] = float64(get(i))
		}
	default:
		return fmt.Errorf("%w: cannot cast to %s", tensor.ErrInvalidArgument, out.DType())
	}
	return nil
}

// fillFloatOrBool writes into float or bool destinations from a numeric
// source without an int64 round trip, preserving magnitudes above 2^63.
func fillFloatOrBool(out *tensor.RawTensor, n int, getF func(int) float64, getB func(int) bool) error {
	switch out.DType() {
	case tensor.Bool:
		ov := tensor.Values[bool](out)
		for i := 0; i < n; i++ {
			ov[i] = getB(i)
		}
	case tensor.Float32:
		ov := tensor.Values[float32](out)
		for i := 0; i < n; i++ {
			ov[i] = float32(getF(i))
		}
	case tensor.Float64:
		ov := tensor.Values[float64](out)
		for i := 0; i < n; i++ {
			ov[i] = getF(i)
		}
	default:
		return fmt.Errorf("%w: cannot cast to %s", tensor.ErrInvalidArgument, out.DType())
	}
	return nil
}
