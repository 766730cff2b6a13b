package tensor_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-ml/karst/internal/backend/cpu"
	"github.com/karst-ml/karst/internal/tensor"
)

func TestFromDataInference(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromData([][]float64{{1, 2}, {3, 4}}, b)
	require.NoError(t, err)
	assert.True(t, x.Shape().Equal(tensor.Shape{2, 2}))
	assert.Equal(t, tensor.Float64, x.DType())

	y, err := tensor.FromData([]int{1, 2, 3}, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Int64, y.DType(), "untyped int literals widen to Int64")

	z, err := tensor.FromData([]float32{1, 2}, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, z.DType(), "typed slices keep their native dtype")

	_, err = tensor.FromData([][]float64{{1, 2}, {3}}, b)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "jagged nesting")

	_, err = tensor.FromData([]any{1, 2.5}, b)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "mixed leaf kinds")
}

func TestArithmeticBroadcast(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)
	row, err := tensor.FromSlice([]float32{10, 20, 30}, tensor.Shape{3}, b)
	require.NoError(t, err)

	sum, err := x.Add(row)
	require.NoError(t, err)
	got, err := tensor.Data[float32](sum)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, got)
}

func TestBinaryOpMismatches(t *testing.T) {
	b := cpu.New()

	f32, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	f64, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)

	_, err = f32.Add(f64)
	assert.ErrorIs(t, err, tensor.ErrDTypeMismatch)

	bad, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, b)
	require.NoError(t, err)
	_, err = f32.Add(bad)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestIntegerDivisionByZero(t *testing.T) {
	b := cpu.New()

	num, err := tensor.FromSlice([]int32{6, 9}, tensor.Shape{2}, b)
	require.NoError(t, err)
	den, err := tensor.FromSlice([]int32{3, 0}, tensor.Shape{2}, b)
	require.NoError(t, err)

	_, err = num.Div(den)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	// Float division by zero follows IEEE-754 instead.
	fnum, err := tensor.FromSlice([]float64{1}, tensor.Shape{1}, b)
	require.NoError(t, err)
	fden, err := tensor.FromSlice([]float64{0}, tensor.Shape{1}, b)
	require.NoError(t, err)
	q, err := fnum.Div(fden)
	require.NoError(t, err)
	v, err := tensor.Item[float64](q)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestComparisonAgainstScalar(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float64{-1, 0, 2, 5}, tensor.Shape{4}, b)
	require.NoError(t, err)
	zero, err := tensor.FromSlice([]float64{0}, tensor.Shape{}, b)
	require.NoError(t, err)

	gt, err := x.Gt(zero)
	require.NoError(t, err)
	assert.Equal(t, tensor.Bool, gt.DType())
	got, err := tensor.Data[bool](gt)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true}, got)
}

func TestLogicalNonzeroSemantics(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float64{2.0, 0.0, 3.5, 0.0}, tensor.Shape{4}, b)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]float64{0.0, 3.0, 1.5, 0.0}, tensor.Shape{4}, b)
	require.NoError(t, err)

	and, err := x.LogicalAnd(y)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, and.DType(), "non-Bool operands keep their dtype")
	got, err := tensor.Data[float64](and)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0}, got)

	or, err := x.LogicalOr(y)
	require.NoError(t, err)
	gotOr, err := tensor.Data[float64](or)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 0}, gotOr)

	not, err := x.LogicalNot()
	require.NoError(t, err)
	gotNot, err := tensor.Data[float64](not)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 1}, gotNot)
}

func TestSumDimSubsets(t *testing.T) {
	b := cpu.New()

	vals := make([]float64, 24)
	for i := range vals {
		vals[i] = float64(i)
	}
	x, err := tensor.FromSlice(vals, tensor.Shape{2, 3, 4}, b)
	require.NoError(t, err)

	s, err := x.Sum([]int{0, 2}, false)
	require.NoError(t, err)
	assert.True(t, s.Shape().Equal(tensor.Shape{3}))
	got, err := tensor.Data[float64](s)
	require.NoError(t, err)
	// Sum over batches and columns: rows of length 4 from both batches.
	assert.Equal(t, []float64{0 + 1 + 2 + 3 + 12 + 13 + 14 + 15, 4 + 5 + 6 + 7 + 16 + 17 + 18 + 19, 8 + 9 + 10 + 11 + 20 + 21 + 22 + 23}, got)

	kept, err := x.Sum([]int{0, 2}, true)
	require.NoError(t, err)
	assert.True(t, kept.Shape().Equal(tensor.Shape{1, 3, 1}))

	total, err := x.Sum(nil, false)
	require.NoError(t, err)
	assert.True(t, total.Shape().Equal(tensor.Shape{}), "all-dim reduction is 0-d")
	v, err := tensor.Item[float64](total)
	require.NoError(t, err)
	assert.Equal(t, 276.0, v)
}

func TestMinMaxEmptyReduction(t *testing.T) {
	b := cpu.New()

	empty, err := tensor.Zeros[float32](tensor.Shape{0, 3}, b)
	require.NoError(t, err)

	_, err = empty.Min(nil, false)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	_, err = empty.Max([]int{0}, false)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestArgMaxFirstOccurrence(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float64{1, 7, 7, 3}, tensor.Shape{4}, b)
	require.NoError(t, err)

	am, err := x.ArgMax()
	require.NoError(t, err)
	idx, err := tensor.Item[int64](am)
	require.NoError(t, err)
	assert.Equal(t, int64(1), idx, "ties resolve to the first occurrence")

	m, err := tensor.FromSlice([]int32{5, 1, 5, 2, 9, 9}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)
	along, err := m.ArgMax(1)
	require.NoError(t, err)
	got, err := tensor.Data[int64](along)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, got)

	_, err = m.ArgMax(0, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestAnyAll(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]bool{true, false, true, true}, tensor.Shape{2, 2}, b)
	require.NoError(t, err)

	any1, err := x.Any([]int{1}, false)
	require.NoError(t, err)
	gotAny, err := tensor.Data[bool](any1)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, gotAny)

	all1, err := x.All([]int{1}, false)
	require.NoError(t, err)
	gotAll, err := tensor.Data[bool](all1)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, gotAll)

	f, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, b)
	require.NoError(t, err)
	_, err = f.Any(nil, false)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "any requires Bool input")
}

func TestCastRules(t *testing.T) {
	b := cpu.New()

	f, err := tensor.FromSlice([]float64{1.9, -1.9, math.NaN(), 1e12, -1e12}, tensor.Shape{5}, b)
	require.NoError(t, err)

	i8, err := f.Cast(tensor.Int8)
	require.NoError(t, err)
	got, err := tensor.Data[int8](i8)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -1, 0, 127, -128}, got, "truncate toward zero, saturate, NaN to 0")

	u8, err := f.Cast(tensor.UInt8)
	require.NoError(t, err)
	gotU, err := tensor.Data[uint8](u8)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 0, 255, 0}, gotU)

	// Integer-to-integer wraps.
	wide, err := tensor.FromSlice([]int64{300, -1}, tensor.Shape{2}, b)
	require.NoError(t, err)
	narrow, err := wide.Cast(tensor.UInt8)
	require.NoError(t, err)
	gotN, err := tensor.Data[uint8](narrow)
	require.NoError(t, err)
	assert.Equal(t, []uint8{44, 255}, gotN)

	// Anything-to-Bool is a nonzero test.
	bl, err := f.Cast(tensor.Bool)
	require.NoError(t, err)
	gotB, err := tensor.Data[bool](bl)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true, true}, gotB, "NaN is nonzero")

	z, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	zb, err := z.Cast(tensor.Bool)
	require.NoError(t, err)
	gotZ, err := tensor.Data[bool](zb)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, gotZ)
}

func TestUnaryMathDTypeGuards(t *testing.T) {
	b := cpu.New()

	i, err := tensor.FromSlice([]int32{1, 4}, tensor.Shape{2}, b)
	require.NoError(t, err)
	_, err = i.Sqrt()
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	u, err := tensor.FromSlice([]uint16{1, 2}, tensor.Shape{2}, b)
	require.NoError(t, err)
	_, err = u.Neg()
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	abs, err := i.Abs()
	require.NoError(t, err)
	got, err := tensor.Data[int32](abs)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 4}, got)
}

func TestInPlaceThroughView(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float64{1, 4, 9, 16}, tensor.Shape{2, 2}, b)
	require.NoError(t, err)

	row, err := x.Get(tensor.I(1))
	require.NoError(t, err)
	_, err = row.SqrtInPlace()
	require.NoError(t, err)

	got, err := tensor.Data[float64](x)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 3, 4}, got, "in-place through a view writes the owner's buffer")
}

func TestTransposeIsView(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)

	tr, err := x.T()
	require.NoError(t, err)
	assert.True(t, tr.Shape().Equal(tensor.Shape{3, 2}))
	assert.False(t, tr.IsContiguous())

	// Mutating the owner shows through the transposed view.
	require.NoError(t, tensor.SetAt[float32](x, 99, 0, 1))
	v, err := tensor.At[float32](tr, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(99), v)

	// Arithmetic on a non-contiguous view materializes correctly.
	dbl, err := tr.Add(tr)
	require.NoError(t, err)
	got, err := tensor.Data[float32](dbl)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 8, 198, 10, 6, 12}, got)
}

func TestReshape(t *testing.T) {
	b := cpu.New()

	x, err := tensor.Arange[int64](0, 6, b)
	require.NoError(t, err)

	r, err := x.Reshape(tensor.Shape{2, 3})
	require.NoError(t, err)
	// Contiguous reshape is a view: writes are shared.
	require.NoError(t, tensor.SetAt[int64](r, 42, 0, 0))
	v, err := tensor.At[int64](x, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = x.Reshape(tensor.Shape{4, 2})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}
