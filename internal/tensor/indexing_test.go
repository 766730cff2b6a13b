package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-ml/karst/internal/backend/cpu"
	"github.com/karst-ml/karst/internal/tensor"
)

// contiguousData materializes a (possibly strided) view and returns its
// elements in row-major order.
func contiguousData[T tensor.Elem](x *tensor.Tensor) ([]T, error) {
	c, err := x.Contiguous()
	if err != nil {
		return nil, err
	}
	return tensor.Data[T](c)
}

func arange2x3(t *testing.T, b tensor.Backend) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice([]float64{0, 1, 2, 3, 4, 5}, tensor.Shape{2, 3}, b)
	require.NoError(t, err)
	return x
}

func TestGetIndexReducesRank(t *testing.T) {
	b := cpu.New()
	x := arange2x3(t, b)

	row, err := x.Get(tensor.I(1))
	require.NoError(t, err)
	assert.True(t, row.Shape().Equal(tensor.Shape{3}))
	got, err := tensor.Data[float64](row)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, got)

	elem, err := x.Get(tensor.I(-1), tensor.I(-1))
	require.NoError(t, err)
	assert.True(t, elem.Shape().Equal(tensor.Shape{}))
	v, err := tensor.Item[float64](elem)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = x.Get(tensor.I(2))
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)
	_, err = x.Get(tensor.I(-3))
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)
}

func TestGetRangeKeepsRank(t *testing.T) {
	b := cpu.New()
	x := arange2x3(t, b)

	col, err := x.Get(tensor.All, tensor.R(1, 2))
	require.NoError(t, err)
	assert.True(t, col.Shape().Equal(tensor.Shape{2, 1}))
	cc, err := col.Contiguous()
	require.NoError(t, err)
	got, err := tensor.Data[float64](cc)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, got)

	// Out-of-range boundaries clamp instead of erroring.
	wide, err := x.Get(tensor.All, tensor.R(1, 100))
	require.NoError(t, err)
	assert.True(t, wide.Shape().Equal(tensor.Shape{2, 2}))

	empty, err := x.Get(tensor.All, tensor.R(2, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumElements())
}

func TestGetNegativeStep(t *testing.T) {
	b := cpu.New()
	x, err := tensor.Arange[int32](0, 6, b)
	require.NoError(t, err)

	rev, err := x.Get(tensor.RS(tensor.Auto, tensor.Auto, -1))
	require.NoError(t, err)
	got, err := contiguousData[int32](rev)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 4, 3, 2, 1, 0}, got)

	every2, err := x.Get(tensor.RS(4, tensor.Auto, -2))
	require.NoError(t, err)
	got, err = contiguousData[int32](every2)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 2, 0}, got)

	_, err = x.Get(tensor.RS(0, 3, 0))
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument, "zero step")
}

func TestGetReturnsView(t *testing.T) {
	b := cpu.New()
	x := arange2x3(t, b)

	row, err := x.Get(tensor.I(0))
	require.NoError(t, err)

	require.NoError(t, tensor.SetAt[float64](row, 99, 1))
	v, err := tensor.At[float64](x, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 99.0, v, "writes through a slice land in the owner")
}

func TestSetBroadcasts(t *testing.T) {
	b := cpu.New()
	x := arange2x3(t, b)

	fill, err := tensor.FromSlice([]float64{-1}, tensor.Shape{}, b)
	require.NoError(t, err)
	require.NoError(t, x.Set(fill, tensor.I(0)))

	got, err := tensor.Data[float64](x)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, -1, 3, 4, 5}, got)

	// A row broadcast into a strided column selection.
	col, err := tensor.FromSlice([]float64{7, 8}, tensor.Shape{2, 1}, b)
	require.NoError(t, err)
	require.NoError(t, x.Set(col, tensor.All, tensor.R(2, 3)))
	got, err = tensor.Data[float64](x)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, 7, 3, 4, 8}, got)

	wrong, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{4}, b)
	require.NoError(t, err)
	assert.ErrorIs(t, x.Set(wrong, tensor.I(0)), tensor.ErrShapeMismatch)

	i32, err := tensor.FromSlice([]int32{1}, tensor.Shape{}, b)
	require.NoError(t, err)
	assert.ErrorIs(t, x.Set(i32, tensor.I(0)), tensor.ErrDTypeMismatch)
}

func TestGetTooManySelectors(t *testing.T) {
	b := cpu.New()
	x := arange2x3(t, b)

	_, err := x.Get(tensor.I(0), tensor.I(0), tensor.I(0))
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}
