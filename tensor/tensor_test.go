package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-ml/karst/backend/cpu"
	"github.com/karst-ml/karst/tensor"
)

func TestCreationHelpers(t *testing.T) {
	b := cpu.New()

	x, err := tensor.Zeros[float32](tensor.Shape{2, 3}, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, 6, x.NumElements())

	ones, err := tensor.Ones[int32](tensor.Shape{3}, b)
	require.NoError(t, err)
	got, err := tensor.Data[int32](ones)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 1, 1}, got)

	eye, err := tensor.Eye[float64](2, b)
	require.NoError(t, err)
	gotEye, err := tensor.Data[float64](eye)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 1}, gotEye)

	r, err := tensor.Rand[float64](tensor.Shape{100}, b)
	require.NoError(t, err)
	gotR, err := tensor.Data[float64](r)
	require.NoError(t, err)
	for _, v := range gotR {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestEndToEnd(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromData([][]float64{{1, 2, 3}, {4, 5, 6}}, b)
	require.NoError(t, err)

	// Slice out the second row, square it in place, sum the tensor.
	row, err := x.Get(tensor.I(1))
	require.NoError(t, err)
	sq, err := row.Mul(row)
	require.NoError(t, err)
	require.NoError(t, x.Set(sq, tensor.I(1)))

	total, err := x.Sum(nil, false)
	require.NoError(t, err)
	v, err := tensor.Item[float64](total)
	require.NoError(t, err)
	assert.Equal(t, 1.0+2+3+16+25+36, v)
}

func TestFromDataAs(t *testing.T) {
	b := cpu.New()

	x, err := tensor.FromDataAs([]float64{1.7, -2.7}, tensor.Int32, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Int32, x.DType())
	got, err := tensor.Data[int32](x)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, -2}, got)
}
