package webgpu_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-ml/karst/internal/backend/cpu"
	"github.com/karst-ml/karst/internal/backend/webgpu"
	"github.com/karst-ml/karst/internal/tensor"
)

// gpuBackend skips the test when no usable adapter is present, so the suite
// passes on CI machines without a GPU.
func gpuBackend(t *testing.T) *webgpu.Backend {
	t.Helper()
	if !webgpu.IsAvailable() {
		t.Skip("webgpu not available")
	}
	b, err := webgpu.New()
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

func TestUploadReadbackRoundTrip(t *testing.T) {
	gpu := gpuBackend(t)
	host := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, host)
	require.NoError(t, err)

	dev, err := x.To(gpu)
	require.NoError(t, err)
	assert.Equal(t, tensor.WebGPU, dev.Device().Kind)
	assert.Equal(t, x.Shape(), dev.Shape())

	back, err := dev.ToHost()
	require.NoError(t, err)
	got, err := tensor.Data[float32](back)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got)
}

func TestDeviceArithmetic(t *testing.T) {
	gpu := gpuBackend(t)

	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{4}, gpu)
	require.NoError(t, err)

	y, err := x.Add(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.WebGPU, y.Device().Kind, "results stay device-resident")

	back, err := y.ToHost()
	require.NoError(t, err)
	got, err := tensor.Data[float64](back)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8}, got)
}

func TestDeviceReduction(t *testing.T) {
	gpu := gpuBackend(t)

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, gpu)
	require.NoError(t, err)

	s, err := x.Sum([]int{1}, false)
	require.NoError(t, err)
	back, err := s.ToHost()
	require.NoError(t, err)
	got, err := tensor.Data[float32](back)
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 15}, got)
}

func TestInPlaceRejectedOnDevice(t *testing.T) {
	gpu := gpuBackend(t)

	x, err := tensor.FromSlice([]float64{1, 4}, tensor.Shape{2}, gpu)
	require.NoError(t, err)

	_, err = x.SqrtInPlace()
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	// The out-of-place form works and round-trips.
	y, err := x.Sqrt()
	require.NoError(t, err)
	back, err := y.ToHost()
	require.NoError(t, err)
	v, err := tensor.At[float64](back, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, math.SmallestNonzeroFloat64)
}

func TestMixedDeviceOperands(t *testing.T) {
	gpu := gpuBackend(t)
	host := cpu.New()

	h, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, host)
	require.NoError(t, err)
	d, err := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, gpu)
	require.NoError(t, err)

	_, err = h.Add(d)
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)
}

func TestStridedDeviceViewReadback(t *testing.T) {
	gpu := gpuBackend(t)

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, gpu)
	require.NoError(t, err)

	tr, err := x.T()
	require.NoError(t, err)
	back, err := tr.ToHost()
	require.NoError(t, err)
	require.True(t, back.IsContiguous(), "readback materializes the view")
	got, err := tensor.Data[float32](back)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, got)
}
