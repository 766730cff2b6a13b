package neighbors_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-ml/karst/internal/backend/cpu"
	"github.com/karst-ml/karst/internal/neighbors"
	"github.com/karst-ml/karst/internal/tensor"
)

// unitSquare is four corners plus the origin duplicated, in 2D.
func unitSquare(t *testing.T, b tensor.Backend) *tensor.Tensor {
	t.Helper()
	pts, err := tensor.FromSlice([]float64{
		0, 0, // 0
		1, 0, // 1
		0, 1, // 2
		1, 1, // 3
		0, 0, // 4: coincides with row 0
	}, tensor.Shape{5, 2}, b)
	require.NoError(t, err)
	return pts
}

func queryAt(t *testing.T, b tensor.Backend, coords ...float64) *tensor.Tensor {
	t.Helper()
	q, err := tensor.FromSlice(coords, tensor.Shape{len(coords) / 2, 2}, b)
	require.NoError(t, err)
	return q
}

func TestNewIndexValidation(t *testing.T) {
	b := cpu.New()

	flat, err := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3}, b)
	require.NoError(t, err)
	_, err = neighbors.NewIndex(flat)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	ints, err := tensor.FromSlice([]int64{1, 2, 3, 4}, tensor.Shape{2, 2}, b)
	require.NoError(t, err)
	_, err = neighbors.NewIndex(ints)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestIndexCopiesDataset(t *testing.T) {
	b := cpu.New()
	pts := unitSquare(t, b)

	ix, err := neighbors.NewIndex(pts)
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	// Mutating the dataset after construction must not affect results.
	require.NoError(t, tensor.SetAt[float64](pts, 100, 1, 0))

	q := queryAt(t, b, 0.9, 0.1)
	idx, _, err := ix.KnnSearch(q, 1)
	require.NoError(t, err)
	got, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got, "row 1 still at its original position")
}

func TestKnnSearch(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b))
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	q := queryAt(t, b, 0.1, 0.1, 0.9, 0.9)
	idx, dst, err := ix.KnnSearch(q, 3)
	require.NoError(t, err)

	assert.True(t, idx.Shape().Equal(tensor.Shape{2, 3}))
	assert.True(t, dst.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, tensor.Int64, idx.DType())
	assert.Equal(t, tensor.Float64, dst.DType())

	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	gotDst, err := tensor.Data[float64](dst)
	require.NoError(t, err)

	// Near the origin: the two coincident origin rows first (id order breaks
	// the tie), then either axis corner.
	assert.Equal(t, []int64{0, 4}, gotIdx[:2])
	// Near (1,1): corner 3, then corners 1 and 2 (equidistant, id order).
	assert.Equal(t, []int64{3, 1, 2}, gotIdx[3:])

	// Distances are Euclidean (not squared) and ascending per query.
	assert.InDelta(t, math.Sqrt(0.02), gotDst[0], 1e-12)
	assert.InDelta(t, math.Sqrt(0.02), gotDst[3], 1e-12)
	for q := 0; q < 2; q++ {
		for j := 1; j < 3; j++ {
			assert.GreaterOrEqual(t, gotDst[q*3+j], gotDst[q*3+j-1])
		}
	}
}

func TestKnnSearchPadding(t *testing.T) {
	b := cpu.New()
	pts := queryAt(t, b, 0, 0, 1, 1) // 2-point dataset
	ix, err := neighbors.NewIndex(pts)
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	idx, dst, err := ix.KnnSearch(queryAt(t, b, 0, 0), 5)
	require.NoError(t, err)

	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	gotDst, err := tensor.Data[float64](dst)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, -1, -1, -1}, gotIdx)
	assert.Equal(t, 0.0, gotDst[0])
	for _, d := range gotDst[2:] {
		assert.True(t, math.IsInf(d, 1), "padded slots carry +Inf")
	}

	_, _, err = ix.KnnSearch(queryAt(t, b, 0, 0), 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestKnnSearchEmptyDataset(t *testing.T) {
	b := cpu.New()
	empty, err := tensor.Zeros[float64](tensor.Shape{0, 2}, b)
	require.NoError(t, err)
	ix, err := neighbors.NewIndex(empty)
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	idx, dst, err := ix.KnnSearch(queryAt(t, b, 0, 0), 2)
	require.NoError(t, err)
	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, -1}, gotIdx)
	gotDst, err := tensor.Data[float64](dst)
	require.NoError(t, err)
	assert.True(t, math.IsInf(gotDst[0], 1))
}

func TestFixedRadiusSearch(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b))
	require.NoError(t, err)
	require.NoError(t, ix.FixedRadiusIndex(1.0))

	// Query 0 sits on the duplicated origin; query 1 is out of range of
	// everything.
	q := queryAt(t, b, 0, 0, 5, 5)
	idx, dst, splits, err := ix.FixedRadiusSearch(q, 1.0)
	require.NoError(t, err)

	gotSplits, err := tensor.Data[int64](splits)
	require.NoError(t, err)
	require.Len(t, gotSplits, 3, "splits has M+1 entries")
	assert.Equal(t, int64(0), gotSplits[0])
	assert.Equal(t, []int64{0, 4, 4}, gotSplits, "boundary hits at exactly radius 1 are included")

	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	gotDst, err := tensor.Data[float64](dst)
	require.NoError(t, err)

	// Coincident rows 0 and 4 at distance zero (id order), then the two
	// corners at exactly the radius.
	assert.Equal(t, []int64{0, 4, 1, 2}, gotIdx)
	assert.Equal(t, 0.0, gotDst[0])
	assert.Equal(t, 0.0, gotDst[1])
	assert.InDelta(t, 1.0, gotDst[2], 1e-12)
	for j := 1; j < len(gotDst); j++ {
		assert.GreaterOrEqual(t, gotDst[j], gotDst[j-1], "per-query distances ascend")
	}
}

func TestFixedRadiusSearchRadiusMustMatch(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b))
	require.NoError(t, err)
	require.NoError(t, ix.FixedRadiusIndex(1.0))

	_, _, _, err = ix.FixedRadiusSearch(queryAt(t, b, 0, 0), 2.0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	assert.ErrorIs(t, ix.FixedRadiusIndex(-1), tensor.ErrInvalidArgument)
}

func TestHybridSearch(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b))
	require.NoError(t, err)
	require.NoError(t, ix.HybridIndex(1.5))

	q := queryAt(t, b, 0, 0)
	idx, dst, counts, err := ix.HybridSearch(q, 1.5, 3)
	require.NoError(t, err)

	gotCnt, err := tensor.Data[int64](counts)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, gotCnt, "five rows in range, capped at maxKNN")

	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 4, 1}, gotIdx, "nearest three kept after the cap")

	gotDst, err := tensor.Data[float64](dst)
	require.NoError(t, err)
	for _, d := range gotDst {
		assert.LessOrEqual(t, d, 1.5)
	}

	// A distant query pads the whole row.
	far := queryAt(t, b, 50, 50)
	idx, dst, counts, err = ix.HybridSearch(far, 1.5, 2)
	require.NoError(t, err)
	gotCnt, err = tensor.Data[int64](counts)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, gotCnt)
	gotIdx, err = tensor.Data[int64](idx)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, -1}, gotIdx)
	gotDst, err = tensor.Data[float64](dst)
	require.NoError(t, err)
	assert.True(t, math.IsInf(gotDst[0], 1))

	_, _, _, err = ix.HybridSearch(q, 1.5, 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestSearchModeStateMachine(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b))
	require.NoError(t, err)
	q := queryAt(t, b, 0, 0)

	// Nothing built yet.
	_, _, err = ix.KnnSearch(q, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
	_, _, _, err = ix.FixedRadiusSearch(q, 1.0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
	_, _, _, err = ix.HybridSearch(q, 1.0, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	// Building one mode does not enable the others.
	require.NoError(t, ix.KnnIndex())
	_, _, _, err = ix.FixedRadiusSearch(q, 1.0)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	// Rebuilding switches modes.
	require.NoError(t, ix.FixedRadiusIndex(1.0))
	_, _, err = ix.KnnSearch(q, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
	_, _, _, err = ix.FixedRadiusSearch(q, 1.0)
	assert.NoError(t, err)
}

func TestQueryValidation(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b))
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	flat, err := tensor.FromSlice([]float64{0, 0}, tensor.Shape{2}, b)
	require.NoError(t, err)
	_, _, err = ix.KnnSearch(flat, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	wrongDims, err := tensor.FromSlice([]float64{0, 0, 0}, tensor.Shape{1, 3}, b)
	require.NoError(t, err)
	_, _, err = ix.KnnSearch(wrongDims, 1)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	f32, err := tensor.FromSlice([]float32{0, 0}, tensor.Shape{1, 2}, b)
	require.NoError(t, err)
	_, _, err = ix.KnnSearch(f32, 1)
	assert.ErrorIs(t, err, tensor.ErrDTypeMismatch)
}

func TestFloat32Dataset(t *testing.T) {
	b := cpu.New()
	pts, err := tensor.FromSlice([]float32{0, 0, 3, 4}, tensor.Shape{2, 2}, b)
	require.NoError(t, err)
	ix, err := neighbors.NewIndex(pts, neighbors.WithMaxWorkers(1))
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	q, err := tensor.FromSlice([]float32{0, 0}, tensor.Shape{1, 2}, b)
	require.NoError(t, err)
	idx, dst, err := ix.KnnSearch(q, 2)
	require.NoError(t, err)

	assert.Equal(t, tensor.Float32, dst.DType(), "distances match the dataset dtype")
	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, gotIdx)
	gotDst, err := tensor.Data[float32](dst)
	require.NoError(t, err)
	assert.Equal(t, float32(0), gotDst[0])
	assert.InDelta(t, 5.0, float64(gotDst[1]), 1e-6, "3-4-5 triangle")
}

func TestConcurrentSearches(t *testing.T) {
	b := cpu.New()
	ix, err := neighbors.NewIndex(unitSquare(t, b), neighbors.WithMaxWorkers(4))
	require.NoError(t, err)
	require.NoError(t, ix.KnnIndex())

	// Many queries in one call exercise the worker fan-out; results stay
	// ordered per query row regardless of completion order.
	coords := make([]float64, 0, 200)
	for i := 0; i < 100; i++ {
		coords = append(coords, float64(i%3)*0.4, float64(i%5)*0.2)
	}
	q := queryAt(t, b, coords...)

	idx, _, err := ix.KnnSearch(q, 1)
	require.NoError(t, err)
	gotIdx, err := tensor.Data[int64](idx)
	require.NoError(t, err)
	for i, id := range gotIdx {
		assert.GreaterOrEqual(t, id, int64(0), "query %d", i)
		assert.Less(t, id, int64(5))
	}
}
