package neighbors

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/karst-ml/karst/internal/tensor"
)

// hit is one search result: a dataset row index and its squared distance.
type hit struct {
	id   int64
	dist float64
}

// collectHits extracts real results from a keeper heap (the keeper's initial
// placeholder has a nil Comparable) and sorts them ascending by distance,
// row index breaking ties.
func collectHits(heap []kdtree.ComparableDist) []hit {
	hits := make([]hit, 0, len(heap))
	for _, c := range heap {
		if c.Comparable == nil {
			continue
		}
		hits = append(hits, hit{id: c.Comparable.(refPoint).id, dist: c.Dist})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].id < hits[j].id
	})
	return hits
}

// KnnSearch finds the k nearest dataset rows for each query row. It returns
// M x k Int64 indices and M x k distances in the dataset's dtype. When the
// dataset holds fewer than k rows, the remainder is padded with index -1 and
// distance +Inf. Requires a prior KnnIndex build.
func (ix *Index) KnnSearch(query *tensor.Tensor, k int) (indices, distances *tensor.Tensor, err error) {
	if k < 1 {
		return nil, nil, fmt.Errorf("%w: k must be at least 1, got %d", tensor.ErrInvalidArgument, k)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if err := ix.checkMode(modeKnn); err != nil {
		return nil, nil, err
	}
	if err := ix.checkQuery(query); err != nil {
		return nil, nil, err
	}
	rows, err := tensorRows(query)
	if err != nil {
		return nil, nil, err
	}

	m := len(rows)
	idx := make([]int64, m*k)
	dst := make([]float64, m*k)
	for i := range idx {
		idx[i] = -1
		dst[i] = math.Inf(1)
	}

	var g errgroup.Group
	g.SetLimit(ix.maxWorkers)
	for qi := range rows {
		g.Go(func() error {
			if ix.n == 0 {
				return nil
			}
			keep := kdtree.NewNKeeper(k)
			ix.tree.NearestSet(keep, refPoint{vec: rows[qi], id: -1})
			for j, h := range collectHits(keep.Heap) {
				idx[qi*k+j] = h.id
				dst[qi*k+j] = math.Sqrt(h.dist)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	indices, err = tensor.FromSlice(idx, tensor.Shape{m, k}, ix.backend)
	if err != nil {
		return nil, nil, err
	}
	distances, err = ix.distanceTensor(dst, tensor.Shape{m, k})
	if err != nil {
		return nil, nil, err
	}
	return indices, distances, nil
}

// FixedRadiusSearch finds all dataset rows within the built radius of each
// query row, inclusive of the boundary. radius must equal the radius passed
// to FixedRadiusIndex. Results are ragged, returned in CSR convention: flat
// indices, flat distances, and an Int64 splits tensor of length M+1 where
// query q's results occupy [splits[q], splits[q+1]). Per-query results are
// sorted ascending by distance.
func (ix *Index) FixedRadiusSearch(query *tensor.Tensor, radius float64) (indices, distances, splits *tensor.Tensor, err error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if err := ix.checkMode(modeRadius); err != nil {
		return nil, nil, nil, err
	}
	if radius != ix.radius {
		return nil, nil, nil, fmt.Errorf("%w: search radius %v does not match built radius %v",
			tensor.ErrInvalidArgument, radius, ix.radius)
	}
	if err := ix.checkQuery(query); err != nil {
		return nil, nil, nil, err
	}
	rows, err := tensorRows(query)
	if err != nil {
		return nil, nil, nil, err
	}

	m := len(rows)
	perQuery, err := ix.radiusHits(rows)
	if err != nil {
		return nil, nil, nil, err
	}

	splitsData := make([]int64, m+1)
	total := 0
	for qi, hits := range perQuery {
		total += len(hits)
		splitsData[qi+1] = int64(total)
	}
	idx := make([]int64, 0, total)
	dst := make([]float64, 0, total)
	for _, hits := range perQuery {
		for _, h := range hits {
			idx = append(idx, h.id)
			dst = append(dst, math.Sqrt(h.dist))
		}
	}

	indices, err = tensor.FromSlice(idx, tensor.Shape{total}, ix.backend)
	if err != nil {
		return nil, nil, nil, err
	}
	distances, err = ix.distanceTensor(dst, tensor.Shape{total})
	if err != nil {
		return nil, nil, nil, err
	}
	splits, err = tensor.FromSlice(splitsData, tensor.Shape{m + 1}, ix.backend)
	if err != nil {
		return nil, nil, nil, err
	}
	return indices, distances, splits, nil
}

// HybridSearch finds up to maxKNN dataset rows within the built radius of
// each query row. radius must equal the radius passed to HybridIndex. It
// returns M x maxKNN Int64 indices and distances padded with -1 / +Inf, plus
// an M-length Int64 tensor of per-query result counts.
func (ix *Index) HybridSearch(query *tensor.Tensor, radius float64, maxKNN int) (indices, distances, counts *tensor.Tensor, err error) {
	if maxKNN < 1 {
		return nil, nil, nil, fmt.Errorf("%w: maxKNN must be at least 1, got %d", tensor.ErrInvalidArgument, maxKNN)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if err := ix.checkMode(modeHybrid); err != nil {
		return nil, nil, nil, err
	}
	if radius != ix.radius {
		return nil, nil, nil, fmt.Errorf("%w: search radius %v does not match built radius %v",
			tensor.ErrInvalidArgument, radius, ix.radius)
	}
	if err := ix.checkQuery(query); err != nil {
		return nil, nil, nil, err
	}
	rows, err := tensorRows(query)
	if err != nil {
		return nil, nil, nil, err
	}

	m := len(rows)
	perQuery, err := ix.radiusHits(rows)
	if err != nil {
		return nil, nil, nil, err
	}

	idx := make([]int64, m*maxKNN)
	dst := make([]float64, m*maxKNN)
	cnt := make([]int64, m)
	for i := range idx {
		idx[i] = -1
		dst[i] = math.Inf(1)
	}
	for qi, hits := range perQuery {
		if len(hits) > maxKNN {
			hits = hits[:maxKNN]
		}
		cnt[qi] = int64(len(hits))
		for j, h := range hits {
			idx[qi*maxKNN+j] = h.id
			dst[qi*maxKNN+j] = math.Sqrt(h.dist)
		}
	}

	indices, err = tensor.FromSlice(idx, tensor.Shape{m, maxKNN}, ix.backend)
	if err != nil {
		return nil, nil, nil, err
	}
	distances, err = ix.distanceTensor(dst, tensor.Shape{m, maxKNN})
	if err != nil {
		return nil, nil, nil, err
	}
	counts, err = tensor.FromSlice(cnt, tensor.Shape{m}, ix.backend)
	if err != nil {
		return nil, nil, nil, err
	}
	return indices, distances, counts, nil
}

// radiusHits runs a within-radius query for every row, fanned out across
// workers. Distances are compared squared; the keeper bound is radius^2.
func (ix *Index) radiusHits(rows []kdtree.Point) ([][]hit, error) {
	perQuery := make([][]hit, len(rows))
	bound := ix.radius * ix.radius

	var g errgroup.Group
	g.SetLimit(ix.maxWorkers)
	for qi := range rows {
		g.Go(func() error {
			if ix.n == 0 {
				return nil
			}
			keep := kdtree.NewDistKeeper(bound)
			ix.tree.NearestSet(keep, refPoint{vec: rows[qi], id: -1})
			perQuery[qi] = collectHits(keep.Heap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perQuery, nil
}

// distanceTensor materializes reported distances in the dataset's dtype on
// the dataset's backend.
func (ix *Index) distanceTensor(data []float64, shape tensor.Shape) (*tensor.Tensor, error) {
	if ix.dtype == tensor.Float32 {
		v := make([]float32, len(data))
		for i, x := range data {
			v[i] = float32(x)
		}
		return tensor.FromSlice(v, shape, ix.backend)
	}
	return tensor.FromSlice(data, shape, ix.backend)
}
