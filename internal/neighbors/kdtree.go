package neighbors

import "gonum.org/v1/gonum/spatial/kdtree"

// refPoint is one dataset row tagged with its original row index, so tree
// results can be reported as positions into the reference tensor.
type refPoint struct {
	vec kdtree.Point
	id  int64
}

func (p refPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(refPoint)
	return p.vec[d] - q.vec[d]
}

func (p refPoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance, gonum's kd-tree
// convention. Square roots are taken only when reporting results.
func (p refPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(refPoint)
	return p.vec.Distance(q.vec)
}

// refPoints implements kdtree.Interface for tree construction.
type refPoints []refPoint

func (p refPoints) Index(i int) kdtree.Comparable { return p[i] }

func (p refPoints) Len() int { return len(p) }

func (p refPoints) Pivot(d kdtree.Dim) int { return plane{refPoints: p, Dim: d}.Pivot() }

func (p refPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane is the hyperplane sorter kd-tree construction partitions with.
type plane struct {
	kdtree.Dim
	refPoints
}

func (p plane) Less(i, j int) bool {
	return p.refPoints[i].vec[p.Dim] < p.refPoints[j].vec[p.Dim]
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.refPoints = p.refPoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.refPoints[i], p.refPoints[j] = p.refPoints[j], p.refPoints[i]
}
