// Package neighbors implements nearest-neighbor search over the rows of a
// 2D float tensor: k-nearest, fixed-radius and hybrid (radius-capped knn)
// queries against a kd-tree.
package neighbors

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/karst-ml/karst/internal/tensor"
)

type mode int

const (
	modeNone mode = iota
	modeKnn
	modeRadius
	modeHybrid
)

func (m mode) String() string {
	switch m {
	case modeKnn:
		return "knn"
	case modeRadius:
		return "fixed_radius"
	case modeHybrid:
		return "hybrid"
	default:
		return "unbuilt"
	}
}

// Options configures an Index.
type Options struct {
	// Logger receives build and search diagnostics at Debug level.
	Logger *slog.Logger
	// MaxWorkers bounds the per-query search fan-out. Defaults to
	// GOMAXPROCS.
	MaxWorkers int
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMaxWorkers bounds the number of goroutines used per search call.
func WithMaxWorkers(n int) Option {
	return func(o *Options) { o.MaxWorkers = n }
}

// Index answers nearest-neighbor queries against the rows of a reference
// tensor. An index must be built for a search mode before that mode can be
// queried: KnnIndex enables KnnSearch, FixedRadiusIndex enables
// FixedRadiusSearch, HybridIndex enables HybridSearch. Builds and searches
// are serialized under a single-writer lock, so concurrent searches are safe
// while no build is in flight.
type Index struct {
	mu sync.RWMutex

	backend tensor.Backend
	device  tensor.Device
	dtype   tensor.DataType
	n, dims int

	pts  refPoints
	tree *kdtree.Tree

	mode   mode
	radius float64

	logger     *slog.Logger
	maxWorkers int
}

// NewIndex creates an index over the rows of ref, an N x D tensor of
// Float32 or Float64. The rows are copied to the host immediately, so the
// index stays valid if ref is later mutated or released.
func NewIndex(ref *tensor.Tensor, opts ...Option) (*Index, error) {
	o := Options{
		Logger:     slog.New(slog.DiscardHandler),
		MaxWorkers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxWorkers < 1 {
		o.MaxWorkers = 1
	}

	shape := ref.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: dataset must be 2D (N x D), got shape %v", tensor.ErrInvalidArgument, shape)
	}
	if dt := ref.DType(); dt != tensor.Float32 && dt != tensor.Float64 {
		return nil, fmt.Errorf("%w: dataset must be Float32 or Float64, got %s", tensor.ErrInvalidArgument, dt)
	}

	rows, err := tensorRows(ref)
	if err != nil {
		return nil, err
	}
	pts := make(refPoints, len(rows))
	for i, row := range rows {
		pts[i] = refPoint{vec: row, id: int64(i)}
	}

	return &Index{
		backend:    ref.Backend(),
		device:     ref.Device(),
		dtype:      ref.DType(),
		n:          shape[0],
		dims:       shape[1],
		pts:        pts,
		logger:     o.Logger,
		maxWorkers: o.MaxWorkers,
	}, nil
}

// KnnIndex builds the index for k-nearest-neighbor queries.
func (ix *Index) KnnIndex() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buildTree()
	ix.mode = modeKnn
	ix.radius = 0
	return nil
}

// FixedRadiusIndex builds the index for fixed-radius queries. Searches must
// pass the same radius.
func (ix *Index) FixedRadiusIndex(radius float64) error {
	if radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", tensor.ErrInvalidArgument, radius)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buildTree()
	ix.mode = modeRadius
	ix.radius = radius
	return nil
}

// HybridIndex builds the index for hybrid (radius-capped knn) queries.
// Searches must pass the same radius.
func (ix *Index) HybridIndex(radius float64) error {
	if radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", tensor.ErrInvalidArgument, radius)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buildTree()
	ix.mode = modeHybrid
	ix.radius = radius
	return nil
}

// buildTree constructs the kd-tree on first use; rebuilds reuse it since the
// tree does not depend on the search mode. Callers hold the write lock.
func (ix *Index) buildTree() {
	if ix.tree != nil {
		return
	}
	start := time.Now()
	ix.tree = kdtree.New(ix.pts, false)
	ix.logger.Debug("kd-tree built",
		"points", ix.n,
		"dims", ix.dims,
		"elapsed", time.Since(start))
}

// checkMode validates the built state under the read lock.
func (ix *Index) checkMode(want mode) error {
	if ix.mode != want {
		return fmt.Errorf("%w: %s index not built (current state: %s)", tensor.ErrInvalidArgument, want, ix.mode)
	}
	return nil
}

// checkQuery validates a query tensor against the reference.
func (ix *Index) checkQuery(query *tensor.Tensor) error {
	shape := query.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("%w: query must be 2D (M x D), got shape %v", tensor.ErrInvalidArgument, shape)
	}
	if shape[1] != ix.dims {
		return fmt.Errorf("%w: query has %d dims, dataset has %d", tensor.ErrShapeMismatch, shape[1], ix.dims)
	}
	if query.DType() != ix.dtype {
		return fmt.Errorf("%w: query is %s, dataset is %s", tensor.ErrDTypeMismatch, query.DType(), ix.dtype)
	}
	if query.Device() != ix.device {
		return fmt.Errorf("%w: query on %s, dataset on %s", tensor.ErrDeviceMismatch, query.Device(), ix.device)
	}
	return nil
}

// tensorRows stages a 2D float tensor to the host and copies its rows out
// as float64 vectors.
func tensorRows(t *tensor.Tensor) ([]kdtree.Point, error) {
	host, err := t.ToHost()
	if err != nil {
		return nil, err
	}
	defer host.Release()

	shape := host.Shape()
	n, d := shape[0], shape[1]
	rows := make([]kdtree.Point, n)

	switch host.DType() {
	case tensor.Float32:
		v, err := tensor.Data[float32](host)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			row := make(kdtree.Point, d)
			for j := 0; j < d; j++ {
				row[j] = float64(v[i*d+j])
			}
			rows[i] = row
		}
	case tensor.Float64:
		v, err := tensor.Data[float64](host)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			rows[i] = kdtree.Point(append([]float64(nil), v[i*d:(i+1)*d]...))
		}
	default:
		return nil, fmt.Errorf("%w: expected a float tensor, got %s", tensor.ErrInvalidArgument, host.DType())
	}
	return rows, nil
}
