// Copyright 2026 Karst ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package neighbors exposes nearest-neighbor search over the rows of a 2D
// float tensor.
//
// An Index is created over an N x D dataset tensor and then built for one of
// three search modes before querying:
//
//	ix, _ := neighbors.NewIndex(points)
//	_ = ix.KnnIndex()
//	indices, distances, _ := ix.KnnSearch(queries, 8)
package neighbors

import (
	internalneighbors "github.com/karst-ml/karst/internal/neighbors"
	"github.com/karst-ml/karst/tensor"
)

// Index answers k-nearest, fixed-radius and hybrid neighbor queries.
type Index = internalneighbors.Index

// Options configures an Index.
type Options = internalneighbors.Options

// Option mutates Options.
type Option = internalneighbors.Option

// WithLogger sets the logger used for build diagnostics.
var WithLogger = internalneighbors.WithLogger

// WithMaxWorkers bounds the per-search goroutine fan-out.
var WithMaxWorkers = internalneighbors.WithMaxWorkers

// NewIndex creates an index over the rows of ref, an N x D tensor of
// Float32 or Float64. The rows are copied out immediately, so the index
// stays valid if ref is later mutated or released.
func NewIndex(ref *tensor.Tensor, opts ...Option) (*Index, error) {
	return internalneighbors.NewIndex(ref, opts...)
}
