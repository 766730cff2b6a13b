// Copyright 2026 Karst ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the pure-Go host backend.
package cpu

import (
	internalcpu "github.com/karst-ml/karst/internal/backend/cpu"
	"github.com/karst-ml/karst/tensor"
)

// Backend executes kernels on host memory.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend with default parallelism.
//
// Example:
//
//	backend := cpu.New()
//	x, _ := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that never spawns worker goroutines.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
