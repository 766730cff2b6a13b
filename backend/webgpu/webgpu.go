// Copyright 2026 Karst ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu exposes the WebGPU backend: tensors reside in GPU buffers
// and transfers go through wgpu staging buffers.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	x, _ := tensor.Rand[float32](tensor.Shape{1024, 3}, gpu)
package webgpu

import (
	internalwebgpu "github.com/karst-ml/karst/internal/backend/webgpu"
	"github.com/karst-ml/karst/tensor"
)

// Backend is the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a WebGPU backend on the default adapter. Call Release when
// done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (e.g. no compatible GPU
// or missing native library).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is usable on the current system. Useful for
// graceful fallback to the CPU backend:
//
//	var backend tensor.Backend = cpu.New()
//	if webgpu.IsAvailable() {
//	    backend, _ = webgpu.New()
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
