// Copyright 2026 Karst ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for karst's strided tensor engine.
//
// A Tensor is a dynamically typed n-dimensional array: its dtype and device
// are runtime attributes, slicing and transposition produce zero-copy views,
// and compute dispatches through a Backend owning the device's kernels.
//
// Example:
//
//	backend := cpu.New()
//	x, _ := tensor.FromData([][]float32{{1, 2}, {3, 4}}, backend)
//	row, _ := x.Get(tensor.I(0))          // view of the first row
//	sum, _ := x.Sum(nil, false)           // 0-d scalar tensor
//	v, _ := tensor.Item[float32](sum)
package tensor
