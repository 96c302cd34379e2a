// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense tensor primitive:
// float64 multi-dimensional arrays with a lazy scalar prefactor, element
// access, contraction and the SVD/QR factorizations the tensor-train layer
// is built from.
//
// Example:
//
//	t, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
//	u := tensor.Ones(2, 3)
//	_ = t.Add(u)
package tensor

import (
	"math/rand"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// Tensor is a dense multi-dimensional float64 array with a scalar
// prefactor.
type Tensor = dense.Tensor

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = dense.Shape

// SVDOptions control truncation of a singular value decomposition.
type SVDOptions = dense.SVDOptions

// New creates a zero-initialized tensor with the given shape.
func New(shape ...int) *Tensor {
	return dense.New(shape...)
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	return dense.FromSlice(data, shape...)
}

// Scalar creates an order-0 tensor holding a single value.
func Scalar(v float64) *Tensor {
	return dense.Scalar(v)
}

// Ones creates a tensor filled with ones.
func Ones(shape ...int) *Tensor {
	return dense.Ones(shape...)
}

// Dirac creates a tensor with a single unit entry at the given position.
func Dirac(shape Shape, position ...int) *Tensor {
	return dense.Dirac(shape, position...)
}

// Randn creates a tensor with entries drawn from N(0, 1).
func Randn(rng *rand.Rand, shape ...int) *Tensor {
	return dense.Randn(rng, shape...)
}

// Contract sums over the last m axes of a and the first m axes of b. With
// m == 0 the result is the outer product.
func Contract(a, b *Tensor, m int) (*Tensor, error) {
	return dense.Contract(a, b, m)
}

// SVD computes a truncated singular value decomposition of the tensor
// unfolded into a matrix between axis splitPos-1 and splitPos.
func SVD(t *Tensor, splitPos int, opt SVDOptions) (u, s, vt *Tensor, rank int, err error) {
	return dense.SVD(t, splitPos, opt)
}

// QR computes a thin QR decomposition of the tensor unfolded between axis
// splitPos-1 and splitPos.
func QR(t *Tensor, splitPos int) (q, r *Tensor, err error) {
	return dense.QR(t, splitPos)
}

// LQ computes the mirrored decomposition T = L * Q with Q having
// orthonormal rows.
func LQ(t *Tensor, splitPos int) (l, q *Tensor, err error) {
	return dense.LQ(t, splitPos)
}
