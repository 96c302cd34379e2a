// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tt provides the public API for tensor-train chains: the TT-Tensor
// and TT-Operator representation of high-dimensional tensors as a chain of
// small components, with structure-preserving arithmetic, rank-truncating
// rounding and canonicalization.
//
// Example:
//
//	x, _ := tt.OnesTensor(3, 3, 3)
//	y, _ := tt.OnesTensor(3, 3, 3)
//	z, _ := tt.Add(x, y)
//	_ = z.Round(nil, 1e-12) // back to ranks (1, 1)
package tt

import (
	"math/rand"

	"github.com/trainkit-ml/trainkit/internal/tt"
	"github.com/trainkit-ml/trainkit/tensor"
)

// Network is a tensor-train chain, either a TT-Tensor (one external axis
// per component) or a TT-Operator (two).
type Network = tt.Network

// Sentinel errors of the tensor-train layer.
var (
	ErrInvalidArgument   = tt.ErrInvalidArgument
	ErrDimensionMismatch = tt.ErrDimensionMismatch
	ErrNumericFailure    = tt.ErrNumericFailure
	ErrUnsupported       = tt.ErrUnsupported
)

// FromDense decomposes a dense tensor into a TT-Tensor by a sweep of
// truncated SVDs. A nil maxRanks leaves the ranks uncapped; on each edge the
// singular values below eps times the largest are dropped, so the error of
// an edge can exceed eps times its norm when several values are dropped.
//
// Example:
//
//	t, _ := tensor.FromSlice(data, 2, 2, 2)
//	x, err := tt.FromDense(t, nil, 0)
func FromDense(t *tensor.Tensor, maxRanks []int, eps float64) (*Network, error) {
	return tt.FromDense(t, 1, maxRanks, eps)
}

// OperatorFromDense decomposes a dense tensor whose axes are all row
// dimensions followed by all column dimensions into a TT-Operator.
func OperatorFromDense(t *tensor.Tensor, maxRanks []int, eps float64) (*Network, error) {
	return tt.FromDense(t, 2, maxRanks, eps)
}

// ZeroTensor creates the zero TT-Tensor with the given dimensions.
func ZeroTensor(dims ...int) (*Network, error) {
	return tt.Zero(1, dims)
}

// ZeroOperator creates the zero TT-Operator with the given dimensions (rows
// followed by columns).
func ZeroOperator(dims ...int) (*Network, error) {
	return tt.Zero(2, dims)
}

// OnesTensor creates the all-ones TT-Tensor with the given dimensions. All
// virtual ranks are one.
func OnesTensor(dims ...int) (*Network, error) {
	return tt.Ones(1, dims)
}

// OnesOperator creates the all-ones TT-Operator with the given dimensions.
func OnesOperator(dims ...int) (*Network, error) {
	return tt.Ones(2, dims)
}

// IdentityOperator creates the identity TT-Operator with the given
// dimensions (rows followed by columns). All virtual ranks are one.
//
// Example:
//
//	identity, _ := tt.IdentityOperator(4, 4, 4, 4) // two-site identity
func IdentityOperator(dims ...int) (*Network, error) {
	return tt.Identity(dims)
}

// RandomTensor creates a TT-Tensor with the given rank tuple and components
// filled from N(0, 1), canonicalized with the core at component 0.
func RandomTensor(dims, ranks []int, rng *rand.Rand) (*Network, error) {
	return tt.Random(1, dims, ranks, rng)
}

// RandomOperator creates a TT-Operator with the given rank tuple and random
// components.
func RandomOperator(dims, ranks []int, rng *rand.Rand) (*Network, error) {
	return tt.Random(2, dims, ranks, rng)
}

// Add returns the sum of two chains. The ranks grow additively; rounding
// afterwards is the caller's responsibility.
func Add(a, b *Network) (*Network, error) {
	return tt.Add(a, b)
}

// Sub returns the difference of two chains.
func Sub(a, b *Network) (*Network, error) {
	return tt.Sub(a, b)
}

// Apply contracts a TT-Operator with a TT-Tensor (or another TT-Operator),
// materializing the product chain.
func Apply(a, b *Network) (*Network, error) {
	return tt.Apply(a, b)
}

// InnerProduct computes the Frobenius inner product of two chains.
func InnerProduct(a, b *Network) (float64, error) {
	return tt.InnerProduct(a, b)
}

// EntrywiseProduct computes the Hadamard product of two chains. The ranks
// multiply.
func EntrywiseProduct(a, b *Network) (*Network, error) {
	return tt.EntrywiseProduct(a, b)
}

// DyadicProduct concatenates two chains into the chain of their outer
// product.
func DyadicProduct(a, b *Network) (*Network, error) {
	return tt.DyadicProduct(a, b)
}

// ReduceToMaximalRanks clamps a rank tuple to the feasibility bounds
// implied by the external dimensions.
func ReduceToMaximalRanks(ranks []int, dims []int, isOperator bool) []int {
	return tt.ReduceToMaximalRanks(ranks, dims, isOperator)
}
