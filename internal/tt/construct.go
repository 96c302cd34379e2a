// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"fmt"
	"math/rand"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// checkExtDims validates an external dimension tuple for the given arity.
func checkExtDims(arity int, extDims []int) error {
	if len(extDims)%arity != 0 {
		return fmt.Errorf("%w: %d external dimensions for arity %d", ErrInvalidArgument, len(extDims), arity)
	}
	for _, d := range extDims {
		if d <= 0 {
			return fmt.Errorf("%w: external dimension %d", ErrInvalidArgument, d)
		}
	}
	return nil
}

// Zero creates the zero chain with the given external dimensions. For the
// operator variant extDims holds all row dimensions followed by all column
// dimensions.
func Zero(arity int, extDims []int) (*Network, error) {
	if err := checkExtDims(arity, extDims); err != nil {
		return nil, err
	}
	return newChain(arity, extDims), nil
}

// FromDense decomposes a dense tensor into a chain by a sweep of truncated
// SVDs. For the operator variant the input axes are all row dimensions
// followed by all column dimensions. A nil maxRanks leaves the ranks
// uncapped; on each edge the singular values below eps times the largest
// are dropped, so the error of an edge can exceed eps times its norm when
// several values are dropped. The result is canonical with the core at
// component 0.
func FromDense(t *dense.Tensor, arity int, maxRanks []int, eps float64) (*Network, error) {
	if err := checkExtDims(arity, t.Shape()); err != nil {
		return nil, err
	}
	if eps < 0 || eps >= 1 {
		return nil, fmt.Errorf("%w: eps must be in [0, 1), got %v", ErrInvalidArgument, eps)
	}
	numComponents := t.Degree() / arity
	if maxRanks == nil {
		if numComponents > 1 {
			maxRanks = make([]int, numComponents-1)
		}
	} else {
		if numRanks := max(numComponents-1, 0); len(maxRanks) != numRanks {
			return nil, fmt.Errorf("%w: need %d max ranks, got %d", ErrInvalidArgument, numRanks, len(maxRanks))
		}
		for _, r := range maxRanks {
			if r <= 0 {
				return nil, fmt.Errorf("%w: max ranks must be strictly positive", ErrInvalidArgument)
			}
		}
	}

	result := newChain(arity, t.Shape())
	if t.Degree() == 0 {
		result.comps[0] = t.Clone()
		return result, nil
	}

	remains := t.Clone()
	if arity == arityOperator {
		// Interleave row and column axes so each component's pair of
		// external axes is contiguous.
		perm := make([]int, t.Degree())
		for i := 0; i < numComponents; i++ {
			perm[2*i] = i
			perm[2*i+1] = numComponents + i
		}
		remains = remains.Transpose(perm...)
	}

	// Attach the rank-1 boundary axes.
	extended := make([]int, 0, remains.Degree()+2)
	extended = append(extended, 1)
	extended = append(extended, remains.Shape()...)
	extended = append(extended, 1)
	remains.Reinterpret(extended...)

	for pos := numComponents - 1; pos > 0; pos-- {
		u, s, vt, _, err := dense.SVD(remains, 1+pos*arity, dense.SVDOptions{
			MaxRank: maxRanks[pos-1],
			Epsilon: eps,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNumericFailure, err)
		}
		if err := result.SetComponent(pos, vt); err != nil {
			return nil, err
		}
		remains = dense.MustContract(u, s, 1)
	}
	if err := result.SetComponent(0, remains); err != nil {
		return nil, err
	}

	result.canonical = true
	result.corePos = 0
	return result, nil
}

// ToDense contracts the full chain into a dense tensor. For the operator
// variant the result's axes are all row dimensions followed by all column
// dimensions.
func (n *Network) ToDense() *dense.Tensor {
	if n.Degree() == 0 {
		return n.comps[0].Clone()
	}
	result := n.comps[0].Clone()
	for i := 1; i < n.NumComponents(); i++ {
		result = dense.MustContract(result, n.comps[i], 1)
	}
	// Drop the rank-1 boundary axes.
	result.Reinterpret(result.Shape()[1 : result.Degree()-1]...)

	if n.arity == arityOperator {
		numComponents := n.NumComponents()
		perm := make([]int, n.Degree())
		for i := 0; i < numComponents; i++ {
			perm[i] = 2 * i
			perm[numComponents+i] = 2*i + 1
		}
		result = result.Transpose(perm...)
	}
	return result.ApplyFactor()
}

// Ones creates the all-ones chain with the given external dimensions. All
// virtual ranks are one.
func Ones(arity int, extDims []int) (*Network, error) {
	if err := checkExtDims(arity, extDims); err != nil {
		return nil, err
	}
	if len(extDims) == 0 {
		n := newChain(arity, nil)
		n.comps[0] = dense.Scalar(1)
		return n, nil
	}
	n := newChain(arity, extDims)
	numComponents := n.NumComponents()
	for i := 0; i < numComponents; i++ {
		if arity == arityOperator {
			n.comps[i] = dense.Ones(1, extDims[i], extDims[numComponents+i], 1)
		} else {
			n.comps[i] = dense.Ones(1, extDims[i], 1)
		}
	}
	n.canonical = false
	if err := n.CanonicalizeLeft(); err != nil {
		return nil, err
	}
	return n, nil
}

// Identity creates the identity operator chain with the given external
// dimensions (rows followed by columns). All virtual ranks are one.
func Identity(extDims []int) (*Network, error) {
	if err := checkExtDims(arityOperator, extDims); err != nil {
		return nil, err
	}
	if len(extDims) == 0 {
		n := newChain(arityOperator, nil)
		n.comps[0] = dense.Scalar(1)
		return n, nil
	}
	n := newChain(arityOperator, extDims)
	numComponents := n.NumComponents()
	for i := 0; i < numComponents; i++ {
		comp := dense.New(1, extDims[i], extDims[numComponents+i], 1)
		diag := min(extDims[i], extDims[numComponents+i])
		for j := 0; j < diag; j++ {
			comp.Set(1, 0, j, j, 0)
		}
		n.comps[i] = comp
	}
	n.canonical = false
	if err := n.CanonicalizeLeft(); err != nil {
		return nil, err
	}
	return n, nil
}

// Random creates a chain with the given rank tuple and components filled
// from N(0, 1), canonicalized with the core at component 0. Ranks beyond
// their feasibility bound are clamped first.
func Random(arity int, extDims []int, ranks []int, rng *rand.Rand) (*Network, error) {
	if err := checkExtDims(arity, extDims); err != nil {
		return nil, err
	}
	numComponents := len(extDims) / arity
	if numRanks := max(numComponents-1, 0); len(ranks) != numRanks {
		return nil, fmt.Errorf("%w: need %d ranks, got %d", ErrInvalidArgument, numRanks, len(ranks))
	}
	for _, r := range ranks {
		if r <= 0 {
			return nil, fmt.Errorf("%w: ranks must be strictly positive", ErrInvalidArgument)
		}
	}
	if numComponents == 0 {
		n := newChain(arity, nil)
		n.comps[0] = dense.Scalar(rng.NormFloat64())
		return n, nil
	}

	ranks = reduceToMaximalRanks(ranks, extDims, arity)

	n := newChain(arity, extDims)
	for i := 0; i < numComponents; i++ {
		left, right := 1, 1
		if i > 0 {
			left = ranks[i-1]
		}
		if i+1 < numComponents {
			right = ranks[i]
		}
		if arity == arityOperator {
			n.comps[i] = dense.Randn(rng, left, extDims[i], extDims[numComponents+i], right)
		} else {
			n.comps[i] = dense.Randn(rng, left, extDims[i], right)
		}
	}
	n.canonical = false
	if err := n.CanonicalizeLeft(); err != nil {
		return nil, err
	}
	return n, nil
}
