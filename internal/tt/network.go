// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tt implements the tensor-train chain: an order-K tensor (or linear
// operator) represented as a sequence of small order-3 (order-4) components
// linked by virtual ranks, together with the canonicalization, rounding and
// arithmetic operations that preserve the chain structure.
//
// A chain for an order-K tensor consists of components C_i of shape
// (r_{i-1}, n_i, r_i) with boundary ranks r_0 = r_K = 1; the represented
// tensor is the product of the component slices:
//
//	T[i_1,...,i_K] = C_1[:,i_1,:] * C_2[:,i_2,:] * ... * C_K[:,i_K,:]
//
// The operator variant carries two external axes per component. Both
// variants share the Network type, distinguished by the number of external
// axes per component.
package tt

import (
	"fmt"
	"math"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// Arity of the two chain variants: external axes per component.
const (
	arityTensor   = 1
	arityOperator = 2
)

// Network is a tensor-train chain. The zero value is not usable; chains are
// created by the package constructors or by arithmetic on existing chains.
//
// A Network may be in canonical form: all components left of the core are
// left-orthogonal, all components right of it right-orthogonal, and only the
// core may carry a non-unit scalar prefactor.
type Network struct {
	comps []*dense.Tensor
	dims  []int // external dimensions: rows, then (operator only) columns
	arity int

	canonical bool
	corePos   int
}

// newChain creates a rank-one chain of the given arity with zero-filled
// components matching the external dimensions. A chain over no dimensions is
// the scalar zero.
func newChain(arity int, extDims []int) *Network {
	n := &Network{
		dims:      append([]int(nil), extDims...),
		arity:     arity,
		canonical: true,
		corePos:   0,
	}
	numComponents := len(extDims) / arity
	if numComponents == 0 {
		n.comps = []*dense.Tensor{dense.New()}
		return n
	}
	n.comps = make([]*dense.Tensor, numComponents)
	for i := 0; i < numComponents; i++ {
		if arity == arityOperator {
			n.comps[i] = dense.New(1, extDims[i], extDims[numComponents+i], 1)
		} else {
			n.comps[i] = dense.New(1, extDims[i], 1)
		}
	}
	return n
}

// Degree returns the number of external indices of the represented tensor.
func (n *Network) Degree() int {
	return len(n.dims)
}

// NumComponents returns the number of components in the chain.
func (n *Network) NumComponents() int {
	return len(n.dims) / n.arity
}

// IsOperator reports whether the chain represents a linear operator.
func (n *Network) IsOperator() bool {
	return n.arity == arityOperator
}

// Dims returns the external dimensions: all row dimensions, followed by all
// column dimensions for the operator variant.
func (n *Network) Dims() []int {
	return append([]int(nil), n.dims...)
}

// RowDims returns the external row dimensions.
func (n *Network) RowDims() []int {
	return append([]int(nil), n.dims[:n.NumComponents()]...)
}

// ColDims returns the external column dimensions of an operator chain.
func (n *Network) ColDims() []int {
	return append([]int(nil), n.dims[n.NumComponents():]...)
}

// IsCanonical reports whether the chain is in canonical form and, if so, the
// core position.
func (n *Network) IsCanonical() (bool, int) {
	return n.canonical, n.corePos
}

// Component returns the i-th component. The returned tensor is owned by the
// chain; mutating it directly invalidates the canonical marker, use
// SetComponent for structured updates.
func (n *Network) Component(i int) *dense.Tensor {
	if n.Degree() == 0 {
		if i != 0 {
			panic(fmt.Sprintf("component index %d out of range for scalar chain", i))
		}
		return n.comps[0]
	}
	if i < 0 || i >= n.NumComponents() {
		panic(fmt.Sprintf("component index %d out of range [0, %d)", i, n.NumComponents()))
	}
	return n.comps[i]
}

// SetComponent replaces the i-th component. The external dimensions of the
// chain are updated from the new component; the canonical marker survives
// only if the replaced component is the core.
func (n *Network) SetComponent(i int, t *dense.Tensor) error {
	if n.Degree() == 0 {
		if i != 0 {
			return fmt.Errorf("%w: component index %d for scalar chain", ErrInvalidArgument, i)
		}
		if t.Degree() != 0 {
			return fmt.Errorf("%w: scalar chain component must have degree 0, got %d", ErrInvalidArgument, t.Degree())
		}
		n.comps[0] = t
		return nil
	}
	if i < 0 || i >= n.NumComponents() {
		return fmt.Errorf("%w: component index %d out of range [0, %d)", ErrInvalidArgument, i, n.NumComponents())
	}
	if t.Degree() != n.arity+2 {
		return fmt.Errorf("%w: component must have degree %d, got %d", ErrInvalidArgument, n.arity+2, t.Degree())
	}
	n.comps[i] = t
	n.dims[i] = t.Dim(1)
	if n.arity == arityOperator {
		n.dims[n.NumComponents()+i] = t.Dim(2)
	}
	n.canonical = n.canonical && n.corePos == i
	return nil
}

// Ranks returns the virtual ranks between adjacent components.
func (n *Network) Ranks() []int {
	numComponents := n.NumComponents()
	if numComponents == 0 {
		return nil
	}
	ranks := make([]int, numComponents-1)
	for i := 0; i+1 < numComponents; i++ {
		ranks[i] = n.comps[i].Dim(-1)
	}
	return ranks
}

// Rank returns the i-th virtual rank.
func (n *Network) Rank(i int) int {
	if i < 0 || i+1 >= n.NumComponents() {
		panic(fmt.Sprintf("rank index %d out of range [0, %d)", i, n.NumComponents()-1))
	}
	return n.comps[i].Dim(-1)
}

// Datasize returns the total number of stored entries across all components.
func (n *Network) Datasize() int {
	total := 0
	for _, c := range n.comps {
		total += c.Size()
	}
	return total
}

// Clone creates a deep copy of the chain.
func (n *Network) Clone() *Network {
	c := &Network{
		comps:     make([]*dense.Tensor, len(n.comps)),
		dims:      append([]int(nil), n.dims...),
		arity:     n.arity,
		canonical: n.canonical,
		corePos:   n.corePos,
	}
	for i, comp := range n.comps {
		c.comps[i] = comp.Clone()
	}
	return c
}

// At evaluates a single entry of the represented tensor. The number of
// indices must match the degree; operator chains take all row indices
// followed by all column indices.
func (n *Network) At(indices ...int) float64 {
	if len(indices) != n.Degree() {
		panic(fmt.Sprintf("expected %d indices, got %d", n.Degree(), len(indices)))
	}
	if n.Degree() == 0 {
		return n.comps[0].AtFlat(0)
	}
	numComponents := n.NumComponents()
	v := dense.Ones(1)
	for c := 0; c < numComponents; c++ {
		slab := n.comps[c].FixAxis(1, indices[c])
		if n.arity == arityOperator {
			slab = slab.FixAxis(1, indices[numComponents+c])
		}
		v = dense.MustContract(v, slab, 1)
	}
	return v.AtFlat(0)
}

// AtFlat evaluates the entry at a flat row-major position over the external
// dimensions (row dimensions first for operators).
func (n *Network) AtFlat(position int) float64 {
	indices := make([]int, n.Degree())
	strides := dense.Shape(n.dims).ComputeStrides()
	for i, s := range strides {
		indices[i] = position / s
		position %= s
	}
	return n.At(indices...)
}

// InnerProduct computes the Frobenius inner product of two chains with equal
// external dimensions by a single left-to-right contraction sweep.
func InnerProduct(a, b *Network) (float64, error) {
	if a.arity != b.arity || !dense.Shape(a.dims).Equal(dense.Shape(b.dims)) {
		return 0, fmt.Errorf("%w: inner product requires equal dimensions, got %v vs %v", ErrDimensionMismatch, a.dims, b.dims)
	}
	if a.Degree() == 0 {
		return a.comps[0].AtFlat(0) * b.comps[0].AtFlat(0), nil
	}

	var perm []int
	if a.arity == arityOperator {
		perm = []int{3, 0, 1, 2}
	} else {
		perm = []int{2, 0, 1}
	}

	f := dense.Ones(1, 1)
	for c := 0; c < a.NumComponents(); c++ {
		fb := dense.MustContract(f, b.comps[c], 1)
		f = dense.MustContract(a.comps[c].Transpose(perm...), fb, a.arity+1)
	}
	return f.AtFlat(0), nil
}

// FrobNorm returns the Frobenius norm of the represented tensor. For a
// canonical chain this is the norm of the core component.
func (n *Network) FrobNorm() float64 {
	if n.canonical {
		return n.Component(n.corePos).FrobNorm()
	}
	ip, err := InnerProduct(n, n)
	if err != nil {
		panic(err) // cannot happen: a chain always matches itself
	}
	return math.Sqrt(math.Abs(ip))
}

// AssumeCorePosition marks the chain canonical at the given position
// without moving anything. The caller asserts that the orthogonality
// invariants already hold.
func (n *Network) AssumeCorePosition(position int) error {
	if position < 0 || (position != 0 && (n.Degree() == 0 || position >= n.NumComponents())) {
		return fmt.Errorf("%w: core position %d out of range", ErrInvalidArgument, position)
	}
	n.corePos = position
	n.canonical = true
	return nil
}

// exceedsMaximalRanks reports whether any virtual rank violates its
// feasibility bound (a component's virtual rank exceeding the product of its
// other dimensions).
func (n *Network) exceedsMaximalRanks() bool {
	for i := 0; i < n.NumComponents(); i++ {
		comp := n.comps[i]
		extDim := comp.Dim(1)
		if n.arity == arityOperator {
			extDim *= comp.Dim(2)
		}
		if comp.Dim(0) > extDim*comp.Dim(-1) || comp.Dim(-1) > extDim*comp.Dim(0) {
			return true
		}
	}
	return false
}

// ReduceToMaximalRanks clamps a rank tuple to the feasibility bounds
// implied by the external dimensions of a tensor chain (or an operator
// chain, with extDims holding rows then columns).
func ReduceToMaximalRanks(ranks []int, extDims []int, isOperator bool) []int {
	arity := arityTensor
	if isOperator {
		arity = arityOperator
	}
	return reduceToMaximalRanks(ranks, extDims, arity)
}

// reduceToMaximalRanks clamps a rank tuple to the feasibility bounds implied
// by the external dimensions, sweeping once in each direction.
func reduceToMaximalRanks(ranks []int, extDims []int, arity int) []int {
	numComponents := len(extDims) / arity
	out := append([]int(nil), ranks...)

	currMax := 1
	for i := 0; i+1 < numComponents; i++ {
		currMax *= extDims[i]
		if arity == arityOperator {
			currMax *= extDims[numComponents+i]
		}
		if currMax < out[i] {
			out[i] = currMax
		} else {
			currMax = out[i]
		}
	}

	currMax = 1
	for i := 1; i < numComponents; i++ {
		currMax *= extDims[numComponents-i]
		if arity == arityOperator {
			currMax *= extDims[2*numComponents-i]
		}
		if currMax < out[numComponents-i-1] {
			out[numComponents-i-1] = currMax
		} else {
			currMax = out[numComponents-i-1]
		}
	}
	return out
}

// Validate checks the structural invariants of the chain: component count
// and degrees, boundary ranks, rank adjacency, external dimensions and
// prefactor locality. It is meant for debugging and tests; the mutating
// operations maintain these invariants.
func (n *Network) Validate() error {
	numComponents := n.NumComponents()
	if n.Degree() == 0 {
		if len(n.comps) != 1 || n.comps[0].Degree() != 0 {
			return fmt.Errorf("%w: scalar chain must hold exactly one degree-0 component", ErrInvalidArgument)
		}
		return nil
	}
	if len(n.comps) != numComponents {
		return fmt.Errorf("%w: chain holds %d components, expected %d", ErrInvalidArgument, len(n.comps), numComponents)
	}
	if n.canonical && n.corePos >= numComponents {
		return fmt.Errorf("%w: core position %d out of range [0, %d)", ErrInvalidArgument, n.corePos, numComponents)
	}
	for i, comp := range n.comps {
		if comp.Degree() != n.arity+2 {
			return fmt.Errorf("%w: component %d has degree %d, expected %d", ErrInvalidArgument, i, comp.Degree(), n.arity+2)
		}
		if comp.Dim(1) != n.dims[i] {
			return fmt.Errorf("%w: component %d external dimension %d disagrees with chain dimension %d", ErrInvalidArgument, i, comp.Dim(1), n.dims[i])
		}
		if n.arity == arityOperator && comp.Dim(2) != n.dims[numComponents+i] {
			return fmt.Errorf("%w: component %d column dimension %d disagrees with chain dimension %d", ErrInvalidArgument, i, comp.Dim(2), n.dims[numComponents+i])
		}
		if i == 0 && comp.Dim(0) != 1 {
			return fmt.Errorf("%w: left boundary rank is %d, expected 1", ErrInvalidArgument, comp.Dim(0))
		}
		if i == numComponents-1 && comp.Dim(-1) != 1 {
			return fmt.Errorf("%w: right boundary rank is %d, expected 1", ErrInvalidArgument, comp.Dim(-1))
		}
		if i+1 < numComponents && comp.Dim(-1) != n.comps[i+1].Dim(0) {
			return fmt.Errorf("%w: rank mismatch between components %d and %d: %d vs %d", ErrInvalidArgument, i, i+1, comp.Dim(-1), n.comps[i+1].Dim(0))
		}
		if n.canonical && i != n.corePos && comp.HasFactor() {
			return fmt.Errorf("%w: non-core component %d carries prefactor %v", ErrInvalidArgument, i, comp.Factor())
		}
	}
	return nil
}
