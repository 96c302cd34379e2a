// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"fmt"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// Transpose swaps the row and column axes of an operator chain in place.
func (n *Network) Transpose() error {
	if n.arity != arityOperator {
		return fmt.Errorf("%w: transpose of a non-operator chain", ErrUnsupported)
	}
	if n.Degree() == 0 {
		return nil
	}
	numComponents := n.NumComponents()
	for i, comp := range n.comps {
		n.comps[i] = comp.Transpose(0, 2, 1, 3)
	}
	for i := 0; i < numComponents; i++ {
		n.dims[i], n.dims[numComponents+i] = n.dims[numComponents+i], n.dims[i]
	}
	return nil
}

// Apply contracts an operator chain with a tensor or operator chain over the
// operator's column dimensions: the result represents A*b. The product is
// materialized immediately, component by component, with the virtual ranks
// multiplying; if the operator was canonical the result is canonicalized to
// the same core position.
func Apply(a, b *Network) (*Network, error) {
	if a.arity != arityOperator {
		return nil, fmt.Errorf("%w: apply requires an operator chain", ErrUnsupported)
	}
	if a.NumComponents() != b.NumComponents() {
		return nil, fmt.Errorf("%w: operator has %d components, operand %d", ErrDimensionMismatch, a.NumComponents(), b.NumComponents())
	}
	numComponents := a.NumComponents()
	aCols := a.dims[numComponents:]
	bRows := b.dims[:b.NumComponents()]
	if !dense.Shape(aCols).Equal(dense.Shape(bRows)) {
		return nil, fmt.Errorf("%w: operator columns %v do not match operand rows %v", ErrDimensionMismatch, aCols, bRows)
	}

	if numComponents == 0 {
		result := b.Clone()
		result.Scale(a.comps[0].AtFlat(0))
		return result, nil
	}

	dims := make([]int, 0, numComponents*b.arity)
	dims = append(dims, a.dims[:numComponents]...)
	if b.arity == arityOperator {
		dims = append(dims, b.dims[numComponents:]...)
	}

	result := newChain(b.arity, dims)
	result.canonical = false
	for i := 0; i < numComponents; i++ {
		ac, bc := a.comps[i], b.comps[i]
		aLeft, aRight := ac.Dim(0), ac.Dim(-1)
		bLeft, bRight := bc.Dim(0), bc.Dim(-1)

		// Bring the contracted column axis of the operator component to the
		// back and the matching axis of the operand to the front.
		at := ac.Transpose(0, 1, 3, 2) // (aLeft, n, aRight, m)
		var comp *dense.Tensor
		if b.arity == arityOperator {
			bt := bc.Transpose(1, 0, 2, 3) // (m, bLeft, p, bRight)
			t := dense.MustContract(at, bt, 1)
			t = t.Transpose(0, 3, 1, 4, 2, 5) // (aLeft, bLeft, n, p, aRight, bRight)
			comp = t.Reinterpret(aLeft*bLeft, ac.Dim(1), bc.Dim(2), aRight*bRight)
		} else {
			bt := bc.Transpose(1, 0, 2) // (m, bLeft, bRight)
			t := dense.MustContract(at, bt, 1)
			t = t.Transpose(0, 3, 1, 2, 4) // (aLeft, bLeft, n, aRight, bRight)
			comp = t.Reinterpret(aLeft*bLeft, ac.Dim(1), aRight*bRight)
		}
		result.comps[i] = comp
	}

	if a.canonical {
		if err := result.MoveCore(a.corePos, false); err != nil {
			return nil, err
		}
	}
	return result, nil
}
