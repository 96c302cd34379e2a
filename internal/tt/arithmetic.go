// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"fmt"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// Scale multiplies the represented tensor by a scalar. Only one component's
// prefactor is touched, so this is O(1) and preserves canonical form.
func (n *Network) Scale(alpha float64) {
	if n.canonical {
		n.Component(n.corePos).Scale(alpha)
	} else {
		n.Component(0).Scale(alpha)
	}
}

// AddAssign adds another chain with equal external dimensions: n += other.
// Interior components combine block-diagonally, the boundary components
// stack, so the ranks grow additively; rounding afterwards is the caller's
// responsibility. If the chain was canonical its core position is restored
// (which re-orthogonalizes the grown components).
func (n *Network) AddAssign(other *Network) error {
	if n.arity != other.arity || !dense.Shape(n.dims).Equal(dense.Shape(other.dims)) {
		return fmt.Errorf("%w: addition requires equal dimensions, got %v vs %v", ErrDimensionMismatch, n.dims, other.dims)
	}

	numComponents := n.NumComponents()
	if numComponents <= 1 {
		return n.comps[0].Add(other.comps[0])
	}

	initialCanonical, initialCorePos := n.canonical, n.corePos

	for pos := 0; pos < numComponents; pos++ {
		my := n.comps[pos]
		ot := other.comps[pos]

		myLeft, myRight := my.Dim(0), my.Dim(-1)
		otLeft, otRight := ot.Dim(0), ot.Dim(-1)
		extSize := my.Dim(1)
		if n.arity == arityOperator {
			extSize *= my.Dim(2)
		}

		newLeft, newRight := myLeft+otLeft, myRight+otRight
		leftOffset, rightOffset := myLeft, myRight
		if pos == 0 {
			newLeft, leftOffset = 1, 0
		}
		if pos == numComponents-1 {
			newRight, rightOffset = 1, 0
		}

		var newComp *dense.Tensor
		if n.arity == arityOperator {
			newComp = dense.New(newLeft, my.Dim(1), my.Dim(2), newRight)
		} else {
			newComp = dense.New(newLeft, my.Dim(1), newRight)
		}

		// The block structure along the chain is
		//   (L1 R1) * (L2 0 ) * ... * (Lk)
		//            (0  R2)         (Rk)
		dst := newComp.Data()
		myData, otData := my.Data(), ot.Data()
		for l := 0; l < myLeft; l++ {
			for e := 0; e < extSize; e++ {
				copy(dst[(l*extSize+e)*newRight:], myData[(l*extSize+e)*myRight:(l*extSize+e)*myRight+myRight])
			}
		}
		for l := 0; l < otLeft; l++ {
			for e := 0; e < extSize; e++ {
				base := ((l+leftOffset)*extSize+e)*newRight + rightOffset
				copy(dst[base:], otData[(l*extSize+e)*otRight:(l*extSize+e)*otRight+otRight])
			}
		}

		if err := n.SetComponent(pos, newComp); err != nil {
			return err
		}
	}

	if initialCanonical {
		return n.MoveCore(initialCorePos, false)
	}
	return nil
}

// SubAssign subtracts another chain: n -= other.
func (n *Network) SubAssign(other *Network) error {
	n.Scale(-1)
	if err := n.AddAssign(other); err != nil {
		n.Scale(-1)
		return err
	}
	n.Scale(-1)
	return nil
}

// Add returns the sum of two chains as a new chain.
func Add(a, b *Network) (*Network, error) {
	result := a.Clone()
	if err := result.AddAssign(b); err != nil {
		return nil, err
	}
	return result, nil
}

// Sub returns the difference of two chains as a new chain.
func Sub(a, b *Network) (*Network, error) {
	result := a.Clone()
	if err := result.SubAssign(b); err != nil {
		return nil, err
	}
	return result, nil
}

// EntrywiseProduct computes the Hadamard product of two chains with equal
// external dimensions. Each result component is the per-slab Kronecker
// product of the operands' components, so the ranks multiply.
func EntrywiseProduct(a, b *Network) (*Network, error) {
	if a.arity != b.arity || !dense.Shape(a.dims).Equal(dense.Shape(b.dims)) {
		return nil, fmt.Errorf("%w: entrywise product requires equal dimensions, got %v vs %v", ErrDimensionMismatch, a.dims, b.dims)
	}

	if a.Degree() == 0 {
		result := a.Clone()
		result.comps[0] = dense.Scalar(a.comps[0].AtFlat(0) * b.comps[0].AtFlat(0))
		return result, nil
	}

	result := newChain(a.arity, a.dims)
	result.canonical = false
	for i := 0; i < a.NumComponents(); i++ {
		ac, bc := a.comps[i], b.comps[i]
		aLeft, aRight := ac.Dim(0), ac.Dim(-1)
		bLeft, bRight := bc.Dim(0), bc.Dim(-1)
		extSize := ac.Dim(1)
		if a.arity == arityOperator {
			extSize *= ac.Dim(2)
		}

		var newComp *dense.Tensor
		if a.arity == arityOperator {
			newComp = dense.New(aLeft*bLeft, ac.Dim(1), ac.Dim(2), aRight*bRight)
		} else {
			newComp = dense.New(aLeft*bLeft, ac.Dim(1), aRight*bRight)
		}

		dst := newComp.Data()
		aData, bData := ac.Data(), bc.Data()
		pos := 0
		for r1 := 0; r1 < aLeft; r1++ {
			for s1 := 0; s1 < bLeft; s1++ {
				for e := 0; e < extSize; e++ {
					for r2 := 0; r2 < aRight; r2++ {
						av := aData[(r1*extSize+e)*aRight+r2]
						for s2 := 0; s2 < bRight; s2++ {
							dst[pos] = av * bData[(s1*extSize+e)*bRight+s2]
							pos++
						}
					}
				}
			}
		}
		result.comps[i] = newComp
	}

	if a.canonical {
		if err := result.MoveCore(a.corePos, false); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// EntrywiseSquare squares the chain entrywise in place. For short chains a
// symmetric packing keeps the new ranks at r(r+1)/2; longer chains use the
// plain r*r Kronecker ranks.
func (n *Network) EntrywiseSquare() error {
	if n.Degree() == 0 {
		v := n.comps[0].AtFlat(0)
		n.comps[0] = dense.Scalar(v * v)
		return nil
	}

	initialCanonical, initialCorePos := n.canonical, n.corePos
	numComponents := n.NumComponents()
	symmetric := n.Degree() <= 2

	for i := 0; i < numComponents; i++ {
		comp := n.comps[i]
		left, right := comp.Dim(0), comp.Dim(-1)
		extSize := comp.Dim(1)
		if n.arity == arityOperator {
			extSize *= comp.Dim(2)
		}

		newLeft, newRight := left*left, right*right
		if symmetric {
			newLeft = left * (left + 1) / 2
			newRight = right * (right + 1) / 2
		}

		var newComp *dense.Tensor
		if n.arity == arityOperator {
			newComp = dense.New(newLeft, comp.Dim(1), comp.Dim(2), newRight)
		} else {
			newComp = dense.New(newLeft, comp.Dim(1), newRight)
		}

		dst := newComp.Data()
		src := comp.Data()
		pos := 0
		if symmetric {
			for r1 := 0; r1 < left; r1++ {
				for r2 := 0; r2 <= r1; r2++ {
					for e := 0; e < extSize; e++ {
						for s1 := 0; s1 < right; s1++ {
							for s2 := 0; s2 <= s1; s2++ {
								weight := 1.0
								if s1 != s2 {
									weight = 2.0
								}
								dst[pos] = weight * src[(r1*extSize+e)*right+s1] * src[(r2*extSize+e)*right+s2]
								pos++
							}
						}
					}
				}
			}
		} else {
			for r1 := 0; r1 < left; r1++ {
				for r2 := 0; r2 < left; r2++ {
					for e := 0; e < extSize; e++ {
						for s1 := 0; s1 < right; s1++ {
							for s2 := 0; s2 < right; s2++ {
								dst[pos] = src[(r1*extSize+e)*right+s1] * src[(r2*extSize+e)*right+s2]
								pos++
							}
						}
					}
				}
			}
		}
		if err := n.SetComponent(i, newComp); err != nil {
			return err
		}
	}

	if initialCanonical {
		return n.MoveCore(initialCorePos, false)
	}
	return nil
}

// DyadicProduct concatenates two chains: the represented tensor is the
// outer product of the operands. For operators the result's row dimensions
// are the operands' row dimensions in order, likewise the columns.
func DyadicProduct(a, b *Network) (*Network, error) {
	if a.arity != b.arity {
		return nil, fmt.Errorf("%w: dyadic product of mixed chain variants", ErrInvalidArgument)
	}

	if a.Degree() == 0 {
		result := b.Clone()
		result.Scale(a.comps[0].AtFlat(0))
		return result, nil
	}
	if b.Degree() == 0 {
		result := a.Clone()
		result.Scale(b.comps[0].AtFlat(0))
		return result, nil
	}

	aNum, bNum := a.NumComponents(), b.NumComponents()
	dims := make([]int, 0, len(a.dims)+len(b.dims))
	dims = append(dims, a.dims[:aNum]...)
	dims = append(dims, b.dims[:bNum]...)
	if a.arity == arityOperator {
		dims = append(dims, a.dims[aNum:]...)
		dims = append(dims, b.dims[bNum:]...)
	}

	result := &Network{
		comps: make([]*dense.Tensor, 0, aNum+bNum),
		dims:  dims,
		arity: a.arity,
	}
	for _, c := range a.comps {
		result.comps = append(result.comps, c.Clone())
	}
	for _, c := range b.comps {
		result.comps = append(result.comps, c.Clone())
	}

	switch {
	case a.canonical && b.canonical && a.corePos == 0 && b.corePos == 0:
		result.canonical = true
		result.corePos = aNum
		if err := result.MoveCore(0, false); err != nil {
			return nil, err
		}
	case a.canonical && b.canonical && a.corePos == aNum-1 && b.corePos == bNum-1:
		result.canonical = true
		result.corePos = aNum - 1
		if err := result.MoveCore(aNum+bNum-1, false); err != nil {
			return nil, err
		}
	default:
		result.canonical = false
	}
	return result, nil
}
