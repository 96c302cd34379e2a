// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"fmt"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// transferCore moves the core between the adjacent components from and to.
// A right move QR-factorizes the left unfolding of the source component and
// absorbs the triangular factor into the right neighbor; a left move mirrors
// this with an LQ factorization. With allowRankReduction the factorization
// is an exact SVD instead, which drops numerically vanished singular values.
func (n *Network) transferCore(from, to int, allowRankReduction bool) error {
	comp := n.comps[from]
	switch to {
	case from + 1:
		split := n.arity + 1
		if allowRankReduction {
			u, s, vt, _, err := dense.SVD(comp, split, dense.SVDOptions{})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNumericFailure, err)
			}
			n.comps[from] = u
			n.comps[to] = dense.MustContract(dense.MustContract(s, vt, 1), n.comps[to], 1)
		} else {
			q, r, err := dense.QR(comp, split)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNumericFailure, err)
			}
			n.comps[from] = q
			n.comps[to] = dense.MustContract(r, n.comps[to], 1)
		}
	case from - 1:
		if allowRankReduction {
			u, s, vt, _, err := dense.SVD(comp, 1, dense.SVDOptions{})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNumericFailure, err)
			}
			n.comps[from] = vt
			n.comps[to] = dense.MustContract(n.comps[to], dense.MustContract(u, s, 1), 1)
		} else {
			l, q, err := dense.LQ(comp, 1)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNumericFailure, err)
			}
			n.comps[from] = q
			n.comps[to] = dense.MustContract(n.comps[to], l, 1)
		}
	default:
		panic(fmt.Sprintf("transferCore between non-adjacent components %d and %d", from, to))
	}
	return nil
}

// MoveCore sweeps the core to the given component position by successive
// single-step transfers, leaving the chain canonical at that position. With
// keepRank the transfers use plain QR factorizations; otherwise numerically
// vanished singular values are dropped along the way.
//
// Should any virtual rank exceed its feasibility bound afterwards, extra
// corrective sweeps to the chain ends clamp all ranks to their maxima.
func (n *Network) MoveCore(position int, keepRank bool) error {
	numComponents := n.NumComponents()
	if n.Degree() == 0 {
		if position != 0 {
			return fmt.Errorf("%w: core position %d for scalar chain", ErrInvalidArgument, position)
		}
		n.canonical = true
		n.corePos = 0
		return nil
	}
	if position < 0 || position >= numComponents {
		return fmt.Errorf("%w: core position %d out of range [0, %d)", ErrInvalidArgument, position, numComponents)
	}

	if n.canonical {
		for p := n.corePos; p < position; p++ {
			if err := n.transferCore(p, p+1, !keepRank); err != nil {
				return err
			}
		}
		for p := n.corePos; p > position; p-- {
			if err := n.transferCore(p, p-1, !keepRank); err != nil {
				return err
			}
		}
	} else {
		for p := 0; p < position; p++ {
			if err := n.transferCore(p, p+1, !keepRank); err != nil {
				return err
			}
		}
		for p := numComponents - 1; p > position; p-- {
			if err := n.transferCore(p, p-1, !keepRank); err != nil {
				return err
			}
		}
	}

	// Each corrective sweep clamps every violating rank to its feasible
	// maximum (the thin factorizations cannot return a larger one), so this
	// terminates.
	for n.exceedsMaximalRanks() {
		for p := position; p > 0; p-- {
			if err := n.transferCore(p, p-1, !keepRank); err != nil {
				return err
			}
		}
		for p := 0; p+1 < numComponents; p++ {
			if err := n.transferCore(p, p+1, !keepRank); err != nil {
				return err
			}
		}
		for p := numComponents - 1; p > position; p-- {
			if err := n.transferCore(p, p-1, !keepRank); err != nil {
				return err
			}
		}
	}

	n.canonical = true
	n.corePos = position
	return nil
}

// CanonicalizeLeft moves the core to the first component.
func (n *Network) CanonicalizeLeft() error {
	return n.MoveCore(0, false)
}

// CanonicalizeRight moves the core to the last component.
func (n *Network) CanonicalizeRight() error {
	if n.Degree() == 0 {
		return n.MoveCore(0, false)
	}
	return n.MoveCore(n.NumComponents()-1, false)
}
