// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"fmt"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// roundEdge truncates the virtual rank between components i-1 and i. The
// core must currently sit at component i; after the call it sits at i-1.
func (n *Network) roundEdge(i, maxRank int, eps, tau float64, preventZero bool) error {
	u, s, vt, _, err := dense.SVD(n.comps[i], 1, dense.SVDOptions{
		MaxRank:       maxRank,
		Epsilon:       eps,
		SoftThreshold: tau,
		PreventZero:   preventZero,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNumericFailure, err)
	}
	n.comps[i] = vt
	n.comps[i-1] = dense.MustContract(n.comps[i-1], dense.MustContract(u, s, 1), 1)
	return nil
}

// checkRankArgs validates a per-edge argument tuple against the chain.
func (n *Network) checkRankArgs(count int, what string) error {
	numRanks := 0
	if numComponents := n.NumComponents(); numComponents > 0 {
		numRanks = numComponents - 1
	}
	if count != numRanks {
		return fmt.Errorf("%w: need %d %s, got %d", ErrInvalidArgument, numRanks, what, count)
	}
	return nil
}

// Round reduces the virtual ranks of the chain by a right-to-left sweep of
// truncated SVDs. Each edge i keeps at most maxRanks[i] singular values and
// drops those below eps times the largest on that edge. A nil maxRanks
// leaves the ranks uncapped. The Frobenius error is not bounded by eps times
// the norm of the chain: an edge can drop several singular values that each
// lie just below its threshold. The canonical position is restored
// afterwards.
func (n *Network) Round(maxRanks []int, eps float64) error {
	if eps < 0 || eps >= 1 {
		return fmt.Errorf("%w: eps must be in [0, 1), got %v", ErrInvalidArgument, eps)
	}
	numComponents := n.NumComponents()
	if maxRanks == nil {
		if numComponents > 1 {
			maxRanks = make([]int, numComponents-1)
		}
	} else {
		if err := n.checkRankArgs(len(maxRanks), "max ranks"); err != nil {
			return err
		}
		for _, r := range maxRanks {
			if r < 0 {
				return fmt.Errorf("%w: negative max rank %d", ErrInvalidArgument, r)
			}
			if r == 0 {
				return fmt.Errorf("%w: rounding to rank 0 is not possible", ErrInvalidArgument)
			}
		}
	}

	initialCanonical, initialCorePos := n.canonical, n.corePos

	if err := n.CanonicalizeRight(); err != nil {
		return err
	}
	for i := numComponents - 1; i > 0; i-- {
		if err := n.roundEdge(i, maxRanks[i-1], eps, 0, false); err != nil {
			return err
		}
	}
	n.canonical = true
	n.corePos = 0

	if initialCanonical {
		return n.MoveCore(initialCorePos, false)
	}
	return nil
}

// RoundRank rounds with a uniform rank cap on every edge.
func (n *Network) RoundRank(maxRank int, eps float64) error {
	numComponents := n.NumComponents()
	if numComponents <= 1 {
		return n.Round(nil, eps)
	}
	maxRanks := make([]int, numComponents-1)
	for i := range maxRanks {
		maxRanks[i] = maxRank
	}
	return n.Round(maxRanks, eps)
}

// SoftThreshold shrinks every singular value on every edge by taus[edge],
// dropping values that reach zero. With preventZero the largest singular
// value of each edge is kept above a tiny floor so the chain never vanishes
// entirely. The canonical position is restored afterwards.
func (n *Network) SoftThreshold(taus []float64, preventZero bool) error {
	if err := n.checkRankArgs(len(taus), "thresholds"); err != nil {
		return err
	}
	numComponents := n.NumComponents()

	initialCanonical, initialCorePos := n.canonical, n.corePos

	if err := n.CanonicalizeRight(); err != nil {
		return err
	}
	for i := numComponents - 1; i > 0; i-- {
		if err := n.roundEdge(i, 0, 0, taus[i-1], preventZero); err != nil {
			return err
		}
	}
	n.canonical = true
	n.corePos = 0

	if initialCanonical {
		return n.MoveCore(initialCorePos, false)
	}
	return nil
}

// SoftThresholdAll applies the same shrinkage on every edge.
func (n *Network) SoftThresholdAll(tau float64, preventZero bool) error {
	numComponents := n.NumComponents()
	if numComponents <= 1 {
		return nil
	}
	taus := make([]float64, numComponents-1)
	for i := range taus {
		taus[i] = tau
	}
	return n.SoftThreshold(taus, preventZero)
}
