// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"math"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

// roundingEpsilon is the default relative truncation tolerance used by the
// largest-entry search when collapsing a chain to rank one.
const roundingEpsilon = 1e-14

// FindLargestEntry returns the flat position (row-major over the external
// dimensions) of the entry with the largest absolute value.
//
// The search repeatedly squares the chain entrywise and soft-thresholds the
// singular values until all ranks collapse to one, at which point the
// position is read off component by component. accuracy in (0, 1) trades
// runtime for the guaranteed quality of the result; lowerBound may pass a
// known lower bound for the largest entry (0 if unknown).
func (n *Network) FindLargestEntry(accuracy, lowerBound float64) (int, error) {
	if n.Degree() == 0 {
		return 0, nil
	}

	sum := 0
	for _, r := range n.Ranks() {
		sum += r
	}
	if sum < n.NumComponents() {
		return n.rankOneLargestEntry(), nil
	}

	alpha := accuracy

	// A rank-one collapse gives a first estimate of the largest entry.
	x := n.Clone()
	if err := x.RoundRank(1, roundingEpsilon); err != nil {
		return 0, err
	}
	xn := math.Max(n.AtFlat(x.rankOneLargestEntry()), lowerBound)
	tau := (1 - alpha) * alpha * xn * xn / (2 * float64(n.Degree()-1))

	x = n.Clone()
	for {
		sum = 0
		for _, r := range x.Ranks() {
			sum += r
		}
		if sum < x.NumComponents() {
			break
		}

		if err := x.EntrywiseSquare(); err != nil {
			return 0, err
		}
		if err := x.SoftThresholdAll(tau, true); err != nil {
			return 0, err
		}

		y := x.Clone()
		if err := y.RoundRank(1, roundingEpsilon); err != nil {
			return 0, err
		}
		yMaxPos := y.rankOneLargestEntry()

		xn = math.Max(x.AtFlat(yMaxPos), (1-(1-alpha)*alpha/2)*xn*xn)

		norm := x.FrobNorm()
		xn /= norm
		x.Scale(1 / norm)
		tau = (1 - alpha) * alpha * xn * xn / (2 * float64(x.Degree()-1))
	}
	return x.rankOneLargestEntry(), nil
}

// rankOneLargestEntry reads the position of the largest absolute entry off a
// chain whose virtual ranks are all one.
func (n *Network) rankOneLargestEntry() int {
	numComponents := n.NumComponents()
	indices := make([]int, n.Degree())
	for c := 0; c < numComponents; c++ {
		comp := n.comps[c]
		maxPos, maxVal := 0, 0.0
		for i := 0; i < comp.Size(); i++ {
			if v := math.Abs(comp.AtFlat(i)); v > maxVal {
				maxPos, maxVal = i, v
			}
		}
		if n.arity == arityOperator {
			indices[c] = maxPos / n.dims[numComponents+c]
			indices[numComponents+c] = maxPos % n.dims[numComponents+c]
		} else {
			indices[c] = maxPos
		}
	}

	position := 0
	for i, s := range dense.Shape(n.dims).ComputeStrides() {
		position += indices[i] * s
	}
	return position
}
