// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package solve

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/trainkit-ml/trainkit/internal/dense"
	"github.com/trainkit-ml/trainkit/internal/perf"
	"github.com/trainkit-ml/trainkit/internal/tt"
)

// ADFVariant configures the alternating direction fitting solver: given
// point measurements of an unknown tensor, it fits a chain of fixed rank
// structure by sweeping the core along the chain and taking the closed-form
// optimal step for each external slab of the current core.
type ADFVariant struct {
	// MaxIterations caps the number of full sweeps. Zero means unbounded.
	MaxIterations int
	// TargetResidual stops the solver once the residual drops below
	// TargetResidual times the norm of the measured values.
	TargetResidual float64
	// StagnationThreshold and StagnationWindow stop the solver when the
	// relative residual change stays above 1-StagnationThreshold for more
	// than StagnationWindow consecutive sweeps.
	StagnationThreshold float64
	StagnationWindow    int
}

// ADF is the default alternating direction fitting variant.
var ADF = ADFVariant{
	MaxIterations:       300,
	TargetResidual:      1e-8,
	StagnationThreshold: 1e-3,
	StagnationWindow:    3,
}

// stackEntry boxes one shared partial contraction so that measurements
// sharing a prefix (or suffix) alias a single slot.
type stackEntry struct {
	t *dense.Tensor
}

// adfStacks holds the forward and backward partial contractions of the
// iterate with each measurement tuple, deduplicated across measurements:
// if two tuples agree on axes 0..j, their forward stacks agree there too
// and share one entry. The update flags mark the sole owner that recomputes
// a shared entry during a sweep.
type adfStacks struct {
	numMeasurements int
	degree          int

	forward         []*stackEntry // indexed i + (pos+1)*numMeasurements, pos in -1..degree
	backward        []*stackEntry
	forwardUpdates  []bool // indexed i + pos*numMeasurements
	backwardUpdates []bool
}

func (s *adfStacks) fwd(i, pos int) *stackEntry {
	return s.forward[i+(pos+1)*s.numMeasurements]
}

func (s *adfStacks) bwd(i, pos int) *stackEntry {
	return s.backward[i+(pos+1)*s.numMeasurements]
}

// newADFStacks precomputes the calculation maps for a sorted measurement
// set.
func newADFStacks(meas *SinglePointMeasurementSet, degree int) *adfStacks {
	numMeasurements := meas.Size()
	s := &adfStacks{
		numMeasurements: numMeasurements,
		degree:          degree,
		forward:         make([]*stackEntry, numMeasurements*(degree+2)),
		backward:        make([]*stackEntry, numMeasurements*(degree+2)),
		forwardUpdates:  make([]bool, numMeasurements*degree),
		backwardUpdates: make([]bool, numMeasurements*degree),
	}

	ones := &stackEntry{t: dense.Ones(1)}
	for i := 0; i < numMeasurements; i++ {
		s.forward[i] = ones                             // position -1
		s.backward[i+(degree+1)*numMeasurements] = ones // position degree
	}

	// Forward map: measurement i shares the stack of measurement i-1 for
	// every position within their common prefix. The set is sorted, so all
	// measurements with a common prefix are adjacent.
	for pos := 0; pos+1 < degree; pos++ {
		s.forwardUpdates[0+pos*numMeasurements] = true
		s.forward[0+(pos+1)*numMeasurements] = &stackEntry{}
	}
	for i := 1; i < numMeasurements; i++ {
		pos := 0
		for ; pos+1 < degree && meas.Positions[i][pos] == meas.Positions[i-1][pos]; pos++ {
			s.forward[i+(pos+1)*numMeasurements] = s.forward[i-1+(pos+1)*numMeasurements]
		}
		for ; pos+1 < degree; pos++ {
			s.forwardUpdates[i+pos*numMeasurements] = true
			s.forward[i+(pos+1)*numMeasurements] = &stackEntry{}
		}
	}

	// Backward map: the same sharing over common suffixes, found by
	// traversing the measurements in reversed-tuple order.
	order := make([]int, numMeasurements)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return lessReversed(meas.Positions[order[a]], meas.Positions[order[b]])
	})

	first := order[0]
	for pos := 1; pos < degree; pos++ {
		s.backwardUpdates[first+pos*numMeasurements] = true
		s.backward[first+(pos+1)*numMeasurements] = &stackEntry{}
	}
	for k := 1; k < numMeasurements; k++ {
		id, prev := order[k], order[k-1]
		pos := degree - 1
		for ; pos > 0 && meas.Positions[id][pos] == meas.Positions[prev][pos]; pos-- {
			s.backward[id+(pos+1)*numMeasurements] = s.backward[prev+(pos+1)*numMeasurements]
		}
		for ; pos > 0; pos-- {
			s.backwardUpdates[id+pos*numMeasurements] = true
			s.backward[id+(pos+1)*numMeasurements] = &stackEntry{}
		}
	}
	return s
}

// componentSlabs extracts the external slabs of a component as matrices.
func componentSlabs(comp *dense.Tensor) []*dense.Tensor {
	slabs := make([]*dense.Tensor, comp.Dim(1))
	for j := range slabs {
		slabs[j] = comp.FixAxis(1, j)
	}
	return slabs
}

// Solve fits the chain x to the measurements in a least-squares sense,
// keeping x's rank structure. The measurement set is sorted in place. It
// returns the absolute residual over the measured values.
func (v ADFVariant) Solve(x *tt.Network, meas *SinglePointMeasurementSet, pd *perf.PerformanceData) (float64, error) {
	if x.IsOperator() {
		return 0, fmt.Errorf("%w: ADF operates on tensor chains", tt.ErrUnsupported)
	}
	if meas.Size() == 0 {
		return 0, fmt.Errorf("%w: need at least one measurement", tt.ErrInvalidArgument)
	}
	degree := x.Degree()
	if meas.Degree() != degree {
		return 0, fmt.Errorf("%w: measurement degree %d vs chain degree %d", tt.ErrDimensionMismatch, meas.Degree(), degree)
	}
	dims := x.Dims()
	for _, pos := range meas.Positions {
		for axis, idx := range pos {
			if idx < 0 || idx >= dims[axis] {
				return 0, fmt.Errorf("%w: measurement index %d out of range for axis %d (size %d)", tt.ErrInvalidArgument, idx, axis, dims[axis])
			}
		}
	}

	meas.Sort()
	numMeasurements := meas.Size()
	normMeasured := meas.Norm()
	stacks := newADFStacks(meas, degree)

	pd.Start()

	residual, lastResidual := 1.0, 1.0
	smallResidualCount := 0
	currentDifferences := make([]float64, numMeasurements)

	for iteration := 0; v.MaxIterations == 0 || iteration < v.MaxIterations; iteration++ {
		if err := x.MoveCore(0, true); err != nil {
			return residual, errors.Wrap(err, "moving core to the chain start")
		}

		// Rebuild the backward stacks for the coming sweep.
		for corePos := degree - 1; corePos > 0; corePos-- {
			slabs := componentSlabs(x.Component(corePos))
			for i := 0; i < numMeasurements; i++ {
				if stacks.backwardUpdates[i+corePos*numMeasurements] {
					next := stacks.bwd(i, corePos+1).t
					stacks.bwd(i, corePos).t = dense.MustContract(slabs[meas.Positions[i][corePos]], next, 1)
				}
			}
		}

		// Sweep the core from the first to the last component.
		for corePos := 0; corePos < degree; corePos++ {
			comp := x.Component(corePos)
			localN := comp.Dim(1)
			localLeft, localRight := comp.Dim(0), comp.Dim(-1)
			slabs := componentSlabs(comp)

			deltas := make([]*dense.Tensor, localN)
			for j := range deltas {
				deltas[j] = dense.New(localLeft, localRight)
			}

			for i := 0; i < numMeasurements; i++ {
				entryAddition := dense.MustContract(stacks.fwd(i, corePos-1).t, stacks.bwd(i, corePos+1).t, 0)
				j := meas.Positions[i][corePos]
				currentValue := dense.MustContract(entryAddition, slabs[j], 2).AtFlat(0)
				currentDifferences[i] = meas.Values[i] - currentValue
				if err := deltas[j].AddScaled(currentDifferences[i], entryAddition); err != nil {
					return residual, errors.Wrap(err, "accumulating the slab gradient")
				}
			}

			// ||P(delta_j)||^2 per slab, where P evaluates the substituted
			// slab at all measured positions.
			pyPys := make([]float64, localN)
			for i := 0; i < numMeasurements; i++ {
				j := meas.Positions[i][corePos]
				halfPy := dense.MustContract(deltas[j], stacks.bwd(i, corePos+1).t, 1)
				value := dense.MustContract(stacks.fwd(i, corePos-1).t, halfPy, 1).AtFlat(0)
				pyPys[j] += value * value
			}

			// Apply the optimal step to each slab independently.
			comp.ApplyFactor()
			for j := 0; j < localN; j++ {
				if pyPys[j] == 0 {
					continue
				}
				norm := deltas[j].FrobNorm()
				step := norm * norm / pyPys[j]
				for r1 := 0; r1 < localLeft; r1++ {
					for r2 := 0; r2 < localRight; r2++ {
						comp.Set(comp.At(r1, j, r2)+step*deltas[j].At(r1, r2), r1, j, r2)
					}
				}
			}

			if corePos+1 < degree {
				if err := x.MoveCore(corePos+1, true); err != nil {
					return residual, errors.Wrap(err, "moving core right")
				}
				slabs = componentSlabs(x.Component(corePos))
				for i := 0; i < numMeasurements; i++ {
					if stacks.forwardUpdates[i+corePos*numMeasurements] {
						prev := stacks.fwd(i, corePos-1).t
						stacks.fwd(i, corePos).t = dense.MustContract(prev, slabs[meas.Positions[i][corePos]], 1)
					}
				}
			}
		}

		lastResidual = residual
		residual = 0
		for _, d := range currentDifferences {
			residual += d * d
		}
		residual = math.Sqrt(residual)

		if residual/lastResidual > 1.0-v.StagnationThreshold {
			smallResidualCount++
		} else {
			smallResidualCount = 0
		}

		pd.AddStep(iteration, residual, x.Ranks(), 0)

		if residual <= v.TargetResidual*normMeasured || smallResidualCount > v.StagnationWindow {
			return residual, nil
		}
	}
	return residual, nil
}
