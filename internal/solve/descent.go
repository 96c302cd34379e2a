// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package solve

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trainkit-ml/trainkit/internal/dense"
	"github.com/trainkit-ml/trainkit/internal/perf"
	"github.com/trainkit-ml/trainkit/internal/tt"
)

// Retraction maps a point on the fixed-rank manifold and a tangent step back
// onto the manifold, mutating x in place.
type Retraction func(x, change *tt.Network) error

// SubmanifoldRetraction adds the step and truncates back to the previous
// rank structure in a single rounding sweep.
func SubmanifoldRetraction(x, change *tt.Network) error {
	ranks := x.Ranks()
	if err := x.AddAssign(change); err != nil {
		return err
	}
	return x.Round(ranks, 0)
}

// HOSVDRetraction adds the step and rounds, either to a fixed uniform rank
// or to a relative tolerance.
type HOSVDRetraction struct {
	RoundByRank bool
	Rank        int
	Epsilon     float64
}

// NewHOSVDRankRetraction retracts by rounding to a fixed uniform rank.
func NewHOSVDRankRetraction(rank int) Retraction {
	return HOSVDRetraction{RoundByRank: true, Rank: rank}.Retract
}

// NewHOSVDEpsilonRetraction retracts by rounding to a relative tolerance.
func NewHOSVDEpsilonRetraction(eps float64) Retraction {
	return HOSVDRetraction{Epsilon: eps}.Retract
}

// Retract applies the retraction.
func (h HOSVDRetraction) Retract(x, change *tt.Network) error {
	if err := x.AddAssign(change); err != nil {
		return err
	}
	if h.RoundByRank {
		return x.RoundRank(h.Rank, 0)
	}
	return x.Round(nil, h.Epsilon)
}

// ALSRetraction adds the step and restores the rank structure with one
// alternating-least-squares half-sweep that fits the previous structure to
// the moved point.
func ALSRetraction(x, change *tt.Network) error {
	if x.IsOperator() {
		return fmt.Errorf("%w: ALS retraction operates on tensor chains", tt.ErrUnsupported)
	}
	target := x.Clone()
	if err := target.AddAssign(change); err != nil {
		return err
	}
	return alsHalfSweepFit(x, target)
}

// alsHalfSweepFit overwrites x, keeping its rank structure, with the best
// left-to-right alternating fit to the target chain. x supplies the
// orthogonal frames: right frames from the initial right-orthogonalized
// components, left frames built as the sweep proceeds.
func alsHalfSweepFit(x, target *tt.Network) error {
	numComponents := x.NumComponents()
	if numComponents == 0 {
		return x.SetComponent(0, target.Component(0).Clone())
	}
	if err := x.MoveCore(0, true); err != nil {
		return err
	}

	// rights[i] holds the contraction of components i+1.. of target and x,
	// shape (targetRank_i, xRank_i).
	rights := make([]*dense.Tensor, numComponents)
	rights[numComponents-1] = dense.Ones(1, 1)
	for i := numComponents - 2; i >= 0; i-- {
		tmp := dense.MustContract(target.Component(i+1), rights[i+1], 1)
		rights[i] = dense.MustContract(tmp, x.Component(i+1).Transpose(1, 2, 0), 2)
	}

	left := dense.Ones(1, 1) // (xRank_{i-1}, targetRank_{i-1})
	for i := 0; i < numComponents; i++ {
		tmp := dense.MustContract(left, target.Component(i), 1)
		newComp := dense.MustContract(tmp, rights[i], 1)
		if err := x.SetComponent(i, newComp); err != nil {
			return err
		}

		if i+1 < numComponents {
			q, r, err := dense.QR(newComp, 2)
			if err != nil {
				return fmt.Errorf("%w: %v", tt.ErrNumericFailure, err)
			}
			if err := x.SetComponent(i, q); err != nil {
				return err
			}
			if err := x.SetComponent(i+1, dense.MustContract(r, x.Component(i+1), 1)); err != nil {
				return err
			}
			left = dense.MustContract(q.Transpose(2, 0, 1), tmp, 2)
		}
	}
	return x.AssumeCorePosition(numComponents - 1)
}

// SteepestDescentVariant configures the steepest descent solver for
// A*x = b (or the projection problem min ||x - b|| when A is nil) on the
// manifold of chains with x's rank structure.
type SteepestDescentVariant struct {
	// NumSteps caps the number of gradient steps. Zero means unbounded.
	NumSteps int
	// ConvergenceEpsilon stops the solver once the residual norm shrinks
	// by less than a factor of 1-ConvergenceEpsilon in one step.
	ConvergenceEpsilon float64
	// AssumeSymmetricPositiveDefiniteOperator selects the residual itself
	// as the step direction with the exact line-search step size; without
	// it the direction is the gradient A^T r.
	AssumeSymmetricPositiveDefiniteOperator bool
	// Retraction maps each step back onto the manifold.
	Retraction Retraction
}

// SteepestDescent is the default variant of the steepest descent algorithm.
var SteepestDescent = SteepestDescentVariant{
	NumSteps:           0,
	ConvergenceEpsilon: 1e-8,
	Retraction:         SubmanifoldRetraction,
}

// Solve runs the descent iteration. A must be an operator chain or nil for
// the projection problem; x is the initial guess and is mutated toward the
// solution. It returns the final residual norm.
func (v SteepestDescentVariant) Solve(a, x, b *tt.Network, pd *perf.PerformanceData) (float64, error) {
	if a != nil && !a.IsOperator() {
		return 0, fmt.Errorf("%w: steepest descent requires an operator chain", tt.ErrUnsupported)
	}
	if v.Retraction == nil {
		return 0, fmt.Errorf("%w: no retraction configured", tt.ErrInvalidArgument)
	}

	pd.Start()

	var residualNorm, lastResidualNorm float64
	for step := 0; v.NumSteps == 0 || step < v.NumSteps; step++ {
		residual, err := v.residual(a, x, b)
		if err != nil {
			return residualNorm, err
		}
		lastResidualNorm = residualNorm
		residualNorm = residual.FrobNorm()

		pd.AddStep(step, residualNorm, x.Ranks(), 0)

		if step > 0 && residualNorm/lastResidualNorm > 1-v.ConvergenceEpsilon {
			return residualNorm, nil
		}

		direction, alpha, err := v.direction(a, residual)
		if err != nil {
			return residualNorm, err
		}
		if alpha == 0 {
			return residualNorm, nil
		}
		direction.Scale(alpha)

		if err := v.Retraction(x, direction); err != nil {
			return residualNorm, errors.Wrap(err, "retracting onto the manifold")
		}
	}
	return residualNorm, nil
}

// residual computes b - A*x (or b - x for the projection problem).
func (v SteepestDescentVariant) residual(a, x, b *tt.Network) (*tt.Network, error) {
	if a == nil {
		return tt.Sub(b, x)
	}
	ax, err := tt.Apply(a, x)
	if err != nil {
		return nil, err
	}
	return tt.Sub(b, ax)
}

// direction picks the step direction and the exact line-search step size
// along it.
func (v SteepestDescentVariant) direction(a *tt.Network, residual *tt.Network) (*tt.Network, float64, error) {
	if a == nil {
		return residual, 1, nil
	}
	if v.AssumeSymmetricPositiveDefiniteOperator {
		ar, err := tt.Apply(a, residual)
		if err != nil {
			return nil, 0, err
		}
		num, err := tt.InnerProduct(residual, residual)
		if err != nil {
			return nil, 0, err
		}
		den, err := tt.InnerProduct(residual, ar)
		if err != nil {
			return nil, 0, err
		}
		if den == 0 {
			return residual, 0, nil
		}
		return residual, num / den, nil
	}

	at := a.Clone()
	if err := at.Transpose(); err != nil {
		return nil, 0, err
	}
	direction, err := tt.Apply(at, residual)
	if err != nil {
		return nil, 0, err
	}
	ad, err := tt.Apply(a, direction)
	if err != nil {
		return nil, 0, err
	}
	num, err := tt.InnerProduct(residual, ad)
	if err != nil {
		return nil, 0, err
	}
	den, err := tt.InnerProduct(ad, ad)
	if err != nil {
		return nil, 0, err
	}
	if den == 0 {
		return direction, 0, nil
	}
	return direction, num / den, nil
}
