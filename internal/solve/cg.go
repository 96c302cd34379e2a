// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package solve

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trainkit-ml/trainkit/internal/perf"
	"github.com/trainkit-ml/trainkit/internal/tt"
)

// BetaRule selects the conjugation coefficient used by the geometric CG
// variant.
type BetaRule int

const (
	// FletcherReeves uses beta = <g_k, g_k> / <g_{k-1}, g_{k-1}>.
	FletcherReeves BetaRule = iota
	// PolakRibiere uses beta = <g_k, g_k - g_{k-1}> / <g_{k-1}, g_{k-1}>.
	PolakRibiere
)

// GeometricCGVariant configures the geometric conjugate gradient solver: a
// steepest descent whose directions are conjugated with the transported
// previous direction. The transport onto the current tangent space is
// approximated by rank truncation of the combined direction.
type GeometricCGVariant struct {
	// NumSteps caps the number of steps. Zero means unbounded.
	NumSteps int
	// ConvergenceEpsilon stops the solver once the residual norm shrinks
	// by less than a factor of 1-ConvergenceEpsilon in one step.
	ConvergenceEpsilon float64
	// AssumeSymmetricPositiveDefiniteOperator uses the residual as the
	// gradient instead of A^T r.
	AssumeSymmetricPositiveDefiniteOperator bool
	// Beta selects the conjugation coefficient rule.
	Beta BetaRule
	// RestartInterval resets the direction to the plain gradient every so
	// many steps. Zero disables restarts.
	RestartInterval int
	// Retraction maps each step back onto the manifold.
	Retraction Retraction
}

// GeometricCG is the default geometric conjugate gradient variant.
var GeometricCG = GeometricCGVariant{
	NumSteps:           0,
	ConvergenceEpsilon: 1e-8,
	Beta:               FletcherReeves,
	Retraction:         SubmanifoldRetraction,
}

// Solve runs the conjugate gradient iteration for A*x = b. x is the initial
// guess and is mutated toward the solution. It returns the final residual
// norm.
func (v GeometricCGVariant) Solve(a, x, b *tt.Network, pd *perf.PerformanceData) (float64, error) {
	if a == nil || !a.IsOperator() {
		return 0, fmt.Errorf("%w: geometric CG requires an operator chain", tt.ErrUnsupported)
	}
	if v.Retraction == nil {
		return 0, fmt.Errorf("%w: no retraction configured", tt.ErrInvalidArgument)
	}

	pd.Start()

	var residualNorm, lastResidualNorm float64
	var direction, lastGradient *tt.Network
	var lastGradientNormSq float64

	for step := 0; v.NumSteps == 0 || step < v.NumSteps; step++ {
		ax, err := tt.Apply(a, x)
		if err != nil {
			return residualNorm, err
		}
		residual, err := tt.Sub(b, ax)
		if err != nil {
			return residualNorm, err
		}
		lastResidualNorm = residualNorm
		residualNorm = residual.FrobNorm()

		pd.AddStep(step, residualNorm, x.Ranks(), 0)

		if step > 0 && residualNorm/lastResidualNorm > 1-v.ConvergenceEpsilon {
			return residualNorm, nil
		}

		gradient := residual
		if !v.AssumeSymmetricPositiveDefiniteOperator {
			at := a.Clone()
			if err := at.Transpose(); err != nil {
				return residualNorm, err
			}
			if gradient, err = tt.Apply(at, residual); err != nil {
				return residualNorm, err
			}
		}
		gradientNormSq, err := tt.InnerProduct(gradient, gradient)
		if err != nil {
			return residualNorm, err
		}
		if gradientNormSq == 0 {
			return residualNorm, nil
		}

		restart := direction == nil ||
			(v.RestartInterval > 0 && step%v.RestartInterval == 0)
		if restart {
			direction = gradient.Clone()
		} else {
			beta := gradientNormSq / lastGradientNormSq
			if v.Beta == PolakRibiere {
				mixed, err := tt.InnerProduct(gradient, lastGradient)
				if err != nil {
					return residualNorm, err
				}
				beta = (gradientNormSq - mixed) / lastGradientNormSq
				if beta < 0 {
					beta = 0
				}
			}
			// Transport surrogate: combine with the previous direction and
			// truncate back to the gradient's rank structure.
			transported := direction
			transported.Scale(beta)
			combined := gradient.Clone()
			if err := combined.AddAssign(transported); err != nil {
				return residualNorm, err
			}
			if err := combined.Round(gradient.Ranks(), 0); err != nil {
				return residualNorm, err
			}
			direction = combined
		}
		lastGradient = gradient
		lastGradientNormSq = gradientNormSq

		ad, err := tt.Apply(a, direction)
		if err != nil {
			return residualNorm, err
		}
		var num, den float64
		if v.AssumeSymmetricPositiveDefiniteOperator {
			if num, err = tt.InnerProduct(residual, direction); err != nil {
				return residualNorm, err
			}
			if den, err = tt.InnerProduct(direction, ad); err != nil {
				return residualNorm, err
			}
		} else {
			if num, err = tt.InnerProduct(residual, ad); err != nil {
				return residualNorm, err
			}
			if den, err = tt.InnerProduct(ad, ad); err != nil {
				return residualNorm, err
			}
		}
		if den == 0 {
			return residualNorm, nil
		}

		update := direction.Clone()
		update.Scale(num / den)
		if err := v.Retraction(x, update); err != nil {
			return residualNorm, errors.Wrap(err, "retracting onto the manifold")
		}
	}
	return residualNorm, nil
}
