// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package solve provides the public API for the iterative tensor-train
// solvers: alternating direction fitting against point measurements, and
// the steepest-descent family on the fixed-rank manifold.
//
// Example:
//
//	variant := solve.SteepestDescent
//	variant.NumSteps = 20
//	variant.AssumeSymmetricPositiveDefiniteOperator = true
//	residual, err := variant.Solve(a, x, b, perfdata.NoPerfData)
package solve

import (
	"github.com/trainkit-ml/trainkit/internal/solve"
)

// SinglePointMeasurementSet holds point measurements of a tensor.
type SinglePointMeasurementSet = solve.SinglePointMeasurementSet

// ADFVariant configures the alternating direction fitting solver.
type ADFVariant = solve.ADFVariant

// SteepestDescentVariant configures the steepest descent solver.
type SteepestDescentVariant = solve.SteepestDescentVariant

// GeometricCGVariant configures the geometric conjugate gradient solver.
type GeometricCGVariant = solve.GeometricCGVariant

// Retraction maps a manifold point and a tangent step back onto the
// manifold.
type Retraction = solve.Retraction

// HOSVDRetraction retracts by rounding after the step.
type HOSVDRetraction = solve.HOSVDRetraction

// BetaRule selects the conjugation coefficient of the geometric CG variant.
type BetaRule = solve.BetaRule

// Conjugation coefficient rules.
const (
	FletcherReeves BetaRule = solve.FletcherReeves
	PolakRibiere   BetaRule = solve.PolakRibiere
)

// Default solver variants. Copy and modify to tune.
var (
	ADF             = solve.ADF
	SteepestDescent = solve.SteepestDescent
	GeometricCG     = solve.GeometricCG
)

// Retractions.
var (
	SubmanifoldRetraction = solve.SubmanifoldRetraction
	ALSRetraction         = solve.ALSRetraction
)

// NewHOSVDRankRetraction retracts by rounding to a fixed uniform rank.
func NewHOSVDRankRetraction(rank int) Retraction {
	return solve.NewHOSVDRankRetraction(rank)
}

// NewHOSVDEpsilonRetraction retracts by rounding to a relative tolerance.
func NewHOSVDEpsilonRetraction(eps float64) Retraction {
	return solve.NewHOSVDEpsilonRetraction(eps)
}

// RandomMeasurements draws distinct positions uniformly from the index
// space spanned by dims.
var RandomMeasurements = solve.RandomMeasurements
