// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package solve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainkit-ml/trainkit/internal/perf"
	"github.com/trainkit-ml/trainkit/internal/tt"
)

// randomSPDOperator builds A = I + R^T R from a random operator chain R of
// the given rank, normalized so that A is symmetric positive definite with
// modest condition number. With rank 1 the result has ranks (2, ..., 2).
func randomSPDOperator(t *testing.T, dims []int, rank int, rng *rand.Rand) *tt.Network {
	t.Helper()
	opDims := make([]int, 2*len(dims))
	ranks := make([]int, len(dims)-1)
	for i, d := range dims {
		opDims[i] = d
		opDims[len(dims)+i] = d
	}
	for i := range ranks {
		ranks[i] = rank
	}
	r, err := tt.Random(2, opDims, ranks, rng)
	require.NoError(t, err)
	r.Scale(1 / r.FrobNorm())
	rt := r.Clone()
	require.NoError(t, rt.Transpose())
	gram, err := tt.Apply(rt, r)
	require.NoError(t, err)

	a, err := tt.Identity(opDims)
	require.NoError(t, err)
	require.NoError(t, a.AddAssign(gram))
	require.NoError(t, a.Validate())
	return a
}

func residualNorm(t *testing.T, a, x, b *tt.Network) float64 {
	t.Helper()
	ax, err := tt.Apply(a, x)
	require.NoError(t, err)
	r, err := tt.Sub(b, ax)
	require.NoError(t, err)
	return r.FrobNorm()
}

func TestSteepestDescentOnSPDOperator(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	dims := []int{10, 10, 10}

	a := randomSPDOperator(t, dims, 1, rng)
	b, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)
	x, err := tt.Random(1, dims, []int{4, 4}, rng)
	require.NoError(t, err)

	initial := residualNorm(t, a, x, b)

	variant := SteepestDescent
	variant.NumSteps = 20
	variant.AssumeSymmetricPositiveDefiniteOperator = true

	pd := perf.New("steepest descent on random SPD operator")
	final, err := variant.Solve(a, x, b, pd)
	require.NoError(t, err)

	assert.Less(t, final, initial/10)

	// The residual norm shrinks essentially monotonically.
	for i := 1; i < len(pd.Data); i++ {
		assert.Less(t, pd.Data[i].Residual, 1.1*pd.Data[i-1].Residual)
	}
}

func TestSteepestDescentProjection(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	dims := []int{5, 5, 5}

	b, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)
	x, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)

	variant := SteepestDescent
	variant.NumSteps = 5

	final, err := variant.Solve(nil, x, b, perf.NoPerfData)
	require.NoError(t, err)
	assert.Less(t, final, 1e-8*b.FrobNorm())
}

func TestALSRetractionProjection(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	dims := []int{4, 4, 4}

	b, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)
	x, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)

	variant := SteepestDescent
	variant.NumSteps = 10
	variant.Retraction = ALSRetraction

	final, err := variant.Solve(nil, x, b, perf.NoPerfData)
	require.NoError(t, err)
	assert.Less(t, final, 1e-6*b.FrobNorm())
}

func TestHOSVDRetraction(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	dims := []int{5, 5, 5}

	a := randomSPDOperator(t, dims, 1, rng)
	b, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)
	x, err := tt.Random(1, dims, []int{3, 3}, rng)
	require.NoError(t, err)

	initial := residualNorm(t, a, x, b)

	variant := SteepestDescent
	variant.NumSteps = 20
	variant.AssumeSymmetricPositiveDefiniteOperator = true
	variant.Retraction = NewHOSVDRankRetraction(3)

	final, err := variant.Solve(a, x, b, perf.NoPerfData)
	require.NoError(t, err)
	assert.Less(t, final, initial)
}

func TestGeometricCGOnSPDOperator(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	dims := []int{6, 6, 6}

	a := randomSPDOperator(t, dims, 1, rng)
	b, err := tt.Random(1, dims, []int{2, 2}, rng)
	require.NoError(t, err)
	x, err := tt.Random(1, dims, []int{3, 3}, rng)
	require.NoError(t, err)

	initial := residualNorm(t, a, x, b)

	for _, rule := range []BetaRule{FletcherReeves, PolakRibiere} {
		variant := GeometricCG
		variant.NumSteps = 20
		variant.AssumeSymmetricPositiveDefiniteOperator = true
		variant.Beta = rule

		iterate := x.Clone()
		final, err := variant.Solve(a, iterate, b, perf.NoPerfData)
		require.NoError(t, err)
		assert.Less(t, final, initial)
	}
}

func TestSolverArgumentErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	x, err := tt.Random(1, []int{3, 3}, []int{2}, rng)
	require.NoError(t, err)

	variant := SteepestDescent
	variant.NumSteps = 1
	_, err = variant.Solve(x, x.Clone(), x.Clone(), perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrUnsupported)

	variant.Retraction = nil
	_, err = variant.Solve(nil, x.Clone(), x.Clone(), perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrInvalidArgument)

	cg := GeometricCG
	cg.NumSteps = 1
	_, err = cg.Solve(nil, x.Clone(), x.Clone(), perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrUnsupported)
}
