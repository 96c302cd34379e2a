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

func TestMeasurementSetBasics(t *testing.T) {
	set := &SinglePointMeasurementSet{}
	set.Add([]int{1, 0, 2}, 3)
	set.Add([]int{0, 1, 1}, 4)
	set.Add([]int{1, 0, 0}, 5)

	assert.Equal(t, 3, set.Size())
	assert.Equal(t, 3, set.Degree())
	assert.InDelta(t, 7.0710678, set.Norm(), 1e-6)

	set.Sort()
	assert.Equal(t, []int{0, 1, 1}, set.Positions[0])
	assert.Equal(t, 4.0, set.Values[0])
	assert.Equal(t, []int{1, 0, 0}, set.Positions[1])
	assert.Equal(t, []int{1, 0, 2}, set.Positions[2])
}

func TestRandomMeasurementsDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set, err := RandomMeasurements([]int{2, 2, 2}, 8, rng)
	require.NoError(t, err)
	assert.Equal(t, 8, set.Size())

	seen := map[string]bool{}
	for _, pos := range set.Positions {
		key := ""
		for _, p := range pos {
			key += string(rune('0' + p))
		}
		assert.False(t, seen[key])
		seen[key] = true
	}

	_, err = RandomMeasurements([]int{2, 2, 2}, 9, rng)
	assert.ErrorIs(t, err, tt.ErrInvalidArgument)
}

func TestADFRecoversRandomChain(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	truth, err := tt.Random(1, []int{3, 3, 3}, []int{2, 2}, rng)
	require.NoError(t, err)

	// Measure all 27 positions.
	set := &SinglePointMeasurementSet{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				set.Add([]int{i, j, k}, 0)
			}
		}
	}
	require.NoError(t, set.MeasureChain(truth))
	norm := set.Norm()

	x, err := tt.Random(1, []int{3, 3, 3}, []int{2, 2}, rng)
	require.NoError(t, err)

	variant := ADF
	variant.MaxIterations = 50
	variant.TargetResidual = 1e-12

	pd := perf.New("adf recovery")
	residual, err := variant.Solve(x, set, pd)
	require.NoError(t, err)
	assert.Less(t, residual, 1e-10*norm)
	assert.NotEmpty(t, pd.Data)

	// The fitted chain reproduces the measurements.
	assert.Less(t, set.TestSolution(x), 1e-9)
}

func TestADFRandomOrderMeasurements(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	truth, err := tt.Random(1, []int{4, 4, 4}, []int{2, 2}, rng)
	require.NoError(t, err)

	// All positions, drawn in random order; Solve sorts the set before it
	// builds the calculation maps.
	set, err := RandomMeasurements([]int{4, 4, 4}, 64, rng)
	require.NoError(t, err)
	require.NoError(t, set.MeasureChain(truth))

	x, err := tt.Random(1, []int{4, 4, 4}, []int{2, 2}, rng)
	require.NoError(t, err)

	variant := ADF
	variant.MaxIterations = 100
	variant.TargetResidual = 1e-10

	residual, err := variant.Solve(x, set, perf.NoPerfData)
	require.NoError(t, err)
	assert.Less(t, residual, 1e-6*set.Norm())
}

func TestADFArgumentErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x, err := tt.Random(1, []int{3, 3}, []int{2}, rng)
	require.NoError(t, err)

	_, err = ADF.Solve(x, &SinglePointMeasurementSet{}, perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrInvalidArgument)

	set := &SinglePointMeasurementSet{}
	set.Add([]int{0, 0, 0}, 1)
	_, err = ADF.Solve(x, set, perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrDimensionMismatch)

	set = &SinglePointMeasurementSet{}
	set.Add([]int{0, 5}, 1)
	_, err = ADF.Solve(x, set, perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrInvalidArgument)

	op, err := tt.Random(2, []int{2, 2}, nil, rng)
	require.NoError(t, err)
	_, err = ADF.Solve(op, set, perf.NoPerfData)
	assert.ErrorIs(t, err, tt.ErrUnsupported)
}
