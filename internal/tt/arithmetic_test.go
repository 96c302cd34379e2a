// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainkit-ml/trainkit/internal/dense"
)

func TestOnesAddAndRound(t *testing.T) {
	x, err := Ones(arityTensor, []int{3, 3, 3})
	require.NoError(t, err)
	y, err := Ones(arityTensor, []int{3, 3, 3})
	require.NoError(t, err)

	z, err := Add(x, y)
	require.NoError(t, err)
	require.NoError(t, z.Validate())

	require.NoError(t, z.Round(nil, 1e-12))
	assert.Equal(t, []int{1, 1}, z.Ranks())

	full := z.ToDense()
	for i := 0; i < full.Size(); i++ {
		assert.InDelta(t, 2.0, full.AtFlat(i), 1e-12)
	}
}

func TestOnesIsAllOnes(t *testing.T) {
	x, err := Ones(arityTensor, []int{2, 3, 2})
	require.NoError(t, err)
	require.NoError(t, x.Validate())
	assert.Equal(t, []int{1, 1}, x.Ranks())

	full := x.ToDense()
	for i := 0; i < full.Size(); i++ {
		assert.InDelta(t, 1.0, full.AtFlat(i), 1e-12)
	}
}

func TestAddMatchesDense(t *testing.T) {
	x := randTensorChain(t, 53, []int{4, 4, 4}, []int{2, 2})
	y := randTensorChain(t, 59, []int{4, 4, 4}, []int{1, 1})

	wantRanks := []int{3, 3}

	z, err := Add(x, y)
	require.NoError(t, err)
	require.NoError(t, z.Validate())
	assert.Equal(t, []int{4, 4, 4}, z.Dims())
	assert.Equal(t, wantRanks, z.Ranks())

	want := x.ToDense()
	require.NoError(t, want.Add(y.ToDense()))
	diff := z.ToDense()
	require.NoError(t, diff.AddScaled(-1, want))
	assert.Less(t, diff.FrobNorm(), 1e-10*want.FrobNorm())

	// Mismatched dimensions are rejected.
	w := randTensorChain(t, 61, []int{3, 3, 3}, []int{2, 2})
	_, err = Add(x, w)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSubIsZero(t *testing.T) {
	x := randTensorChain(t, 67, []int{3, 3, 3}, []int{2, 2})
	z, err := Sub(x, x)
	require.NoError(t, err)
	assert.Less(t, z.FrobNorm(), 1e-10*x.FrobNorm())
}

func TestScaleTouchesOnlyTheCore(t *testing.T) {
	x := randTensorChain(t, 71, []int{3, 3, 3}, []int{2, 2})
	require.NoError(t, x.MoveCore(1, false))
	norm := x.FrobNorm()

	x.Scale(-3)
	require.NoError(t, x.Validate())
	assert.InDelta(t, 3*norm, x.FrobNorm(), 1e-10*norm)

	canonical, corePos := x.IsCanonical()
	assert.True(t, canonical)
	assert.Equal(t, 1, corePos)
}

func TestEntrywiseProductMatchesDense(t *testing.T) {
	x := randTensorChain(t, 73, []int{3, 3, 3}, []int{2, 2})
	y := randTensorChain(t, 79, []int{3, 3, 3}, []int{2, 2})

	z, err := EntrywiseProduct(x, y)
	require.NoError(t, err)
	require.NoError(t, z.Validate())

	xd, yd, zd := x.ToDense(), y.ToDense(), z.ToDense()
	for i := 0; i < zd.Size(); i++ {
		assert.InDelta(t, xd.AtFlat(i)*yd.AtFlat(i), zd.AtFlat(i), 1e-10)
	}
}

func TestEntrywiseSquare(t *testing.T) {
	// Short chains use the symmetric packing, longer ones the full
	// Kronecker ranks; both must square the entries.
	for _, dims := range [][]int{{4, 4}, {3, 3, 3, 3}} {
		ranks := make([]int, len(dims)-1)
		for i := range ranks {
			ranks[i] = 2
		}
		x := randTensorChain(t, 83, dims, ranks)
		want := x.ToDense()

		require.NoError(t, x.EntrywiseSquare())
		require.NoError(t, x.Validate())

		got := x.ToDense()
		for i := 0; i < got.Size(); i++ {
			assert.InDelta(t, want.AtFlat(i)*want.AtFlat(i), got.AtFlat(i), 1e-10)
		}
	}
}

func TestDyadicProductIsOuterProduct(t *testing.T) {
	x := randTensorChain(t, 89, []int{2, 3}, []int{2})
	y := randTensorChain(t, 97, []int{3, 2}, []int{2})

	z, err := DyadicProduct(x, y)
	require.NoError(t, err)
	require.NoError(t, z.Validate())
	assert.Equal(t, []int{2, 3, 3, 2}, z.Dims())

	want := dense.MustContract(x.ToDense(), y.ToDense(), 0)
	diff := z.ToDense()
	require.NoError(t, diff.AddScaled(-1, want))
	assert.Less(t, diff.FrobNorm(), 1e-10*want.FrobNorm())
}

func TestDyadicProductWithScalar(t *testing.T) {
	x := randTensorChain(t, 101, []int{2, 2}, []int{2})
	s, err := Zero(arityTensor, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetComponent(0, dense.Scalar(2)))

	z, err := DyadicProduct(s, x)
	require.NoError(t, err)
	diff := z.ToDense()
	want := x.ToDense()
	want.Scale(2)
	require.NoError(t, diff.AddScaled(-1, want))
	assert.Less(t, diff.FrobNorm(), 1e-12*want.FrobNorm())
}

func TestFindLargestEntryUnitTensor(t *testing.T) {
	full := dense.Dirac(dense.Shape{5, 5, 5, 5}, 1, 2, 3, 4)
	x, err := FromDense(full, arityTensor, nil, 0)
	require.NoError(t, err)

	pos, err := x.FindLargestEntry(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1*125+2*25+3*5+4, pos)
}

func TestFindLargestEntryGeneral(t *testing.T) {
	// A dominant entry on top of small noise; the chain has full ranks, so
	// the squaring loop runs.
	rng := rand.New(rand.NewSource(103))
	full := dense.Randn(rng, 3, 3, 3)
	full.Scale(0.1)
	full.Set(10, 1, 2, 0)
	x, err := FromDense(full, arityTensor, nil, 0)
	require.NoError(t, err)

	sum := 0
	for _, r := range x.Ranks() {
		sum += r
	}
	require.GreaterOrEqual(t, sum, x.Degree())

	pos, err := x.FindLargestEntry(0.1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1*9+2*3+0, pos)
}

func TestRandomRespectsFeasibleRanks(t *testing.T) {
	x, err := Random(arityTensor, []int{2, 2, 2}, []int{10, 10}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NoError(t, x.Validate())
	assert.Equal(t, []int{2, 2}, x.Ranks())
}
