// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dense

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeBasics(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.True(t, s.Equal(Shape{2, 3, 4}))
	assert.False(t, s.Equal(Shape{2, 3}))
	assert.NoError(t, s.Validate())
	assert.Error(t, Shape{2, 0}.Validate())

	scalar := Shape{}
	assert.Equal(t, 1, scalar.NumElements())
}

func TestAtSetAndFactor(t *testing.T) {
	x, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, 5.0, x.At(1, 1))
	x.Scale(2)
	assert.Equal(t, 10.0, x.At(1, 1))
	assert.True(t, x.HasFactor())

	// Setting folds the factor in first.
	x.Set(7, 0, 0)
	assert.False(t, x.HasFactor())
	assert.Equal(t, 7.0, x.At(0, 0))
	assert.Equal(t, 10.0, x.At(1, 1))
}

func TestAddScaled(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3, 4}, 2, 2)
	y, _ := FromSlice([]float64{10, 20, 30, 40}, 2, 2)
	y.Scale(0.1)

	require.NoError(t, x.AddScaled(2, y))
	assert.InDelta(t, 3.0, x.At(0, 0), 1e-14)
	assert.InDelta(t, 12.0, x.At(1, 1), 1e-14)

	assert.Error(t, x.Add(Ones(3)))
}

func TestFrobNorm(t *testing.T) {
	x, _ := FromSlice([]float64{3, 4}, 2)
	assert.InDelta(t, 5.0, x.FrobNorm(), 1e-14)
	x.Scale(-2)
	assert.InDelta(t, 10.0, x.FrobNorm(), 1e-14)
}

func TestContractMatMul(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b, _ := FromSlice([]float64{7, 8, 9, 10, 11, 12}, 3, 2)

	c, err := Contract(a, b, 1)
	require.NoError(t, err)
	require.True(t, c.Shape().Equal(Shape{2, 2}))
	assert.InDelta(t, 58.0, c.At(0, 0), 1e-12)
	assert.InDelta(t, 64.0, c.At(0, 1), 1e-12)
	assert.InDelta(t, 139.0, c.At(1, 0), 1e-12)
	assert.InDelta(t, 154.0, c.At(1, 1), 1e-12)
}

func TestContractOuterAndFull(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2}, 2)
	b, _ := FromSlice([]float64{3, 4, 5}, 3)

	outer, err := Contract(a, b, 0)
	require.NoError(t, err)
	require.True(t, outer.Shape().Equal(Shape{2, 3}))
	assert.InDelta(t, 10.0, outer.At(1, 2), 1e-14)

	full, err := Contract(a, a, 1)
	require.NoError(t, err)
	require.Equal(t, 0, full.Degree())
	assert.InDelta(t, 5.0, full.AtFlat(0), 1e-14)

	_, err = Contract(a, b, 1)
	assert.Error(t, err)
}

func TestContractFactors(t *testing.T) {
	a := Ones(2, 2)
	a.Scale(3)
	b := Ones(2, 2)
	b.Scale(-2)

	c, err := Contract(a, b, 1)
	require.NoError(t, err)
	assert.InDelta(t, -12.0, c.At(0, 0), 1e-14)
}

func TestSVDReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := Randn(rng, 4, 2, 3)

	u, s, vt, rank, err := SVD(x, 1, SVDOptions{})
	require.NoError(t, err)
	require.True(t, rank <= 4)

	us := MustContract(u, s, 1)
	rec := MustContract(us, vt, 1)
	diff := rec.Clone()
	require.NoError(t, diff.AddScaled(-1, x))
	assert.Less(t, diff.FrobNorm(), 1e-12*x.FrobNorm())

	// Orthonormal columns of U.
	gram := MustContract(u.Transpose(1, 0), u, 1)
	for i := 0; i < rank; i++ {
		for j := 0; j < rank; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-12)
		}
	}
}

func TestSVDTruncation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := Randn(rng, 6, 6)

	_, s, _, rank, err := SVD(x, 1, SVDOptions{MaxRank: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
	assert.True(t, s.At(0, 0) >= s.At(1, 1))

	// Soft thresholding shrinks every singular value.
	_, sFull, _, _, err := SVD(x, 1, SVDOptions{})
	require.NoError(t, err)
	tau := sFull.At(1, 1)
	_, sSoft, _, softRank, err := SVD(x, 1, SVDOptions{SoftThreshold: tau})
	require.NoError(t, err)
	assert.InDelta(t, sFull.At(0, 0)-tau, sSoft.At(0, 0), 1e-12)
	assert.LessOrEqual(t, softRank, 2)
}

func TestQRReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	x := Randn(rng, 3, 2, 4)

	q, r, err := QR(x, 2)
	require.NoError(t, err)

	rec := MustContract(q, r, 1)
	diff := rec.Clone()
	require.NoError(t, diff.AddScaled(-1, x))
	assert.Less(t, diff.FrobNorm(), 1e-12*x.FrobNorm())

	k := q.Dim(-1)
	gram := MustContract(q.Reshaped(6, k).Transpose(1, 0), q.Reshaped(6, k), 1)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-12)
		}
	}
}

func TestLQReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	x := Randn(rng, 3, 2, 4)

	l, q, err := LQ(x, 1)
	require.NoError(t, err)

	rec := MustContract(l, q, 1)
	diff := rec.Clone()
	require.NoError(t, diff.AddScaled(-1, x))
	assert.Less(t, diff.FrobNorm(), 1e-12*x.FrobNorm())

	// Orthonormal rows of Q.
	k := q.Dim(0)
	qm := q.Reshaped(k, 8)
	gram := MustContract(qm, qm.Transpose(1, 0), 1)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-12)
		}
	}
}

func TestTransposeAndFixAxis(t *testing.T) {
	x, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)

	xt := x.Transpose(1, 0)
	require.True(t, xt.Shape().Equal(Shape{3, 2}))
	assert.Equal(t, x.At(1, 2), xt.At(2, 1))

	row := x.FixAxis(0, 1)
	require.True(t, row.Shape().Equal(Shape{3}))
	assert.Equal(t, 5.0, row.At(1))

	col := x.FixAxis(1, 2)
	require.True(t, col.Shape().Equal(Shape{2}))
	assert.Equal(t, 6.0, col.At(1))
}

func TestDirac(t *testing.T) {
	d := Dirac(Shape{2, 3}, 1, 2)
	assert.Equal(t, 1.0, d.At(1, 2))
	assert.InDelta(t, 1.0, d.FrobNorm(), 1e-15)
}

func TestReinterpret(t *testing.T) {
	x := Ones(2, 3)
	x.Reinterpret(6)
	assert.Equal(t, 1, x.Degree())
	assert.Panics(t, func() { x.Reinterpret(4) })
}

func TestRandnSeeded(t *testing.T) {
	a := Randn(rand.New(rand.NewSource(3)), 5, 5)
	b := Randn(rand.New(rand.NewSource(3)), 5, 5)
	diff := a.Clone()
	require.NoError(t, diff.AddScaled(-1, b))
	assert.Equal(t, 0.0, diff.FrobNorm())
	assert.False(t, math.IsNaN(a.FrobNorm()))
}
