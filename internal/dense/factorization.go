// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dense

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// machineEpsilon is the tolerance below which singular values are treated as
// numerical rank deficiency relative to the largest one.
const machineEpsilon = 1e-15

// SVDOptions control truncation of a singular value decomposition.
type SVDOptions struct {
	// MaxRank caps the number of retained singular values. Zero means
	// unbounded.
	MaxRank int
	// Epsilon drops singular values s_k with s_k < Epsilon * s_0.
	Epsilon float64
	// SoftThreshold replaces every singular value s by max(s - tau, 0)
	// before truncation.
	SoftThreshold float64
	// PreventZero keeps the largest singular value above a floor of
	// s_0 * machine epsilon even when soft thresholding would annihilate it.
	PreventZero bool
}

// SVD computes a truncated singular value decomposition of the tensor
// unfolded into a matrix between axis splitPos-1 and splitPos:
//
//	T = U * S * Vt
//
// U has orthonormal columns, Vt orthonormal rows, and S is the diagonal
// matrix of retained singular values in non-increasing order. The returned
// rank is the number of retained values; it is always at least one.
func SVD(t *Tensor, splitPos int, opt SVDOptions) (u, s, vt *Tensor, rank int, err error) {
	if splitPos <= 0 || splitPos >= t.Degree() {
		return nil, nil, nil, 0, fmt.Errorf("invalid SVD split position %d for degree %d", splitPos, t.Degree())
	}
	rows := 1
	for _, d := range t.shape[:splitPos] {
		rows *= d
	}
	cols := t.Size() / rows

	work := t.Clone().ApplyFactor()
	m := mat.NewDense(rows, cols, work.data)

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, nil, nil, 0, fmt.Errorf("SVD of %dx%d matrix failed to converge", rows, cols)
	}

	values := svd.Values(nil)
	rank = truncationRank(values, opt)

	var um, vm mat.Dense
	svd.UTo(&um)
	svd.VTo(&vm)

	u = New(append(t.shape[:splitPos].Clone(), rank)...)
	for i := 0; i < rows; i++ {
		for j := 0; j < rank; j++ {
			u.data[i*rank+j] = um.At(i, j)
		}
	}

	s = New(rank, rank)
	for j := 0; j < rank; j++ {
		s.data[j*rank+j] = values[j]
	}

	vt = New(append(Shape{rank}, t.shape[splitPos:]...)...)
	for j := 0; j < rank; j++ {
		for i := 0; i < cols; i++ {
			vt.data[j*cols+i] = vm.At(i, j)
		}
	}
	return u, s, vt, rank, nil
}

// truncationRank applies soft thresholding and the (maxRank, epsilon)
// truncation rule in place, returning the retained rank. At least one
// singular value is always kept.
func truncationRank(values []float64, opt SVDOptions) int {
	if len(values) == 0 {
		return 0
	}
	s0 := values[0]

	if opt.SoftThreshold > 0 {
		for i, v := range values {
			values[i] = math.Max(v-opt.SoftThreshold, 0)
		}
		if opt.PreventZero && values[0] <= 0 {
			values[0] = math.Abs(s0) * machineEpsilon
		}
		s0 = values[0]
	}

	maxRank := len(values)
	if opt.MaxRank > 0 && opt.MaxRank < maxRank {
		maxRank = opt.MaxRank
	}

	rank := 1
	for rank < maxRank {
		v := values[rank]
		if v <= 0 || v < opt.Epsilon*s0 || (opt.Epsilon == 0 && v < machineEpsilon*s0) {
			break
		}
		rank++
	}
	return rank
}

// QR computes a thin QR decomposition of the tensor unfolded between axis
// splitPos-1 and splitPos: T = Q * R with Q having orthonormal columns and R
// upper triangular.
func QR(t *Tensor, splitPos int) (q, r *Tensor, err error) {
	if splitPos <= 0 || splitPos >= t.Degree() {
		return nil, nil, fmt.Errorf("invalid QR split position %d for degree %d", splitPos, t.Degree())
	}
	rows := 1
	for _, d := range t.shape[:splitPos] {
		rows *= d
	}
	cols := t.Size() / rows
	k := rows
	if cols < k {
		k = cols
	}

	work := t.Clone().ApplyFactor()
	m := mat.NewDense(rows, cols, work.data)

	var qr mat.QR
	qr.Factorize(m)

	var qm, rm mat.Dense
	qr.QTo(&qm)
	qr.RTo(&rm)

	q = New(append(t.shape[:splitPos].Clone(), k)...)
	for i := 0; i < rows; i++ {
		for j := 0; j < k; j++ {
			q.data[i*k+j] = qm.At(i, j)
		}
	}

	r = New(append(Shape{k}, t.shape[splitPos:]...)...)
	for i := 0; i < k; i++ {
		for j := 0; j < cols; j++ {
			r.data[i*cols+j] = rm.At(i, j)
		}
	}
	return q, r, nil
}

// LQ computes the mirrored decomposition T = L * Q with Q having orthonormal
// rows, via a QR factorization of the transposed unfolding.
func LQ(t *Tensor, splitPos int) (l, q *Tensor, err error) {
	if splitPos <= 0 || splitPos >= t.Degree() {
		return nil, nil, fmt.Errorf("invalid LQ split position %d for degree %d", splitPos, t.Degree())
	}
	rows := 1
	for _, d := range t.shape[:splitPos] {
		rows *= d
	}
	cols := t.Size() / rows
	k := rows
	if cols < k {
		k = cols
	}

	work := t.Clone().ApplyFactor()
	m := mat.NewDense(rows, cols, work.data)

	var qr mat.QR
	transposed := mat.DenseCopyOf(m.T())
	qr.Factorize(transposed)

	var qm, rm mat.Dense
	qr.QTo(&qm)
	qr.RTo(&rm)

	// T = (Q~ R~)^T = R~^T Q~^T.
	l = New(append(t.shape[:splitPos].Clone(), k)...)
	for i := 0; i < rows; i++ {
		for j := 0; j < k; j++ {
			l.data[i*k+j] = rm.At(j, i)
		}
	}

	q = New(append(Shape{k}, t.shape[splitPos:]...)...)
	for i := 0; i < k; i++ {
		for j := 0; j < cols; j++ {
			q.data[i*cols+j] = qm.At(j, i)
		}
	}
	return l, q, nil
}
