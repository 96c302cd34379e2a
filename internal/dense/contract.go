// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dense

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Contract sums over the last m axes of a and the first m axes of b, which
// must agree pairwise. With m == 0 the result is the outer product. The
// result's shape is a's leading axes followed by b's trailing axes, and its
// prefactor is the product of the operands' prefactors.
func Contract(a, b *Tensor, m int) (*Tensor, error) {
	if m < 0 || m > a.Degree() || m > b.Degree() {
		return nil, fmt.Errorf("cannot contract %d axes of tensors with degrees %d and %d", m, a.Degree(), b.Degree())
	}
	inner := 1
	for i := 0; i < m; i++ {
		da := a.shape[a.Degree()-m+i]
		db := b.shape[i]
		if da != db {
			return nil, fmt.Errorf("contracted axes disagree: %v (last %d) vs %v (first %d)", a.shape, m, b.shape, m)
		}
		inner *= da
	}

	rows := a.Size() / inner
	cols := b.Size() / inner

	am := mat.NewDense(rows, inner, a.data)
	bm := mat.NewDense(inner, cols, b.data)
	cm := mat.NewDense(rows, cols, nil)
	cm.Mul(am, bm)

	outShape := make(Shape, 0, a.Degree()-m+b.Degree()-m)
	outShape = append(outShape, a.shape[:a.Degree()-m]...)
	outShape = append(outShape, b.shape[m:]...)

	out := &Tensor{
		shape:  outShape,
		data:   cm.RawMatrix().Data,
		factor: a.factor * b.factor,
	}
	return out, nil
}

// MustContract is Contract for callers that have already validated shapes.
func MustContract(a, b *Tensor, m int) *Tensor {
	out, err := Contract(a, b, m)
	if err != nil {
		panic(err)
	}
	return out
}
