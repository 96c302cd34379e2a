// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dense implements the dense tensor primitive underlying the
// tensor-train layer: a float64 multi-dimensional array with row-major
// layout and a lazy scalar prefactor, plus the contraction and
// factorization operations the chain algorithms are built from.
package dense

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor is a dense multi-dimensional float64 array.
//
// Every tensor carries a scalar prefactor: the represented value at a
// position is factor * data[position]. Scaling a tensor is therefore O(1);
// operations that need the plain entries fold the factor in first.
type Tensor struct {
	shape  Shape
	data   []float64
	factor float64
}

// New creates a zero-initialized tensor with the given shape.
func New(shape ...int) *Tensor {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(err) // Shape validation should prevent this
	}
	return &Tensor{
		shape:  s.Clone(),
		data:   make([]float64, s.NumElements()),
		factor: 1,
	}
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", s, s.NumElements(), len(data))
	}
	t := New(shape...)
	copy(t.data, data)
	return t, nil
}

// Scalar creates an order-0 tensor holding a single value.
func Scalar(v float64) *Tensor {
	t := New()
	t.data[0] = v
	return t
}

// Ones creates a tensor filled with ones.
func Ones(shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = 1
	}
	return t
}

// Dirac creates a tensor with a single unit entry at the given position.
func Dirac(shape Shape, position ...int) *Tensor {
	t := New(shape...)
	t.Set(1, position...)
	return t
}

// Randn creates a tensor with entries drawn from N(0, 1).
// Note: uses math/rand (not crypto/rand) - appropriate for numerical purposes.
func Randn(rng *rand.Rand, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = rng.NormFloat64()
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Degree returns the number of axes.
func (t *Tensor) Degree() int {
	return len(t.shape)
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	return t.shape.NumElements()
}

// Dim returns the size of the given axis. Negative indices count from the
// back, so Dim(-1) is the last axis.
func (t *Tensor) Dim(axis int) int {
	if axis < 0 {
		axis += len(t.shape)
	}
	return t.shape[axis]
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		shape:  t.shape.Clone(),
		data:   make([]float64, len(t.data)),
		factor: t.factor,
	}
	copy(c.data, t.data)
	return c
}

// Reinterpret changes the shape without touching the data. The total number
// of elements must stay the same.
func (t *Tensor) Reinterpret(shape ...int) *Tensor {
	s := Shape(shape)
	if s.NumElements() != len(t.data) {
		panic(fmt.Sprintf("cannot reinterpret shape %v as %v", t.shape, s))
	}
	t.shape = s.Clone()
	return t
}

// Reshaped returns a copy of the tensor with a new shape over the same data.
func (t *Tensor) Reshaped(shape ...int) *Tensor {
	c := t.Clone()
	c.Reinterpret(shape...)
	return c
}

// flatIndex computes the row-major offset of a multi-index.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := 0
	strides := t.shape.ComputeStrides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.factor * t.data[t.flatIndex(indices)]
}

// AtFlat returns the element at the given row-major offset.
func (t *Tensor) AtFlat(i int) float64 {
	return t.factor * t.data[i]
}

// Set sets the element at the given indices.
func (t *Tensor) Set(value float64, indices ...int) {
	t.ApplyFactor()
	t.data[t.flatIndex(indices)] = value
}

// SetFlat sets the element at the given row-major offset.
func (t *Tensor) SetFlat(value float64, i int) {
	t.ApplyFactor()
	t.data[i] = value
}

// Factor returns the scalar prefactor.
func (t *Tensor) Factor() float64 {
	return t.factor
}

// HasFactor reports whether the prefactor is non-trivial.
func (t *Tensor) HasFactor() bool {
	return t.factor != 1
}

// Scale multiplies the tensor by a scalar. O(1).
func (t *Tensor) Scale(alpha float64) *Tensor {
	t.factor *= alpha
	return t
}

// ApplyFactor folds the prefactor into the stored data.
func (t *Tensor) ApplyFactor() *Tensor {
	if t.factor != 1 {
		for i := range t.data {
			t.data[i] *= t.factor
		}
		t.factor = 1
	}
	return t
}

// Data returns the factor-applied backing slice.
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	t.ApplyFactor()
	return t.data
}

// Add adds another tensor of the same shape: t += other.
func (t *Tensor) Add(other *Tensor) error {
	return t.AddScaled(1, other)
}

// AddScaled adds alpha times another tensor of the same shape.
func (t *Tensor) AddScaled(alpha float64, other *Tensor) error {
	if !t.shape.Equal(other.shape) {
		return fmt.Errorf("shape mismatch in addition: %v vs %v", t.shape, other.shape)
	}
	t.ApplyFactor()
	c := alpha * other.factor
	for i := range t.data {
		t.data[i] += c * other.data[i]
	}
	return nil
}

// FrobNorm returns the Frobenius norm of the tensor.
func (t *Tensor) FrobNorm() float64 {
	sum := 0.0
	for _, v := range t.data {
		sum += v * v
	}
	return math.Abs(t.factor) * math.Sqrt(sum)
}

// FixAxis returns a copy with the given axis fixed to idx, dropping it.
func (t *Tensor) FixAxis(axis, idx int) *Tensor {
	if axis < 0 || axis >= len(t.shape) {
		panic(fmt.Sprintf("axis %d out of range for degree %d", axis, len(t.shape)))
	}
	if idx < 0 || idx >= t.shape[axis] {
		panic(fmt.Sprintf("index %d out of bounds for axis %d (size %d)", idx, axis, t.shape[axis]))
	}
	outShape := make(Shape, 0, len(t.shape)-1)
	outShape = append(outShape, t.shape[:axis]...)
	outShape = append(outShape, t.shape[axis+1:]...)

	outer := 1
	for _, d := range t.shape[:axis] {
		outer *= d
	}
	inner := 1
	for _, d := range t.shape[axis+1:] {
		inner *= d
	}

	out := New(outShape...)
	out.factor = t.factor
	for o := 0; o < outer; o++ {
		src := (o*t.shape[axis] + idx) * inner
		copy(out.data[o*inner:(o+1)*inner], t.data[src:src+inner])
	}
	return out
}

// Transpose returns a copy with axes permuted: out axis i holds the data of
// input axis perm[i].
func (t *Tensor) Transpose(perm ...int) *Tensor {
	if len(perm) != len(t.shape) {
		panic(fmt.Sprintf("permutation length %d does not match degree %d", len(perm), len(t.shape)))
	}
	outShape := make(Shape, len(perm))
	for i, p := range perm {
		outShape[i] = t.shape[p]
	}
	out := New(outShape...)
	out.factor = t.factor

	inStrides := t.shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	idx := make([]int, len(perm))
	for flat := 0; flat < len(out.data); flat++ {
		rem := flat
		for i, s := range outStrides {
			idx[i] = rem / s
			rem %= s
		}
		src := 0
		for i, p := range perm {
			src += idx[i] * inStrides[p]
		}
		out.data[flat] = t.data[src]
	}
	return out
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}
