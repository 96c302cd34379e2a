// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package solve implements the iterative solvers operating on tensor-train
// chains: alternating direction fitting against point measurements, and the
// steepest-descent family on the fixed-rank manifold with pluggable
// retractions.
package solve

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/trainkit-ml/trainkit/internal/tt"
)

// SinglePointMeasurementSet holds point measurements of a tensor: index
// tuples and the measured value at each.
type SinglePointMeasurementSet struct {
	Positions [][]int
	Values    []float64
}

// Add appends one measurement.
func (s *SinglePointMeasurementSet) Add(position []int, value float64) {
	s.Positions = append(s.Positions, append([]int(nil), position...))
	s.Values = append(s.Values, value)
}

// Size returns the number of measurements.
func (s *SinglePointMeasurementSet) Size() int {
	return len(s.Positions)
}

// Degree returns the length of the measurement tuples.
func (s *SinglePointMeasurementSet) Degree() int {
	if len(s.Positions) == 0 {
		return 0
	}
	return len(s.Positions[0])
}

// Norm returns the Euclidean norm of the measured values.
func (s *SinglePointMeasurementSet) Norm() float64 {
	sum := 0.0
	for _, v := range s.Values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Sort orders the measurements lexicographically by position. The fitting
// sweep exploits this order to share partial contractions between
// measurements with a common index prefix.
func (s *SinglePointMeasurementSet) Sort() {
	order := make([]int, len(s.Positions))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return lessPositions(s.Positions[order[a]], s.Positions[order[b]])
	})

	positions := make([][]int, len(order))
	values := make([]float64, len(order))
	for k, idx := range order {
		positions[k] = s.Positions[idx]
		values[k] = s.Values[idx]
	}
	s.Positions = positions
	s.Values = values
}

func lessPositions(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// lessReversed compares two position tuples by their reversed order, the
// order in which measurements share common suffixes.
func lessReversed(a, b []int) bool {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// RandomMeasurements draws the given number of distinct positions uniformly
// from the index space spanned by dims, with all values zero.
func RandomMeasurements(dims []int, num int, rng *rand.Rand) (*SinglePointMeasurementSet, error) {
	total := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dimension %d", tt.ErrInvalidArgument, d)
		}
		total *= d
	}
	if num > total {
		return nil, fmt.Errorf("%w: cannot draw %d distinct measurements from %d positions", tt.ErrInvalidArgument, num, total)
	}

	seen := make(map[string]bool, num)
	set := &SinglePointMeasurementSet{}
	for set.Size() < num {
		pos := make([]int, len(dims))
		for i, d := range dims {
			pos[i] = rng.Intn(d)
		}
		key := fmt.Sprint(pos)
		if seen[key] {
			continue
		}
		seen[key] = true
		set.Positions = append(set.Positions, pos)
		set.Values = append(set.Values, 0)
	}
	return set, nil
}

// MeasureChain fills the measured values by evaluating the given chain at
// every position.
func (s *SinglePointMeasurementSet) MeasureChain(x *tt.Network) error {
	if s.Degree() != x.Degree() {
		return fmt.Errorf("%w: measurement degree %d vs chain degree %d", tt.ErrDimensionMismatch, s.Degree(), x.Degree())
	}
	for i, pos := range s.Positions {
		s.Values[i] = x.At(pos...)
	}
	return nil
}

// TestSolution returns the relative residual of a candidate solution over
// the measured positions.
func (s *SinglePointMeasurementSet) TestSolution(x *tt.Network) float64 {
	var residual, norm float64
	for i, pos := range s.Positions {
		diff := x.At(pos...) - s.Values[i]
		residual += diff * diff
		norm += s.Values[i] * s.Values[i]
	}
	if norm == 0 {
		return math.Sqrt(residual)
	}
	return math.Sqrt(residual / norm)
}
