// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tt

import "errors"

// Sentinel errors returned by the tensor-train layer. Callers match them
// with errors.Is; wrapped variants carry call-site context.
var (
	// ErrInvalidArgument is returned for bad rank or dimension tuples,
	// tolerances outside [0, 1), out-of-range core positions and zero
	// ranks.
	ErrInvalidArgument = errors.New("tt: invalid argument")

	// ErrDimensionMismatch is returned when a binary operation meets
	// unequal external dimensions, or a measurement tuple does not match
	// the chain degree.
	ErrDimensionMismatch = errors.New("tt: dimension mismatch")

	// ErrNumericFailure is returned when an underlying factorization does
	// not converge.
	ErrNumericFailure = errors.New("tt: numeric failure")

	// ErrUnsupported is returned for operations outside the implemented
	// surface, such as applying a non-operator chain.
	ErrUnsupported = errors.New("tt: unsupported operation")
)
