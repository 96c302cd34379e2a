// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package perfdata provides the public API for recording solver progress
// and exporting it as run logs, convergence-rate histograms and plots.
//
// Example:
//
//	pd := perfdata.New("steepest descent on random operator")
//	_, _ = solve.SteepestDescent.Solve(a, x, b, pd)
//	_ = pd.DumpToFile("run.dat")
//	_ = pd.GetHistogram(2).DumpToFile("rates.dat")
package perfdata

import (
	"github.com/trainkit-ml/trainkit/internal/perf"
)

// PerformanceData collects solver iterates.
type PerformanceData = perf.PerformanceData

// DataPoint is one recorded solver iterate.
type DataPoint = perf.DataPoint

// Histogram buckets convergence-rate samples on a logarithmic scale.
type Histogram = perf.Histogram

// New creates an active collector with the given header annotation.
func New(additionalInformation string) *PerformanceData {
	return perf.New(additionalInformation)
}

// NoPerfData is the shared inactive collector.
var NoPerfData = perf.NoPerfData

// NewHistogram derives a histogram from recorded data points.
func NewHistogram(data []DataPoint, base float64) *Histogram {
	return perf.NewHistogram(data, base)
}

// ReadHistogramFile parses a histogram file written by Histogram.DumpToFile.
func ReadHistogramFile(path string) (*Histogram, error) {
	return perf.ReadHistogramFile(path)
}
