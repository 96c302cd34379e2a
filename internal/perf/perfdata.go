// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package perf records per-iteration solver progress (time, residual,
// ranks) and converts it into the text formats used for plotting: a
// tab-separated run log and a bucketed convergence-rate histogram.
package perf

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DataPoint is one recorded solver iterate.
type DataPoint struct {
	Iteration   int
	ElapsedTime int64 // microseconds since Start
	Residual    float64
	Flags       uint64
	Ranks       []int
}

// PerformanceData collects solver iterates. The zero value is inactive and
// the recording methods (Start, AddStep, Add) are nil-safe, so solvers can
// record unconditionally; the dump, histogram and plot methods need a
// non-nil collector:
//
//	perf := perf.New("cg run on random operator")
//	solver.Solve(A, x, b, perf)
//	perf.DumpToFile("run.dat")
type PerformanceData struct {
	// Active enables recording; an inactive collector discards everything.
	Active bool
	// PrintProgress mirrors every data point to Out as it is added.
	PrintProgress bool
	// Out receives progress lines; defaults to os.Stderr.
	Out io.Writer
	// AdditionalInformation is written into the dump header.
	AdditionalInformation string

	Data []DataPoint

	startTime time.Time
	started   bool
}

// New creates an active collector with the given header annotation.
func New(additionalInformation string) *PerformanceData {
	return &PerformanceData{
		Active:                true,
		AdditionalInformation: additionalInformation,
	}
}

// NoPerfData is the shared inactive collector for callers that do not want
// any recording.
var NoPerfData = &PerformanceData{}

// Start resets the collector's clock. Adding a first data point starts the
// clock implicitly.
func (p *PerformanceData) Start() {
	if p == nil {
		return
	}
	p.startTime = time.Now()
	p.started = true
	p.Data = p.Data[:0]
}

// AddStep records a data point with an explicit iteration count.
func (p *PerformanceData) AddStep(iteration int, residual float64, ranks []int, flags uint64) {
	if p == nil || !p.Active {
		return
	}
	if !p.started {
		p.Start()
	}
	d := DataPoint{
		Iteration:   iteration,
		ElapsedTime: time.Since(p.startTime).Microseconds(),
		Residual:    residual,
		Flags:       flags,
		Ranks:       append([]int(nil), ranks...),
	}
	p.Data = append(p.Data, d)

	if p.PrintProgress {
		out := p.Out
		if out == nil {
			out = os.Stderr
		}
		fmt.Fprintf(out, "Iteration %4d Time: %6.2fs Residual: %11e Flags: %d Ranks: %v\n",
			iteration, float64(d.ElapsedTime)*1e-6, residual, flags, ranks)
	}
}

// Add records a data point, continuing the iteration count from the last
// recorded point.
func (p *PerformanceData) Add(residual float64, ranks []int, flags uint64) {
	if p == nil || !p.Active {
		return
	}
	if len(p.Data) == 0 {
		p.AddStep(0, residual, ranks, flags)
	} else {
		p.AddStep(p.Data[len(p.Data)-1].Iteration+1, residual, ranks, flags)
	}
}

// Dump writes the recorded data points in the run-log format: a commented
// header holding the annotation and column names, then one tab-separated
// line per iterate.
func (p *PerformanceData) Dump(w io.Writer) error {
	header := "# " + strings.ReplaceAll(p.AdditionalInformation, "\n", "\n# ")
	header += "\n# \n#itr \ttime[us] \tresidual \tflags \tranks...\n"
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, d := range p.Data {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%v\t%d", d.Iteration, d.ElapsedTime, d.Residual, d.Flags); err != nil {
			return err
		}
		for _, r := range d.Ranks {
			if _, err := fmt.Fprintf(w, "\t%d", r); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// DumpToFile writes the run log to the given file.
func (p *PerformanceData) DumpToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.Dump(f); err != nil {
		return err
	}
	return f.Close()
}

// GetHistogram buckets the recorded convergence rates with the given
// logarithmic base.
func (p *PerformanceData) GetHistogram(base float64) *Histogram {
	return NewHistogram(p.Data, base)
}
