// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package perf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// Histogram buckets convergence-rate samples on a logarithmic scale: bucket
// i collects the time spent converging at a rate whose log falls in
// [i, i+1).
type Histogram struct {
	Base      float64
	TotalTime int64
	Buckets   map[int]int64
}

// NewHistogram derives a histogram from recorded data points. For each pair
// of consecutive iterates with decreasing residual the convergence-rate
// model is x_2 = x_1 * 2^(-rate * dt); the elapsed time dt is added to the
// bucket of log_base(rate).
func NewHistogram(data []DataPoint, base float64) *Histogram {
	h := &Histogram{Base: base, Buckets: make(map[int]int64)}
	for i := 1; i < len(data); i++ {
		if data[i].Residual >= data[i-1].Residual {
			continue
		}
		relativeChange := data[i].Residual / data[i-1].Residual
		exponent := math.Log(relativeChange) / math.Log(2)
		dt := data[i].ElapsedTime - data[i-1].ElapsedTime
		if dt <= 0 {
			continue
		}
		rate := -exponent / float64(dt)
		logRate := int(math.Floor(math.Log(rate) / math.Log(base)))
		h.Buckets[logRate] += dt
		h.TotalTime += dt
	}
	return h
}

// Merge adds another histogram of the same base into this one.
func (h *Histogram) Merge(other *Histogram) error {
	if math.Abs(h.Base-other.Base) > 1e-12*math.Abs(h.Base) {
		return fmt.Errorf("only histograms of identical base can be merged: %v vs %v", h.Base, other.Base)
	}
	for b, count := range other.Buckets {
		h.Buckets[b] += count
	}
	h.TotalTime += other.TotalTime
	return nil
}

// bucketRange returns the smallest and largest used bucket index.
func (h *Histogram) bucketRange() (int, int) {
	first := true
	var lo, hi int
	for b := range h.Buckets {
		if first || b < lo {
			lo = b
		}
		if first || b > hi {
			hi = b
		}
		first = false
	}
	return lo, hi
}

// Dump writes the histogram: the raw bucket data as commented lines, then
// one plottable "rate share" line per bucket index covering the used range
// plus one bucket of margin on each side.
func (h *Histogram) Dump(w io.Writer) error {
	if _, err := io.WriteString(w, "# raw data:\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# %v %d\n", h.Base, h.TotalTime); err != nil {
		return err
	}
	indices := make([]int, 0, len(h.Buckets))
	for b := range h.Buckets {
		indices = append(indices, b)
	}
	sort.Ints(indices)
	if _, err := io.WriteString(w, "#"); err != nil {
		return err
	}
	for _, b := range indices {
		if _, err := fmt.Fprintf(w, " %d %d", b, h.Buckets[b]); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n# plotable data:\n"); err != nil {
		return err
	}

	if len(h.Buckets) == 0 {
		return nil
	}
	lo, hi := h.bucketRange()
	for i := lo - 1; i <= hi+1; i++ {
		if _, err := fmt.Fprintf(w, "%v ", math.Pow(h.Base, float64(i))); err != nil {
			return err
		}
		if count, ok := h.Buckets[i]; ok {
			if _, err := fmt.Fprintf(w, "%v\n", float64(count)/float64(h.TotalTime)); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "0\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// DumpToFile writes the histogram to the given file.
func (h *Histogram) DumpToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := h.Dump(f); err != nil {
		return err
	}
	return f.Close()
}

// ReadHistogramFile parses a histogram file written by DumpToFile and
// verifies that the bucket counts account for the recorded total time.
func ReadHistogramFile(path string) (*Histogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() || scanner.Text() != "# raw data:" {
		return nil, fmt.Errorf("unknown histogram file format in %s", path)
	}
	if !scanner.Scan() {
		return nil, fmt.Errorf("missing information in histogram file %s", path)
	}
	h := &Histogram{Buckets: make(map[int]int64)}
	if _, err := fmt.Sscanf(scanner.Text(), "# %v %d", &h.Base, &h.TotalTime); err != nil {
		return nil, fmt.Errorf("missing information in histogram file %s: %w", path, err)
	}
	if !scanner.Scan() {
		return nil, fmt.Errorf("missing bucket data in histogram file %s", path)
	}
	fields := strings.Fields(strings.TrimPrefix(scanner.Text(), "#"))
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("missing bucket count in histogram file %s", path)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		var bucket int
		var count int64
		if _, err := fmt.Sscanf(fields[i], "%d", &bucket); err != nil {
			return nil, fmt.Errorf("bad bucket index in histogram file %s: %w", path, err)
		}
		if _, err := fmt.Sscanf(fields[i+1], "%d", &count); err != nil {
			return nil, fmt.Errorf("bad bucket count in histogram file %s: %w", path, err)
		}
		h.Buckets[bucket] = count
	}

	var accounted int64
	for _, count := range h.Buckets {
		accounted += count
	}
	if accounted != h.TotalTime {
		return nil, fmt.Errorf("histogram data inconsistent in file %s: %d counted vs %d total", path, accounted, h.TotalTime)
	}
	return h, nil
}
