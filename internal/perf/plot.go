// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package perf

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot renders the histogram's plottable data (rate versus time share)
// to an image file; the format follows the file extension (png, pdf, svg).
func (h *Histogram) SavePlot(path string) error {
	if len(h.Buckets) == 0 {
		return fmt.Errorf("cannot plot an empty histogram")
	}

	p := plot.New()
	p.Title.Text = "convergence rates"
	p.X.Label.Text = fmt.Sprintf("rate (base %v buckets)", h.Base)
	p.Y.Label.Text = "time share"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	lo, hi := h.bucketRange()
	pts := make(plotter.XYs, 0, hi-lo+3)
	for i := lo - 1; i <= hi+1; i++ {
		share := 0.0
		if count, ok := h.Buckets[i]; ok {
			share = float64(count) / float64(h.TotalTime)
		}
		pts = append(pts, plotter.XY{X: math.Pow(h.Base, float64(i)), Y: share})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// SaveResidualPlot renders the recorded residual over elapsed time.
func (p *PerformanceData) SaveResidualPlot(path string) error {
	if len(p.Data) == 0 {
		return fmt.Errorf("cannot plot an empty performance record")
	}

	pl := plot.New()
	pl.Title.Text = "residual"
	pl.X.Label.Text = "time [us]"
	pl.Y.Label.Text = "residual"
	pl.Y.Scale = plot.LogScale{}
	pl.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	pts := make(plotter.XYs, 0, len(p.Data))
	for _, d := range p.Data {
		if d.Residual <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(d.ElapsedTime), Y: d.Residual})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	pl.Add(line, plotter.NewGrid())

	return pl.Save(6*vg.Inch, 4*vg.Inch, path)
}
