// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package perf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndDumpFormat(t *testing.T) {
	pd := New("test run\nsecond line")
	pd.AddStep(0, 1.0, []int{2, 3}, 0)
	pd.Add(0.5, []int{2, 3}, 1)

	var buf bytes.Buffer
	require.NoError(t, pd.Dump(&buf))

	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "# test run", lines[0])
	assert.Equal(t, "# second line", lines[1])
	assert.Equal(t, "# ", lines[2])
	assert.Equal(t, "#itr \ttime[us] \tresidual \tflags \tranks...", lines[3])

	fields := strings.Split(lines[4], "\t")
	require.Len(t, fields, 6)
	assert.Equal(t, "0", fields[0])
	assert.Equal(t, "1", fields[2])
	assert.Equal(t, "0", fields[3])
	assert.Equal(t, "2", fields[4])
	assert.Equal(t, "3", fields[5])

	// Iteration count continues automatically.
	fields = strings.Split(lines[5], "\t")
	assert.Equal(t, "1", fields[0])
	assert.Equal(t, "1", fields[3])
}

func TestInactiveCollectorRecordsNothing(t *testing.T) {
	NoPerfData.Add(1.0, nil, 0)
	assert.Empty(t, NoPerfData.Data)

	var nilPD *PerformanceData
	nilPD.Add(1.0, nil, 0) // must not panic
	nilPD.Start()
}

func TestHistogramBuckets(t *testing.T) {
	// Residual halves over 2us: rate = 1/2us, log2(rate) = -1.
	data := []DataPoint{
		{Iteration: 0, ElapsedTime: 0, Residual: 1.0},
		{Iteration: 1, ElapsedTime: 2, Residual: 0.5},
		{Iteration: 2, ElapsedTime: 4, Residual: 0.6}, // non-decreasing, skipped
	}
	h := NewHistogram(data, 2)
	assert.Equal(t, int64(2), h.TotalTime)
	assert.Equal(t, int64(2), h.Buckets[-1])
	assert.Len(t, h.Buckets, 1)
}

func TestHistogramMerge(t *testing.T) {
	a := &Histogram{Base: 2, TotalTime: 3, Buckets: map[int]int64{0: 3}}
	b := &Histogram{Base: 2, TotalTime: 2, Buckets: map[int]int64{0: 1, 1: 1}}
	require.NoError(t, a.Merge(b))
	assert.Equal(t, int64(5), a.TotalTime)
	assert.Equal(t, int64(4), a.Buckets[0])

	c := &Histogram{Base: 10, Buckets: map[int]int64{}}
	assert.Error(t, a.Merge(c))
}

func TestHistogramFileRoundTrip(t *testing.T) {
	h := &Histogram{Base: 2, TotalTime: 7, Buckets: map[int]int64{-2: 3, 1: 4}}

	path := filepath.Join(t.TempDir(), "hist.dat")
	require.NoError(t, h.DumpToFile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")
	assert.Equal(t, "# raw data:", lines[0])
	assert.Equal(t, "# 2 7", lines[1])
	assert.Equal(t, "# -2 3 1 4", lines[2])
	assert.Equal(t, "# plotable data:", lines[3])

	back, err := ReadHistogramFile(path)
	require.NoError(t, err)
	assert.Equal(t, h.Base, back.Base)
	assert.Equal(t, h.TotalTime, back.TotalTime)
	assert.Equal(t, h.Buckets, back.Buckets)
}

func TestReadHistogramFileRejectsInconsistentData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(path, []byte("# raw data:\n# 2 10\n# 0 3\n"), 0o644))
	_, err := ReadHistogramFile(path)
	assert.Error(t, err)
}

func TestSavePlot(t *testing.T) {
	h := &Histogram{Base: 2, TotalTime: 7, Buckets: map[int]int64{-2: 3, 1: 4}}
	path := filepath.Join(t.TempDir(), "hist.png")
	require.NoError(t, h.SavePlot(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
