// Copyright 2026 TrainKit ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package main provides the TrainKit benchmark CLI: it solves a random
// symmetric positive definite tensor-train system with steepest descent and
// writes the recorded performance data.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/trainkit-ml/trainkit/perfdata"
	"github.com/trainkit-ml/trainkit/solve"
	"github.com/trainkit-ml/trainkit/tt"
)

func main() {
	var (
		order    = flag.Int("order", 3, "number of external dimensions")
		dim      = flag.Int("dim", 10, "size of each external dimension")
		rank     = flag.Int("rank", 2, "rank of the generated operator and right-hand side")
		iterRank = flag.Int("iterate-rank", 4, "rank structure of the iterate")
		steps    = flag.Int("steps", 20, "maximum number of descent steps")
		seed     = flag.Int64("seed", 1, "random seed")
		out      = flag.String("out", "run.dat", "performance data output file")
		hist     = flag.String("hist", "", "optional histogram output file")
		plotFile = flag.String("plot", "", "optional residual plot output file (png, pdf or svg)")
	)
	flag.Parse()

	if err := run(*order, *dim, *rank, *iterRank, *steps, *seed, *out, *hist, *plotFile); err != nil {
		fmt.Fprintln(os.Stderr, "ttbench:", err)
		os.Exit(1)
	}
}

func run(order, dim, rank, iterRank, steps int, seed int64, out, hist, plotFile string) error {
	rng := rand.New(rand.NewSource(seed))

	dims := make([]int, order)
	opDims := make([]int, 2*order)
	for i := range dims {
		dims[i] = dim
		opDims[i] = dim
		opDims[order+i] = dim
	}
	ranks := make([]int, order-1)
	iterRanks := make([]int, order-1)
	for i := range ranks {
		ranks[i] = rank
		iterRanks[i] = iterRank
	}

	// A = R^T R is symmetric positive semi-definite by construction.
	r, err := tt.RandomOperator(opDims, ranks, rng)
	if err != nil {
		return err
	}
	rt := r.Clone()
	if err := rt.Transpose(); err != nil {
		return err
	}
	a, err := tt.Apply(rt, r)
	if err != nil {
		return err
	}

	b, err := tt.RandomTensor(dims, ranks, rng)
	if err != nil {
		return err
	}
	x, err := tt.RandomTensor(dims, iterRanks, rng)
	if err != nil {
		return err
	}

	pd := perfdata.New(fmt.Sprintf("steepest descent, dims %v, operator ranks %v, iterate ranks %v, seed %d",
		dims, ranks, iterRanks, seed))
	pd.PrintProgress = true

	variant := solve.SteepestDescent
	variant.NumSteps = steps
	variant.AssumeSymmetricPositiveDefiniteOperator = true

	residual, err := variant.Solve(a, x, b, pd)
	if err != nil {
		return err
	}
	fmt.Printf("final residual: %e, iterate ranks: %v\n", residual, x.Ranks())

	if err := pd.DumpToFile(out); err != nil {
		return err
	}
	if hist != "" {
		if err := pd.GetHistogram(2).DumpToFile(hist); err != nil {
			return err
		}
	}
	if plotFile != "" {
		if err := pd.SaveResidualPlot(plotFile); err != nil {
			return err
		}
	}
	return nil
}
