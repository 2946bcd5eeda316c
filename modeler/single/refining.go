// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package single

import (
	"flag"
	"io"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modeler"
)

func init() {
	modeler.RegisterSingle(&modeler.Info{
		Name: "refining",
		Doc:  "coarse grid search followed by iterative refinement of the polynomial exponent",
		New:  func() modeler.Modeler { return newRefining() },
	})
}

// Refining searches a coarse exponent grid and then iteratively
// narrows the polynomial exponent with halving steps, separately for
// each log2 exponent, keeping the overall best. It finds fractional
// exponents the fixed grid of Basic misses, at the cost of more
// regressions per pair.
type Refining struct {
	flags *flag.FlagSet

	// AllowLogTerms includes hypotheses with log2 factors in the
	// coarse search.
	AllowLogTerms bool

	// Epsilon is the minimum relative improvement in the residual
	// for a refinement step to be adopted.
	Epsilon float64

	// MaxIterations bounds the number of refinement rounds.
	MaxIterations int
}

func newRefining() *Refining {
	r := &Refining{
		AllowLogTerms: true,
		Epsilon:       1e-3,
		MaxIterations: 8,
	}
	fs := flag.NewFlagSet("refining", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&r.AllowLogTerms, "allow_log_terms", r.AllowLogTerms,
		"include hypotheses with log2 factors in the coarse search")
	fs.Float64Var(&r.Epsilon, "epsilon", r.Epsilon,
		"minimum relative residual improvement to adopt a refinement")
	fs.IntVar(&r.MaxIterations, "max_iterations", r.MaxIterations,
		"maximum number of refinement rounds")
	r.flags = fs
	return r
}

func (r *Refining) Name() string { return "refining" }

func (r *Refining) Flags() *flag.FlagSet { return r.flags }

// Model runs the coarse search and then the refinement loop. Each log
// exponent is refined independently so that a log-shaped coarse winner
// cannot hide a better pure power with a fractional exponent.
func (r *Refining) Model(ms []*experiment.Measurement, opts modeler.FitOpts) (*modeler.Model, error) {
	xs, ys, warnings, err := prepare(ms, opts.UseMedian)
	if err != nil {
		return nil, err
	}

	best := constantCandidate(ys)
	logExps := []float64{0, 1, 2}
	if !r.AllowLogTerms {
		logExps = []float64{0}
	}
	for _, j := range logExps {
		lane, ok := r.coarse(j, xs, ys)
		if !ok {
			continue
		}
		lane = r.refine(lane, xs, ys)
		if lane.rss < best.rss {
			best = lane
		}
	}

	return buildModel(r.Name(), best, ms, opts, warnings), nil
}

// coarse finds the best candidate with log exponent j on the fixed
// power grid.
func (r *Refining) coarse(j float64, xs, ys []float64) (candidate, bool) {
	var best candidate
	found := false
	for _, i := range []float64{0, 1, 2, 3} {
		if i == 0 && j == 0 {
			continue
		}
		if c, ok := fitHypothesis(hypothesis{polyExp: i, logExp: j}, xs, ys); ok && (!found || c.rss < best.rss) {
			best, found = c, true
		}
	}
	return best, found
}

// refine narrows the polynomial exponent around the incumbent, keeping
// its log exponent fixed. The step halves whenever neither neighbor
// improves the fit enough.
func (r *Refining) refine(best candidate, xs, ys []float64) candidate {
	step := 0.5
	for iter := 0; iter < r.MaxIterations && step >= 1e-3; iter++ {
		adopted := false
		for _, d := range []float64{-step, step} {
			h := hypothesis{polyExp: best.h.polyExp + d, logExp: best.h.logExp}
			if h.polyExp < 0 {
				continue
			}
			c, ok := fitHypothesis(h, xs, ys)
			if ok && c.rss < best.rss*(1-r.Epsilon) {
				best = c
				adopted = true
			}
		}
		if !adopted {
			step /= 2
		}
	}
	return best
}
