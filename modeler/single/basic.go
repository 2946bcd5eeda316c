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
		Name: "basic",
		Doc:  "exhaustive search over a fixed grid of power and log exponents",
		New:  func() modeler.Modeler { return newBasic() },
	}, "default")
}

// Basic is the default single-parameter strategy. It tries every
// combination of the configured polynomial and logarithmic exponents
// and keeps the best fit.
type Basic struct {
	flags *flag.FlagSet

	// AllowLogTerms includes hypotheses with log2 factors.
	AllowLogTerms bool

	// PolyExponents and LogExponents define the search grid.
	PolyExponents []float64
	LogExponents  []float64
}

func newBasic() *Basic {
	b := &Basic{
		AllowLogTerms: true,
		PolyExponents: []float64{0, 0.5, 1, 1.5, 2, 2.5, 3},
		LogExponents:  []float64{0, 1, 2},
	}
	fs := flag.NewFlagSet("basic", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&b.AllowLogTerms, "allow_log_terms", b.AllowLogTerms,
		"include hypotheses with log2 factors")
	fs.Var(floatList{&b.PolyExponents}, "poly_exponents",
		"comma-separated polynomial exponents to search")
	fs.Var(floatList{&b.LogExponents}, "log_exponents",
		"comma-separated log2 exponents to search")
	b.flags = fs
	return b
}

func (b *Basic) Name() string { return "basic" }

func (b *Basic) Flags() *flag.FlagSet { return b.flags }

func (b *Basic) hypotheses() []hypothesis {
	var hs []hypothesis
	for _, j := range b.LogExponents {
		if j != 0 && !b.AllowLogTerms {
			continue
		}
		for _, i := range b.PolyExponents {
			if i == 0 && j == 0 {
				// The constant candidate covers this.
				continue
			}
			hs = append(hs, hypothesis{polyExp: i, logExp: j})
		}
	}
	return hs
}

// Model fits the best function over the search grid.
func (b *Basic) Model(ms []*experiment.Measurement, opts modeler.FitOpts) (*modeler.Model, error) {
	xs, ys, warnings, err := prepare(ms, opts.UseMedian)
	if err != nil {
		return nil, err
	}
	best := constantCandidate(ys)
	for _, h := range b.hypotheses() {
		if c, ok := fitHypothesis(h, xs, ys); ok && c.rss < best.rss {
			best = c
		}
	}
	return buildModel(b.Name(), best, ms, opts, warnings), nil
}
