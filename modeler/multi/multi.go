// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package multi provides the composite multi-parameter modeling
// strategy.
//
// The composite finds, for each parameter, the best single-parameter
// shape on the measurements where only that parameter varies, using a
// nested single-parameter strategy. It then combines the
// per-parameter shapes into an additive and a multiplicative joint
// candidate, refits each candidate's coefficients over all
// measurements by least squares, and keeps the candidate with the
// smallest residual.
package multi

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/internal/linfit"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/modelfn"
	_ "github.com/perfmodel/perfmodel/modeler/single" // registers the nested strategies
)

func init() {
	modeler.RegisterMulti(&modeler.Info{
		Name: "default",
		Doc:  "combines per-parameter fits additively or multiplicatively",
		New:  func() modeler.Modeler { return newComposite() },
	})
}

// Composite owns exactly one nested single-parameter strategy, which
// performs the per-parameter searches. The nested strategy defaults
// to basic and is replaced through the single_parameter_modeler
// option.
type Composite struct {
	flags  *flag.FlagSet
	nested modeler.Modeler
}

var _ modeler.Composite = (*Composite)(nil)

func newComposite() *Composite {
	info, ok := modeler.LookupSingle("basic")
	if !ok {
		panic("multi: basic single-parameter modeler not registered")
	}
	fs := flag.NewFlagSet("default", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return &Composite{flags: fs, nested: info.New()}
}

func (c *Composite) Name() string { return "default" }

func (c *Composite) Flags() *flag.FlagSet { return c.flags }

// Nested returns the nested single-parameter strategy instance.
func (c *Composite) Nested() modeler.Modeler { return c.nested }

// SetNested replaces the nested strategy with a fresh instance of the
// named single-parameter strategy.
func (c *Composite) SetNested(name string) error {
	info, ok := modeler.LookupSingle(name)
	if !ok {
		return &modeler.UnknownModelerError{Name: name}
	}
	c.nested = info.New()
	return nil
}

// shape is one parameter's contribution to the joint function, with
// the coefficient stripped.
type shape struct {
	factors []modelfn.Factor
}

func (s shape) eval(coord []float64) float64 {
	v := 1.0
	for _, f := range s.factors {
		v *= f.Eval(coord[f.Param])
	}
	return v
}

// Model fits a joint function over all parameters.
func (c *Composite) Model(ms []*experiment.Measurement, opts modeler.FitOpts) (*modeler.Model, error) {
	if len(ms) < 2 {
		return nil, modeler.Recoverablef("need at least 2 distinct coordinates, have %d", len(ms))
	}
	nparams := len(ms[0].Coordinate)
	var warnings []error
	if len(ms) < 5 {
		warnings = append(warnings, fmt.Errorf(
			"only %d measurement points; models fitted from fewer than 5 points are unreliable", len(ms)))
	}

	// Base point: the smallest observed value in each dimension.
	base := append(experiment.Coordinate(nil), ms[0].Coordinate...)
	for _, m := range ms {
		for d, v := range m.Coordinate {
			if v < base[d] {
				base[d] = v
			}
		}
	}

	// Per-parameter search on the slice where only that parameter
	// varies.
	var shapes []shape
	for k := 0; k < nparams; k++ {
		slice := sliceAlong(ms, base, k)
		if len(slice) < 2 {
			return nil, modeler.Recoverablef(
				"parameter %s does not vary while the remaining parameters are fixed at %s",
				paramName(opts.ParamNames, k), base)
		}
		sub, err := c.nested.Model(slice, opts)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, sub.Warnings...)
		if sub.Function.IsConstant() {
			// The parameter has no measurable influence.
			continue
		}
		factors := make([]modelfn.Factor, len(sub.Function.Terms[0].Factors))
		copy(factors, sub.Function.Terms[0].Factors)
		for i := range factors {
			factors[i].Param = k
		}
		shapes = append(shapes, shape{factors: factors})
	}

	ys := make([]float64, len(ms))
	for i, m := range ms {
		ys[i] = m.Aggregate(opts.UseMedian)
	}

	best := constantFunction(ys)
	bestRSS := rss(best, ms, ys)
	for _, fn := range candidates(shapes, ms, ys) {
		if r := rss(fn, ms, ys); r < bestRSS {
			best, bestRSS = fn, r
		}
	}

	return &modeler.Model{
		Function: best,
		Stats:    modeler.Evaluate(best, ms, opts.UseMedian, best.Coefficients()),
		Modeler:  c.Name(),
		Nested:   c.nested.Name(),
		Warnings: warnings,
	}, nil
}

// candidates refits the additive and multiplicative combinations of
// the per-parameter shapes over all measurements. Combinations whose
// least-squares system cannot be solved are skipped.
func candidates(shapes []shape, ms []*experiment.Measurement, ys []float64) []*modelfn.Function {
	if len(shapes) == 0 {
		return nil
	}
	ones := make([]float64, len(ms))
	for i := range ones {
		ones[i] = 1
	}

	var fns []*modelfn.Function

	// Additive: c0 plus one term per shape.
	cols := [][]float64{ones}
	for _, s := range shapes {
		col := make([]float64, len(ms))
		for i, m := range ms {
			col[i] = s.eval(m.Coordinate)
		}
		cols = append(cols, col)
	}
	if coeffs := solve(cols, ys); coeffs != nil {
		fn := &modelfn.Function{Constant: coeffs[0]}
		for i, s := range shapes {
			fn.Terms = append(fn.Terms, modelfn.Term{Coeff: coeffs[1+i], Factors: s.factors})
		}
		fns = append(fns, fn)
	}

	// Multiplicative: c0 plus the product of all shapes.
	if len(shapes) > 1 {
		col := make([]float64, len(ms))
		for i, m := range ms {
			v := 1.0
			for _, s := range shapes {
				v *= s.eval(m.Coordinate)
			}
			col[i] = v
		}
		if coeffs := solve([][]float64{ones, col}, ys); coeffs != nil {
			var all []modelfn.Factor
			for _, s := range shapes {
				all = append(all, s.factors...)
			}
			fns = append(fns, &modelfn.Function{
				Constant: coeffs[0],
				Terms:    []modelfn.Term{{Coeff: coeffs[1], Factors: all}},
			})
		}
	}

	return fns
}

func solve(cols [][]float64, ys []float64) []float64 {
	for _, col := range cols {
		if !linfit.AllFinite(col) {
			return nil
		}
	}
	coeffs, err := linfit.LeastSquares(cols, ys)
	if err != nil || !linfit.AllFinite(coeffs) {
		return nil
	}
	return coeffs
}

// sliceAlong projects the measurements where every parameter except k
// sits at the base point onto single-parameter measurements over k.
// The source measurements are ordered lexicographically, which with
// the other dimensions fixed is exactly the order of parameter k.
func sliceAlong(ms []*experiment.Measurement, base experiment.Coordinate, k int) []*experiment.Measurement {
	var out []*experiment.Measurement
	for _, m := range ms {
		match := true
		for d, v := range m.Coordinate {
			if d != k && v != base[d] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		p, err := experiment.NewMeasurement(m.Callpath, m.Metric,
			experiment.Coordinate{m.Coordinate[k]}, m.Values)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func constantFunction(ys []float64) *modelfn.Function {
	var mean float64
	for _, y := range ys {
		mean += y
	}
	return &modelfn.Function{Constant: mean / float64(len(ys))}
}

func rss(fn *modelfn.Function, ms []*experiment.Measurement, ys []float64) float64 {
	var sum float64
	for i, m := range ms {
		r := fn.Eval(m.Coordinate) - ys[i]
		sum += r * r
	}
	return sum
}

func paramName(names []string, k int) string {
	if k < len(names) {
		return names[k]
	}
	return "p" + strconv.Itoa(k)
}
