// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package single provides the single-parameter modeling strategies.
//
// Both strategies search a space of candidate functions of the form
//
//	c0 + c1 * p^i * log2(p)^j
//
// fitting the coefficients of each candidate by linear regression of
// the aggregated values on the transformed parameter value and
// keeping the candidate with the smallest residual sum of squares.
package single

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/internal/linfit"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/modelfn"
)

// A hypothesis is one candidate shape of the compound term.
type hypothesis struct {
	polyExp, logExp float64
}

// A candidate is a fitted hypothesis.
type candidate struct {
	h      hypothesis
	c0, c1 float64
	rss    float64
}

// prepare extracts the regression inputs from the measurements and
// checks that a fit is possible at all.
func prepare(ms []*experiment.Measurement, useMedian bool) (xs, ys []float64, warnings []error, err error) {
	if len(ms) < 2 {
		return nil, nil, nil, modeler.Recoverablef(
			"need at least 2 distinct coordinates, have %d", len(ms))
	}
	if len(ms) < 5 {
		warnings = append(warnings, fmt.Errorf(
			"only %d measurement points; models fitted from fewer than 5 points are unreliable", len(ms)))
	}
	xs = make([]float64, len(ms))
	ys = make([]float64, len(ms))
	for i, m := range ms {
		xs[i] = m.Coordinate[0]
		ys[i] = m.Aggregate(useMedian)
	}
	return xs, ys, warnings, nil
}

// constantCandidate fits the best parameter-independent function.
func constantCandidate(ys []float64) candidate {
	var mean float64
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))
	var rss float64
	for _, y := range ys {
		d := y - mean
		rss += d * d
	}
	return candidate{c0: mean, rss: rss}
}

// fitHypothesis fits c0 + c1*g(p) for the hypothesis's transform g by
// simple linear regression. ok is false when the hypothesis cannot be
// fitted on these coordinates, for example when g is constant over
// them or not finite at one of them.
func fitHypothesis(h hypothesis, xs, ys []float64) (c candidate, ok bool) {
	f := modelfn.Factor{PolyExp: h.polyExp, LogExp: h.logExp}
	g := make([]float64, len(xs))
	varies := false
	for i, x := range xs {
		g[i] = f.Eval(x)
		if g[i] != g[0] {
			varies = true
		}
	}
	if !varies || !linfit.AllFinite(g) {
		return candidate{}, false
	}
	c0, c1 := stat.LinearRegression(g, ys, nil, false)
	if !linfit.AllFinite([]float64{c0, c1}) {
		return candidate{}, false
	}
	var rss float64
	for i, y := range ys {
		r := c0 + c1*g[i] - y
		rss += r * r
	}
	return candidate{h: h, c0: c0, c1: c1, rss: rss}, true
}

// buildModel turns the winning candidate into a Model.
func buildModel(name string, best candidate, ms []*experiment.Measurement, opts modeler.FitOpts, warnings []error) *modeler.Model {
	fn := &modelfn.Function{Constant: best.c0}
	if best.h != (hypothesis{}) {
		fn.Terms = []modelfn.Term{{
			Coeff: best.c1,
			Factors: []modelfn.Factor{{
				Param:   0,
				PolyExp: best.h.polyExp,
				LogExp:  best.h.logExp,
			}},
		}}
	}
	return &modeler.Model{
		Function: fn,
		Stats:    modeler.Evaluate(fn, ms, opts.UseMedian, fn.Coefficients()),
		Modeler:  name,
		Warnings: warnings,
	}
}

// A floatList is a flag.Value holding a comma-separated list of
// floats, used for the exponent options.
type floatList struct {
	vals *[]float64
}

func (f floatList) String() string {
	if f.vals == nil {
		return ""
	}
	parts := make([]string, len(*f.vals))
	for i, v := range *f.vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (f floatList) Set(s string) error {
	var vals []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return err
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return fmt.Errorf("empty list")
	}
	*f.vals = vals
	return nil
}
