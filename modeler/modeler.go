// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modeler defines the model-fitting strategy abstraction.
//
// A Modeler fits one closed-form function to the measurements of a
// single (call path, metric) pair. Strategies register themselves by
// name in one of two registries, one for single-parameter experiments
// and one for multi-parameter experiments, and expose their options
// as a flag set so that drivers can list and apply them without
// knowing the concrete type.
//
// Fitting is pure: given the same measurements and options, a
// strategy must produce an identical Model.
package modeler

import (
	"flag"
	"math"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modelfn"
)

// FitOpts carries the run-wide settings that apply to every fit.
type FitOpts struct {
	// UseMedian selects the median instead of the mean as the
	// aggregated value of each measurement.
	UseMedian bool

	// ParamNames are the experiment's parameter names, used when
	// formatting fitted functions.
	ParamNames []string
}

// A Modeler fits functions to measurements.
type Modeler interface {
	// Name returns the canonical registered name of the strategy.
	Name() string

	// Flags returns the option set of this instance. Options are
	// applied with Flags().Set(name, value) before Model runs;
	// drivers should use Configure, which adds error context and
	// handles the reserved composite keys.
	Flags() *flag.FlagSet

	// Model fits one function to the measurements of a single call
	// path and metric. The measurements are ordered by coordinate
	// and share one coordinate arity. Failures that the interactive
	// shell can continue from are reported as *RecoverableError.
	Model(ms []*experiment.Measurement, opts FitOpts) (*Model, error)
}

// A Composite is a multi-parameter strategy that delegates the
// per-parameter search to a nested single-parameter strategy.
type Composite interface {
	Modeler

	// SetNested replaces the nested single-parameter strategy with
	// a fresh instance of the named one.
	SetNested(name string) error

	// Nested returns the current nested strategy instance.
	Nested() Modeler
}

// A Model is the fitted function for one (call path, metric) pair,
// together with fit statistics and the identity of the strategy that
// produced it. The call path and metric are filled in by the model
// generator.
type Model struct {
	Callpath *experiment.Callpath
	Metric   *experiment.Metric

	Function *modelfn.Function
	Stats    FitStats

	// Modeler is the name of the strategy that produced the model.
	// Nested is the name of the single-parameter strategy used for
	// the per-parameter search when the strategy is a composite.
	Modeler string
	Nested  string

	// Warnings are non-fatal observations made during fitting that
	// should be reported to the user alongside the model.
	Warnings []error
}

// FitStats quantifies how well a fitted function matches the
// aggregated measurements it was fitted to.
type FitStats struct {
	// RSS is the residual sum of squares.
	RSS float64
	// SMAPE is the symmetric mean absolute percentage error, in
	// percent.
	SMAPE float64
	// AR2 is the adjusted coefficient of determination.
	AR2 float64
}

// Evaluate computes fit statistics for fn over the given
// measurements. ncoef is the number of fitted coefficients, counting
// the constant; it determines the degrees of freedom of AR2.
func Evaluate(fn *modelfn.Function, ms []*experiment.Measurement, useMedian bool, ncoef int) FitStats {
	var rss, sae, mean float64
	n := len(ms)
	for _, m := range ms {
		actual := m.Aggregate(useMedian)
		pred := fn.Eval(m.Coordinate)
		r := pred - actual
		rss += r * r
		if denom := math.Abs(actual) + math.Abs(pred); denom > 0 {
			sae += math.Abs(r) / denom
		}
		mean += actual
	}
	mean /= float64(n)

	var tss float64
	for _, m := range ms {
		d := m.Aggregate(useMedian) - mean
		tss += d * d
	}

	ar2 := math.NaN()
	switch {
	case tss == 0:
		if rss == 0 {
			ar2 = 1
		}
	case n-ncoef > 0 && n > 1:
		ar2 = 1 - (rss/float64(n-ncoef))/(tss/float64(n-1))
	}

	return FitStats{
		RSS:   rss,
		SMAPE: 200 * sae / float64(n),
		AR2:   ar2,
	}
}
