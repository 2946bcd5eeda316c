// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report formats modeling results: a plain-text report at
// several detail levels, and an HTML rendering of the full report.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/modelgen"
)

// A Level selects how much of the modeling result the text report
// shows.
type Level int

const (
	// LevelAll is the full report: parameters, then per callpath and
	// metric the fitted model, its statistics, and any warnings.
	LevelAll Level = iota
	// LevelCallpaths lists the callpath names.
	LevelCallpaths
	// LevelMetrics lists the metric names.
	LevelMetrics
	// LevelParameters lists the parameter names.
	LevelParameters
	// LevelFunctions lists the fitted functions, one per line, in
	// model order.
	LevelFunctions
)

var levelNames = map[string]Level{
	"all":        LevelAll,
	"callpaths":  LevelCallpaths,
	"metrics":    LevelMetrics,
	"parameters": LevelParameters,
	"functions":  LevelFunctions,
}

// ParseLevel parses a -print argument.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[s]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("unknown print level %q (want all, callpaths, metrics, parameters, or functions)", s)
}

func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Text writes the report for one modeled experiment to w. Write
// errors are not reported; give Text a buffer and flush it yourself
// if the destination can fail.
func Text(w io.Writer, exp *experiment.Experiment, set *modelgen.ModelSet, level Level) {
	switch level {
	case LevelCallpaths:
		for _, cp := range exp.Callpaths() {
			fmt.Fprintln(w, cp.Name)
		}
	case LevelMetrics:
		for _, m := range exp.Metrics() {
			fmt.Fprintln(w, m.Name)
		}
	case LevelParameters:
		for _, p := range exp.Parameters() {
			fmt.Fprintln(w, p.Name)
		}
	case LevelFunctions:
		names := exp.ParameterNames()
		for _, m := range set.All() {
			fmt.Fprintln(w, m.Function.Format(names))
		}
	default:
		textAll(w, exp, set)
	}
}

func textAll(w io.Writer, exp *experiment.Experiment, set *modelgen.ModelSet) {
	names := exp.ParameterNames()
	fmt.Fprintf(w, "Parameters: %s\n", strings.Join(names, ", "))

	lastCallpath := ""
	for _, m := range set.All() {
		if m.Callpath.Name != lastCallpath {
			fmt.Fprintf(w, "\n%s\n", m.Callpath.Name)
			lastCallpath = m.Callpath.Name
		}
		fmt.Fprintf(w, "  %s\n", m.Metric.Name)
		fmt.Fprintf(w, "    model:   %s\n", m.Function.Format(names))
		fmt.Fprintf(w, "    modeler: %s\n", modelerName(m))
		fmt.Fprintf(w, "    fit:     %s\n", formatStats(m.Stats))
		for _, warn := range m.Warnings {
			fmt.Fprintf(w, "    note:    %v\n", warn)
		}
	}
}

func modelerName(m *modeler.Model) string {
	if m.Nested != "" {
		return fmt.Sprintf("%s, nested %s", m.Modeler, m.Nested)
	}
	return m.Modeler
}

func formatStats(s modeler.FitStats) string {
	ar2 := "n/a"
	if !math.IsNaN(s.AR2) {
		ar2 = fmt.Sprintf("%.4g", s.AR2)
	}
	return fmt.Sprintf("RSS %.4g, SMAPE %.4g%%, AR2 %s", s.RSS, s.SMAPE, ar2)
}
