// Copyright 2026 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart renders fitted models next to the measurements they
// were fitted to.
package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/modelgen"
)

const curveSamples = 128

// Render plots one model: the aggregated measurements as points and
// the fitted function as a curve, extrapolated to twice the largest
// measured coordinate. The plot runs along the parameter with index
// axis; in multi-parameter experiments the remaining parameters are
// held at their smallest measured value, matching how the composite
// strategy slices the parameter space.
func Render(exp *experiment.Experiment, m *modeler.Model, axis int, useMedian bool) (*plot.Plot, error) {
	params := exp.Parameters()
	if axis < 0 || axis >= len(params) {
		return nil, fmt.Errorf("axis %d out of range (%d parameters)", axis, len(params))
	}
	ms := exp.Measurements(m.Callpath, m.Metric)
	if len(ms) == 0 {
		return nil, fmt.Errorf("no measurements for %s/%s", m.Callpath.Name, m.Metric.Name)
	}

	base := append(experiment.Coordinate(nil), ms[0].Coordinate...)
	for _, mm := range ms {
		for i, v := range mm.Coordinate {
			if v < base[i] {
				base[i] = v
			}
		}
	}

	var pts plotter.XYs
	lo, hi := base[axis], base[axis]
	for _, mm := range ms {
		onAxis := true
		for i, v := range mm.Coordinate {
			if i != axis && v != base[i] {
				onAxis = false
				break
			}
		}
		if !onAxis {
			continue
		}
		x := mm.Coordinate[axis]
		pts = append(pts, plotter.XY{X: x, Y: mm.Aggregate(useMedian)})
		if x > hi {
			hi = x
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no measurements for %s/%s along %s", m.Callpath.Name, m.Metric.Name, params[axis].Name)
	}

	coord := append(experiment.Coordinate(nil), base...)
	curve := make(plotter.XYs, 0, curveSamples+1)
	step := (2*hi - lo) / curveSamples
	for i := 0; i <= curveSamples; i++ {
		x := lo + float64(i)*step
		coord[axis] = x
		curve = append(curve, plotter.XY{X: x, Y: m.Function.Eval(coord)})
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s (%s)", m.Callpath.Name, m.Metric.Name)
	pl.X.Label.Text = params[axis].Name
	pl.Y.Label.Text = m.Metric.Name
	pl.Add(plotter.NewGrid())

	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, err
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	pl.Add(line, scatter)
	pl.Legend.Add("model", line)
	pl.Legend.Add("measured", scatter)
	return pl, nil
}

// WriteAll renders every model of the set into dir, one SVG per
// (callpath, metric) pair, and returns how many files it wrote.
func WriteAll(dir string, exp *experiment.Experiment, set *modelgen.ModelSet, useMedian bool) (int, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return 0, err
	}
	n := 0
	for _, m := range set.All() {
		pl, err := Render(exp, m, 0, useMedian)
		if err != nil {
			return n, fmt.Errorf("chart %s/%s: %v", m.Callpath.Name, m.Metric.Name, err)
		}
		path := filepath.Join(dir, fileName(m.Callpath.Name, m.Metric.Name))
		if err := pl.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
			return n, fmt.Errorf("chart %s/%s: %v", m.Callpath.Name, m.Metric.Name, err)
		}
		n++
	}
	return n, nil
}

// fileName flattens a callpath and metric into a single SVG file
// name.
func fileName(callpath, metric string) string {
	cp := strings.ReplaceAll(callpath, "->", "-")
	cp = strings.ReplaceAll(cp, "/", "-")
	return cp + "." + strings.ReplaceAll(metric, "/", "-per-") + ".svg"
}

// Preload renders a throwaway plot to an in-memory canvas, forcing
// the font cache to parse its TTF data. The interactive shell runs it
// on a background goroutine at startup so the first real chart does
// not stall the interface.
func Preload() {
	pl := plot.New()
	pl.Title.Text = "0"
	pl.X.Label.Text = "0"
	pl.Y.Label.Text = "0"
	c := vgimg.New(vg.Points(64), vg.Points(64))
	pl.Draw(draw.New(c))
}
