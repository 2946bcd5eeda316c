// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package experiment defines the measurement store for performance
// modeling: the parameters, call paths, and metrics of an experiment,
// and the repeated measurements taken at each point of the parameter
// space.
//
// An Experiment is populated once by a reader (see package expfmt) and
// is read-only afterward. All accessors return call paths, metrics,
// and coordinates in a deterministic order so that downstream modeling
// and reports are reproducible.
package experiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// A Parameter is a named independent variable of an experiment, such
// as the number of processes or the size of the input.
type Parameter struct {
	Name string
}

// A Callpath identifies a call site being modeled. Nested call sites
// are conventionally written with "->" separators ("main->solve->mg"),
// but the name is otherwise opaque.
type Callpath struct {
	Name string
}

// A Metric names a measured quantity, such as "time" or "visits".
type Metric struct {
	Name string
}

// A Coordinate is one point of the parameter space: one value per
// declared Parameter, in declaration order.
type Coordinate []float64

// Equal reports whether c and o are the same point.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.Compare(o) == 0
}

// Compare returns -1, 0, or +1 according to the lexicographic order
// of c and o. Coordinates of different lengths never compare equal.
func (c Coordinate) Compare(o Coordinate) int {
	for i := 0; i < len(c) && i < len(o); i++ {
		if c[i] != o[i] {
			if c[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(c) < len(o):
		return -1
	case len(c) > len(o):
		return 1
	}
	return 0
}

// String returns the point in "(4, 64)" form.
func (c Coordinate) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range c {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteByte(')')
	return sb.String()
}

// A Pair is one (call path, metric) combination to be modeled.
type Pair struct {
	Callpath *Callpath
	Metric   *Metric
}

func (p Pair) String() string {
	return p.Callpath.Name + "/" + p.Metric.Name
}

type pairKey struct {
	callpath, metric string
}

// An Experiment is a set of measurements over a common parameter
// space.
//
// The zero Experiment is not usable; construct it with New.
type Experiment struct {
	params   []*Parameter
	paramIdx map[string]int

	callpaths []*Callpath // sorted by name
	cpByName  map[string]*Callpath

	metrics   []*Metric // sorted by name
	metByName map[string]*Metric

	coords []Coordinate // sorted

	meas map[pairKey][]*Measurement // each sorted by coordinate
}

// New returns an empty Experiment.
func New() *Experiment {
	return &Experiment{
		paramIdx:  make(map[string]int),
		cpByName:  make(map[string]*Callpath),
		metByName: make(map[string]*Metric),
		meas:      make(map[pairKey][]*Measurement),
	}
}

// AddParameter declares a new parameter. Parameters are ordered by
// declaration and fix the arity of every Coordinate in the
// experiment. Declaring the same name twice is an error.
func (e *Experiment) AddParameter(name string) (*Parameter, error) {
	if name == "" {
		return nil, fmt.Errorf("parameter name must not be empty")
	}
	if _, ok := e.paramIdx[name]; ok {
		return nil, fmt.Errorf("duplicate parameter %q", name)
	}
	p := &Parameter{Name: name}
	e.paramIdx[name] = len(e.params)
	e.params = append(e.params, p)
	return p, nil
}

// Parameters returns the declared parameters in declaration order.
// The caller must not modify the returned slice.
func (e *Experiment) Parameters() []*Parameter {
	return e.params
}

// ParameterNames returns the parameter names in declaration order.
func (e *Experiment) ParameterNames() []string {
	names := make([]string, len(e.params))
	for i, p := range e.params {
		names[i] = p.Name
	}
	return names
}

// Callpath returns the call path with the given name, adding it to the
// experiment if it is new. Call paths are interned, so the same name
// always returns the same pointer.
func (e *Experiment) Callpath(name string) *Callpath {
	if cp, ok := e.cpByName[name]; ok {
		return cp
	}
	cp := &Callpath{Name: name}
	e.cpByName[name] = cp
	i := sort.Search(len(e.callpaths), func(i int) bool {
		return e.callpaths[i].Name >= name
	})
	e.callpaths = append(e.callpaths, nil)
	copy(e.callpaths[i+1:], e.callpaths[i:])
	e.callpaths[i] = cp
	return cp
}

// Metric returns the metric with the given name, adding it to the
// experiment if it is new. Metrics are interned like call paths.
func (e *Experiment) Metric(name string) *Metric {
	if m, ok := e.metByName[name]; ok {
		return m
	}
	m := &Metric{Name: name}
	e.metByName[name] = m
	i := sort.Search(len(e.metrics), func(i int) bool {
		return e.metrics[i].Name >= name
	})
	e.metrics = append(e.metrics, nil)
	copy(e.metrics[i+1:], e.metrics[i:])
	e.metrics[i] = m
	return m
}

// AddMeasurement records m in the experiment. The measurement's
// coordinate must have one value per declared parameter, and no other
// measurement may exist for the same call path, metric, and
// coordinate.
func (e *Experiment) AddMeasurement(m *Measurement) error {
	if len(m.Coordinate) != len(e.params) {
		return fmt.Errorf("coordinate %s has %d values, want %d (one per parameter)",
			m.Coordinate, len(m.Coordinate), len(e.params))
	}
	// Re-intern so lookups by pointer work regardless of how the
	// caller obtained the call path and metric.
	m.Callpath = e.Callpath(m.Callpath.Name)
	m.Metric = e.Metric(m.Metric.Name)

	e.addCoordinate(m.Coordinate)

	key := pairKey{m.Callpath.Name, m.Metric.Name}
	ms := e.meas[key]
	i := sort.Search(len(ms), func(i int) bool {
		return ms[i].Coordinate.Compare(m.Coordinate) >= 0
	})
	if i < len(ms) && ms[i].Coordinate.Equal(m.Coordinate) {
		return fmt.Errorf("duplicate measurement for %s/%s at %s",
			m.Callpath.Name, m.Metric.Name, m.Coordinate)
	}
	ms = append(ms, nil)
	copy(ms[i+1:], ms[i:])
	ms[i] = m
	e.meas[key] = ms
	return nil
}

func (e *Experiment) addCoordinate(c Coordinate) {
	i := sort.Search(len(e.coords), func(i int) bool {
		return e.coords[i].Compare(c) >= 0
	})
	if i < len(e.coords) && e.coords[i].Equal(c) {
		return
	}
	e.coords = append(e.coords, nil)
	copy(e.coords[i+1:], e.coords[i:])
	e.coords[i] = c
}

// Callpaths returns all call paths, sorted by name.
func (e *Experiment) Callpaths() []*Callpath {
	return e.callpaths
}

// Metrics returns all metrics, sorted by name.
func (e *Experiment) Metrics() []*Metric {
	return e.metrics
}

// Coordinates returns all coordinates that appear in any measurement,
// in lexicographic order.
func (e *Experiment) Coordinates() []Coordinate {
	return e.coords
}

// Measurements returns the measurements for one call path and metric,
// ordered by coordinate, or nil if there are none.
func (e *Experiment) Measurements(cp *Callpath, m *Metric) []*Measurement {
	return e.meas[pairKey{cp.Name, m.Name}]
}

// Pairs returns every (call path, metric) combination that has
// measurements, ordered by call path name and then metric name. This
// is the order in which models are generated.
func (e *Experiment) Pairs() []Pair {
	var pairs []Pair
	for _, cp := range e.callpaths {
		for _, m := range e.metrics {
			if _, ok := e.meas[pairKey{cp.Name, m.Name}]; ok {
				pairs = append(pairs, Pair{cp, m})
			}
		}
	}
	return pairs
}

// Validate checks the structural invariants of the experiment: at
// least one parameter and one measurement, and a consistent
// coordinate arity throughout. Readers should call it after loading.
func (e *Experiment) Validate() error {
	if len(e.params) == 0 {
		return fmt.Errorf("experiment declares no parameters")
	}
	if len(e.meas) == 0 {
		return fmt.Errorf("experiment contains no measurements")
	}
	for _, ms := range e.meas {
		for _, m := range ms {
			if len(m.Coordinate) != len(e.params) {
				return fmt.Errorf("measurement for %s/%s at %s has arity %d, want %d",
					m.Callpath.Name, m.Metric.Name, m.Coordinate,
					len(m.Coordinate), len(e.params))
			}
			if len(m.Values) == 0 {
				return fmt.Errorf("measurement for %s/%s at %s has no samples",
					m.Callpath.Name, m.Metric.Name, m.Coordinate)
			}
		}
	}
	return nil
}
