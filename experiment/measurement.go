// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package experiment

import (
	"fmt"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// A Measurement is the set of repeated samples taken for one call path
// and metric at one coordinate. The summary statistics are computed at
// construction; a Measurement is immutable afterward.
type Measurement struct {
	Callpath   *Callpath
	Metric     *Metric
	Coordinate Coordinate

	// Values are the measured samples, in ascending order.
	Values []float64

	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// NewMeasurement constructs a Measurement from a set of repeated
// samples. An empty sample set is an error; readers must reject such
// input rather than construct a measurement for it.
func NewMeasurement(cp *Callpath, m *Metric, coord Coordinate, values []float64) (*Measurement, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("measurement for %s/%s at %s has no samples", cp.Name, m.Name, coord)
	}
	values = append([]float64(nil), values...)
	sort.Float64s(values)
	sample := stats.Sample{Xs: values, Sorted: true}
	return &Measurement{
		Callpath:   cp,
		Metric:     m,
		Coordinate: coord,
		Values:     values,
		Mean:       sample.Mean(),
		Median:     sample.Quantile(0.5),
		Min:        values[0],
		Max:        values[len(values)-1],
	}, nil
}

// Aggregate returns the summary value used for model fitting: the
// median when useMedian is set, the mean otherwise. The choice is
// made once per run and applies to every measurement.
func (m *Measurement) Aggregate(useMedian bool) float64 {
	if useMedian {
		return m.Median
	}
	return m.Mean
}

// Count returns the number of repeated samples.
func (m *Measurement) Count() int {
	return len(m.Values)
}
