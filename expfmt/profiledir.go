// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expfmt

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/progress"
)

// ReadProfileDir reads a directory of columnar profiles, one
// subdirectory per run.
//
// A run directory is named after its coordinate and repetition,
// "p=4,q=64.r0", and contains a profile.col file of tab-separated
// callpath, metric, rank, and value columns:
//
//	main	time	0	8.125
//	main	time	1	8.250
//
// The scaling mode folds the rows of one run into a single sample per
// callpath and metric: weak scaling averages across ranks, strong
// scaling sums them. Repetitions of the same coordinate contribute
// repeated samples.
//
// The reporter, if non-nil, counts one step per run directory.
func ReadProfileDir(dir string, scaling Scaling, sink progress.Reporter) (*experiment.Experiment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = progress.Discard
	}
	var runs []os.DirEntry
	for _, ent := range entries {
		if ent.IsDir() {
			runs = append(runs, ent)
		}
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%s: no run directories", dir)
	}
	sink.SetTotal(len(runs))

	var (
		paramNames []string
		groups     []*talpasGroup
		byKey      = make(map[string]*talpasGroup)
	)
	for _, ent := range runs {
		names, coord, err := parseRunName(ent.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: run %s: %v", dir, ent.Name(), err)
		}
		if paramNames == nil {
			paramNames = names
		} else if !equalNames(names, paramNames) {
			return nil, fmt.Errorf("%s: run %s has parameters %s, want %s",
				dir, ent.Name(), nameList(names), nameList(paramNames))
		}
		samples, err := readProfileCol(filepath.Join(dir, ent.Name(), "profile.col"), scaling)
		if err != nil {
			return nil, err
		}
		for _, s := range samples {
			key := s.callpath + "\x00" + s.metric + "\x00" + coord.String()
			g := byKey[key]
			if g == nil {
				g = &talpasGroup{callpath: s.callpath, metric: s.metric, coord: coord}
				byKey[key] = g
				groups = append(groups, g)
			}
			g.values = append(g.values, s.value)
		}
		sink.Step(1)
	}

	exp := experiment.New()
	for _, name := range paramNames {
		if _, err := exp.AddParameter(name); err != nil {
			return nil, fmt.Errorf("%s: %v", dir, err)
		}
	}
	for _, g := range groups {
		m, err := experiment.NewMeasurement(exp.Callpath(g.callpath), exp.Metric(g.metric), g.coord, g.values)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", dir, err)
		}
		if err := exp.AddMeasurement(m); err != nil {
			return nil, fmt.Errorf("%s: %v", dir, err)
		}
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", dir, err)
	}
	return exp, nil
}

// parseRunName splits "p=4,q=64.r1" into parameter names and their
// coordinate. The repetition index only keeps run directories of the
// same coordinate distinct.
func parseRunName(name string) ([]string, experiment.Coordinate, error) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return nil, nil, fmt.Errorf("missing .r<n> repetition suffix")
	}
	rep := name[i+1:]
	if len(rep) < 2 || rep[0] != 'r' || !allDigits(rep[1:]) {
		return nil, nil, fmt.Errorf("bad repetition suffix %q", rep)
	}
	var (
		names []string
		coord experiment.Coordinate
	)
	for _, part := range strings.Split(name[:i], ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("bad parameter assignment %q", part)
		}
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad parameter value %q", part)
		}
		names = append(names, k)
		coord = append(coord, val)
	}
	return names, coord, nil
}

type colSample struct {
	callpath string
	metric   string
	value    float64
}

// readProfileCol reads one run's profile.col and folds the per-rank
// rows into one value per callpath and metric.
func readProfileCol(path string, scaling Scaling) ([]colSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type acc struct {
		sum float64
		n   int
	}
	var order []string
	accs := make(map[string]*acc)
	names := make(map[string][2]string)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 4 {
			return nil, &SyntaxError{path, line, fmt.Sprintf("got %d columns, want callpath, metric, rank, value", len(fields))}
		}
		cp, metric := fields[0], fields[1]
		if cp == "" || metric == "" {
			return nil, &SyntaxError{path, line, "empty callpath or metric"}
		}
		if _, err := strconv.Atoi(fields[2]); err != nil {
			return nil, &SyntaxError{path, line, fmt.Sprintf("bad rank %q", fields[2])}
		}
		v, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, &SyntaxError{path, line, fmt.Sprintf("bad value %q", fields[3])}
		}
		key := cp + "\x00" + metric
		a := accs[key]
		if a == nil {
			a = &acc{}
			accs[key] = a
			names[key] = [2]string{cp, metric}
			order = append(order, key)
		}
		a.sum += v
		a.n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	samples := make([]colSample, 0, len(order))
	for _, key := range order {
		a := accs[key]
		v := a.sum
		if scaling == ScaleWeak {
			v = a.sum / float64(a.n)
		}
		nm := names[key]
		samples = append(samples, colSample{nm[0], nm[1], v})
	}
	return samples, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
