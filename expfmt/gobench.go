// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expfmt

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/progress"
)

// ReadGoBenchFile reads standard Go benchmark output, the format
// printed by "go test -bench".
//
//	BenchmarkSolve/n=16-8   100   8123 ns/op   512 B/op
//
// Each result line contributes one sample per reported unit: numeric
// name=value sub-benchmark keys become the parameters, the remaining
// name parts form the call path, and each unit becomes a metric. A
// trailing -N GOMAXPROCS suffix is dropped. Repeated lines for the
// same configuration contribute repeated samples, so "go test -bench
// -count=5" output models directly.
//
// Lines that are not benchmark results, such as "goos:" headers and
// the trailing "ok" line, are ignored.
func ReadGoBenchFile(path string, sink progress.Reporter) (*experiment.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if sink == nil {
		sink = progress.Discard
	}

	var (
		sawResult  bool
		paramNames []string
		groups     []*talpasGroup
		byKey      = make(map[string]*talpasGroup)
	)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || !isBenchName(fields[0]) {
			continue
		}
		if len(fields) < 4 || len(fields)%2 != 0 {
			return nil, &SyntaxError{path, line, "benchmark line needs a count and value/unit pairs"}
		}
		if _, err := strconv.Atoi(fields[1]); err != nil {
			return nil, &SyntaxError{path, line, fmt.Sprintf("bad iteration count %q", fields[1])}
		}

		callpath, names, coord, err := parseBenchName(fields[0])
		if err != nil {
			return nil, &SyntaxError{path, line, err.Error()}
		}
		if !sawResult {
			sawResult = true
			paramNames = names
		} else if !equalNames(names, paramNames) {
			return nil, &SyntaxError{path, line,
				fmt.Sprintf("benchmark has parameters %s, want %s", nameList(names), nameList(paramNames))}
		}

		for i := 2; i < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, &SyntaxError{path, line, fmt.Sprintf("bad value %q", fields[i])}
			}
			unit := fields[i+1]
			key := callpath + "\x00" + unit + "\x00" + coord.String()
			g := byKey[key]
			if g == nil {
				g = &talpasGroup{callpath: callpath, metric: unit, coord: coord}
				byKey[key] = g
				groups = append(groups, g)
			}
			g.values = append(g.values, v)
		}
		sink.Step(1)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if !sawResult {
		return nil, fmt.Errorf("%s: no benchmark results", path)
	}
	if len(paramNames) == 0 {
		return nil, fmt.Errorf("%s: no numeric name=value keys to use as parameters", path)
	}

	exp := experiment.New()
	for _, name := range paramNames {
		if _, err := exp.AddParameter(name); err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
	}
	for _, g := range groups {
		m, err := experiment.NewMeasurement(exp.Callpath(g.callpath), exp.Metric(g.metric), g.coord, g.values)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
		if err := exp.AddMeasurement(m); err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return exp, nil
}

// isBenchName reports whether a field is a benchmark result name. The
// character after the "Benchmark" prefix must not be a lower-case
// letter, which rules out prose like "Benchmarking".
func isBenchName(s string) bool {
	rest, ok := strings.CutPrefix(s, "Benchmark")
	if !ok {
		return false
	}
	return rest == "" || !('a' <= rest[0] && rest[0] <= 'z')
}

// parseBenchName splits a benchmark name into the call path and the
// numeric name=value keys. "Solve/n=16/fast-8" has call path
// "Solve/fast" and parameter n; the -8 GOMAXPROCS suffix is dropped.
func parseBenchName(name string) (callpath string, names []string, coord experiment.Coordinate, err error) {
	name = strings.TrimPrefix(name, "Benchmark")
	name = trimGomaxprocs(name)
	parts := strings.Split(name, "/")
	if parts[0] == "" {
		return "", nil, nil, fmt.Errorf("benchmark name %q has no base", "Benchmark"+name)
	}
	callpath = parts[0]
	for _, part := range parts[1:] {
		if k, v, ok := strings.Cut(part, "="); ok && k != "" {
			if val, err := strconv.ParseFloat(v, 64); err == nil {
				names = append(names, k)
				coord = append(coord, val)
				continue
			}
		}
		callpath += "/" + part
	}
	return callpath, names, coord, nil
}

// trimGomaxprocs removes a trailing "-N" where N is all digits.
func trimGomaxprocs(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '-' && i < len(name)-1 {
			return name[:i]
		}
		if !('0' <= name[i] && name[i] <= '9') {
			break
		}
	}
	return name
}
