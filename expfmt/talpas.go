// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expfmt

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/progress"
)

// talpasRecord is one line of the Talpas format. Value is a pointer so
// that a missing field can be told apart from a measured zero.
type talpasRecord struct {
	Callpath   string             `json:"callpath"`
	Metric     string             `json:"metric"`
	Parameters map[string]float64 `json:"parameters"`
	Value      *float64           `json:"value"`
}

type talpasGroup struct {
	callpath string
	metric   string
	coord    experiment.Coordinate
	values   []float64
}

// ReadTalpasFile reads the Talpas line format. Every non-blank line is
// one JSON object carrying a single sample:
//
//	{"callpath": "main", "metric": "time", "parameters": {"p": 4}, "value": 8.25}
//
// Lines that repeat a callpath, metric, and parameter point contribute
// repeated samples to one measurement. The first line fixes the
// parameter set; parameters are ordered by name.
func ReadTalpasFile(path string, sink progress.Reporter) (*experiment.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if sink == nil {
		sink = progress.Discard
	}

	var (
		paramNames []string
		groups     []*talpasGroup
		byKey      = make(map[string]*talpasGroup)
	)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec talpasRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, &SyntaxError{path, line, fmt.Sprintf("invalid JSON: %v", err)}
		}
		if rec.Callpath == "" {
			return nil, &SyntaxError{path, line, "record needs a callpath"}
		}
		if rec.Metric == "" {
			return nil, &SyntaxError{path, line, "record needs a metric"}
		}
		if rec.Value == nil {
			return nil, &SyntaxError{path, line, "record needs a value"}
		}
		if len(rec.Parameters) == 0 {
			return nil, &SyntaxError{path, line, "record declares no parameters"}
		}
		if paramNames == nil {
			paramNames = make([]string, 0, len(rec.Parameters))
			for name := range rec.Parameters {
				paramNames = append(paramNames, name)
			}
			sort.Strings(paramNames)
		}

		coord := make(experiment.Coordinate, len(paramNames))
		if len(rec.Parameters) != len(paramNames) {
			return nil, &SyntaxError{path, line,
				fmt.Sprintf("record has parameters %s, want %s", recordNames(rec.Parameters), nameList(paramNames))}
		}
		for i, name := range paramNames {
			v, ok := rec.Parameters[name]
			if !ok {
				return nil, &SyntaxError{path, line,
					fmt.Sprintf("record has parameters %s, want %s", recordNames(rec.Parameters), nameList(paramNames))}
			}
			coord[i] = v
		}

		key := rec.Callpath + "\x00" + rec.Metric + "\x00" + coord.String()
		g := byKey[key]
		if g == nil {
			g = &talpasGroup{callpath: rec.Callpath, metric: rec.Metric, coord: coord}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, *rec.Value)
		sink.Step(1)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if paramNames == nil {
		return nil, fmt.Errorf("%s: no records", path)
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

func recordNames(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return nameList(names)
}

func nameList(names []string) string {
	return "{" + strings.Join(names, ", ") + "}"
}
