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

// ReadTextFile reads the plain-text measurement format.
//
// The format is line oriented. Blank lines and lines starting with #
// are ignored. Every other line starts with a keyword:
//
//	PARAMETER p
//	POINTS (1) (2) (4) (8)
//	METRIC time
//	REGION main
//	DATA 8.1 7.9 8.2
//
// PARAMETER declares a model parameter and may repeat; all
// declarations must precede POINTS. POINTS lists the measured
// coordinates once, in order. A multi-parameter point is written as a
// parenthesized group, "( 2 64 )". METRIC and REGION select the
// metric and call path the following DATA lines belong to, and each
// DATA line carries the repeated samples for the next coordinate in
// POINTS order.
//
// The reporter, if non-nil, counts one step per DATA line.
func ReadTextFile(path string, sink progress.Reporter) (*experiment.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := textReader{
		path: path,
		exp:  experiment.New(),
		sink: sink,
	}
	if r.sink == nil {
		r.sink = progress.Discard
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		r.line++
		if err := r.readLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if err := r.exp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return r.exp, nil
}

type textReader struct {
	path string
	line int
	exp  *experiment.Experiment
	sink progress.Reporter

	points   []experiment.Coordinate
	callpath string
	metric   string
	dataIdx  int
}

func (r *textReader) syntaxErr(format string, args ...interface{}) error {
	return &SyntaxError{r.path, r.line, fmt.Sprintf(format, args...)}
}

func (r *textReader) readLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	keyword, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		keyword, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	switch keyword {
	case "PARAMETER":
		return r.readParameter(rest)
	case "POINTS":
		return r.readPoints(rest)
	case "METRIC":
		if rest == "" {
			return r.syntaxErr("METRIC needs a name")
		}
		r.metric = rest
		r.dataIdx = 0
		return nil
	case "REGION":
		if rest == "" {
			return r.syntaxErr("REGION needs a name")
		}
		r.callpath = rest
		r.dataIdx = 0
		return nil
	case "DATA":
		return r.readData(rest)
	}
	return r.syntaxErr("unknown keyword %q", keyword)
}

func (r *textReader) readParameter(rest string) error {
	if r.points != nil {
		return r.syntaxErr("PARAMETER after POINTS")
	}
	names := strings.Fields(rest)
	if len(names) == 0 {
		return r.syntaxErr("PARAMETER needs a name")
	}
	for _, name := range names {
		if _, err := r.exp.AddParameter(name); err != nil {
			return r.syntaxErr("%v", err)
		}
	}
	return nil
}

// readPoints parses the coordinate list. Each point is either a bare
// number or a parenthesized group of numbers. Parentheses may be
// separate tokens or glued to the values, so "(1)", "( 1 )" and
// "( 2 64 )" all work.
func (r *textReader) readPoints(rest string) error {
	if r.points != nil {
		return r.syntaxErr("duplicate POINTS line")
	}
	nparams := len(r.exp.Parameters())
	if nparams == 0 {
		return r.syntaxErr("POINTS before any PARAMETER")
	}

	var points []experiment.Coordinate
	var cur []float64
	inGroup := false
	for _, tok := range strings.Fields(rest) {
		for tok != "" {
			switch {
			case strings.HasPrefix(tok, "("):
				if inGroup {
					return r.syntaxErr("nested ( in POINTS")
				}
				inGroup = true
				cur = nil
				tok = tok[1:]
			case strings.HasSuffix(tok, ")"):
				if !inGroup {
					return r.syntaxErr("unmatched ) in POINTS")
				}
				tok = strings.TrimSuffix(tok, ")")
				if tok != "" {
					v, err := strconv.ParseFloat(tok, 64)
					if err != nil {
						return r.syntaxErr("bad point value %q", tok)
					}
					cur = append(cur, v)
				}
				points = append(points, experiment.Coordinate(cur))
				inGroup = false
				cur = nil
				tok = ""
			default:
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return r.syntaxErr("bad point value %q", tok)
				}
				if inGroup {
					cur = append(cur, v)
				} else {
					points = append(points, experiment.Coordinate{v})
				}
				tok = ""
			}
		}
	}
	if inGroup {
		return r.syntaxErr("unclosed ( in POINTS")
	}
	if len(points) == 0 {
		return r.syntaxErr("POINTS needs at least one point")
	}
	for _, pt := range points {
		if len(pt) != nparams {
			return r.syntaxErr("point %s has %d values, want %d (one per parameter)", pt, len(pt), nparams)
		}
	}
	r.points = points
	return nil
}

func (r *textReader) readData(rest string) error {
	if r.points == nil {
		return r.syntaxErr("DATA before POINTS")
	}
	if r.callpath == "" {
		return r.syntaxErr("DATA before REGION")
	}
	if r.metric == "" {
		return r.syntaxErr("DATA before METRIC")
	}
	if r.dataIdx >= len(r.points) {
		return r.syntaxErr("more DATA lines than POINTS for %s/%s", r.callpath, r.metric)
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return r.syntaxErr("DATA needs at least one value")
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r.syntaxErr("bad data value %q", f)
		}
		values[i] = v
	}
	m, err := experiment.NewMeasurement(r.exp.Callpath(r.callpath), r.exp.Metric(r.metric), r.points[r.dataIdx], values)
	if err != nil {
		return r.syntaxErr("%v", err)
	}
	r.dataIdx++
	if err := r.exp.AddMeasurement(m); err != nil {
		return r.syntaxErr("%v", err)
	}
	r.sink.Step(1)
	return nil
}
