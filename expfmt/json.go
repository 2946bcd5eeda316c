// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expfmt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/progress"
)

// jsonMeasurement is the wire form of one measurement in both JSON
// layouts.
type jsonMeasurement struct {
	Callpath   string    `json:"callpath"`
	Metric     string    `json:"metric"`
	Coordinate []float64 `json:"coordinate"`
	Values     []float64 `json:"values"`
}

// jsonDocument is the single-document JSON layout.
type jsonDocument struct {
	Parameters   []string          `json:"parameters"`
	Measurements []jsonMeasurement `json:"measurements"`
}

// jsonHeader is the first line of the JSON Lines layout.
type jsonHeader struct {
	Parameters []string `json:"parameters"`
}

// ReadJSONFile reads the JSON measurement format.
//
// Two layouts are accepted. A single document:
//
//	{"parameters": ["p"],
//	 "measurements": [
//	  {"callpath": "main", "metric": "time", "coordinate": [4], "values": [8.1, 7.9]}]}
//
// or JSON Lines, where the first line is a header object declaring
// the parameters and every following line is one measurement object.
// Input that unmarshals as a single document with declared parameters
// takes the document form; everything else is read line by line.
func ReadJSONFile(path string, sink progress.Reporter) (*experiment.Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = progress.Discard
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err == nil && len(doc.Parameters) > 0 {
		return readJSONDocument(path, &doc, sink)
	}
	return readJSONLines(path, data, sink)
}

func readJSONDocument(path string, doc *jsonDocument, sink progress.Reporter) (*experiment.Experiment, error) {
	exp := experiment.New()
	for _, name := range doc.Parameters {
		if _, err := exp.AddParameter(name); err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
	}
	sink.SetTotal(len(doc.Measurements))
	for i, jm := range doc.Measurements {
		if err := addJSONMeasurement(exp, jm); err != nil {
			return nil, fmt.Errorf("%s: measurement %d: %v", path, i, err)
		}
		sink.Step(1)
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return exp, nil
}

func readJSONLines(path string, data []byte, sink progress.Reporter) (*experiment.Experiment, error) {
	exp := experiment.New()
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	sawHeader := false
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if !sawHeader {
			var hdr jsonHeader
			if err := json.Unmarshal([]byte(text), &hdr); err != nil {
				return nil, &SyntaxError{path, line, fmt.Sprintf("invalid JSON: %v", err)}
			}
			if len(hdr.Parameters) == 0 {
				return nil, &SyntaxError{path, line, "first line must declare parameters"}
			}
			for _, name := range hdr.Parameters {
				if _, err := exp.AddParameter(name); err != nil {
					return nil, &SyntaxError{path, line, err.Error()}
				}
			}
			sawHeader = true
			continue
		}
		var jm jsonMeasurement
		if err := json.Unmarshal([]byte(text), &jm); err != nil {
			return nil, &SyntaxError{path, line, fmt.Sprintf("invalid JSON: %v", err)}
		}
		if err := addJSONMeasurement(exp, jm); err != nil {
			return nil, &SyntaxError{path, line, err.Error()}
		}
		sink.Step(1)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if !sawHeader {
		return nil, &SyntaxError{path, 1, "first line must declare parameters"}
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return exp, nil
}

func addJSONMeasurement(exp *experiment.Experiment, jm jsonMeasurement) error {
	if jm.Callpath == "" {
		return fmt.Errorf("measurement needs a callpath")
	}
	if jm.Metric == "" {
		return fmt.Errorf("measurement needs a metric")
	}
	m, err := experiment.NewMeasurement(exp.Callpath(jm.Callpath), exp.Metric(jm.Metric),
		experiment.Coordinate(jm.Coordinate), jm.Values)
	if err != nil {
		return err
	}
	return exp.AddMeasurement(m)
}
