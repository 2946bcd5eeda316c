// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package expfmt reads experiment measurement data in the supported
// input formats: plain text, JSON, Talpas lines, columnar profile
// directories, Go benchmark output, and the experiment containers
// written by package storage.
//
// Every reader returns a validated *experiment.Experiment. Malformed
// content is reported as *SyntaxError with the file and line it
// occurred on; problems opening the input are reported as the
// underlying operating system error.
package expfmt

import (
	"fmt"
)

// A SyntaxError represents a syntax error on a particular line of an
// input file.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// Scaling selects how the profile-directory reader folds the per-rank
// values of one run into a single sample.
type Scaling int

const (
	// ScaleWeak averages across ranks. Under weak scaling each rank
	// works on a constant-size share, so the mean preserves the
	// per-rank cost.
	ScaleWeak Scaling = iota

	// ScaleStrong sums across ranks. Under strong scaling the ranks
	// split a fixed problem, so the sum preserves the total cost.
	ScaleStrong
)

// ParseScaling parses "weak" or "strong".
func ParseScaling(s string) (Scaling, error) {
	switch s {
	case "weak":
		return ScaleWeak, nil
	case "strong":
		return ScaleStrong, nil
	}
	return 0, fmt.Errorf("unknown scaling type %q (want weak or strong)", s)
}

func (s Scaling) String() string {
	switch s {
	case ScaleWeak:
		return "weak"
	case ScaleStrong:
		return "strong"
	}
	return fmt.Sprintf("Scaling(%d)", int(s))
}
