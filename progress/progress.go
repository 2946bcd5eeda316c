// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package progress reports the progress of long-running pipeline
// phases such as loading input files and generating models.
package progress

// A Reporter receives progress updates from a pipeline phase.
//
// A phase that knows its length calls SetTotal once before the first
// Step. Phases with unknown length only call Step, and sinks show a
// plain count.
type Reporter interface {
	// SetTotal announces the number of steps the phase will take.
	SetTotal(n int)

	// Step records n completed steps.
	Step(n int)
}

// Discard is a Reporter that ignores all updates.
var Discard Reporter = discard{}

type discard struct{}

func (discard) SetTotal(int) {}
func (discard) Step(int)     {}

// A Count is a Reporter that just accumulates totals, for callers
// that render progress themselves.
type Count struct {
	Total int
	Done  int
}

func (c *Count) SetTotal(n int) { c.Total = n }
func (c *Count) Step(n int)     { c.Done += n }
