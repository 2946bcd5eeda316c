// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package progress

import (
	"fmt"
	"io"
	"strings"
)

const barWidth = 30

// A Bar is a Reporter that draws a single-line terminal progress bar,
// redrawing in place with a carriage return. It is scoped to one
// phase: create it when the phase starts and Close it when the phase
// ends, normally with defer. A Bar is not safe for concurrent use.
type Bar struct {
	w      io.Writer
	desc   string
	total  int
	done   int
	closed bool
}

// NewBar returns a Bar labeled with desc that draws to w. Pass the
// process's stderr so that bars do not mix with report output.
func NewBar(w io.Writer, desc string) *Bar {
	b := &Bar{w: w, desc: desc}
	b.draw()
	return b
}

// SetTotal announces the number of steps and switches the bar from a
// plain counter to a percentage gauge.
func (b *Bar) SetTotal(n int) {
	b.total = n
	b.draw()
}

// Step advances the bar by n steps.
func (b *Bar) Step(n int) {
	b.done += n
	b.draw()
}

// Close finishes the bar's line. Updates after Close are ignored.
func (b *Bar) Close() error {
	if b.closed {
		return nil
	}
	b.draw()
	b.closed = true
	_, err := fmt.Fprintln(b.w)
	return err
}

func (b *Bar) draw() {
	if b.closed {
		return
	}
	if b.total <= 0 {
		fmt.Fprintf(b.w, "\r%s: %d", b.desc, b.done)
		return
	}
	done := b.done
	if done > b.total {
		done = b.total
	}
	filled := done * barWidth / b.total
	fmt.Fprintf(b.w, "\r%s: [%s%s] %d/%d",
		b.desc,
		strings.Repeat("=", filled),
		strings.Repeat(" ", barWidth-filled),
		done, b.total)
}
