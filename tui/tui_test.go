// Copyright 2026 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/goleak"

	"github.com/perfmodel/perfmodel/expfmt"
	"github.com/perfmodel/perfmodel/modeler"
	_ "github.com/perfmodel/perfmodel/modeler/multi"
	_ "github.com/perfmodel/perfmodel/modeler/single"
)

type sinkReport struct {
	cat  Category
	text string
}

// recordSink records reports instead of showing dialogs.
type recordSink struct {
	reports []sinkReport
}

func (r *recordSink) Report(cat Category, err error) {
	r.reports = append(r.reports, sinkReport{cat, err.Error()})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeExperiment writes a one-parameter text experiment with npoints
// coordinates and three samples per coordinate.
func writeExperiment(t *testing.T, npoints int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("PARAMETER p\nPOINTS")
	for i := 0; i < npoints; i++ {
		fmt.Fprintf(&b, " %d", 2<<i)
	}
	b.WriteString("\nMETRIC time\nREGION main\n")
	for i := 0; i < npoints; i++ {
		v := 2 * (2 << i)
		fmt.Fprintf(&b, "DATA %d %d %d\n", v, v, v)
	}
	path := filepath.Join(t.TempDir(), "exp.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSessionLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	var rec recordSink
	s := New(Config{Sink: &rec, Log: testLogger()})
	s.Load(expfmt.ReadTextFile, writeExperiment(t, 5))
	s.Wait()

	if s.Experiment() == nil {
		t.Fatal("no experiment after Load")
	}
	if n := s.Models().Len(); n != 1 {
		t.Errorf("Models().Len() = %d, want 1", n)
	}
	if s.Fatal() {
		t.Error("session is fatal after a clean load")
	}
	if len(rec.reports) != 0 {
		t.Errorf("sink saw %d reports, want none: %v", len(rec.reports), rec.reports)
	}
}

func TestSessionLoadMissing(t *testing.T) {
	defer goleak.VerifyNone(t)

	var rec recordSink
	s := New(Config{Sink: &rec, Log: testLogger()})
	s.Load(expfmt.ReadTextFile, filepath.Join(t.TempDir(), "nosuch.txt"))
	s.Wait()

	if s.Experiment() != nil {
		t.Error("failed Load installed an experiment")
	}
	if !s.Fatal() {
		t.Error("session is not fatal after a missing file")
	}
	if len(rec.reports) != 1 || rec.reports[0].cat != Fatal {
		t.Fatalf("sink saw %v, want one Fatal report", rec.reports)
	}
	// With an explicit sink the fatal session terminates without
	// drawing.
	if got := s.Run(); got != 1 {
		t.Errorf("Run = %d, want 1", got)
	}
}

func TestSessionRecoverable(t *testing.T) {
	defer goleak.VerifyNone(t)

	var rec recordSink
	s := New(Config{Sink: &rec, Log: testLogger()})
	s.Load(expfmt.ReadTextFile, writeExperiment(t, 1))
	s.Wait()

	if s.Fatal() {
		t.Error("recoverable fit failure marked the session fatal")
	}
	if len(rec.reports) != 1 || rec.reports[0].cat != Recoverable {
		t.Fatalf("sink saw %v, want one Recoverable report", rec.reports)
	}
	if want := "need at least 2 distinct coordinates"; !strings.Contains(rec.reports[0].text, want) {
		t.Errorf("report %q does not mention %q", rec.reports[0].text, want)
	}
}

func TestSessionWarnings(t *testing.T) {
	defer goleak.VerifyNone(t)

	var rec recordSink
	s := New(Config{Sink: &rec, Log: testLogger()})
	s.Load(expfmt.ReadTextFile, writeExperiment(t, 4))
	s.Wait()

	if s.Models() == nil || s.Models().Len() != 1 {
		t.Fatal("warned fit did not produce a model")
	}
	if s.Fatal() {
		t.Error("warning marked the session fatal")
	}
	if len(rec.reports) != 1 || rec.reports[0].cat != Warning {
		t.Fatalf("sink saw %v, want one Warning report", rec.reports)
	}
	if want := "only 4 measurement points"; !strings.Contains(rec.reports[0].text, want) {
		t.Errorf("report %q does not mention %q", rec.reports[0].text, want)
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(modeler.Recoverablef("thin data")); got != Recoverable {
		t.Errorf("Classify(recoverable) = %v, want Recoverable", got)
	}
	wrapped := fmt.Errorf("modeling main/time: %w", modeler.Recoverablef("thin data"))
	if got := Classify(wrapped); got != Recoverable {
		t.Errorf("Classify(wrapped recoverable) = %v, want Recoverable", got)
	}
	if got := Classify(errors.New("disk on fire")); got != Fatal {
		t.Errorf("Classify(other) = %v, want Fatal", got)
	}
}

func TestWindowEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Config{Log: testLogger()})
	s.Wait()
	m := newModel(s)
	view := m.View()
	if !strings.Contains(view, "No experiment loaded.") {
		t.Errorf("empty session view does not say so:\n%s", view)
	}
	if !strings.Contains(view, "esc: quit") {
		t.Errorf("view has no key help:\n%s", view)
	}
}

func TestWindowFatalDialog(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Config{Log: testLogger()})
	s.Load(expfmt.ReadTextFile, filepath.Join(t.TempDir(), "nosuch.txt"))
	s.Wait()

	m := newModel(s)
	if len(m.dialogs) != 1 || m.dialogs[0].cat != Fatal {
		t.Fatalf("dialogs = %v, want one fatal dialog", m.dialogs)
	}
	if view := m.View(); !strings.Contains(view, "fatal error") {
		t.Errorf("view does not show the fatal dialog:\n%s", view)
	}

	// Dismissing a fatal dialog terminates the window.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	nm := next.(model)
	if !nm.fatal {
		t.Error("dismissed fatal dialog did not mark the window fatal")
	}
	if cmd == nil {
		t.Error("dismissed fatal dialog did not quit")
	}
}

func TestWindowRecoverableDialog(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Config{Log: testLogger()})
	s.Load(expfmt.ReadTextFile, writeExperiment(t, 1))
	s.Wait()

	m := newModel(s)
	if len(m.dialogs) != 1 || m.dialogs[0].cat != Recoverable {
		t.Fatalf("dialogs = %v, want one recoverable dialog", m.dialogs)
	}

	// Typing is captured by the dialog.
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if got := next.(model).input.Value(); got != "" {
		t.Errorf("dialog let input through: %q", got)
	}

	// Dismissal keeps the session running.
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	nm := next.(model)
	if nm.fatal || nm.quitting {
		t.Error("dismissed recoverable dialog terminated the window")
	}
	if len(nm.dialogs) != 0 {
		t.Errorf("dialogs = %v after dismissal, want none", nm.dialogs)
	}
}

func TestWindowLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Config{Log: testLogger()})
	s.Wait()
	path := writeExperiment(t, 5)

	m := newModel(s)
	for _, r := range path {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(model)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if !m.working {
		t.Fatal("enter did not start a load")
	}
	if cmd == nil {
		t.Fatal("enter produced no load command")
	}

	// Run the load synchronously and feed its message back in, the
	// way the program loop would.
	exp, err := expfmt.ReadTextFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	next, _ = m.Update(loadMsg{exp: exp})
	m = next.(model)
	if m.working {
		t.Error("load result left the window working")
	}
	if s.Models() == nil || s.Models().Len() != 1 {
		t.Fatal("window load did not model the experiment")
	}
	if view := m.View(); !strings.Contains(view, "model:") {
		t.Errorf("view does not show the report:\n%s", view)
	}
}

func TestWindowBadPathKeepsRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(Config{Log: testLogger()})
	s.Wait()

	m := newModel(s)
	next, _ := m.Update(loadMsg{err: errors.New("no such file")})
	m = next.(model)
	if len(m.dialogs) != 1 || m.dialogs[0].cat != Recoverable {
		t.Fatalf("dialogs = %v, want one recoverable dialog", m.dialogs)
	}
	if s.Fatal() {
		t.Error("window load failure marked the session fatal")
	}
}
