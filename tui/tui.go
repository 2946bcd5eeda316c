// Copyright 2026 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tui implements the interactive modeling session.
//
// A Session wraps the batch pipeline (read, fit, report) in a
// terminal program. Warnings and errors raised while the session
// runs are routed through an explicit Sink instead of process-global
// handlers; the default sink turns them into dialogs drawn by the
// session window. Warnings never block. A recoverable error shows a
// blocking dialog and the session continues; any other error shows a
// blocking dialog and the session terminates with a non-zero status
// once the dialog is dismissed.
package tui

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/perfmodel/perfmodel/chart"
	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modelgen"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/progress"
)

// A Category tells a Sink how a report must be presented.
type Category int

const (
	// Warning reports are informational. The session continues and
	// the user is not interrupted.
	Warning Category = iota

	// Recoverable reports interrupt the user but the session stays
	// usable after the dialog is dismissed.
	Recoverable

	// Fatal reports interrupt the user and terminate the session
	// with a non-zero status once dismissed.
	Fatal
)

func (c Category) String() string {
	switch c {
	case Warning:
		return "warning"
	case Recoverable:
		return "error"
	case Fatal:
		return "fatal error"
	}
	return "unknown"
}

// A Sink receives every warning and error the session raises. The
// session window's own sink presents them as dialogs; tests install
// recording sinks.
type Sink interface {
	Report(cat Category, err error)
}

// Classify returns the category the session uses for an error it did
// not raise itself. Only the designated recoverable category keeps
// the session alive.
func Classify(err error) Category {
	if modeler.Recoverable(err) {
		return Recoverable
	}
	return Fatal
}

// A LoadFunc reads one experiment from a path, reporting read
// progress to sink. The expfmt readers satisfy it.
type LoadFunc func(path string, sink progress.Reporter) (*experiment.Experiment, error)

// Config configures a new Session. The zero value is usable.
type Config struct {
	// Sink receives the session's warnings and errors. A nil Sink
	// routes them to dialogs drawn by the session window.
	Sink Sink

	// Log receives diagnostics. Nil means slog.Default.
	Log *slog.Logger

	// Modeler names the strategy used for fitting. Empty means
	// "default".
	Modeler string

	// Options are KEY=VALUE tokens applied to the strategy before
	// fitting.
	Options []string

	// UseMedian aggregates measurements by median instead of mean.
	UseMedian bool

	// Output is where the session window is drawn. Nil means the
	// terminal. Tests point it at a buffer.
	Output io.Writer
}

// A Session is one interactive modeling session. Create it with New,
// optionally Load a file, then either Run the window or, in
// automated use, read the session state directly after Wait.
type Session struct {
	cfg     Config
	log     *slog.Logger
	sink    Sink
	preload chan struct{}

	exp *experiment.Experiment
	set *modelgen.ModelSet

	// pending holds dialogs queued by the default sink before the
	// window starts drawing. Only the default sink fills it.
	pending []dialog

	// fatal records that a Fatal report was raised. The session
	// terminates with a non-zero status after its dialog.
	fatal bool
}

// New creates a session. The chart font cache is warmed on a
// background goroutine so the first plot does not stall the window;
// Run and Wait join it before any drawing can happen.
func New(cfg Config) *Session {
	s := &Session{
		cfg:     cfg,
		log:     cfg.Log,
		sink:    cfg.Sink,
		preload: make(chan struct{}),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.sink == nil {
		s.sink = (*dialogSink)(s)
	}
	go func() {
		chart.Preload()
		close(s.preload)
	}()
	return s
}

// Wait blocks until the font preloader is done. It is safe to call
// more than once.
func (s *Session) Wait() {
	<-s.preload
}

// Experiment returns the loaded experiment, or nil.
func (s *Session) Experiment() *experiment.Experiment { return s.exp }

// Models returns the models fitted for the loaded experiment, or nil.
func (s *Session) Models() *modelgen.ModelSet { return s.set }

// Fatal reports whether a fatal report was raised. Run returns a
// non-zero status for such a session.
func (s *Session) Fatal() bool { return s.fatal }

// Load reads one experiment with read, fits models for it, and makes
// it the session's experiment. All failures are routed to the
// session's sink; fitting warnings arrive there too, one report per
// warning. A failed Load leaves the previous experiment in place.
func (s *Session) Load(read LoadFunc, path string) {
	s.log.Debug("loading experiment", "path", path)
	exp, err := read(path, progress.Discard)
	if err != nil {
		s.report(Classify(err), err)
		return
	}
	s.install(exp)
}

// install fits models for exp and, on success, swaps it in.
func (s *Session) install(exp *experiment.Experiment) {
	name := s.cfg.Modeler
	if name == "" {
		name = "default"
	}
	m, err := modeler.Select(name, len(exp.Parameters()))
	if err != nil {
		s.report(Classify(err), err)
		return
	}
	if err := modeler.Configure(m, s.cfg.Options); err != nil {
		s.report(Classify(err), err)
		return
	}
	gen := &modelgen.Generator{Experiment: exp, Modeler: m, UseMedian: s.cfg.UseMedian}
	set, err := gen.ModelAll(progress.Discard)
	if err != nil {
		s.report(Classify(err), err)
		return
	}
	s.exp, s.set = exp, set
	s.log.Debug("modeled experiment", "models", set.Len())
	for _, w := range set.Warnings() {
		s.report(Warning, w)
	}
}

// report routes one warning or error to the sink and records the
// terminal state for Fatal reports.
func (s *Session) report(cat Category, err error) {
	switch cat {
	case Warning:
		s.log.Warn(err.Error())
	default:
		s.log.Error(err.Error(), "category", cat.String())
	}
	if cat == Fatal {
		s.fatal = true
	}
	s.sink.Report(cat, err)
}

// Run joins the font preloader and runs the session window until the
// user quits. The status is 0 after a normal quit and 1 when the
// session terminated after a fatal dialog.
//
// A session constructed with an explicit Sink presents reports
// itself; if such a session is already fatal, Run returns 1 without
// drawing.
func (s *Session) Run() int {
	s.Wait()
	if s.cfg.Sink != nil && s.fatal {
		return 1
	}
	var opts []tea.ProgramOption
	if s.cfg.Output != nil {
		opts = append(opts, tea.WithOutput(s.cfg.Output))
	}
	final, err := tea.NewProgram(newModel(s), opts...).Run()
	if err != nil {
		s.log.Error(err.Error())
		return 1
	}
	if m, ok := final.(model); ok && m.fatal {
		return 1
	}
	return 0
}

// dialogSink is the default Sink: it queues reports as dialogs for
// the session window. Reports raised before the window starts are
// replayed when it does.
type dialogSink Session

func (ds *dialogSink) Report(cat Category, err error) {
	ds.pending = append(ds.pending, dialog{cat: cat, text: err.Error()})
}
