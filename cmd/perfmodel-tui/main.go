// Copyright 2026 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Perfmodel-tui is the interactive front end to the modeling
// pipeline.
//
// Usage:
//
//	perfmodel-tui [--text|--json|--legacy path] [options]
//
// Started without arguments, it opens a window that prompts for an
// experiment file; entering a path loads and models it and shows the
// report. With --text, --json or --legacy, the named file is loaded
// and modeled before the window opens.
//
// Warnings from modeling appear as notices above the prompt.
// Recoverable errors, such as a pair with too few distinct
// coordinates, open a dialog and the session continues after it is
// dismissed. Any other error opens a dialog and the program exits
// with a non-zero status when it is dismissed.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/perfmodel/perfmodel/config"
	"github.com/perfmodel/perfmodel/expfmt"
	_ "github.com/perfmodel/perfmodel/modeler/multi"
	_ "github.com/perfmodel/perfmodel/modeler/single"
	_ "github.com/perfmodel/perfmodel/storage/sqlite3"
	"github.com/perfmodel/perfmodel/tui"
)

func main() {
	os.Exit(run(os.Stderr, os.Args[1:]))
}

// optionList collects repeated -options flags, splitting each value
// on commas and spaces.
type optionList []string

func (l *optionList) String() string { return strings.Join(*l, ",") }

func (l *optionList) Set(s string) error {
	toks := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	*l = append(*l, toks...)
	return nil
}

func run(stderr io.Writer, args []string) int {
	fs := flag.NewFlagSet("perfmodel-tui", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		flagText   = fs.String("text", "", "load plain text measurements from `path` at startup")
		flagJSON   = fs.String("json", "", "load JSON measurements from `path` at startup")
		flagLegacy = fs.String("legacy", "", "load a legacy experiment database from `path` at startup")

		flagModeler = fs.String("modeler", "default", "fit models with `strategy`")
		flagMedian  = fs.Bool("median", false, "aggregate repeated samples by median instead of mean")
		flagLog     = fs.String("log", "warn", "minimum log `level`: debug, info, warn, or error")
		flagTest    = fs.Bool("test", false, "construct the session and exit without opening the window")
	)
	var flagOptions optionList
	fs.Var(&flagOptions, "options", "apply `key=value` strategy options, comma or space separated")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: perfmodel-tui [--text|--json|--legacy path] [options]\n")
		fmt.Fprintf(stderr, "options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}

	logLevel, err := config.ParseLogLevel(*flagLog)
	if err != nil {
		fmt.Fprintf(stderr, "perfmodel-tui: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	var (
		load tui.LoadFunc
		path string
		n    int
	)
	for _, sel := range []struct {
		read tui.LoadFunc
		path string
	}{
		{expfmt.ReadTextFile, *flagText},
		{expfmt.ReadJSONFile, *flagJSON},
		{expfmt.ReadLegacyFile, *flagLegacy},
	} {
		if sel.path != "" {
			load, path = sel.read, sel.path
			n++
		}
	}
	if n > 1 {
		logger.Error("More than one file format specifier given.")
		return 1
	}

	s := tui.New(tui.Config{
		Log:       logger,
		Modeler:   *flagModeler,
		Options:   flagOptions,
		UseMedian: *flagMedian,
	})
	if load != nil {
		s.Load(load, path)
	}
	if *flagTest {
		s.Wait()
		if s.Fatal() {
			return 1
		}
		return 0
	}
	return s.Run()
}
