// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Perfmodel fits closed-form performance models to empirical
// measurements.
//
// Usage:
//
//	perfmodel -profile|-text|-json|-talpas|-legacy|-gobench [options] path
//
// Perfmodel reads performance measurements sampled at varying
// parameter values, fits one model per measured (call path, metric)
// pair with the selected modeling strategy, and prints a report of
// the fitted models to stdout.
//
// Exactly one format specifier selects how the input at path is read:
//
//	-profile   directory of profile runs, one subdirectory per run
//	-text      plain text measurements
//	-json      JSON measurements, as a document or one object per line
//	-talpas    Talpas measurement lines
//	-legacy    legacy experiment database
//	-gobench   Go benchmark output
//
// The -modeler flag selects the fitting strategy and -options applies
// key=value options to it. The options a strategy understands are
// printed by -help-options:
//
//	$ perfmodel -help-options refining
//
// For example, to model a scaling study collected as Go benchmark
// output, refine exponents a little harder, and keep the plots:
//
//	$ perfmodel -gobench -modeler refining -options epsilon=0.001 -plots out bench.txt
//
// Defaults for the modeler, options, scaling, median, log and print
// settings may be placed in a YAML file named by -config; flags given
// on the command line take precedence over the file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/perfmodel/perfmodel/chart"
	"github.com/perfmodel/perfmodel/config"
	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/expfmt"
	"github.com/perfmodel/perfmodel/modelgen"
	"github.com/perfmodel/perfmodel/modeler"
	_ "github.com/perfmodel/perfmodel/modeler/multi"
	_ "github.com/perfmodel/perfmodel/modeler/single"
	"github.com/perfmodel/perfmodel/progress"
	"github.com/perfmodel/perfmodel/report"
	"github.com/perfmodel/perfmodel/storage"
	_ "github.com/perfmodel/perfmodel/storage/mysql"
	_ "github.com/perfmodel/perfmodel/storage/sqlite3"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
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

func run(stdout, stderr io.Writer, args []string) int {
	fs := flag.NewFlagSet("perfmodel", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		flagProfile = fs.Bool("profile", false, "read a profile directory, one run per subdirectory")
		flagText    = fs.Bool("text", false, "read plain text measurements")
		flagJSON    = fs.Bool("json", false, "read JSON measurements")
		flagTalpas  = fs.Bool("talpas", false, "read Talpas measurement lines")
		flagLegacy  = fs.Bool("legacy", false, "read a legacy experiment database")
		flagGobench = fs.Bool("gobench", false, "read Go benchmark output")

		flagModeler = fs.String("modeler", "default", "fit models with `strategy`")
		flagScaling = fs.String("scaling", "weak", "profile directory scaling `mode`: weak or strong")
		flagMedian  = fs.Bool("median", false, "aggregate repeated samples by median instead of mean")
		flagOut     = fs.String("out", "", "also write the text report to `file`")
		flagPrint   = fs.String("print", "all", "report detail `level`: all, callpaths, metrics, parameters, or functions")
		flagLog     = fs.String("log", "info", "minimum log `level`: debug, info, warn, or error")
		flagHelpOpt = fs.String("help-options", "", "describe the options of `strategy` and exit")
		flagConfig  = fs.String("config", "", "read defaults from YAML `file`")
		flagStore   = fs.String("store", "", "save the experiment and models to `database`, sqlite3:PATH or mysql:DSN")
		flagPlots   = fs.String("plots", "", "write one SVG plot per model into `dir`")
		flagHTML    = fs.String("html", "", "write an HTML report to `file`")
	)
	var flagOptions optionList
	fs.Var(&flagOptions, "options", "apply `key=value` strategy options, comma or space separated")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: perfmodel -profile|-text|-json|-talpas|-legacy|-gobench [options] path\n")
		fmt.Fprintf(stderr, "options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *flagHelpOpt != "" {
		return printOptions(stdout, stderr, *flagHelpOpt)
	}

	// Apply defaults from the configuration file beneath flags given
	// explicitly on the command line.
	given := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })
	if *flagConfig != "" {
		cfg, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintf(stderr, "perfmodel: %v\n", err)
			return 1
		}
		if !given["modeler"] && cfg.Modeler != "" {
			*flagModeler = cfg.Modeler
		}
		if !given["scaling"] && cfg.Scaling != "" {
			*flagScaling = cfg.Scaling
		}
		if !given["median"] && cfg.Median {
			*flagMedian = true
		}
		if !given["log"] && cfg.Log != "" {
			*flagLog = cfg.Log
		}
		if !given["print"] && cfg.Print != "" {
			*flagPrint = cfg.Print
		}
		if len(cfg.Options) > 0 {
			flagOptions = append(optionList(cfg.Options), flagOptions...)
		}
	}

	logLevel, err := config.ParseLogLevel(*flagLog)
	if err != nil {
		fmt.Fprintf(stderr, "perfmodel: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	printLevel, err := report.ParseLevel(*flagPrint)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}

	var formats []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"profile", *flagProfile},
		{"text", *flagText},
		{"json", *flagJSON},
		{"talpas", *flagTalpas},
		{"legacy", *flagLegacy},
		{"gobench", *flagGobench},
	} {
		if f.on {
			formats = append(formats, f.name)
		}
	}
	switch {
	case len(formats) == 0:
		logger.Error("The file format specifier is missing.")
		return 1
	case len(formats) > 1:
		logger.Error("More than one file format specifier given.", "specifiers", strings.Join(formats, ", "))
		return 1
	}
	format := formats[0]

	scaling := expfmt.ScaleWeak
	if format == "profile" {
		scaling, err = expfmt.ParseScaling(*flagScaling)
		if err != nil {
			logger.Error(err.Error())
			return 1
		}
	}

	if fs.NArg() != 1 {
		logger.Error("The given file path is not valid.")
		return 1
	}
	path := fs.Arg(0)
	st, err := os.Stat(path)
	if err != nil {
		logger.Error("The given file path is not valid.", "path", path, "err", err)
		return 1
	}
	if format == "profile" && !st.IsDir() {
		logger.Error("The given path is not valid. It must point to a directory.", "path", path)
		return 1
	}
	if format != "profile" && st.IsDir() {
		logger.Error("The given file path is not valid.", "path", path, "err", "path is a directory")
		return 1
	}

	logger.Debug("loading experiment", "format", format, "path", path)
	exp, err := loadExperiment(stderr, format, path, scaling)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}

	m, err := modeler.Select(*flagModeler, len(exp.Parameters()))
	if err != nil {
		logger.Error(err.Error())
		return 1
	}
	if err := modeler.Configure(m, flagOptions); err != nil {
		logger.Error(err.Error())
		return 1
	}

	logger.Debug("generating models", "modeler", m.Name(), "pairs", len(exp.Pairs()))
	set, err := generateModels(stderr, exp, m, *flagMedian)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}
	for _, w := range set.Warnings() {
		logger.Warn(w.Error())
	}

	var buf bytes.Buffer
	report.Text(&buf, exp, set, printLevel)
	stdout.Write(buf.Bytes())

	if *flagOut != "" {
		if err := os.WriteFile(*flagOut, buf.Bytes(), 0666); err != nil {
			logger.Error(err.Error())
			return 1
		}
	}
	if *flagHTML != "" {
		if err := writeHTML(*flagHTML, exp, set); err != nil {
			logger.Error(err.Error())
			return 1
		}
	}
	if *flagPlots != "" {
		n, err := chart.WriteAll(*flagPlots, exp, set, *flagMedian)
		if err != nil {
			logger.Error(err.Error())
			return 1
		}
		logger.Debug("wrote plots", "dir", *flagPlots, "plots", n)
	}
	if *flagStore != "" {
		if err := storeExperiment(*flagStore, exp, set); err != nil {
			logger.Error(err.Error())
			return 1
		}
	}
	return 0
}

// loadExperiment reads the input under a scoped progress bar on
// stderr.
func loadExperiment(stderr io.Writer, format, path string, scaling expfmt.Scaling) (*experiment.Experiment, error) {
	bar := progress.NewBar(stderr, "Loading file")
	defer bar.Close()
	switch format {
	case "profile":
		return expfmt.ReadProfileDir(path, scaling, bar)
	case "text":
		return expfmt.ReadTextFile(path, bar)
	case "json":
		return expfmt.ReadJSONFile(path, bar)
	case "talpas":
		return expfmt.ReadTalpasFile(path, bar)
	case "legacy":
		return expfmt.ReadLegacyFile(path, bar)
	case "gobench":
		return expfmt.ReadGoBenchFile(path, bar)
	}
	panic("unknown format " + format)
}

// generateModels fits every pair under a scoped progress bar.
func generateModels(stderr io.Writer, exp *experiment.Experiment, m modeler.Modeler, median bool) (*modelgen.ModelSet, error) {
	bar := progress.NewBar(stderr, "Generating models")
	defer bar.Close()
	gen := &modelgen.Generator{Experiment: exp, Modeler: m, UseMedian: median}
	return gen.ModelAll(bar)
}

// printOptions describes the option schema of one strategy.
func printOptions(stdout, stderr io.Writer, name string) int {
	info, ok := modeler.LookupSingle(name)
	if !ok {
		info, ok = modeler.LookupMulti(name)
	}
	if !ok {
		fmt.Fprintf(stderr, "perfmodel: unknown modeler %q (have %s)\n", name, strings.Join(modeler.Names(), ", "))
		return 1
	}
	fmt.Fprintf(stdout, "%s: %s\n", info.Name, info.Doc)
	opts := info.Options()
	if len(opts) == 0 {
		fmt.Fprintln(stdout, "  no options")
		return 0
	}
	width := 0
	for _, o := range opts {
		if len(o.Name) > width {
			width = len(o.Name)
		}
	}
	for _, o := range opts {
		fmt.Fprintf(stdout, "  %-*s  %s (default %s)\n", width, o.Name, o.Usage, o.Default)
	}
	return 0
}

func writeHTML(path string, exp *experiment.Experiment, set *modelgen.ModelSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.HTML(f, exp, set); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// storeExperiment saves the experiment and its models to the
// experiment database named by dsn.
func storeExperiment(dsn string, exp *experiment.Experiment, set *modelgen.ModelSet) error {
	driver, source := storage.ParseDSN(dsn)
	db, err := storage.Open(driver, source)
	if err != nil {
		return err
	}
	defer db.Close()
	id, err := db.SaveExperiment(exp)
	if err != nil {
		return err
	}
	return db.SaveModels(id, exp.ParameterNames(), set.All())
}
