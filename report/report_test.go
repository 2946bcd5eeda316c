// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/internal/diff"
	"github.com/perfmodel/perfmodel/modeler"
	_ "github.com/perfmodel/perfmodel/modeler/single"
	"github.com/perfmodel/perfmodel/modelgen"
)

// modeledExperiment fits exact data so the report output below is
// bit-for-bit reproducible.
func modeledExperiment(t *testing.T) (*experiment.Experiment, *modelgen.ModelSet) {
	t.Helper()
	exp := experiment.New()
	if _, err := exp.AddParameter("p"); err != nil {
		t.Fatal(err)
	}
	add := func(callpath, metric string, f func(p float64) float64) {
		for _, c := range []float64{2, 4, 8, 16, 32} {
			m, err := experiment.NewMeasurement(exp.Callpath(callpath), exp.Metric(metric),
				experiment.Coordinate{c}, []float64{f(c)})
			if err != nil {
				t.Fatal(err)
			}
			if err := exp.AddMeasurement(m); err != nil {
				t.Fatal(err)
			}
		}
	}
	add("main", "time", func(p float64) float64 { return 2 * p })
	add("main", "visits", func(p float64) float64 { return 4 })
	add("main->sub", "time", func(p float64) float64 { return 1 })

	info, ok := modeler.LookupSingle("basic")
	if !ok {
		t.Fatal("basic modeler not registered")
	}
	gen := modelgen.Generator{Experiment: exp, Modeler: info.New()}
	set, err := gen.ModelAll(nil)
	if err != nil {
		t.Fatal(err)
	}
	return exp, set
}

func TestTextAll(t *testing.T) {
	exp, set := modeledExperiment(t)
	var buf bytes.Buffer
	Text(&buf, exp, set, LevelAll)

	want := `Parameters: p

main
  time
    model:   0 + 2 * p
    modeler: basic
    fit:     RSS 0, SMAPE 0%, AR2 1
  visits
    model:   4
    modeler: basic
    fit:     RSS 0, SMAPE 0%, AR2 1

main->sub
  time
    model:   1
    modeler: basic
    fit:     RSS 0, SMAPE 0%, AR2 1
`
	if d := diff.Diff(buf.String(), want); d != "" {
		t.Errorf("report differs (got vs want):\n%s", d)
	}
}

func TestTextLevels(t *testing.T) {
	exp, set := modeledExperiment(t)
	tests := []struct {
		level Level
		want  string
	}{
		{LevelCallpaths, "main\nmain->sub\n"},
		{LevelMetrics, "time\nvisits\n"},
		{LevelParameters, "p\n"},
		{LevelFunctions, "0 + 2 * p\n4\n1\n"},
	}
	for _, test := range tests {
		t.Run(test.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			Text(&buf, exp, set, test.level)
			if d := diff.Diff(buf.String(), test.want); d != "" {
				t.Errorf("report differs (got vs want):\n%s", d)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"all", "callpaths", "metrics", "parameters", "functions"} {
		l, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", name, err)
		}
		if l.String() != name {
			t.Errorf("ParseLevel(%q).String() = %q", name, l.String())
		}
	}
	if _, err := ParseLevel("everything"); err == nil {
		t.Error("ParseLevel(everything) did not fail")
	}
}

func TestHTML(t *testing.T) {
	exp, set := modeledExperiment(t)
	var buf bytes.Buffer
	if err := HTML(&buf, exp, set); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"<p>Parameters: p</p>",
		"<caption>main</caption>",
		"<caption>main-&gt;sub</caption>",
		"0 + 2 * p",
		"<td>basic</td>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML report does not contain %q", want)
		}
	}
}

func TestHTMLEscapes(t *testing.T) {
	exp := experiment.New()
	if _, err := exp.AddParameter("p"); err != nil {
		t.Fatal(err)
	}
	for _, c := range []float64{2, 4} {
		m, err := experiment.NewMeasurement(exp.Callpath("<script>alert(1)</script>"), exp.Metric("time"),
			experiment.Coordinate{c}, []float64{c})
		if err != nil {
			t.Fatal(err)
		}
		if err := exp.AddMeasurement(m); err != nil {
			t.Fatal(err)
		}
	}
	info, _ := modeler.LookupSingle("basic")
	set, err := (&modelgen.Generator{Experiment: exp, Modeler: info.New()}).ModelAll(nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := HTML(&buf, exp, set); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("callpath name was not escaped")
	}
}
