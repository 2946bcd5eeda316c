// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modeler

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modelfn"
)

// fakeModeler is a minimal strategy for exercising the registry and
// the option protocol.
type fakeModeler struct {
	name  string
	flags *flag.FlagSet

	threshold float64
	verbose   bool
}

func newFake(name string) *fakeModeler {
	m := &fakeModeler{name: name, threshold: 0.5}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Float64Var(&m.threshold, "threshold", m.threshold, "noise threshold")
	fs.BoolVar(&m.verbose, "verbose", m.verbose, "emit extra warnings")
	m.flags = fs
	return m
}

func (m *fakeModeler) Name() string { return m.name }

func (m *fakeModeler) Flags() *flag.FlagSet { return m.flags }

func (m *fakeModeler) Model(ms []*experiment.Measurement, opts FitOpts) (*Model, error) {
	return &Model{Function: &modelfn.Function{}, Modeler: m.name}, nil
}

// fakeComposite delegates to a nested fakeModeler.
type fakeComposite struct {
	*fakeModeler
	nested Modeler
}

func newFakeComposite() *fakeComposite {
	return &fakeComposite{fakeModeler: newFake("combined"), nested: newFake("inner")}
}

func (c *fakeComposite) SetNested(name string) error {
	if name != "inner" && name != "other" {
		return &UnknownModelerError{Name: name}
	}
	c.nested = newFake(name)
	return nil
}

func (c *fakeComposite) Nested() Modeler { return c.nested }

func TestConfigure(t *testing.T) {
	m := newFake("solo")
	if err := Configure(m, []string{"threshold=0.25", "verbose=true"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if m.threshold != 0.25 || !m.verbose {
		t.Errorf("options not applied: threshold=%v verbose=%v", m.threshold, m.verbose)
	}
}

func TestConfigureUnknownOption(t *testing.T) {
	m := newFake("solo")
	err := Configure(m, []string{"bogus=1"})
	var oe *OptionError
	if !errors.As(err, &oe) {
		t.Fatalf("Configure = %v, want *OptionError", err)
	}
	if oe.Modeler != "solo" || oe.Option != "bogus" {
		t.Errorf("OptionError = %+v, want modeler solo, option bogus", oe)
	}
}

func TestConfigureBadValue(t *testing.T) {
	m := newFake("solo")
	err := Configure(m, []string{"threshold=abc"})
	var oe *OptionError
	if !errors.As(err, &oe) {
		t.Fatalf("Configure = %v, want *OptionError", err)
	}
}

func TestConfigureMissingEquals(t *testing.T) {
	m := newFake("solo")
	var oe *OptionError
	if err := Configure(m, []string{"threshold"}); !errors.As(err, &oe) {
		t.Fatalf("Configure = %v, want *OptionError", err)
	}
}

func TestConfigureNested(t *testing.T) {
	c := newFakeComposite()
	// Nested options must reach the replacement strategy even when
	// they precede the swap in token order.
	tokens := []string{
		"single_parameter_options.threshold=0.125",
		"single_parameter_modeler=other",
	}
	if err := Configure(c, tokens); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if c.Nested().Name() != "other" {
		t.Errorf("nested = %s, want other", c.Nested().Name())
	}
	if got := c.Nested().(*fakeModeler).threshold; got != 0.125 {
		t.Errorf("nested threshold = %v, want 0.125", got)
	}
}

func TestConfigureNestedOnPlainModeler(t *testing.T) {
	m := newFake("solo")
	var oe *OptionError
	if err := Configure(m, []string{"single_parameter_modeler=other"}); !errors.As(err, &oe) {
		t.Fatalf("Configure = %v, want *OptionError", err)
	}
	if err := Configure(m, []string{"single_parameter_options.threshold=1"}); !errors.As(err, &oe) {
		t.Fatalf("Configure = %v, want *OptionError", err)
	}
}

func TestConfigureUnknownNestedModeler(t *testing.T) {
	c := newFakeComposite()
	err := Configure(c, []string{"single_parameter_modeler=bogus"})
	var ue *UnknownModelerError
	if !errors.As(err, &ue) {
		t.Fatalf("Configure = %v, want *UnknownModelerError", err)
	}
}

func TestRegistry(t *testing.T) {
	RegisterSingle(&Info{
		Name: "regtest-lin",
		Doc:  "test strategy",
		New:  func() Modeler { return newFake("regtest-lin") },
	}, "regtest-alias")
	RegisterMulti(&Info{
		Name: "regtest-comb",
		Doc:  "test composite",
		New:  func() Modeler { return newFakeComposite() },
	})

	m, err := Select("ReGTest-Lin", 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if m.Name() != "regtest-lin" {
		t.Errorf("Name = %s, want regtest-lin", m.Name())
	}
	if _, err := Select("regtest-alias", 1); err != nil {
		t.Errorf("Select by alias: %v", err)
	}

	// The single registry must not satisfy multi-parameter requests.
	_, err = Select("regtest-lin", 2)
	var ue *UnknownModelerError
	if !errors.As(err, &ue) || !ue.MultiParameter {
		t.Fatalf("Select(regtest-lin, 2) = %v, want multi-parameter UnknownModelerError", err)
	}

	if _, err := Select("regtest-comb", 2); err != nil {
		t.Errorf("Select multi: %v", err)
	}

	info, ok := LookupSingle("regtest-lin")
	if !ok {
		t.Fatal("LookupSingle failed")
	}
	opts := info.Options()
	if len(opts) != 2 || opts[0].Name != "threshold" {
		t.Errorf("Options = %+v, want threshold and verbose", opts)
	}
}

func TestRecoverable(t *testing.T) {
	err := Recoverablef("pair has %d coordinates", 1)
	if !Recoverable(err) {
		t.Error("Recoverablef result not recoverable")
	}
	wrapped := fmt.Errorf("modeling main/time: %w", err)
	if !Recoverable(wrapped) {
		t.Error("wrapped recoverable error not recognized")
	}
	if Recoverable(errors.New("plain")) {
		t.Error("plain error reported recoverable")
	}
}

func newMeasurements(t *testing.T, points map[float64][]float64) []*experiment.Measurement {
	t.Helper()
	e := experiment.New()
	if _, err := e.AddParameter("p"); err != nil {
		t.Fatal(err)
	}
	cp, met := e.Callpath("main"), e.Metric("time")
	var ms []*experiment.Measurement
	for x, values := range points {
		m, err := experiment.NewMeasurement(cp, met, experiment.Coordinate{x}, values)
		if err != nil {
			t.Fatal(err)
		}
		ms = append(ms, m)
	}
	return ms
}

func TestEvaluate(t *testing.T) {
	// y = 2x fitted exactly.
	ms := newMeasurements(t, map[float64][]float64{
		1: {2}, 2: {4}, 3: {6}, 4: {8}, 5: {10},
	})
	fn := &modelfn.Function{Terms: []modelfn.Term{
		{Coeff: 2, Factors: []modelfn.Factor{{Param: 0, PolyExp: 1}}},
	}}
	stats := Evaluate(fn, ms, false, 2)
	if stats.RSS != 0 {
		t.Errorf("RSS = %v, want 0", stats.RSS)
	}
	if stats.SMAPE != 0 {
		t.Errorf("SMAPE = %v, want 0", stats.SMAPE)
	}
	if math.Abs(stats.AR2-1) > 1e-12 {
		t.Errorf("AR2 = %v, want 1", stats.AR2)
	}

	// A constant function over varying data must not look perfect.
	flat := &modelfn.Function{Constant: 6}
	stats = Evaluate(flat, ms, false, 1)
	if stats.RSS <= 0 {
		t.Errorf("RSS = %v, want > 0", stats.RSS)
	}
	if !(stats.AR2 < 1) {
		t.Errorf("AR2 = %v, want < 1", stats.AR2)
	}

	// Identical values fitted by their constant are a perfect fit
	// even though the total sum of squares is zero.
	flat5 := newMeasurements(t, map[float64][]float64{1: {5}, 2: {5}, 3: {5}})
	stats = Evaluate(&modelfn.Function{Constant: 5}, flat5, false, 1)
	if stats.AR2 != 1 || stats.RSS != 0 {
		t.Errorf("constant fit stats = %+v, want RSS 0, AR2 1", stats)
	}
}
