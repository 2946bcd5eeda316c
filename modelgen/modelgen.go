// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modelgen drives model fitting over a whole experiment,
// producing one model per (call path, metric) pair.
package modelgen

import (
	"fmt"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/progress"
)

// A Generator fits one model for every (call path, metric) pair of an
// experiment with a single strategy instance and run-wide settings.
type Generator struct {
	Experiment *experiment.Experiment
	Modeler    modeler.Modeler

	// UseMedian selects the median as the aggregated value of each
	// measurement for the whole run.
	UseMedian bool
}

// A ModelSet holds the generated models, in generation order.
type ModelSet struct {
	models []*modeler.Model
	byPair map[pairKey]*modeler.Model
}

type pairKey struct {
	callpath, metric string
}

func newModelSet() *ModelSet {
	return &ModelSet{byPair: make(map[pairKey]*modeler.Model)}
}

func (s *ModelSet) add(m *modeler.Model) {
	s.models = append(s.models, m)
	s.byPair[pairKey{m.Callpath.Name, m.Metric.Name}] = m
}

// Len returns the number of models.
func (s *ModelSet) Len() int { return len(s.models) }

// All returns the models in generation order: call paths sorted by
// name, metrics within a call path sorted by name. The caller must
// not modify the returned slice.
func (s *ModelSet) All() []*modeler.Model { return s.models }

// Get returns the model for one pair, or nil.
func (s *ModelSet) Get(callpath, metric string) *modeler.Model {
	return s.byPair[pairKey{callpath, metric}]
}

// Warnings collects the fitting warnings of all models, each wrapped
// with the pair it belongs to, in generation order.
func (s *ModelSet) Warnings() []error {
	var all []error
	for _, m := range s.models {
		for _, w := range m.Warnings {
			all = append(all, fmt.Errorf("%s/%s: %w", m.Callpath.Name, m.Metric.Name, w))
		}
	}
	return all
}

// ModelAll fits a model for every pair of the experiment, in the
// experiment's pair order, and reports progress to sink. The total is
// announced before the first fit and the sink is stepped once per
// pair, whether or not that pair's fit succeeds.
//
// The first fitting failure aborts the run: the error is returned
// wrapped with the pair it occurred on, and no partial ModelSet is
// returned. A recoverable fitting error stays recoverable through the
// wrapping.
func (g *Generator) ModelAll(sink progress.Reporter) (*ModelSet, error) {
	if sink == nil {
		sink = progress.Discard
	}
	pairs := g.Experiment.Pairs()
	sink.SetTotal(len(pairs))

	opts := modeler.FitOpts{
		UseMedian:  g.UseMedian,
		ParamNames: g.Experiment.ParameterNames(),
	}
	set := newModelSet()
	for _, pair := range pairs {
		ms := g.Experiment.Measurements(pair.Callpath, pair.Metric)
		model, err := g.Modeler.Model(ms, opts)
		sink.Step(1)
		if err != nil {
			return nil, fmt.Errorf("modeling %s: %w", pair, err)
		}
		model.Callpath = pair.Callpath
		model.Metric = pair.Metric
		set.add(model)
	}
	return set, nil
}
