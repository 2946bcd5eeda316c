// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modeler

import (
	"flag"
	"sort"
	"strings"
)

// Info describes a registered strategy.
type Info struct {
	// Name is the canonical, lower-case name of the strategy.
	Name string

	// Doc is a one-line description shown by option help.
	Doc string

	// New returns a fresh instance with default options.
	New func() Modeler
}

// An Option describes one configurable option of a strategy, as
// reported by Info.Options.
type Option struct {
	Name    string
	Default string
	Usage   string
}

// Options returns the option schema of the strategy. The schema is
// derived from a fresh instance's flag set, so querying it never
// affects a configured modeler.
func (info *Info) Options() []Option {
	var opts []Option
	info.New().Flags().VisitAll(func(f *flag.Flag) {
		opts = append(opts, Option{Name: f.Name, Default: f.DefValue, Usage: f.Usage})
	})
	return opts
}

var (
	singles = make(map[string]*Info)
	multis  = make(map[string]*Info)
)

func register(reg map[string]*Info, info *Info, aliases []string) {
	for _, name := range append([]string{info.Name}, aliases...) {
		name = strings.ToLower(name)
		if _, ok := reg[name]; ok {
			panic("modeler: duplicate registration of " + name)
		}
		reg[name] = info
	}
}

// RegisterSingle adds a single-parameter strategy to the registry
// under its canonical name and any aliases. It panics if a name is
// already taken, so strategies register from package init functions.
func RegisterSingle(info *Info, aliases ...string) {
	register(singles, info, aliases)
}

// RegisterMulti adds a multi-parameter strategy to the registry.
func RegisterMulti(info *Info, aliases ...string) {
	register(multis, info, aliases)
}

// LookupSingle returns the single-parameter strategy registered under
// name. Lookup is case-insensitive.
func LookupSingle(name string) (*Info, bool) {
	info, ok := singles[strings.ToLower(name)]
	return info, ok
}

// LookupMulti returns the multi-parameter strategy registered under
// name.
func LookupMulti(name string) (*Info, bool) {
	info, ok := multis[strings.ToLower(name)]
	return info, ok
}

// Select resolves name against the registry appropriate for an
// experiment with nparams parameters and returns a fresh instance.
func Select(name string, nparams int) (Modeler, error) {
	reg, multi := singles, false
	if nparams > 1 {
		reg, multi = multis, true
	}
	info, ok := reg[strings.ToLower(name)]
	if !ok {
		return nil, &UnknownModelerError{Name: name, MultiParameter: multi}
	}
	return info.New(), nil
}

// Names returns the names accepted by Select for either registry,
// sorted and without duplicates. Drivers use it in usage and error
// messages.
func Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, reg := range []map[string]*Info{singles, multis} {
		for name := range reg {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
