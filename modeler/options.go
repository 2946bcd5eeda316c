// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modeler

import (
	"errors"
	"strings"
)

// Reserved option keys understood by Configure when the target is a
// composite strategy.
const (
	// NestedModelerKey selects the nested single-parameter
	// strategy of a composite: "single_parameter_modeler=refining".
	NestedModelerKey = "single_parameter_modeler"

	// NestedOptionPrefix routes an option to the nested strategy:
	// "single_parameter_options.epsilon=0.01".
	NestedOptionPrefix = "single_parameter_options."
)

// Configure applies key=value option tokens to m. The reserved
// single_parameter_modeler key is applied first regardless of token
// order, so nested options always reach the strategy they were meant
// for. Unknown keys and malformed values are reported as
// *OptionError; nothing is fitted before configuration succeeds.
func Configure(m Modeler, tokens []string) error {
	// First pass: swap the nested strategy of a composite.
	for _, tok := range tokens {
		key, value, err := splitOption(m, tok)
		if err != nil {
			return err
		}
		if key != NestedModelerKey {
			continue
		}
		c, ok := m.(Composite)
		if !ok {
			return &OptionError{Modeler: m.Name(), Option: key, Value: value,
				Err: errors.New("only valid for multi-parameter modelers")}
		}
		if err := c.SetNested(value); err != nil {
			return err
		}
	}

	// Second pass: everything else, in order.
	for _, tok := range tokens {
		key, value, _ := splitOption(m, tok)
		switch {
		case key == NestedModelerKey:
			// Applied above.
		case strings.HasPrefix(key, NestedOptionPrefix):
			c, ok := m.(Composite)
			if !ok {
				return &OptionError{Modeler: m.Name(), Option: key, Value: value,
					Err: errors.New("only valid for multi-parameter modelers")}
			}
			name := strings.TrimPrefix(key, NestedOptionPrefix)
			if err := c.Nested().Flags().Set(name, value); err != nil {
				return &OptionError{Modeler: c.Nested().Name(), Option: name, Value: value, Err: err}
			}
		default:
			if err := m.Flags().Set(key, value); err != nil {
				return &OptionError{Modeler: m.Name(), Option: key, Value: value, Err: err}
			}
		}
	}
	return nil
}

func splitOption(m Modeler, tok string) (key, value string, err error) {
	key, value, ok := strings.Cut(tok, "=")
	if !ok || key == "" {
		return "", "", &OptionError{Modeler: m.Name(), Option: tok,
			Err: errors.New("want KEY=VALUE")}
	}
	return key, value, nil
}
