// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modeler

import (
	"errors"
	"fmt"
)

// An UnknownModelerError reports a request for a strategy name that
// is not registered.
type UnknownModelerError struct {
	Name string
	// MultiParameter indicates which registry was consulted.
	MultiParameter bool
}

func (e *UnknownModelerError) Error() string {
	kind := "single-parameter"
	if e.MultiParameter {
		kind = "multi-parameter"
	}
	return fmt.Sprintf("unknown %s modeler %q", kind, e.Name)
}

// An OptionError reports an unrecognized or malformed strategy
// option. It is raised during configuration, before any fitting
// takes place.
type OptionError struct {
	Modeler string
	Option  string
	Value   string
	Err     error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("modeler %s: option %s=%q: %v", e.Modeler, e.Option, e.Value, e.Err)
}

func (e *OptionError) Unwrap() error { return e.Err }

// A RecoverableError wraps a fitting failure the interactive shell
// can continue from, such as a pair with too few distinct
// coordinates. The batch driver treats it like any other failure.
type RecoverableError struct {
	Err error
}

func (e *RecoverableError) Error() string { return e.Err.Error() }

func (e *RecoverableError) Unwrap() error { return e.Err }

// Recoverablef returns a RecoverableError with a formatted message.
func Recoverablef(format string, args ...interface{}) error {
	return &RecoverableError{Err: fmt.Errorf(format, args...)}
}

// Recoverable reports whether err is or wraps a RecoverableError.
func Recoverable(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}
