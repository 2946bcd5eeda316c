// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads the optional YAML defaults file consumed by
// the batch CLI. Values from the file sit beneath explicit command
// line flags: a flag given on the command line always wins, a flag
// left at its default falls back to the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/perfmodel/perfmodel/expfmt"
	"github.com/perfmodel/perfmodel/report"
)

// Config holds the defaults a YAML file may provide. The zero value
// means "no defaults": every field is optional and an absent field
// leaves the corresponding flag untouched.
type Config struct {
	// Modeler names the modeling strategy ("default", "basic", ...).
	Modeler string `yaml:"modeler"`

	// Options are KEY=VALUE tokens applied to the strategy before
	// any tokens given on the command line.
	Options []string `yaml:"options"`

	// Scaling selects the profile directory aggregation mode,
	// "weak" or "strong".
	Scaling string `yaml:"scaling"`

	// Median aggregates repeated samples by median instead of mean.
	Median bool `yaml:"median"`

	// Log is the minimum log severity: "debug", "info", "warn" or
	// "error".
	Log string `yaml:"log"`

	// Print is the report detail level: "all", "callpaths",
	// "metrics", "parameters" or "functions".
	Print string `yaml:"print"`
}

// Load reads and validates the YAML defaults file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data into a Config and validates it. Unknown
// keys are rejected so that a typo in the file surfaces as an error
// instead of a silently ignored default.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Scaling != "" {
		if _, err := expfmt.ParseScaling(c.Scaling); err != nil {
			return err
		}
	}
	if c.Log != "" {
		if _, err := ParseLogLevel(c.Log); err != nil {
			return err
		}
	}
	if c.Print != "" {
		if _, err := report.ParseLevel(c.Print); err != nil {
			return err
		}
	}
	for _, tok := range c.Options {
		if key, _, ok := strings.Cut(tok, "="); !ok || key == "" {
			return fmt.Errorf("bad option %q (want KEY=VALUE)", tok)
		}
	}
	return nil
}

// ParseLogLevel maps a severity name to its slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
}
