// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expfmt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/progress"
)

// writeRun creates one run directory with its profile.col under root.
func writeRun(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "profile.col"), []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
}

// profileTree builds three runs over p, two repetitions at p=2 and one
// at p=4, plus a stray file that the reader must skip.
func profileTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeRun(t, root, "p=2.r0",
		"main\ttime\t0\t4\n"+
			"main\ttime\t1\t6\n"+
			"main\tvisits\t0\t1\n"+
			"main\tvisits\t1\t1\n")
	writeRun(t, root, "p=2.r1",
		"main\ttime\t0\t5\n"+
			"main\ttime\t1\t9\n")
	writeRun(t, root, "p=4.r0",
		"# per-rank rows\n"+
			"main\ttime\t0\t8\n"+
			"main\ttime\t1\t12\n")
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("not a run\n"), 0666); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestReadProfileDirWeak(t *testing.T) {
	var count progress.Count
	exp, err := ReadProfileDir(profileTree(t), ScaleWeak, &count)
	if err != nil {
		t.Fatal(err)
	}
	checkNames(t, "parameters", exp.ParameterNames(), []string{"p"})
	if count.Total != 3 || count.Done != 3 {
		t.Errorf("progress = %d/%d, want 3/3", count.Done, count.Total)
	}

	// Weak scaling averages ranks, so run p=2.r0 yields (4+6)/2 = 5
	// and p=2.r1 yields (5+9)/2 = 7.
	ms := exp.Measurements(exp.Callpath("main"), exp.Metric("time"))
	if len(ms) != 2 {
		t.Fatalf("main/time has %d measurements, want 2", len(ms))
	}
	if ms[0].Count() != 2 || ms[0].Min != 5 || ms[0].Max != 7 || ms[0].Mean != 6 {
		t.Errorf("samples at (2) = %v, want [5 7]", ms[0].Values)
	}
	if ms[1].Count() != 1 || ms[1].Mean != 10 {
		t.Errorf("samples at (4) = %v, want [10]", ms[1].Values)
	}

	// visits was only recorded in one repetition at p=2.
	ms = exp.Measurements(exp.Callpath("main"), exp.Metric("visits"))
	if len(ms) != 1 || ms[0].Count() != 1 || ms[0].Mean != 1 {
		t.Fatalf("main/visits = %v, want one sample of 1", ms)
	}
}

func TestReadProfileDirStrong(t *testing.T) {
	exp, err := ReadProfileDir(profileTree(t), ScaleStrong, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Strong scaling sums ranks: 4+6 = 10, 5+9 = 14, 8+12 = 20.
	ms := exp.Measurements(exp.Callpath("main"), exp.Metric("time"))
	if len(ms) != 2 {
		t.Fatalf("main/time has %d measurements, want 2", len(ms))
	}
	if ms[0].Min != 10 || ms[0].Max != 14 || ms[0].Mean != 12 {
		t.Errorf("samples at (2) = %v, want [10 14]", ms[0].Values)
	}
	if ms[1].Mean != 20 {
		t.Errorf("samples at (4) = %v, want [20]", ms[1].Values)
	}
}

func TestReadProfileDirMultiParam(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "n=1,m=10.r0", "main\ttime\t0\t1\n")
	writeRun(t, root, "n=2,m=10.r0", "main\ttime\t0\t2\n")
	exp, err := ReadProfileDir(root, ScaleWeak, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Parameter order comes from the run name, not sorted.
	checkNames(t, "parameters", exp.ParameterNames(), []string{"n", "m"})
	ms := exp.Measurements(exp.Callpath("main"), exp.Metric("time"))
	if len(ms) != 2 || !ms[0].Coordinate.Equal(experiment.Coordinate{1, 10}) {
		t.Fatalf("measurements = %v", ms)
	}
}

func TestReadProfileDirErrors(t *testing.T) {
	t.Run("no runs", func(t *testing.T) {
		_, err := ReadProfileDir(t.TempDir(), ScaleWeak, nil)
		if err == nil || !strings.Contains(err.Error(), "no run directories") {
			t.Errorf("want no-run-directories error, got %v", err)
		}
	})
	t.Run("bad run name", func(t *testing.T) {
		root := t.TempDir()
		writeRun(t, root, "p4", "main\ttime\t0\t1\n")
		_, err := ReadProfileDir(root, ScaleWeak, nil)
		if err == nil || !strings.Contains(err.Error(), "repetition suffix") {
			t.Errorf("want repetition-suffix error, got %v", err)
		}
	})
	t.Run("bad assignment", func(t *testing.T) {
		root := t.TempDir()
		writeRun(t, root, "p.r0", "main\ttime\t0\t1\n")
		_, err := ReadProfileDir(root, ScaleWeak, nil)
		if err == nil || !strings.Contains(err.Error(), "bad parameter assignment") {
			t.Errorf("want bad-assignment error, got %v", err)
		}
	})
	t.Run("mismatched parameters", func(t *testing.T) {
		root := t.TempDir()
		writeRun(t, root, "p=1.r0", "main\ttime\t0\t1\n")
		writeRun(t, root, "q=1.r0", "main\ttime\t0\t1\n")
		_, err := ReadProfileDir(root, ScaleWeak, nil)
		if err == nil || !strings.Contains(err.Error(), "has parameters {q}, want {p}") {
			t.Errorf("want parameter-mismatch error, got %v", err)
		}
	})
	t.Run("missing profile.col", func(t *testing.T) {
		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, "p=1.r0"), 0777); err != nil {
			t.Fatal(err)
		}
		_, err := ReadProfileDir(root, ScaleWeak, nil)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("want os.ErrNotExist, got %v", err)
		}
	})
	t.Run("bad columns", func(t *testing.T) {
		root := t.TempDir()
		writeRun(t, root, "p=1.r0", "main\ttime\t0\n")
		_, err := ReadProfileDir(root, ScaleWeak, nil)
		var serr *SyntaxError
		if !errors.As(err, &serr) || serr.Line != 1 || !strings.Contains(serr.Msg, "want callpath, metric, rank, value") {
			t.Errorf("want column-count syntax error on line 1, got %v", err)
		}
	})
	t.Run("bad rank", func(t *testing.T) {
		root := t.TempDir()
		writeRun(t, root, "p=1.r0", "main\ttime\tx\t1\n")
		_, err := ReadProfileDir(root, ScaleWeak, nil)
		var serr *SyntaxError
		if !errors.As(err, &serr) || !strings.Contains(serr.Msg, "bad rank") {
			t.Errorf("want bad-rank syntax error, got %v", err)
		}
	})
}
