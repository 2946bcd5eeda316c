// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modelfn

import (
	"math"
	"testing"
)

func TestEval(t *testing.T) {
	check := func(f *Function, coord []float64, want float64) {
		t.Helper()
		got := f.Eval(coord)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s at %v = %v, want %v", f, coord, got, want)
		}
	}

	constant := &Function{Constant: 4.5}
	check(constant, []float64{8}, 4.5)

	// 1 + 2*p^2
	quad := &Function{Constant: 1, Terms: []Term{
		{Coeff: 2, Factors: []Factor{{Param: 0, PolyExp: 2}}},
	}}
	check(quad, []float64{3}, 19)

	// 0.5 * p * log2(p)
	nlogn := &Function{Terms: []Term{
		{Coeff: 0.5, Factors: []Factor{{Param: 0, PolyExp: 1, LogExp: 1}}},
	}}
	check(nlogn, []float64{8}, 12)

	// 2 + 3*x + 4*y^2 over two parameters.
	additive := &Function{Constant: 2, Terms: []Term{
		{Coeff: 3, Factors: []Factor{{Param: 0, PolyExp: 1}}},
		{Coeff: 4, Factors: []Factor{{Param: 1, PolyExp: 2}}},
	}}
	check(additive, []float64{5, 2}, 33)

	// 7 * x * log2(y) as a single multiplicative term.
	multiplicative := &Function{Terms: []Term{
		{Coeff: 7, Factors: []Factor{
			{Param: 0, PolyExp: 1},
			{Param: 1, LogExp: 1},
		}},
	}}
	check(multiplicative, []float64{3, 4}, 42)
}

func TestFormat(t *testing.T) {
	check := func(f *Function, names []string, want string) {
		t.Helper()
		if got := f.Format(names); got != want {
			t.Errorf("Format = %q, want %q", got, want)
		}
	}

	check(&Function{Constant: 4.5}, nil, "4.5")
	check(&Function{Constant: 1, Terms: []Term{
		{Coeff: 2, Factors: []Factor{{Param: 0, PolyExp: 2}}},
	}}, []string{"n"}, "1 + 2 * n^2")
	check(&Function{Constant: 1, Terms: []Term{
		{Coeff: -2.5, Factors: []Factor{{Param: 0, PolyExp: 1}}},
	}}, []string{"n"}, "1 - 2.5 * n")
	check(&Function{Terms: []Term{
		{Coeff: 0.5, Factors: []Factor{{Param: 0, PolyExp: 1.5, LogExp: 1}}},
	}}, []string{"p"}, "0 + 0.5 * p^1.5 * log2(p)")
	check(&Function{Terms: []Term{
		{Coeff: 3, Factors: []Factor{
			{Param: 0, PolyExp: 1},
			{Param: 1, LogExp: 2},
		}},
	}}, []string{"x", "y"}, "0 + 3 * x * log2(y)^2")
	// Unnamed parameters fall back to generated names.
	check(&Function{Terms: []Term{
		{Coeff: 1, Factors: []Factor{{Param: 1, PolyExp: 1}}},
	}}, nil, "0 + 1 * p1")
}

func TestIsConstant(t *testing.T) {
	if !(&Function{Constant: 2}).IsConstant() {
		t.Error("constant function not reported as constant")
	}
	f := &Function{Terms: []Term{{Coeff: 1, Factors: []Factor{{Param: 0, PolyExp: 1}}}}}
	if f.IsConstant() {
		t.Error("linear function reported as constant")
	}
}
