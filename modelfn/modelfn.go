// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modelfn represents the closed-form functions produced by
// model fitting: a constant plus a sum of terms, where each term is a
// coefficient multiplied by powers and logarithms of the experiment
// parameters.
//
// Functions are plain data. Strategies in package modeler construct
// them and they are immutable afterward.
package modelfn

import (
	"math"
	"strconv"
	"strings"
)

// A Factor is one parameter's contribution to a term:
// x^PolyExp * log2(x)^LogExp for the parameter's value x.
type Factor struct {
	// Param is the index of the parameter this factor applies to,
	// in the experiment's declaration order.
	Param int

	PolyExp float64
	LogExp  float64
}

// Eval evaluates the factor at the parameter value x. Parameter
// values are expected to be positive; for x <= 0 a log factor
// produces NaN or an infinity, which fitting discards naturally.
func (f Factor) Eval(x float64) float64 {
	v := 1.0
	if f.PolyExp != 0 {
		v *= math.Pow(x, f.PolyExp)
	}
	if f.LogExp != 0 {
		v *= math.Pow(math.Log2(x), f.LogExp)
	}
	return v
}

// A Term is a coefficient multiplied by one factor per contributing
// parameter.
type Term struct {
	Coeff   float64
	Factors []Factor
}

// Eval evaluates the term at the given coordinate.
func (t Term) Eval(coord []float64) float64 {
	v := t.Coeff
	for _, f := range t.Factors {
		v *= f.Eval(coord[f.Param])
	}
	return v
}

// A Function is a fitted performance model: a constant plus a sum of
// terms.
type Function struct {
	Constant float64
	Terms    []Term
}

// Eval evaluates the function at the given coordinate. The coordinate
// must have at least as many values as the highest parameter index
// used by any factor.
func (f *Function) Eval(coord []float64) float64 {
	v := f.Constant
	for _, t := range f.Terms {
		v += t.Eval(coord)
	}
	return v
}

// IsConstant reports whether the function has no parameter-dependent
// terms.
func (f *Function) IsConstant() bool {
	return len(f.Terms) == 0
}

// Coefficients returns the number of fitted coefficients, counting
// the constant.
func (f *Function) Coefficients() int {
	return 1 + len(f.Terms)
}

// String formats the function with generated parameter names p0, p1,
// and so on.
func (f *Function) String() string {
	return f.Format(nil)
}

// Format formats the function using the given parameter names. Names
// beyond len(names) fall back to the generated form.
func (f *Function) Format(names []string) string {
	var sb strings.Builder
	sb.WriteString(formatCoeff(f.Constant))
	for _, t := range f.Terms {
		coeff := t.Coeff
		if coeff < 0 {
			sb.WriteString(" - ")
			coeff = -coeff
		} else {
			sb.WriteString(" + ")
		}
		sb.WriteString(formatCoeff(coeff))
		for _, fac := range t.Factors {
			name := paramName(names, fac.Param)
			if fac.PolyExp != 0 {
				sb.WriteString(" * ")
				sb.WriteString(name)
				writeExp(&sb, fac.PolyExp)
			}
			if fac.LogExp != 0 {
				sb.WriteString(" * log2(")
				sb.WriteString(name)
				sb.WriteString(")")
				writeExp(&sb, fac.LogExp)
			}
		}
	}
	return sb.String()
}

func paramName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return "p" + strconv.Itoa(i)
}

func formatCoeff(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func writeExp(sb *strings.Builder, exp float64) {
	if exp == 1 {
		return
	}
	sb.WriteString("^")
	sb.WriteString(strconv.FormatFloat(exp, 'g', -1, 64))
}
