// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linfit solves the small dense least-squares systems that
// model fitting produces.
package linfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LeastSquares returns the coefficient vector c minimizing the
// squared residual of X*c = y, where cols are the columns of X. The
// system must have at least as many rows as columns. An
// ill-conditioned but solvable system is accepted; the caller judges
// the result by its residual.
func LeastSquares(cols [][]float64, y []float64) ([]float64, error) {
	n, k := len(y), len(cols)
	if k == 0 {
		return nil, fmt.Errorf("least squares: no columns")
	}
	for j, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("least squares: column %d has %d rows, want %d", j, len(c), n)
		}
	}
	if n < k {
		return nil, fmt.Errorf("least squares: underdetermined system (%d rows, %d columns)", n, k)
	}

	a := mat.NewDense(n, k, nil)
	for j, c := range cols {
		for i, v := range c {
			a.Set(i, j, v)
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(a)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, err
		}
	}

	c := make([]float64, k)
	for i := range c {
		c[i] = x.AtVec(i)
	}
	return c, nil
}

// AllFinite reports whether every value in every slice is finite.
// Fitting uses it to discard hypotheses whose basis functions blow up
// at some coordinate.
func AllFinite(slices ...[]float64) bool {
	for _, s := range slices {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
