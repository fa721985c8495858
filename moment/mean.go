// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package moment implements the 1D, 2D and 3D Chebyshev-moment
// accumulators: the outer disorder/random-vector loops, the block-wise dot
// products that feed them, the running average over samples and the final
// symmetrization exploiting Hermiticity and index-permutation symmetry.
package moment

import "gonum.org/v1/gonum/stat/running"

// ComplexMean is a Welford running mean over complex128 samples, built from
// a pair of real-valued running.Mean (one per component) since gonum's
// running mean is defined over float64. Accum(x) and Accum(y) composed in
// lock-step on the real and imaginary parts is exactly the complex Welford
// recurrence the spec calls for "verbatim".
type ComplexMean struct {
	re, im running.Mean
}

// Accum folds one more sample into the running mean.
func (m *ComplexMean) Accum(x complex128) {
	m.re.Accum(real(x))
	m.im.Accum(imag(x))
}

// Value returns the current mean estimate.
func (m *ComplexMean) Value() complex128 {
	return complex(m.re.Mean(), m.im.Mean())
}

// Count returns the number of samples folded in so far.
func (m *ComplexMean) Count() float64 {
	return m.re.Count()
}

// Combine merges another ComplexMean accumulated independently (e.g. by a
// different worker thread) into m, as if every sample had been accumulated
// into m directly. Used for the barrier-protected reduction of per-thread
// moment arrays into the global array (§5): since every thread processes
// the same number of random vectors, this reduces to a plain weighted
// average of the two means.
//
// The merged mean is a read-only reporting value: running.Mean only honors
// InitMean/InitCount while its internal count is still zero, so Combine is
// meant to run once, after both inputs are done accumulating, never
// followed by further Accum calls on m.
func (m *ComplexMean) Combine(other ComplexMean) {
	na, nb := m.Count(), other.Count()
	if nb == 0 {
		return
	}
	if na == 0 {
		*m = other
		return
	}
	n := na + nb
	mv := m.Value()
	ov := other.Value()
	combined := (mv*complex(na, 0) + ov*complex(nb, 0)) / complex(n, 0)
	m.re = running.Mean{InitMean: real(combined), InitCount: n}
	m.im = running.Mean{InitMean: imag(combined), InitCount: n}
}
