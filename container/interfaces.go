// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

// Source is the read side of the self-describing container the core
// consumes (§6): the front-end/config-parser collaborators populate one of
// these (the real implementation is out of scope — §1), and cmd/kpmrun
// reads the documented groups from it to build a Lattice/Hamiltonian and
// select quantities.
type Source interface {
	Int(path string) (int, error)
	Float64(path string) (float64, error)
	Float64Array(path string) ([]float64, error)
	Complex128Array(path string) ([]complex128, error)
	String(path string) (string, error)
	Has(path string) bool
}

// Sink is the write side: the canonical output path for a quantity's
// moment array (§6) is a flat complex128 array written back via
// PutComplex128Array.
type Sink interface {
	PutInt(path string, v int)
	PutFloat64(path string, v float64)
	PutFloat64Array(path string, v []float64)
	PutComplex128Array(path string, v []complex128)
	PutString(path string, v string)
}

var (
	_ Source = (*Container)(nil)
	_ Sink   = (*Container)(nil)
)
