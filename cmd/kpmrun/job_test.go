// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"math"
	"testing"

	"github.com/latticekpm/kpmcore/container"
)

// buildChainContainer assembles the container groups of §6 for a clean 1D
// tight-binding chain: 16 sites, one orbital, t=0.4, no disorder.
func buildChainContainer() *container.Container {
	c := container.New()
	c.PutInt("/DIM", 1)
	c.PutInt("/IS_COMPLEX", 0)
	c.PutFloat64Array("/Lattice/Global", []float64{16})
	c.PutFloat64Array("/Lattice/Threads", []float64{1})
	c.PutInt("/Lattice/Ghost", 2)
	c.PutInt("/Lattice/Stride", 4)
	c.PutInt("/Lattice/Orbitals", 1)
	c.PutString("/Lattice/Boundary", "p")

	c.PutFloat64Array("/Hamiltonian/Regular/0/Delta", []float64{1, -1})
	c.PutComplex128Array("/Hamiltonian/Regular/0/Amplitude", []complex128{0.4, 0.4})
	c.PutFloat64Array("/Hamiltonian/Anderson/Policy", []float64{0})
	c.PutFloat64Array("/Hamiltonian/Anderson/Width", []float64{0})

	c.PutString("/Calculation/dos/Kind", "1d")
	c.PutInt("/Calculation/dos/NumMoments", 8)
	c.PutInt("/Calculation/dos/NumRandoms", 6)
	c.PutInt("/Calculation/dos/NumDisorder", 1)
	return c
}

func TestRunJobEndToEnd(t *testing.T) {
	c := buildChainContainer()

	if err := runJob(c, c, []string{"dos"}, 42); err != nil {
		t.Fatalf("runJob: %v", err)
	}

	mu, err := c.Complex128Array("/Calculation/dos/MU")
	if err != nil {
		t.Fatalf("Complex128Array: %v", err)
	}
	if len(mu) != 8 {
		t.Fatalf("len(mu) = %d, want 8", len(mu))
	}
	if math.Abs(real(mu[0])-1) > 0.35 {
		t.Errorf("mu[0] = %v, want close to 1 (Tr[T_0(H)]/N normalization)", mu[0])
	}
	for i, v := range mu {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) {
			t.Fatalf("mu[%d] is NaN: %v", i, v)
		}
	}
}

func TestRunJobRejectsUnknownQuantityKind(t *testing.T) {
	c := buildChainContainer()
	c.PutString("/Calculation/bogus/Kind", "nope")
	c.PutInt("/Calculation/bogus/NumMoments", 4)
	c.PutInt("/Calculation/bogus/NumRandoms", 1)
	c.PutInt("/Calculation/bogus/NumDisorder", 1)

	if err := runJob(c, c, []string{"bogus"}, 1); err == nil {
		t.Fatalf("expected error for unknown quantity kind")
	}
}
