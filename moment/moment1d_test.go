// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/lattice"
)

func chain2Tile(t *testing.T) *lattice.Lattice {
	t.Helper()
	l, err := lattice.New(1,
		[lattice.MaxDim]int{16, 1, 1},
		[lattice.MaxDim]int{1, 1, 1},
		2, 4, 1,
		[lattice.MaxDim]lattice.Boundary{lattice.Periodic},
		nil,
	)
	if err != nil {
		t.Fatalf("lattice.New: %v", err)
	}
	return l
}

// zeroHamiltonian has no hoppings and no disorder, so H psi = 0 always and
// every moment reduces to T_n(0)*<0|0>.
func zeroHamiltonian(t *testing.T, lat *lattice.Lattice) *hamiltonian.Hamiltonian {
	t.Helper()
	reg := make([][]hamiltonian.Hopping, lat.Orbitals)
	policy := make([]hamiltonian.OnsitePolicy, lat.Orbitals)
	h, err := hamiltonian.New(lat, reg, hamiltonian.Anderson{Policy: policy}, nil, hamiltonian.Vacancies{
		PerTile: make([][]int, lat.TileCount()),
	}, false)
	if err != nil {
		t.Fatalf("hamiltonian.New: %v", err)
	}
	return h
}

func TestRun1DZeroHamiltonianMatchesChebyshevOfZero(t *testing.T) {
	lat := chain2Tile(t)
	ham := zeroHamiltonian(t, lat)
	ex := halo.New(lat)
	rng := rand.New(rand.NewSource(1))

	cfg := Config1D{NumMoments: 7, NumRandoms: 3, NumDisorder: 2}
	arr, err := Run1D(lat, ham, cfg, ex, 0, rng, nil)
	if err != nil {
		t.Fatalf("Run1D: %v", err)
	}

	want := []float64{1, 0, -1, 0, 1, 0, -1}
	got := arr.Values()
	for n, w := range want {
		if math.Abs(real(got[n])-w) > 1e-9 || math.Abs(imag(got[n])) > 1e-9 {
			t.Errorf("mu[%d] = %v, want %v", n, got[n], w)
		}
	}
}

func TestRun1DCombine(t *testing.T) {
	lat := chain2Tile(t)
	ham := zeroHamiltonian(t, lat)
	ex := halo.New(lat)

	cfg := Config1D{NumMoments: 4, NumRandoms: 2, NumDisorder: 1}
	a, err := Run1D(lat, ham, cfg, ex, 0, rand.New(rand.NewSource(2)), nil)
	if err != nil {
		t.Fatalf("Run1D: %v", err)
	}
	b, err := Run1D(lat, ham, cfg, ex, 1, rand.New(rand.NewSource(3)), nil)
	if err != nil {
		t.Fatalf("Run1D: %v", err)
	}
	a.Combine(b)
	if got, want := a.Mu[0].Count(), float64(2*cfg.NumRandoms*cfg.NumDisorder); got != want {
		t.Errorf("combined count = %v, want %v", got, want)
	}
	// Both runs see the identical deterministic zero-Hamiltonian sequence,
	// so the combined mean must still land exactly on T_n(0).
	want := []float64{1, 0, -1, 0}
	for n, w := range want {
		if math.Abs(real(a.Values()[n])-w) > 1e-9 {
			t.Errorf("combined mu[%d] = %v, want %v", n, a.Values()[n], w)
		}
	}
}
