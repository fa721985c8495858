// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recursion

import (
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
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

// zeroHamiltonian builds a Hamiltonian with no hoppings and no disorder of
// any kind, so H psi = 0 for every psi.
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

// TestRecursionIdentityWithZeroHamiltonian checks that with H=0, the
// three-term recursion started from |0>=psi0 produces
// psi_n = T_n(0)*psi0, i.e. psi0, 0, -psi0, 0, psi0, 0, -psi0, ...
func TestRecursionIdentityWithZeroHamiltonian(t *testing.T) {
	lat := chain2Tile(t)
	ham := zeroHamiltonian(t, lat)
	ex := halo.New(lat)

	const m = 3
	vec, err := kpmvec.New(m, lat.Sites())
	if err != nil {
		t.Fatalf("kpmvec.New: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	vec.InitRandom(lat, rng, nil)
	// Fill psi0's ghosts the way Multiply fills every result's ghosts, so
	// psi_n and T_n(0)*psi0 can be compared on every cell.
	ex.Exchange(0, vec.Slot(0))
	psi0 := append([]complex128(nil), vec.Slot(0)...)

	// Seed |1> = H|0> = 0 via MULT=0, then recur with MULT=1.
	Multiply(lat, ham, vec, 0, ex, 0)
	for i, a := range vec.Slot(0) {
		if a != 0 {
			t.Fatalf("psi_1[%d] = %v, want 0", i, a)
		}
	}

	want := []int{1, 0, -1, 0, 1, 0, -1} // T_n(0) coefficients relative to psi0
	for n := 2; n < len(want); n++ {
		Multiply(lat, ham, vec, 1, ex, 0)
		cur := vec.Slot(0)
		switch want[n] {
		case 0:
			for i, a := range cur {
				if a != 0 {
					t.Errorf("psi_%d[%d] = %v, want 0", n, i, a)
				}
			}
		case 1, -1:
			sign := complex(float64(want[n]), 0)
			for i, a := range cur {
				if a != sign*psi0[i] {
					t.Errorf("psi_%d[%d] = %v, want %v", n, i, a, sign*psi0[i])
				}
			}
		}
	}
}

// disorderedHamiltonian builds a richer Hamiltonian exercising regular
// hoppings, per-site Anderson disorder, one impurity pattern with an
// internal hopping and a border bond, and a vacancy, so Multiply and
// MultiplySimple are compared on a case touching every contribution.
func disorderedHamiltonian(t *testing.T) (*lattice.Lattice, *hamiltonian.Hamiltonian) {
	t.Helper()
	lat, err := lattice.New(1,
		[lattice.MaxDim]int{16, 1, 1},
		[lattice.MaxDim]int{1, 1, 1},
		2, 4, 1,
		[lattice.MaxDim]lattice.Boundary{lattice.Periodic},
		nil,
	)
	if err != nil {
		t.Fatalf("lattice.New: %v", err)
	}

	reg := [][]hamiltonian.Hopping{{
		{Delta: [lattice.MaxDim]int{1, 0, 0}, Amplitude: complex(1, 0)},
		{Delta: [lattice.MaxDim]int{-1, 0, 0}, Amplitude: complex(1, 0)},
	}}

	anderson := hamiltonian.Anderson{
		Policy: []hamiltonian.OnsitePolicy{hamiltonian.PolicyPerSite},
		Width:  []float64{0.3},
	}

	anchorSite := lat.SiteIndex([lattice.MaxDim]int{2, 0, 0}, 0)
	neighborSite := lat.SiteIndex([lattice.MaxDim]int{3, 0, 0}, 0)
	pattern := hamiltonian.ImpurityPattern{
		Nodes: []hamiltonian.ImpurityNode{
			{Offset: [lattice.MaxDim]int{0, 0, 0}, Orbital: 0, Onsite: complex(0.7, 0)},
			{Offset: [lattice.MaxDim]int{1, 0, 0}, Orbital: 0, Onsite: 0},
		},
		Hoppings: []hamiltonian.InternalHopping{
			{FromNode: 0, ToNode: 1, Delta: [lattice.MaxDim]int{1, 0, 0}, Amplitude: complex(0.4, 0)},
		},
		Candidates: [][]int{{anchorSite}},
		Density:    1,
		BorderBonds: []hamiltonian.BorderBond{
			{FromSite: anchorSite, ToSite: neighborSite, Delta: [lattice.MaxDim]int{1, 0, 0}, Amplitude: complex(0.2, 0)},
		},
	}

	vacancySite := lat.SiteIndex([lattice.MaxDim]int{10, 0, 0}, 0)
	vacancies := hamiltonian.Vacancies{
		PerTile:           make([][]int, lat.TileCount()),
		WithDefectsGlobal: []int{vacancySite},
	}

	h, err := hamiltonian.New(lat, reg, anderson, []hamiltonian.ImpurityPattern{pattern}, vacancies, false)
	if err != nil {
		t.Fatalf("hamiltonian.New: %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	h.GenerateDisorder(rng)
	return lat, h
}

// TestMultiplyAgreesWithMultiplySimple checks that the tiled and untiled
// code paths produce identical results from the same input state.
func TestMultiplyAgreesWithMultiplySimple(t *testing.T) {
	lat, ham := disorderedHamiltonian(t)

	rng := rand.New(rand.NewSource(42))
	n := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	seed := make([]complex128, lat.Sites())
	lat.WalkBulk(func(local [lattice.MaxDim]int) {
		site := lat.SiteIndex(local, 0)
		seed[site] = complex(n.Rand(), n.Rand())
	})

	const m = 3
	runOne := func(multiplyFn func(*lattice.Lattice, *hamiltonian.Hamiltonian, *kpmvec.Vector, int, *halo.Exchanger, int)) []complex128 {
		ex := halo.New(lat)
		vec, err := kpmvec.New(m, lat.Sites())
		if err != nil {
			t.Fatalf("kpmvec.New: %v", err)
		}
		copy(vec.Slot(0), seed)
		multiplyFn(lat, ham, vec, 0, ex, 0)
		multiplyFn(lat, ham, vec, 1, ex, 0)
		return append([]complex128(nil), vec.Slot(0)...)
	}

	tiled := runOne(Multiply)
	simple := runOne(MultiplySimple)

	if len(tiled) != len(simple) {
		t.Fatalf("length mismatch: %d vs %d", len(tiled), len(simple))
	}
	for i := range tiled {
		if tiled[i] != simple[i] {
			t.Errorf("site %d: Multiply = %v, MultiplySimple = %v", i, tiled[i], simple[i])
		}
	}
}
