// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hamiltonian describes a real-space tight-binding Hamiltonian on a
// lattice.Lattice: regular hoppings, Anderson on-site disorder, structural
// (impurity-cluster) disorder, vacancies, and the precomputed velocity
// operator tables used by the recursion package.
package hamiltonian

import (
	"fmt"

	"github.com/latticekpm/kpmcore/lattice"
)

// Hopping is a single regular-part hopping term: an amplitude t attached to
// an integer lattice displacement delta, used both to index the neighbor
// amplitude and to compute its Peierls phase.
type Hopping struct {
	Delta     [lattice.MaxDim]int
	Amplitude complex128
}

// InternalHopping is a bond internal to a structural-disorder impurity
// pattern, between two of the pattern's nodes.
type InternalHopping struct {
	FromNode, ToNode int
	Delta            [lattice.MaxDim]int
	Amplitude        complex128
}

// BorderBond is a structural-disorder bond whose source and destination
// straddle a tile boundary. Border lists are authoritative: the spec
// leaves the source/destination ownership convention to the front end that
// populates them, so these are applied exactly once, globally, after the
// per-tile sweep (see recursion.Multiply).
type BorderBond struct {
	FromSite, ToSite int
	Delta            [lattice.MaxDim]int
	Amplitude        complex128
}

// BorderOnsite is an impurity on-site term that was not folded into the
// per-tile sweep because its anchor lies across a tile boundary.
type BorderOnsite struct {
	Site  int
	Value complex128
}

// ImpurityNode is one site of a structural-disorder impurity pattern,
// relative to the pattern's anchor.
type ImpurityNode struct {
	Offset  [lattice.MaxDim]int
	Orbital int
	Onsite  complex128
}

// ImpurityPattern is a small graph of internal nodes, internal hoppings and
// on-sites, replicated at a set of anchor positions per tile.
type ImpurityPattern struct {
	Nodes    []ImpurityNode
	Hoppings []InternalHopping

	// Candidates lists, per tile index, every local site where this
	// pattern could be anchored. GenerateDisorder draws a Bernoulli
	// subset of these (at rate Density) into active.
	Candidates [][]int
	Density    float64

	BorderBonds  []BorderBond
	BorderOnsite []BorderOnsite

	active [][]int // per tile, currently active anchors (post GenerateDisorder)
}

// ActiveAnchors returns the anchors of this pattern currently active in
// tile t, as drawn by the most recent GenerateDisorder call.
func (p *ImpurityPattern) ActiveAnchors(tile int) []int {
	if tile >= len(p.active) {
		return nil
	}
	return p.active[tile]
}

// Vacancies lists sites to be zeroed after all arithmetic contributions to
// them have been applied.
type Vacancies struct {
	// PerTile lists, per tile index, local sites zeroed during the
	// per-tile sweep.
	PerTile [][]int
	// WithDefectsGlobal lists local sites (possibly touched by a
	// BorderBond) zeroed once after the global border pass.
	WithDefectsGlobal []int
}

// OnsitePolicy selects how an orbital's Anderson on-site disorder is
// stored.
type OnsitePolicy int

const (
	// PolicyNone means the orbital carries no Anderson on-site term.
	PolicyNone OnsitePolicy = iota
	// PolicyShared means every site of the orbital shares one value.
	PolicyShared
	// PolicyPerSite means each site of the orbital has its own value,
	// redrawn independently by GenerateDisorder.
	PolicyPerSite
)

// Anderson holds the per-orbital on-site disorder table.
type Anderson struct {
	Policy []OnsitePolicy // per orbital
	Width  []float64      // per orbital, uniform box half-width for redraws

	shared  []float64   // per orbital, valid when Policy[o] == PolicyShared
	perSite [][]float64 // per orbital, indexed by local bulk site, valid when PolicyPerSite
}

// Shared returns the orbital's shared on-site value (PolicyShared).
func (a *Anderson) Shared(orbital int) complex128 {
	return complex(a.shared[orbital], 0)
}

// PerSite returns the on-site value at bulk site index i for orbital
// (PolicyPerSite).
func (a *Anderson) PerSite(orbital, bulkSite int) complex128 {
	return complex(a.perSite[orbital][bulkSite], 0)
}

// Hamiltonian is the full tight-binding description for one thread's
// subdomain: the regular hopping lists, Anderson disorder, structural
// disorder patterns and vacancies are shared read-only across threads once
// constructed; only GenerateDisorder mutates state, and only between
// disorder realizations under the caller's barrier discipline.
type Hamiltonian struct {
	Lat *lattice.Lattice

	// Regular[o] is the list of hoppings attached to orbital o.
	Regular [][]Hopping

	Anderson   Anderson
	Impurities []ImpurityPattern
	Vacancies  Vacancies

	// Complex selects whether amplitudes carry a Peierls phase. When
	// false, Lat.A must be nil (no magnetic field with a real scalar
	// type; enforced by New).
	Complex bool

	crossTile []bool // per tile, true if any BorderBond targets it
}

// New validates and constructs a Hamiltonian.
func New(lat *lattice.Lattice, regular [][]Hopping, anderson Anderson, impurities []ImpurityPattern, vacancies Vacancies, isComplex bool) (*Hamiltonian, error) {
	if lat == nil {
		return nil, fmt.Errorf("hamiltonian: nil lattice")
	}
	if len(regular) != lat.Orbitals {
		return nil, fmt.Errorf("hamiltonian: regular hopping table has %d orbitals, lattice has %d", len(regular), lat.Orbitals)
	}
	if !isComplex && lat.A != nil {
		return nil, fmt.Errorf("hamiltonian: magnetic field requires a complex scalar type")
	}
	if len(anderson.Policy) != lat.Orbitals {
		return nil, fmt.Errorf("hamiltonian: anderson policy table has %d orbitals, lattice has %d", len(anderson.Policy), lat.Orbitals)
	}
	h := &Hamiltonian{
		Lat:        lat,
		Regular:    regular,
		Anderson:   anderson,
		Impurities: impurities,
		Vacancies:  vacancies,
		Complex:    isComplex,
	}
	h.anderson().shared = make([]float64, lat.Orbitals)
	h.anderson().perSite = make([][]float64, lat.Orbitals)
	for o, pol := range anderson.Policy {
		if pol == PolicyPerSite {
			h.anderson().perSite[o] = make([]float64, lat.BulkSites()/lat.Orbitals)
		}
	}
	h.crossTile = computeCrossTileMask(lat, impurities)
	return h, nil
}

func (h *Hamiltonian) anderson() *Anderson { return &h.Anderson }

// CrossTileMask reports whether tile is the destination of at least one
// structural-defect hopping whose source lies in a neighboring tile (the
// ToSite of a BorderBond). recursion.Multiply does not consult it: it
// initializes every cell of every tile to -MULT*psi_prev before adding any
// contribution, so the mask is reported for diagnostics only.
func (h *Hamiltonian) CrossTileMask(tile int) bool {
	if tile < 0 || tile >= len(h.crossTile) {
		return false
	}
	return h.crossTile[tile]
}

func computeCrossTileMask(lat *lattice.Lattice, impurities []ImpurityPattern) []bool {
	mask := make([]bool, lat.TileCount())
	stride := lat.Stride
	for _, pat := range impurities {
		for _, b := range pat.BorderBonds {
			tileOfSite := func(site int) int {
				local, _ := lat.Coord(site)
				var tc [lattice.MaxDim]int
				for d := 0; d < lat.Dim; d++ {
					tc[d] = (local[d] - lat.Ghost) / stride
				}
				if !withinTileGrid(lat, tc) {
					return -1
				}
				return lat.TileIndex(tc)
			}
			if t := tileOfSite(b.ToSite); t >= 0 {
				mask[t] = true
			}
		}
	}
	return mask
}

func withinTileGrid(lat *lattice.Lattice, tc [lattice.MaxDim]int) bool {
	for d := 0; d < lat.Dim; d++ {
		if tc[d] < 0 || tc[d] >= lat.TilesPerAxis(d) {
			return false
		}
	}
	return true
}
