// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kpmvec owns the KPM ring-buffer amplitude vector: M slots of N_d
// complex site-orbital amplitudes, a rotating cursor, random initialization
// and the ghost-zeroing operation that keeps bulk-only inner products
// correct.
package kpmvec

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/latticekpm/kpmcore/lattice"
)

// Vector is a fixed-size ring buffer of M owned amplitude slots, each of
// length N_d. index is the cursor; Slot(0) is the current slot, Slot(-1)
// and Slot(-2) the two most recent predecessors, matching the three-term
// Chebyshev recursion's working set.
type Vector struct {
	m     int
	nd    int
	data  [][]complex128
	index int
}

// New allocates a Vector with m ring slots of nd amplitudes each. m must be
// at least 2 for the Multiply(MULT=1) recursion to have both predecessors
// available; callers that only need a single buffer (e.g. the velocity
// apply's destination) may still use m==1.
func New(m, nd int) (*Vector, error) {
	if m < 1 {
		return nil, fmt.Errorf("kpmvec: m must be >= 1, got %d", m)
	}
	if nd < 1 {
		return nil, fmt.Errorf("kpmvec: nd must be >= 1, got %d", nd)
	}
	data := make([][]complex128, m)
	for i := range data {
		data[i] = make([]complex128, nd)
	}
	return &Vector{m: m, nd: nd, data: data}, nil
}

// M returns the number of ring slots.
func (v *Vector) M() int { return v.m }

// Nd returns the amplitude count per slot.
func (v *Vector) Nd() int { return v.nd }

// Index returns the current cursor position.
func (v *Vector) Index() int { return v.index }

// Slot returns the amplitude slice offset slots behind the cursor: Slot(0)
// is current, Slot(-1) the previous recursion step, Slot(-2) the one
// before that. offset must satisfy -m < offset <= 0.
func (v *Vector) Slot(offset int) []complex128 {
	i := ((v.index+offset)%v.m + v.m) % v.m
	return v.data[i]
}

// SlotAt returns the absolute ring slot i (0..M-1), bypassing the cursor.
// Used by the 2D/3D accumulators' secondary rings where MEMORY buffers are
// addressed directly rather than through a recursion cursor.
func (v *Vector) SlotAt(i int) []complex128 {
	return v.data[i]
}

// IndexAdvance rotates the cursor forward by one.
func (v *Vector) IndexAdvance() {
	v.index = (v.index + 1) % v.m
}

// InitRandom fills the current slot's bulk cells with unit-variance
// zero-mean complex samples, zeroes vacancy sites (addressed by their
// lattice.SiteIndex in the local array) and ghost cells, then normalizes
// so that <psi|psi> = 1 in expectation over (site count - vacancy count).
func (v *Vector) InitRandom(lat *lattice.Lattice, rng *rand.Rand, vacancySites []int) {
	slot := v.Slot(0)
	for i := range slot {
		slot[i] = 0
	}
	n := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	lat.WalkBulk(func(local [lattice.MaxDim]int) {
		for o := 0; o < lat.Orbitals; o++ {
			idx := lat.SiteIndex(local, o)
			re := n.Rand()
			im := n.Rand()
			slot[idx] = complex(re, im)
		}
	})
	for _, s := range vacancySites {
		slot[s] = 0
	}
	norm := cmplxs.Norm(slot, 2)
	if norm > 0 {
		scale := complex(1/norm, 0)
		for i := range slot {
			slot[i] *= scale
		}
	}
}

// EmptyGhosts zeroes the N_g-wide ghost faces of the current slot so a
// subsequent inner product does not double-count sites shared with a
// neighbor thread.
func (v *Vector) EmptyGhosts(lat *lattice.Lattice) {
	slot := v.Slot(0)
	for d := 0; d < lat.Dim; d++ {
		for side := 0; side < 2; side++ {
			lat.WalkFace(d, side, false, func(local [lattice.MaxDim]int) {
				for o := 0; o < lat.Orbitals; o++ {
					slot[lat.SiteIndex(local, o)] = 0
				}
			})
		}
	}
}

// CopySlot copies the contents of slot src into slot dst (absolute ring
// indices).
func (v *Vector) CopySlot(dst, src int) {
	copy(v.data[dst], v.data[src])
}
