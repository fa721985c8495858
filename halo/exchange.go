// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package halo implements the symmetric face exchange that glues the
// per-thread subdomains produced by package lattice into a single lattice:
// after Exchanger.Exchange returns, every ghost face holds the
// corresponding bulk face of the neighboring thread (§4.5).
package halo

import (
	"github.com/latticekpm/kpmcore/internal/kpmpar"
	"github.com/latticekpm/kpmcore/lattice"
)

// Exchanger owns the shared staging buffer and the two barriers the
// exchange protocol needs. One Exchanger is shared read-write across all
// worker threads for the lifetime of a quantity; it is not safe to use two
// Exchange calls from the same team concurrently (they would race on the
// staging buffer), but sequential calls — one disorder realization and one
// recursion step at a time — are exactly the intended usage.
type Exchanger struct {
	lat     *lattice.Lattice
	staging [][]complex128
	b1, b2  *kpmpar.Barrier
}

// New builds an Exchanger for lat's thread grid.
func New(lat *lattice.Lattice) *Exchanger {
	threads := lat.ThreadCount()
	maxFace := 0
	for d := 0; d < lat.Dim; d++ {
		if f := 2 * lat.FaceSize(d); f > maxFace {
			maxFace = f
		}
	}
	staging := make([][]complex128, threads)
	for i := range staging {
		staging[i] = make([]complex128, maxFace)
	}
	return &Exchanger{
		lat:     lat,
		staging: staging,
		b1:      kpmpar.NewBarrier(threads),
		b2:      kpmpar.NewBarrier(threads),
	}
}

// Exchange refreshes the ghost faces of slot (owned by threadID) from its
// neighbors, one axis at a time, per the two-barrier protocol of §4.5:
//
//  1. each thread stages its two bulk faces (low side, then high side);
//  2. barrier;
//  3. each thread reads its neighbors' staged faces into its own ghosts;
//  4. barrier.
//
// Every worker thread in the team must call Exchange (with its own
// threadID and slot) for the same lattice axis set in lock-step, or the
// barriers will deadlock or desynchronize threads across axes.
func (e *Exchanger) Exchange(threadID int, slot []complex128) {
	lat := e.lat
	tc := lat.ThreadCoord(threadID)
	for d := 0; d < lat.Dim; d++ {
		face := lat.FaceSize(d)
		buf := e.staging[threadID]

		n := 0
		lat.WalkFace(d, 0, true, func(local [lattice.MaxDim]int) {
			for o := 0; o < lat.Orbitals; o++ {
				buf[n] = slot[lat.SiteIndex(local, o)]
				n++
			}
		})
		lat.WalkFace(d, 1, true, func(local [lattice.MaxDim]int) {
			for o := 0; o < lat.Orbitals; o++ {
				buf[n] = slot[lat.SiteIndex(local, o)]
				n++
			}
		})

		e.b1.Wait()

		if left := lat.Neighbor(tc, d, 0); left >= 0 {
			src := e.staging[left]
			n := face // the neighbor's high-side face lands in our low ghost
			lat.WalkFace(d, 0, false, func(local [lattice.MaxDim]int) {
				for o := 0; o < lat.Orbitals; o++ {
					slot[lat.SiteIndex(local, o)] = src[n]
					n++
				}
			})
		}
		if right := lat.Neighbor(tc, d, 1); right >= 0 {
			src := e.staging[right]
			n := 0 // the neighbor's low-side face lands in our high ghost
			lat.WalkFace(d, 1, false, func(local [lattice.MaxDim]int) {
				for o := 0; o < lat.Orbitals; o++ {
					slot[lat.SiteIndex(local, o)] = src[n]
					n++
				}
			})
		}

		e.b2.Wait()
	}
}
