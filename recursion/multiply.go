// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recursion implements the three-term Chebyshev recursion
// (ψ_{n+1} = 2·H·ψ_n − ψ_{n−1}) and the velocity-operator apply that feeds
// it, tiled over a lattice.Lattice's bulk region and glued across threads
// by package halo.
package recursion

import (
	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
)

// Multiply advances vec's ring buffer by one recursion step for thread
// threadID:
//
//	psi_new = (MULT+1)*H*psi_cur - MULT*psi_prev
//
// MULT=0 is a plain application of H (used to seed |1> = H|0>); MULT=1 is
// the true Chebyshev recursion step. The result is written into the ring
// slot just after the cursor (with M=3, the slot holding the vector one
// step older than psi_prev; with M=2, psi_prev's own slot), the halo is
// refreshed via ex, and the cursor is advanced so Slot(0) addresses the
// new vector afterward.
func Multiply(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vec *kpmvec.Vector, mult int, ex *halo.Exchanger, threadID int) {
	idx := vec.Index()
	m := vec.M()
	dstIdx := (idx + 1) % m
	prevIdx := (idx - 1 + m) % m

	src1 := vec.SlotAt(idx)
	src2 := vec.SlotAt(prevIdx)
	dst := vec.SlotAt(dstIdx)

	tc := lat.ThreadCoord(threadID)
	coeff := complex(float64(mult+1), 0)
	neg := complex(-float64(mult), 0)

	n := lat.TileCount()
	for t := 0; t < n; t++ {
		tileCoord := lat.TileCoord(t)
		origin := lat.TileOrigin(tileCoord)

		lat.WalkTile(origin, func(local [lattice.MaxDim]int) {
			global := lat.LocalToGlobal(tc, local)
			for o := 0; o < lat.Orbitals; o++ {
				site := lat.SiteIndex(local, o)
				dst[site] = neg * src2[site]

				switch ham.Anderson.Policy[o] {
				case hamiltonian.PolicyShared:
					dst[site] += coeff * ham.Anderson.Shared(o) * src1[site]
				case hamiltonian.PolicyPerSite:
					dst[site] += coeff * ham.Anderson.PerSite(o, lat.BulkIndex(local)) * src1[site]
				}

				for _, hop := range ham.Regular[o] {
					var nbLocal [lattice.MaxDim]int
					for d := 0; d < lat.Dim; d++ {
						nbLocal[d] = local[d] + hop.Delta[d]
					}
					phase := ham.PeierlsPhase(hop.Delta, global)
					dst[site] += coeff * hop.Amplitude * phase * src1[lat.SiteIndex(nbLocal, o)]
				}
			}
		})

		for pi := range ham.Impurities {
			pat := &ham.Impurities[pi]
			applyImpurityIntraTile(lat, ham, pat, pat.Hoppings, t, tc, coeff, true, src1, dst)
		}
		for _, site := range ham.Vacancies.PerTile[t] {
			dst[site] = 0
		}
	}

	for pi := range ham.Impurities {
		pat := &ham.Impurities[pi]
		for _, b := range pat.BorderBonds {
			local, _ := lat.Coord(b.ToSite)
			global := lat.LocalToGlobal(tc, local)
			phase := ham.PeierlsPhase(b.Delta, global)
			dst[b.ToSite] += coeff * b.Amplitude * phase * src1[b.FromSite]
		}
		for _, bo := range pat.BorderOnsite {
			dst[bo.Site] += coeff * bo.Value * src1[bo.Site]
		}
	}
	for _, site := range ham.Vacancies.WithDefectsGlobal {
		dst[site] = 0
	}

	ex.Exchange(threadID, dst)
	vec.IndexAdvance()
}

// applyImpurityIntraTile adds the internal on-site and hopping
// contributions of pat's anchors active in tile t. hoppings is ham's own
// pat.Hoppings for the Hamiltonian apply, or the velocity-transformed
// counterpart for the velocity apply; includeOnsite is false for the
// velocity apply, since an on-site term is proportional to the identity
// operator at one site and has no velocity (commutator) contribution.
func applyImpurityIntraTile(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, pat *hamiltonian.ImpurityPattern, hoppings []hamiltonian.InternalHopping, tile int, tc [lattice.MaxDim]int, coeff complex128, includeOnsite bool, src, dst []complex128) {
	for _, anchor := range pat.ActiveAnchors(tile) {
		anchorLocal, _ := lat.Coord(anchor)

		if includeOnsite {
			for _, node := range pat.Nodes {
				nodeLocal := offsetLocal(lat, anchorLocal, node.Offset)
				site := lat.SiteIndex(nodeLocal, node.Orbital)
				dst[site] += coeff * node.Onsite * src[site]
			}
		}

		for _, hop := range hoppings {
			from := pat.Nodes[hop.FromNode]
			to := pat.Nodes[hop.ToNode]
			fromLocal := offsetLocal(lat, anchorLocal, from.Offset)
			toLocal := offsetLocal(lat, anchorLocal, to.Offset)
			fromSite := lat.SiteIndex(fromLocal, from.Orbital)
			toSite := lat.SiteIndex(toLocal, to.Orbital)
			global := lat.LocalToGlobal(tc, toLocal)
			phase := ham.PeierlsPhase(hop.Delta, global)
			dst[toSite] += coeff * hop.Amplitude * phase * src[fromSite]
		}
	}
}

func offsetLocal(lat *lattice.Lattice, base [lattice.MaxDim]int, offset [lattice.MaxDim]int) [lattice.MaxDim]int {
	var out [lattice.MaxDim]int
	for d := 0; d < lat.Dim; d++ {
		out[d] = base[d] + offset[d]
	}
	return out
}
