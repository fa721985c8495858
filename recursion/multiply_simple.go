// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recursion

import (
	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
)

// MultiplySimple is the untiled validation code path referred to in the
// source material as the simple multiply: its per-site sweep visits every
// bulk cell one-at-a-time in a single lattice.WalkBulk pass (the same
// tile-major order Multiply uses) instead of interleaving each tile's cells
// with that tile's structural-disorder and vacancy work, and is not meant
// to be fast. It exists purely as a correctness oracle that Multiply is
// tested against on small lattices. Structural-disorder and vacancy
// contributions are applied afterward in a separate loop, once per tile,
// since they are keyed by tile; a per-cell application inside the WalkBulk
// callback would reapply them once for every cell in the tile instead of
// once for the whole tile.
func MultiplySimple(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vec *kpmvec.Vector, mult int, ex *halo.Exchanger, threadID int) {
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

	lat.WalkBulk(func(local [lattice.MaxDim]int) {
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

	n := lat.TileCount()
	for t := 0; t < n; t++ {
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
