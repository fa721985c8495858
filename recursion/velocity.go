// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recursion

import (
	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/lattice"
)

// Velocity applies the velocity operator described by vt to src, writing
// the result into dst. It has no recursion state: unlike Multiply it is
// identical in structure to a single H-apply (tile init to zero, regular
// hoppings and structural-disorder hoppings only), but omits the Anderson
// and impurity on-site contributions (the identity operator commutes with
// position and so has no velocity), and uses vt's coefficient table in
// place of the Hamiltonian's own hoppings.
//
// Velocity is not self-adjoint for a single-axis operator:
// <a|v|b> = -<b|v|a>*. Callers forming a bilinear quadratic form compensate
// by negating one side, as done in package moment.
func Velocity(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vt *hamiltonian.VelocityTable, src, dst []complex128, ex *halo.Exchanger, threadID int) {
	tc := lat.ThreadCoord(threadID)

	n := lat.TileCount()
	for t := 0; t < n; t++ {
		tileCoord := lat.TileCoord(t)
		origin := lat.TileOrigin(tileCoord)

		lat.WalkTile(origin, func(local [lattice.MaxDim]int) {
			global := lat.LocalToGlobal(tc, local)
			for o := 0; o < lat.Orbitals; o++ {
				site := lat.SiteIndex(local, o)
				dst[site] = 0

				for _, hop := range vt.Regular[o] {
					var nbLocal [lattice.MaxDim]int
					for d := 0; d < lat.Dim; d++ {
						nbLocal[d] = local[d] + hop.Delta[d]
					}
					phase := ham.PeierlsPhase(hop.Delta, global)
					dst[site] += hop.Amplitude * phase * src[lat.SiteIndex(nbLocal, o)]
				}
			}
		})

		for pi := range ham.Impurities {
			pat := &ham.Impurities[pi]
			applyImpurityIntraTile(lat, ham, pat, vt.Impurities[pi].Hoppings, t, tc, 1, false, src, dst)
		}
		for _, site := range ham.Vacancies.PerTile[t] {
			dst[site] = 0
		}
	}

	for pi := range ham.Impurities {
		for _, b := range vt.BorderBonds[pi] {
			local, _ := lat.Coord(b.ToSite)
			global := lat.LocalToGlobal(tc, local)
			phase := ham.PeierlsPhase(b.Delta, global)
			dst[b.ToSite] += b.Amplitude * phase * src[b.FromSite]
		}
	}
	for _, site := range ham.Vacancies.WithDefectsGlobal {
		dst[site] = 0
	}

	ex.Exchange(threadID, dst)
}
