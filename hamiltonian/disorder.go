// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hamiltonian

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GenerateDisorder redraws the Anderson on-site values and re-seeds the
// structural-disorder anchors for one new disorder realization. It is
// idempotent within a single call (every random quantity is drawn exactly
// once) but changes the Hamiltonian's state across calls, so callers must
// serialize it with a barrier discipline: the Hamiltonian is one object
// shared by every thread, so one call must complete before any thread
// starts the next realization's recursion.
func (h *Hamiltonian) GenerateDisorder(rng *rand.Rand) {
	for o, pol := range h.Anderson.Policy {
		switch pol {
		case PolicyShared:
			u := distuv.Uniform{Min: -h.Anderson.Width[o], Max: h.Anderson.Width[o], Src: rng}
			h.Anderson.shared[o] = u.Rand()
		case PolicyPerSite:
			u := distuv.Uniform{Min: -h.Anderson.Width[o], Max: h.Anderson.Width[o], Src: rng}
			for i := range h.Anderson.perSite[o] {
				h.Anderson.perSite[o][i] = u.Rand()
			}
		case PolicyNone:
			// nothing to draw
		}
	}

	for pi := range h.Impurities {
		pat := &h.Impurities[pi]
		if pat.active == nil {
			pat.active = make([][]int, len(pat.Candidates))
		}
		for tile, candidates := range pat.Candidates {
			active := pat.active[tile][:0]
			for _, site := range candidates {
				if rng.Float64() < pat.Density {
					active = append(active, site)
				}
			}
			pat.active[tile] = active
		}
	}
}
