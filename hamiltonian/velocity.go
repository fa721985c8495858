// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hamiltonian

import (
	"fmt"

	"github.com/latticekpm/kpmcore/lattice"
)

// VelocityTable is the precomputed coefficient table for a velocity
// operator v^alpha (one axis) or v^{alpha,beta} (two axes, the second
// derivative used in diamagnetic/nonlinear terms). It mirrors the
// Hamiltonian's hopping structure exactly, so recursion.Velocity can walk
// it with the same tile sweep as recursion.Multiply.
type VelocityTable struct {
	Axes []int

	Regular     [][]Hopping
	Impurities  []ImpurityVelocity
	BorderBonds [][]BorderBond // per pattern, mirrors ImpurityPattern.BorderBonds
}

type ImpurityVelocity struct {
	Hoppings []InternalHopping
}

// BuildVelocity produces the scalar (len(axes)==1) or tensor (len(axes)==2)
// coefficient table used by recursion.Velocity. It is a pure function of
// the regular and structural hopping tables: v^alpha_o^delta =
// i*delta_alpha*t_o^delta and v^{alpha,beta}_o^delta =
// -delta_alpha*delta_beta*t_o^delta.
func (h *Hamiltonian) BuildVelocity(axes []int) (*VelocityTable, error) {
	if len(axes) < 1 || len(axes) > 2 {
		return nil, fmt.Errorf("hamiltonian: velocity operator needs 1 or 2 axes, got %d", len(axes))
	}
	for _, a := range axes {
		if a < 0 || a >= h.Lat.Dim {
			return nil, fmt.Errorf("hamiltonian: velocity axis %d outside 0..%d", a, h.Lat.Dim-1)
		}
	}

	coeff := func(delta [lattice.MaxDim]int, amp complex128) complex128 {
		if len(axes) == 1 {
			return complex(0, float64(delta[axes[0]])) * amp
		}
		return complex(-float64(delta[axes[0]]*delta[axes[1]]), 0) * amp
	}

	vt := &VelocityTable{Axes: axes}
	vt.Regular = make([][]Hopping, len(h.Regular))
	for o, hops := range h.Regular {
		out := make([]Hopping, len(hops))
		for i, hop := range hops {
			out[i] = Hopping{Delta: hop.Delta, Amplitude: coeff(hop.Delta, hop.Amplitude)}
		}
		vt.Regular[o] = out
	}

	vt.Impurities = make([]ImpurityVelocity, len(h.Impurities))
	vt.BorderBonds = make([][]BorderBond, len(h.Impurities))
	for pi, pat := range h.Impurities {
		hops := make([]InternalHopping, len(pat.Hoppings))
		for i, hop := range pat.Hoppings {
			hops[i] = InternalHopping{
				FromNode: hop.FromNode, ToNode: hop.ToNode, Delta: hop.Delta,
				Amplitude: coeff(hop.Delta, hop.Amplitude),
			}
		}
		vt.Impurities[pi] = ImpurityVelocity{Hoppings: hops}

		borders := make([]BorderBond, len(pat.BorderBonds))
		for i, b := range pat.BorderBonds {
			borders[i] = BorderBond{
				FromSite: b.FromSite, ToSite: b.ToSite, Delta: b.Delta,
				Amplitude: coeff(b.Delta, b.Amplitude),
			}
		}
		vt.BorderBonds[pi] = borders
	}
	return vt, nil
}
