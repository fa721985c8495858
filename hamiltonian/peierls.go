// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hamiltonian

import (
	"math/cmplx"

	"github.com/latticekpm/kpmcore/lattice"
)

// PeierlsPhase returns exp(i*delta^T*A*r) for a hopping with integer
// displacement delta originating at global lattice coordinate r, or 1 when
// the Hamiltonian carries no magnetic field (real scalar type, or a nil
// vector-potential matrix).
func (h *Hamiltonian) PeierlsPhase(delta [lattice.MaxDim]int, global [lattice.MaxDim]int) complex128 {
	if !h.Complex || h.Lat.A == nil {
		return 1
	}
	var phi float64
	dim := h.Lat.Dim
	for a := 0; a < dim; a++ {
		if delta[a] == 0 {
			continue
		}
		for b := 0; b < dim; b++ {
			phi += float64(delta[a]) * h.Lat.A.At(a, b) * float64(global[b])
		}
	}
	return cmplx.Exp(complex(0, phi))
}
