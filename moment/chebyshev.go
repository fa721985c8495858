// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

import (
	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
	"github.com/latticekpm/kpmcore/recursion"
)

// chebyshevStep advances vec from T_{k-1}(H)|seed) to T_k(H)|seed): k==0 is
// a no-op (vec already holds |seed) = T_0), k==1 seeds |1) = H|seed) via
// MULT=0, k>=2 performs the true recursion step via MULT=1.
func chebyshevStep(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vec *kpmvec.Vector, k int, ex *halo.Exchanger, threadID int) {
	switch {
	case k == 0:
	case k == 1:
		recursion.Multiply(lat, ham, vec, 0, ex, threadID)
	default:
		recursion.Multiply(lat, ham, vec, 1, ex, threadID)
	}
}

// chebyshevSequence fills out[0..n-1] with ghost-zeroed copies of
// T_k(H)|seed) for k = 0..n-1, where |seed) is vec's current slot. vec is
// consumed: on return its current slot holds T_{n-1}(H)|seed).
func chebyshevSequence(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vec *kpmvec.Vector, out [][]complex128, n int, ex *halo.Exchanger, threadID int) {
	for k := 0; k < n; k++ {
		chebyshevStep(lat, ham, vec, k, ex, threadID)
		copy(out[k], vec.Slot(0))
		zeroGhosts(lat, out[k])
	}
}
