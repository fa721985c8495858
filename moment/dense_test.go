// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
	"github.com/latticekpm/kpmcore/recursion"
)

// bulkLocalCoord maps a bulk site index (0..BulkSites()-1, for a
// single-axis, single-orbital lattice) to the local coordinate SiteIndex
// expects.
func bulkLocalCoord(lat *lattice.Lattice, k int) [lattice.MaxDim]int {
	var local [lattice.MaxDim]int
	local[0] = lat.Ghost + k
	return local
}

// denseBulkOperator exercises apply against every bulk basis vector of lat
// and assembles the resulting bulk x bulk matrix. It calls apply exactly
// the way the production recursion helpers are called elsewhere, but does
// none of package moment's own sequence-building or block-contraction: the
// dense matrix it returns is ground truth independent of that code.
func denseBulkOperator(t *testing.T, lat *lattice.Lattice, apply func(src, dst []complex128)) *mat.CDense {
	t.Helper()
	nd := lat.Sites()
	bulk := lat.BulkSites()
	out := mat.NewCDense(bulk, bulk, nil)
	for col := 0; col < bulk; col++ {
		src := make([]complex128, nd)
		src[lat.SiteIndex(bulkLocalCoord(lat, col), 0)] = 1
		dst := make([]complex128, nd)
		apply(src, dst)
		for row := 0; row < bulk; row++ {
			out.Set(row, col, dst[lat.SiteIndex(bulkLocalCoord(lat, row), 0)])
		}
	}
	return out
}

// denseHamiltonian assembles H's dense bulk matrix by applying
// recursion.Multiply (MULT=0, a plain H-apply) to every basis vector.
func denseHamiltonian(t *testing.T, lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, ex *halo.Exchanger) *mat.CDense {
	t.Helper()
	return denseBulkOperator(t, lat, func(src, dst []complex128) {
		vec, err := kpmvec.New(3, lat.Sites())
		if err != nil {
			t.Fatalf("kpmvec.New: %v", err)
		}
		copy(vec.Slot(0), src)
		recursion.Multiply(lat, ham, vec, 0, ex, 0)
		copy(dst, vec.Slot(0))
	})
}

// denseVelocity assembles vt's dense bulk matrix by applying
// recursion.Velocity to every basis vector.
func denseVelocity(t *testing.T, lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vt *hamiltonian.VelocityTable, ex *halo.Exchanger) *mat.CDense {
	t.Helper()
	return denseBulkOperator(t, lat, func(src, dst []complex128) {
		recursion.Velocity(lat, ham, vt, src, dst, ex, 0)
	})
}

// chebyshevDenseSeq returns T_0(h)..T_{n-1}(h) as dense matrices via the
// same three-term recursion recursion.Multiply implements on vectors.
func chebyshevDenseSeq(h *mat.CDense, n int) []*mat.CDense {
	bulk, _ := h.Dims()
	seq := make([]*mat.CDense, n)
	id := mat.NewCDense(bulk, bulk, nil)
	for i := 0; i < bulk; i++ {
		id.Set(i, i, 1)
	}
	seq[0] = id
	if n == 1 {
		return seq
	}
	seq[1] = h
	for k := 2; k < n; k++ {
		prod := mat.NewCDense(bulk, bulk, nil)
		prod.Mul(h, seq[k-1])
		scaled := mat.NewCDense(bulk, bulk, nil)
		scaled.Scale(2, prod)
		next := mat.NewCDense(bulk, bulk, nil)
		next.Sub(scaled, seq[k-2])
		seq[k] = next
	}
	return seq
}

// traceProduct returns Tr[mats[0]*mats[1]*...] for a chain of equal-sized
// dense matrices.
func traceProduct(mats ...*mat.CDense) complex128 {
	prod := mats[0]
	for _, m := range mats[1:] {
		bulk, _ := prod.Dims()
		next := mat.NewCDense(bulk, bulk, nil)
		next.Mul(prod, m)
		prod = next
	}
	bulk, _ := prod.Dims()
	var tr complex128
	for i := 0; i < bulk; i++ {
		tr += prod.At(i, i)
	}
	return tr
}
