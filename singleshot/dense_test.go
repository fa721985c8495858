// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package singleshot

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
// and assembles the resulting bulk x bulk matrix, independent of Run's own
// weighted-sum code.
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

func denseVelocity(t *testing.T, lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vt *hamiltonian.VelocityTable, ex *halo.Exchanger) *mat.CDense {
	t.Helper()
	return denseBulkOperator(t, lat, func(src, dst []complex128) {
		recursion.Velocity(lat, ham, vt, src, dst, ex, 0)
	})
}

// denseGreenImag assembles Im G(H, energy+sign*i*gamma), truncated at
// numMoments Chebyshev terms, as the dense sum g_0*I + g_1*H + ..., using
// the same greenCoefficients Run itself weights its Chebyshev sum with.
func denseGreenImag(h *mat.CDense, energy, gamma, sign float64, numMoments int) *mat.CDense {
	g := greenCoefficients(energy, gamma, sign, numMoments)
	bulk, _ := h.Dims()
	id := mat.NewCDense(bulk, bulk, nil)
	for i := 0; i < bulk; i++ {
		id.Set(i, i, 1)
	}

	out := mat.NewCDense(bulk, bulk, nil)
	addScaled := func(m *mat.CDense, coeff complex128) {
		scaled := mat.NewCDense(bulk, bulk, nil)
		scaled.Scale(coeff, m)
		sum := mat.NewCDense(bulk, bulk, nil)
		sum.Add(out, scaled)
		out = sum
	}

	tPrev, tCur := id, h
	addScaled(tPrev, g[0])
	if numMoments == 1 {
		return out
	}
	addScaled(tCur, g[1])
	for n := 2; n < numMoments; n++ {
		prod := mat.NewCDense(bulk, bulk, nil)
		prod.Mul(h, tCur)
		scaled := mat.NewCDense(bulk, bulk, nil)
		scaled.Scale(2, prod)
		next := mat.NewCDense(bulk, bulk, nil)
		next.Sub(scaled, tPrev)
		tPrev, tCur = tCur, next
		addScaled(tCur, g[n])
	}
	return out
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
