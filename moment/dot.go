// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

// bulkDot returns <a|b> = sum_i conj(a[i])*b[i] over the full local array.
// Callers must have zeroed ghost cells on both slices beforehand (via
// kpmvec.Vector.EmptyGhosts) so the ghost region contributes nothing and
// the whole slice can be dotted without masking.
func bulkDot(a, b []complex128) complex128 {
	return cblas128.Dotc(len(a), cblas128.Vector{N: len(a), Inc: 1, Data: a}, cblas128.Vector{N: len(b), Inc: 1, Data: b})
}

// blockContract computes C = A^H * B for the MEMORY-wide left/right vector
// blocks used by the 2D/3D accumulators: left and right each hold
// blockLen columns of nd-length vectors stored column-major-by-vector (i.e.
// left[j] is the j-th MEMORY-slot vector). The result is a blockLen x
// blockLen row-major matrix, C[i*blockLen+j] = <left_i|right_j>.
func blockContract(left, right [][]complex128) []complex128 {
	bl := len(left)
	br := len(right)
	if bl == 0 || br == 0 {
		return nil
	}
	nd := len(left[0])

	a := cblas128.General{Rows: nd, Cols: bl, Stride: bl, Data: make([]complex128, nd*bl)}
	for j, col := range left {
		for i, v := range col {
			a.Data[i*bl+j] = v
		}
	}
	b := cblas128.General{Rows: nd, Cols: br, Stride: br, Data: make([]complex128, nd*br)}
	for j, col := range right {
		for i, v := range col {
			b.Data[i*br+j] = v
		}
	}
	c := cblas128.General{Rows: bl, Cols: br, Stride: br, Data: make([]complex128, bl*br)}
	cblas128.Gemm(blas.ConjTrans, blas.NoTrans, 1, a, b, 0, c)
	return c.Data
}
