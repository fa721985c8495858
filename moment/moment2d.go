// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
	"github.com/latticekpm/kpmcore/recursion"
)

// Config2D holds the per-quantity parameters of a 2D moment calculation:
// mu[n + N0*m] = <0| v^alpha T_n(H) v^beta T_m(H) |0> for n = 0..N0-1,
// m = 0..N1-1. Memory defaults to 10 (the spec's MEMORY constant) when
// left zero; NumMoments0/1 must each be a multiple of Memory.
type Config2D struct {
	NumMoments0, NumMoments1 int
	NumRandoms               int
	NumDisorder              int
	AxesAlpha, AxesBeta      []int
	Memory                   int
}

func (c Config2D) memory() int {
	if c.Memory <= 0 {
		return 10
	}
	return c.Memory
}

// Array2D is the accumulated 2D moment array, row-major with n the fast
// (N0) index: Mu[n + N0*m].
type Array2D struct {
	N0, N1 int
	Mu     []ComplexMean
}

func newArray2D(n0, n1 int) Array2D {
	return Array2D{N0: n0, N1: n1, Mu: make([]ComplexMean, n0*n1)}
}

// Values returns the current point estimate of every moment.
func (a Array2D) Values() []complex128 {
	out := make([]complex128, len(a.Mu))
	for i, m := range a.Mu {
		out[i] = m.Value()
	}
	return out
}

// Combine merges another thread's Array2D into a, element-for-element.
func (a Array2D) Combine(other Array2D) {
	for i := range a.Mu {
		a.Mu[i].Combine(other.Mu[i])
	}
}

// Run2D drives the 2D accumulation for one worker thread. mu[n,m] =
// <0|v^alpha T_n(H) v^beta T_m(H)|0> decomposes, using T_n(H)'s
// Hermiticity, into <left_n|right_m> with left_n = T_n(H) v^alpha|0) (the
// bra-side sequence, v^alpha applied before the Chebyshev walk) and
// right_m = v^beta T_m(H)|0) (v^beta applied *after* the Chebyshev walk,
// since it does not commute with T_m(H)). Both sequences are precomputed
// in full for each random vector via chebyshevSequence, then contracted in
// MEMORY x MEMORY blocks with one GEMM per block pair. Because the
// contraction conjugates its left argument rather than conjugate
// transposing v^alpha, leftSeq is scaled by v^alpha's own anti-Hermiticity
// sign immediately after being built, so the raw accumulated sample is the
// true mu[n,m] and not mu[n,m] times that sign; Symmetrize2D's Hermitian
// averaging is applied afterward, on top of the now-unbiased raw value.
func Run2D(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, cfg Config2D, ex *halo.Exchanger, threadID int, rng *rand.Rand, onDisorder func()) (Array2D, error) {
	mem := cfg.memory()
	if cfg.NumMoments0%mem != 0 || cfg.NumMoments1%mem != 0 {
		return Array2D{}, fmt.Errorf("moment: NumMoments0/1 must be multiples of Memory (%d)", mem)
	}
	arr := newArray2D(cfg.NumMoments0, cfg.NumMoments1)

	vtAlpha, err := ham.BuildVelocity(cfg.AxesAlpha)
	if err != nil {
		return Array2D{}, err
	}
	vtBeta, err := ham.BuildVelocity(cfg.AxesBeta)
	if err != nil {
		return Array2D{}, err
	}

	seed, err := kpmvec.New(1, lat.Sites())
	if err != nil {
		return Array2D{}, err
	}
	leftKet, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array2D{}, err
	}
	rightKet, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array2D{}, err
	}

	leftSeq := make([][]complex128, cfg.NumMoments0)
	rightRaw := make([][]complex128, cfg.NumMoments1)
	rightSeq := make([][]complex128, cfg.NumMoments1)
	for i := range leftSeq {
		leftSeq[i] = make([]complex128, lat.Sites())
	}
	for i := range rightRaw {
		rightRaw[i] = make([]complex128, lat.Sites())
		rightSeq[i] = make([]complex128, lat.Sites())
	}

	vacancySites := ham.Vacancies.WithDefectsGlobal

	for d := 0; d < cfg.NumDisorder; d++ {
		if onDisorder != nil {
			onDisorder()
		}
		for r := 0; r < cfg.NumRandoms; r++ {
			seed.InitRandom(lat, rng, vacancySites)

			recursion.Velocity(lat, ham, vtAlpha, seed.Slot(0), leftKet.Slot(0), ex, threadID)
			leftKet.EmptyGhosts(lat)
			chebyshevSequence(lat, ham, leftKet, leftSeq, cfg.NumMoments0, ex, threadID)
			// <leftSeq|...> is a conjugate-linear contraction: dotting
			// against v^alpha|0) rather than first conjugate-transposing
			// v^alpha picks up a stray factor of v^alpha's own
			// (anti-)Hermiticity sign relative to the true
			// <0|v^alpha T_n(H) v^beta T_m(H)|0>. Scale it out here, before
			// the contraction, rather than leaving it for Symmetrize2D:
			// Symmetrize2D's Hermitian averaging assumes its input is
			// already the unbiased raw moment.
			signAlpha := velocitySignFactor(len(cfg.AxesAlpha))
			if signAlpha != 1 {
				for _, s := range leftSeq {
					for i := range s {
						s[i] *= signAlpha
					}
				}
			}

			copy(rightKet.Slot(0), seed.Slot(0))
			chebyshevSequence(lat, ham, rightKet, rightRaw, cfg.NumMoments1, ex, threadID)
			for m := range rightRaw {
				recursion.Velocity(lat, ham, vtBeta, rightRaw[m], rightSeq[m], ex, threadID)
				zeroGhosts(lat, rightSeq[m])
			}

			for n0 := 0; n0 < cfg.NumMoments0; n0 += mem {
				for m0 := 0; m0 < cfg.NumMoments1; m0 += mem {
					c := blockContract(leftSeq[n0:n0+mem], rightSeq[m0:m0+mem])
					for i := 0; i < mem; i++ {
						for j := 0; j < mem; j++ {
							arr.Mu[(n0+i)+arr.N0*(m0+j)].Accum(c[i*mem+j])
						}
					}
				}
			}
		}
	}
	return arr, nil
}
