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

// Config3D holds the per-quantity parameters of a 3D moment calculation:
// mu[n + N0*m + N0*N1*p] = <0| v^alpha T_n(H) v^beta T_m(H) v^gamma T_p(H) |0>
// for n = 0..N0-1, m = 0..N1-1, p = 0..N2-1. Memory defaults to 10 and
// NumMoments0/1 must each be a multiple of it; NumMoments2 drives the
// outermost, unblocked loop and carries no such restriction.
type Config3D struct {
	NumMoments0, NumMoments1, NumMoments2 int
	NumRandoms                            int
	NumDisorder                           int
	AxesAlpha, AxesBeta, AxesGamma         []int
	Memory                                int
}

func (c Config3D) memory() int {
	if c.Memory <= 0 {
		return 10
	}
	return c.Memory
}

// Array3D is the accumulated 3D moment array, row-major with n the
// fastest index: Mu[n + N0*m + N0*N1*p].
type Array3D struct {
	N0, N1, N2 int
	Mu         []ComplexMean
}

func newArray3D(n0, n1, n2 int) Array3D {
	return Array3D{N0: n0, N1: n1, N2: n2, Mu: make([]ComplexMean, n0*n1*n2)}
}

// Values returns the current point estimate of every moment.
func (a Array3D) Values() []complex128 {
	out := make([]complex128, len(a.Mu))
	for i, m := range a.Mu {
		out[i] = m.Value()
	}
	return out
}

// Combine merges another thread's Array3D into a, element-for-element.
func (a Array3D) Combine(other Array3D) {
	for i := range a.Mu {
		a.Mu[i].Combine(other.Mu[i])
	}
}

// Run3D drives the 3D accumulation for one worker thread. The bra-side
// sequence left_n = T_n(H) v^alpha|0) is independent of m and p and is
// precomputed once per random vector, exactly as in Run2D — including the
// same post-build scaling by v^alpha's anti-Hermiticity sign, since
// blockContract conjugates leftSeq directly rather than conjugate
// transposing v^alpha. The ket side
// is built outer-to-inner: a single persistent vector pKet is advanced one
// Chebyshev step at a time for p = 0..N2-1 (T_p(H)|0)); at each p, v^gamma
// is applied to pKet to seed a fresh length-N1 Chebyshev sequence
// T_m(H) v^gamma T_p(H)|0), to which v^beta is then applied
// element-for-element to produce this p-plane's right sequence
// v^beta T_m(H) v^gamma T_p(H)|0). Each (p, n0, m0) block is contracted
// with one GEMM via blockContract.
func Run3D(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, cfg Config3D, ex *halo.Exchanger, threadID int, rng *rand.Rand, onDisorder func()) (Array3D, error) {
	mem := cfg.memory()
	if cfg.NumMoments0%mem != 0 || cfg.NumMoments1%mem != 0 {
		return Array3D{}, fmt.Errorf("moment: NumMoments0/1 must be multiples of Memory (%d)", mem)
	}
	arr := newArray3D(cfg.NumMoments0, cfg.NumMoments1, cfg.NumMoments2)

	vtAlpha, err := ham.BuildVelocity(cfg.AxesAlpha)
	if err != nil {
		return Array3D{}, err
	}
	vtBeta, err := ham.BuildVelocity(cfg.AxesBeta)
	if err != nil {
		return Array3D{}, err
	}
	vtGamma, err := ham.BuildVelocity(cfg.AxesGamma)
	if err != nil {
		return Array3D{}, err
	}

	seed, err := kpmvec.New(1, lat.Sites())
	if err != nil {
		return Array3D{}, err
	}
	leftKet, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array3D{}, err
	}
	pKet, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array3D{}, err
	}
	mKet, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array3D{}, err
	}

	leftSeq := make([][]complex128, cfg.NumMoments0)
	for i := range leftSeq {
		leftSeq[i] = make([]complex128, lat.Sites())
	}
	gammaSeed := make([]complex128, lat.Sites())
	mRaw := make([][]complex128, cfg.NumMoments1)
	rightSeq := make([][]complex128, cfg.NumMoments1)
	for i := range mRaw {
		mRaw[i] = make([]complex128, lat.Sites())
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
			// As in Run2D: blockContract conjugates leftSeq rather than
			// conjugate-transposing v^alpha, so leftSeq picks up a stray
			// factor of v^alpha's (anti-)Hermiticity sign relative to the
			// true mu[n,m,p]. Scale it out here, before the sign is baked
			// into every contraction this random vector contributes to.
			signAlpha := velocitySignFactor(len(cfg.AxesAlpha))
			if signAlpha != 1 {
				for _, s := range leftSeq {
					for i := range s {
						s[i] *= signAlpha
					}
				}
			}

			copy(pKet.Slot(0), seed.Slot(0))
			for p := 0; p < cfg.NumMoments2; p++ {
				chebyshevStep(lat, ham, pKet, p, ex, threadID)

				recursion.Velocity(lat, ham, vtGamma, pKet.Slot(0), gammaSeed, ex, threadID)
				zeroGhosts(lat, gammaSeed)
				copy(mKet.Slot(0), gammaSeed)
				chebyshevSequence(lat, ham, mKet, mRaw, cfg.NumMoments1, ex, threadID)
				for m := range mRaw {
					recursion.Velocity(lat, ham, vtBeta, mRaw[m], rightSeq[m], ex, threadID)
					zeroGhosts(lat, rightSeq[m])
				}

				for n0 := 0; n0 < cfg.NumMoments0; n0 += mem {
					for m0 := 0; m0 < cfg.NumMoments1; m0 += mem {
						c := blockContract(leftSeq[n0:n0+mem], rightSeq[m0:m0+mem])
						for i := 0; i < mem; i++ {
							for j := 0; j < mem; j++ {
								idx := (n0 + i) + arr.N0*(m0+j) + arr.N0*arr.N1*p
								arr.Mu[idx].Accum(c[i*mem+j])
							}
						}
					}
				}
			}
		}
	}
	return arr, nil
}
