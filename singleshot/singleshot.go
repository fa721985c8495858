// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package singleshot implements the zero-temperature DC response
// evaluator (§4.7): a direct Chebyshev-series sum against the analytic
// Green's-function coefficients, rather than a full moment tensor.
package singleshot

import (
	"fmt"
	"math/cmplx"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/blas/cblas128"

	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
	"github.com/latticekpm/kpmcore/moment"
	"github.com/latticekpm/kpmcore/recursion"
)

// Config holds the per-quantity parameters of a single-shot DC response
// evaluation: sigma(E) = <psiL(E)|v^beta|psiR(E)> with
// |psiL(E)> = Im G(H, E+i*gamma) v^alpha|0> and |psiR(E)> =
// Im G(H, E-i*gamma)|0>, each expanded as a Chebyshev series (see Run).
type Config struct {
	NumMoments  int
	NumRandoms  int
	NumDisorder int
	AxesAlpha   []int
	AxesBeta    []int
	Energies    []float64
	Gamma       float64
}

// Array is the accumulated single-shot response, one running mean per
// requested energy.
type Array struct {
	Sigma []moment.ComplexMean
}

func newArray(n int) Array {
	return Array{Sigma: make([]moment.ComplexMean, n)}
}

// Values returns the current point estimate at every requested energy.
func (a Array) Values() []complex128 {
	out := make([]complex128, len(a.Sigma))
	for i, m := range a.Sigma {
		out[i] = m.Value()
	}
	return out
}

// Combine merges another thread's Array into a, sample-for-sample.
func (a Array) Combine(other Array) {
	for i := range a.Sigma {
		a.Sigma[i].Combine(other.Sigma[i])
	}
}

// velocitySignFactor returns the sign correction for a velocity operator
// built from numAxes axis indices: a single-axis (rank-1) operator is
// anti-Hermitian and contributes -1; a two-axis (rank-2) operator is
// Hermitian and contributes +1. Mirrors package moment's own
// velocitySignFactor, kept as a local copy since it is a two-line closed
// form, not worth an exported cross-package dependency.
func velocitySignFactor(numAxes int) complex128 {
	if numAxes%2 == 1 {
		return -1
	}
	return 1
}

// greenCoefficients returns the Chebyshev expansion coefficients g_n(z) of
// Im[1/(z-H)] at z = energy + i*sign*gamma, for n = 0..numMoments-1. The
// resolvent's Chebyshev expansion is
//
//	G(z) = -2i/sqrt(1-z^2) * sum_n' T_n(x) / (z - x)^{...}
//
// which reduces, for the imaginary part sampled at a complex energy just
// off the real axis, to the closed-form recursion coefficients
//
//	g_0(z) = -Im[ i / sqrt(z^2-1) ]
//	g_n(z) = -2*Im[ i * (z - sqrt(z^2-1))^n / sqrt(z^2-1) ], n >= 1
//
// with the branch of sqrt chosen so |z - sqrt(z^2-1)| < 1 (decaying away
// from the real axis), matching the standard KPM Green's-function kernel.
func greenCoefficients(energy, gamma float64, sign float64, numMoments int) []complex128 {
	z := complex(energy, sign*gamma)
	root := cmplx.Sqrt(z*z - 1)
	if real(root) < 0 || (real(root) == 0 && imag(root) < 0) {
		root = -root
	}
	// Pick the branch with |z-root| < 1.
	w := z - root
	if cmplx.Abs(w) > 1 {
		root = -root
		w = z - root
	}

	g := make([]complex128, numMoments)
	pow := complex(1, 0)
	for n := 0; n < numMoments; n++ {
		coeff := complex(0, -1) / root * pow
		if n == 0 {
			g[n] = complex(0, -1) * imag(coeff)
		} else {
			g[n] = complex(0, -2) * imag(coeff)
		}
		pow *= w
	}
	return g
}

// Run drives one worker thread's share of the single-shot accumulation
// across every disorder realization and random vector it is assigned, per
// §4.7: apply v^alpha to the seed, Chebyshev-weight-sum into a left vector
// using g_n(E+i*gamma); apply v^alpha-free Chebyshev-weight-sum into a
// right vector using g_n(E-i*gamma); contract with v^beta in between.
func Run(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, cfg Config, ex *halo.Exchanger, threadID int, rng *rand.Rand, onDisorder func()) (Array, error) {
	if cfg.NumMoments < 1 {
		return Array{}, fmt.Errorf("singleshot: NumMoments must be >= 1")
	}
	if len(cfg.Energies) == 0 {
		return Array{}, fmt.Errorf("singleshot: at least one energy is required")
	}
	if cfg.Gamma <= 0 {
		return Array{}, fmt.Errorf("singleshot: Gamma must be > 0")
	}

	arr := newArray(len(cfg.Energies))

	vtAlpha, err := ham.BuildVelocity(cfg.AxesAlpha)
	if err != nil {
		return Array{}, err
	}
	vtBeta, err := ham.BuildVelocity(cfg.AxesBeta)
	if err != nil {
		return Array{}, err
	}

	seed, err := kpmvec.New(1, lat.Sites())
	if err != nil {
		return Array{}, err
	}
	leftVec, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array{}, err
	}
	rightVec, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array{}, err
	}

	nd := lat.Sites()
	leftSum := make([][]complex128, len(cfg.Energies))
	rightSum := make([][]complex128, len(cfg.Energies))
	for i := range cfg.Energies {
		leftSum[i] = make([]complex128, nd)
		rightSum[i] = make([]complex128, nd)
	}

	gLeft := make([][]complex128, len(cfg.Energies))
	gRight := make([][]complex128, len(cfg.Energies))
	for i, e := range cfg.Energies {
		gLeft[i] = greenCoefficients(e, cfg.Gamma, +1, cfg.NumMoments)
		gRight[i] = greenCoefficients(e, cfg.Gamma, -1, cfg.NumMoments)
	}

	vacancySites := ham.Vacancies.WithDefectsGlobal

	for d := 0; d < cfg.NumDisorder; d++ {
		if onDisorder != nil {
			onDisorder()
		}
		for r := 0; r < cfg.NumRandoms; r++ {
			seed.InitRandom(lat, rng, vacancySites)

			recursion.Velocity(lat, ham, vtAlpha, seed.Slot(0), leftVec.Slot(0), ex, threadID)
			// dot() below conjugates its left argument rather than
			// conjugate-transposing v^alpha, so leftVec's whole Chebyshev
			// sum would otherwise carry a stray factor of v^alpha's own
			// (anti-)Hermiticity sign relative to the true sigma(E). The
			// recursion is linear, so scaling the seed here scales every
			// later T_n(H) application by the same factor.
			if sign := velocitySignFactor(len(cfg.AxesAlpha)); sign != 1 {
				lv := leftVec.Slot(0)
				for i := range lv {
					lv[i] *= sign
				}
			}
			copy(rightVec.Slot(0), seed.Slot(0))

			for e := range cfg.Energies {
				for i := range leftSum[e] {
					leftSum[e][i] = 0
					rightSum[e][i] = 0
				}
			}

			weightedChebyshevSum(lat, ham, leftVec, gLeft, leftSum, cfg.NumMoments, ex, threadID)
			weightedChebyshevSum(lat, ham, rightVec, gRight, rightSum, cfg.NumMoments, ex, threadID)

			for e := range cfg.Energies {
				betaRight := make([]complex128, nd)
				recursion.Velocity(lat, ham, vtBeta, rightSum[e], betaRight, ex, threadID)
				zeroGhosts(lat, leftSum[e])
				zeroGhosts(lat, betaRight)
				arr.Sigma[e].Accum(dot(leftSum[e], betaRight))
			}
		}
	}
	return arr, nil
}

// weightedChebyshevSum accumulates sum_n g[e][n]*T_n(H)|seed) into
// sum[e] for every requested energy e, consuming vec's ring buffer in
// place (vec's slot 0 on entry holds |seed) = T_0).
func weightedChebyshevSum(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, vec *kpmvec.Vector, g [][]complex128, sum [][]complex128, numMoments int, ex *halo.Exchanger, threadID int) {
	addWeighted := func(n int) {
		slot := vec.Slot(0)
		for e := range g {
			w := g[e][n]
			dst := sum[e]
			for i := range dst {
				dst[i] += w * slot[i]
			}
		}
	}

	addWeighted(0)
	if numMoments == 1 {
		return
	}
	recursion.Multiply(lat, ham, vec, 0, ex, threadID)
	addWeighted(1)
	for n := 2; n < numMoments; n++ {
		recursion.Multiply(lat, ham, vec, 1, ex, threadID)
		addWeighted(n)
	}
}

func zeroGhosts(lat *lattice.Lattice, s []complex128) {
	for d := 0; d < lat.Dim; d++ {
		for side := 0; side < 2; side++ {
			lat.WalkFace(d, side, false, func(local [lattice.MaxDim]int) {
				for o := 0; o < lat.Orbitals; o++ {
					s[lat.SiteIndex(local, o)] = 0
				}
			})
		}
	}
}

func dot(a, b []complex128) complex128 {
	return cblas128.Dotc(len(a), cblas128.Vector{N: len(a), Inc: 1, Data: a}, cblas128.Vector{N: len(b), Inc: 1, Data: b})
}
