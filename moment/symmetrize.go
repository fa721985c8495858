// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

// velocitySignFactor returns 1 - 2*(totalAxisCount mod 2). Each single-axis
// (rank-1) velocity operator in a trace is anti-Hermitian and contributes
// one sign flip; each two-axis (rank-2) operator is Hermitian and
// contributes none. Summing every operator's axis count and reducing mod 2
// gives exactly the parity of how many rank-1 operators are present,
// without needing to track operator rank separately from axis count.
func velocitySignFactor(totalAxisCount int) complex128 {
	if totalAxisCount%2 == 1 {
		return -1
	}
	return 1
}

// Symmetrize1D applies the final sign correction for mu[n] =
// <0|v^alpha T_n(H)|0>: a single-axis velocity operator is anti-Hermitian,
// so the raw accumulated average must be negated before use. numAxes is
// the length of the axis list used to build the velocity operator (0 for
// no prefix, 1 for a single-axis v^alpha, 2 for the Hermitian v^{alpha,beta}
// — axes is the *operator's* axis list, not a count of distinct operators).
func Symmetrize1D(mu []complex128, numAxes int) {
	factor := velocitySignFactor(numAxes)
	if factor == 1 {
		return
	}
	for i := range mu {
		mu[i] *= factor
	}
}

// Symmetrize2D applies mu <- (mu + factor*mu^dagger)/2 on the (n, m)
// indices, where mu^dagger is the conjugate transpose and factor accounts
// for the anti-Hermiticity of an odd total axis count across the two
// velocity operators (alpha, beta).
func Symmetrize2D(mu []complex128, n0, n1, numAxesAlpha, numAxesBeta int) {
	factor := velocitySignFactor(numAxesAlpha + numAxesBeta)
	if n0 != n1 {
		// mu^dagger is only square-index-compatible when N0 == N1; callers
		// requesting symmetrization on a rectangular array have made a
		// configuration error.
		panic("moment: Symmetrize2D requires N0 == N1")
	}
	out := make([]complex128, len(mu))
	for n := 0; n < n0; n++ {
		for m := 0; m < n1; m++ {
			a := mu[n+n0*m]
			b := mu[m+n0*n]
			out[n+n0*m] = (a + factor*complexConj(b)) / 2
		}
	}
	copy(mu, out)
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

// Symmetrize3D applies the permutation-averaging rules of §4.6 to a 3D
// moment array mu[n + n0*m + n0*n1*p], given the axis lists of the three
// velocity operators (alpha, beta, gamma) in trace order. When all three
// axis lists denote the same physical axis set, the six cyclic/anticyclic
// permutations are averaged; when exactly two coincide, the matching
// two-term symmetrization is used; when all three differ, mu is left
// as-is.
func Symmetrize3D(mu []complex128, n0, n1, n2 int, alpha, beta, gamma []int) {
	sameAB := axesEqual(alpha, beta)
	sameBC := axesEqual(beta, gamma)
	sameAC := axesEqual(alpha, gamma)

	idx := func(n, m, p int) int { return n + n0*m + n0*n1*p }

	switch {
	case sameAB && sameBC:
		// All three axes equal: average the three cyclic permutations
		// (n,m,p)->(m,p,n)->(p,n,m) directly, and the three anticyclic
		// (transposed) permutations conjugated and factor-weighted.
		if n0 != n1 || n1 != n2 {
			panic("moment: Symmetrize3D requires N0 == N1 == N2 for the equal-axis case")
		}
		factor := velocitySignFactor(len(alpha) + len(beta) + len(gamma))
		out := make([]complex128, len(mu))
		for n := 0; n < n0; n++ {
			for m := 0; m < n1; m++ {
				for p := 0; p < n2; p++ {
					direct := mu[idx(n, m, p)] + mu[idx(m, p, n)] + mu[idx(p, n, m)]
					anti := complexConj(mu[idx(p, m, n)]) + complexConj(mu[idx(n, p, m)]) + complexConj(mu[idx(m, n, p)])
					out[idx(n, m, p)] = (direct + factor*anti) / 6
				}
			}
		}
		copy(mu, out)
	case sameAB:
		if n0 != n1 {
			panic("moment: Symmetrize3D requires N0 == N1 when alpha == beta")
		}
		symmetrizeTwoEqual(mu, n0, n1, n2, idx, len(alpha)+len(beta), len(gamma), swapNM)
	case sameBC:
		if n1 != n2 {
			panic("moment: Symmetrize3D requires N1 == N2 when beta == gamma")
		}
		symmetrizeTwoEqual(mu, n0, n1, n2, idx, len(beta)+len(gamma), len(alpha), swapMP)
	case sameAC:
		if n0 != n2 {
			panic("moment: Symmetrize3D requires N0 == N2 when alpha == gamma")
		}
		symmetrizeTwoEqual(mu, n0, n1, n2, idx, len(alpha)+len(gamma), len(beta), swapNP)
	default:
		// all distinct: no symmetrization
	}
}

func axesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type swapFunc func(n, m, p int) (int, int, int)

func swapNM(n, m, p int) (int, int, int) { return m, n, p }
func swapMP(n, m, p int) (int, int, int) { return n, p, m }
func swapNP(n, m, p int) (int, int, int) { return p, m, n }

// symmetrizeTwoEqual averages mu with its swap-conjugate along the pair of
// equal-axis indices identified by swap, weighted by the anti-Hermiticity
// factor of the two equal-axis velocity operators combined.
func symmetrizeTwoEqual(mu []complex128, n0, n1, n2 int, idx func(n, m, p int) int, pairAxes, _ int, swap swapFunc) {
	factor := velocitySignFactor(pairAxes)
	out := make([]complex128, len(mu))
	for n := 0; n < n0; n++ {
		for m := 0; m < n1; m++ {
			for p := 0; p < n2; p++ {
				sn, sm, sp := swap(n, m, p)
				out[idx(n, m, p)] = (mu[idx(n, m, p)] + factor*complexConj(mu[idx(sn, sm, sp)])) / 2
			}
		}
	}
	copy(mu, out)
}
