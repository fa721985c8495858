// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moment

import (
	"golang.org/x/exp/rand"

	"github.com/latticekpm/kpmcore/halo"
	"github.com/latticekpm/kpmcore/hamiltonian"
	"github.com/latticekpm/kpmcore/kpmvec"
	"github.com/latticekpm/kpmcore/lattice"
	"github.com/latticekpm/kpmcore/recursion"
)

// Config1D holds the per-quantity parameters of a 1D moment calculation:
// mu[n] = <0| v^alpha T_n(H) |0> for n = 0..NumMoments-1.
type Config1D struct {
	NumMoments  int
	NumRandoms  int
	NumDisorder int
	Axes        []int // velocity axes, nil for the identity (no velocity prefix)
}

// Array1D is the accumulated moment array together with the running sample
// count backing it.
type Array1D struct {
	Mu []ComplexMean
}

func newArray1D(n int) Array1D {
	return Array1D{Mu: make([]ComplexMean, n)}
}

// Values returns the current point estimate of every moment.
func (a Array1D) Values() []complex128 {
	out := make([]complex128, len(a.Mu))
	for i, m := range a.Mu {
		out[i] = m.Value()
	}
	return out
}

// Combine merges another thread's Array1D into a, sample-for-sample.
func (a Array1D) Combine(other Array1D) {
	for i := range a.Mu {
		a.Mu[i].Combine(other.Mu[i])
	}
}

// Run1D drives the 1D accumulation for one worker thread across every
// disorder realization and random vector assigned to it by the caller
// (rng is this thread's private, independently seeded source, per §5).
// Run1D never calls ham.GenerateDisorder itself: onDisorder (if non-nil) is
// invoked once at the start of each realization, before its first random
// vector, and is where the caller redraws the disorder under its own
// barrier discipline (cmd/kpmrun's disorderHook does exactly that).
func Run1D(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, cfg Config1D, ex *halo.Exchanger, threadID int, rng *rand.Rand, onDisorder func()) (Array1D, error) {
	arr := newArray1D(cfg.NumMoments)

	var vt *hamiltonian.VelocityTable
	if len(cfg.Axes) > 0 {
		var err error
		vt, err = ham.BuildVelocity(cfg.Axes)
		if err != nil {
			return Array1D{}, err
		}
	}

	ket, err := kpmvec.New(3, lat.Sites())
	if err != nil {
		return Array1D{}, err
	}
	bra, err := kpmvec.New(1, lat.Sites())
	if err != nil {
		return Array1D{}, err
	}

	vacancySites := ham.Vacancies.WithDefectsGlobal

	for d := 0; d < cfg.NumDisorder; d++ {
		if onDisorder != nil {
			onDisorder()
		}
		for r := 0; r < cfg.NumRandoms; r++ {
			ket.InitRandom(lat, rng, vacancySites)

			// |0) = the random ket, unchanged: the recursion below walks
			// T_n(H)|0) regardless of whether a velocity prefix is asked
			// for. The bra is v^alpha|0) (or plain |0) with no prefix);
			// the anti-Hermiticity sign correction for an odd velocity
			// count is applied once, in Symmetrize1D, not here.
			if vt != nil {
				recursion.Velocity(lat, ham, vt, ket.Slot(0), bra.Slot(0), ex, threadID)
			} else {
				copy(bra.Slot(0), ket.Slot(0))
			}
			bra.EmptyGhosts(lat)

			accumulate1D(lat, ham, ket, bra.Slot(0), arr.Mu, cfg.NumMoments, ex, threadID)
		}
	}
	return arr, nil
}

// accumulate1D runs the Chebyshev recursion started from ket's current
// slot, folding <bra|T_n(H)|0) into mu[n] for n = 0..len(mu)-1.
func accumulate1D(lat *lattice.Lattice, ham *hamiltonian.Hamiltonian, ket *kpmvec.Vector, bra []complex128, mu []ComplexMean, n int, ex *halo.Exchanger, threadID int) {
	if n == 0 {
		return
	}
	reportSlot(lat, bra, ket.Slot(0), mu, 0)
	if n == 1 {
		return
	}

	recursion.Multiply(lat, ham, ket, 0, ex, threadID) // |1) = H|0)
	reportSlot(lat, bra, ket.Slot(0), mu, 1)

	for step := 2; step < n; step++ {
		recursion.Multiply(lat, ham, ket, 1, ex, threadID)
		reportSlot(lat, bra, ket.Slot(0), mu, step)
	}
}

func reportSlot(lat *lattice.Lattice, bra, ket []complex128, mu []ComplexMean, n int) {
	tmp := append([]complex128(nil), ket...)
	zeroGhosts(lat, tmp)
	mu[n].Accum(bulkDot(bra, tmp))
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
