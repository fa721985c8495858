// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lattice describes the integer geometry of a regular D-dimensional
// tight-binding lattice decomposed into per-thread subdomains with ghost
// halos, and the Peierls vector-potential matrix used to phase hoppings in
// a uniform magnetic field.
package lattice

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaxDim is the largest supported lattice dimension.
const MaxDim = 3

// Boundary selects the wrap-around behavior of a lattice axis.
type Boundary int

const (
	// Periodic wraps the axis: the last thread's right neighbor is the
	// first thread along that axis.
	Periodic Boundary = iota
	// Open truncates the axis: threads at the edge have no neighbor.
	Open
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Open:
		return "open"
	default:
		return fmt.Sprintf("Boundary(%d)", int(b))
	}
}

// Lattice holds the static geometry shared read-only by every worker thread
// for the lifetime of a job.
type Lattice struct {
	Dim      int          // number of active axes, 1..MaxDim
	Global   [MaxDim]int  // L_t: global extent per axis
	Threads  [MaxDim]int  // T: thread grid extent per axis
	Ghost    int          // N_g: ghost width on each face, >=1
	Stride   int          // tile side, a power of 2
	Orbitals int          // O: orbitals per site
	Bound    [MaxDim]Boundary

	// A is the D×D vector-potential matrix used to compute Peierls phases.
	// Nil means no magnetic field (required when the scalar type is real).
	A *mat.Dense
}

// New validates and constructs a Lattice. global and threads must have Dim
// meaningful leading entries; trailing entries beyond Dim are ignored.
func New(dim int, global, threads [MaxDim]int, ghost, stride, orbitals int, bound [MaxDim]Boundary, a *mat.Dense) (*Lattice, error) {
	if dim < 1 || dim > MaxDim {
		return nil, fmt.Errorf("lattice: dimension %d outside 1..%d", dim, MaxDim)
	}
	if ghost < 1 {
		return nil, errors.New("lattice: ghost width must be >= 1")
	}
	if stride <= 0 || stride&(stride-1) != 0 {
		return nil, fmt.Errorf("lattice: stride %d is not a power of 2", stride)
	}
	if orbitals < 1 {
		return nil, errors.New("lattice: orbital count must be >= 1")
	}
	for d := 0; d < dim; d++ {
		if threads[d] < 1 || global[d] < 1 {
			return nil, fmt.Errorf("lattice: axis %d has non-positive extent", d)
		}
		if global[d]%threads[d] != 0 {
			return nil, fmt.Errorf("lattice: axis %d global extent %d not divisible by thread grid %d", d, global[d], threads[d])
		}
		perThread := global[d] / threads[d]
		if perThread%stride != 0 {
			return nil, fmt.Errorf("lattice: axis %d per-thread extent %d not divisible by stride %d", d, perThread, stride)
		}
	}
	if a != nil {
		r, c := a.Dims()
		if r != dim || c != dim {
			return nil, fmt.Errorf("lattice: vector potential must be %d×%d, got %d×%d", dim, dim, r, c)
		}
	}
	l := &Lattice{
		Dim:      dim,
		Global:   global,
		Threads:  threads,
		Ghost:    ghost,
		Stride:   stride,
		Orbitals: orbitals,
		Bound:    bound,
		A:        a,
	}
	return l, nil
}

// LocalExtent returns L_d[axis]: the per-thread extent including ghosts.
func (l *Lattice) LocalExtent(axis int) int {
	return l.Global[axis]/l.Threads[axis] + 2*l.Ghost
}

// BulkExtent returns the per-thread extent excluding ghosts.
func (l *Lattice) BulkExtent(axis int) int {
	return l.Global[axis] / l.Threads[axis]
}

// ThreadCount returns the total number of worker threads, the product of
// the thread grid extents.
func (l *Lattice) ThreadCount() int {
	n := 1
	for d := 0; d < l.Dim; d++ {
		n *= l.Threads[d]
	}
	return n
}

// Sites returns the number of site-orbital amplitudes (N_d) owned by one
// thread's local array, bulk and ghost combined.
func (l *Lattice) Sites() int {
	n := l.Orbitals
	for d := 0; d < l.Dim; d++ {
		n *= l.LocalExtent(d)
	}
	return n
}

// BulkSites returns the number of bulk (non-ghost) site-orbital amplitudes
// owned by one thread.
func (l *Lattice) BulkSites() int {
	n := l.Orbitals
	for d := 0; d < l.Dim; d++ {
		n *= l.BulkExtent(d)
	}
	return n
}

// TilesPerAxis returns the number of STRIDE-wide tiles along axis in the
// bulk region.
func (l *Lattice) TilesPerAxis(axis int) int {
	return l.BulkExtent(axis) / l.Stride
}

// SiteIndex packs local coordinates (each including the ghost offset) and
// an orbital into a single row-major SiteIndex, with orbital as the slowest
// (most significant) axis.
func (l *Lattice) SiteIndex(local [MaxDim]int, orb int) int {
	idx := orb
	for d := 0; d < l.Dim; d++ {
		idx = idx*l.LocalExtent(d) + local[d]
	}
	return idx
}

// Coord decodes a SiteIndex back into local coordinates and an orbital.
func (l *Lattice) Coord(site int) (local [MaxDim]int, orb int) {
	rest := site
	for d := l.Dim - 1; d >= 0; d-- {
		ext := l.LocalExtent(d)
		local[d] = rest % ext
		rest /= ext
	}
	return local, rest
}

// LocalToGlobal converts a thread-local coordinate (including the ghost
// offset) owned by the thread at threadCoord into a global lattice
// coordinate. The result is not wrapped to [0, Global[d]); callers that
// need periodic wrap-around should reduce modulo Global[d] themselves.
func (l *Lattice) LocalToGlobal(threadCoord [MaxDim]int, local [MaxDim]int) [MaxDim]int {
	var g [MaxDim]int
	for d := 0; d < l.Dim; d++ {
		g[d] = threadCoord[d]*l.BulkExtent(d) + local[d] - l.Ghost
	}
	return g
}

// GlobalToLocal is the inverse of LocalToGlobal for the thread owning
// threadCoord.
func (l *Lattice) GlobalToLocal(threadCoord [MaxDim]int, global [MaxDim]int) [MaxDim]int {
	var loc [MaxDim]int
	for d := 0; d < l.Dim; d++ {
		loc[d] = global[d] - threadCoord[d]*l.BulkExtent(d) + l.Ghost
	}
	return loc
}

// BulkIndex packs a local coordinate's bulk (ghost-excluded) position into a
// row-major index over BulkExtent, used to look up per-site disorder tables
// that are sized to one thread's bulk region rather than its full local
// array. local must lie within the bulk (Ghost <= local[d] < Ghost+BulkExtent(d)).
func (l *Lattice) BulkIndex(local [MaxDim]int) int {
	idx := 0
	for d := 0; d < l.Dim; d++ {
		idx = idx*l.BulkExtent(d) + (local[d] - l.Ghost)
	}
	return idx
}

// ThreadCoord decodes a flat thread id into per-axis thread-grid
// coordinates, row-major with axis 0 slowest (matching ThreadIndex).
func (l *Lattice) ThreadCoord(threadID int) [MaxDim]int {
	var tc [MaxDim]int
	rest := threadID
	for d := l.Dim - 1; d >= 0; d-- {
		tc[d] = rest % l.Threads[d]
		rest /= l.Threads[d]
	}
	return tc
}

// ThreadIndex is the inverse of ThreadCoord.
func (l *Lattice) ThreadIndex(tc [MaxDim]int) int {
	idx := 0
	for d := 0; d < l.Dim; d++ {
		idx = idx*l.Threads[d] + tc[d]
	}
	return idx
}

// Neighbor returns the thread id of the neighbor across axis d on the given
// side (0 = toward lower coordinate, 1 = toward higher), or -1 if the
// boundary is Open and tc is at that edge.
func (l *Lattice) Neighbor(tc [MaxDim]int, d, side int) int {
	nc := tc
	if side == 0 {
		nc[d]--
	} else {
		nc[d]++
	}
	if nc[d] < 0 || nc[d] >= l.Threads[d] {
		if l.Bound[d] == Open {
			return -1
		}
		nc[d] = (nc[d] + l.Threads[d]) % l.Threads[d]
	}
	return l.ThreadIndex(nc)
}
