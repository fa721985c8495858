// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import "testing"

func small2D(t *testing.T) *Lattice {
	t.Helper()
	l, err := New(2,
		[MaxDim]int{8, 8, 1},
		[MaxDim]int{2, 2, 1},
		2, 2, 1,
		[MaxDim]Boundary{Periodic, Periodic},
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestLocalExtent(t *testing.T) {
	l := small2D(t)
	// global 8, threads 2 -> bulk 4, + 2*ghost(2) = 8
	if got := l.LocalExtent(0); got != 8 {
		t.Errorf("LocalExtent(0) = %d, want 8", got)
	}
	if got := l.BulkExtent(0); got != 4 {
		t.Errorf("BulkExtent(0) = %d, want 4", got)
	}
}

func TestSiteIndexRoundTrip(t *testing.T) {
	l := small2D(t)
	for x0 := 0; x0 < l.LocalExtent(0); x0++ {
		for x1 := 0; x1 < l.LocalExtent(1); x1++ {
			local := [MaxDim]int{x0, x1, 0}
			idx := l.SiteIndex(local, 0)
			gotLocal, gotOrb := l.Coord(idx)
			if gotLocal != local || gotOrb != 0 {
				t.Fatalf("round trip mismatch: got (%v,%d), want (%v,0)", gotLocal, gotOrb, local)
			}
		}
	}
}

func TestLocalGlobalRoundTrip(t *testing.T) {
	l := small2D(t)
	tc := [MaxDim]int{1, 0, 0}
	local := [MaxDim]int{3, 5, 0}
	g := l.LocalToGlobal(tc, local)
	back := l.GlobalToLocal(tc, g)
	if back != local {
		t.Fatalf("LocalToGlobal/GlobalToLocal round trip: got %v, want %v", back, local)
	}
}

func TestThreadCoordRoundTrip(t *testing.T) {
	l := small2D(t)
	for id := 0; id < l.ThreadCount(); id++ {
		tc := l.ThreadCoord(id)
		if back := l.ThreadIndex(tc); back != id {
			t.Fatalf("ThreadIndex(ThreadCoord(%d)) = %d", id, back)
		}
	}
}

func TestNeighborPeriodic(t *testing.T) {
	l := small2D(t)
	tc := [MaxDim]int{0, 0, 0}
	// low neighbor on axis 0 wraps to the last thread column (1).
	n := l.Neighbor(tc, 0, 0)
	want := l.ThreadIndex([MaxDim]int{1, 0, 0})
	if n != want {
		t.Errorf("Neighbor wrap = %d, want %d", n, want)
	}
}

func TestNeighborOpen(t *testing.T) {
	l, err := New(1, [MaxDim]int{8, 1, 1}, [MaxDim]int{2, 1, 1}, 2, 2, 1,
		[MaxDim]Boundary{Open}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := l.Neighbor([MaxDim]int{0, 0, 0}, 0, 0); n != -1 {
		t.Errorf("Neighbor at open edge = %d, want -1", n)
	}
}

func TestWalkBulkCoversExactlyBulk(t *testing.T) {
	l := small2D(t)
	seen := map[[MaxDim]int]bool{}
	l.WalkBulk(func(local [MaxDim]int) {
		seen[local] = true
	})
	if len(seen) != l.BulkExtent(0)*l.BulkExtent(1) {
		t.Fatalf("WalkBulk visited %d cells, want %d", len(seen), l.BulkExtent(0)*l.BulkExtent(1))
	}
	for c := range seen {
		for d := 0; d < l.Dim; d++ {
			if c[d] < l.Ghost || c[d] >= l.LocalExtent(d)-l.Ghost {
				t.Fatalf("WalkBulk visited ghost cell %v", c)
			}
		}
	}
}

func TestWalkFaceSizeMatchesFaceSize(t *testing.T) {
	l := small2D(t)
	for d := 0; d < l.Dim; d++ {
		for side := 0; side < 2; side++ {
			count := 0
			l.WalkFace(d, side, true, func(local [MaxDim]int) { count++ })
			if count != l.FaceSize(d) {
				t.Errorf("axis %d side %d: walked %d cells, FaceSize=%d", d, side, count, l.FaceSize(d))
			}
		}
	}
}

func TestNewRejectsBadStride(t *testing.T) {
	_, err := New(1, [MaxDim]int{8, 1, 1}, [MaxDim]int{1, 1, 1}, 1, 3, 1,
		[MaxDim]Boundary{Periodic}, nil)
	if err == nil {
		t.Fatal("expected error for non-power-of-two stride")
	}
}

func TestNewRejectsBadDivisibility(t *testing.T) {
	_, err := New(1, [MaxDim]int{9, 1, 1}, [MaxDim]int{1, 1, 1}, 1, 4, 1,
		[MaxDim]Boundary{Periodic}, nil)
	if err == nil {
		t.Fatal("expected error when bulk extent is not divisible by stride")
	}
}
