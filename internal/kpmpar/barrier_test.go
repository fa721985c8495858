// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kpmpar

import (
	"sync/atomic"
	"testing"
)

func TestBarrierReleasesAllAndResets(t *testing.T) {
	const n = 8
	const rounds = 50
	b := NewBarrier(n)
	var counter int64

	team := Team{N: n}
	team.Run(func(id int) {
		for r := 0; r < rounds; r++ {
			atomic.AddInt64(&counter, 1)
			b.Wait()
			// Every goroutine must observe the full count from this
			// round before any goroutine starts the next one.
			if got := atomic.LoadInt64(&counter); got != int64(n*(r+1)) {
				t.Errorf("round %d: counter = %d, want %d", r, got, n*(r+1))
			}
			b.Wait()
		}
	})
}

func TestTeamRunCallsEveryID(t *testing.T) {
	const n = 5
	seen := make([]int32, n)
	Team{N: n}.Run(func(id int) {
		atomic.AddInt32(&seen[id], 1)
	})
	for id, c := range seen {
		if c != 1 {
			t.Errorf("thread %d ran %d times, want 1", id, c)
		}
	}
}
