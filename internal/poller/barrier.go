// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poller

import (
	"sync"
	"time"
)

// Barrier synchronizes a fixed number of pollers on a common start epoch
// (spec §4.4). Wait blocks until every participant has called it, or until
// timeout elapses; a timed-out participant proceeds independently, and the
// caller is responsible for logging that as a broken barrier.
type Barrier struct {
	mu      sync.Mutex
	n       int
	arrived int
	done    chan struct{}
}

// NewBarrier creates a barrier for n participants. n<=1 returns a barrier
// that never blocks, since a single poller has nothing to rendezvous with.
func NewBarrier(n int) *Barrier {
	if n < 1 {
		n = 1
	}
	return &Barrier{n: n, done: make(chan struct{})}
}

// Wait blocks until all participants have arrived or timeout elapses.
// Returns true if the barrier was reached by every participant, false if
// this call timed out waiting.
func (b *Barrier) Wait(timeout time.Duration) bool {
	b.mu.Lock()
	b.arrived++
	last := b.arrived == b.n
	ch := b.done
	if last {
		close(ch)
	}
	b.mu.Unlock()

	if last {
		return true
	}

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// StartEpoch computes spec §4.4's common rendezvous instant:
// ceil(monotonic_now()) + 1s, truncated to the nearest second then bumped
// forward one more whole second. The result depends on now, so the
// supervisor evaluates it once and hands the same instant to every poller.
func StartEpoch(now time.Time) time.Time {
	ceil := now.Truncate(time.Second)
	if ceil.Before(now) {
		ceil = ceil.Add(time.Second)
	}
	return ceil.Add(time.Second)
}
