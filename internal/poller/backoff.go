// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poller

import "time"

// connState is a poller's private connection lifecycle state (spec §4.5).
// It is distinct from repository.DeviceStatus, which is the status value
// published for operator visibility; a poller derives its DeviceStatus from
// this state after every transition.
type connState int

const (
	stateDisconnected connState = iota
	stateConnected
)

const (
	shortRetryDelay   = 1 * time.Second
	earlyRetryDelay   = 2 * time.Second
	lateRetryDelay    = 5 * time.Second
	backoffCap        = 30 * time.Second
	backoffMultiplier = 1.5
	probeInterval     = 30 * time.Second
)

// backoff tracks reconnect attempts for one poller and computes the delay
// before the next attempt per spec §4.5: attempts 1-3 retry at 2s, 4-10 at
// 5s, beyond 10 an exponential 1.5x ramp capped at 30s. ShortCircuit resets
// to the 1s delay used after a read error mid-cycle, without resetting the
// attempt counter that governs the slower schedule.
type backoff struct {
	attempts int
	current  time.Duration
	short    bool
}

func newBackoff() *backoff {
	return &backoff{}
}

// NextDelay returns the delay to wait before the next connect attempt and
// advances internal state as if that attempt is now in flight.
func (b *backoff) NextDelay() time.Duration {
	if b.short {
		b.short = false
		return shortRetryDelay
	}

	b.attempts++
	switch {
	case b.attempts <= 3:
		b.current = earlyRetryDelay
	case b.attempts <= 10:
		b.current = lateRetryDelay
	default:
		if b.current < lateRetryDelay {
			b.current = lateRetryDelay
		}
		next := time.Duration(float64(b.current) * backoffMultiplier)
		if next > backoffCap {
			next = backoffCap
		}
		b.current = next
	}
	return b.current
}

// ShortCircuit schedules the next attempt at the short 1s delay, per spec
// §4.5's "On any read error ... schedule retry in 1s (short-circuits the
// backoff)". It does not reset the attempt counter: a device that keeps
// failing mid-cycle still eventually lands on the slow schedule.
func (b *backoff) ShortCircuit() {
	b.short = true
}

// Reset clears all state after a successful connect.
func (b *backoff) Reset() {
	b.attempts = 0
	b.current = 0
	b.short = false
}
