// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCatchupTicksRunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now().Add(5 * time.Millisecond)
	go RunCatchupTicks(ctx, start, 20*time.Millisecond, func(time.Time) { calls.Add(1) })

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestRunCatchupTicksRecoversFromAStallWithoutUnboundedBurst(t *testing.T) {
	var calls atomic.Int32
	var stalledOnce atomic.Bool

	cycle := func(time.Time) {
		calls.Add(1)
		if stalledOnce.CompareAndSwap(false, true) {
			time.Sleep(150 * time.Millisecond)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now().Add(5 * time.Millisecond)
	go RunCatchupTicks(ctx, start, 20*time.Millisecond, cycle)

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)

	// The ~150ms stall is roughly 7 missed 20ms boundaries; the catch-up
	// allowance caps replay at 3, so the total stays well short of that.
	assert.LessOrEqual(t, calls.Load(), int32(10))
}

func TestRunCatchupTicksStopsOnContextCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	start := time.Now().Add(5 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		RunCatchupTicks(ctx, start, 10*time.Millisecond, func(time.Time) { calls.Add(1) })
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCatchupTicks did not return after context cancel")
	}
}
