// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"context"
	"time"
)

// maxCatchupTicks is spec §4.8's "at most three missed cycles are
// tolerated for catch-up; further lateness is discarded".
const maxCatchupTicks = 3

// RunCatchupTicks drives the anti-drift loop of spec §4.4 with a logger's
// bounded catch-up allowance instead of internal/poller.RunTicks's
// unconditional skip-all: a poller cycle reads live register state, so a
// missed tick has nothing left to recover, but a logger tick reads off a
// standing buffer (internal/datalogger.Buffer), so replaying a few missed
// ticks still produces meaningful rows. Beyond the allowance, remaining
// backlog is discarded exactly like the poller's anti-drift skip.
func RunCatchupTicks(ctx context.Context, startEpoch time.Time, interval time.Duration, cycle func(scheduledFor time.Time)) {
	nextRun := startEpoch
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			cycle(nextRun)
			nextRun = nextRun.Add(interval)

			caughtUp := 0
			for !time.Now().Before(nextRun) && caughtUp < maxCatchupTicks {
				cycle(nextRun)
				nextRun = nextRun.Add(interval)
				caughtUp++
			}
			for !time.Now().Before(nextRun) {
				nextRun = nextRun.Add(interval)
			}
			timer.Reset(time.Until(nextRun))
		}
	}
}
