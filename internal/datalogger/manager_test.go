// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

func TestManagerConsumesQueueAndStopsCleanly(t *testing.T) {
	store := &fakeStore{}
	mgr := NewManager(store)

	queue := make(chan valuequeue.RawFrame, 2)
	loggers := []*repository.DataLogger{
		{ID: 1, Name: "enabled", IntervalSec: 60, Enabled: true},
		{ID: 2, Name: "disabled", IntervalSec: 60, Enabled: false},
	}
	tagIDsFor := func(loggerID int64) []int64 {
		if loggerID == 1 {
			return []int64{10}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Start(ctx, queue, loggers, tagIDsFor)

	queue <- valuequeue.RawFrame{TagID: 10, Datatype: "uint16", Raw: []uint16{5}, Scale: 1, Timestamp: time.Now()}

	require.Eventually(t, func() bool {
		return len(mgr.Buffer().GetMany([]int64{10})) == 1
	}, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Manager.Stop did not return")
	}
}
