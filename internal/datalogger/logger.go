// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
)

// LoggerTask runs one Data Logger Definition on its own anti-drift cadence
// (spec §4.8), reading its configured tag ids from a shared Buffer on each
// tick and performing one bulk insert per tick.
type LoggerTask struct {
	def    *repository.DataLogger
	tagIDs []int64
	buffer *Buffer
	store  Store

	flushed atomic.Uint64
	skipped atomic.Uint64
}

func NewLoggerTask(def *repository.DataLogger, tagIDs []int64, buffer *Buffer, store Store) *LoggerTask {
	return &LoggerTask{def: def, tagIDs: tagIDs, buffer: buffer, store: store}
}

// Run blocks until ctx is done, ticking on the logger's own interval.
func (lt *LoggerTask) Run(ctx context.Context, startEpoch time.Time) {
	interval := time.Duration(lt.def.IntervalSec) * time.Second
	RunCatchupTicks(ctx, startEpoch, interval, lt.cycle)
}

func (lt *LoggerTask) cycle(time.Time) {
	samples := lt.buffer.GetMany(lt.tagIDs)
	if len(samples) == 0 {
		lt.skipped.Add(1)
		return
	}

	batch, err := lt.store.BeginValueBatch()
	if err != nil {
		modbuslog.Warnf("datalogger: logger %d (%s) could not begin batch: %v", lt.def.ID, lt.def.Name, err)
		return
	}

	for tagID, entry := range samples {
		if err := batch.Add(repository.TagValue{TagID: tagID, TS: entry.Timestamp, Value: entry.Value}); err != nil {
			modbuslog.Warnf("datalogger: logger %d failed adding tag %d: %v", lt.def.ID, tagID, err)
		}
	}

	if err := batch.Commit(); err != nil {
		modbuslog.Warnf("datalogger: logger %d commit failed: %v", lt.def.ID, err)
		batch.Rollback()
		return
	}
	lt.flushed.Add(uint64(len(samples)))
}

// Stats is a point-in-time snapshot of flush counters.
func (lt *LoggerTask) Stats() (flushed, skipped uint64) {
	return lt.flushed.Load(), lt.skipped.Load()
}
