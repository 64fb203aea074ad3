// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dbwriter

import (
	"sync/atomic"
	"time"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
)

const (
	maxBatch = 200
	maxWait  = 500 * time.Millisecond
)

// Writer drains a queue of decoded tag values into the store, flushing on
// whichever of size or time comes first, and performs one final flush on
// Stop so nothing buffered is lost on shutdown.
type Writer struct {
	queue chan repository.TagValue
	store Store

	written atomic.Uint64
	dropped atomic.Uint64
	flushes atomic.Uint64
	failed  atomic.Uint64

	onFlush func(n int, dur time.Duration)

	done chan struct{}
}

// New creates a Writer with the given queue capacity. A non-positive
// capacity defaults to 2000, comfortably ahead of the 200-item flush
// threshold so a momentary store stall does not immediately drop values.
func New(store Store, queueCap int) *Writer {
	if queueCap <= 0 {
		queueCap = 2000
	}
	return &Writer{
		queue: make(chan repository.TagValue, queueCap),
		store: store,
		done:  make(chan struct{}),
	}
}

// Push enqueues one tag value without blocking. On overflow the value is
// dropped and the drop counter incremented; a producer (the parser
// consumer loop) must never stall on a slow writer.
func (w *Writer) Push(v repository.TagValue) bool {
	select {
	case w.queue <- v:
		return true
	default:
		w.dropped.Add(1)
		modbuslog.Debugf("dbwriter: queue full, dropping value for tag %d", v.TagID)
		return false
	}
}

// Run drains the queue until Stop is called, flushing on a count-or-time
// basis, then performs one final flush of whatever remains buffered.
func (w *Writer) Run() {
	batch := make([]repository.TagValue, 0, maxBatch)
	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	for {
		select {
		case v, ok := <-w.queue:
			if !ok {
				w.flush(batch)
				return
			}
			batch = append(batch, v)
			if len(batch) >= maxBatch {
				w.flush(batch)
				batch = batch[:0]
				resetTimer(timer, maxWait)
			}
		case <-timer.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
			timer.Reset(maxWait)
		case <-w.done:
			w.drainRemaining(&batch)
			w.flush(batch)
			return
		}
	}
}

func (w *Writer) drainRemaining(batch *[]repository.TagValue) {
	for {
		select {
		case v := <-w.queue:
			*batch = append(*batch, v)
		default:
			return
		}
	}
}

// Stop signals Run to flush whatever is buffered and return.
func (w *Writer) Stop() {
	close(w.done)
}

// SetFlushObserver registers a callback invoked after every flush attempt
// with the batch size and wall time taken, successful or not. Used by
// internal/metrics to feed its batch-size and flush-latency histograms;
// nil (the default) means no observation happens.
func (w *Writer) SetFlushObserver(f func(n int, dur time.Duration)) {
	w.onFlush = f
}

func (w *Writer) flush(batch []repository.TagValue) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()

	b, err := w.store.BeginValueBatch()
	if err != nil {
		w.failed.Add(uint64(len(batch)))
		modbuslog.Warnf("dbwriter: could not begin batch: %v", err)
		if w.onFlush != nil {
			w.onFlush(len(batch), time.Since(start))
		}
		return
	}

	ok := 0
	for _, v := range batch {
		if err := b.Add(v); err != nil {
			modbuslog.Warnf("dbwriter: add failed for tag %d: %v", v.TagID, err)
			continue
		}
		ok++
	}

	if err := b.Commit(); err != nil {
		modbuslog.Warnf("dbwriter: commit failed for %d values: %v", len(batch), err)
		b.Rollback()
		w.failed.Add(uint64(len(batch)))
		if w.onFlush != nil {
			w.onFlush(len(batch), time.Since(start))
		}
		return
	}

	w.written.Add(uint64(ok))
	w.flushes.Add(1)
	if w.onFlush != nil {
		w.onFlush(len(batch), time.Since(start))
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// Stats is a point-in-time snapshot of writer counters.
type Stats struct {
	Written uint64
	Dropped uint64
	Failed  uint64
	Flushes uint64
}

func (w *Writer) Stats() Stats {
	return Stats{
		Written: w.written.Load(),
		Dropped: w.dropped.Load(),
		Failed:  w.failed.Load(),
		Flushes: w.flushes.Load(),
	}
}
