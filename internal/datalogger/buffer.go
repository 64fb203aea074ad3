// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"sync/atomic"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/valuecache"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

// Stats is a point-in-time snapshot of buffer decode counters.
type Stats struct {
	Decoded uint64
	Dropped uint64
}

// Buffer is the shared tag_id -> (ts, value) map spec §4.8 describes,
// filled by consuming logger_q. It is backed by the same map/lock
// discipline as internal/valuecache rather than a bespoke type, since the
// two structures are identical in shape.
type Buffer struct {
	cache *valuecache.Cache

	decoded atomic.Uint64
	dropped atomic.Uint64

	done chan struct{}
}

func NewBuffer() *Buffer {
	return &Buffer{cache: valuecache.New(), done: make(chan struct{})}
}

// Consume drains queue until Stop is called or the queue is closed. Run in
// its own goroutine by the Manager.
func (b *Buffer) Consume(queue <-chan valuequeue.RawFrame) {
	modbuslog.Infof("datalogger: buffer consumer started")
	defer modbuslog.Infof("datalogger: buffer consumer stopped")
	for {
		select {
		case f, ok := <-queue:
			if !ok {
				return
			}
			b.ingest(f)
		case <-b.done:
			return
		}
	}
}

// Stop ends Consume.
func (b *Buffer) Stop() {
	close(b.done)
}

func (b *Buffer) ingest(f valuequeue.RawFrame) {
	value, ok := decodeFrame(f)
	if !ok {
		b.dropped.Add(1)
		return
	}
	b.cache.Set(f.TagID, f.Timestamp, value)
	b.decoded.Add(1)
}

// GetMany returns whatever of the requested tag ids have at least one
// sample, skipping the rest (spec §4.8: "skipping tags without any samples
// yet").
func (b *Buffer) GetMany(tagIDs []int64) map[int64]valuecache.Entry {
	return b.cache.GetMany(tagIDs)
}

func (b *Buffer) Stats() Stats {
	return Stats{Decoded: b.decoded.Load(), Dropped: b.dropped.Load()}
}
