// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/valuecache"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

const (
	defaultMaxBatch = 50
	defaultMaxWait  = 500 * time.Millisecond
)

// Parser drains a parser_q, decodes each frame, updates the latest-value
// cache, and emits one Batch per device represented in the drained group.
type Parser struct {
	queue <-chan valuequeue.RawFrame
	cache *valuecache.Cache
	emit  EmitFunc

	maxBatch int
	maxWait  time.Duration

	seqMu sync.Mutex
	seq   map[int64]uint64

	parsed  atomic.Uint64
	dropped atomic.Uint64

	done chan struct{}
}

// New builds a Parser reading from queue (normally a Distributor's
// ParserQueue), decoding into cache, and handing merged batches to emit.
// emit may be nil, useful when only the cache side-effect matters.
func New(queue <-chan valuequeue.RawFrame, cache *valuecache.Cache, emit EmitFunc) *Parser {
	return &Parser{
		queue:    queue,
		cache:    cache,
		emit:     emit,
		maxBatch: defaultMaxBatch,
		maxWait:  defaultMaxWait,
		seq:      make(map[int64]uint64),
		done:     make(chan struct{}),
	}
}

// Run drains the queue until Stop is called or the queue is closed,
// grouping frames into batches bounded by count and time (spec §4.7: up to
// 50 frames, 500ms max wait). Run blocks; callers invoke it in its own
// goroutine.
func (p *Parser) Run() {
	modbuslog.Infof("parser: started")
	defer modbuslog.Infof("parser: stopped")

	frames := make([]valuequeue.RawFrame, 0, p.maxBatch)
	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()

	for {
		select {
		case f, ok := <-p.queue:
			if !ok {
				p.flush(frames)
				return
			}
			if len(frames) == 0 {
				resetTimer(timer, p.maxWait)
			}
			frames = append(frames, f)
			if len(frames) >= p.maxBatch {
				p.flush(frames)
				frames = frames[:0]
				resetTimer(timer, p.maxWait)
			}
		case <-timer.C:
			if len(frames) > 0 {
				p.flush(frames)
				frames = frames[:0]
			}
			timer.Reset(p.maxWait)
		case <-p.done:
			frames = append(frames, drainQueue(p.queue, p.maxBatch-len(frames))...)
			p.flush(frames)
			return
		}
	}
}

// drainQueue grabs whatever is immediately available on queue, up to max
// items, without blocking. Used on Stop so a final flush captures frames
// that arrived just before shutdown instead of discarding them.
func drainQueue(queue <-chan valuequeue.RawFrame, max int) []valuequeue.RawFrame {
	if max <= 0 {
		return nil
	}
	out := make([]valuequeue.RawFrame, 0, max)
	for len(out) < max {
		select {
		case f, ok := <-queue:
			if !ok {
				return out
			}
			out = append(out, f)
		default:
			return out
		}
	}
	return out
}

// Stop ends Run after it finishes flushing whatever batch is in flight.
func (p *Parser) Stop() {
	close(p.done)
}

// Stats returns a point-in-time snapshot of parse counters.
func (p *Parser) Stats() Stats {
	return Stats{Parsed: p.parsed.Load(), Dropped: p.dropped.Load()}
}

func (p *Parser) flush(frames []valuequeue.RawFrame) {
	if len(frames) == 0 {
		return
	}

	byDevice := make(map[int64][]Tag)
	for _, f := range frames {
		value, ok := decodeFrame(f)
		if !ok {
			p.dropped.Add(1)
			continue
		}
		p.cache.Set(f.TagID, f.Timestamp, value)
		byDevice[f.DeviceID] = append(byDevice[f.DeviceID], Tag{
			ID:       f.TagID,
			Name:     f.TagName,
			Value:    value,
			Datatype: f.Datatype,
			Unit:     f.Unit,
			Ts:       f.Timestamp,
		})
	}
	p.parsed.Add(uint64(len(frames)))

	if p.emit == nil {
		return
	}
	for deviceID, tags := range byDevice {
		p.seqMu.Lock()
		p.seq[deviceID]++
		seq := p.seq[deviceID]
		p.seqMu.Unlock()
		p.emit(Batch{DeviceID: deviceID, Tags: tags, Seq: seq})
	}
}

// resetTimer drains a possibly-already-fired timer before resetting it, the
// standard precaution against a stale tick landing in the next select.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
