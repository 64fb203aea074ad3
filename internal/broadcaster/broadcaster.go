// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

const (
	defaultQueueSize = 256
	defaultMaxBatch  = 20
	defaultMaxWait   = 100 * time.Millisecond
)

// Broadcaster drains a bounded queue of outgoing device updates in
// micro-batches, merges same-device updates within a batch, and fans each
// merged update out to its device room and to every intersecting
// subdashboard room (spec §4.10).
type Broadcaster struct {
	queue chan Update
	sink  Sink
	subs  *subdashboardCache

	maxBatch int
	maxWait  time.Duration

	dropped atomic.Uint64

	done chan struct{}
}

// New builds a Broadcaster. queueSize <= 0 uses the default (256); maxBatch
// <= 0 and maxWait <= 0 fall back to the spec defaults of 20 and 100ms.
// subs may be nil, in which case no subdashboard fan-out happens (device
// rooms still receive every update).
func New(sink Sink, subs SubdashboardSource, subdashTTL time.Duration, queueSize, maxBatch int, maxWait time.Duration) *Broadcaster {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	var cache *subdashboardCache
	if subs != nil {
		cache = newSubdashboardCache(subs, subdashTTL)
	}
	return &Broadcaster{
		queue:    make(chan Update, queueSize),
		sink:     sink,
		subs:     cache,
		maxBatch: maxBatch,
		maxWait:  maxWait,
		done:     make(chan struct{}),
	}
}

// Push enqueues an update. If the queue is full the update is dropped and
// Dropped() is incremented; producers must never block (spec §4.10
// overflow policy).
func (b *Broadcaster) Push(u Update) bool {
	select {
	case b.queue <- u:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Dropped reports how many updates have been dropped for a full queue.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// QueueDepth reports the current buffered length of the outgoing queue,
// for internal/metrics' broadcast queue-depth gauge.
func (b *Broadcaster) QueueDepth() int {
	return len(b.queue)
}

// Run drains the queue until Stop is called, grouping updates into
// micro-batches bounded by count and time, merging same-device updates
// within a batch, and publishing each merged result. Run blocks; callers
// invoke it in its own goroutine.
func (b *Broadcaster) Run() {
	modbuslog.Infof("broadcaster: started")
	defer modbuslog.Infof("broadcaster: stopped")

	batch := make([]Update, 0, b.maxBatch)
	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()

	for {
		select {
		case u, ok := <-b.queue:
			if !ok {
				b.flush(batch)
				return
			}
			if len(batch) == 0 {
				resetTimer(timer, b.maxWait)
			}
			batch = append(batch, u)
			if len(batch) >= b.maxBatch {
				b.flush(batch)
				batch = batch[:0]
				resetTimer(timer, b.maxWait)
			}
		case <-timer.C:
			if len(batch) > 0 {
				b.flush(batch)
				batch = batch[:0]
			}
			timer.Reset(b.maxWait)
		case <-b.done:
			b.flush(batch)
			return
		}
	}
}

// Stop ends Run after its current batch is flushed.
func (b *Broadcaster) Stop() {
	close(b.done)
}

func (b *Broadcaster) flush(batch []Update) {
	if len(batch) == 0 {
		return
	}

	merged := make(map[int64]Update, len(batch))
	order := make([]int64, 0, len(batch))
	for _, u := range batch {
		if existing, ok := merged[u.DeviceID]; ok {
			merged[u.DeviceID] = merge(existing, u)
			continue
		}
		merged[u.DeviceID] = u
		order = append(order, u.DeviceID)
	}

	for _, deviceID := range order {
		b.publish(merged[deviceID])
	}
}

func (b *Broadcaster) publish(u Update) {
	payload, err := json.Marshal(u)
	if err != nil {
		modbuslog.Warnf("broadcaster: could not marshal update for device %d: %v", u.DeviceID, err)
		return
	}

	room := fmt.Sprintf("dashboard_device_%d", u.DeviceID)
	if err := b.sink.PublishRoom(room, payload); err != nil {
		modbuslog.Warnf("broadcaster: publish to %q failed: %v", room, err)
	}

	if b.subs == nil {
		return
	}
	for _, set := range b.subs.sets() {
		filtered, ok := filterUpdate(u, set.tags)
		if !ok {
			continue
		}
		subPayload, err := json.Marshal(filtered)
		if err != nil {
			modbuslog.Warnf("broadcaster: could not marshal filtered update for subdashboard %d: %v", set.def.ID, err)
			continue
		}
		subRoom := fmt.Sprintf("subdashboard_%d", set.def.ID)
		if err := b.sink.PublishRoom(subRoom, subPayload); err != nil {
			modbuslog.Warnf("broadcaster: publish to %q failed: %v", subRoom, err)
		}
	}
}

// PublishAlarm sends an alarm notification immediately, outside the
// micro-batch merge: alarm transitions are comparatively rare and must
// not wait behind a 100ms device-update window.
func (b *Broadcaster) PublishAlarm(a AlarmPayload) {
	payload, err := json.Marshal(a)
	if err != nil {
		modbuslog.Warnf("broadcaster: could not marshal alarm event: %v", err)
		return
	}
	if err := b.sink.PublishRoom("alarm_event", payload); err != nil {
		modbuslog.Warnf("broadcaster: publish alarm event failed: %v", err)
	}
}

// RefreshSubdashboards forces the subdashboard tag-set cache to reload on
// its next use (spec §4.10's "or on demand" refresh trigger).
func (b *Broadcaster) RefreshSubdashboards() {
	if b.subs != nil {
		b.subs.invalidate()
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
