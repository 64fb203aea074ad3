// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"context"
	"sync"
	"time"

	"github.com/modbusd/modbusd/internal/poller"
	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

// Manager owns the shared Buffer and one LoggerTask per enabled logger
// definition, giving the Supervisor a single start/stop seam (spec §4.12).
type Manager struct {
	buffer *Buffer
	store  Store

	mu    sync.Mutex
	tasks map[int64]context.CancelFunc
	wg    sync.WaitGroup
}

func NewManager(store Store) *Manager {
	return &Manager{buffer: NewBuffer(), store: store, tasks: make(map[int64]context.CancelFunc)}
}

// Buffer exposes the shared tag buffer, e.g. for diagnostics.
func (m *Manager) Buffer() *Buffer { return m.buffer }

// Start launches the buffer consumer and one independently-ticking task
// per enabled logger definition. All tasks share the same barrier-free
// start_epoch so their cadences, though independent, begin from the same
// instant (spec §4.4's start_epoch computation, reused here without the
// cross-device rendezvous barrier pollers need).
func (m *Manager) Start(ctx context.Context, queue <-chan valuequeue.RawFrame, loggers []*repository.DataLogger, tagIDsFor func(loggerID int64) []int64) {
	go m.buffer.Consume(queue)

	startEpoch := poller.StartEpoch(time.Now())
	for _, def := range loggers {
		if !def.Enabled {
			continue
		}
		task := NewLoggerTask(def, tagIDsFor(def.ID), m.buffer, m.store)

		taskCtx, cancel := context.WithCancel(ctx)
		m.mu.Lock()
		m.tasks[def.ID] = cancel
		m.mu.Unlock()

		m.wg.Add(1)
		go func(t *LoggerTask, c context.Context) {
			defer m.wg.Done()
			t.Run(c, startEpoch)
		}(task, taskCtx)
	}
}

// Stop cancels every logger task and the buffer consumer, then waits for
// all task goroutines to return.
func (m *Manager) Stop() {
	m.buffer.Stop()
	m.mu.Lock()
	for _, cancel := range m.tasks {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
