// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

// fakeBatch is a hand-written stand-in for *repository.ValueBatch,
// recording adds instead of hitting a real transaction.
type fakeBatch struct {
	rows       []repository.TagValue
	commitErr  error
	committed  bool
	rolledBack bool
}

func (b *fakeBatch) Add(v repository.TagValue) error {
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Commit() error {
	b.committed = true
	return b.commitErr
}

func (b *fakeBatch) Rollback() error {
	b.rolledBack = true
	return nil
}

type fakeStore struct {
	mu            sync.Mutex
	batches       []*fakeBatch
	openErr       error
	nextCommitErr error
}

func (s *fakeStore) BeginValueBatch() (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	b := &fakeBatch{commitErr: s.nextCommitErr}
	s.batches = append(s.batches, b)
	return b, nil
}

func (s *fakeStore) lastBatch() *fakeBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

func TestLoggerTaskCycleFlushesBufferedSamples(t *testing.T) {
	buf := NewBuffer()
	buf.ingest(valuequeue.RawFrame{TagID: 1, Datatype: "uint16", Raw: []uint16{7}, Scale: 1, Timestamp: time.Now()})
	buf.ingest(valuequeue.RawFrame{TagID: 2, Datatype: "uint16", Raw: []uint16{9}, Scale: 1, Timestamp: time.Now()})

	store := &fakeStore{}
	task := NewLoggerTask(&repository.DataLogger{ID: 1, Name: "trend", IntervalSec: 1, Enabled: true}, []int64{1, 2, 3}, buf, store)

	task.cycle(time.Now())

	batch := store.lastBatch()
	require.NotNil(t, batch)
	assert.Len(t, batch.rows, 2) // tag 3 has no sample yet, skipped
	assert.True(t, batch.committed)

	flushed, skipped := task.Stats()
	assert.Equal(t, uint64(2), flushed)
	assert.Equal(t, uint64(0), skipped)
}

func TestLoggerTaskCycleSkipsWhenNoSamplesBuffered(t *testing.T) {
	buf := NewBuffer()
	store := &fakeStore{}
	task := NewLoggerTask(&repository.DataLogger{ID: 2, Name: "empty", IntervalSec: 1, Enabled: true}, []int64{5}, buf, store)

	task.cycle(time.Now())

	assert.Nil(t, store.lastBatch())
	_, skipped := task.Stats()
	assert.Equal(t, uint64(1), skipped)
}

func TestLoggerTaskCycleRollsBackOnCommitError(t *testing.T) {
	buf := NewBuffer()
	buf.ingest(valuequeue.RawFrame{TagID: 1, Datatype: "uint16", Raw: []uint16{1}, Scale: 1, Timestamp: time.Now()})

	store := &fakeStore{}
	task := NewLoggerTask(&repository.DataLogger{ID: 3, Name: "flaky", IntervalSec: 1, Enabled: true}, []int64{1}, buf, store)

	task.cycle(time.Now())

	store.nextCommitErr = assertError{}
	task.cycle(time.Now())
	batch := store.lastBatch()
	assert.True(t, batch.rolledBack)

	flushed, _ := task.Stats()
	assert.Equal(t, uint64(1), flushed) // only the first, successful cycle counted
}

type assertError struct{}

func (assertError) Error() string { return "commit failed" }
