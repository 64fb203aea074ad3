// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modbusd/modbusd/internal/valuequeue"
)

func TestBufferIngestDecodesAndUpdatesCache(t *testing.T) {
	b := NewBuffer()
	ts := time.Now()
	b.ingest(valuequeue.RawFrame{TagID: 1, Datatype: "uint16", Raw: []uint16{42}, Scale: 1, Timestamp: ts})

	got := b.GetMany([]int64{1, 2})
	require.Contains(t, got, int64(1))
	assert.Equal(t, float64(42), got[1].Value)
	assert.NotContains(t, got, int64(2))
	assert.Equal(t, uint64(1), b.Stats().Decoded)
}

func TestBufferIngestDropsUnknownDatatype(t *testing.T) {
	b := NewBuffer()
	b.ingest(valuequeue.RawFrame{TagID: 1, Datatype: "not-a-type", Raw: []uint16{1}, Timestamp: time.Now()})

	got := b.GetMany([]int64{1})
	assert.Empty(t, got)
	assert.Equal(t, uint64(1), b.Stats().Dropped)
}

func TestBufferGetManySkipsTagsWithoutSamples(t *testing.T) {
	b := NewBuffer()
	got := b.GetMany([]int64{99})
	assert.Empty(t, got)
}

func TestBufferConsumeStopsOnStop(t *testing.T) {
	b := NewBuffer()
	queue := make(chan valuequeue.RawFrame, 1)
	done := make(chan struct{})
	go func() {
		b.Consume(queue)
		close(done)
	}()

	b.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after Stop")
	}
}
