// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.SetQueueDepth("raw", 42)
	m.SetQueueDropped("raw", 7)
	m.ObservePollerCycle(1, 150*time.Millisecond)
	m.IncAlarmTransition("high_flow", "active")
	m.ObserveWriterFlush(100, 20*time.Millisecond)
	m.SetRTUBusStats("/dev/ttyUSB0", 4, 80*time.Millisecond, 2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "modbusd_queue_depth")
	assert.Contains(t, body, "modbusd_queue_dropped_total")
	assert.Contains(t, body, "modbusd_poller_cycle_latency_seconds")
	assert.Contains(t, body, "modbusd_alarm_transitions_total")
	assert.Contains(t, body, "modbusd_dbwriter_batch_size")
	assert.Contains(t, body, "modbusd_dbwriter_flush_latency_seconds")
	assert.Contains(t, body, `modbusd_rtu_bus_device_count{port="/dev/ttyUSB0"} 4`)
	assert.Contains(t, body, `modbusd_rtu_bus_reconnects_total{port="/dev/ttyUSB0"} 2`)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.SetQueueDepth("raw", 1)
	b.SetQueueDepth("raw", 2)

	reqA := httptest.NewRequest("GET", "/metrics", nil)
	recA := httptest.NewRecorder()
	a.Handler().ServeHTTP(recA, reqA)
	assert.Contains(t, recA.Body.String(), `modbusd_queue_depth{queue="raw"} 1`)

	reqB := httptest.NewRequest("GET", "/metrics", nil)
	recB := httptest.NewRecorder()
	b.Handler().ServeHTTP(recB, reqB)
	assert.Contains(t, recB.Body.String(), `modbusd_queue_depth{queue="raw"} 2`)
}
