// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modbusd"

// Registry holds every metric the acquisition engine exports and the
// private prometheus.Registry they are bound to. A process constructs
// exactly one Registry; nothing registers against the global default
// registerer, so tests can build as many independent Registries as they
// need without collisions.
type Registry struct {
	reg *prometheus.Registry

	queueDepth   *prometheus.GaugeVec
	queueDropped *prometheus.GaugeVec

	pollerCycleLatency *prometheus.HistogramVec

	alarmTransitions *prometheus.CounterVec

	writerBatchSize    prometheus.Histogram
	writerFlushLatency prometheus.Histogram

	rtuBusDeviceCount      *prometheus.GaugeVec
	rtuBusLastCycleSeconds *prometheus.GaugeVec
	rtuBusReconnected      *prometheus.GaugeVec
}

// New builds a Registry with every metric registered and ready to
// observe.
func New() *Registry {
	m := &Registry{reg: prometheus.NewRegistry()}

	m.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of buffered items in a pipeline queue.",
	}, []string{"queue"})

	m.queueDropped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_dropped_total",
		Help:      "Cumulative number of items dropped from a pipeline queue for being full.",
	}, []string{"queue"})

	m.pollerCycleLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poller_cycle_latency_seconds",
		Help:      "Wall time of one device poll cycle.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"device_id"})

	m.alarmTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alarm_transitions_total",
		Help:      "Count of alarm rule transitions, by rule and transition direction.",
	}, []string{"rule", "transition"})

	m.writerBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dbwriter_batch_size",
		Help:      "Number of tag values in one bulk DB writer flush.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 200},
	})

	m.writerFlushLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dbwriter_flush_latency_seconds",
		Help:      "Wall time of one bulk DB writer flush, successful or not.",
		Buckets:   prometheus.DefBuckets,
	})

	m.rtuBusDeviceCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rtu_bus_device_count",
		Help:      "Number of devices multiplexed on an RTU serial bus.",
	}, []string{"port"})

	m.rtuBusLastCycleSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rtu_bus_last_cycle_seconds",
		Help:      "Wall time of the most recent full cycle through an RTU bus's devices.",
	}, []string{"port"})

	m.rtuBusReconnected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rtu_bus_reconnects_total",
		Help:      "Cumulative reconnect count for an RTU serial bus since process start.",
	}, []string{"port"})

	m.reg.MustRegister(
		m.queueDepth,
		m.queueDropped,
		m.pollerCycleLatency,
		m.alarmTransitions,
		m.writerBatchSize,
		m.writerFlushLatency,
		m.rtuBusDeviceCount,
		m.rtuBusLastCycleSeconds,
		m.rtuBusReconnected,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this Registry's own
// collectors, bound only when config.Keys.MetricsAddr is set.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// SetQueueDepth records the current buffered length of a named queue.
func (m *Registry) SetQueueDepth(queue string, depth int) {
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// SetQueueDropped mirrors a queue's cumulative drop counter, which each
// owning component already tracks itself (spec §4.9/§4.10/§4.11 overflow
// policies); Set rather than Add keeps this a pure re-export instead of a
// second, independently-drifting count.
func (m *Registry) SetQueueDropped(queue string, dropped uint64) {
	m.queueDropped.WithLabelValues(queue).Set(float64(dropped))
}

// ObservePollerCycle records one device's poll cycle latency.
func (m *Registry) ObservePollerCycle(deviceID int64, d time.Duration) {
	m.pollerCycleLatency.WithLabelValues(strconv.FormatInt(deviceID, 10)).Observe(d.Seconds())
}

// IncAlarmTransition records one alarm rule transition.
func (m *Registry) IncAlarmTransition(rule, transition string) {
	m.alarmTransitions.WithLabelValues(rule, transition).Inc()
}

// ObserveWriterFlush records one bulk DB writer flush's batch size and
// latency. Matches internal/dbwriter.Writer.SetFlushObserver's signature
// so it can be passed directly as the observer.
func (m *Registry) ObserveWriterFlush(n int, dur time.Duration) {
	m.writerBatchSize.Observe(float64(n))
	m.writerFlushLatency.Observe(dur.Seconds())
}

// SetRTUBusStats records one RTU serial bus's current device count, last
// cycle duration, and cumulative reconnect count (SPEC_FULL.md §C.2),
// labelled by serial port so each physical bus gets its own series.
func (m *Registry) SetRTUBusStats(port string, deviceCount int, lastCycle time.Duration, reconnects int) {
	m.rtuBusDeviceCount.WithLabelValues(port).Set(float64(deviceCount))
	m.rtuBusLastCycleSeconds.WithLabelValues(port).Set(lastCycle.Seconds())
	m.rtuBusReconnected.WithLabelValues(port).Set(float64(reconnects))
}
