// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics instruments the acquisition engine with
// prometheus/client_golang counters, gauges, and histograms (spec
// §A.5): per-queue depth and drop count, poller cycle latency, alarm
// transitions per rule, and DB writer batch/flush behavior. The
// teacher repo only ever used this library as a read-only query client
// against an external Prometheus server (internal/metricdata); this
// package is the same library used the other way round, as first-party
// instrumentation exposed on an optional /metrics endpoint.
package metrics
