// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package parser

import "time"

// Tag is one decoded tag value contributed to a per-device Batch.
type Tag struct {
	ID       int64
	Name     string
	Value    float64
	Datatype string
	Unit     string
	Ts       time.Time
}

// Batch is the merged, per-device result of decoding one parser_q batch.
// Seq is a monotonically increasing per-device counter, not shared across
// devices, so a dropped or reordered batch is detectable downstream.
type Batch struct {
	DeviceID int64
	Tags     []Tag
	Seq      uint64
}

// EmitFunc receives one Batch per device represented in a drained parser_q
// batch. It is a plain callback rather than an import of
// internal/broadcaster, the same pattern internal/poller and
// internal/taskmanager use to stay decoupled from their consumers.
type EmitFunc func(Batch)

// Stats is a point-in-time snapshot of parsing counters.
type Stats struct {
	Parsed  uint64
	Dropped uint64
}
