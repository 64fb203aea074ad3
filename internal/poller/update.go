// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poller

import "time"

// UpdateTag is one tag's contribution to a merged per-device update (spec
// §4.5 step 5).
type UpdateTag struct {
	ID       int64
	Name     string
	Value    float64
	Datatype string
	Ts       time.Time
}

// Update is the per-cycle status a poller reports after each tick: which
// tags it read, whether the cycle succeeded, and how long it took. The
// canonical value path to the broadcaster runs through parser_q, decoded
// independently from the raw frames the cycle pushes onto the distributor
// (spec §4.7); Emit exists for cycle-level observability (connectivity,
// latency, live per-device status) rather than as a second broadcaster
// feed. It is a plain callback rather than an import of internal/metrics
// or internal/broadcaster, consistent with how internal/taskmanager avoids
// importing the components it schedules.
type Update struct {
	DeviceID  int64
	Unit      int
	OK        bool
	Tags      []UpdateTag
	Seq       uint64
	LatencyMs int64
}

// EmitFunc receives one status update per completed poll cycle.
type EmitFunc func(Update)
