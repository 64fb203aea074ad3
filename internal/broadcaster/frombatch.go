// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"time"

	"github.com/modbusd/modbusd/internal/parser"
)

// UpdateFromBatch converts a parser.Batch into the Update this package
// publishes. latencyMs is supplied by the caller rather than read off the
// batch: the Parser decodes independently of internal/poller's own
// cycle-status Update (see internal/poller's architecture note), so the
// one component that knows both per-cycle latency and the decoded batch
// is whatever wires them together (internal/supervisor).
func UpdateFromBatch(b parser.Batch, latencyMs int64) Update {
	tags := make([]TagValue, len(b.Tags))
	ts := time.Time{}
	for i, t := range b.Tags {
		tags[i] = TagValue{ID: t.ID, Name: t.Name, Value: t.Value, Datatype: t.Datatype, Unit: t.Unit, Ts: t.Ts}
		if t.Ts.After(ts) {
			ts = t.Ts
		}
	}
	return Update{DeviceID: b.DeviceID, Tags: tags, Seq: b.Seq, LatencyMs: latencyMs, Ts: ts}
}
