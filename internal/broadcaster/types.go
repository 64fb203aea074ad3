// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import "time"

// TagValue is one tag's contribution to an outgoing device update.
type TagValue struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Value    float64   `json:"value"`
	Datatype string    `json:"datatype"`
	Unit     string    `json:"unit"`
	Ts       time.Time `json:"ts"`
}

// Update is one outgoing modbus_update message. Seq, LatencyMs and Ts are
// always the latest of whatever updates were merged into it (spec §4.10):
// "preserving the latest seq, latency_ms, ts".
type Update struct {
	DeviceID  int64      `json:"device_id"`
	Tags      []TagValue `json:"tags"`
	Seq       uint64     `json:"seq"`
	LatencyMs int64      `json:"latency_ms"`
	Ts        time.Time  `json:"ts"`
}

// AlarmPayload is the alarm_event message published outside the micro-batch
// merge, one per Clear<->Active transition.
type AlarmPayload struct {
	RuleName   string    `json:"rule_name"`
	Level      string    `json:"level"`
	Target     int64     `json:"target"`
	Transition string    `json:"transition"`
	Value      float64   `json:"value"`
	Ts         time.Time `json:"ts"`
}

// merge folds b into a, concatenating tags and keeping whichever of the
// two carries the later Ts.
func merge(a, b Update) Update {
	a.Tags = append(a.Tags, b.Tags...)
	if !b.Ts.Before(a.Ts) {
		a.Seq = b.Seq
		a.LatencyMs = b.LatencyMs
		a.Ts = b.Ts
	}
	return a
}
