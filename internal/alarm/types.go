// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package alarm

import (
	"time"

	"github.com/modbusd/modbusd/internal/repository"
)

// Transition names the edge a rule just crossed in the debounce state
// machine. Only the two edges that cross the Clear/Active boundary produce
// a Notification; Pending-On and Pending-Off are bookkeeping states a rule
// can fall back out of without ever notifying anyone.
type Transition string

const (
	Incoming Transition = "Incoming"
	Outcome  Transition = "Outcome"
)

// Notification is what the evaluator hands to NotifyFunc on every
// Clear<->Active transition. It carries enough to format an email/SMS body
// or a broadcaster alarm_event payload without a second lookup.
type Notification struct {
	Rule       *repository.AlarmRule
	Transition Transition
	Value      float64
	Time       time.Time
}

// NotifyFunc receives one Notification per Clear<->Active transition.
// Dispatch is the caller's responsibility to make fire-and-forget: the
// evaluator calls it synchronously and does not retry or backoff on its
// behalf, mirroring how internal/poller.EmitFunc and internal/parser.EmitFunc
// are plain callbacks rather than imports of a concrete sink.
type NotifyFunc func(Notification)
