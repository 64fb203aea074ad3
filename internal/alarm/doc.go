// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package alarm implements the Alarm Evaluator: on each tick it reads the
// latest cached value for every enabled alarm rule's target tag, evaluates
// the rule's condition, drives a per-rule Clear/Pending-On/Active/Pending-Off
// debounce state machine, and writes append-only alarm events on every
// Clear<->Active transition.
//
// Rule conditions are compiled once per rule refresh with expr-lang, the
// same library and calling convention internal/tagger's job classification
// rules use in the source this engine is adapted from: a rule with an
// Operator/Threshold pair compiles to an equivalent "value OP threshold"
// program, and a rule may instead supply Expression directly for conditions
// the six enumerated operators cannot express.
package alarm
