// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package supervisor wires every hot-path component into the fixed
// start/stop order of spec §4.12: Latest-Value Cache, Value Queue, Bulk
// DB Writer, Poller set (rendezvoused by a start barrier), Parser, Data
// Logger, Alarm Evaluator, Broadcaster. Stop runs the same list in
// reverse. Nothing outside this package constructs more than one of
// these components, so this is the only place process-wide wiring
// decisions are made.
package supervisor
