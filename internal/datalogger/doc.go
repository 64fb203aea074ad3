// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package datalogger implements the logger_q consumer (spec §4.8): a
// shared tag_id -> (ts, value) buffer fed from the distributor's logger
// queue, and one independently-scheduled task per configured logger
// definition that reads its tag ids from the buffer on each tick and
// bulk-inserts them into the time-series store.
package datalogger
