// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dbwriter implements the Bulk DB Writer (spec §4.11): a queue of
// decoded tag values drained into the store in size- or time-bounded
// batches, one transaction per flush. It is the single persistence path
// for tag history, shared by every parser consumer rather than having
// each device write its own row per read.
package dbwriter
