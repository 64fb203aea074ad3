// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package parser consumes the distributor's parser queue, turns raw
// register frames into engineering values with internal/modbus, updates
// the latest-value cache, and hands a merged per-device batch to whatever
// sink is wired in (normally internal/broadcaster).
package parser
