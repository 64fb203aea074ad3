// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import "github.com/modbusd/modbusd/internal/repository"

// Batch is the narrow capability a LoggerTask needs from an open
// transaction. *repository.ValueBatch satisfies it directly; a Store
// implementation wraps *repository.Repository.BeginValueBatch to return
// it as this interface (a concrete pointer return can't satisfy an
// interface-typed return by itself, so the wiring layer supplies a
// one-line adapter at construction, the same way internal/poller's
// DialFunc decouples DevicePoller from a concrete socket type).
type Batch interface {
	Add(v repository.TagValue) error
	Commit() error
	Rollback() error
}

// Store opens one Batch per logger tick, the persistence seam the Bulk DB
// Writer (spec §4.11) also opens through *repository.Repository.
type Store interface {
	BeginValueBatch() (Batch, error)
}
