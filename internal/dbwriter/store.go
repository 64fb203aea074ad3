// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dbwriter

import "github.com/modbusd/modbusd/internal/repository"

// Batch is the narrow capability a flush needs from an open transaction.
// *repository.ValueBatch satisfies it directly; a Store implementation
// wraps *repository.Repository.BeginValueBatch to return it as this
// interface, the same one-line adapter internal/datalogger.Store needs
// for the same reason (a concrete pointer return can't satisfy an
// interface-typed return by itself).
type Batch interface {
	Add(v repository.TagValue) error
	Commit() error
	Rollback() error
}

// Store opens one Batch per flush.
type Store interface {
	BeginValueBatch() (Batch, error)
}
