// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package supervisor

import (
	"github.com/modbusd/modbusd/internal/datalogger"
	"github.com/modbusd/modbusd/internal/dbwriter"
	"github.com/modbusd/modbusd/internal/repository"
)

// valueBatchStore adapts *repository.Repository.BeginValueBatch's concrete
// *repository.ValueBatch return to the interface-typed Store each of
// internal/dbwriter and internal/datalogger declares. A concrete pointer
// return can't satisfy an interface-typed return on its own, so this
// one-line wrapper is the seam both packages' own doc comments call for.
type valueBatchStore struct {
	repo *repository.Repository
}

func (s valueBatchStore) BeginValueBatch() (dbwriter.Batch, error) {
	return s.repo.BeginValueBatch()
}

type loggerValueBatchStore struct {
	repo *repository.Repository
}

func (s loggerValueBatchStore) BeginValueBatch() (datalogger.Batch, error) {
	return s.repo.BeginValueBatch()
}
